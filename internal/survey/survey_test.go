package survey

import (
	"context"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog(t *testing.T) {
	require.Len(t, Catalog, 7)

	seen := map[string]bool{}
	for _, s := range Catalog {
		for _, q := range s.Questions {
			assert.False(t, seen[q.ID], "duplicate id %s", q.ID)
			seen[q.ID] = true

			if q.ShowIf != nil {
				parent, ok := Lookup(q.ShowIf.Question)
				require.True(t, ok, "%s depends on unknown %s", q.ID, q.ShowIf.Question)
				assert.Contains(t, parent.Choices, q.ShowIf.Value)
				assert.True(t, seen[parent.ID], "%s must come after %s", q.ID, parent.ID)
			}
		}
	}

	_, ok := Lookup("nope")
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	got, err := Validate(Answers{
		"preferred_name": {"  Sam "},
		"due_date":       {"2026-11-02"},
		"language":       {"English", "Other", "English"},
		"language_other": {"Portuguese"},
		"tone":           {"Calm and neutral"},
		"tone_other":     {"ignored, tone is not Other"},
		"sensory":        {"Spoken words only"},
		"sounds":         {"Soft instrumental music"},
		"first_labor":    {"Yes"},
		"fears":          {""},
		"unknown":        {"x"},
	})
	require.NoError(t, err)

	assert.Equal(t, Answers{
		"preferred_name": {"Sam"},
		"due_date":       {"2026-11-02"},
		"language":       {"English", "Other"},
		"language_other": {"Portuguese"},
		"tone":           {"Calm and neutral"},
		"sensory":        {"Spoken words only"},
		"first_labor":    {"Yes"},
	}, got)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		in   Answers
	}{
		{"bad choice", Answers{"tone": {"Sarcastic"}}},
		{"two single values", Answers{"humor": {"A little is fine", "No, I prefer a serious tone"}}},
		{"bad date", Answers{"due_date": {"next tuesday"}}},
		{"too long", Answers{"additional": {string(make([]byte, MaxTextLen+1))}}},
		{"bad multi", Answers{"language": {"Klingon"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.in)
			assert.ErrorIs(t, err, ErrInvalid)

			var fe *FieldError
			assert.ErrorAs(t, err, &fe)
		})
	}
}

func TestFromForm(t *testing.T) {
	form := url.Values{"language": {"English", "Spanish"}, "tone": {"Warm and gentle"}}
	a := FromForm(form)
	form["language"][0] = "changed"

	assert.Equal(t, []string{"English", "Spanish"}, a["language"])
	assert.Equal(t, "Warm and gentle", a.Get("tone"))
	assert.Empty(t, a.Get("humor"))
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "db", "questionnaire.db"))
	require.NoError(t, err)
	defer s.Close()

	older := NewResponse(Answers{"tone": {"Warm and gentle"}})
	older.SubmittedAt = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	newer := NewResponse(Answers{"language": {"English", "Spanish"}})
	newer.SubmittedAt = time.Date(2026, 10, 2, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(ctx, older))
	require.NoError(t, s.Save(ctx, newer))
	assert.Error(t, s.Save(ctx, newer), "duplicate id")

	got, err := s.Get(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, older, got)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, newer.ID, all[0].ID)
	assert.Equal(t, older.ID, all[1].ID)

	one, err := s.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, newer, one[0])
}
