package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	r := NewRouter()

	tests := []struct {
		text string
		want Kind
	}{
		{"I want some relax music please", Music},
		{"  could you PLAY relaxing   music ", Music},
		{"relax music", Music},
		{"play some relaxing music", Chat},
		{"I feel so tense right now", Chat},
		{"music", Chat},
		{"", Chat},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, r.Classify(tt.text), tt.text)
	}
}

func TestCustomPhrases(t *testing.T) {
	r := NewRouter("Ocean Sounds", " ")
	assert.Equal(t, Music, r.Classify("some ocean sounds would help"))
	assert.Equal(t, Chat, r.Classify("play relaxing music"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "hey doula", Normalize("  Hey\tDOULA \n"))
	assert.Equal(t, "", Normalize("   "))
	assert.Equal(t, "music", Music.String())
	assert.Equal(t, "chat", Chat.String())
}
