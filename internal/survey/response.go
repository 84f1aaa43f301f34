package survey

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

const MaxTextLen = 2000

var ErrInvalid = errors.New("invalid questionnaire answer")

type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrInvalid }

// Answers maps question IDs to the submitted values. Single-value
// questions hold at most one entry.
type Answers map[string][]string

func (a Answers) Get(id string) string {
	if v := a[id]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func (a Answers) has(id, value string) bool {
	return slices.Contains(a[id], value)
}

type Response struct {
	ID          string    `json:"id"`
	SubmittedAt time.Time `json:"submitted_at"`
	Answers     Answers   `json:"answers"`
}

func NewResponse(a Answers) Response {
	return Response{
		ID:          uuid.NewString(),
		SubmittedAt: time.Now().UTC(),
		Answers:     a,
	}
}

func FromForm(form url.Values) Answers {
	a := make(Answers, len(form))
	for k, v := range form {
		a[k] = append([]string(nil), v...)
	}
	return a
}

// Validate checks a against the Catalog and returns a cleaned copy:
// unknown fields and blank values are dropped, and so are answers to
// follow-up questions whose condition is not met.
func Validate(a Answers) (Answers, error) {
	out := make(Answers)

	for _, s := range Catalog {
		for _, q := range s.Questions {
			if q.ShowIf != nil && !out.has(q.ShowIf.Question, q.ShowIf.Value) {
				continue
			}

			vals := clean(a[q.ID])
			if len(vals) == 0 {
				continue
			}

			if err := check(q, vals); err != nil {
				return nil, err
			}
			out[q.ID] = vals
		}
	}
	return out, nil
}

func clean(in []string) []string {
	var out []string
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func check(q Question, vals []string) error {
	switch q.Kind {
	case Single, Text, TextArea, Date:
		if len(vals) > 1 {
			return &FieldError{q.ID, "expects a single value"}
		}
	}

	switch q.Kind {
	case Single, Multi:
		for _, v := range vals {
			if !slices.Contains(q.Choices, v) {
				return &FieldError{q.ID, fmt.Sprintf("unknown choice %q", v)}
			}
		}
	case Date:
		if _, err := time.Parse(time.DateOnly, vals[0]); err != nil {
			return &FieldError{q.ID, "expects a YYYY-MM-DD date"}
		}
	case Text, TextArea:
		if len(vals[0]) > MaxTextLen {
			return &FieldError{q.ID, "is too long"}
		}
	}
	return nil
}
