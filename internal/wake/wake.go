package wake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"strings"

	"doula/internal/audio"
)

// Recognizer is the subset of a streaming keyword recognizer the detector
// needs. AcceptWaveform reports true once an utterance is final.
type Recognizer interface {
	AcceptWaveform(pcm []byte) bool
	Result() string
	Reset()
}

type Source interface {
	Start() error
	Stop() error
	Frames() <-chan []int16
}

var ErrSourceClosed = errors.New("capture source closed")

// Matcher reports whether an utterance contains one of the wake phrases.
type Matcher struct {
	phrases []string
}

func NewMatcher(phrases ...string) *Matcher {
	m := &Matcher{}
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			m.phrases = append(m.phrases, p)
		}
	}
	return m
}

func (m *Matcher) Match(text string) (string, bool) {
	text = strings.ToLower(text)
	for _, p := range m.phrases {
		if strings.Contains(text, p) {
			return p, true
		}
	}
	return "", false
}

type Detector struct {
	src     Source
	rec     Recognizer
	matcher *Matcher
}

func NewDetector(src Source, rec Recognizer, m *Matcher) *Detector {
	return &Detector{src: src, rec: rec, matcher: m}
}

// Listen blocks until a wake phrase is heard and returns the utterance that
// contained it.
func (d *Detector) Listen(ctx context.Context) (string, error) {
	if err := d.src.Start(); err != nil {
		return "", fmt.Errorf("start capture: %w", err)
	}
	defer d.src.Stop()
	defer d.rec.Reset()

	frames := d.src.Frames()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				return "", ErrSourceClosed
			}

			if !d.rec.AcceptWaveform(audio.Int16Bytes(frame)) {
				continue
			}

			text, err := ParseResult(d.rec.Result())
			if err != nil {
				log.Warn("Bad recognizer result", "err", err)
				continue
			}
			if text == "" {
				continue
			}

			log.Info("Detected speech", "text", text)

			if phrase, ok := d.matcher.Match(text); ok {
				log.Info("Wake phrase detected", "phrase", phrase)
				return text, nil
			}
		}
	}
}

// ParseResult extracts the lower-cased text of a final recognizer result.
func ParseResult(raw string) (string, error) {
	var res struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return "", fmt.Errorf("unmarshal result: %w (raw: %s)", err, raw)
	}
	return strings.ToLower(strings.TrimSpace(res.Text)), nil
}
