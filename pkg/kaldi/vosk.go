package kaldi

import (
	"errors"
	"fmt"
	"os"

	vosk "github.com/alphacep/vosk-api/go"
)

const ModelsURL = "https://alphacephei.com/vosk/models"

var ErrModelNotFound = errors.New("vosk model not found")

// Recognizer wraps a vosk model plus a streaming recognizer over it.
type Recognizer struct {
	model *vosk.VoskModel
	rec   *vosk.VoskRecognizer
}

func Open(modelDir string, sampleRate int) (*Recognizer, error) {
	if fi, err := os.Stat(modelDir); err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("%w at %s, download from %s", ErrModelNotFound, modelDir, ModelsURL)
	}

	vosk.SetLogLevel(-1)

	model, err := vosk.NewModel(modelDir)
	if err != nil {
		return nil, fmt.Errorf("load vosk model: %w", err)
	}

	rec, err := vosk.NewRecognizer(model, float64(sampleRate))
	if err != nil {
		model.Free()
		return nil, fmt.Errorf("new recognizer: %w", err)
	}

	return &Recognizer{model: model, rec: rec}, nil
}

func (r *Recognizer) AcceptWaveform(pcm []byte) bool {
	return r.rec.AcceptWaveform(pcm) != 0
}

func (r *Recognizer) Result() string {
	return r.rec.Result()
}

func (r *Recognizer) Reset() {
	r.rec.Reset()
}

func (r *Recognizer) Close() {
	if r.rec != nil {
		r.rec.Free()
	}
	if r.model != nil {
		r.model.Free()
	}
}
