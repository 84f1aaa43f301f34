//go:build !espeak

package tts

import (
	"context"
	"errors"
)

const EspeakAvailable = false

type Espeak struct {
	Language string
}

func (e *Espeak) Synthesize(context.Context, string, string) error {
	return errors.New("espeak backend not compiled (build with: go build -tags espeak)")
}

func (e *Espeak) Direct() bool { return true }
