package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"os"
	"strings"

	openai "github.com/openai/openai-go/v3"
)

var ErrNothingToSay = errors.New("nothing to say")

type Options struct {
	Model string // "tts-1"
	Voice string // "shimmer"
}

// OpenAI synthesizes speech with the hosted text-to-speech API.
type OpenAI struct {
	client openai.Client
	opt    Options
}

func NewOpenAI(client openai.Client, opt Options) *OpenAI {
	if opt.Model == "" {
		opt.Model = string(openai.SpeechModelTTS1)
	}
	if opt.Voice == "" {
		opt.Voice = "shimmer"
	}
	return &OpenAI{client: client, opt: opt}
}

// Synthesize writes an mp3 rendition of text to out.
func (s *OpenAI) Synthesize(ctx context.Context, text, out string) error {
	if strings.TrimSpace(text) == "" {
		return ErrNothingToSay
	}

	resp, err := s.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(s.opt.Model),
		Voice:          openai.AudioSpeechNewParamsVoice(s.opt.Voice),
		Input:          text,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return fmt.Errorf("text-to-speech: %w", err)
	}
	defer resp.Body.Close()

	return writeFile(out, resp.Body)
}

// writeFile streams r into a temp file next to path and renames it into
// place, so a reader never sees a partial file.
func writeFile(path string, r io.Reader) error {
	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write speech: %w", err)
	}
	if n == 0 {
		os.Remove(tmp)
		return errors.New("write speech: empty audio")
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}

	log.Debug("Speech saved", "path", path, "bytes", n)
	return nil
}
