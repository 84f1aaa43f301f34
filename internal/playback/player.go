package playback

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

var ErrNotFound = errors.New("audio file not found")

// Player plays mp3/wav files through the default output device. The speaker
// is initialized once at a fixed rate; every file is resampled to it.
type Player struct {
	rate beep.SampleRate

	initOnce sync.Once
	initErr  error

	mu sync.Mutex // one file at a time
}

func NewPlayer(sampleRate int) *Player {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	return &Player{rate: beep.SampleRate(sampleRate)}
}

// Play blocks until path has been played in full or ctx is done.
func (p *Player) Play(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return err
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	default:
		streamer, format, err = mp3.Decode(f)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("decode %s: %w", path, err)
	}
	defer streamer.Close()

	p.initOnce.Do(func() {
		p.initErr = speaker.Init(p.rate, p.rate.N(time.Second/10))
	})
	if p.initErr != nil {
		return fmt.Errorf("init speaker: %w", p.initErr)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var s beep.Streamer = streamer
	if format.SampleRate != p.rate {
		s = beep.Resample(4, format.SampleRate, p.rate, streamer)
	}

	log.Debug("Playing", "path", path, "length", format.SampleRate.D(streamer.Len()))

	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}
