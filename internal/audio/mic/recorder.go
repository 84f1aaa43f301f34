package mic

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"time"

	"github.com/gordonklaus/portaudio"

	"doula/internal/audio"
)

var ErrNoAudio = errors.New("no audio recorded")

func Init() error {
	return portaudio.Initialize()
}

func Terminate() {
	portaudio.Terminate()
}

type RecorderConfig struct {
	SampleRate int
	Duration   time.Duration
	Auto       bool // stop on trailing silence instead of after Duration
}

// Recorder captures a single clip from the default input device.
type Recorder struct {
	cfg RecorderConfig
}

func NewRecorder(cfg RecorderConfig) *Recorder {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44100
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 10 * time.Second
	}
	return &Recorder{cfg: cfg}
}

// Record captures a clip and writes it to path as a mono S16 wave file.
func (r *Recorder) Record(ctx context.Context, path string) error {
	var (
		pcm []int16
		err error
	)
	if r.cfg.Auto {
		pcm, err = r.recordAuto(ctx)
	} else {
		pcm, err = r.recordFor(ctx, r.cfg.Duration)
	}
	if err != nil {
		return err
	}

	log.Debug("Captured clip", "samples", len(pcm), "rate", r.cfg.SampleRate)

	return audio.WriteWAV(path, pcm, r.cfg.SampleRate)
}

func (r *Recorder) recordFor(ctx context.Context, d time.Duration) ([]int16, error) {
	const frameSize = 1024

	buf := make([]int16, frameSize)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(r.cfg.SampleRate), len(buf), buf)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("start input: %w", err)
	}
	defer stream.Stop()

	want := int(d.Seconds() * float64(r.cfg.SampleRate))
	out := make([]int16, 0, want)

	for len(out) < want {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := stream.Read(); err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		out = append(out, buf...)
	}

	return out[:want], nil
}

func (r *Recorder) recordAuto(ctx context.Context) ([]int16, error) {
	frameSize := r.cfg.SampleRate / 50 // 20ms

	buf := make([]int16, frameSize)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(r.cfg.SampleRate), len(buf), buf)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("start input: %w", err)
	}
	defer stream.Stop()

	ep := audio.NewEndpointer(r.cfg.SampleRate, frameSize)
	ep.MaxLength = r.cfg.Duration

	out := make([]int16, 0, r.cfg.SampleRate*3)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := stream.Read(); err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}

		keep, done := ep.Push(audio.RMS16(buf))
		if keep {
			out = append(out, buf...)
		}
		if done {
			break
		}
	}

	if len(out) == 0 {
		return nil, ErrNoAudio
	}
	return out, nil
}
