package duck

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

var percentRe = regexp.MustCompile(`(\d+)\s*%`)

const maxVolume = 150

type Stream struct {
	ID      int
	Volume  int
	AppName string
}

type fade struct {
	id   int
	from int
	to   int
}

// Mixer is the sound server surface the ducker drives.
type Mixer interface {
	List(ctx context.Context) ([]Stream, error)
	SetVolume(ctx context.Context, id, percent int) error
}

// Ducker fades every other application's sink input down while the
// assistant talks, and restores it afterwards. Streams whose
// application.name is in self are left alone.
type Ducker struct {
	mu       sync.Mutex
	mixer    Mixer
	active   bool
	self     []string
	original map[int]int // sink input id -> volume before ducking
	floor    int
	step     time.Duration
}

func New(mixer Mixer, self []string, floor int) *Ducker {
	if mixer == nil {
		mixer = Pactl{}
	}
	floor = clampVolume(floor)

	return &Ducker{
		mixer:    mixer,
		self:     append([]string(nil), self...),
		original: make(map[int]int),
		floor:    floor,
		step:     10 * time.Millisecond,
	}
}

// Duck scales foreign streams to current*factor, never below the floor.
func (d *Ducker) Duck(ctx context.Context, factor float64, duration time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active {
		return nil
	}

	streams, err := d.mixer.List(ctx)
	if err != nil {
		return fmt.Errorf("list streams: %w", err)
	}

	d.original = make(map[int]int)

	var targets []fade
	for _, s := range streams {
		if d.isSelf(s) {
			continue
		}

		to := math.Max(float64(s.Volume)*factor, float64(d.floor))
		d.original[s.ID] = s.Volume
		targets = append(targets, fade{id: s.ID, from: s.Volume, to: clampVolume(int(math.Round(to)))})
	}

	// A cut-short fade still leaves streams lowered, so Restore must run.
	d.active = true

	return d.fade(ctx, targets, duration)
}

// Restore fades ducked streams back, including after a Duck that was
// interrupted. Streams that appeared after Duck are not touched.
func (d *Ducker) Restore(ctx context.Context, duration time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return nil
	}

	streams, err := d.mixer.List(ctx)
	if err != nil {
		return fmt.Errorf("list streams: %w", err)
	}

	var targets []fade
	for _, s := range streams {
		if d.isSelf(s) {
			continue
		}
		if orig, ok := d.original[s.ID]; ok {
			targets = append(targets, fade{id: s.ID, from: s.Volume, to: orig})
		}
	}

	if err := d.fade(ctx, targets, duration); err != nil {
		return err
	}

	d.original = make(map[int]int)
	d.active = false
	return nil
}

func (d *Ducker) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

func (d *Ducker) isSelf(s Stream) bool {
	for _, name := range d.self {
		if s.AppName == name {
			return true
		}
	}
	return false
}

func (d *Ducker) fade(ctx context.Context, targets []fade, duration time.Duration) error {
	if len(targets) == 0 {
		return nil
	}

	steps := 1
	if duration > 0 && d.step > 0 {
		steps = max(int(duration/d.step), 1)
	}

	for i := 1; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		frac := float64(i) / float64(steps)
		for _, t := range targets {
			v := int(math.Round(float64(t.from) + float64(t.to-t.from)*frac))
			if err := d.mixer.SetVolume(ctx, t.id, v); err != nil {
				return fmt.Errorf("set volume id=%d: %w", t.id, err)
			}
		}

		if i < steps {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(duration / time.Duration(steps)):
			}
		}
	}

	return nil
}

func clampVolume(v int) int {
	return min(max(v, 0), maxVolume)
}

// Pactl drives PulseAudio/PipeWire through the pactl CLI.
type Pactl struct{}

func (Pactl) List(ctx context.Context) ([]Stream, error) {
	out, err := exec.CommandContext(ctx, "pactl", "list", "sink-inputs").Output()
	if err != nil {
		return nil, fmt.Errorf("pactl list sink-inputs: %w", err)
	}
	return ParseSinkInputs(string(out)), nil
}

func (Pactl) SetVolume(ctx context.Context, id, percent int) error {
	arg := fmt.Sprintf("%d%%", clampVolume(percent))
	return exec.CommandContext(ctx, "pactl", "set-sink-input-volume", strconv.Itoa(id), arg).Run()
}

// ParseSinkInputs reads the output of `pactl list sink-inputs`.
func ParseSinkInputs(text string) []Stream {
	parts := strings.Split(text, "Sink Input #")
	if len(parts) <= 1 {
		return nil
	}

	var res []Stream

	for _, block := range parts[1:] {
		newline := strings.IndexByte(block, '\n')
		if newline <= 0 {
			continue
		}

		id, err := strconv.Atoi(strings.TrimSpace(block[:newline]))
		if err != nil {
			continue
		}

		s := Stream{ID: id}

		for _, line := range strings.Split(block[newline+1:], "\n") {
			line = strings.TrimSpace(line)

			if strings.HasPrefix(line, "Volume:") && s.Volume == 0 {
				if m := percentRe.FindStringSubmatch(line); len(m) >= 2 {
					if v, err := strconv.Atoi(m[1]); err == nil {
						s.Volume = v
					}
				}
			}

			// application.name = "Firefox"
			if strings.HasPrefix(line, "application.name =") && s.AppName == "" {
				if _, rest, ok := strings.Cut(line, "\""); ok {
					s.AppName, _, _ = strings.Cut(rest, "\"")
				}
			}
		}

		if s.Volume == 0 && s.AppName == "" {
			continue
		}

		res = append(res, s)
	}

	return res
}
