package audio

import "time"

// Endpointer decides when an utterance is over. Frames before the first
// voiced frame are discarded; once speech started, trailing silence longer
// than Silence ends the clip. MaxLength caps the clip either way.
type Endpointer struct {
	Threshold float64
	Silence   time.Duration
	MaxLength time.Duration
	FrameDur  time.Duration

	speaking bool
	silent   time.Duration
	total    time.Duration
}

func NewEndpointer(sampleRate, frameSize int) *Endpointer {
	return &Endpointer{
		Threshold: 0.015,
		Silence:   600 * time.Millisecond,
		MaxLength: 10 * time.Second,
		FrameDur:  time.Duration(frameSize) * time.Second / time.Duration(sampleRate),
	}
}

// Push feeds the RMS of the next frame. keep reports whether the frame
// belongs to the clip, done whether recording should stop.
func (e *Endpointer) Push(rms float64) (keep, done bool) {
	e.total += e.FrameDur

	if rms > e.Threshold {
		e.speaking = true
		e.silent = 0
		keep = true
	} else if e.speaking {
		e.silent += e.FrameDur
		if e.silent >= e.Silence {
			return false, true
		}
		keep = true
	}

	if e.MaxLength > 0 && e.total >= e.MaxLength {
		done = true
	}
	return keep, done
}

func (e *Endpointer) Reset() {
	e.speaking = false
	e.silent = 0
	e.total = 0
}
