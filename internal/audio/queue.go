package audio

import "sync/atomic"

// Queue hands frames from a capture callback to a consumer. Put never
// blocks: when the consumer falls behind the oldest frame is dropped.
type Queue struct {
	ch      chan []int16
	dropped atomic.Uint64
}

func NewQueue(depth int) *Queue {
	if depth < 1 {
		depth = 1
	}
	return &Queue{ch: make(chan []int16, depth)}
}

// Put copies frame, the capture library reuses its buffer.
func (q *Queue) Put(frame []int16) {
	f := append([]int16(nil), frame...)
	for {
		select {
		case q.ch <- f:
			return
		default:
		}
		select {
		case <-q.ch:
			q.dropped.Add(1)
		default:
		}
	}
}

func (q *Queue) Frames() <-chan []int16 { return q.ch }

func (q *Queue) Dropped() uint64 { return q.dropped.Load() }

// Drain discards everything buffered, e.g. audio captured while the
// assistant itself was speaking.
func (q *Queue) Drain() int {
	n := 0
	for {
		select {
		case <-q.ch:
			n++
		default:
			return n
		}
	}
}
