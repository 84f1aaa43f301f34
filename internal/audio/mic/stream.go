package mic

import (
	"fmt"
	log "log/slog"

	"github.com/gordonklaus/portaudio"

	"doula/internal/audio"
)

// Stream is a callback-driven capture stream. PortAudio invokes the callback
// on its own thread; frames are handed over through an audio.Queue.
type Stream struct {
	stream *portaudio.Stream
	queue  *audio.Queue
}

func OpenStream(sampleRate, frameSize int, q *audio.Queue) (*Stream, error) {
	s := &Stream{queue: q}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), frameSize, func(in []int16) {
		q.Put(in)
	})
	if err != nil {
		return nil, fmt.Errorf("open capture stream: %w", err)
	}
	s.stream = stream

	return s, nil
}

func (s *Stream) Start() error {
	s.queue.Drain()
	return s.stream.Start()
}

func (s *Stream) Stop() error {
	if d := s.queue.Dropped(); d > 0 {
		log.Warn("Capture frames dropped", "frames", d)
	}
	return s.stream.Stop()
}

func (s *Stream) Close() error {
	return s.stream.Close()
}

func (s *Stream) Frames() <-chan []int16 {
	return s.queue.Frames()
}
