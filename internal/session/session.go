package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type State string

const (
	Idle         State = "idle"
	Listening    State = "listening"
	Recording    State = "recording"
	Transcribing State = "transcribing"
	Responding   State = "responding"
	Speaking     State = "speaking"
	Music        State = "music"
)

type Kind string

const (
	KindState      Kind = "state"
	KindWake       Kind = "wake"
	KindTranscript Kind = "transcript"
	KindResponse   Kind = "response"
	KindAudio      Kind = "audio"
	KindError      Kind = "error"
)

var transitions = map[State][]State{
	Idle:         {Listening, Recording, Transcribing},
	Listening:    {Recording},
	Recording:    {Transcribing},
	Transcribing: {Responding, Music},
	Responding:   {Speaking},
	Speaking:     {},
	Music:        {},
}

type Event struct {
	ID          string    `json:"id"`
	Interaction string    `json:"interaction,omitempty"`
	Time        time.Time `json:"time"`
	Kind        Kind      `json:"kind"`
	State       State     `json:"state"`
	Text        string    `json:"text,omitempty"`
}

type Snapshot struct {
	State       State     `json:"state"`
	Interaction string    `json:"interaction,omitempty"`
	Since       time.Time `json:"since"`
	Active      bool      `json:"active"`
}

// Tracker holds the assistant's conversational state and fans events out
// to subscribers. Slow subscribers lose events instead of stalling the loop.
type Tracker struct {
	mu          sync.Mutex
	state       State
	since       time.Time
	interaction string

	history []Event
	limit   int

	subs map[int]chan Event
	next int

	now func() time.Time
}

func NewTracker(historyLimit int) *Tracker {
	if historyLimit <= 0 {
		historyLimit = 100
	}
	return &Tracker{
		state: Idle,
		since: time.Now(),
		limit: historyLimit,
		subs:  make(map[int]chan Event),
		now:   time.Now,
	}
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Active reports whether a wake phrase (or trigger) has started an
// interaction that has not finished yet.
func (t *Tracker) Active() bool {
	return isActive(t.State())
}

func isActive(s State) bool {
	return s != Idle && s != Listening
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		State:       t.state,
		Interaction: t.interaction,
		Since:       t.since,
		Active:      isActive(t.state),
	}
}

// Transition moves to next. Any state may return to Idle; everything else
// must follow the capture → transcribe → respond → speak order.
func (t *Tracker) Transition(next State) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if next != Idle && !allowed(t.state, next) {
		return fmt.Errorf("invalid transition %s -> %s", t.state, next)
	}

	if next == Recording || (next == Transcribing && t.state == Idle) {
		t.interaction = uuid.NewString()
	}

	t.state = next
	t.since = t.now()
	t.emit(KindState, "")

	if next == Idle {
		t.interaction = ""
	}
	return nil
}

func allowed(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (t *Tracker) Publish(kind Kind, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.emit(kind, text)
}

func (t *Tracker) Fail(err error) {
	if err == nil {
		return
	}
	t.Publish(KindError, err.Error())
}

// emit must be called with mu held.
func (t *Tracker) emit(kind Kind, text string) {
	ev := Event{
		ID:          uuid.NewString(),
		Interaction: t.interaction,
		Time:        t.now(),
		Kind:        kind,
		State:       t.state,
		Text:        text,
	}

	t.history = append(t.history, ev)
	if len(t.history) > t.limit {
		t.history = append([]Event(nil), t.history[len(t.history)-t.limit:]...)
	}

	for _, ch := range t.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (t *Tracker) History() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Event(nil), t.history...)
}

// Subscribe returns a channel of future events and a cancel func that
// closes it.
func (t *Tracker) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 16
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.next
	t.next++
	ch := make(chan Event, buffer)
	t.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			delete(t.subs, id)
			close(ch)
		})
	}
}
