package pipeline

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"sync"
	"time"

	"doula/internal/assist"
	"doula/internal/intent"
	"doula/internal/session"
	"doula/internal/tts"
)

var (
	ErrNoSpeech      = errors.New("no speech detected")
	ErrMusicNotFound = errors.New("relaxing music file not found")
)

type Listener interface {
	Listen(ctx context.Context) (string, error)
}

type Recorder interface {
	Record(ctx context.Context, path string) error
}

type Transcriber interface {
	TranscribeFile(ctx context.Context, path string) (string, error)
}

type Responder interface {
	Respond(ctx context.Context, text string, v assist.Vitals) (string, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text, out string) error
}

type Player interface {
	Play(ctx context.Context, path string) error
}

type Ducker interface {
	Duck(ctx context.Context, factor float64, d time.Duration) error
	Restore(ctx context.Context, d time.Duration) error
}

type Cue interface {
	Chime(ctx context.Context)
	Desktop(title, message string)
}

// Deps are the external stages. Listener, Ducker and Cue are optional.
type Deps struct {
	Listener    Listener
	Recorder    Recorder
	Transcriber Transcriber
	Responder   Responder
	Synthesizer Synthesizer
	Player      Player
	Ducker      Ducker
	Cue         Cue
}

type Config struct {
	ClipPath   string
	SpeechPath string
	MusicPath  string
	Vitals     assist.Vitals
	Router     *intent.Router

	// DirectSpeech means the synthesizer plays audio itself and there is
	// no file to hand to the player.
	DirectSpeech bool

	// RetryDelay is the pause after a failed wake listen.
	RetryDelay time.Duration
}

type Assistant struct {
	cfg     Config
	deps    Deps
	tracker *session.Tracker
	trigger chan struct{}
	typed   chan string

	mu     sync.Mutex
	cancel context.CancelFunc // current interaction
}

func New(cfg Config, deps Deps, tracker *session.Tracker) *Assistant {
	if cfg.Router == nil {
		cfg.Router = intent.NewRouter()
	}
	if cfg.ClipPath == "" {
		cfg.ClipPath = "user_input.wav"
	}
	if cfg.SpeechPath == "" {
		cfg.SpeechPath = "response.mp3"
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if tracker == nil {
		tracker = session.NewTracker(0)
	}
	return &Assistant{
		cfg:     cfg,
		deps:    deps,
		tracker: tracker,
		trigger: make(chan struct{}, 1),
		typed:   make(chan string, 1),
	}
}

func (a *Assistant) Tracker() *session.Tracker { return a.tracker }

// Trigger starts an interaction without waiting for the wake phrase. It
// reports false if a trigger is already pending.
func (a *Assistant) Trigger() bool {
	select {
	case a.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Reset abandons the running interaction, if any, and drops pending
// triggers. It reports whether an interaction was cancelled.
func (a *Assistant) Reset() bool {
	select {
	case <-a.trigger:
	default:
	}
	select {
	case <-a.typed:
	default:
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel == nil {
		return false
	}
	a.cancel()
	a.cancel = nil
	return true
}

func (a *Assistant) setCancel(c context.CancelFunc) {
	a.mu.Lock()
	a.cancel = c
	a.mu.Unlock()
}

// Submit queues a typed request for Run to handle in place of the next
// recording. It reports false if one is already pending.
func (a *Assistant) Submit(text string) bool {
	select {
	case a.typed <- text:
		return true
	default:
		return false
	}
}

// Run loops listen → interaction until ctx is done. Stage failures are
// logged and published; the loop goes back to listening.
func (a *Assistant) Run(ctx context.Context) error {
	log.Info("Assistant loop started")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		a.enter(session.Idle)
		a.enter(session.Listening)

		typed, err := a.waitWake(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error("Wake listening failed", "err", err)
			a.tracker.Fail(err)
			a.enter(session.Idle)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(a.cfg.RetryDelay):
			}
			continue
		}

		ictx, cancel := context.WithCancel(ctx)
		a.setCancel(cancel)

		if typed != "" {
			a.enter(session.Idle)
			err = a.Ask(ictx, typed)
		} else {
			err = a.Once(ictx)
		}

		a.setCancel(nil)
		cancel()

		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, context.Canceled):
			log.Info("Interaction reset")
		case err != nil:
			log.Error("Interaction failed", "err", err)
		}
	}
}

// waitWake blocks until the wake phrase, a trigger or a typed request. It
// returns the typed text, if any.
func (a *Assistant) waitWake(ctx context.Context) (string, error) {
	if a.deps.Listener == nil {
		log.Info("Waiting for trigger")
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-a.trigger:
			a.tracker.Publish(session.KindWake, "trigger")
			return "", nil
		case text := <-a.typed:
			return text, nil
		}
	}

	log.Info("Listening for wake phrase")

	lctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type heard struct {
		text string
		err  error
	}
	done := make(chan heard, 1)
	go func() {
		text, err := a.deps.Listener.Listen(lctx)
		done <- heard{text, err}
	}()

	select {
	case h := <-done:
		if h.err != nil {
			return "", h.err
		}
		a.tracker.Publish(session.KindWake, h.text)
		return "", nil
	case <-a.trigger:
		cancel()
		<-done
		a.tracker.Publish(session.KindWake, "trigger")
		return "", nil
	case text := <-a.typed:
		cancel()
		<-done
		return text, nil
	}
}

// Once records a clip and handles it: transcribe, then music or reply.
func (a *Assistant) Once(ctx context.Context) (err error) {
	defer a.finish(&err)

	a.enter(session.Recording)

	if a.deps.Cue != nil {
		a.deps.Cue.Chime(ctx)
		a.deps.Cue.Desktop("Doula", "Listening...")
	}

	log.Info("Recording request", "path", a.cfg.ClipPath)
	if err := a.deps.Recorder.Record(ctx, a.cfg.ClipPath); err != nil {
		return fmt.Errorf("record: %w", err)
	}

	a.enter(session.Transcribing)

	text, err := a.deps.Transcriber.TranscribeFile(ctx, a.cfg.ClipPath)
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}
	text = intent.Normalize(text)
	if text == "" {
		return ErrNoSpeech
	}

	log.Info("Transcribed", "text", text)
	a.tracker.Publish(session.KindTranscript, text)

	return a.handle(ctx, text)
}

// Ask handles an already transcribed request.
func (a *Assistant) Ask(ctx context.Context, text string) (err error) {
	defer a.finish(&err)

	text = intent.Normalize(text)
	if text == "" {
		return ErrNoSpeech
	}

	a.enter(session.Transcribing)
	a.tracker.Publish(session.KindTranscript, text)

	return a.handle(ctx, text)
}

func (a *Assistant) handle(ctx context.Context, text string) error {
	if a.cfg.Router.Classify(text) == intent.Music {
		return a.playMusic(ctx)
	}

	a.enter(session.Responding)

	reply, err := a.deps.Responder.Respond(ctx, text, a.cfg.Vitals)
	if err != nil {
		return fmt.Errorf("respond: %w", err)
	}

	log.Info("AI response", "text", reply)
	a.tracker.Publish(session.KindResponse, reply)

	// A direct synthesizer is audible while Synthesize runs.
	if a.cfg.DirectSpeech {
		a.enter(session.Speaking)
	}

	err = a.deps.Synthesizer.Synthesize(ctx, reply, a.cfg.SpeechPath)
	if errors.Is(err, tts.ErrNothingToSay) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}

	if a.cfg.DirectSpeech {
		return nil
	}

	a.enter(session.Speaking)

	a.tracker.Publish(session.KindAudio, a.cfg.SpeechPath)
	if err := a.play(ctx, a.cfg.SpeechPath); err != nil {
		return fmt.Errorf("play response: %w", err)
	}

	log.Info("AI response spoken")
	return nil
}

func (a *Assistant) playMusic(ctx context.Context) error {
	if _, err := os.Stat(a.cfg.MusicPath); a.cfg.MusicPath == "" || err != nil {
		return fmt.Errorf("%w: %s", ErrMusicNotFound, a.cfg.MusicPath)
	}

	a.enter(session.Music)
	log.Info("Playing relaxing music", "path", a.cfg.MusicPath)
	a.tracker.Publish(session.KindAudio, a.cfg.MusicPath)

	if err := a.play(ctx, a.cfg.MusicPath); err != nil {
		return fmt.Errorf("play music: %w", err)
	}
	return nil
}

func (a *Assistant) play(ctx context.Context, path string) error {
	if a.deps.Ducker != nil {
		if err := a.deps.Ducker.Duck(ctx, 0.3, 300*time.Millisecond); err != nil {
			log.Warn("Failed to duck other streams", "err", err)
		}
		defer func() {
			rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := a.deps.Ducker.Restore(rctx, 300*time.Millisecond); err != nil {
				log.Warn("Failed to restore other streams", "err", err)
			}
		}()
	}

	return a.deps.Player.Play(ctx, path)
}

func (a *Assistant) finish(err *error) {
	if *err != nil && !errors.Is(*err, context.Canceled) {
		if errors.Is(*err, ErrNoSpeech) {
			log.Info("No speech detected")
		}
		a.tracker.Fail(*err)
	}
	a.enter(session.Idle)
}

func (a *Assistant) enter(s session.State) {
	if err := a.tracker.Transition(s); err != nil {
		log.Warn("State transition rejected", "err", err)
	}
}
