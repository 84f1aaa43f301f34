package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	cli "github.com/spf13/pflag"

	log "log/slog"

	"doula/internal/app"
	"doula/internal/audio"
	"doula/internal/audio/mic"
	"doula/internal/config"
	"doula/internal/duck"
	"doula/internal/ipc"
	"doula/internal/models"
	"doula/internal/notify"
	"doula/internal/pipeline"
	"doula/internal/playback"
	"doula/internal/session"
	"doula/internal/survey"
	"doula/internal/wake"
	"doula/internal/web"
	"doula/pkg/kaldi"
	"doula/pkg/stt"
)

func main() {
	configFile := cli.StringP("config", "c", "", "YAML config file")
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	httpAddr := cli.String("http", "", "Serve the web page on this address (overrides config)")
	noWake := cli.Bool("no-wake", false, "Only start on trigger, do not listen for the wake phrase")
	desktop := cli.Bool("desktop", true, "Show a desktop notification when listening")
	cli.Parse()

	app.SetupLogging(os.Stdout, *logLevel)
	log.Info("Booting up")

	cfg, err := config.Load(*configFile, *envFile)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	if *httpAddr != "" {
		cfg.HTTPAddr = *httpAddr
	}
	if err := cfg.Validate(); err != nil {
		log.Error("Invalid config", "err", err)
		os.Exit(1)
	}

	log.Debug("Loaded config")

	if err := run(cfg, !*noWake, *desktop); err != nil {
		log.Error("Daemon stopped", "err", err)
		os.Exit(1)
	}
	log.Info("Bye")
}

func run(cfg config.Config, listen, desktop bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, _, err := app.OpenAI(cfg)
	if err != nil {
		return err
	}

	if err := mic.Init(); err != nil {
		return fmt.Errorf("init audio: %w", err)
	}
	defer mic.Terminate()

	log.Debug("Loaded audio")

	var detector pipeline.Listener
	if listen {
		rec, err := kaldi.Open(cfg.Wake.ModelDir, cfg.Wake.SampleRate)
		if err != nil {
			return err
		}
		defer rec.Close()

		stream, err := mic.OpenStream(cfg.Wake.SampleRate, cfg.Wake.FrameSize, audio.NewQueue(64))
		if err != nil {
			return fmt.Errorf("open wake stream: %w", err)
		}
		defer stream.Close()

		detector = wake.NewDetector(stream, rec, wake.NewMatcher(cfg.Wake.Phrases...))
		log.Debug("Loaded wake detector", "phrases", cfg.Wake.Phrases)
	}

	url := ""
	if filepath.Base(cfg.STT.ModelPath) == "ggml-base.bin" {
		url = models.WhisperBaseURL
	}
	modelPath, err := models.Ensure(ctx, http.DefaultClient, cfg.STT.ModelPath, url)
	if err != nil {
		return fmt.Errorf("whisper model: %w", err)
	}

	transcriber, err := stt.NewTranscriber(modelPath, stt.Options{
		Language: cfg.STT.Language,
		Threads:  cfg.STT.Threads,
	})
	if err != nil {
		return fmt.Errorf("init whisper: %w", err)
	}
	defer transcriber.Close()

	log.Debug("Loaded whisper")

	synth, direct, err := app.Speech(cfg, client)
	if err != nil {
		return err
	}

	player := playback.NewPlayer(44100)
	deps := pipeline.Deps{
		Recorder: mic.NewRecorder(mic.RecorderConfig{
			SampleRate: cfg.Record.SampleRate,
			Duration:   cfg.Record.Duration,
			Auto:       cfg.Record.Mode == "auto",
		}),
		Transcriber: transcriber,
		Responder:   app.Responder(cfg, client),
		Synthesizer: synth,
		Player:      player,
		Cue:         notify.New(player, cfg.Media.Chime, desktop),
	}
	if detector != nil {
		deps.Listener = detector
	}
	if cfg.Media.Duck {
		deps.Ducker = duck.New(nil, []string{"doula", "ALSA plug-in [doula-daemon]"}, 10)
	}

	tracker := session.NewTracker(200)
	assistant := pipeline.New(app.AssistantConfig(cfg, direct), deps, tracker)

	srv, err := ipc.Listen(cfg.Socket, pipeline.Control(assistant))
	if err != nil {
		return fmt.Errorf("ipc server: %w", err)
	}
	defer srv.Close()

	errCh := make(chan error, 2)

	if cfg.HTTPAddr != "" {
		store, err := survey.Open(cfg.SurveyDB)
		if err != nil {
			return fmt.Errorf("questionnaire store: %w", err)
		}
		defer store.Close()

		gin.SetMode(gin.ReleaseMode)
		w := web.New(web.Options{
			Addr:     cfg.HTTPAddr,
			LogoPath: cfg.Media.Logo,
			Media:    app.Media(cfg),
		}, store, tracker, assistant.Trigger)

		go func() { errCh <- w.Run(ctx) }()
	}

	log.Info("Boot up - successful", "socket", srv.Path(), "http", cfg.HTTPAddr)

	go func() { errCh <- assistant.Run(ctx) }()

	err = <-errCh
	stop()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
