package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	cli "github.com/spf13/pflag"

	log "log/slog"

	"doula/internal/app"
	"doula/internal/config"
	"doula/internal/models"
	"doula/internal/pipeline"
	"doula/internal/playback"
	"doula/internal/session"
	"doula/pkg/stt"
)

func main() {
	configFile := cli.StringP("config", "c", "", "YAML config file")
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	audioFile := cli.StringP("audio", "a", "", "Audio file to answer (wav, mp3 or ogg)")
	text := cli.StringP("text", "t", "", "Typed question to answer")
	noPlay := cli.Bool("no-play", false, "Write the reply audio but do not play it")
	cli.Parse()

	app.SetupLogging(os.Stderr, *logLevel)

	if (*audioFile == "") == (*text == "") {
		fmt.Fprintln(os.Stderr, "exactly one of --audio or --text is required")
		cli.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configFile, *envFile)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("Invalid config", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, *audioFile, *text, !*noPlay); err != nil {
		log.Error("Failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, audioFile, text string, play bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, _, err := app.OpenAI(cfg)
	if err != nil {
		return err
	}

	if audioFile != "" {
		url := ""
		if filepath.Base(cfg.STT.ModelPath) == "ggml-base.bin" {
			url = models.WhisperBaseURL
		}
		modelPath, err := models.Ensure(ctx, http.DefaultClient, cfg.STT.ModelPath, url)
		if err != nil {
			return fmt.Errorf("whisper model: %w", err)
		}

		tr, err := stt.NewTranscriber(modelPath, stt.Options{
			Language: cfg.STT.Language,
			Threads:  cfg.STT.Threads,
		})
		if err != nil {
			return fmt.Errorf("init whisper: %w", err)
		}
		defer tr.Close()

		text, err = tr.TranscribeFile(ctx, audioFile)
		if err != nil {
			return fmt.Errorf("transcribe: %w", err)
		}
		fmt.Println("You said:", text)
	}

	synth, direct, err := app.Speech(cfg, client)
	if err != nil {
		return err
	}

	deps := pipeline.Deps{
		Responder:   app.Responder(cfg, client),
		Synthesizer: synth,
		Player:      playback.NewPlayer(44100),
	}
	if !play {
		deps.Player = skipPlayer{}
	}

	tracker := session.NewTracker(0)
	events, cancel := tracker.Subscribe(16)

	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for ev := range events {
			switch ev.Kind {
			case session.KindResponse:
				fmt.Println("AI Response:", ev.Text)
			case session.KindAudio:
				if !play {
					fmt.Println("Audio written to", ev.Text)
				}
			}
		}
	}()

	err = pipeline.New(app.AssistantConfig(cfg, direct), deps, tracker).Ask(ctx, text)
	cancel()
	<-printed
	return err
}

type skipPlayer struct{}

func (skipPlayer) Play(context.Context, string) error { return nil }
