// Package app holds the wiring shared by the doula binaries.
package app

import (
	"fmt"
	"io"
	log "log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/lmittmann/tint"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"doula/internal/assist"
	"doula/internal/config"
	"doula/internal/intent"
	"doula/internal/pipeline"
	"doula/internal/proxy"
	"doula/internal/tts"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func ParseLevel(s string) (log.Level, bool) {
	l, ok := logLevelMap[strings.ToLower(s)]
	if !ok {
		return log.LevelInfo, false
	}
	return l, true
}

// SetupLogging installs a tint handler as the default slog logger.
func SetupLogging(w io.Writer, level string) {
	l, ok := ParseLevel(level)
	log.SetDefault(log.New(tint.NewHandler(w, &tint.Options{
		Level: l,
	})))
	if !ok {
		log.Warn("Unknown log level, using info", "level", level)
	}
}

// OpenAI builds the API client, going through the SOCKS proxy when one is
// configured. The returned http.Client is the one the API uses.
func OpenAI(cfg config.Config, opts ...option.RequestOption) (openai.Client, *http.Client, error) {
	httpClient, err := proxy.NewClient(cfg.Proxy)
	if err != nil {
		return openai.Client{}, nil, fmt.Errorf("proxy %s: %w", cfg.Proxy, err)
	}
	if cfg.Proxy != "" {
		log.Debug("Using socks proxy", "proxy", cfg.Proxy)
	}

	opts = append([]option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
	}, opts...)

	return openai.NewClient(opts...), httpClient, nil
}

func Responder(cfg config.Config, client openai.Client) *assist.Responder {
	return assist.NewResponder(client, assist.Options{
		Model:       cfg.Chat.Model,
		Temperature: cfg.Chat.Temperature,
		MaxTokens:   cfg.Chat.MaxTokens,
	})
}

// Speech returns the configured synthesizer and whether it plays audio
// itself.
func Speech(cfg config.Config, client openai.Client) (pipeline.Synthesizer, bool, error) {
	switch cfg.Speech.Backend {
	case "", "openai":
		return tts.NewOpenAI(client, tts.Options{
			Model: cfg.Speech.Model,
			Voice: cfg.Speech.Voice,
		}), false, nil
	case "espeak":
		if !tts.EspeakAvailable {
			return nil, false, fmt.Errorf("speech backend espeak requires a build with -tags espeak")
		}
		e := &tts.Espeak{Language: "en"}
		return e, e.Direct(), nil
	}
	return nil, false, fmt.Errorf("unknown speech backend %q", cfg.Speech.Backend)
}

func AssistantConfig(cfg config.Config, direct bool) pipeline.Config {
	return pipeline.Config{
		ClipPath:   cfg.Record.Output,
		SpeechPath: cfg.Speech.Output,
		MusicPath:  cfg.Media.Music,
		Vitals: assist.Vitals{
			HeartRate:    cfg.Vitals.HeartRate,
			StressLevel:  cfg.Vitals.StressLevel,
			Contractions: cfg.Vitals.Contractions,
		},
		Router:       intent.NewRouter(cfg.Media.MusicPhrases...),
		DirectSpeech: direct,
	}
}

// Media lists the files the web surface may serve under /media/.
func Media(cfg config.Config) map[string]string {
	m := make(map[string]string)
	for _, p := range []string{cfg.Speech.Output, cfg.Media.Music} {
		if p != "" {
			m[filepath.Base(p)] = p
		}
	}
	return m
}
