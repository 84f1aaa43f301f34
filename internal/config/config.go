package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var ErrMissingAPIKey = errors.New("OPENAI_API_KEY environment variable is missing")

type Wake struct {
	ModelDir   string   `yaml:"model_dir"`
	SampleRate int      `yaml:"sample_rate"`
	FrameSize  int      `yaml:"frame_size"`
	Phrases    []string `yaml:"phrases"`
}

type Record struct {
	Mode       string        `yaml:"mode"` // "fixed" or "auto"
	Duration   time.Duration `yaml:"duration"`
	SampleRate int           `yaml:"sample_rate"`
	Output     string        `yaml:"output"`
}

type STT struct {
	ModelPath string `yaml:"model_path"`
	Language  string `yaml:"language"`
	Threads   int    `yaml:"threads"`
}

type Chat struct {
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int64   `yaml:"max_tokens"`
}

type Speech struct {
	Backend string `yaml:"backend"` // "openai" or "espeak"
	Model   string `yaml:"model"`
	Voice   string `yaml:"voice"`
	Output  string `yaml:"output"`
}

type Vitals struct {
	HeartRate    int `yaml:"heart_rate"`
	StressLevel  int `yaml:"stress_level"`
	Contractions int `yaml:"contractions"`
}

type Media struct {
	Music        string   `yaml:"music"`
	MusicPhrases []string `yaml:"music_phrases"`
	Chime        string   `yaml:"chime"`
	Logo         string   `yaml:"logo"`
	Duck         bool     `yaml:"duck"`
}

type Config struct {
	Wake   Wake   `yaml:"wake"`
	Record Record `yaml:"record"`
	STT    STT    `yaml:"stt"`
	Chat   Chat   `yaml:"chat"`
	Speech Speech `yaml:"speech"`
	Vitals Vitals `yaml:"vitals"`
	Media  Media  `yaml:"media"`

	Socket   string `yaml:"socket"`
	HTTPAddr string `yaml:"http_addr"`
	SurveyDB string `yaml:"survey_db"`
	Proxy    string `yaml:"proxy"`

	APIKey string `yaml:"-"`
}

func Default() Config {
	return Config{
		Wake: Wake{
			ModelDir:   "vosk-model-small-en-us-0.15",
			SampleRate: 16000,
			FrameSize:  4000,
			Phrases:    []string{"hey doula", "hey"},
		},
		Record: Record{
			Mode:       "fixed",
			Duration:   10 * time.Second,
			SampleRate: 44100,
			Output:     "user_input.wav",
		},
		STT: STT{
			ModelPath: "models/ggml-base.bin",
			Language:  "auto",
		},
		Chat: Chat{
			Model:       "gpt-4o",
			Temperature: 0.7,
			MaxTokens:   100,
		},
		Speech: Speech{
			Backend: "openai",
			Model:   "tts-1",
			Voice:   "shimmer",
			Output:  "response.mp3",
		},
		Vitals: Vitals{
			HeartRate:    130,
			StressLevel:  9,
			Contractions: 5,
		},
		Media: Media{
			Music: "relaxing_music.mp3",
			MusicPhrases: []string{
				"relax music",
				"i want some relax music",
				"play relaxing music",
			},
			Chime: "beep.mp3",
			Logo:  "logo.jpg",
		},
		Socket:   "/tmp/doula.sock",
		SurveyDB: "questionnaire.db",
	}
}

// Load reads envFile (missing is fine) and the optional YAML file at path over
// Default(). The API key always comes from the environment.
func Load(path, envFile string) (Config, error) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}

	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.APIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if addr := os.Getenv("DOULA_PROXY"); addr != "" {
		cfg.Proxy = addr
	}

	for i, p := range cfg.Wake.Phrases {
		cfg.Wake.Phrases[i] = strings.ToLower(strings.TrimSpace(p))
	}
	for i, p := range cfg.Media.MusicPhrases {
		cfg.Media.MusicPhrases[i] = strings.ToLower(strings.TrimSpace(p))
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if len(c.Wake.Phrases) == 0 {
		return errors.New("no wake phrases configured")
	}
	if c.Wake.SampleRate <= 0 || c.Record.SampleRate <= 0 {
		return errors.New("sample rates must be positive")
	}
	switch c.Record.Mode {
	case "fixed", "auto":
	default:
		return fmt.Errorf("unknown record mode %q", c.Record.Mode)
	}
	if c.Record.Duration <= 0 {
		return errors.New("record duration must be positive")
	}
	switch c.Speech.Backend {
	case "openai", "espeak":
	default:
		return fmt.Errorf("unknown speech backend %q", c.Speech.Backend)
	}
	return nil
}
