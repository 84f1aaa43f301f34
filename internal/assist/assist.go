package assist

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	openai "github.com/openai/openai-go/v3"
)

var (
	ErrAuth          = errors.New("API authentication failed, check your API key")
	ErrRateLimited   = errors.New("rate limit exceeded, try again later")
	ErrConnection    = errors.New("connection error, check your internet connection")
	ErrEmptyResponse = errors.New("empty response")
)

const SystemPrompt = `
You are a calming birth assistant AI designed to provide emotional and mental support during childbirth.

- Your focus is on calming techniques, relaxation, and mindfulness.
- Do NOT provide medical advice or diagnose conditions.
- DO NOT mention labor status, medical risks, or suggest medical actions.
- Keep responses concise and within 30 seconds of speech (~100 tokens).
- If a user expresses stress, anxiety, or discomfort, respond with soothing breathing exercises, positive affirmations, and relaxation techniques.
- Encourage the user to focus on deep breaths, softening their body, and maintaining a calm state of mind.
- If a user asks medical-related questions (e.g., "Is my baby okay?"), gently redirect them to a healthcare provider and reinforce calmness and reassurance.
`

type Vitals struct {
	HeartRate    int
	StressLevel  int
	Contractions int
}

type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int64
}

type Responder struct {
	client openai.Client
	opt    Options
}

func NewResponder(client openai.Client, opt Options) *Responder {
	if opt.Model == "" {
		opt.Model = string(openai.ChatModelGPT4o)
	}
	if opt.MaxTokens <= 0 {
		opt.MaxTokens = 100
	}
	return &Responder{client: client, opt: opt}
}

// UserMessage folds the vitals and the transcript into a single user turn.
func UserMessage(text string, v Vitals) string {
	return fmt.Sprintf(
		"My heart rate is %d BPM, my stress level is %d/10, and I have %d contractions per 10 minutes. Also, %s.",
		v.HeartRate, v.StressLevel, v.Contractions, strings.TrimRight(strings.TrimSpace(text), "."),
	)
}

func (r *Responder) Respond(ctx context.Context, text string, v Vitals) (string, error) {
	resp, err := r.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemPrompt),
			openai.UserMessage(UserMessage(text, v)),
		},
		Model:       openai.ChatModel(r.opt.Model),
		Temperature: openai.Float(r.opt.Temperature),
		MaxTokens:   openai.Int(r.opt.MaxTokens),
	})
	if err != nil {
		return "", classify(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrEmptyResponse)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty message content", ErrEmptyResponse)
	}

	log.Debug("Chat completion", "model", resp.Model, "tokens", resp.Usage.TotalTokens)

	return content, nil
}

func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrAuth, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return fmt.Errorf("chat completion: %w", err)
	}

	var (
		urlErr *url.Error
		netErr net.Error
	)
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}

	return fmt.Errorf("chat completion: %w", err)
}
