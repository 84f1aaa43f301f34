package assist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o",
  "choices": [{
    "index": 0,
    "finish_reason": "stop",
    "message": {"role": "assistant", "content": " Breathe in slowly, and let your shoulders soften. "}
  }],
  "usage": {"prompt_tokens": 10, "completion_tokens": 12, "total_tokens": 22}
}`

func newClient(url string) openai.Client {
	return openai.NewClient(
		option.WithAPIKey("sk-test"),
		option.WithBaseURL(url+"/"),
		option.WithMaxRetries(0),
	)
}

func TestUserMessage(t *testing.T) {
	msg := UserMessage(" i feel scared. ", Vitals{HeartRate: 130, StressLevel: 9, Contractions: 5})
	assert.Equal(t,
		"My heart rate is 130 BPM, my stress level is 9/10, and I have 5 contractions per 10 minutes. Also, i feel scared.",
		msg)
}

func TestRespond(t *testing.T) {
	var got map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody))
	}))
	defer srv.Close()

	r := NewResponder(newClient(srv.URL), Options{Model: "gpt-4o", Temperature: 0.7, MaxTokens: 100})

	out, err := r.Respond(context.Background(), "i feel tense", Vitals{HeartRate: 90, StressLevel: 5, Contractions: 3})
	require.NoError(t, err)
	assert.Equal(t, "Breathe in slowly, and let your shoulders soften.", out)

	assert.Equal(t, "gpt-4o", got["model"])
	assert.InDelta(t, 0.7, got["temperature"], 1e-9)
	assert.InDelta(t, 100, got["max_tokens"], 1e-9)

	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)

	system := msgs[0].(map[string]any)
	assert.Equal(t, "system", system["role"])
	assert.Contains(t, system["content"], "Do NOT provide medical advice")

	user := msgs[1].(map[string]any)
	assert.Equal(t, "user", user["role"])
	assert.Contains(t, user["content"], "My heart rate is 90 BPM")
	assert.Contains(t, user["content"], "Also, i feel tense.")
}

func TestRespondErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key","type":"invalid_request_error"}}`, ErrAuth},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down","type":"rate_limit"}}`, ErrRateLimited},
		{"no choices", http.StatusOK, `{"id":"x","object":"chat.completion","created":1,"model":"gpt-4o","choices":[]}`, ErrEmptyResponse},
		{"blank content", http.StatusOK, `{"id":"x","object":"chat.completion","created":1,"model":"gpt-4o","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  "}}]}`, ErrEmptyResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			r := NewResponder(newClient(srv.URL), Options{})
			_, err := r.Respond(context.Background(), "hello", Vitals{})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRespondConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	r := NewResponder(newClient(url), Options{})
	_, err := r.Respond(context.Background(), "hello", Vitals{})
	assert.ErrorIs(t, err, ErrConnection)
}

func TestRespondCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewResponder(newClient("http://127.0.0.1:1"), Options{})
	_, err := r.Respond(ctx, "hello", Vitals{})
	assert.ErrorIs(t, err, context.Canceled)
}
