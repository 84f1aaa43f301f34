package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doula/internal/session"
	"doula/internal/survey"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type memStore struct {
	mu    sync.Mutex
	saved []survey.Response
	err   error
}

func (m *memStore) Save(_ context.Context, r survey.Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, r)
	return nil
}

func (m *memStore) List(context.Context, int) ([]survey.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]survey.Response(nil), m.saved...), m.err
}

func (m *memStore) Get(_ context.Context, id string) (survey.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return survey.Response{}, m.err
	}
	for _, r := range m.saved {
		if r.ID == id {
			return r, nil
		}
	}
	return survey.Response{}, survey.ErrNotFound
}

func do(h http.Handler, method, path string, body url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(body.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestQuestionnaireForm(t *testing.T) {
	s := New(Options{}, &memStore{}, nil, nil)

	w := do(s.Handler(), http.MethodGet, "/questionnaire", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "AI Doula Personalization Questionnaire")
	assert.Contains(t, body, "7. Additional Customization")
	assert.Contains(t, body, `name="tone"`)
	assert.Contains(t, body, `data-show-if="language"`)
	assert.Contains(t, body, "Logo image not found!")
	assert.NotContains(t, body, survey.Thanks)
}

func TestQuestionnaireLogo(t *testing.T) {
	logo := filepath.Join(t.TempDir(), "logo.png")
	require.NoError(t, os.WriteFile(logo, []byte("\x89PNG\r\n\x1a\n"), 0o644))

	s := New(Options{LogoPath: logo}, &memStore{}, nil, nil)
	w := do(s.Handler(), http.MethodGet, "/questionnaire", nil)

	assert.Contains(t, w.Body.String(), "data:image/png;base64,iVBORw0KGgo=")
	assert.NotContains(t, w.Body.String(), "Logo image not found!")
}

func TestQuestionnaireSubmit(t *testing.T) {
	store := &memStore{}
	s := New(Options{}, store, nil, nil)

	w := do(s.Handler(), http.MethodPost, "/questionnaire", url.Values{
		"preferred_name": {"Sam"},
		"language":       {"English", "Spanish"},
		"tone":           {"Warm and gentle"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), survey.Thanks)

	require.Len(t, store.saved, 1)
	assert.Equal(t, []string{"English", "Spanish"}, store.saved[0].Answers["language"])
	assert.NotEmpty(t, store.saved[0].ID)

	w = do(s.Handler(), http.MethodGet, "/api/responses", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list []survey.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Sam", list[0].Answers.Get("preferred_name"))

	w = do(s.Handler(), http.MethodGet, "/api/responses/"+list[0].ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var one survey.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &one))
	assert.Equal(t, list[0].ID, one.ID)

	w = do(s.Handler(), http.MethodGet, "/api/responses/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQuestionnaireInvalid(t *testing.T) {
	store := &memStore{}
	s := New(Options{}, store, nil, nil)

	w := do(s.Handler(), http.MethodPost, "/questionnaire", url.Values{
		"tone":           {"Sarcastic"},
		"preferred_name": {"Sam"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown choice")
	assert.Contains(t, w.Body.String(), `value="Sam"`)
	assert.Empty(t, store.saved)
}

func TestQuestionnaireStoreFailure(t *testing.T) {
	s := New(Options{}, &memStore{err: errors.New("disk full")}, nil, nil)

	w := do(s.Handler(), http.MethodPost, "/questionnaire", url.Values{"tone": {"Calm and neutral"}})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), survey.Thanks)

	w = do(s.Handler(), http.MethodGet, "/api/responses", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestEmptyResponsesIsArray(t *testing.T) {
	s := New(Options{}, &memStore{}, nil, nil)
	w := do(s.Handler(), http.MethodGet, "/api/responses", nil)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestStandaloneRoutes(t *testing.T) {
	s := New(Options{}, &memStore{}, nil, nil)

	w := do(s.Handler(), http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/questionnaire", w.Header().Get("Location"))

	assert.Equal(t, http.StatusNotFound, do(s.Handler(), http.MethodGet, "/ws", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(s.Handler(), http.MethodPost, "/api/trigger", nil).Code)

	w = do(s.Handler(), http.MethodGet, "/api/health", nil)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMedia(t *testing.T) {
	dir := t.TempDir()
	speech := filepath.Join(dir, "response.mp3")
	require.NoError(t, os.WriteFile(speech, []byte("ID3fake"), 0o644))

	s := New(Options{Media: map[string]string{
		"response.mp3":       speech,
		"relaxing_music.mp3": filepath.Join(dir, "missing.mp3"),
	}}, &memStore{}, nil, nil)

	w := do(s.Handler(), http.MethodGet, "/media/response.mp3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ID3fake", w.Body.String())
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	assert.Equal(t, http.StatusNotFound, do(s.Handler(), http.MethodGet, "/media/relaxing_music.mp3", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(s.Handler(), http.MethodGet, "/media/passwd", nil).Code)
}

func TestTriggerAndHealth(t *testing.T) {
	tracker := session.NewTracker(10)
	triggers := 0
	s := New(Options{}, &memStore{}, tracker, func() bool {
		triggers++
		return true
	})

	w := do(s.Handler(), http.MethodPost, "/api/trigger", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, triggers)

	require.NoError(t, tracker.Transition(session.Recording))

	w = do(s.Handler(), http.MethodPost, "/api/trigger", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 1, triggers)

	w = do(s.Handler(), http.MethodGet, "/api/health", nil)
	var health struct {
		Status  string           `json:"status"`
		Session session.Snapshot `json:"session"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, session.Recording, health.Session.State)
	assert.True(t, health.Session.Active)

	w = do(s.Handler(), http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `<strong id="state">recording</strong>`)
	assert.Contains(t, w.Body.String(), `id="trigger"`)
	assert.Contains(t, w.Body.String(), `player.src = "/media/"`)
}

func TestWebsocketEvents(t *testing.T) {
	tracker := session.NewTracker(10)
	s := New(Options{}, &memStore{}, tracker, nil)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn, _, err := ws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var ev session.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, session.KindState, ev.Kind)
	assert.Equal(t, session.Idle, ev.State)

	// subscription happens before the hello frame, so this is not lost
	tracker.Publish(session.KindTranscript, "i'm scared")

	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, session.KindTranscript, ev.Kind)
	assert.Equal(t, "i'm scared", ev.Text)
}
