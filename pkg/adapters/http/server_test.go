package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/intake/internal/runtime"
	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) *runtime.Engine {
	t.Helper()
	var n int
	return runtime.NewEngine(session.NewManager(memory.NewStore()),
		runtime.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("sess-%d", n)
		}),
	)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestStart(t *testing.T) {
	h := NewHandler(newEngine(t))

	w := do(t, h, http.MethodPost, "/flow/start", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	resp := decode[StartResponse](t, w)
	assert.Equal(t, "sess-1", resp.SessionID)
	assert.Equal(t, "👋 Welcome! Let's get started.\nWhat's your name?", resp.Message)
	assert.Equal(t, domain.StepName, resp.CurrentStep)
	assert.Equal(t, domain.StepEmail, resp.NextStep)
	assert.Equal(t, "Enter at least 2 letters", resp.Metadata["hint"])
}

func TestChat_Flow(t *testing.T) {
	h := NewHandler(newEngine(t))
	do(t, h, http.MethodPost, "/flow/start", "")

	w := do(t, h, http.MethodPost, "/flow/chat/sess-1", `{"message":"A"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[ChatResponse](t, w)
	assert.Equal(t, "sess-1", resp.SessionID)
	assert.Equal(t, "❌ Name must be at least 2 characters • Enter at least 2 letters", resp.Message)
	assert.Equal(t, "name", resp.Metadata["current_step"])
	assert.Equal(t, resp.Message, resp.Metadata["validation_error"])
	assert.Equal(t, 1.0, resp.Metadata["retry_count"])
	assert.Equal(t, false, resp.Metadata["is_complete"])
	assert.Nil(t, resp.Metadata["summary"])

	for _, msg := range []string{"John", "john@example.com", "9876543210"} {
		w = do(t, h, http.MethodPost, "/flow/chat/sess-1", fmt.Sprintf(`{"message":%q}`, msg))
		require.Equal(t, http.StatusOK, w.Code)
	}
	resp = decode[ChatResponse](t, w)
	assert.Equal(t, []any{"consulting", "development", "support", "training", "maintenance"}, resp.Metadata["options"])

	w = do(t, h, http.MethodPost, "/flow/chat/sess-1", `{"message":"support"}`)
	resp = decode[ChatResponse](t, w)
	assert.Equal(t, true, resp.Metadata["is_complete"])
	assert.Equal(t, true, resp.Metadata["session_completed"])
	assert.Nil(t, resp.Metadata["next_step"])
	summary, ok := resp.Metadata["summary"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "John", summary["name"])
	assert.Equal(t, "+91 98765 43210", summary["phone"])
}

func TestChat_EmptyBodyRereads(t *testing.T) {
	h := NewHandler(newEngine(t))

	w := do(t, h, http.MethodPost, "/flow/chat/client-id", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[ChatResponse](t, w)
	assert.Equal(t, "client-id", resp.SessionID)
	assert.Equal(t, "name", resp.Metadata["current_step"])
}

func TestChat_BadInput(t *testing.T) {
	h := NewHandler(newEngine(t))

	w := do(t, h, http.MethodPost, "/flow/chat/s1", `{"message":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	big := strings.Repeat("a", 5000)
	w = do(t, h, http.MethodPost, "/flow/chat/s1", fmt.Sprintf(`{"message":%q}`, big))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid input")
}

func TestChat_BodyTooLarge(t *testing.T) {
	eng := newEngine(t)
	h := NewHandler(eng)

	huge := strings.Repeat("a", 64*1024)
	w := do(t, h, http.MethodPost, "/flow/chat/big", fmt.Sprintf(`{"message":%q}`, huge))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	_, err := eng.Inspect(context.Background(), "big")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound, "an oversized body never reaches the engine")
}

type failingEngine struct{}

func (failingEngine) CreateSession(ctx context.Context) (string, error) {
	return "", errors.New("store down")
}
func (failingEngine) ProcessTurn(ctx context.Context, id, input string) (*domain.Result, error) {
	return nil, errors.New("store down")
}
func (failingEngine) Inspect(ctx context.Context, id string) (*domain.Session, error) {
	return nil, errors.New("store down")
}

func TestEngineFailures(t *testing.T) {
	h := NewHandler(failingEngine{})

	w := do(t, h, http.MethodPost, "/flow/chat/s1", `{"message":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Flow chat error: store down")

	w = do(t, h, http.MethodPost, "/flow/start", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = do(t, h, http.MethodGet, "/flow/sessions/s1", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetSession(t *testing.T) {
	h := NewHandler(newEngine(t))
	do(t, h, http.MethodPost, "/flow/start", "")
	do(t, h, http.MethodPost, "/flow/chat/sess-1", `{"message":"Ada"}`)

	w := do(t, h, http.MethodGet, "/flow/sessions/sess-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	s := decode[domain.Session](t, w)
	assert.Equal(t, domain.StepEmail, s.Step)
	assert.Equal(t, "Ada", s.Fields.Name)

	w = do(t, h, http.MethodGet, "/flow/sessions/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "intake_turns_total 1")
	})
	h := NewHandler(newEngine(t), WithVersion("1.2.3\n"), WithMetricsHandler(metrics))

	w := do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	health := decode[map[string]string](t, w)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "1.2.3", health["version"])

	w = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, "intake_turns_total 1", w.Body.String())

	w = do(t, NewHandler(newEngine(t)), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORS(t *testing.T) {
	h := NewHandler(newEngine(t))
	w := do(t, h, http.MethodOptions, "/flow/start", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	restricted := NewHandler(newEngine(t), WithCORSOrigins("https://app.example.com"))
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	restricted.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	restricted.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSubscribeEvents(t *testing.T) {
	srv := httptest.NewServer(NewHandler(newEngine(t)))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/flow/events/live", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: ping", lines.Text())

	chat, err := http.Post(srv.URL+"/flow/chat/live", "application/json", strings.NewReader(`{"message":""}`))
	require.NoError(t, err)
	chat.Body.Close()

	var data string
	for lines.Scan() {
		if strings.HasPrefix(lines.Text(), "data: {") {
			data = strings.TrimPrefix(lines.Text(), "data: ")
			break
		}
	}
	require.NotEmpty(t, data)
	var event ChatResponse
	require.NoError(t, json.Unmarshal([]byte(data), &event))
	assert.Equal(t, "live", event.SessionID)
	assert.Contains(t, event.Message, "What's your name?")
}

func TestStreamManager(t *testing.T) {
	sm := NewStreamManager(slogDiscard())
	ch, cancel := sm.Subscribe("s1")
	assert.Equal(t, 1, sm.Subscribers("s1"))

	for i := 0; i < 15; i++ {
		sm.Broadcast("s1", "msg") // overflow is dropped, not blocking
	}
	assert.Len(t, ch, 10)

	cancel()
	cancel()
	assert.Zero(t, sm.Subscribers("s1"))
	sm.Broadcast("s1", "after")
}
