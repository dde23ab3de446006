// Package http exposes the flow engine over HTTP with go-chi.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/aretw0/intake/pkg/sanitizer"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// StartResponse is returned by POST /flow/start.
type StartResponse struct {
	SessionID   string         `json:"session_id"`
	Message     string         `json:"message"`
	CurrentStep domain.Step    `json:"current_step"`
	NextStep    domain.Step    `json:"next_step,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// ChatRequest is the body of POST /flow/chat/{session_id}.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is returned by POST /flow/chat/{session_id}. Metadata carries
// the flattened Result next to the engine's own metadata.
type ChatResponse struct {
	Message   string         `json:"message"`
	SessionID string         `json:"session_id"`
	Metadata  map[string]any `json:"metadata"`
}

// Server serves the flow endpoints.
type Server struct {
	Engine  ports.FlowEngine
	Streams *StreamManager
	Version string
	logger  *slog.Logger
}

type options struct {
	logger  *slog.Logger
	metrics http.Handler
	origins []string
	version string
}

// Option configures the handler.
type Option func(*options)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetricsHandler mounts h at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(o *options) {
		o.metrics = h
	}
}

// WithCORSOrigins restricts the allowed origins. "*" allows any.
func WithCORSOrigins(origins ...string) Option {
	return func(o *options) {
		if len(origins) > 0 {
			o.origins = origins
		}
	}
}

// WithVersion sets the version reported by GET /health.
func WithVersion(v string) Option {
	return func(o *options) {
		o.version = strings.TrimSpace(v)
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine ports.FlowEngine, opts ...Option) http.Handler {
	o := &options{
		logger:  logging.NewNop(),
		origins: []string{"*"},
		version: "dev",
	}
	for _, opt := range opts {
		opt(o)
	}

	server := &Server{
		Engine:  engine,
		Streams: NewStreamManager(o.logger),
		Version: o.version,
		logger:  o.logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors(o.origins))

	r.Get("/health", server.GetHealth)
	if o.metrics != nil {
		r.Method(http.MethodGet, "/metrics", o.metrics)
	}
	r.Route("/flow", func(r chi.Router) {
		r.Post("/start", server.Start)
		r.Post("/chat/{session_id}", server.Chat)
		r.Get("/sessions/{session_id}", server.GetSession)
		r.Get("/events/{session_id}", server.SubscribeEvents)
	})
	return r
}

func cors(origins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case slices.Contains(origins, "*"):
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin != "" && slices.Contains(origins, origin):
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}

// Start handles POST /flow/start.
func (s *Server) Start(w http.ResponseWriter, r *http.Request) {
	id, err := s.Engine.CreateSession(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Flow start error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Start failed", "err", err)
		return
	}
	res, err := s.Engine.ProcessTurn(r.Context(), id, "")
	if err != nil {
		http.Error(w, fmt.Sprintf("Flow start error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Start failed", "session_id", id, "err", err)
		return
	}

	s.writeJSON(w, http.StatusOK, StartResponse{
		SessionID:   id,
		Message:     res.Message,
		CurrentStep: res.CurrentStep,
		NextStep:    res.NextStep,
		Metadata:    res.Metadata,
	})
}

// Chat handles POST /flow/chat/{session_id}.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize())

	var body ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			s.logger.Warn("Chat: Request body too large", "limit", tooLarge.Limit)
			return
		}
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Chat: Invalid request body", "err", err)
		return
	}

	input, err := sanitizer.CheckInput(body.Message)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid input: %v", err), http.StatusBadRequest)
		s.logger.Warn("Chat: Input rejected", "err", err, "size", len(body.Message))
		return
	}

	res, err := s.Engine.ProcessTurn(r.Context(), sessionID, input)
	if err != nil {
		http.Error(w, fmt.Sprintf("Flow chat error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Chat failed", "session_id", sessionID, "err", err)
		return
	}

	resp := ChatResponse{
		Message:   res.Message,
		SessionID: sessionID,
		Metadata:  flatten(res),
	}
	if payload, err := json.Marshal(resp); err == nil {
		s.Streams.Broadcast(sessionID, string(payload))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// maxBodySize leaves room for JSON escaping and the envelope around a
// message of the largest accepted size.
func maxBodySize() int64 {
	return int64(2*sanitizer.MaxInputSize() + 1024)
}

// flatten merges the Result fields into its metadata, engine metadata last.
func flatten(res *domain.Result) map[string]any {
	m := map[string]any{
		"current_step":     res.CurrentStep,
		"next_step":        nullable(string(res.NextStep)),
		"validation_error": nullable(res.ValidationError),
		"summary":          res.Summary,
		"is_complete":      res.IsComplete,
	}
	for k, v := range res.Metadata {
		m[k] = v
	}
	return m
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// GetSession handles GET /flow/sessions/{session_id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	sess, err := s.Engine.Inspect(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("Inspect error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Inspect failed", "session_id", sessionID, "err", err)
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"charset": "utf-8",
		"version": s.Version,
	})
}

// SubscribeEvents handles GET /flow/events/{session_id} (SSE). Each chat turn
// on the session is pushed as a "turn" event carrying the ChatResponse.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}
	sessionID := chi.URLParam(r, "session_id")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(sessionID)
	defer cancel()
	s.logger.Info("SSE: Subscribing to session updates", "session_id", sessionID)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE client disconnected", "session_id", sessionID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: turn\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
