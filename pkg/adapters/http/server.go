package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nodus-reseau/leadform"
	"github.com/nodus-reseau/leadform/internal/logging"
	"github.com/nodus-reseau/leadform/pkg/domain"
	"github.com/nodus-reseau/leadform/pkg/runner"
	"github.com/nodus-reseau/leadform/pkg/wizard"
)

const maxBodySize = 64 << 10

// Server exposes wizard sessions as a JSON API.
type Server struct {
	Sessions *wizard.Sessions
	Streams  *StreamManager

	logger        *slog.Logger
	gatherer      prometheus.Gatherer
	newID         func() string
	defaultSource string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for rejected and failed requests.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGatherer mounts /metrics over the given registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithIDGenerator replaces the random session ID generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Server) {
		s.newID = fn
	}
}

// WithDefaultSource sets the source recorded when the landing URL has none.
func WithDefaultSource(source string) Option {
	return func(s *Server) {
		s.defaultSource = source
	}
}

// NewServer creates a server over sessions.
func NewServer(sessions *wizard.Sessions, opts ...Option) *Server {
	s := &Server{
		Sessions:      sessions,
		logger:        logging.NewNop(),
		newID:         uuid.NewString,
		defaultSource: domain.DefaultSource,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)
	return s
}

// NewHandler creates the HTTP handler for sessions.
func NewHandler(sessions *wizard.Sessions, opts ...Option) http.Handler {
	return NewServer(sessions, opts...).Handler()
}

// Handler returns the router of the API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Post("/sessions", s.CreateSession)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", s.GetSession)
		r.Delete("/", s.DeleteSession)
		r.Put("/answer", s.Answer)
		r.Post("/advance", s.Advance)
		r.Post("/retreat", s.Retreat)
		r.Post("/jump", s.Jump)
		r.Post("/select", s.Select)
		r.Post("/submit", s.Submit)
		r.Get("/events", s.SubscribeEvents)
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "leadform-http",
		"version":     strings.TrimSpace(leadform.Version),
		"api_version": apiVersion,
	})
}

// CreateSession handles POST /sessions. The landing query carries the source.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	id := s.newID()
	source := domain.SourceFromQuery(r.URL.Query(), s.defaultSource)
	view, err := s.Sessions.Start(r.Context(), id, source)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/sessions/"+id)
	writeJSON(w, http.StatusCreated, view)
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.Sessions.View(r.Context(), chi.URLParam(r, "id"))
	s.respond(w, r, view, err)
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type valueRequest struct {
	Value *string `json:"value"`
}

// Answer handles PUT /sessions/{id}/answer.
func (s *Server) Answer(w http.ResponseWriter, r *http.Request) {
	var body valueRequest
	value, ok := s.decodeValue(w, r, &body, func() *string { return body.Value })
	if !ok {
		return
	}
	view, err := s.Sessions.Answer(r.Context(), chi.URLParam(r, "id"), value)
	s.respond(w, r, view, err)
}

// Advance handles POST /sessions/{id}/advance.
func (s *Server) Advance(w http.ResponseWriter, r *http.Request) {
	view, err := s.Sessions.Advance(r.Context(), chi.URLParam(r, "id"))
	s.respond(w, r, view, err)
}

// Retreat handles POST /sessions/{id}/retreat.
func (s *Server) Retreat(w http.ResponseWriter, r *http.Request) {
	view, err := s.Sessions.Retreat(r.Context(), chi.URLParam(r, "id"))
	s.respond(w, r, view, err)
}

// Jump handles POST /sessions/{id}/jump, the edit links of the recap.
func (s *Server) Jump(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Index *int `json:"index"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	if body.Index == nil {
		writeError(w, http.StatusBadRequest, "missing index")
		return
	}
	view, err := s.Sessions.JumpTo(r.Context(), chi.URLParam(r, "id"), *body.Index)
	s.respond(w, r, view, err)
}

// Select handles POST /sessions/{id}/select.
func (s *Server) Select(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value   *string `json:"value"`
		Advance bool    `json:"advance"`
	}
	value, ok := s.decodeValue(w, r, &body, func() *string { return body.Value })
	if !ok {
		return
	}
	view, err := s.Sessions.Select(r.Context(), chi.URLParam(r, "id"), value, body.Advance)
	s.respond(w, r, view, err)
}

type submitResponse struct {
	Notice domain.Notice `json:"notice"`
	View   wizard.View   `json:"view"`
}

// Submit handles POST /sessions/{id}/submit.
// A transport failure answers 502 with the failure notice; the session stays on the recap.
func (s *Server) Submit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	view, notice, err := s.Sessions.Submit(r.Context(), id)
	if notice.Kind == "" && err != nil {
		s.fail(w, r, err)
		return
	}
	s.broadcast(view)
	status := http.StatusOK
	if notice.Kind == domain.NoticeFailure {
		status = http.StatusBadGateway
		s.logger.Warn("submission failed", "session_id", id, "err", err)
	}
	writeJSON(w, status, submitResponse{Notice: notice, View: view})
}

// SubscribeEvents handles GET /sessions/{id}/events (SSE).
// The current view is sent on connect, then after every change.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	id := chi.URLParam(r, "id")

	ch, cancel := s.Streams.Subscribe(id)
	defer cancel()

	view, err := s.Sessions.View(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	initial, err := json.Marshal(view)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	s.Streams.MarkPhase(id, view.Phase)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	fmt.Fprintf(w, "event: view\ndata: %s\n\n", initial)
	flusher.Flush()
	s.logger.Debug("sse client connected", "session_id", id)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("sse client disconnected", "session_id", id)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: view\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, view wizard.View, err error) {
	if err != nil {
		s.fail(w, r, err)
		return
	}
	// A read streams only when it moved the phase, as at the end of the splash.
	changed := s.Streams.MarkPhase(view.SessionID, view.Phase)
	if r.Method != http.MethodGet || changed {
		s.broadcast(view)
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) broadcast(view wizard.View) {
	if s.Streams.Subscribers(view.SessionID) == 0 {
		return
	}
	s.Streams.MarkPhase(view.SessionID, view.Phase)
	msg, err := json.Marshal(view)
	if err != nil {
		s.logger.Error("encode view for stream", "session_id", view.SessionID, "err", err)
		return
	}
	s.Streams.Broadcast(view.SessionID, msg)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		s.logger.Warn("invalid request body", "path", r.URL.Path, "err", err)
		return false
	}
	return true
}

// decodeValue decodes dst and sanitizes the value field returned by get.
func (s *Server) decodeValue(w http.ResponseWriter, r *http.Request, dst any, get func() *string) (string, bool) {
	if !s.decode(w, r, dst) {
		return "", false
	}
	raw := get()
	if raw == nil {
		writeError(w, http.StatusBadRequest, "missing value")
		return "", false
	}
	clean, err := runner.SanitizeInput(*raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid input: %v", err))
		s.logger.Warn("input rejected", "path", r.URL.Path, "size", len(*raw), "err", err)
		return "", false
	}
	return clean, true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeError(w, status, err.Error())
}

// statusFor maps command errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrLoading),
		errors.Is(err, domain.ErrNotAtRecap),
		errors.Is(err, domain.ErrAlreadySubmitted),
		errors.Is(err, domain.ErrNoCurrentStep):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnknownOption),
		errors.Is(err, domain.ErrNotChoiceStep),
		errors.Is(err, domain.ErrStepOutOfRange),
		errors.Is(err, domain.ErrUnknownField):
		return http.StatusBadRequest
	case errors.Is(err, wizard.ErrNoSubmitter):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
