package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/xstack"
	"github.com/aretw0/xstack/internal/dto"
	"github.com/aretw0/xstack/internal/logging"
	"github.com/aretw0/xstack/pkg/domain"
	"github.com/aretw0/xstack/pkg/manifest"
	"github.com/aretw0/xstack/pkg/ports"
	"github.com/aretw0/xstack/pkg/signal"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxBodyBytes bounds POST /runs payloads.
const maxBodyBytes = 1 << 20

// Catalog resolves processes and lists what it can resolve.
type Catalog interface {
	ports.Resolver
	IDs() []string
	Describe(id string) (string, bool)
}

// Server serves the xstack API.
type Server struct {
	Catalog   Catalog
	History   ports.RunHistory
	Bus       ports.Bus
	Streams   *StreamManager
	Metrics   http.Handler
	Logger    *slog.Logger
	StackOpts []xstack.Option

	// RunTimeout bounds each POST /runs execution (0 = no limit).
	RunTimeout time.Duration
}

// ServerOption configures the Server.
type ServerOption func(*Server)

// WithHistory records runs so that GET /runs/{id} can serve them.
func WithHistory(h ports.RunHistory) ServerOption {
	return func(s *Server) {
		s.History = h
	}
}

// WithBus makes every stack built by the server publish on bus.
// Observers attached to it (metrics, publishers) see all runs.
func WithBus(bus ports.Bus) ServerOption {
	return func(s *Server) {
		s.Bus = bus
	}
}

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(s *Server) {
		s.Metrics = h
	}
}

// WithLogger sets the logger for request handling and for the stacks built by the server.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.Logger = logger
	}
}

// WithStackOptions appends options applied to every stack built by the server.
func WithStackOptions(opts ...xstack.Option) ServerOption {
	return func(s *Server) {
		s.StackOpts = append(s.StackOpts, opts...)
	}
}

// WithRunTimeout cancels the context handed to processes once d has elapsed.
func WithRunTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.RunTimeout = d
	}
}

// NewServer creates a server and subscribes its event stream to the bus.
func NewServer(catalog Catalog, opts ...ServerOption) *Server {
	s := &Server{Catalog: catalog}
	for _, opt := range opts {
		opt(s)
	}
	if s.Logger == nil {
		s.Logger = logging.NewNop()
	}
	if s.Bus == nil {
		s.Bus = signal.NewBus(signal.WithLogger(s.Logger))
	}
	s.Streams = NewStreamManager(s.Logger)
	s.Bus.Subscribe(domain.EventAny, s.forward)
	return s
}

// NewHandler creates a new HTTP handler backed by catalog.
func NewHandler(catalog Catalog, opts ...ServerOption) http.Handler {
	return NewServer(catalog, opts...).Routes()
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/processes", s.ListProcesses)
	r.Post("/runs", s.CreateRun)
	r.Get("/runs", s.ListRuns)
	r.Get("/runs/{id}", s.GetRun)
	r.Get("/events", s.SubscribeEvents)
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}
	return r
}

func (s *Server) forward(_ context.Context, e domain.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event for stream: %w", err)
	}
	s.Streams.Broadcast(e.RunID, string(data))
	return nil
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "xstack",
		"version": strings.TrimSpace(xstack.Version),
	})
}

// ListProcesses handles the GET /processes request.
func (s *Server) ListProcesses(w http.ResponseWriter, r *http.Request) {
	ids := s.Catalog.IDs()
	out := make([]dto.ProcessInfo, 0, len(ids))
	for _, id := range ids {
		desc, _ := s.Catalog.Describe(id)
		out = append(out, dto.ProcessInfo{ID: id, Description: desc})
	}
	s.writeJSON(w, http.StatusOK, out)
}

// RunRequest is the body of POST /runs.
type RunRequest struct {
	Manifest manifest.Manifest `json:"manifest"`
	// Context is merged over the manifest's seed context.
	Context map[string]any `json:"context,omitempty"`
}

// CreateRun handles the POST /runs request.
// The run executes synchronously; the response carries its outcome even when it rolled back.
func (s *Server) CreateRun(w http.ResponseWriter, r *http.Request) {
	var body RunRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		s.Logger.Warn("CreateRun: invalid request body", "err", err)
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	opts := []xstack.Option{xstack.WithBus(s.Bus), xstack.WithLogger(s.Logger)}
	if s.History != nil {
		opts = append(opts, xstack.WithRunHistory(s.History))
	}
	opts = append(opts, s.StackOpts...)

	stack, ec, err := body.Manifest.Build(s.Catalog, opts...)
	if err != nil {
		s.Logger.Warn("CreateRun: manifest rejected", "err", err)
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	for k, v := range body.Context {
		ec.Set(k, v)
	}

	// Client disconnects do not cancel the run; the server-side timeout does.
	ctx := context.WithoutCancel(r.Context())
	if s.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.RunTimeout)
		defer cancel()
	}
	result, err := stack.Run(ctx, ec)
	if err != nil {
		s.Logger.Error("CreateRun: run rejected", "err", err)
		s.writeError(w, http.StatusConflict, err)
		return
	}

	s.Logger.Info("run finished", "run_id", result.RunID, "stack", result.Stack, "status", result.Status)
	s.writeJSON(w, http.StatusCreated, dto.FromResult(result))
}

// ListRuns handles the GET /runs request.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		s.writeJSON(w, http.StatusOK, []string{})
		return
	}
	ids, err := s.History.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ids)
}

// GetRun handles the GET /runs/{id} request.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.History == nil {
		s.writeError(w, http.StatusNotFound, ports.ErrRunNotFound)
		return
	}
	result, err := s.History.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ports.ErrRunNotFound) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, dto.FromResult(result))
}

// SubscribeEvents handles the GET /events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.Logger.Error("SubscribeEvents: streaming not supported")
		return
	}

	topic := r.URL.Query().Get("run_id")
	if topic == "" {
		topic = allRuns
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(topic)
	defer cancel()

	s.Logger.Info("SSE: client subscribed", "topic", topic)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.Logger.Info("SSE: client disconnected", "topic", topic)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// writeJSON encodes v before committing the status, so an unencodable body
// turns into a 500 instead of a truncated success.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		s.Logger.Error("response encode failed", "err", err)
		buf.Reset()
		status = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(map[string]string{"error": "failed to encode response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
