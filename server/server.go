// Package server exposes the session catalog and transcript streams as a
// JSON API for presentation layers.
//
//	GET /api/sessions
//	GET /api/transcripts/{sessionId}
//	GET /api/transcripts/{sessionId}/subagents/{agentId}
//
// Transcript endpoints accept ?compact=1 to summarize bulky tool payloads.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sonnes/sessionview/compact"
	"github.com/sonnes/sessionview/core"
)

// Catalog lists sessions.
type Catalog interface {
	ListSessions(ctx context.Context) ([]core.Session, error)
}

// Transcripts loads record streams.
type Transcripts interface {
	Transcript(ctx context.Context, sessionID string) (*core.Transcript, error)
	SubagentRecords(ctx context.Context, sessionID, agentID string) (*core.SubagentResponse, error)
}

// Server serves the API. It implements http.Handler.
type Server struct {
	catalog     Catalog
	transcripts Transcripts
	handler     http.Handler
	shutdown    time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithShutdownTimeout bounds how long ListenAndServe waits for in-flight
// requests once its context is done.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) { s.shutdown = d }
}

// New returns a Server backed by catalog and transcripts.
func New(catalog Catalog, transcripts Transcripts, opts ...Option) *Server {
	s := &Server{catalog: catalog, transcripts: transcripts, shutdown: 5 * time.Second}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/sessions", s.handleSessions)
	mux.HandleFunc("GET /api/transcripts/{sessionId}", s.handleTranscript)
	mux.HandleFunc("GET /api/transcripts/{sessionId}/subagents/{agentId}", s.handleSubagent)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, fmt.Errorf("%s %s: %w", r.Method, r.URL.Path, core.ErrNotFound))
	})
	s.handler = withRequestLog(mux)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("serving", "addr", ln.Addr().String())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.catalog.ListSessions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []core.Session{}
	}
	writeJSON(w, r, http.StatusOK, sessions)
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	compacted, err := compactParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.transcripts.Transcript(r.Context(), r.PathValue("sessionId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if compacted {
		if err := compact.New(compact.Config{}).Transform(t.Records); err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeJSON(w, r, http.StatusOK, t)
}

func (s *Server) handleSubagent(w http.ResponseWriter, r *http.Request) {
	compacted, err := compactParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := s.transcripts.SubagentRecords(r.Context(), r.PathValue("sessionId"), r.PathValue("agentId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if compacted {
		if err := compact.New(compact.Config{}).Transform(resp.Records); err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// errBadRequest marks client input errors.
var errBadRequest = errors.New("bad request")

func compactParam(r *http.Request) (bool, error) {
	v := r.URL.Query().Get("compact")
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: compact=%q is not a boolean", errBadRequest, v)
	}
	return b, nil
}
