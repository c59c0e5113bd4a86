// Package httpapi exposes a feedback loop over HTTP: state snapshot reads,
// event intake, and a server-sent-events stream of state changes.
package httpapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/loopkit/loopkit"
	"github.com/loopkit/loopkit/internal/logging"
)

// Loop is the view of a feedback loop the server needs. The loopkit Handle
// satisfies it.
type Loop interface {
	Snapshot() ([]byte, error)
	DispatchKind(kind string, payload map[string]any) error
	Kinds() []string
	Watch() (<-chan []byte, func())
}

// Server serves one loop.
type Server struct {
	loop   Loop
	logger *slog.Logger
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler for a loop.
//
//	GET  /state   -> latest state snapshot (JSON)
//	POST /events  -> {"kind": "...", "payload": {...}} event intake
//	GET  /watch   -> SSE stream of state snapshots
//	GET  /info    -> adapter metadata and accepted event kinds
func NewHandler(loop Loop, opts ...Option) http.Handler {
	s := &Server{
		loop:   loop,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/state", s.getState)
	r.Post("/events", s.postEvent)
	r.Get("/watch", s.watch)
	r.Get("/info", s.getInfo)
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.loop.Snapshot()
	if err != nil {
		http.Error(w, fmt.Sprintf("Snapshot error: %v", err), http.StatusInternalServerError)
		s.logger.Error("state snapshot failed", "error", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(snap)
}

// eventRequest is the intake body. Payload is decoded against the loop's
// registered event kinds.
type eventRequest struct {
	Kind    string         `json:"kind"`
	Payload map[string]any `json:"payload"`
}

func (s *Server) postEvent(w http.ResponseWriter, r *http.Request) {
	var body eventRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("event intake: invalid request body", "error", err)
		return
	}
	if body.Kind == "" {
		http.Error(w, "Missing event kind", http.StatusBadRequest)
		return
	}

	if err := s.loop.DispatchKind(body.Kind, body.Payload); err != nil {
		http.Error(w, fmt.Sprintf("Dispatch error: %v", err), http.StatusBadRequest)
		s.logger.Warn("event intake rejected", "kind", body.Kind, "error", err)
		return
	}

	// Accepted, not applied: the loop processes asynchronously.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
}

func (s *Server) watch(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("watch: streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	states, cancel := s.loop.Watch()
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("watch client disconnected")
			return
		case snap, ok := <-states:
			if !ok {
				// Loop closed; end the stream.
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", snap)
			flusher.Flush()
		}
	}
}

func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"app":     "loopkit-http",
		"version": loopkit.Version,
		"kinds":   s.loop.Kinds(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
