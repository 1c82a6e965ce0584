package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/wakeup-call/internal/domain/wake"
	"github.com/oshokin/wakeup-call/internal/logger"
	"github.com/oshokin/wakeup-call/internal/notify"
	"github.com/oshokin/wakeup-call/internal/podcast"
	"github.com/oshokin/wakeup-call/internal/ringer"
)

// Server timeouts. Write stays generous for the event stream upgrade.
const (
	readTimeout     = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Core is the daemon surface the control API drives. Every method is
// safe for concurrent use.
type Core interface {
	// Status returns the aggregate daemon view.
	Status(ctx context.Context) (*wake.Status, error)
	// Enable arms the alarm for the next occurrence of the time of day.
	// An empty sound keeps the current selection.
	Enable(ctx context.Context, tod wake.TimeOfDay, sound wake.SoundID) (*wake.Trigger, error)
	// Disable cancels the pending trigger, idempotently.
	Disable(ctx context.Context) error
	// Dismiss stops a ringing alarm and starts the morning routine.
	Dismiss(ctx context.Context) error
	// WakeSignal reports a user tap on the delivered alarm. It returns
	// whether the signal was accepted as a fresh firing.
	WakeSignal(ctx context.Context, triggerID string) (bool, error)
	// SetPodcast applies a podcast control signal.
	SetPodcast(ctx context.Context, control podcast.Control) error
	// PreviewSound plays one cycle of a tone outside the alarm flow.
	PreviewSound(ctx context.Context, sound wake.SoundID) error
}

// Server is the HTTP control plane: JSON endpoints for alarm and podcast
// control plus a WebSocket event feed.
type Server struct {
	// core is the daemon behind the API.
	core Core
	// hub fans daemon events out to WebSocket subscribers.
	hub *Hub
	// server is the underlying HTTP server.
	server *http.Server
	// upgrader performs WebSocket upgrades for the event feed.
	upgrader websocket.Upgrader
}

// NewServer creates the control-plane server on the given address.
func NewServer(core Core, hub *Hub, listenAddress string) *Server {
	s := &Server{
		core: core,
		hub:  hub,
		// The daemon binds to loopback; origin checks would only get in
		// the way of local tooling.
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /alarm", s.handleGetAlarm)
	mux.HandleFunc("PUT /alarm", s.handlePutAlarm)
	mux.HandleFunc("POST /alarm/dismiss", s.handleDismiss)
	mux.HandleFunc("POST /alarm/wake", s.handleWake)
	mux.HandleFunc("POST /alarm/preview", s.handlePreview)
	mux.HandleFunc("POST /podcast", s.handlePodcast)
	mux.HandleFunc("GET /events", s.handleEvents)

	s.server = &http.Server{
		Addr:        listenAddress,
		Handler:     auditLog(mux),
		ReadTimeout: readTimeout,
	}

	return s
}

// auditLog records who asked for every mutating call. Reads stay quiet.
// Audit entries are pinned to the info level and ignore the configured
// verbosity.
func auditLog(next http.Handler) http.Handler {
	audit := logger.Logger().
		Desugar().
		WithOptions(logger.WithLevel(zapcore.InfoLevel)).
		Sugar()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			actor := r.Header.Get(ActorHeader)
			if actor == "" {
				actor = "unknown"
			}

			ctx := logger.WithKV(logger.ToContext(r.Context(), audit), "actor", actor)

			logger.InfoKV(ctx, "Control call",
				"method", r.Method,
				"path", r.URL.Path)
		}

		next.ServeHTTP(w, r)
	})
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errs := make(chan error, 1)

	go func() {
		logger.InfoKV(ctx, "Control API listening", "address", s.server.Addr)

		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.hub.Close()

	return s.server.Shutdown(shutdownCtx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, AckResponse{Status: "ok"})
}

func (s *Server) handleGetAlarm(w http.ResponseWriter, r *http.Request) {
	status, err := s.core.Status(r.Context())
	if err != nil {
		s.writeError(r.Context(), w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handlePutAlarm(w http.ResponseWriter, r *http.Request) {
	var req AlarmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(r.Context(), w, err)

		return
	}

	ctx := r.Context()

	if !req.Enabled {
		if err := s.core.Disable(ctx); err != nil {
			s.writeError(ctx, w, err)

			return
		}

		s.respondStatus(ctx, w)

		return
	}

	tod, err := wake.ParseTimeOfDay(req.Time)
	if err != nil {
		s.writeBadRequest(ctx, w, err)

		return
	}

	var sound wake.SoundID

	if req.Sound != "" {
		if sound, err = wake.ParseSoundID(req.Sound); err != nil {
			s.writeBadRequest(ctx, w, err)

			return
		}
	}

	if _, err = s.core.Enable(ctx, tod, sound); err != nil {
		s.writeError(ctx, w, err)

		return
	}

	s.respondStatus(ctx, w)
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	if err := s.core.Dismiss(r.Context()); err != nil {
		s.writeError(r.Context(), w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, AckResponse{Status: "dismissed"})
}

func (s *Server) handleWake(w http.ResponseWriter, r *http.Request) {
	var req WakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeBadRequest(r.Context(), w, err)

		return
	}

	accepted, err := s.core.WakeSignal(r.Context(), req.TriggerID)
	if err != nil {
		s.writeError(r.Context(), w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, WakeResponse{Accepted: accepted})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(r.Context(), w, err)

		return
	}

	sound, err := wake.ParseSoundID(req.Sound)
	if err != nil {
		s.writeBadRequest(r.Context(), w, err)

		return
	}

	if err = s.core.PreviewSound(r.Context(), sound); err != nil {
		s.writeError(r.Context(), w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, AckResponse{Status: "previewing"})
}

func (s *Server) handlePodcast(w http.ResponseWriter, r *http.Request) {
	var req PodcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(r.Context(), w, err)

		return
	}

	control, err := podcast.ParseControl(req.Control)
	if err != nil {
		s.writeBadRequest(r.Context(), w, err)

		return
	}

	if err = s.core.SetPodcast(r.Context(), control); err != nil {
		s.writeError(r.Context(), w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, AckResponse{Status: "applied"})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Errorf(r.Context(), "WebSocket upgrade failed: %v", err)

		return
	}

	s.hub.serve(conn)
}

// respondStatus writes the aggregate status after a mutating call.
func (s *Server) respondStatus(ctx context.Context, w http.ResponseWriter) {
	status, err := s.core.Status(ctx)
	if err != nil {
		s.writeError(ctx, w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeBadRequest(ctx context.Context, w http.ResponseWriter, err error) {
	logger.DebugKV(ctx, "Rejected request", "error", err)
	s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
}

func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusForError(err)
	logger.WarnKV(ctx, "Request failed", "status", status, "error", err)
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

// statusForError maps core errors onto HTTP statuses: user-state
// conflicts report 409, permission problems 403, bad input 400 and
// everything else 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, ringer.ErrNotRinging),
		errors.Is(err, ringer.ErrBusy),
		errors.Is(err, podcast.ErrNotPlaying):
		return http.StatusConflict
	case errors.Is(err, podcast.ErrUnknownControl):
		return http.StatusBadRequest
	case errors.Is(err, notify.ErrPermission):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
