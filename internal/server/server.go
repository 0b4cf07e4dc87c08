// Package server serves recorded matches to viewers over HTTP and
// WebSocket.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/daviddao/antmatch_viewer/internal/logger"
	"github.com/daviddao/antmatch_viewer/internal/replay"
	"github.com/daviddao/antmatch_viewer/internal/replaystore"
)

// Server routes viewer requests to a replay store.
type Server struct {
	store   replaystore.Store
	version string
}

// New returns a server backed by store.
func New(store replaystore.Store, version string) *Server {
	return &Server{store: store, version: version}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: logger.Log, NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(cors)

	// The socket outlives any request timeout.
	r.Get("/api/ws", s.handleWS)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(15 * time.Second))
		s.RegisterRoutes(r)
	})
	return r
}

// RegisterRoutes adds the plain HTTP routes to r.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/", s.handleHome)
	r.Get("/vis/index.html", s.handleHome)
	r.Get("/health", s.handleHealth)
	r.Get("/version", s.handleVersion)
	r.Get("/api/matches", s.handleMatches)
	r.Get("/api/background", s.handleBackground)
	r.Get("/api/frame", s.handleFrame)
}

// HTTPServer wraps the router with the connection timeouts used in
// production.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.WithError(err).Debug("write response")
	}
}

// httpError maps store errors onto status codes.
func httpError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, replay.ErrBadFragment):
		status = http.StatusBadRequest
	case errors.Is(err, replaystore.ErrUnknownMatch), errors.Is(err, replaystore.ErrNoFrames):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		logger.Log.WithError(err).WithField("request_id", middleware.GetReqID(r.Context())).Error("request failed")
	}
	http.Error(w, err.Error(), status)
}

func matchParam(r *http.Request) (replay.Match, error) {
	return replay.ParseMatch(r.URL.Query().Get("match"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": s.version,
		"go":      runtime.Version(),
	})
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	ms, err := s.store.Matches(r.Context())
	if err != nil {
		httpError(w, r, err)
		return
	}
	if ms == nil {
		ms = []replay.Match{}
	}
	writeJSON(w, http.StatusOK, ms)
}

func (s *Server) handleBackground(w http.ResponseWriter, r *http.Request) {
	m, err := matchParam(r)
	if err != nil {
		httpError(w, r, err)
		return
	}
	bg, err := s.store.Background(r.Context(), m)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bg)
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	m, err := matchParam(r)
	if err != nil {
		httpError(w, r, err)
		return
	}
	n, err := strconv.Atoi(r.URL.Query().Get("frame_no"))
	if err != nil {
		http.Error(w, "frame_no must be an integer", http.StatusBadRequest)
		return
	}
	f, err := s.store.Frame(r.Context(), m, n)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}
