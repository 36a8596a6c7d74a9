package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/bryanchriswhite/FilterCam/internal/capture"
	"github.com/bryanchriswhite/FilterCam/internal/config"
	"github.com/bryanchriswhite/FilterCam/internal/filter"
	"github.com/bryanchriswhite/FilterCam/internal/imaging"
	"github.com/bryanchriswhite/FilterCam/internal/logger"
	"github.com/bryanchriswhite/FilterCam/internal/output"
	"github.com/bryanchriswhite/FilterCam/internal/session"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// maxUploadBytes bounds the body accepted by /api/process.
const maxUploadBytes = 32 << 20

// Server represents the HTTP API server
type Server struct {
	router    *mux.Router
	session   *session.Session
	stream    *output.MJPEGOutput
	configMgr *config.Manager
	upgrader  websocket.Upgrader
}

// NewServer creates a new API server. stream and configMgr may be nil.
func NewServer(sess *session.Session, stream *output.MJPEGOutput, configMgr *config.Manager) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		session:   sess,
		stream:    stream,
		configMgr: configMgr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for development
			},
		},
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Filter selection
	api.HandleFunc("/filters", s.handleListFilters).Methods("GET")
	api.HandleFunc("/filter", s.handleGetFilter).Methods("GET")
	api.HandleFunc("/filter/next", s.handleNextFilter).Methods("POST")
	api.HandleFunc("/filter/stream", s.handleFilterStream)

	// Capture and processing
	api.HandleFunc("/capture", s.handleCapture).Methods("POST")
	api.HandleFunc("/process", s.handleProcess).Methods("POST")

	// Gallery
	api.HandleFunc("/gallery", s.handleListGallery).Methods("GET")
	api.HandleFunc("/gallery", s.handleClearGallery).Methods("DELETE")
	api.HandleFunc("/gallery/{id}", s.handleGetGalleryImage).Methods("GET")
	api.HandleFunc("/gallery/{id}", s.handleDeleteGalleryImage).Methods("DELETE")

	api.HandleFunc("/stats", s.handleStats).Methods("GET")
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	if s.stream != nil {
		s.router.HandleFunc("/stream", s.stream.GetHTTPHandler())
		s.router.HandleFunc("/snapshot", s.stream.GetSnapshotHandler()).Methods("GET")
		s.router.HandleFunc("/stats", s.stream.GetStatsHandler()).Methods("GET")
		s.router.HandleFunc("/", s.stream.GetViewerHandler()).Methods("GET")
	}
}

// Handler returns the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

// Start serves on port until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithComponent("api").Info().Str("addr", srv.Addr).Msg("Starting HTTP server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// FilterInfo is the JSON form of a filter selection.
type FilterInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func filterInfo(id filter.ID) FilterInfo {
	return FilterInfo{ID: int(id), Name: id.String()}
}

// CaptureResponse describes a processed capture.
type CaptureResponse struct {
	ID         string `json:"id"`
	Filter     string `json:"filter"`
	Source     string `json:"source,omitempty"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	DurationMS int64  `json:"duration_ms"`
	Fallback   bool   `json:"fallback,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// HTTP Handlers

func (s *Server) handleListFilters(w http.ResponseWriter, r *http.Request) {
	filters := make([]FilterInfo, 0, filter.Count)
	for _, id := range filter.All() {
		filters = append(filters, filterInfo(id))
	}
	writeJSON(w, http.StatusOK, filters)
}

func (s *Server) handleGetFilter(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, filterInfo(s.session.Selection().Current()))
}

func (s *Server) handleNextFilter(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, filterInfo(s.session.Advance()))
}

func (s *Server) handleFilterStream(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("api")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}
	defer conn.Close()

	sel := s.session.Selection()
	updates := sel.Subscribe()
	defer sel.Unsubscribe(updates)

	// Reader goroutine notices the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(filterInfo(sel.Current())); err != nil {
		log.Debug().Err(err).Msg("WebSocket write error")
		return
	}

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case id, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(filterInfo(id)); err != nil {
				log.Debug().Err(err).Msg("WebSocket write error")
				return
			}
		}
	}
}

func captureResponse(res *session.Result) CaptureResponse {
	return CaptureResponse{
		ID:         res.ID.String(),
		Filter:     res.Filter.String(),
		Source:     res.Source,
		Width:      res.Output.Width(),
		Height:     res.Output.Height(),
		DurationMS: res.Duration.Milliseconds(),
		Fallback:   res.Fallback,
	}
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	res, err := s.session.Capture(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, session.ErrNoSource):
			status = http.StatusServiceUnavailable
		case errors.Is(err, capture.ErrNoFrame):
			status = http.StatusServiceUnavailable
		case errors.Is(err, imaging.ErrInvalidInput):
			status = http.StatusUnprocessableEntity
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, captureResponse(res))
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	buf, _, err := capture.Decode(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		http.Error(w, fmt.Sprintf("decode image: %v", err), http.StatusBadRequest)
		return
	}

	res, err := s.session.Process(buf)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, imaging.ErrInvalidInput) {
			status = http.StatusUnprocessableEntity
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Filter", res.Filter.String())
	w.Header().Set("X-Capture-Id", res.ID.String())
	if err := output.EncodePNG(w, res.Output); err != nil {
		logger.WithComponent("api").Warn().Err(err).Msg("Failed to write processed image")
	}
}

func (s *Server) gallery(w http.ResponseWriter) *output.Gallery {
	g := s.session.Gallery()
	if g == nil {
		http.Error(w, "gallery disabled", http.StatusNotFound)
	}
	return g
}

func (s *Server) handleListGallery(w http.ResponseWriter, r *http.Request) {
	g := s.gallery(w)
	if g == nil {
		return
	}
	writeJSON(w, http.StatusOK, g.List())
}

func (s *Server) handleClearGallery(w http.ResponseWriter, r *http.Request) {
	g := s.gallery(w)
	if g == nil {
		return
	}
	g.Clear()
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) galleryID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid gallery id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) handleGetGalleryImage(w http.ResponseWriter, r *http.Request) {
	g := s.gallery(w)
	if g == nil {
		return
	}
	id, ok := s.galleryID(w, r)
	if !ok {
		return
	}

	entry, buf, found := g.Get(id)
	if !found {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", entry.FileName()))
	if err := output.EncodePNG(w, buf); err != nil {
		logger.WithComponent("api").Warn().Err(err).Msg("Failed to write gallery image")
	}
}

func (s *Server) handleDeleteGalleryImage(w http.ResponseWriter, r *http.Request) {
	g := s.gallery(w)
	if g == nil {
		return
	}
	id, ok := s.galleryID(w, r)
	if !ok {
		return
	}
	if !g.Delete(id) {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Stats())
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if s.configMgr == nil {
		writeJSON(w, http.StatusOK, config.Defaults())
		return
	}
	writeJSON(w, http.StatusOK, s.configMgr.Get())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":  "healthy",
		"version": Version,
		"filter":  s.session.FilterName(),
	}
	if err := s.session.InitErr(); err != nil {
		status["status"] = "degraded"
		status["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, status)
}
