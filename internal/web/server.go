package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"pixpress/internal/compressor"
	"pixpress/internal/config"
	"pixpress/internal/metadata"
	"pixpress/internal/session"
	"pixpress/internal/statistics"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Server exposes the session controller over a local HTTP API plus a
// websocket channel that pushes session snapshots to the UI.
type Server struct {
	cfg        *config.Config
	log        *logrus.Logger
	ctrl       *session.Controller
	meta       *metadata.Extractor
	stats      *statistics.Statistics
	router     *mux.Router
	httpServer *http.Server
	wsUpgrader websocket.Upgrader
	wsClients  map[*websocket.Conn]bool
	wsMutex    sync.Mutex
}

// APIResponse is the envelope for all JSON responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// OpenDirectoryRequest selects a new working directory. An empty path means
// the picker was dismissed.
type OpenDirectoryRequest struct {
	Path string `json:"path"`
}

// SelectFileRequest selects a file from the current directory listing.
type SelectFileRequest struct {
	Name string `json:"name"`
}

// ParamsRequest updates the compression parameters.
type ParamsRequest struct {
	Quality      float64 `json:"quality"`
	Format       string  `json:"format"`
	ScalePercent int     `json:"scale_percent"`
}

// WSMessage is the frame pushed to websocket clients.
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// NewServer wires the controller into an HTTP server and subscribes to its
// state changes for websocket broadcast.
func NewServer(cfg *config.Config, log *logrus.Logger, ctrl *session.Controller, meta *metadata.Extractor, stats *statistics.Statistics) *Server {
	s := &Server{
		cfg:       cfg,
		log:       log,
		ctrl:      ctrl,
		meta:      meta,
		stats:     stats,
		router:    mux.NewRouter(),
		wsClients: make(map[*websocket.Conn]bool),
		wsUpgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // local app, all origins accepted
			},
		},
	}

	ctrl.SetOnChange(s.broadcastState)
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", s.handleState).Methods("GET")
	api.HandleFunc("/directory", s.handleOpenDirectory).Methods("POST")
	api.HandleFunc("/directory/restore", s.handleRestoreDirectory).Methods("POST")
	api.HandleFunc("/select", s.handleSelectFile).Methods("POST")
	api.HandleFunc("/params", s.handleSetParams).Methods("POST")
	api.HandleFunc("/original", s.handleOriginal).Methods("GET")
	api.HandleFunc("/compressed", s.handleCompressed).Methods("GET")
	api.HandleFunc("/download/original", s.handleDownloadOriginal).Methods("GET")
	api.HandleFunc("/download/compressed", s.handleDownloadCompressed).Methods("GET")
	api.HandleFunc("/metadata", s.handleMetadata).Methods("GET")
	api.HandleFunc("/statistics", s.handleStatistics).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)

	s.router.PathPrefix("/static/").Handler(
		http.StripPrefix("/static/", http.FileServer(http.Dir("web/static/"))),
	)
	s.router.HandleFunc("/", s.handleIndex).Methods("GET")
}

// Handler returns the root handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server until Stop is called.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.log.Infof("Starting web server on http://localhost%s", addr)
	return s.httpServer.ListenAndServe()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, "web/templates/index.html")
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, APIResponse{
		Success: true,
		Data:    s.ctrl.Snapshot(),
	})
}

func (s *Server) handleOpenDirectory(w http.ResponseWriter, r *http.Request) {
	var req OpenDirectoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.ctrl.OpenDirectory(req.Path); err != nil {
		if errors.Is(err, session.ErrPermissionDenied) {
			s.writeError(w, fmt.Sprintf("Permission denied: %s", req.Path), http.StatusForbidden)
			return
		}
		s.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, APIResponse{
		Success: true,
		Data:    s.ctrl.Snapshot(),
	})
}

func (s *Server) handleRestoreDirectory(w http.ResponseWriter, r *http.Request) {
	s.ctrl.RestoreDirectory()
	s.writeJSON(w, APIResponse{
		Success: true,
		Data:    s.ctrl.Snapshot(),
	})
}

func (s *Server) handleSelectFile(w http.ResponseWriter, r *http.Request) {
	var req SelectFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		s.writeError(w, "File name is required", http.StatusBadRequest)
		return
	}

	if err := s.ctrl.SelectFile(req.Name); err != nil {
		if errors.Is(err, session.ErrUnknownFile) {
			s.writeError(w, err.Error(), http.StatusNotFound)
			return
		}
		s.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, APIResponse{
		Success: true,
		Data:    s.ctrl.Snapshot(),
	})
}

func (s *Server) handleSetParams(w http.ResponseWriter, r *http.Request) {
	var req ParamsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	format, err := compressor.ParseFormat(req.Format)
	if err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	params := compressor.Params{
		Quality:      req.Quality,
		Format:       format,
		ScalePercent: req.ScalePercent,
	}
	if err := s.ctrl.SetParameters(params); err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.writeJSON(w, APIResponse{
		Success: true,
		Data:    s.ctrl.Snapshot(),
	})
}

func (s *Server) handleOriginal(w http.ResponseWriter, r *http.Request) {
	_, data, err := s.ctrl.OriginalBytes()
	if err != nil {
		s.writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

func (s *Server) handleCompressed(w http.ResponseWriter, r *http.Request) {
	data, format, err := s.ctrl.CompressedBytes()
	if err != nil {
		s.writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/"+string(format))
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

func (s *Server) handleDownloadOriginal(w http.ResponseWriter, r *http.Request) {
	name, data, err := s.ctrl.DownloadOriginal()
	if err != nil {
		s.writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	s.writeAttachment(w, name, data)
}

func (s *Server) handleDownloadCompressed(w http.ResponseWriter, r *http.Request) {
	name, data, err := s.ctrl.DownloadCompressed()
	if err != nil {
		s.writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	s.writeAttachment(w, name, data)
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	path, err := s.ctrl.SelectedPath()
	if err != nil {
		s.writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	s.writeJSON(w, APIResponse{
		Success: true,
		Data:    s.meta.Extract(path),
	})
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"summary": s.stats.GetSummary(),
			"counters": map[string]interface{}{
				"directories_scanned": atomic.LoadInt64(&s.stats.DirectoriesScanned),
				"files_listed":        atomic.LoadInt64(&s.stats.FilesListed),
				"files_selected":      atomic.LoadInt64(&s.stats.FilesSelected),
				"compressions_done":   atomic.LoadInt64(&s.stats.CompressionsDone),
				"compressions_failed": atomic.LoadInt64(&s.stats.CompressionsFailed),
				"results_discarded":   atomic.LoadInt64(&s.stats.ResultsDiscarded),
				"bytes_in":            atomic.LoadInt64(&s.stats.BytesIn),
				"bytes_out":           atomic.LoadInt64(&s.stats.BytesOut),
				"saved_percent":       s.stats.SavedPercent(),
			},
		},
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Push the current state before registering so a reconnecting client
	// catches up without racing a concurrent broadcast.
	s.sendState(conn, s.ctrl.Snapshot())

	s.wsMutex.Lock()
	s.wsClients[conn] = true
	s.wsMutex.Unlock()

	s.log.Debug("WebSocket client connected")

	defer func() {
		s.wsMutex.Lock()
		delete(s.wsClients, conn)
		s.wsMutex.Unlock()
		s.log.Debug("WebSocket client disconnected")
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *Server) sendState(conn *websocket.Conn, snap session.Snapshot) {
	msg, err := json.Marshal(WSMessage{Type: "state", Data: snap})
	if err != nil {
		s.log.Errorf("Failed to marshal state message: %v", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		s.log.Debugf("Failed to write state message: %v", err)
	}
}

// broadcastState pushes a session snapshot to every connected client. The
// exclusive lock keeps writes to each connection serialized; gorilla/websocket
// forbids concurrent writers on one conn.
func (s *Server) broadcastState(snap session.Snapshot) {
	msg, err := json.Marshal(WSMessage{Type: "state", Data: snap})
	if err != nil {
		s.log.Errorf("Failed to marshal state message: %v", err)
		return
	}

	s.wsMutex.Lock()
	defer s.wsMutex.Unlock()

	for conn := range s.wsClients {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			s.log.Errorf("Failed to write WebSocket message: %v", err)
			delete(s.wsClients, conn)
			conn.Close()
		}
	}
}

func (s *Server) writeAttachment(w http.ResponseWriter, name string, data []byte) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Write(data)
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error:   message,
	})
}
