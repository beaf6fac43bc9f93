// Package server exposes a small HTTP/WebSocket surface for watching a live
// mining run: current page status, on-demand screenshots and a periodic
// screenshot stream.
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// LiveSession is the slice of a browsing session the watch server needs.
type LiveSession interface {
	Screenshot() ([]byte, error)
	Status() (url, title string)
}

type response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Server serves the watch endpoints for at most one session at a time.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	wsUpgrader websocket.Upgrader
	log        *zap.Logger

	mu      sync.RWMutex
	session LiveSession

	framePeriod time.Duration
}

func New(addr string, log *zap.Logger) *Server {
	s := &Server{
		router: mux.NewRouter(),
		log:    log,
		wsUpgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // local observation tool, not exposed publicly
			},
		},
		framePeriod: time.Second,
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Attach binds the live session the endpoints observe. Called by the engine
// once the session is launched; Detach clears it when the run ends.
func (s *Server) Attach(session LiveSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
}

func (s *Server) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
}

func (s *Server) current() LiveSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/status", s.handleStatus).Methods("GET")
	s.router.HandleFunc("/api/screenshot", s.handleScreenshot).Methods("GET")
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	session := s.current()
	if session == nil {
		s.sendError(w, "no active session", http.StatusServiceUnavailable)
		return
	}

	url, title := session.Status()
	s.sendSuccess(w, "status retrieved", map[string]string{
		"url":   url,
		"title": title,
	})
}

func (s *Server) handleScreenshot(w http.ResponseWriter, r *http.Request) {
	session := s.current()
	if session == nil {
		s.sendError(w, "no active session", http.StatusServiceUnavailable)
		return
	}

	buf, err := session.Screenshot()
	if err != nil {
		s.sendError(w, "screenshot failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	s.sendSuccess(w, "screenshot captured", map[string]string{
		"image": base64.StdEncoding.EncodeToString(buf),
	})
}

// handleWebSocket streams screenshot frames until the client disconnects or
// the session goes away.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	s.log.Info("watch client connected", zap.String("remote", r.RemoteAddr))

	ticker := time.NewTicker(s.framePeriod)
	defer ticker.Stop()

	for range ticker.C {
		session := s.current()
		if session == nil {
			conn.WriteJSON(response{Success: false, Message: "session ended"})
			break
		}

		buf, err := session.Screenshot()
		if err != nil {
			s.log.Debug("frame capture failed", zap.Error(err))
			continue
		}

		frame := response{
			Success: true,
			Message: "frame",
			Data:    map[string]string{"image": base64.StdEncoding.EncodeToString(buf)},
		}
		if err := conn.WriteJSON(frame); err != nil {
			break
		}
	}

	s.log.Info("watch client disconnected", zap.String("remote", r.RemoteAddr))
}

func (s *Server) sendSuccess(w http.ResponseWriter, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response{Success: true, Message: message, Data: data})
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response{Success: false, Message: message})
}

// Start blocks serving until Shutdown.
func (s *Server) Start() error {
	s.log.Info("watch server starting", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("watch server shutting down")
	return s.httpServer.Shutdown(ctx)
}
