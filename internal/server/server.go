// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the search pipeline over HTTP and WebSocket.
//
//	GET  /            service info
//	GET  /health      liveness
//	POST /search      blocking search, JSON in and out
//	GET  /ws/process  streamed search; one JSON event per message
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pdiddy/nexus-search/internal/pipeline"
	"github.com/pdiddy/nexus-search/pkg/types"
)

// maxRequestBody bounds the JSON body of POST /search.
const maxRequestBody = 1 << 20

// Service is the pipeline surface the server drives. *pipeline.Pipeline
// satisfies it.
type Service interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Response, error)
	RunStream(ctx context.Context, req pipeline.Request, emit func(pipeline.Event) error) error
}

// Info is reported by GET /.
type Info struct {
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Engines []string `json:"engines"`
}

// Server serves one Service.
type Server struct {
	svc      Service
	info     Info
	cfg      types.ServerConfig
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// New returns a server for svc.
func New(svc Service, info Info, cfg types.ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{svc: svc, info: info, cfg: cfg, logger: logger}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	return s
}

// Handler returns the routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleInfo)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /search", s.handleSearch)
	mux.HandleFunc("GET /ws/process", s.handleProcess)
	return mux
}

// ListenAndServe serves on cfg.Port until ctx is done, then shuts down
// gracefully within cfg.ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+strconv.Itoa(s.cfg.Port))
	if err != nil {
		return fmt.Errorf("listening on port %d: %w", s.cfg.Port, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.info)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	resp, err := s.svc.Run(r.Context(), req)
	switch {
	case errors.Is(err, pipeline.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		s.logger.Error("search failed", zap.String("query", req.Query), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

// handleProcess runs one streamed search per inbound {"query": ...} message
// until the client disconnects.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		var req pipeline.Request
		if err := json.Unmarshal(msg, &req); err != nil {
			if s.sendError(conn, fmt.Sprintf("invalid message: %v", err)) != nil {
				return
			}
			continue
		}

		err = s.svc.RunStream(r.Context(), req, func(e pipeline.Event) error {
			return conn.WriteJSON(e)
		})
		if err != nil {
			s.logger.Debug("stream ended with error", zap.String("query", req.Query), zap.Error(err))
			if s.sendError(conn, err.Error()) != nil {
				return
			}
		}
	}
}

func (s *Server) sendError(conn *websocket.Conn, message string) error {
	return conn.WriteJSON(pipeline.Event{Type: pipeline.EventError, Message: message})
}

// checkOrigin accepts every origin when none are configured.
func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, o := range s.cfg.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
