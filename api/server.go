// Package api provides the HTTP REST API server for briefly.
//
// It exposes endpoints for newsletter generation, deep-dives, cache
// inspection, and WebSocket streaming of generation progress.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/brieflyhq/briefly/internal/brief"
	"github.com/brieflyhq/briefly/internal/config"
	"github.com/brieflyhq/briefly/internal/llm"
	"github.com/brieflyhq/briefly/internal/validate"
	"github.com/brieflyhq/briefly/pkg/models"
)

// Server is the HTTP API server.
type Server struct {
	router    chi.Router
	cfg       *config.Config
	gen       *brief.Generator
	validator *validate.Validator
	llm       *llm.Router
	wsHub     *WSHub
	log       *logrus.Logger
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, gen *brief.Generator, validator *validate.Validator, router *llm.Router, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{
		cfg:       cfg,
		gen:       gen,
		validator: validator,
		llm:       router,
		wsHub:     NewWSHub(log),
		log:       log,
	}
	s.router = s.buildRouter()
	return s
}

// Router returns the configured chi router (used in tests).
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server with graceful shutdown.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go s.wsHub.Run()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-done:
	}
	s.log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(180 * time.Second))

	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)
		r.Post("/brief", s.handleBrief)
		r.Post("/deepdive", s.handleDeepDive)
		r.Get("/cache/stats", s.handleCacheStats)
		r.Delete("/cache/{profession}/{window}", s.handleCacheDelete)
	})

	r.Get("/ws", s.handleWebSocket)

	return r
}

// ── Request / response types ──

// APIResponse is the uniform JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// BriefRequest is the body for POST /api/v1/brief.
type BriefRequest struct {
	Profession string `json:"profession"`
	Window     string `json:"window"`
	Fresh      bool   `json:"fresh,omitempty"`
}

// DeepDiveRequest is the body for POST /api/v1/deepdive.
type DeepDiveRequest struct {
	Profession string `json:"profession"`
	Window     string `json:"window"`
	Rank       int    `json:"rank"`
}

// ── Handlers ──

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status": "ok",
			"time":   time.Now().UTC(),
		},
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	providers := map[string]string{}
	for name, err := range s.llm.HealthCheck(r.Context()) {
		if err != nil {
			providers[name] = err.Error()
		} else {
			providers[name] = "ok"
		}
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"providers": providers,
			"cache":     s.gen.CacheStats(r.Context()),
			"ws_peers":  s.wsHub.ClientCount(),
		},
	})
}

func (s *Server) handleBrief(w http.ResponseWriter, r *http.Request) {
	var req BriefRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	window, err := models.ParseTimeWindow(req.Window)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	verdict := s.validator.Validate(r.Context(), req.Profession)
	if verdict.Status == validate.Rejected {
		writeError(w, http.StatusUnprocessableEntity, "not a recognizable profession: "+verdict.Reason)
		return
	}

	result, err := s.gen.Generate(r.Context(), verdict.Profession, window, brief.Options{
		Fresh: req.Fresh,
		Progress: func(stage brief.Stage) {
			s.wsHub.Broadcast(WSMessage{
				Type: "brief_progress",
				Data: map[string]string{
					"profession": verdict.Profession,
					"window":     string(window),
					"stage":      string(stage),
				},
			})
		},
	})
	if err != nil {
		if errors.Is(err, brief.ErrInsufficientResults) {
			writeError(w, http.StatusNotFound, "no relevant AI updates found; try a broader time window")
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: result})
}

func (s *Server) handleDeepDive(w http.ResponseWriter, r *http.Request) {
	var req DeepDiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	window, err := models.ParseTimeWindow(req.Window)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	n, ok := s.gen.Cached(r.Context(), req.Profession, window)
	if !ok {
		writeError(w, http.StatusNotFound, "no newsletter for that profession and window; generate one first")
		return
	}

	dive, err := s.gen.DeepDive(r.Context(), n, req.Rank)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: dive})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: s.gen.CacheStats(r.Context())})
}

func (s *Server) handleCacheDelete(w http.ResponseWriter, r *http.Request) {
	window, err := models.ParseTimeWindow(chi.URLParam(r, "window"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.gen.InvalidateCache(r.Context(), chi.URLParam(r, "profession"), window)
	writeJSON(w, http.StatusOK, APIResponse{Success: true})
}

// ── Helpers ──

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{Success: false, Error: msg})
}
