// Package server exposes the chat engine over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hrygo/shoptalk/ai/cache"
	"github.com/hrygo/shoptalk/ai/catalog"
	"github.com/hrygo/shoptalk/ai/engine"
	"github.com/hrygo/shoptalk/ai/metrics"
	"github.com/hrygo/shoptalk/internal/profile"
	"github.com/hrygo/shoptalk/internal/version"
)

// Server wires the chat engine into an echo HTTP server.
type Server struct {
	e       *echo.Echo
	engine  *engine.Engine
	profile *profile.Profile
}

// ChatRequest is the POST /api/v1/chat body. SessionID is optional; the
// server mints one so the client can continue the conversation.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// ChatResponse is the chat endpoint reply.
type ChatResponse struct {
	SessionID  string  `json:"session_id"`
	Answer     string  `json:"answer"`
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	CacheHit   string  `json:"cache_hit"`
	Fallback   bool    `json:"fallback"`
	LatencyMs  int64   `json:"latency_ms"`
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(p *profile.Profile, eng *engine.Engine, exporter *metrics.PrometheusExporter) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("request", "uri", v.URI, "status", v.Status)
			return nil
		},
	}))

	s := &Server{e: e, engine: eng, profile: p}

	e.GET("/healthz", s.health)
	if exporter != nil {
		e.GET("/metrics", echo.WrapHandler(exporter.Handler()))
	}

	api := e.Group("/api/v1")
	api.POST("/chat", s.chat)
	api.GET("/stats", s.stats)
	api.POST("/catalog/reload", s.reloadCatalog)
	api.DELETE("/sessions/:id", s.clearSession)

	return s
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.e
}

// Start serves until the context is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.e.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "addr", addr, "version", version.String())
	return s.e.Start(addr)
}

// Shutdown stops the server immediately.
func (s *Server) Shutdown(ctx context.Context) {
	if err := s.e.Shutdown(ctx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
}

func (s *Server) chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	reply, err := s.engine.Chat(c.Request().Context(), req.SessionID, req.Message)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, ChatResponse{
		SessionID:  req.SessionID,
		Answer:     reply.Answer,
		Intent:     string(reply.Intent),
		Confidence: reply.Confidence,
		CacheHit:   string(reply.CacheHit),
		Fallback:   reply.Fallback,
		LatencyMs:  reply.LatencyMs,
	})
}

// StatsResponse is the cache counters plus the live threshold configuration.
type StatsResponse struct {
	cache.Stats
	MatchThreshold           float64 `json:"match_threshold"`
	CacheSimilarityThreshold float64 `json:"cache_similarity_threshold"`
}

func (s *Server) stats(c echo.Context) error {
	return c.JSON(http.StatusOK, StatsResponse{
		Stats:                    s.engine.CacheStats(),
		MatchThreshold:           s.profile.MatchThreshold,
		CacheSimilarityThreshold: s.profile.CacheSimilarityThreshold,
	})
}

func (s *Server) reloadCatalog(c echo.Context) error {
	records, err := catalog.LoadAll(s.profile.ProductsPath, s.profile.PoliciesPath)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError,
			errors.Wrap(err, "reload catalog").Error())
	}
	n := s.engine.Reload(records)
	return c.JSON(http.StatusOK, map[string]any{"records": n})
}

func (s *Server) clearSession(c echo.Context) error {
	id := c.Param("id")
	if !s.engine.ClearSession(id) {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.String(),
	})
}
