// Package rest exposes the engine's ops HTTP surface: health checks,
// recent signals, and per-key state snapshots.
package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"choch_detector/internal/domain"
	"choch_detector/internal/orchestrator"
	"choch_detector/internal/repository"
	"choch_detector/pkg/apperrors"
	"choch_detector/pkg/log"
)

// Server is the gin-backed ops HTTP surface.
type Server struct {
	router       *gin.Engine
	orchestrator *orchestrator.Orchestrator
	alerts       repository.AlertRepository
	startedAt    time.Time
}

// NewServer builds a Server wired to orch for state snapshots and
// alerts for the recent-signals feed.
func NewServer(orch *orchestrator.Orchestrator, alerts repository.AlertRepository) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggerMiddleware())
	router.Use(CORSMiddleware())

	s := &Server{
		router:       router,
		orchestrator: orch,
		alerts:       alerts,
		startedAt:    time.Now(),
	}
	s.registerRoutes()
	return s
}

// Router exposes the underlying gin.Engine for use as an http.Handler.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", s.healthCheck)
	s.router.GET("/readyz", s.readyCheck)

	api := s.router.Group("/v1")
	api.GET("/signals/recent", s.getRecentSignals)
	api.GET("/signals/:symbol/:timeframe", s.getSignalsForKey)
	api.GET("/state/:symbol/:timeframe", s.getState)
}

// healthCheck reports liveness only — it never touches the database.
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "UP",
		"uptime": time.Since(s.startedAt).String(),
	})
}

// readyCheck reports whether the engine can currently serve persisted
// data, by exercising the alert repository with a bounded query.
func (s *Server) readyCheck(c *gin.Context) {
	if _, err := s.alerts.FindRecent(c.Request.Context(), 1); err != nil {
		log.Error("readiness check failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, apperrors.NewErrorResponse("database not ready", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "READY"})
}

func (s *Server) getRecentSignals(c *gin.Context) {
	limit := parseLimit(c, 50)

	alerts, err := s.alerts.FindRecent(c.Request.Context(), limit)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"signals": alerts})
}

func (s *Server) getSignalsForKey(c *gin.Context) {
	symbol := c.Param("symbol")
	timeframe := c.Param("timeframe")
	limit := parseLimit(c, 50)

	alerts, err := s.alerts.FindBySymbolAndTimeframe(c.Request.Context(), symbol, timeframe, limit)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "timeframe": timeframe, "signals": alerts})
}

// getState exposes the orchestrator's in-memory TimeframeState for a
// (symbol, timeframe) key — a debugging surface, not a stable API.
func (s *Server) getState(c *gin.Context) {
	symbol := c.Param("symbol")
	timeframe := c.Param("timeframe")

	state, ok := s.orchestrator.Snapshot(symbol, timeframe)
	if !ok {
		c.JSON(http.StatusNotFound, apperrors.NewErrorResponse("no state recorded for key", errNoState{symbol, timeframe}))
		return
	}
	c.JSON(http.StatusOK, stateResponse(state))
}

func stateResponse(state domain.TimeframeState) gin.H {
	return gin.H{
		"symbol":             state.Symbol,
		"timeframe":          state.Timeframe,
		"pivot_count":        len(state.Pivots),
		"last_eight_bar_idx": state.LastEightBarIdx,
		"group":              state.Group.String(),
		"choch_locked":       state.ChochLocked,
	}
}

func parseLimit(c *gin.Context, def int) int {
	raw := c.Query("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func handleError(c *gin.Context, err error) {
	log.Error("ops API error: %v", err)
	if appErr, ok := err.(*apperrors.AppError); ok {
		c.JSON(appErr.Code, apperrors.NewErrorResponse(appErr.Message, appErr))
		return
	}
	c.JSON(http.StatusInternalServerError, apperrors.NewErrorResponse("internal server error", err))
}

type errNoState struct {
	symbol, timeframe string
}

func (e errNoState) Error() string {
	return "no state recorded for " + e.symbol + "@" + e.timeframe
}
