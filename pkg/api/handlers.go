package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ZentaChain/lcdrelay/pkg/network"
	"github.com/ZentaChain/lcdrelay/pkg/storage"
)

// HealthResponse reports relay liveness
type HealthResponse struct {
	Success  bool   `json:"success"`
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Sessions int    `json:"sessions"`
	Journal  bool   `json:"journal"`
}

// RosterResponse is the current roster in join order
type RosterResponse struct {
	Roster []int `json:"roster"`
}

// SessionsResponse lists live sessions
type SessionsResponse struct {
	Success  bool                  `json:"success"`
	Count    int                   `json:"count"`
	Sessions []network.SessionInfo `json:"sessions"`
}

// StatsResponse wraps the registry counters
type StatsResponse struct {
	Success       bool          `json:"success"`
	Stats         network.Stats `json:"stats"`
	UptimeSeconds int64         `json:"uptimeSeconds"`
}

// EventsResponse lists journaled events, newest first
type EventsResponse struct {
	Success bool            `json:"success"`
	Enabled bool            `json:"enabled"`
	Events  []storage.Event `json:"events"`
}

// handleHealth handles GET /health
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Success:  true,
		Status:   "healthy",
		Uptime:   time.Since(s.startTime).Truncate(time.Second).String(),
		Sessions: s.registry.Stats().Active,
		Journal:  s.events != nil,
	})
}

// handleRoster handles GET /api/v1/roster
func (s *Server) handleRoster(c *gin.Context) {
	roster := s.registry.Snapshot()
	if roster == nil {
		roster = []int{}
	}
	c.JSON(http.StatusOK, RosterResponse{Roster: roster})
}

// handleSessions handles GET /api/v1/sessions
func (s *Server) handleSessions(c *gin.Context) {
	sessions := s.registry.Sessions()
	c.JSON(http.StatusOK, SessionsResponse{
		Success:  true,
		Count:    len(sessions),
		Sessions: sessions,
	})
}

// handleStats handles GET /api/v1/stats
func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, StatsResponse{
		Success:       true,
		Stats:         s.registry.Stats(),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	})
}

// handleEvents handles GET /api/v1/events?limit=N
func (s *Server) handleEvents(c *gin.Context) {
	limit := storage.DefaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "Invalid limit",
				Message: "limit must be a positive integer",
			})
			return
		}
		limit = n
	}

	if s.events == nil {
		c.JSON(http.StatusOK, EventsResponse{Success: true, Events: []storage.Event{}})
		return
	}

	events, err := s.events.Recent(c.Request.Context(), limit)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to read journal")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Journal unavailable",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, EventsResponse{Success: true, Enabled: true, Events: events})
}
