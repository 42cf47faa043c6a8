package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"crypto_dash/internal/domain"

	"github.com/gin-gonic/gin"
	gws "github.com/gorilla/websocket"
)

var upgrader = gws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS is open for the API as well
		return true
	},
}

// clientMessage is an inbound websocket frame from the browser.
type clientMessage struct {
	Type string `json:"type"` // "scroll" or "refresh"
	domain.ScrollSignal
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.health)
	s.router.GET("/ws", s.websocket)
	s.router.GET("/icons/:id", s.icon)

	api := s.router.Group("/api")
	{
		api.GET("/assets", s.assets)
		api.GET("/assets/:id/chart", s.chart)
		api.POST("/scroll", s.scroll)
		api.POST("/refresh", s.refresh)
		api.GET("/metrics", s.metricsHandler)
	}
}

func (s *Server) health(c *gin.Context) {
	view := s.backend.View()
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"stream":  view.Status.Stream,
		"version": view.Version,
		"clients": s.hub.Count(),
	})
}

func (s *Server) assets(c *gin.Context) {
	c.JSON(http.StatusOK, NewViewResponse(s.backend.View(), ""))
}

func (s *Server) scroll(c *gin.Context) {
	var sig domain.ScrollSignal
	if err := c.ShouldBindJSON(&sig); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !s.backend.Scroll(sig) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "dashboard stopped"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": true, "at_end": sig.AtEnd()})
}

func (s *Server) refresh(c *gin.Context) {
	gen := s.backend.Refresh()
	if gen == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "dashboard stopped"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"generation": gen})
}

func (s *Server) chart(c *gin.Context) {
	trend, err := s.backend.Trend(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, trend)
}

func (s *Server) icon(c *gin.Context) {
	path, imageRef, ok := s.backend.Icon(c.Param("id"))
	switch {
	case !ok:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown asset"})
	case path != "":
		c.Header("Cache-Control", "public, max-age=3600")
		c.File(path)
	case imageRef != "":
		c.Redirect(http.StatusFound, imageRef)
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "no icon"})
	}
}

func (s *Server) metricsHandler(c *gin.Context) {
	if s.metrics == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) websocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error
		s.logger.Warn("Failed to upgrade WebSocket connection", slog.Any("error", err))
		return
	}

	client := NewClient(conn, s.onClientMessage)
	s.hub.Register(client)
	defer s.hub.Unregister(client.ID())

	// Current state first, then every change
	if msg, err := s.viewMessage(""); err == nil {
		client.Send(msg)
	}

	<-client.Done()
}

func (s *Server) onClientMessage(c *Client, data []byte) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.Debug("Ignoring malformed client message", slog.String("client_id", c.ID()), slog.Any("error", err))
		return
	}

	switch msg.Type {
	case "scroll":
		s.backend.Scroll(msg.ScrollSignal)
	case "refresh":
		s.backend.Refresh()
	default:
		s.logger.Debug("Ignoring client message", slog.String("client_id", c.ID()), slog.String("type", msg.Type))
	}
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidSymbol):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrFetchFailure), errors.Is(err, domain.ErrParseFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
