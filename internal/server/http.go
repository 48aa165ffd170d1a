package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"vcampus/internal/transport"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// the admin API is meant for the campus LAN; any origin may connect
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type noticeRequest struct {
	Text string `json:"text" binding:"required"`
}

// NewHTTPHandler builds the admin API and the WebSocket entry point.
func NewHTTPHandler(s *TCPServer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"clients": s.Manager.Count(),
		})
	})

	r.GET("/stats", func(c *gin.Context) {
		stats := s.Manager.Stats()
		c.JSON(http.StatusOK, gin.H{
			"uptime_seconds":    int64(s.Uptime().Seconds()),
			"codec":             s.codec.Name(),
			"clients":           stats.Clients,
			"messages_received": stats.MessagesReceived,
			"messages_sent":     stats.MessagesSent,
		})
	})

	// open when no admin secret is configured
	admin := r.Group("/")
	if s.opts.AdminSecret != "" {
		admin.Use(requireAdmin(s))
	}
	admin.POST("/notice", func(c *gin.Context) {
		var req noticeRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
			return
		}
		delivered := s.Manager.BroadcastNotice(req.Text)
		s.logger.Info("notice_broadcast", "by", c.GetString("admin"), "delivered", delivered)
		c.JSON(http.StatusAccepted, gin.H{"delivered": delivered})
	})

	r.GET("/ws", WSHandler(s))
	return r
}

// WSHandler upgrades the request and serves the socket as a framed client
// connection. It blocks until the client goes away.
func WSHandler(s *TCPServer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error
			s.logger.Warn("websocket_upgrade_failed", "error", err.Error())
			return
		}
		served := s.Track(func() {
			s.ServeConn(transport.NewWebSocketConn(ws, s.opts.MaxFrameSize))
		})
		if !served {
			ws.Close()
		}
	}
}

func requestLogger(s *TCPServer) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http_request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
