package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"FeedbackScanner/internal/infrastructure/slack"
	"FeedbackScanner/internal/usecase"
)

// maxBodyBytes bounds request bodies, uploads included.
const maxBodyBytes = 8 << 20

// Handler is the HTTP adapter over the pipeline and review use cases.
type Handler struct {
	pipeline *usecase.Pipeline
	reviews  *usecase.ReviewService
	slack    *slack.Webhook
	logger   *slog.Logger
}

// NewHandler binds the use cases; slackHook may be nil when the Slack source is disabled.
func NewHandler(pipeline *usecase.Pipeline, reviews *usecase.ReviewService, slackHook *slack.Webhook, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{pipeline: pipeline, reviews: reviews, slack: slackHook, logger: logger}
}

// NewRouter registers routes and middleware.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger())

	r.GET("/healthz", h.healthz)

	v1 := r.Group("/v1")
	v1.Use(bodyLimit(maxBodyBytes))
	{
		v1.POST("/pipeline/stream", h.streamPipeline)
		v1.POST("/pipeline/run", h.runPipeline)
		v1.GET("/tickets", h.listTickets)
		v1.GET("/tickets/:id", h.getTicket)
		v1.POST("/tickets/:id/review", h.reviewTicket)
		if h.slack != nil {
			v1.POST("/slack/events", h.slackEvents)
		}
	}
	return r
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.logger.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func bodyLimit(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

func (h *Handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
