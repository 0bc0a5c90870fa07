package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"FeedbackScanner/internal/domain"
	"FeedbackScanner/internal/usecase"
)

func (h *Handler) streamPipeline(c *gin.Context) {
	var req usecase.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	stream := h.pipeline.Stream(c.Request.Context(), req)
	defer stream.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	done := c.Request.Context().Done()
	events := stream.Events()
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				fmt.Fprintf(w, "data: %s\n\n", usecase.StreamDone)
				return false
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				h.logger.Error("marshal event", "run_id", stream.RunID, "error", err)
				return true
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				h.logger.Warn("write event", "run_id", stream.RunID, "error", err)
				return false
			}
			return true
		case <-done:
			h.logger.Info("stream consumer went away", "run_id", stream.RunID)
			return false
		}
	})
}

func (h *Handler) runPipeline(c *gin.Context) {
	var req usecase.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	res, err := h.pipeline.Run(c.Request.Context(), req)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeSuccess(c, http.StatusOK, res)
}

func (h *Handler) listTickets(c *gin.Context) {
	status := domain.TicketStatus(c.Query("status"))
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(c, http.StatusBadRequest, "invalid_input", "limit must be a positive integer")
			return
		}
		limit = n
	}

	tickets, err := h.reviews.List(c.Request.Context(), status, limit)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeSuccess(c, http.StatusOK, tickets)
}

func (h *Handler) getTicket(c *gin.Context) {
	ticket, err := h.reviews.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeSuccess(c, http.StatusOK, ticket)
}

func (h *Handler) reviewTicket(c *gin.Context) {
	var req usecase.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	ticket, err := h.reviews.Review(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeSuccess(c, http.StatusOK, ticket)
}

func (h *Handler) slackEvents(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_input", "read body: "+err.Error())
		return
	}

	if err := h.slack.Verify(c.GetHeader("X-Slack-Request-Timestamp"), c.GetHeader("X-Slack-Signature"), body); err != nil {
		writeError(c, http.StatusUnauthorized, "bad_signature", err.Error())
		return
	}

	outcome, err := h.slack.Handle(c.Request.Context(), body)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if outcome.Challenge != "" {
		c.JSON(http.StatusOK, gin.H{"challenge": outcome.Challenge})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "duplicate": outcome.Duplicate, "stored": outcome.Stored})
}
