package handlers

import (
	"io"
	"net/http"

	"luminaria-extractor/internal/server/sse"

	"github.com/gin-gonic/gin"
)

// handleSSE streamt Fortschritts- und Ergebnisereignisse an den Browser
func (h *APIHandler) handleSSE(c *gin.Context) {
	if h.sseHub == nil {
		c.Status(http.StatusNotFound)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	client := make(sse.Client, 10)
	h.sseHub.Register(client)
	defer h.sseHub.Unregister(client)

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-client:
			if !ok {
				return false
			}
			c.SSEvent("message", string(msg))
			return true
		case <-ctx.Done():
			return false
		}
	})
}
