package handlers

import (
	"net/http"

	"luminaria-extractor/internal/api/middleware"
	"luminaria-extractor/internal/utils"

	"github.com/gin-gonic/gin"
)

// GetStatus liefert Bestandszahlen, den Laufzustand und Systemwerte
func (h *APIHandler) GetStatus(c *gin.Context) {
	stats, err := h.repo.GetStatistics()
	if err != nil {
		h.respondError(c, err)
		return
	}

	sseClients := 0
	if h.sseHub != nil {
		sseClients = h.sseHub.ClientCount()
	}

	c.JSON(http.StatusOK, gin.H{
		"statistics":  stats,
		"busy":        h.processor.Busy(),
		"system":      utils.GetSystemStats(h.processor),
		"sse_clients": sseClients,
	})
}

// ClearAll löscht alle Bilder, Datensätze und Bilddaten
func (h *APIHandler) ClearAll(c *gin.Context) {
	if err := h.processor.ClearAll(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": middleware.T(c, "message.cleared", nil)})
}
