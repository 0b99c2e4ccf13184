package handlers

import (
	"net/http"
	"strconv"

	"luminaria-extractor/internal/core/processor"

	"github.com/gin-gonic/gin"
)

// RunBatch verarbeitet die ältesten wartenden Bilder als Los (?size=1|3)
func (h *APIHandler) RunBatch(c *gin.Context) {
	size := h.processor.DefaultLoteSize()
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.respondError(c, processor.ErrInvalidBatchSize)
			return
		}
		size = n
	}
	c.Set("batchSize", size)

	l, err := h.processor.RunLote(runContext(c), size)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, l)
}

// ListLuminarias liefert alle Datensätze, neueste zuerst
func (h *APIHandler) ListLuminarias(c *gin.Context) {
	luminarias, err := h.repo.GetLuminarias()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"luminarias": luminarias})
}

// GetLuminaria liefert einen Datensatz mit seinen Bildern in Positionsreihenfolge
func (h *APIHandler) GetLuminaria(c *gin.Context) {
	l, err := h.repo.GetLuminariaByID(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

// UpdateLuminaria übernimmt Benutzeränderungen
func (h *APIHandler) UpdateLuminaria(c *gin.Context) {
	var patch processor.LuminariaPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		h.badRequest(c, err)
		return
	}
	l, err := h.processor.UpdateLuminaria(c.Param("id"), patch)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

// RecomputeLuminaria konsolidiert einen Datensatz über die aktuellen Bilder neu
func (h *APIHandler) RecomputeLuminaria(c *gin.Context) {
	l, err := h.processor.Recompute(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

// DeleteLuminaria löscht einen Datensatz, die Bilder bleiben erhalten
func (h *APIHandler) DeleteLuminaria(c *gin.Context) {
	if err := h.processor.DeleteLuminaria(c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
