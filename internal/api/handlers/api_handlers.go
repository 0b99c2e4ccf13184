package handlers

import (
	"context"
	"errors"
	"net/http"

	"luminaria-extractor/config"
	"luminaria-extractor/internal/api/middleware"
	"luminaria-extractor/internal/core/processor"
	"luminaria-extractor/internal/db/repository"
	"luminaria-extractor/internal/export"
	"luminaria-extractor/internal/integrations/urlfetch"
	"luminaria-extractor/internal/server/sse"
	"luminaria-extractor/internal/storage/blob"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// URLFetcher lädt Bilder über ihre Freigabelinks
type URLFetcher interface {
	FetchAll(ctx context.Context, urls []string) ([]urlfetch.File, error)
}

// APIHandler behandelt die API-Anfragen des Browsers
type APIHandler struct {
	cfg       *config.Config
	repo      repository.Repository
	blobs     blob.Store
	processor *processor.ImageProcessor
	fetcher   URLFetcher
	sseHub    *sse.Hub
}

// NewAPIHandler erstellt einen neuen API-Handler
func NewAPIHandler(cfg *config.Config, repo repository.Repository, blobs blob.Store,
	proc *processor.ImageProcessor, fetcher URLFetcher, sseHub *sse.Hub) *APIHandler {
	return &APIHandler{
		cfg:       cfg,
		repo:      repo,
		blobs:     blobs,
		processor: proc,
		fetcher:   fetcher,
		sseHub:    sseHub,
	}
}

// RegisterRoutes registriert alle API-Routen
func (h *APIHandler) RegisterRoutes(router *gin.RouterGroup) {
	// Bilder
	router.GET("/images", h.ListImages)
	router.POST("/images", h.UploadImages)
	router.POST("/images/urls", h.UploadURLs)
	router.POST("/images/process", h.ProcessIndividual)
	router.GET("/images/:id", h.GetImage)
	router.GET("/images/:id/raw", h.GetImageRaw)
	router.PUT("/images/:id/code", h.UpdateCode)
	router.PUT("/images/:id/predictions/:detectionId", h.UpdatePrediction)
	router.DELETE("/images/:id", h.DeleteImage)

	// Lose und Datensätze
	router.POST("/batches", h.RunBatch)
	router.GET("/luminarias", h.ListLuminarias)
	router.GET("/luminarias/:id", h.GetLuminaria)
	router.PATCH("/luminarias/:id", h.UpdateLuminaria)
	router.POST("/luminarias/:id/recompute", h.RecomputeLuminaria)
	router.DELETE("/luminarias/:id", h.DeleteLuminaria)

	// Exporte
	router.GET("/export/batches.xlsx", h.ExportBatches)
	router.GET("/export/images.xlsx", h.ExportImages)
	router.GET("/export/images.zip", h.ExportZip)

	// System
	router.GET("/status", h.GetStatus)
	router.DELETE("/all", h.ClearAll)
	router.GET("/events", h.handleSSE)
}

// respondError bildet bekannte Fehler auf Statuscodes und übersetzte Meldungen ab
func (h *APIHandler) respondError(c *gin.Context, err error) {
	status, key := http.StatusInternalServerError, "error.internal"
	var data map[string]interface{}

	var fetchErr *urlfetch.Error
	switch {
	case errors.Is(err, processor.ErrBatchInProgress):
		status, key = http.StatusConflict, "error.batch_in_progress"
	case errors.Is(err, processor.ErrNotEnoughImages):
		status, key = http.StatusUnprocessableEntity, "error.not_enough_images"
		data = map[string]interface{}{"Size": c.GetInt("batchSize")}
	case errors.Is(err, processor.ErrNoPendingImages):
		status, key = http.StatusUnprocessableEntity, "error.no_pending_images"
	case errors.Is(err, processor.ErrInvalidBatchSize):
		status, key = http.StatusBadRequest, "error.invalid_batch_size"
	case errors.Is(err, processor.ErrNotProcessed):
		status, key = http.StatusConflict, "error.not_processed"
	case errors.Is(err, processor.ErrDetectionNotFound):
		status, key = http.StatusNotFound, "error.detection_not_found"
	case errors.Is(err, processor.ErrInvalidCoincidencia):
		status, key = http.StatusBadRequest, "error.invalid_coincidencia"
	case errors.Is(err, processor.ErrNoImages):
		status, key = http.StatusBadRequest, "error.no_images"
	case errors.Is(err, processor.ErrImageInLuminaria):
		status, key = http.StatusConflict, "error.image_in_luminaria"
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, blob.ErrNotFound):
		status, key = http.StatusNotFound, "error.not_found"
	case errors.Is(err, urlfetch.ErrNoURLs):
		status, key = http.StatusBadRequest, "error.no_urls"
	case errors.Is(err, export.ErrNoLuminarias):
		status, key = http.StatusNotFound, "error.no_luminarias"
	case errors.Is(err, export.ErrNoProcessedImages):
		status, key = http.StatusNotFound, "error.no_processed_images"
	case errors.As(err, &fetchErr):
		// Die Meldung nennt die betroffene URL und ist bereits anzeigbar
		status = http.StatusBadGateway
		if errors.Is(err, urlfetch.ErrNotDriveURL) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": fetchErr.Error()})
		return
	}

	if status == http.StatusInternalServerError {
		log.WithError(err).Errorf("Request %s %s failed", c.Request.Method, c.Request.URL.Path)
	} else {
		log.WithError(err).Debugf("Request %s %s rejected", c.Request.Method, c.Request.URL.Path)
	}
	c.JSON(status, gin.H{"error": middleware.T(c, key, data)})
}

func (h *APIHandler) badRequest(c *gin.Context, err error) {
	log.Debugf("Invalid request body for %s: %v", c.Request.URL.Path, err)
	c.JSON(http.StatusBadRequest, gin.H{"error": middleware.T(c, "error.invalid_request", nil)})
}

// runContext löst einen Lauf vom Abbruch der Anfrage, damit ein geschlossener
// Browser-Tab den Lauf nicht halb verarbeitet zurücklässt
func runContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}
