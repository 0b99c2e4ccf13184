package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"luminaria-extractor/internal/core/models"
	"luminaria-extractor/internal/core/processor"
	"luminaria-extractor/internal/integrations/urlfetch"

	"github.com/gin-gonic/gin"
)

type urlsRequest struct {
	URLs []string `json:"urls"`
	Text string   `json:"text"`
}

type codeRequest struct {
	Code *string `json:"code" binding:"required"`
}

type predictionRequest struct {
	Class string `json:"class" binding:"required"`
}

// ListImages liefert Bilder, optional nach Status gefiltert
func (h *APIHandler) ListImages(c *gin.Context) {
	status := models.Status(c.Query("status"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	images, total, err := h.repo.GetImages(status, limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"images": images, "total": total})
}

// GetImage liefert ein Bild mit seinem Ergebnis
func (h *APIHandler) GetImage(c *gin.Context) {
	img, err := h.repo.GetImageByID(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, img)
}

// GetImageRaw liefert die gespeicherten Bilddaten
func (h *APIHandler) GetImageRaw(c *gin.Context) {
	img, err := h.repo.GetImageByID(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	data, err := h.blobs.Get(c.Request.Context(), img.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, img.ContentType, data)
}

// UploadImages nimmt Bilder aus einem Multipart-Formular entgegen (Feld files[] oder files)
func (h *APIHandler) UploadImages(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		h.badRequest(c, err)
		return
	}
	headers := form.File["files[]"]
	if len(headers) == 0 {
		headers = form.File["files"]
	}

	uploads := make([]processor.Upload, 0, len(headers))
	for _, fh := range headers {
		data, err := readFormFile(fh)
		if err != nil {
			h.badRequest(c, err)
			return
		}
		uploads = append(uploads, processor.Upload{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	images, err := h.processor.AddImages(c.Request.Context(), uploads)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"images": images})
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

// UploadURLs lädt Bilder über Google-Drive-Links. Entweder alle gelingen oder keins wird übernommen.
func (h *APIHandler) UploadURLs(c *gin.Context) {
	var req urlsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	urls := req.URLs
	if len(urls) == 0 {
		urls = urlfetch.SplitURLs(req.Text)
	}

	files, err := h.fetcher.FetchAll(c.Request.Context(), urls)
	if err != nil {
		h.respondError(c, err)
		return
	}

	uploads := make([]processor.Upload, 0, len(files))
	for _, f := range files {
		uploads = append(uploads, processor.Upload{
			FileName:    f.Name,
			ContentType: f.ContentType,
			Data:        f.Data,
			SourceURL:   f.SourceURL,
		})
	}
	images, err := h.processor.AddImages(c.Request.Context(), uploads)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"images": images})
}

// ProcessIndividual verarbeitet wartende Bilder einzeln, ohne sie zu gruppieren
func (h *APIHandler) ProcessIndividual(c *gin.Context) {
	images, err := h.processor.RunIndividual(runContext(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"images": images})
}

// UpdateCode ersetzt den extrahierten Code eines Bildes
func (h *APIHandler) UpdateCode(c *gin.Context) {
	var req codeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	img, err := h.processor.UpdateCode(c.Param("id"), *req.Code)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, img)
}

// UpdatePrediction ändert die Klasse einer Detektion
func (h *APIHandler) UpdatePrediction(c *gin.Context) {
	var req predictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	img, err := h.processor.UpdatePredictionClass(c.Param("id"), c.Param("detectionId"), req.Class)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, img)
}

// DeleteImage löscht ein Bild, das zu keinem Datensatz gehört
func (h *APIHandler) DeleteImage(c *gin.Context) {
	if err := h.processor.DeleteImage(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
