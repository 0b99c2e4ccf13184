package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"luminaria-extractor/internal/export"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	zipContentType  = "application/zip"
)

func sendAttachment(c *gin.Context, name, contentType string, buf *bytes.Buffer) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// ExportBatches exportiert alle Datensätze als Tabelle
func (h *APIHandler) ExportBatches(c *gin.Context) {
	luminarias, err := h.repo.GetLuminarias()
	if err != nil {
		h.respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteBatchWorkbook(&buf, luminarias, h.cfg.TieBreak()); err != nil {
		h.respondError(c, err)
		return
	}
	log.Infof("Exported %d luminarias", len(luminarias))
	sendAttachment(c, "luminarias_exportadas.xlsx", xlsxContentType, &buf)
}

// ExportImages exportiert alle verarbeiteten Bilder mit ihren Vorhersagen
func (h *APIHandler) ExportImages(c *gin.Context) {
	images, err := h.repo.GetProcessedImages()
	if err != nil {
		h.respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteImagesWorkbook(&buf, images); err != nil {
		h.respondError(c, err)
		return
	}
	sendAttachment(c, "imagenes_individuales_export.xlsx", xlsxContentType, &buf)
}

// ExportZip packt alle verarbeiteten Bilder, benannt nach ihrem Code
func (h *APIHandler) ExportZip(c *gin.Context) {
	images, err := h.repo.GetProcessedImages()
	if err != nil {
		h.respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if _, err := export.WriteImagesZip(c.Request.Context(), &buf, images, h.blobs); err != nil {
		h.respondError(c, err)
		return
	}
	sendAttachment(c, "luminarias_procesadas.zip", zipContentType, &buf)
}
