package processor

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"luminaria-extractor/internal/core/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Upload ist ein neu eingereichtes Bild
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
	SourceURL   string
}

// AddImages verkleinert, speichert und registriert neue Bilder als pending.
// Uploads sind auch während eines laufenden Laufs erlaubt.
func (p *ImageProcessor) AddImages(ctx context.Context, uploads []Upload) ([]models.ProcessedImage, error) {
	if len(uploads) == 0 {
		return nil, ErrNoImages
	}

	images := make([]models.ProcessedImage, len(uploads))
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range uploads {
		g.Go(func() error {
			contentType := u.ContentType
			if contentType == "" || contentType == "application/octet-stream" {
				contentType = http.DetectContentType(u.Data)
			}
			data, contentType, err := p.pool.Compress(gctx, u.Data, contentType)
			if err != nil {
				return fmt.Errorf("failed to compress %s: %w", u.FileName, err)
			}

			id := uuid.NewString()
			if err := p.blobs.Put(gctx, id, data, contentType); err != nil {
				return fmt.Errorf("failed to store %s: %w", u.FileName, err)
			}

			images[i] = models.ProcessedImage{
				ID:          id,
				FileName:    u.FileName,
				ContentType: contentType,
				Size:        int64(len(data)),
				Status:      models.StatusPending,
				SourceURL:   u.SourceURL,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		p.discardBlobs(images)
		return nil, err
	}

	// Eindeutige, aufsteigende Zeitstempel halten die Upload-Reihenfolge fest
	now := time.Now()
	for i := range images {
		images[i].CreatedAt = now.Add(time.Duration(i) * time.Microsecond)
	}

	if err := p.repo.CreateImages(images); err != nil {
		p.discardBlobs(images)
		return nil, fmt.Errorf("failed to register images: %w", err)
	}

	log.Infof("Added %d images", len(images))
	return images, nil
}

func (p *ImageProcessor) discardBlobs(images []models.ProcessedImage) {
	for _, img := range images {
		if img.ID == "" {
			continue
		}
		if err := p.blobs.Delete(context.Background(), img.ID); err != nil {
			log.Warnf("Failed to remove image data %s: %v", img.ID, err)
		}
	}
}
