package processor

import (
	"context"
	"fmt"

	"luminaria-extractor/internal/core/batch"
	"luminaria-extractor/internal/core/models"
	"luminaria-extractor/internal/server/sse"

	log "github.com/sirupsen/logrus"
)

// RunLote verarbeitet die ältesten size wartenden Bilder nacheinander und
// konsolidiert sie zu einem Datensatz. size muss 1 oder 3 sein.
func (p *ImageProcessor) RunLote(ctx context.Context, size int) (*models.Luminaria, error) {
	if size != 1 && size != 3 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBatchSize, size)
	}
	if !p.tryStart() {
		return nil, ErrBatchInProgress
	}
	defer p.finish()

	pending, err := p.repo.GetPendingImages(size)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending images: %w", err)
	}
	if len(pending) < size {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrNotEnoughImages, size, len(pending))
	}

	log.Infof("Starting batch run over %d images", size)
	failed := 0
	for i := range pending {
		p.progress(ModeLote, fmt.Sprintf("Procesando imagen %d de %d...", i+1, size), i+1, size)
		if err := p.ProcessImage(ctx, &pending[i]); err != nil {
			// Ohne Datensatz gehört das Los wieder in die Warteschlange
			p.release(pending)
			return nil, err
		}
		if pending[i].Status == models.StatusError {
			failed++
		}
	}

	p.progress(ModeLote, "Analizando grupo de imágenes...", size, size)
	luminaria := batch.Consolidate(pending, p.tieBreak)
	if err := p.repo.CreateLuminaria(&luminaria); err != nil {
		p.release(pending)
		return nil, fmt.Errorf("failed to save luminaria: %w", err)
	}

	log.WithFields(log.Fields{
		"luminaria_id": luminaria.ID,
		"coincidencia": luminaria.Coincidencia,
		"failed":       failed,
	}).Info("Batch consolidated")

	p.metrics.IncBatches(string(luminaria.Coincidencia))
	if p.notifier != nil {
		p.notifier.LuminariaCreated(luminaria)
		p.notifier.RunFinished(sse.RunFinishedData{
			Mode:        ModeLote,
			Processed:   size,
			Failed:      failed,
			LuminariaID: luminaria.ID,
		})
	}
	if p.publisher != nil {
		if err := p.publisher.PublishLuminaria(luminaria); err != nil {
			log.Warnf("Failed to publish luminaria %s: %v", luminaria.ID, err)
		}
	}

	return &luminaria, nil
}

// RunIndividual verarbeitet bis zu individualSize wartende Bilder nacheinander,
// ohne sie zu gruppieren.
func (p *ImageProcessor) RunIndividual(ctx context.Context) ([]models.ProcessedImage, error) {
	if !p.tryStart() {
		return nil, ErrBatchInProgress
	}
	defer p.finish()

	pending, err := p.repo.GetPendingImages(p.individualSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending images: %w", err)
	}
	if len(pending) == 0 {
		return nil, ErrNoPendingImages
	}

	total := len(pending)
	log.Infof("Starting individual run over %d images", total)
	failed := 0
	for i := range pending {
		p.progress(ModeIndividual, fmt.Sprintf("Procesando imagen %d de %d...", i+1, total), i+1, total)
		if err := p.ProcessImage(ctx, &pending[i]); err != nil {
			p.release(pending[i : i+1])
			return nil, err
		}
		if pending[i].Status == models.StatusError {
			failed++
		}
	}

	log.Infof("Individual run finished: %d processed, %d failed", total, failed)
	if p.notifier != nil {
		p.notifier.RunFinished(sse.RunFinishedData{Mode: ModeIndividual, Processed: total, Failed: failed})
	}
	return pending, nil
}

// release setzt Bilder eines abgebrochenen Laufs auf pending zurück
func (p *ImageProcessor) release(images []models.ProcessedImage) {
	for i := range images {
		img := &images[i]
		img.Status = models.StatusPending
		img.ExtractedCode = nil
		img.Predictions = nil
		img.LuminariaID = nil
		img.BatchPosition = 0
		if err := p.repo.SaveImage(img); err != nil {
			log.WithError(err).Errorf("Failed to reset image %s to pending", img.ID)
			continue
		}
		if p.notifier != nil {
			p.notifier.ImageUpdated(*img)
		}
	}
	log.Warnf("Run aborted, %d images returned to the queue", len(images))
}

func (p *ImageProcessor) progress(mode, message string, current, total int) {
	log.Info(message)
	if p.notifier != nil {
		p.notifier.Progress(mode, message, current, total)
	}
}
