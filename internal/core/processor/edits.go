package processor

import (
	"context"
	"fmt"
	"strings"

	"luminaria-extractor/internal/core/batch"
	"luminaria-extractor/internal/core/models"

	log "github.com/sirupsen/logrus"
)

// LuminariaPatch enthält die vom Benutzer geänderten Felder; nil bleibt unverändert.
// Ein leerer Typ oder 0 Watt löscht den Wert.
type LuminariaPatch struct {
	Coincidencia   *models.Coincidencia `json:"coincidencia"`
	TipoIluminaria *string              `json:"tipoIluminaria"`
	Watts          *int                 `json:"watts"`
	Aprobado       *bool                `json:"aprobado"`
}

// UpdateCode ersetzt den extrahierten Code eines Bildes. Der Status bleibt unverändert.
func (p *ImageProcessor) UpdateCode(id, code string) (*models.ProcessedImage, error) {
	img, err := p.repo.GetImageByID(id)
	if err != nil {
		return nil, err
	}
	if img.ExtractedCode == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotProcessed, id)
	}

	img.ExtractedCode = &code
	if err := p.repo.SaveImage(img); err != nil {
		return nil, fmt.Errorf("failed to save image %s: %w", id, err)
	}

	log.Infof("Code of image %s changed to %q", id, code)
	if p.notifier != nil {
		p.notifier.ImageUpdated(*img)
	}
	return img, nil
}

// UpdatePredictionClass ersetzt die Klasse einer Detektion. Alle anderen Felder
// der Detektion und der Code des Bildes bleiben unverändert.
func (p *ImageProcessor) UpdatePredictionClass(id, detectionID, class string) (*models.ProcessedImage, error) {
	img, err := p.repo.GetImageByID(id)
	if err != nil {
		return nil, err
	}
	if img.ExtractedCode == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotProcessed, id)
	}

	found := false
	for i := range img.Predictions {
		if img.Predictions[i].DetectionID == detectionID {
			img.Predictions[i].Class = class
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %s in image %s", ErrDetectionNotFound, detectionID, id)
	}

	if err := p.repo.SaveImage(img); err != nil {
		return nil, fmt.Errorf("failed to save image %s: %w", id, err)
	}

	log.Infof("Detection %s of image %s relabeled to %q", detectionID, id, class)
	if p.notifier != nil {
		p.notifier.ImageUpdated(*img)
	}
	return img, nil
}

// UpdateLuminaria übernimmt Benutzeränderungen an einem Datensatz
func (p *ImageProcessor) UpdateLuminaria(id string, patch LuminariaPatch) (*models.Luminaria, error) {
	if patch.Coincidencia != nil && !patch.Coincidencia.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCoincidencia, *patch.Coincidencia)
	}

	l, err := p.repo.GetLuminariaByID(id)
	if err != nil {
		return nil, err
	}

	if patch.Coincidencia != nil {
		l.Coincidencia = *patch.Coincidencia
	}
	if patch.TipoIluminaria != nil {
		if tipo := strings.TrimSpace(*patch.TipoIluminaria); tipo != "" {
			l.TipoIluminaria = &tipo
		} else {
			l.TipoIluminaria = nil
		}
	}
	if patch.Watts != nil {
		if *patch.Watts > 0 {
			w := *patch.Watts
			l.Watts = &w
		} else {
			l.Watts = nil
		}
	}
	if patch.Aprobado != nil {
		l.Aprobado = *patch.Aprobado
	}

	if err := p.repo.SaveLuminaria(l); err != nil {
		return nil, fmt.Errorf("failed to save luminaria %s: %w", id, err)
	}
	return l, nil
}

// Recompute konsolidiert einen Datensatz erneut über den aktuellen Stand seiner
// Bilder. Die Freigabe bleibt erhalten.
func (p *ImageProcessor) Recompute(id string) (*models.Luminaria, error) {
	l, err := p.repo.GetLuminariaByID(id)
	if err != nil {
		return nil, err
	}

	batch.Apply(l, batch.Summarize(l.Images, p.tieBreak))
	if err := p.repo.SaveLuminaria(l); err != nil {
		return nil, fmt.Errorf("failed to save luminaria %s: %w", id, err)
	}

	log.Infof("Luminaria %s recomputed: %s", id, l.Coincidencia)
	return l, nil
}

// DeleteImage löscht ein einzelnes Bild samt Bilddaten. Bilder eines Datensatzes
// bleiben erhalten, solange der Datensatz existiert.
func (p *ImageProcessor) DeleteImage(ctx context.Context, id string) error {
	img, err := p.repo.GetImageByID(id)
	if err != nil {
		return err
	}
	if img.LuminariaID != nil {
		return fmt.Errorf("%w: %s", ErrImageInLuminaria, *img.LuminariaID)
	}
	if img.Status == models.StatusProcessing && p.Busy() {
		return ErrBatchInProgress
	}

	if err := p.repo.DeleteImage(id); err != nil {
		return err
	}
	if err := p.blobs.Delete(ctx, id); err != nil {
		log.Warnf("Failed to remove image data %s: %v", id, err)
	}
	log.Infof("Image %s deleted", id)
	return nil
}

// DeleteLuminaria löscht einen Datensatz. Seine Bilder bleiben als einzelne
// verarbeitete Bilder erhalten.
func (p *ImageProcessor) DeleteLuminaria(id string) error {
	if err := p.repo.DeleteLuminaria(id); err != nil {
		return err
	}
	log.Infof("Luminaria %s deleted", id)
	return nil
}

// ClearAll löscht alle Bilder, Datensätze und Bilddaten
func (p *ImageProcessor) ClearAll(ctx context.Context) error {
	if !p.tryStart() {
		return ErrBatchInProgress
	}
	defer p.finish()

	if err := p.repo.ClearAll(); err != nil {
		return fmt.Errorf("failed to clear database: %w", err)
	}
	if err := p.blobs.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear image data: %w", err)
	}
	log.Info("All images and luminarias removed")
	return nil
}
