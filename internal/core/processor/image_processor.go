package processor

import (
	"context"
	"fmt"
	"sync/atomic"

	"luminaria-extractor/config"
	"luminaria-extractor/internal/core/batch"
	"luminaria-extractor/internal/core/codes"
	"luminaria-extractor/internal/core/models"
	"luminaria-extractor/internal/db/repository"
	"luminaria-extractor/internal/observability/metrics"
	"luminaria-extractor/internal/server/sse"
	"luminaria-extractor/internal/storage/blob"

	log "github.com/sirupsen/logrus"
)

// Modi eines Verarbeitungslaufs
const (
	ModeLote       = "lote"
	ModeIndividual = "individual"
)

// Detector ist der Inferenzdienst: ein Bild rein, Detektionen raus
type Detector interface {
	Detect(ctx context.Context, imageData []byte, contentType string) ([]models.Detection, error)
}

// Notifier empfängt Fortschritts- und Ergebnismeldungen, z.B. der SSE-Hub
type Notifier interface {
	Progress(mode, message string, current, total int)
	ImageUpdated(img models.ProcessedImage)
	LuminariaCreated(l models.Luminaria)
	RunFinished(data sse.RunFinishedData)
}

// Publisher veröffentlicht konsolidierte Datensätze, z.B. per MQTT
type Publisher interface {
	PublishLuminaria(l models.Luminaria) error
}

// Compressor verkleinert Bilddaten vor dem Speichern
type Compressor interface {
	Compress(data []byte, contentType string) ([]byte, string)
}

// ImageProcessor verarbeitet Bilder, setzt Codes zusammen und konsolidiert Lose.
// Es läuft höchstens ein Lauf gleichzeitig; Bilder eines Laufs werden
// nacheinander an den Inferenzdienst geschickt.
type ImageProcessor struct {
	repo       repository.Repository
	blobs      blob.Store
	detector   Detector
	compressor Compressor
	assembler  *codes.Assembler
	tieBreak   batch.TieBreak

	loteSize       int
	individualSize int

	notifier  Notifier
	publisher Publisher
	metrics   *metrics.Metrics
	pool      *WorkerPool

	running atomic.Bool
}

// NewImageProcessor erstellt einen neuen Bildverarbeitungsprozessor.
// notifier, publisher und m dürfen nil sein.
func NewImageProcessor(cfg *config.Config, repo repository.Repository, blobs blob.Store, detector Detector,
	compressor Compressor, notifier Notifier, publisher Publisher, m *metrics.Metrics) *ImageProcessor {
	return &ImageProcessor{
		repo:           repo,
		blobs:          blobs,
		detector:       detector,
		compressor:     compressor,
		assembler:      codes.NewAssembler(cfg.PrefixTable()),
		tieBreak:       cfg.TieBreak(),
		loteSize:       cfg.Batch.LoteSize,
		individualSize: cfg.Batch.IndividualSize,
		notifier:       notifier,
		publisher:      publisher,
		metrics:        m,
		pool:           NewWorkerPool(compressor),
	}
}

// Busy meldet, ob gerade ein Lauf aktiv ist
func (p *ImageProcessor) Busy() bool {
	return p.running.Load()
}

// DefaultLoteSize liefert die konfigurierte Losgröße
func (p *ImageProcessor) DefaultLoteSize() int {
	return p.loteSize
}

// CompressionWorkers liefert die Größe des Kompressions-Pools
func (p *ImageProcessor) CompressionWorkers() int {
	return p.pool.GetWorkerCount()
}

// ActiveCompressions liefert die Zahl laufender Kompressionen
func (p *ImageProcessor) ActiveCompressions() int {
	return p.pool.ActiveJobCount()
}

// Shutdown beendet den Kompressions-Pool
func (p *ImageProcessor) Shutdown() {
	p.pool.Shutdown()
}

func (p *ImageProcessor) tryStart() bool {
	if !p.running.CompareAndSwap(false, true) {
		return false
	}
	p.metrics.SetRunInProgress(true)
	return true
}

func (p *ImageProcessor) finish() {
	p.metrics.SetRunInProgress(false)
	p.running.Store(false)
}

// ProcessImage führt genau einen Inferenzversuch für ein Bild aus. Schlägt die
// Inferenz fehl, erhält das Bild den Status error und die Fehlermeldung als Code;
// geliefert wird dann trotzdem kein Fehler. Fehler entstehen nur beim Speichern.
func (p *ImageProcessor) ProcessImage(ctx context.Context, img *models.ProcessedImage) error {
	img.Status = models.StatusProcessing
	img.ExtractedCode = nil
	img.Predictions = nil
	if err := p.repo.SaveImage(img); err != nil {
		return fmt.Errorf("failed to mark image %s as processing: %w", img.ID, err)
	}

	result, err := p.extract(ctx, img)
	if err != nil {
		log.WithFields(log.Fields{
			"image_id": img.ID,
			"file":     img.FileName,
		}).WithError(err).Warn("Image processing failed")
		img.SetResult(models.StatusError, models.ExtractionResult{ExtractedCode: errorText(err)})
	} else {
		log.WithFields(log.Fields{
			"image_id":    img.ID,
			"code":        result.ExtractedCode,
			"predictions": len(result.Predictions),
		}).Info("Image processed")
		img.SetResult(models.StatusSuccess, result)
	}

	if err := p.repo.SaveImage(img); err != nil {
		return fmt.Errorf("failed to save result for image %s: %w", img.ID, err)
	}

	p.metrics.IncImagesProcessed(string(img.Status))
	if p.notifier != nil {
		p.notifier.ImageUpdated(*img)
	}
	return nil
}

func (p *ImageProcessor) extract(ctx context.Context, img *models.ProcessedImage) (models.ExtractionResult, error) {
	data, err := p.blobs.Get(ctx, img.ID)
	if err != nil {
		return models.ExtractionResult{}, fmt.Errorf("failed to read image data: %w", err)
	}

	detections, err := p.detector.Detect(ctx, data, img.ContentType)
	if err != nil {
		return models.ExtractionResult{}, err
	}
	if detections == nil {
		detections = []models.Detection{}
	}

	for _, d := range detections {
		log.Debugf("Detection %s: class=%q confidence=%.3f x=%.1f", d.DetectionID, d.Class, d.Confidence, d.X)
	}

	return models.ExtractionResult{
		ExtractedCode: p.assembler.Assemble(detections),
		Predictions:   detections,
	}, nil
}

func errorText(err error) string {
	if err == nil || err.Error() == "" {
		return unknownErrorMessage
	}
	return err.Error()
}
