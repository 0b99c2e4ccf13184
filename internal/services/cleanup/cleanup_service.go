package cleanup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"luminaria-extractor/config"
	"luminaria-extractor/internal/db/repository"
	"luminaria-extractor/internal/storage/blob"

	log "github.com/sirupsen/logrus"
)

// Busy meldet, ob gerade ein Verarbeitungslauf aktiv ist
type Busy interface {
	Busy() bool
}

// CleanupService entfernt Datensätze und Bilder, die älter als die Aufbewahrungsfrist sind
type CleanupService struct {
	repo          repository.Repository
	blobs         blob.Store
	busy          Busy
	config        config.CleanupConfig
	checkInterval time.Duration
	now           func() time.Time
}

// Result fasst einen Bereinigungsdurchlauf zusammen
type Result struct {
	Luminarias int64
	Images     int
	BlobErrors int
}

// NewCleanupService erstellt einen neuen Cleanup-Service. busy darf nil sein.
func NewCleanupService(repo repository.Repository, blobs blob.Store, busy Busy, cfg config.CleanupConfig) *CleanupService {
	return &CleanupService{
		repo:          repo,
		blobs:         blobs,
		busy:          busy,
		config:        cfg,
		checkInterval: 24 * time.Hour,
		now:           time.Now,
	}
}

// Start führt sofort eine Bereinigung aus und danach einmal täglich, bis ctx endet
func (s *CleanupService) Start(ctx context.Context) {
	if s.config.RetentionDays <= 0 {
		log.Info("Cleanup disabled (retention days <= 0)")
		return
	}
	log.Info("Cleanup service started")

	if _, err := s.RunCleanup(ctx); err != nil {
		log.Errorf("Initial cleanup failed: %v", err)
	}

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			log.Info("Running scheduled cleanup")
			if _, err := s.RunCleanup(ctx); err != nil {
				log.Errorf("Scheduled cleanup failed: %v", err)
			}
		case <-ctx.Done():
			log.Info("Cleanup service stopped")
			return
		}
	}
}

// RunCleanup löscht alte Datensätze samt Bilddaten. Während eines Laufs wird
// nichts gelöscht, der nächste Durchlauf holt es nach.
func (s *CleanupService) RunCleanup(ctx context.Context) (Result, error) {
	var res Result
	if s.config.RetentionDays <= 0 {
		return res, nil
	}
	if s.busy != nil && s.busy.Busy() {
		log.Info("Processing run active, skipping cleanup")
		return res, nil
	}

	cutoff := s.now().AddDate(0, 0, -s.config.RetentionDays)
	log.Infof("Cleaning up data older than %s", cutoff.Format("2006-01-02"))

	imageIDs, luminarias, err := s.repo.DeleteOlderThan(cutoff)
	if err != nil {
		return res, fmt.Errorf("failed to delete old records: %w", err)
	}
	res.Luminarias = luminarias
	res.Images = len(imageIDs)

	for _, id := range imageIDs {
		if err := s.blobs.Delete(ctx, id); err != nil && !errors.Is(err, blob.ErrNotFound) {
			log.Warnf("Failed to delete image data %s: %v", id, err)
			res.BlobErrors++
		}
	}

	log.Infof("Cleanup completed: deleted %d luminarias and %d images, encountered %d errors",
		res.Luminarias, res.Images, res.BlobErrors)
	return res, nil
}
