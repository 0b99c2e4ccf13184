package repository

import (
	"errors"
	"fmt"
	"time"

	"luminaria-extractor/internal/core/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound wird geliefert, wenn ein Datensatz nicht existiert
var ErrNotFound = errors.New("record not found")

// Repository definiert die Schnittstelle für die Datenbank-Operationen
type Repository interface {
	// Image-Methoden
	GetImageByID(id string) (*models.ProcessedImage, error)
	GetImages(status models.Status, limit, offset int) ([]models.ProcessedImage, int64, error)
	GetImagesByIDs(ids []string) ([]models.ProcessedImage, error)
	GetPendingImages(limit int) ([]models.ProcessedImage, error)
	GetProcessedImages() ([]models.ProcessedImage, error)
	CreateImages(images []models.ProcessedImage) error
	SaveImage(image *models.ProcessedImage) error
	DeleteImage(id string) error

	// Luminaria-Methoden
	GetLuminariaByID(id string) (*models.Luminaria, error)
	GetLuminarias() ([]models.Luminaria, error)
	CreateLuminaria(luminaria *models.Luminaria) error
	SaveLuminaria(luminaria *models.Luminaria) error
	DeleteLuminaria(id string) error

	// Wartung
	DeleteOlderThan(cutoff time.Time) (imageIDs []string, luminarias int64, err error)
	ClearAll() error

	// Statistik-Methoden
	GetStatistics() (models.Statistics, error)
}

// SQLiteRepository implementiert die Repository-Schnittstelle für SQLite
type SQLiteRepository struct {
	db *gorm.DB
}

// NewSQLiteRepository erstellt eine neue SQLite-Repository-Instanz
func NewSQLiteRepository(db *gorm.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// uploadOrder sortiert nach Upload-Zeitpunkt, bei Gleichstand in Einfügereihenfolge
const uploadOrder = "created_at ASC, rowid ASC"

func imagesByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("batch_position ASC")
}

// Image-Methoden

// GetImageByID holt ein Bild anhand seiner ID
func (r *SQLiteRepository) GetImageByID(id string) (*models.ProcessedImage, error) {
	var image models.ProcessedImage
	result := r.db.First(&image, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, result.Error
	}
	return &image, nil
}

// GetImages holt Bilder in Upload-Reihenfolge, optional gefiltert nach Status
func (r *SQLiteRepository) GetImages(status models.Status, limit, offset int) ([]models.ProcessedImage, int64, error) {
	var images []models.ProcessedImage
	var total int64

	filtered := func() *gorm.DB {
		q := r.db.Model(&models.ProcessedImage{})
		if status != "" {
			q = q.Where("status = ?", status)
		}
		return q
	}

	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := filtered().Order(uploadOrder)
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	if err := query.Find(&images).Error; err != nil {
		return nil, 0, err
	}

	return images, total, nil
}

// GetImagesByIDs holt mehrere Bilder in der Reihenfolge der übergebenen IDs
func (r *SQLiteRepository) GetImagesByIDs(ids []string) ([]models.ProcessedImage, error) {
	var found []models.ProcessedImage
	if err := r.db.Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}

	byID := make(map[string]models.ProcessedImage, len(found))
	for _, img := range found {
		byID[img.ID] = img
	}
	images := make([]models.ProcessedImage, 0, len(ids))
	for _, id := range ids {
		img, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("image %s: %w", id, ErrNotFound)
		}
		images = append(images, img)
	}
	return images, nil
}

// GetPendingImages holt die ältesten wartenden Bilder
func (r *SQLiteRepository) GetPendingImages(limit int) ([]models.ProcessedImage, error) {
	var images []models.ProcessedImage
	query := r.db.Where("status = ?", models.StatusPending).Order(uploadOrder)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&images).Error; err != nil {
		return nil, err
	}
	return images, nil
}

// GetProcessedImages holt alle Bilder mit Ergebnis (success oder error)
func (r *SQLiteRepository) GetProcessedImages() ([]models.ProcessedImage, error) {
	var images []models.ProcessedImage
	result := r.db.Where("status IN ?", []models.Status{models.StatusSuccess, models.StatusError}).
		Order(uploadOrder).
		Find(&images)
	if result.Error != nil {
		return nil, result.Error
	}
	return images, nil
}

// CreateImages legt neue Bilder in einer Transaktion an
func (r *SQLiteRepository) CreateImages(images []models.ProcessedImage) error {
	if len(images) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		for i := range images {
			if err := tx.Create(&images[i]).Error; err != nil {
				return fmt.Errorf("create image %s: %w", images[i].ID, err)
			}
		}
		return nil
	})
}

// SaveImage speichert ein Bild
func (r *SQLiteRepository) SaveImage(image *models.ProcessedImage) error {
	return r.db.Save(image).Error
}

// DeleteImage löscht ein Bild
func (r *SQLiteRepository) DeleteImage(id string) error {
	result := r.db.Delete(&models.ProcessedImage{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Luminaria-Methoden

// GetLuminariaByID holt einen Datensatz mit seinen Bildern in Positionsreihenfolge
func (r *SQLiteRepository) GetLuminariaByID(id string) (*models.Luminaria, error) {
	var luminaria models.Luminaria
	result := r.db.Preload("Images", imagesByPosition).First(&luminaria, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, result.Error
	}
	return &luminaria, nil
}

// GetLuminarias holt alle Datensätze, neueste zuerst
func (r *SQLiteRepository) GetLuminarias() ([]models.Luminaria, error) {
	var luminarias []models.Luminaria
	result := r.db.Preload("Images", imagesByPosition).
		Order("created_at DESC").
		Find(&luminarias)
	if result.Error != nil {
		return nil, result.Error
	}
	return luminarias, nil
}

// CreateLuminaria legt den Datensatz an und verknüpft seine Bilder in einer Transaktion
func (r *SQLiteRepository) CreateLuminaria(luminaria *models.Luminaria) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(luminaria).Error; err != nil {
			return fmt.Errorf("create luminaria: %w", err)
		}
		for i := range luminaria.Images {
			img := &luminaria.Images[i]
			img.LuminariaID = &luminaria.ID
			img.BatchPosition = i
			if err := tx.Save(img).Error; err != nil {
				return fmt.Errorf("link image %s: %w", img.ID, err)
			}
		}
		return nil
	})
}

// SaveLuminaria speichert die Felder eines Datensatzes, nicht seine Bilder
func (r *SQLiteRepository) SaveLuminaria(luminaria *models.Luminaria) error {
	result := r.db.Omit(clause.Associations).Save(luminaria)
	return result.Error
}

// DeleteLuminaria löscht einen Datensatz und löst die Verknüpfung seiner Bilder
func (r *SQLiteRepository) DeleteLuminaria(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ProcessedImage{}).
			Where("luminaria_id = ?", id).
			Updates(map[string]interface{}{"luminaria_id": nil, "batch_position": 0}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Luminaria{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Wartung

// DeleteOlderThan löscht Datensätze und Bilder, die vor cutoff angelegt wurden.
// Bilder eines jüngeren Datensatzes bleiben erhalten. Geliefert werden die IDs
// der gelöschten Bilder, damit deren Bilddaten entfernt werden können.
func (r *SQLiteRepository) DeleteOlderThan(cutoff time.Time) ([]string, int64, error) {
	var imageIDs []string
	var luminarias int64

	err := r.db.Transaction(func(tx *gorm.DB) error {
		old := tx.Model(&models.Luminaria{}).Select("id").Where("created_at < ?", cutoff)
		if err := tx.Model(&models.ProcessedImage{}).
			Where("luminaria_id IN (?)", old).
			Update("luminaria_id", nil).Error; err != nil {
			return err
		}
		result := tx.Where("created_at < ?", cutoff).Delete(&models.Luminaria{})
		if result.Error != nil {
			return result.Error
		}
		luminarias = result.RowsAffected

		if err := tx.Model(&models.ProcessedImage{}).
			Where("created_at < ? AND luminaria_id IS NULL", cutoff).
			Pluck("id", &imageIDs).Error; err != nil {
			return err
		}
		if len(imageIDs) == 0 {
			return nil
		}
		return tx.Where("id IN ?", imageIDs).Delete(&models.ProcessedImage{}).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return imageIDs, luminarias, nil
}

// ClearAll löscht alle Bilder und Datensätze
func (r *SQLiteRepository) ClearAll() error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.ProcessedImage{}).Error; err != nil {
			return err
		}
		return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Luminaria{}).Error
	})
}

// Statistik-Methoden

// GetStatistics gibt Statistiken über die gespeicherten Daten zurück
func (r *SQLiteRepository) GetStatistics() (models.Statistics, error) {
	stats := models.Statistics{ImagesByStatus: map[models.Status]int64{}}

	if err := r.db.Model(&models.ProcessedImage{}).Count(&stats.TotalImages).Error; err != nil {
		return stats, err
	}

	var rows []struct {
		Status models.Status
		Count  int64
	}
	if err := r.db.Model(&models.ProcessedImage{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return stats, err
	}
	for _, row := range rows {
		stats.ImagesByStatus[row.Status] = row.Count
	}

	if err := r.db.Model(&models.Luminaria{}).Count(&stats.TotalLuminarias).Error; err != nil {
		return stats, err
	}
	if err := r.db.Model(&models.Luminaria{}).Where("aprobado = ?", true).Count(&stats.Approved).Error; err != nil {
		return stats, err
	}

	return stats, nil
}
