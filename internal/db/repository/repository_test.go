package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luminaria-extractor/internal/core/models"
	"luminaria-extractor/internal/db"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewSQLiteRepository(conn)
}

func pendingImages(ids ...string) []models.ProcessedImage {
	out := make([]models.ProcessedImage, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.ProcessedImage{ID: id, FileName: id + ".jpg", Status: models.StatusPending})
	}
	return out
}

func TestImageLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.CreateImages(pendingImages("c", "a", "b")))

	pending, err := repo.GetPendingImages(2)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "c", pending[0].ID, "upload order, not id order")
	assert.Equal(t, "a", pending[1].ID)

	img, err := repo.GetImageByID("a")
	require.NoError(t, err)
	assert.Nil(t, img.Result())

	img.SetResult(models.StatusSuccess, models.ExtractionResult{
		ExtractedCode: "AB12",
		Predictions:   []models.Detection{{Class: "A", Confidence: 0.9, DetectionID: "d1"}},
	})
	require.NoError(t, repo.SaveImage(img))

	reloaded, err := repo.GetImageByID("a")
	require.NoError(t, err)
	require.NotNil(t, reloaded.Result())
	assert.Equal(t, "AB12", reloaded.Result().ExtractedCode)
	assert.Equal(t, "d1", reloaded.Result().Predictions[0].DetectionID)

	processed, err := repo.GetProcessedImages()
	require.NoError(t, err)
	require.Len(t, processed, 1)

	images, total, err := repo.GetImages(models.StatusPending, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, images, 2)

	_, err = repo.GetImageByID("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.DeleteImage("missing"), ErrNotFound)
	assert.NoError(t, repo.DeleteImage("b"))
}

func TestPendingImagesFollowUploadTime(t *testing.T) {
	repo := newTestRepo(t)
	base := time.Now().Add(-time.Hour)

	late := pendingImages("late")
	late[0].CreatedAt = base.Add(time.Second)
	require.NoError(t, repo.CreateImages(late))

	early := pendingImages("early", "early-2")
	early[0].CreatedAt = base
	early[1].CreatedAt = base
	require.NoError(t, repo.CreateImages(early))

	pending, err := repo.GetPendingImages(0)
	require.NoError(t, err)
	ids := make([]string, 0, len(pending))
	for _, img := range pending {
		ids = append(ids, img.ID)
	}
	assert.Equal(t, []string{"early", "early-2", "late"}, ids)
}

func TestGetImagesByIDsKeepsOrder(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.CreateImages(pendingImages("x", "y", "z")))

	images, err := repo.GetImagesByIDs([]string{"z", "x"})
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, "z", images[0].ID)
	assert.Equal(t, "x", images[1].ID)

	_, err = repo.GetImagesByIDs([]string{"x", "nope"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLuminariaReferencesImages(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.CreateImages(pendingImages("p", "c", "f")))

	group, err := repo.GetImagesByIDs([]string{"p", "c", "f"})
	require.NoError(t, err)
	for i := range group {
		group[i].SetResult(models.StatusSuccess, models.ExtractionResult{ExtractedCode: "AB12"})
	}

	lum := &models.Luminaria{ID: "lum-1", Coincidencia: models.CoincidenciaSi, Images: group}
	require.NoError(t, repo.CreateLuminaria(lum))

	// Bearbeitung am Bild ist über den Datensatz sichtbar
	img, err := repo.GetImageByID("c")
	require.NoError(t, err)
	code := "ZZ99"
	img.ExtractedCode = &code
	require.NoError(t, repo.SaveImage(img))

	loaded, err := repo.GetLuminariaByID("lum-1")
	require.NoError(t, err)
	require.Len(t, loaded.Images, 3)
	assert.Equal(t, "p", loaded.Images[0].ID)
	assert.Equal(t, "c", loaded.Images[1].ID)
	assert.Equal(t, "f", loaded.Images[2].ID)
	assert.Equal(t, "ZZ99", *loaded.Images[1].ExtractedCode)

	watts := 70
	loaded.Watts = &watts
	loaded.Aprobado = true
	require.NoError(t, repo.SaveLuminaria(loaded))

	all, err := repo.GetLuminarias()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Aprobado)
	assert.Equal(t, 70, *all[0].Watts)

	stats, err := repo.GetStatistics()
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalImages)
	assert.EqualValues(t, 3, stats.ImagesByStatus[models.StatusSuccess])
	assert.EqualValues(t, 1, stats.TotalLuminarias)
	assert.EqualValues(t, 1, stats.Approved)

	require.NoError(t, repo.DeleteLuminaria("lum-1"))
	img, err = repo.GetImageByID("p")
	require.NoError(t, err)
	assert.Nil(t, img.LuminariaID)
	assert.ErrorIs(t, repo.DeleteLuminaria("lum-1"), ErrNotFound)
}

func TestDeleteOlderThan(t *testing.T) {
	repo := newTestRepo(t)
	old := time.Now().Add(-48 * time.Hour)

	images := pendingImages("old-free", "old-linked", "new")
	images[0].CreatedAt = old
	images[1].CreatedAt = old
	require.NoError(t, repo.CreateImages(images))

	linked, err := repo.GetImagesByIDs([]string{"old-linked"})
	require.NoError(t, err)
	require.NoError(t, repo.CreateLuminaria(&models.Luminaria{
		ID:           "lum-new",
		Coincidencia: models.CoincidenciaNA,
		Images:       linked,
	}))

	deleted, lums, err := repo.DeleteOlderThan(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"old-free"}, deleted)
	assert.EqualValues(t, 0, lums)

	_, err = repo.GetImageByID("old-linked")
	assert.NoError(t, err, "image of a recent record is kept")
}

func TestClearAll(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.CreateImages(pendingImages("a")))
	require.NoError(t, repo.CreateLuminaria(&models.Luminaria{ID: "l", Coincidencia: models.CoincidenciaPendiente}))

	require.NoError(t, repo.ClearAll())

	stats, err := repo.GetStatistics()
	require.NoError(t, err)
	assert.Zero(t, stats.TotalImages)
	assert.Zero(t, stats.TotalLuminarias)
}
