package export

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"

	"luminaria-extractor/internal/core/models"
	"luminaria-extractor/internal/storage/blob"
)

// ZipFolder ist der Ordner im Archiv, unter dem alle Bilder liegen
const ZipFolder = "luminarias_procesadas"

var unsafeCodeChars = regexp.MustCompile(`(?i)[^a-z0-9]`)

// SafeCode bereinigt einen Code für die Verwendung als Dateiname
func SafeCode(code string) string {
	return strings.ToLower(unsafeCodeChars.ReplaceAllString(code, "_"))
}

// EntryBaseName liefert den Dateinamen ohne Endung für ein Bild. Bilder ohne
// verwertbaren Code erhalten no-encontrado_<erste 8 Zeichen der ID>.
func EntryBaseName(img models.ProcessedImage) string {
	code := ""
	if img.ExtractedCode != nil {
		code = *img.ExtractedCode
	}
	safe := SafeCode(code)
	if img.Status != models.StatusSuccess || code == "" || safe == "no_encontrado" {
		id := img.ID
		if len(id) > 8 {
			id = id[:8]
		}
		return "no-encontrado_" + id
	}
	return safe
}

func extension(img models.ProcessedImage) string {
	if ext := strings.TrimPrefix(filepath.Ext(img.FileName), "."); ext != "" {
		return ext
	}
	if img.ContentType == "image/png" {
		return "png"
	}
	return "jpg"
}

// WriteImagesZip schreibt alle verarbeiteten Bilder in ein Zip-Archiv.
// Doppelte Namen erhalten einen Zähler, damit kein Eintrag einen anderen überschreibt.
func WriteImagesZip(ctx context.Context, w io.Writer, images []models.ProcessedImage, store blob.Store) (int, error) {
	selected := make([]models.ProcessedImage, 0, len(images))
	for _, img := range images {
		if img.Status.Processed() {
			selected = append(selected, img)
		}
	}
	if len(selected) == 0 {
		return 0, ErrNoProcessedImages
	}

	log.Infof("Comprimiendo %d imágenes...", len(selected))

	zw := zip.NewWriter(w)
	used := make(map[string]bool, len(selected))
	for _, img := range selected {
		data, err := store.Get(ctx, img.ID)
		if err != nil {
			zw.Close()
			return 0, fmt.Errorf("failed to read image %s: %w", img.ID, err)
		}

		name := uniqueEntryName(used, EntryBaseName(img), extension(img))

		fw, err := zw.Create(path.Join(ZipFolder, name))
		if err != nil {
			zw.Close()
			return 0, fmt.Errorf("failed to create zip entry %s: %w", name, err)
		}
		if _, err := fw.Write(data); err != nil {
			zw.Close()
			return 0, fmt.Errorf("failed to write zip entry %s: %w", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("failed to finish zip archive: %w", err)
	}
	return len(selected), nil
}

// uniqueEntryName hängt _n an, bis der Name noch nicht vergeben ist, und merkt ihn vor
func uniqueEntryName(used map[string]bool, base, ext string) string {
	name := base + "." + ext
	for n := 1; used[name]; n++ {
		name = fmt.Sprintf("%s_%d.%s", base, n, ext)
	}
	used[name] = true
	return name
}
