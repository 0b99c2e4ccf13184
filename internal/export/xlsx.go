// Package export erzeugt Tabellen- und Archivexporte aus bereits berechneten Daten.
package export

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"luminaria-extractor/internal/core/batch"
	"luminaria-extractor/internal/core/codes"
	"luminaria-extractor/internal/core/labels"
	"luminaria-extractor/internal/core/models"
)

const (
	SheetLuminarias = "Luminarias"
	SheetImages     = "Imagenes Individuales"

	notAvailable = "N/A"
)

var (
	// ErrNoLuminarias: es gibt keine Datensätze für den Export
	ErrNoLuminarias = errors.New("No hay datos procesados para exportar.")
	// ErrNoProcessedImages: es gibt keine verarbeiteten Bilder für den Export
	ErrNoProcessedImages = errors.New("No hay imágenes procesadas para exportar.")
)

// BatchHeader sind die Spalten des Los-Exports
var BatchHeader = []interface{}{
	"Codigo Seleccionado", "Coincidencia", "Tipo de Iluminaria", "Watts", "Aprobado",
	"URL Panoramica", "URL Codigo", "URL Ficha",
}

// WriteBatchWorkbook schreibt eine Zeile je Datensatz
func WriteBatchWorkbook(w io.Writer, luminarias []models.Luminaria, tb batch.TieBreak) error {
	if len(luminarias) == 0 {
		return ErrNoLuminarias
	}

	rows := make([][]interface{}, 0, len(luminarias))
	for _, l := range luminarias {
		rows = append(rows, BatchRow(l, tb))
	}
	return writeSheet(w, SheetLuminarias, BatchHeader, rows)
}

// BatchRow baut die Exportzeile eines Datensatzes
func BatchRow(l models.Luminaria, tb batch.TieBreak) []interface{} {
	code, ok := batch.BestCode(l.Images, tb)
	if !ok {
		code = notAvailable
	}

	var tipo interface{} = notAvailable
	if l.TipoIluminaria != nil && *l.TipoIluminaria != "" {
		tipo = *l.TipoIluminaria
	}
	var watts interface{} = notAvailable
	if l.Watts != nil && *l.Watts != 0 {
		watts = *l.Watts
	}
	aprobado := "No"
	if l.Aprobado {
		aprobado = "Sí"
	}

	return []interface{}{
		code,
		string(l.Coincidencia),
		tipo,
		watts,
		aprobado,
		sourceURLAt(l.Images, 0),
		sourceURLAt(l.Images, 1),
		sourceURLAt(l.Images, 2),
	}
}

func sourceURLAt(images []models.ProcessedImage, i int) string {
	if i < len(images) && images[i].SourceURL != "" {
		return images[i].SourceURL
	}
	return notAvailable
}

// RankedPredictions liefert die Detektionen ohne einzelne Zeichen, nach
// absteigender Konfidenz sortiert. Gleichstände behalten die Lieferreihenfolge.
func RankedPredictions(predictions []models.Detection) []models.Detection {
	out := make([]models.Detection, 0, len(predictions))
	for _, p := range predictions {
		if codes.IsCharacterClass(p.Class) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

// WriteImagesWorkbook schreibt eine Zeile je verarbeitetem Bild mit den
// sortierten Vorhersagen als Spaltenpaare
func WriteImagesWorkbook(w io.Writer, images []models.ProcessedImage) error {
	rows := make([][]interface{}, 0, len(images))
	maxPredictions := 0

	for _, img := range images {
		if !img.Status.Processed() {
			continue
		}
		row, n := imageRow(img)
		rows = append(rows, row)
		if n > maxPredictions {
			maxPredictions = n
		}
	}
	if len(rows) == 0 {
		return ErrNoProcessedImages
	}

	header := []interface{}{
		"Nombre de Archivo", "Codigo Extraido", "Status",
		"Tipo de Iluminaria (sugerido)", "Watts (sugerido)",
	}
	for i := 1; i <= maxPredictions; i++ {
		header = append(header, fmt.Sprintf("Prediccion %d", i), fmt.Sprintf("Confianza %d", i))
	}
	return writeSheet(w, SheetImages, header, rows)
}

func imageRow(img models.ProcessedImage) ([]interface{}, int) {
	code := notAvailable
	var predictions []models.Detection
	if res := img.Result(); res != nil {
		if res.ExtractedCode != "" {
			code = res.ExtractedCode
		}
		predictions = res.Predictions
	}

	ranked := RankedPredictions(predictions)

	var tipo, watts interface{} = notAvailable, notAvailable
	if len(ranked) > 0 {
		if t, ok := labels.ExtractTipo(ranked[0].Class); ok {
			tipo = t
		}
		if n, ok := labels.ExtractWatts(ranked[0].Class); ok {
			watts = n
		}
	}

	row := []interface{}{img.FileName, code, string(img.Status), tipo, watts}
	for _, p := range ranked {
		row = append(row, p.Class, FormatConfidence(p.Confidence))
	}
	return row, len(ranked)
}

// FormatConfidence formatiert eine Konfidenz als Prozent mit einer Nachkommastelle
func FormatConfidence(c float64) string {
	return fmt.Sprintf("%.1f%%", c*100)
}

func writeSheet(w io.Writer, sheet string, header []interface{}, rows [][]interface{}) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
