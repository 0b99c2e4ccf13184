package models

import (
	"time"

	"gorm.io/datatypes"
)

// NotFoundCode ist der kanonische Marker für "kein Code extrahiert"
const NotFoundCode = "No encontrado"

// Status beschreibt den Verarbeitungszustand eines Bildes
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)

// Processed meldet, ob für den Status ein Ergebnis vorliegen muss
func (s Status) Processed() bool {
	return s == StatusSuccess || s == StatusError
}

// Coincidencia ist das Urteil über die Übereinstimmung der Codes eines Loses
type Coincidencia string

const (
	CoincidenciaSi        Coincidencia = "si"
	CoincidenciaNo        Coincidencia = "no"
	CoincidenciaPendiente Coincidencia = "pendiente"
	CoincidenciaNA        Coincidencia = "n/a"
)

// Valid prüft, ob der Wert eines der vier Urteile ist
func (c Coincidencia) Valid() bool {
	switch c {
	case CoincidenciaSi, CoincidenciaNo, CoincidenciaPendiente, CoincidenciaNA:
		return true
	}
	return false
}

// Detection ist eine vom Inferenzdienst gefundene Box
type Detection struct {
	Class       string  `json:"class"`
	Confidence  float64 `json:"confidence"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	ClassID     int     `json:"class_id"`
	DetectionID string  `json:"detection_id"`
	ParentID    string  `json:"parent_id"`
}

// ExtractionResult ist das Ergebnis der Verarbeitung eines Bildes
type ExtractionResult struct {
	ExtractedCode string      `json:"extractedCode"`
	Predictions   []Detection `json:"predictions"`
}

// ProcessedImage ist ein hochgeladenes Bild mit seinem Verarbeitungszustand.
// Die Bilddaten selbst liegen im Blob-Speicher unter derselben ID.
type ProcessedImage struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	FileName    string    `gorm:"not null" json:"fileName"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	Status      Status    `gorm:"index;not null;default:'pending'" json:"status"`
	SourceURL   string    `json:"sourceUrl,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// Ergebnisfelder, nur gesetzt wenn Status success oder error ist
	ExtractedCode *string                        `json:"-"`
	Predictions   datatypes.JSONSlice[Detection] `gorm:"type:json" json:"-"`

	// Zugehörigkeit zu einem Los (nil solange keins gebildet wurde)
	LuminariaID   *string `gorm:"index;size:64" json:"luminariaId,omitempty"`
	BatchPosition int     `json:"batchPosition"`
}

// Result liefert das Extraktionsergebnis oder nil, solange das Bild nicht verarbeitet ist
func (img *ProcessedImage) Result() *ExtractionResult {
	if img == nil || img.ExtractedCode == nil {
		return nil
	}
	preds := make([]Detection, len(img.Predictions))
	copy(preds, img.Predictions)
	return &ExtractionResult{ExtractedCode: *img.ExtractedCode, Predictions: preds}
}

// SetResult setzt Status und Ergebnis in einem Schritt
func (img *ProcessedImage) SetResult(status Status, result ExtractionResult) {
	code := result.ExtractedCode
	img.Status = status
	img.ExtractedCode = &code
	if result.Predictions == nil {
		result.Predictions = []Detection{}
	}
	img.Predictions = datatypes.JSONSlice[Detection](result.Predictions)
}

// Luminaria ist der konsolidierte Datensatz einer physischen Leuchte (1 oder 3 Bilder)
type Luminaria struct {
	ID             string       `gorm:"primaryKey;size:64" json:"id"`
	Coincidencia   Coincidencia `gorm:"not null" json:"coincidencia"`
	TipoIluminaria *string      `json:"tipoIluminaria"`
	Watts          *int         `json:"watts"`
	Aprobado       bool         `gorm:"not null;default:false" json:"aprobado"`
	CreatedAt      time.Time    `gorm:"index" json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`

	// Bilder werden über LuminariaID referenziert, nicht kopiert
	Images []ProcessedImage `gorm:"foreignKey:LuminariaID" json:"processedImages"`
}

// Statistics fasst den aktuellen Bestand zusammen
type Statistics struct {
	TotalImages     int64            `json:"totalImages"`
	ImagesByStatus  map[Status]int64 `json:"imagesByStatus"`
	TotalLuminarias int64            `json:"totalLuminarias"`
	Approved        int64            `json:"approved"`
}
