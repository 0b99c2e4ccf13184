package models

import "encoding/json"

// imageJSON ist die Drahtform eines Bildes für den Browser
type imageJSON struct {
	ID              string            `json:"id"`
	FileName        string            `json:"fileName"`
	ContentType     string            `json:"contentType"`
	Size            int64             `json:"size"`
	Status          Status            `json:"status"`
	SourceURL       string            `json:"sourceUrl,omitempty"`
	ExtractedResult *ExtractionResult `json:"extractedResult"`
	LuminariaID     *string           `json:"luminariaId,omitempty"`
	BatchPosition   int               `json:"batchPosition"`
	CreatedAt       string            `json:"createdAt"`
}

// MarshalJSON gibt das Ergebnis verschachtelt als extractedResult aus
func (img ProcessedImage) MarshalJSON() ([]byte, error) {
	return json.Marshal(imageJSON{
		ID:              img.ID,
		FileName:        img.FileName,
		ContentType:     img.ContentType,
		Size:            img.Size,
		Status:          img.Status,
		SourceURL:       img.SourceURL,
		ExtractedResult: img.Result(),
		LuminariaID:     img.LuminariaID,
		BatchPosition:   img.BatchPosition,
		CreatedAt:       img.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}
