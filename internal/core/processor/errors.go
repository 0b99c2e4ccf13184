package processor

import "errors"

var (
	// ErrBatchInProgress: es läuft bereits ein Verarbeitungslauf
	ErrBatchInProgress = errors.New("a processing run is already in progress")
	// ErrNotEnoughImages: für das Los fehlen wartende Bilder
	ErrNotEnoughImages = errors.New("not enough pending images for a batch")
	// ErrNoPendingImages: es gibt keine wartenden Bilder
	ErrNoPendingImages = errors.New("no pending images")
	// ErrInvalidBatchSize: Losgröße ist weder 1 noch 3
	ErrInvalidBatchSize = errors.New("batch size must be 1 or 3")
	// ErrNotProcessed: das Bild hat noch kein Ergebnis, das bearbeitet werden könnte
	ErrNotProcessed = errors.New("image has not been processed")
	// ErrDetectionNotFound: keine Detektion mit dieser ID im Bild
	ErrDetectionNotFound = errors.New("detection not found")
	// ErrInvalidCoincidencia: unbekanntes Urteil
	ErrInvalidCoincidencia = errors.New("invalid coincidencia value")
	// ErrNoImages: die Anfrage enthielt keine Bilder
	ErrNoImages = errors.New("no images supplied")
	// ErrImageInLuminaria: das Bild gehört zu einem Datensatz und kann nicht einzeln gelöscht werden
	ErrImageInLuminaria = errors.New("image belongs to a luminaria")
)

// unknownErrorMessage wird angezeigt, wenn ein Fehler keinen Text hat
const unknownErrorMessage = "Error desconocido"
