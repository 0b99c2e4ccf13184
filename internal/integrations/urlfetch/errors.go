package urlfetch

import (
	"errors"
	"fmt"
)

var (
	// ErrNoURLs wird geliefert, wenn nach dem Entfernen leerer Zeilen keine URL übrig bleibt
	ErrNoURLs = errors.New("Por favor, introduce al menos una URL.")
	// ErrNotDriveURL: die URL ist kein Freigabelink von Google Drive
	ErrNotDriveURL = errors.New("not a google drive share url")
	// ErrBadStatus: der Proxy antwortete nicht mit 200
	ErrBadStatus = errors.New("unexpected status")
	// ErrProxyHTML: der Proxy lieferte eine HTML-Fehlerseite statt eines Bildes
	ErrProxyHTML = errors.New("proxy returned html")
	// ErrTimeout: der Download dauerte länger als erlaubt
	ErrTimeout = errors.New("download timed out")
)

// Error beschreibt einen fehlgeschlagenen Download. Error() liefert den
// anzeigbaren Text.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	switch {
	case errors.Is(e.Err, ErrNotDriveURL):
		return fmt.Sprintf("URL inválida o no es de Google Drive: %s", e.URL)
	case errors.Is(e.Err, ErrBadStatus):
		return fmt.Sprintf("Error al descargar la imagen de %s. Status: %d", e.URL, e.StatusCode)
	case errors.Is(e.Err, ErrProxyHTML):
		return fmt.Sprintf("El proxy devolvió un error para la URL: %s. Verifica el enlace.", e.URL)
	case errors.Is(e.Err, ErrTimeout):
		return "La descarga tardó demasiado y fue cancelada. Inténtalo de nuevo."
	}
	return "Ocurrió un error al cargar las imágenes."
}

func (e *Error) Unwrap() error { return e.Err }
