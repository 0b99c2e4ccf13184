// Package blob speichert die Rohdaten der Bilder unter ihrer Bild-ID.
package blob

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"luminaria-extractor/config"
)

// ErrNotFound wird geliefert, wenn unter dem Schlüssel keine Daten liegen
var ErrNotFound = errors.New("blob not found")

// ErrInvalidKey wird für Schlüssel mit Pfadzeichen geliefert
var ErrInvalidKey = errors.New("invalid blob key")

var validKey = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Store ist ein Schlüssel-Wert-Speicher für Bilddaten. Letzter Schreiber gewinnt.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

func checkKey(key string) error {
	if key == "" || key == "." || key == ".." || !validKey.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// New erstellt das konfigurierte Backend
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "", "filesystem":
		return NewFileStore(cfg.Dir)
	case "minio":
		return NewMinIOStore(ctx, cfg.MinIO)
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}
