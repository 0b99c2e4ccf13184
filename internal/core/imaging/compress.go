// Package imaging verkleinert Bilder vor dem Upload an den Inferenzdienst.
package imaging

import (
	"bytes"
	"net/http"

	"github.com/disintegration/imaging"
	log "github.com/sirupsen/logrus"

	"luminaria-extractor/config"
)

const (
	ContentTypePNG  = "image/png"
	ContentTypeJPEG = "image/jpeg"
)

// Compressor skaliert Bilder auf die konfigurierten Grenzen
type Compressor struct {
	cfg config.ImagingConfig
}

// NewCompressor erstellt einen Compressor
func NewCompressor(cfg config.ImagingConfig) *Compressor {
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = 70
	}
	return &Compressor{cfg: cfg}
}

// Compress liefert die neu kodierten Bilddaten und ihren Content-Type.
// Querformat wird auf MaxWidth begrenzt, sonst auf MaxHeight. PNG bleibt PNG,
// alles andere wird JPEG. Nicht dekodierbare Daten werden unverändert zurückgegeben.
func (c *Compressor) Compress(data []byte, contentType string) ([]byte, string) {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if !c.cfg.Enabled {
		return data, contentType
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		log.Debugf("Image not decodable, keeping original (%s): %v", contentType, err)
		return data, contentType
	}

	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width > height {
		if c.cfg.MaxWidth > 0 && width > c.cfg.MaxWidth {
			img = imaging.Resize(img, c.cfg.MaxWidth, 0, imaging.Lanczos)
		}
	} else if c.cfg.MaxHeight > 0 && height > c.cfg.MaxHeight {
		img = imaging.Resize(img, 0, c.cfg.MaxHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	outType := ContentTypeJPEG
	if contentType == ContentTypePNG {
		outType = ContentTypePNG
		err = imaging.Encode(&buf, img, imaging.PNG)
	} else {
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(c.cfg.JPEGQuality))
	}
	if err != nil {
		log.Warnf("Failed to encode resized image, keeping original: %v", err)
		return data, contentType
	}

	log.Debugf("Compressed image %dx%d -> %dx%d (%d -> %d bytes)",
		width, height, img.Bounds().Dx(), img.Bounds().Dy(), len(data), buf.Len())
	return buf.Bytes(), outType
}
