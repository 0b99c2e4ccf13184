// Package batch konsolidiert eine Gruppe von 1 oder 3 verarbeiteten Bildern zu
// einem Leuchtendatensatz.
package batch

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"luminaria-extractor/internal/core/codes"
	"luminaria-extractor/internal/core/labels"
	"luminaria-extractor/internal/core/models"
)

// Marker, die eine Detektion zum Kandidaten für Typ und Leistung machen
const (
	markerLuminaria = "LUMINARIA"
	markerBrazo     = "BRAZO"
)

// Summary ist das zeitunabhängige Ergebnis der Konsolidierung
type Summary struct {
	Coincidencia   models.Coincidencia
	TipoIluminaria *string
	Watts          *int
	Best           *models.Detection
}

// IsCandidate meldet, ob eine Klasse Typ- oder Leistungsinformation trägt
func IsCandidate(class string) bool {
	return strings.Contains(class, markerLuminaria) || strings.Contains(class, markerBrazo)
}

// BestPrediction sucht über alle Bilder der Gruppe die Kandidatendetektion mit der
// höchsten Konfidenz. Gleichstände entscheidet tb.
func BestPrediction(group []models.ProcessedImage, tb TieBreak) *models.Detection {
	var best *models.Detection
	for i := range group {
		res := group[i].Result()
		if res == nil {
			continue
		}
		for j := range res.Predictions {
			d := res.Predictions[j]
			if !IsCandidate(d.Class) {
				continue
			}
			if best == nil || tb.wins(d.Confidence, best.Confidence) {
				best = &d
			}
		}
	}
	return best
}

// Verdict berechnet die Übereinstimmung der extrahierten Codes einer Gruppe
func Verdict(group []models.ProcessedImage) models.Coincidencia {
	switch len(group) {
	case 0:
		return models.CoincidenciaPendiente
	case 1:
		return models.CoincidenciaNA
	}

	present := PresentCodes(group)
	if len(present) < 2 {
		return models.CoincidenciaPendiente
	}
	for _, c := range present[1:] {
		if c != present[0] {
			return models.CoincidenciaNo
		}
	}
	return models.CoincidenciaSi
}

// PresentCodes liefert die Codes der Gruppe ohne leere und "No encontrado"-Werte.
// Die Codes werden nicht getrimmt; verglichen wird exakt.
func PresentCodes(group []models.ProcessedImage) []string {
	out := make([]string, 0, len(group))
	for i := range group {
		if group[i].ExtractedCode == nil {
			continue
		}
		code := *group[i].ExtractedCode
		if codes.IsAbsent(code) {
			continue
		}
		out = append(out, code)
	}
	return out
}

// Summarize wertet eine Gruppe aus, ohne ID oder Zeitstempel zu vergeben
func Summarize(group []models.ProcessedImage, tb TieBreak) Summary {
	s := Summary{Coincidencia: Verdict(group)}
	if best := BestPrediction(group, tb); best != nil {
		s.Best = best
		s.TipoIluminaria = labels.TipoPtr(best.Class)
		s.Watts = labels.WattsPtr(best.Class)
	}
	return s
}

// Consolidate erstellt den Leuchtendatensatz für eine Gruppe. Die Bilder werden in
// ihrer Reihenfolge referenziert (0 = Panorama, 1 = Code, 2 = Datenblatt).
func Consolidate(group []models.ProcessedImage, tb TieBreak) models.Luminaria {
	s := Summarize(group, tb)
	id := NewLuminariaID(time.Now())

	images := make([]models.ProcessedImage, len(group))
	for i := range group {
		images[i] = group[i]
		images[i].LuminariaID = &id
		images[i].BatchPosition = i
	}

	return models.Luminaria{
		ID:             id,
		Coincidencia:   s.Coincidencia,
		TipoIluminaria: s.TipoIluminaria,
		Watts:          s.Watts,
		Aprobado:       false,
		Images:         images,
	}
}

// Apply überträgt eine neue Auswertung auf einen bestehenden Datensatz.
// Die Freigabe bleibt erhalten.
func Apply(l *models.Luminaria, s Summary) {
	l.Coincidencia = s.Coincidencia
	l.TipoIluminaria = s.TipoIluminaria
	l.Watts = s.Watts
}

// NewLuminariaID erzeugt eine ID aus Zeitstempel und UUID-Fragment
func NewLuminariaID(now time.Time) string {
	return fmt.Sprintf("lum-%d-%s", now.UnixMilli(), uuid.NewString()[:8])
}
