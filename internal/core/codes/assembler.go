// Package codes setzt aus den Detektionen eines Bildes den Identifikationscode zusammen.
package codes

import (
	"regexp"
	"sort"
	"strings"

	"luminaria-extractor/internal/core/models"
)

var characterClass = regexp.MustCompile(`(?i)^[0-9A-Z]$`)

// IsCharacterClass meldet, ob die Klasse genau ein Buchstabe oder eine Ziffer ist
func IsCharacterClass(class string) bool {
	return characterClass.MatchString(class)
}

// Assembler baut Codes anhand einer Präfixtabelle
type Assembler struct {
	prefixes *PrefixTable
}

// NewAssembler erstellt einen Assembler; nil ergibt eine leere Tabelle
func NewAssembler(prefixes *PrefixTable) *Assembler {
	if prefixes == nil {
		prefixes = EmptyPrefixTable()
	}
	return &Assembler{prefixes: prefixes}
}

// Assemble liefert den Code für die Detektionen eines Bildes oder NotFoundCode.
//
// Unter mehreren Präfixkandidaten gewinnt die höchste Konfidenz, bei Gleichstand
// der zuerst gelieferte. Die Zeichen werden nach x aufsteigend gelesen; bei gleichem
// x entscheiden y, Klasse und detection_id, damit das Ergebnis nicht von der
// Lieferreihenfolge abhängt.
func (a *Assembler) Assemble(detections []models.Detection) string {
	prefix := ""
	bestConfidence := 0.0
	havePrefix := false

	characters := make([]models.Detection, 0, len(detections))
	for _, d := range detections {
		if p, ok := a.prefixes.Lookup(d.Class); ok {
			if !havePrefix || d.Confidence > bestConfidence {
				prefix = p
				bestConfidence = d.Confidence
				havePrefix = true
			}
			continue
		}
		if IsCharacterClass(d.Class) {
			characters = append(characters, d)
		}
	}

	sort.SliceStable(characters, func(i, j int) bool {
		a, b := characters[i], characters[j]
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		return a.DetectionID < b.DetectionID
	})

	var sb strings.Builder
	sb.WriteString(prefix)
	for _, c := range characters {
		sb.WriteString(c.Class)
	}

	if sb.Len() == 0 {
		return models.NotFoundCode
	}
	return sb.String()
}

// IsAbsent meldet, ob ein Code als "nicht vorhanden" gilt: leer, nur Leerzeichen
// oder der Marker "No encontrado" in beliebiger Schreibweise.
func IsAbsent(code string) bool {
	trimmed := strings.TrimSpace(code)
	return trimmed == "" || strings.EqualFold(trimmed, models.NotFoundCode)
}
