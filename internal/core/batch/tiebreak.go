package batch

import (
	"fmt"
	"strings"
)

// TieBreak legt fest, welcher von mehreren gleichwertigen Kandidaten gewinnt.
// Gilt für die Auswahl der besten Vorhersage und für den Mehrheitscode.
type TieBreak string

const (
	// TieBreakFirstSeen: der in Eingabereihenfolge zuerst gesehene Kandidat gewinnt
	TieBreakFirstSeen TieBreak = "first_seen"
	// TieBreakLastSeen: der zuletzt gesehene Kandidat gewinnt
	TieBreakLastSeen TieBreak = "last_seen"
)

// ParseTieBreak wandelt einen Konfigurationswert um; leer ergibt first_seen
func ParseTieBreak(s string) (TieBreak, error) {
	switch TieBreak(strings.ToLower(strings.TrimSpace(s))) {
	case "", TieBreakFirstSeen:
		return TieBreakFirstSeen, nil
	case TieBreakLastSeen:
		return TieBreakLastSeen, nil
	}
	return "", fmt.Errorf("unknown tie break %q, want %q or %q", s, TieBreakFirstSeen, TieBreakLastSeen)
}

// wins meldet, ob ein Kandidat mit Wert v den bisherigen Bestwert best ablöst
func (tb TieBreak) wins(v, best float64) bool {
	if tb == TieBreakLastSeen {
		return v >= best
	}
	return v > best
}
