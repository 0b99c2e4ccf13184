// Package labels liest Leistung und Leuchtentyp aus Klassifizierungslabels.
package labels

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// _70_W, _150W, _70, -70 am Ende des Labels
	wattsPattern = regexp.MustCompile(`(?i)(?:_|-)(\d+)(?:_?W)?$`)
	// beliebige Ziffernfolge am Ende, z.B. BRAZO_AZUL70
	wattsFallbackPattern = regexp.MustCompile(`(\d+)$`)

	tipoPattern       = regexp.MustCompile(`(?i)(LUMINARIA_[A-Z_]+)`)
	tipoWattsSuffix   = regexp.MustCompile(`_(\d+)_?W?$`)
	tipoTrailingUnder = regexp.MustCompile(`_$`)
)

// TipoMarker muss im Label vorkommen, damit ein Typ extrahiert wird
const TipoMarker = "LUMINARIA"

// ExtractWatts sucht eine Wattzahl im Label.
// Endet ein Label zufällig auf Ziffern, die keine Leistung sind, wird trotzdem
// eine Zahl geliefert. Ziffernfolgen, die nicht in int passen, gelten als kein Treffer.
func ExtractWatts(label string) (int, bool) {
	if label == "" {
		return 0, false
	}

	if m := wattsPattern.FindStringSubmatch(label); m != nil && m[1] != "" {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n, true
		}
		return 0, false
	}

	if m := wattsFallbackPattern.FindString(label); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			return n, true
		}
	}

	return 0, false
}

// ExtractTipo liefert den Leuchtentyp, z.B. "LUMINARIA_SODIO" aus "A_LUMINARIA_SODIO_70_W"
func ExtractTipo(label string) (string, bool) {
	if label == "" || !strings.Contains(label, TipoMarker) {
		return "", false
	}

	m := tipoPattern.FindStringSubmatch(label)
	if m == nil || m[1] == "" {
		return "", false
	}

	tipo := tipoWattsSuffix.ReplaceAllString(m[1], "")
	tipo = tipoTrailingUnder.ReplaceAllString(tipo, "")
	return tipo, true
}

// WattsPtr ist ExtractWatts mit nil für "nicht gefunden"
func WattsPtr(label string) *int {
	if n, ok := ExtractWatts(label); ok {
		return &n
	}
	return nil
}

// TipoPtr ist ExtractTipo mit nil für "nicht gefunden"
func TipoPtr(label string) *string {
	if t, ok := ExtractTipo(label); ok {
		return &t
	}
	return nil
}
