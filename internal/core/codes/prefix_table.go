package codes

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	// ErrDuplicatePrefixLabel wird gemeldet, wenn zwei Einträge dasselbe Label tragen
	ErrDuplicatePrefixLabel = errors.New("duplicate prefix label")
	// ErrOverlappingPrefixLabel wird gemeldet, wenn sich zwei Labels nur in Leerzeichen oder Groß-/Kleinschreibung unterscheiden
	ErrOverlappingPrefixLabel = errors.New("overlapping prefix labels")
	// ErrInvalidPrefix wird für leere Labels oder Präfixe ungleich einem Buchstaben gemeldet
	ErrInvalidPrefix = errors.New("invalid prefix entry")
)

var singleLetter = regexp.MustCompile(`^[A-Za-z]$`)

// PrefixEntry ordnet ein exaktes Detektionslabel einem Präfixbuchstaben zu
type PrefixEntry struct {
	Label  string
	Prefix string
}

// PrefixTable ist die unveränderliche, validierte Zuordnung Label -> Präfix.
// Labels werden exakt verglichen, inklusive Leerzeichen.
type PrefixTable struct {
	entries []PrefixEntry
	byLabel map[string]string
}

// NewPrefixTable validiert die Einträge und baut die Tabelle auf
func NewPrefixTable(entries []PrefixEntry) (*PrefixTable, error) {
	t := &PrefixTable{
		entries: make([]PrefixEntry, 0, len(entries)),
		byLabel: make(map[string]string, len(entries)),
	}
	normalized := make(map[string]string, len(entries))

	for i, e := range entries {
		if e.Label == "" {
			return nil, fmt.Errorf("%w: entry %d has an empty label", ErrInvalidPrefix, i)
		}
		if !singleLetter.MatchString(e.Prefix) {
			return nil, fmt.Errorf("%w: label %q maps to %q, want a single letter", ErrInvalidPrefix, e.Label, e.Prefix)
		}
		if _, dup := t.byLabel[e.Label]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePrefixLabel, e.Label)
		}
		key := normalizeLabel(e.Label)
		if other, overlap := normalized[key]; overlap {
			return nil, fmt.Errorf("%w: %q and %q", ErrOverlappingPrefixLabel, other, e.Label)
		}

		normalized[key] = e.Label
		t.byLabel[e.Label] = e.Prefix
		t.entries = append(t.entries, e)
	}

	return t, nil
}

// EmptyPrefixTable liefert eine Tabelle ohne Einträge
func EmptyPrefixTable() *PrefixTable {
	return &PrefixTable{byLabel: map[string]string{}}
}

// Lookup liefert den Präfix für ein Label
func (t *PrefixTable) Lookup(label string) (string, bool) {
	if t == nil {
		return "", false
	}
	p, ok := t.byLabel[label]
	return p, ok
}

// Entries liefert eine Kopie der Einträge in Konfigurationsreihenfolge
func (t *PrefixTable) Entries() []PrefixEntry {
	if t == nil {
		return nil
	}
	out := make([]PrefixEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len liefert die Anzahl der Einträge
func (t *PrefixTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

func normalizeLabel(label string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, label)
}
