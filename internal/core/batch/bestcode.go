package batch

import (
	"luminaria-extractor/internal/core/codes"
	"luminaria-extractor/internal/core/models"
)

// BestCode ermittelt den häufigsten vorhandenen Code einer Gruppe. Bei gleicher
// Häufigkeit entscheidet tb anhand des ersten Auftretens.
func BestCode(group []models.ProcessedImage, tb TieBreak) (string, bool) {
	return MajorityCode(PresentCodes(group), tb)
}

// MajorityCode ist BestCode über eine bereits gefilterte Codeliste
func MajorityCode(list []string, tb TieBreak) (string, bool) {
	counts := make(map[string]int, len(list))
	order := make([]string, 0, len(list))
	for _, c := range list {
		if codes.IsAbsent(c) {
			continue
		}
		if _, seen := counts[c]; !seen {
			order = append(order, c)
		}
		counts[c]++
	}
	if len(order) == 0 {
		return "", false
	}

	best := order[0]
	for _, c := range order[1:] {
		if tb.wins(float64(counts[c]), float64(counts[best])) {
			best = c
		}
	}
	return best, true
}
