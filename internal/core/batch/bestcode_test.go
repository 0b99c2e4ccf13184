package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMajorityCode(t *testing.T) {
	tests := []struct {
		name   string
		codes  []string
		tb     TieBreak
		want   string
		wantOK bool
	}{
		{"clear_majority", []string{"X1", "AB12", "AB12"}, TieBreakFirstSeen, "AB12", true},
		{"tie_first_seen", []string{"X1", "AB12"}, TieBreakFirstSeen, "X1", true},
		{"tie_last_seen", []string{"X1", "AB12"}, TieBreakLastSeen, "AB12", true},
		{"three_way_tie", []string{"C", "B", "A"}, TieBreakFirstSeen, "C", true},
		{"absent_values_skipped", []string{"No encontrado", "", "Q9"}, TieBreakFirstSeen, "Q9", true},
		{"nothing_present", []string{"No encontrado", " "}, TieBreakFirstSeen, "", false},
		{"empty", nil, TieBreakFirstSeen, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MajorityCode(tt.codes, tt.tb)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBestCode(t *testing.T) {
	got, ok := BestCode(group("No encontrado", "AB13", "AB12", "AB12"), TieBreakFirstSeen)
	assert.True(t, ok)
	assert.Equal(t, "AB12", got)
}
