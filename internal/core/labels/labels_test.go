package labels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractWatts(t *testing.T) {
	tests := []struct {
		name   string
		label  string
		want   int
		wantOK bool
	}{
		{"underscore_w_suffix", "A_LUMINARIA_SODIO_70_W", 70, true},
		{"w_suffix_without_underscore", "LUMINARIA_LED_150W", 150, true},
		{"lowercase_w", "luminaria_led_150w", 150, true},
		{"plain_trailing_number", "BRAZO_AZUL_70", 70, true},
		{"dash_separator", "LUMINARIA_LED-250", 250, true},
		{"fallback_digits_without_separator", "BRAZO_AZUL70", 70, true},
		{"leading_zeros", "LUMINARIA_SODIO_070_W", 70, true},
		{"no_digits", "LUMINARIA_SODIO", 0, false},
		{"digits_not_at_end", "LUMINARIA_70_SODIO", 0, false},
		{"w_without_digits", "LUMINARIA_LED_W", 0, false},
		{"empty", "", 0, false},
		{"overflow_is_no_match", "LUMINARIA_99999999999999999999999", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractWatts(tt.label)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Trailing digits that are a model number are still read as watts.
// This is an accepted heuristic of the parser, not a bug.
func TestExtractWatts_CoincidentalTrailingDigits(t *testing.T) {
	got, ok := ExtractWatts("POSTE_MODELO_2019")
	require.True(t, ok)
	assert.Equal(t, 2019, got)

	got, ok = ExtractWatts("7")
	require.True(t, ok)
	assert.Equal(t, 7, got)
}

func TestExtractTipo(t *testing.T) {
	tests := []struct {
		name   string
		label  string
		want   string
		wantOK bool
	}{
		{"sodio_with_watts", "LUMINARIA_SODIO_70_W", "LUMINARIA_SODIO", true},
		{"prefixed_label", "A_LUMINARIA_SODIO_70_W", "LUMINARIA_SODIO", true},
		{"label_with_space", "A _LUMINARIA_SODIO_70_W", "LUMINARIA_SODIO", true},
		{"led_compact_watts", "C_LUMINARIA_LED_150W", "LUMINARIA_LED", true},
		{"bare_prefix_class_has_no_type", "B_LUMINARIA_", "", false},
		{"lowercase_tail_kept", "LUMINARIA_led", "LUMINARIA_led", true},
		{"marker_missing", "BRAZO_AZUL_70", "", false},
		{"lowercase_marker_only", "luminaria_sodio_70_w", "", false},
		{"marker_without_underscore", "LUMINARIA", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractTipo(tt.label)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractTipo_IdempotentWithWattsSuffix(t *testing.T) {
	labels := []string{
		"A_LUMINARIA_SODIO_70_W",
		"LUMINARIA_LED_150W",
		"X_LUMINARIA_LED_W",
		"LUMINARIA_MERCURIO_250",
	}

	for _, label := range labels {
		t.Run(label, func(t *testing.T) {
			first, ok := ExtractTipo(label)
			require.True(t, ok)

			second, ok := ExtractTipo(first + "_70_W")
			require.True(t, ok)
			assert.Equal(t, first, second)
		})
	}
}

func TestPointerHelpers(t *testing.T) {
	w := WattsPtr("LUMINARIA_SODIO_70_W")
	require.NotNil(t, w)
	assert.Equal(t, 70, *w)
	assert.Nil(t, WattsPtr("LUMINARIA_SODIO"))

	tipo := TipoPtr("LUMINARIA_SODIO_70_W")
	require.NotNil(t, tipo)
	assert.Equal(t, "LUMINARIA_SODIO", *tipo)
	assert.Nil(t, TipoPtr("BRAZO_AZUL_70"))
}
