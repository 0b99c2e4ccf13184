package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luminaria-extractor/internal/core/batch"
	"luminaria-extractor/internal/core/codes"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	body = "server:\n  data_dir: " + dir + "\nlog:\n  file: \"\"\ndb:\n  file: " +
		filepath.Join(dir, "db", "test.db") + "\nstorage:\n  dir: " + filepath.Join(dir, "images") + "\n" + body
	require.NoError(t, os.WriteFile(file, []byte(body), 0644))
	return file
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Batch.LoteSize)
	assert.Equal(t, 50, cfg.Batch.IndividualSize)
	assert.Equal(t, batch.TieBreakFirstSeen, cfg.TieBreak())
	assert.Equal(t, 1280, cfg.Imaging.MaxWidth)
	assert.Equal(t, 720, cfg.Imaging.MaxHeight)
	assert.Equal(t, 70, cfg.Imaging.JPEGQuality)
	assert.Equal(t, "https://images.weserv.nl/?url=", cfg.URLFetch.ProxyPrefix)
	assert.Equal(t, 20, cfg.URLFetch.TimeoutSeconds)

	table := cfg.PrefixTable()
	assert.Equal(t, len(DefaultPrefixes), table.Len())
	prefix, ok := table.Lookup("A _LUMINARIA_SODIO_70_W")
	assert.True(t, ok)
	assert.Equal(t, "A", prefix)

	assert.DirExists(t, cfg.Storage.Dir)
}

func TestLoadPrefixesAndEnv(t *testing.T) {
	t.Setenv("LUMINARIA_BATCH_TIE_BREAK", "last_seen")

	cfg, err := Load(writeConfig(t, "prefixes:\n  - label: E_LUMINARIA_\n    prefix: E\n"))
	require.NoError(t, err)

	assert.Equal(t, batch.TieBreakLastSeen, cfg.TieBreak())
	assert.Equal(t, 1, cfg.PrefixTable().Len())
	_, ok := cfg.PrefixTable().Lookup("B_LUMINARIA_")
	assert.False(t, ok)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"lote size", "batch:\n  lote_size: 2\n"},
		{"tie break", "batch:\n  tie_break: random\n"},
		{"backend", "storage:\n  backend: s3\n"},
		{"prefix", "prefixes:\n  - label: X\n    prefix: XY\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestValidateDuplicatePrefixLabels(t *testing.T) {
	cfg := &Config{
		Prefixes: []PrefixEntry{{Label: "B_LUMINARIA_", Prefix: "B"}, {Label: "B_LUMINARIA_", Prefix: "C"}},
		Batch:    BatchConfig{LoteSize: 3, IndividualSize: 1},
		Storage:  StorageConfig{Backend: "filesystem"},
	}
	assert.ErrorIs(t, cfg.Validate(), codes.ErrDuplicatePrefixLabel)
}
