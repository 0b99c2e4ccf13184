package logger

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luminaria-extractor/config"
)

func TestInitWritesToFile(t *testing.T) {
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetLevel(log.InfoLevel)
	})

	file := filepath.Join(t.TempDir(), "logs", "luminaria.log")
	closeFn, err := Init(config.LogConfig{Level: "debug", File: file})
	require.NoError(t, err)

	log.Debug("lote listo")
	closeFn()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "lote listo")
	assert.Equal(t, log.DebugLevel, log.GetLevel())
}

func TestInitInvalidLevel(t *testing.T) {
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetLevel(log.InfoLevel)
	})

	closeFn, err := Init(config.LogConfig{Level: "verbose"})
	require.NoError(t, err)
	defer closeFn()
	assert.Equal(t, log.InfoLevel, log.GetLevel())
}
