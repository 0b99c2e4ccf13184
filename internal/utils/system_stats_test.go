package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubState struct{ busy bool }

func (s stubState) Busy() bool              { return s.busy }
func (s stubState) CompressionWorkers() int { return 4 }
func (s stubState) ActiveCompressions() int { return 1 }

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 Bytes", FormatBytes(512))
	assert.Equal(t, "1.50 KB", FormatBytes(1536))
	assert.Equal(t, "2.00 MB", FormatBytes(2*1024*1024))
	assert.Equal(t, "1.00 GB", FormatBytes(1024*1024*1024))
}

func TestGetSystemStats(t *testing.T) {
	stats := GetSystemStats(stubState{busy: true})
	assert.True(t, stats.RunInProgress)
	assert.Equal(t, 4, stats.CompressionWorkers)
	assert.Equal(t, 1, stats.ActiveCompressions)
	assert.Positive(t, stats.NumCPU)
	assert.False(t, stats.Timestamp.IsZero())

	assert.False(t, GetSystemStats(nil).RunInProgress)
}
