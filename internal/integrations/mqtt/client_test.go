package mqtt

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luminaria-extractor/config"
	"luminaria-extractor/internal/core/models"
)

func TestTopic(t *testing.T) {
	c := NewClient(config.MQTTConfig{Topic: "luminaria"})
	assert.Equal(t, "luminaria/luminarias", c.Topic("luminarias"))
}

func TestNewLuminariaMessage(t *testing.T) {
	code := "AB12"
	lumID := "lum-1"
	watts := 70
	l := models.Luminaria{
		ID:           lumID,
		Coincidencia: models.CoincidenciaPendiente,
		Watts:        &watts,
		Images: []models.ProcessedImage{
			{ID: "a", ExtractedCode: &code, SourceURL: "https://drive.google.com/x", LuminariaID: &lumID},
			{ID: "b"},
		},
	}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	msg := NewLuminariaMessage(l, now)
	assert.Equal(t, []string{"AB12", ""}, msg.Codes)
	assert.Equal(t, []string{"a", "b"}, msg.ImageIDs)
	assert.Equal(t, []string{"https://drive.google.com/x", ""}, msg.SourceURLs)

	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "lum-1",
		"coincidencia": "pendiente",
		"tipoIluminaria": null,
		"watts": 70,
		"aprobado": false,
		"codes": ["AB12", ""],
		"imageIds": ["a", "b"],
		"sourceUrls": ["https://drive.google.com/x", ""],
		"timestamp": "2024-05-01T12:00:00Z"
	}`, string(raw))
}

func TestPublishDisabledIsNoOp(t *testing.T) {
	c := NewClient(config.MQTTConfig{Enabled: false, Topic: "luminaria"})
	assert.NoError(t, c.Start())
	assert.NoError(t, c.PublishLuminaria(models.Luminaria{ID: "x"}))
	assert.False(t, c.IsConnected())
	c.Stop()
}

func TestPublishWithoutConnection(t *testing.T) {
	c := NewClient(config.MQTTConfig{Enabled: true, Topic: "luminaria"})
	assert.Error(t, c.PublishLuminaria(models.Luminaria{ID: "x"}))
}
