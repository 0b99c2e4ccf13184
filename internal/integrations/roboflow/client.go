// Package roboflow ruft den Roboflow-Workflow zur Objekterkennung auf.
package roboflow

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"luminaria-extractor/config"
	"luminaria-extractor/internal/core/models"
	"luminaria-extractor/internal/observability/metrics"

	log "github.com/sirupsen/logrus"
)

// FailureMessage ist der Text, der bei einem fehlgeschlagenen Aufruf am Bild angezeigt wird
const FailureMessage = "Fallo al procesar la imagen con la API de Roboflow."

// Error ist ein fehlgeschlagener Workflow-Aufruf. Error() liefert den
// anzeigbaren Text, die Ursache bleibt über Unwrap erreichbar.
type Error struct {
	StatusCode int
	Cause      error
}

func (e *Error) Error() string { return FailureMessage }

func (e *Error) Unwrap() error { return e.Cause }

// Client für den Roboflow-Workflow
type Client struct {
	config     config.InferenceConfig
	httpClient *http.Client
	metrics    *metrics.Metrics
}

type imageInput struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type workflowRequest struct {
	APIKey string `json:"api_key"`
	Inputs struct {
		Image imageInput `json:"image"`
	} `json:"inputs"`
}

// WorkflowResponse ist die Antwort des Workflows; relevant ist nur
// outputs[0].predictions.predictions
type WorkflowResponse struct {
	Outputs []struct {
		Predictions struct {
			Predictions []models.Detection `json:"predictions"`
		} `json:"predictions"`
	} `json:"outputs"`
}

// NewClient erstellt einen neuen Roboflow-Client
func NewClient(cfg config.InferenceConfig, m *metrics.Metrics) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: m,
	}
}

// Detect sendet ein Bild an den Workflow und liefert die Detektionen.
// Eine leere Liste ist ein gültiges Ergebnis.
func (c *Client) Detect(ctx context.Context, imageData []byte, contentType string) ([]models.Detection, error) {
	start := time.Now()
	detections, err := c.detect(ctx, imageData)
	duration := time.Since(start)

	if err != nil {
		c.metrics.ObserveInference("error", duration.Seconds())
		log.WithError(err).Warnf("Roboflow request failed after %s", duration)
		return nil, err
	}

	c.metrics.ObserveInference("success", duration.Seconds())
	log.Debugf("Roboflow request took %s, %d detections (%s)", duration, len(detections), contentType)
	return detections, nil
}

func (c *Client) detect(ctx context.Context, imageData []byte) ([]models.Detection, error) {
	var payload workflowRequest
	payload.APIKey = c.config.APIKey
	payload.Inputs.Image = imageInput{Type: "base64", Value: base64.StdEncoding.EncodeToString(imageData)}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Cause: fmt.Errorf("failed to encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.config.URL, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Cause: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Cause: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		log.Errorf("Error response from Roboflow (status %d): %s", resp.StatusCode, string(bodyBytes))
		return nil, &Error{
			StatusCode: resp.StatusCode,
			Cause:      fmt.Errorf("Error from Roboflow API: %s", http.StatusText(resp.StatusCode)),
		}
	}

	var result WorkflowResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &Error{StatusCode: resp.StatusCode, Cause: fmt.Errorf("failed to decode response: %w", err)}
	}

	if len(result.Outputs) == 0 || result.Outputs[0].Predictions.Predictions == nil {
		return []models.Detection{}, nil
	}
	return result.Outputs[0].Predictions.Predictions, nil
}
