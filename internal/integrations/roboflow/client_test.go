package roboflow

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luminaria-extractor/config"
)

const testURL = "https://serverless.roboflow.test/workspace/workflows/luminarias"

func setupHTTPMock(t *testing.T) *Client {
	t.Helper()
	c := NewClient(config.InferenceConfig{URL: testURL, APIKey: "secret", TimeoutSeconds: 5}, nil)
	httpmock.ActivateNonDefault(c.httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)
	return c
}

func TestDetectParsesPredictions(t *testing.T) {
	c := setupHTTPMock(t)

	httpmock.RegisterResponder("POST", testURL, func(req *http.Request) (*http.Response, error) {
		var body struct {
			APIKey string `json:"api_key"`
			Inputs struct {
				Image struct {
					Type  string `json:"type"`
					Value string `json:"value"`
				} `json:"image"`
			} `json:"inputs"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			return httpmock.NewStringResponse(http.StatusBadRequest, err.Error()), nil
		}
		if body.APIKey != "secret" || body.Inputs.Image.Type != "base64" {
			return httpmock.NewStringResponse(http.StatusUnauthorized, "bad request body"), nil
		}
		raw, err := base64.StdEncoding.DecodeString(body.Inputs.Image.Value)
		if err != nil || string(raw) != "image-bytes" {
			return httpmock.NewStringResponse(http.StatusBadRequest, "bad image"), nil
		}
		return httpmock.NewStringResponse(http.StatusOK, `{
			"outputs": [{
				"predictions": {
					"image": {"width": 1280, "height": 720},
					"predictions": [
						{"class": "B_LUMINARIA_", "confidence": 0.91, "x": 100, "y": 50, "width": 30, "height": 20, "class_id": 3, "detection_id": "d-1", "parent_id": "image"},
						{"class": "7", "confidence": 0.88, "x": 140.5, "y": 52, "width": 10, "height": 12, "class_id": 17, "detection_id": "d-2"}
					]
				}
			}]
		}`), nil
	})

	detections, err := c.Detect(context.Background(), []byte("image-bytes"), "image/jpeg")
	require.NoError(t, err)
	require.Len(t, detections, 2)
	assert.Equal(t, "B_LUMINARIA_", detections[0].Class)
	assert.InDelta(t, 0.91, detections[0].Confidence, 1e-9)
	assert.Equal(t, "d-1", detections[0].DetectionID)
	assert.Equal(t, "image", detections[0].ParentID)
	assert.InDelta(t, 140.5, detections[1].X, 1e-9)
	assert.Equal(t, 17, detections[1].ClassID)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestDetectMissingOutputsIsEmpty(t *testing.T) {
	c := setupHTTPMock(t)
	httpmock.RegisterResponder("POST", testURL, httpmock.NewStringResponder(http.StatusOK, `{"outputs": []}`))

	detections, err := c.Detect(context.Background(), []byte("x"), "image/png")
	require.NoError(t, err)
	assert.NotNil(t, detections)
	assert.Empty(t, detections)
}

func TestDetectServiceError(t *testing.T) {
	c := setupHTTPMock(t)
	httpmock.RegisterResponder("POST", testURL, httpmock.NewStringResponder(http.StatusForbidden, `{"message":"invalid key"}`))

	_, err := c.Detect(context.Background(), []byte("x"), "image/jpeg")
	require.Error(t, err)
	assert.Equal(t, FailureMessage, err.Error())

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Contains(t, apiErr.Cause.Error(), "Forbidden")
}

func TestDetectTransportError(t *testing.T) {
	c := setupHTTPMock(t)
	httpmock.RegisterResponder("POST", testURL, httpmock.NewErrorResponder(errors.New("connection refused")))

	_, err := c.Detect(context.Background(), []byte("x"), "image/jpeg")
	require.Error(t, err)
	assert.Equal(t, FailureMessage, err.Error())
	assert.Contains(t, errors.Unwrap(err).Error(), "connection refused")
}

func TestDetectMalformedJSON(t *testing.T) {
	c := setupHTTPMock(t)
	httpmock.RegisterResponder("POST", testURL, httpmock.NewStringResponder(http.StatusOK, `{"outputs": [`))

	_, err := c.Detect(context.Background(), []byte("x"), "image/jpeg")
	assert.Error(t, err)
}
