package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luminaria-extractor/config"
)

func TestExtractRejectsIncompleteGroups(t *testing.T) {
	var out bytes.Buffer
	err := extract(context.Background(), &config.Config{}, []string{"a.jpg", "b.jpg"}, 3, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "groups of 3")
	assert.Zero(t, out.Len())
}

func TestRouterServesMetrics(t *testing.T) {
	cfg := &config.Config{
		Server:  config.ServerConfig{CORSOrigins: []string{"*"}, SessionSecret: "test", DefaultLanguage: "es"},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "luminaria_test_total", Help: "test"})
	registry.MustRegister(counter)
	counter.Inc()

	router, err := newRouter(cfg, registry)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "luminaria_test_total 1")
}

func TestRouterCORS(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{CORSOrigins: []string{"https://app.example.com"}, SessionSecret: "test", DefaultLanguage: "es"},
	}
	router, err := newRouter(cfg, prometheus.NewRegistry())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodOptions, "/api/images", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
