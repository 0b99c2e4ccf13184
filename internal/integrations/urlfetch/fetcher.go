// Package urlfetch lädt Bilder über Freigabelinks von Google Drive und einen Bild-Proxy.
package urlfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"luminaria-extractor/config"
	"luminaria-extractor/internal/observability/metrics"
)

var (
	driveIDPattern      = regexp.MustCompile(`/d/([a-zA-Z0-9_-]{25,})`)
	schemePattern       = regexp.MustCompile(`^https?://`)
	dispositionFileName = regexp.MustCompile(`filename="([^"]+)"`)
	unsafeFileChars     = regexp.MustCompile(`[\\/:*?"<>|]`)
)

// maxImageBytes begrenzt die Größe eines heruntergeladenen Bildes
const maxImageBytes = 32 << 20

// File ist ein heruntergeladenes Bild
type File struct {
	Name        string
	ContentType string
	Data        []byte
	SourceURL   string
}

// Fetcher lädt Bilder über den Proxy und merkt sich erfolgreiche Downloads
type Fetcher struct {
	proxyPrefix string
	timeout     time.Duration
	httpClient  *http.Client
	cache       *cache.Cache
	metrics     *metrics.Metrics
}

// NewFetcher erstellt einen Fetcher; CacheMinutes <= 0 schaltet den Cache ab
func NewFetcher(cfg config.URLFetchConfig, m *metrics.Metrics) *Fetcher {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	f := &Fetcher{
		proxyPrefix: cfg.ProxyPrefix,
		timeout:     timeout,
		httpClient:  &http.Client{},
		metrics:     m,
	}
	if cfg.CacheMinutes > 0 {
		ttl := time.Duration(cfg.CacheMinutes) * time.Minute
		f.cache = cache.New(ttl, 2*ttl)
	}
	return f
}

// DirectDownloadURL wandelt einen Drive-Freigabelink in einen Download-Link um
func DirectDownloadURL(raw string) (string, bool) {
	if !strings.Contains(raw, "drive.google.com") {
		return "", false
	}
	m := driveIDPattern.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return "https://drive.google.com/uc?export=download&id=" + m[1], true
}

// ProxyURL setzt die Proxy-Adresse zusammen; der Proxy erwartet die URL ohne Schema
func ProxyURL(prefix, downloadURL string) string {
	return prefix + url.QueryEscape(schemePattern.ReplaceAllString(downloadURL, ""))
}

// FallbackFileName leitet einen Dateinamen aus der URL ab
func FallbackFileName(raw string) string {
	return unsafeFileChars.ReplaceAllString(raw, "_")
}

// SplitURLs zerlegt eine Eingabe in Zeilen und verwirft leere
func SplitURLs(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, strings.TrimSpace(line))
		}
	}
	return out
}

// FetchAll lädt alle URLs parallel. Schlägt ein Download fehl, wird die ganze
// Anfrage abgelehnt. Die Reihenfolge der Ergebnisse entspricht der Eingabe.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) ([]File, error) {
	cleaned := make([]string, 0, len(urls))
	for _, u := range urls {
		if strings.TrimSpace(u) != "" {
			cleaned = append(cleaned, strings.TrimSpace(u))
		}
	}
	if len(cleaned) == 0 {
		return nil, ErrNoURLs
	}

	files := make([]File, len(cleaned))
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range cleaned {
		g.Go(func() error {
			file, err := f.Fetch(gctx, u)
			if err != nil {
				return err
			}
			files[i] = *file
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Infof("Fetched %d images from URLs", len(files))
	return files, nil
}

// Fetch lädt ein einzelnes Bild über den Proxy
func (f *Fetcher) Fetch(ctx context.Context, raw string) (*File, error) {
	if f.cache != nil {
		if cached, ok := f.cache.Get(raw); ok {
			f.metrics.IncURLCacheHits()
			file := cached.(File)
			return &file, nil
		}
	}

	file, err := f.fetch(ctx, raw)
	if err != nil {
		f.metrics.IncURLFetches("error")
		log.WithError(errors.Unwrap(err)).Warnf("Failed to fetch image from %s", raw)
		return nil, err
	}
	f.metrics.IncURLFetches("success")

	if f.cache != nil {
		f.cache.Set(raw, *file, cache.DefaultExpiration)
	}
	return file, nil
}

func (f *Fetcher) fetch(ctx context.Context, raw string) (*File, error) {
	downloadURL, ok := DirectDownloadURL(raw)
	if !ok {
		return nil, &Error{URL: raw, Err: ErrNotDriveURL}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", ProxyURL(f.proxyPrefix, downloadURL), nil)
	if err != nil {
		return nil, &Error{URL: raw, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &Error{URL: raw, Err: fmt.Errorf("%w: %v", ErrTimeout, err)}
		}
		return nil, &Error{URL: raw, Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{URL: raw, StatusCode: resp.StatusCode, Err: ErrBadStatus}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &Error{URL: raw, Err: fmt.Errorf("%w: %v", ErrTimeout, err)}
		}
		return nil, &Error{URL: raw, Err: fmt.Errorf("failed to read body: %w", err)}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediaType
	}
	if contentType == "text/html" {
		return nil, &Error{URL: raw, StatusCode: resp.StatusCode, Err: ErrProxyHTML}
	}

	name := fileNameFromDisposition(resp.Header.Get("Content-Disposition"))
	if name == "" {
		name = FallbackFileName(raw)
	}

	return &File{Name: name, ContentType: contentType, Data: data, SourceURL: raw}, nil
}

func fileNameFromDisposition(header string) string {
	if header == "" {
		return ""
	}
	m := dispositionFileName.FindStringSubmatch(header)
	if m == nil {
		return ""
	}
	if decoded, err := url.PathUnescape(m[1]); err == nil {
		return decoded
	}
	return m[1]
}
