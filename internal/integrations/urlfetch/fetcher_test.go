package urlfetch

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luminaria-extractor/config"
)

const (
	proxyPrefix = "https://proxy.test/?url="
	driveID     = "1AbCdEfGhIjKlMnOpQrStUvWxYz_-01"
	shareURL    = "https://drive.google.com/file/d/" + driveID + "/view?usp=sharing"
)

func setupHTTPMock(t *testing.T, cacheMinutes int) *Fetcher {
	t.Helper()
	f := NewFetcher(config.URLFetchConfig{ProxyPrefix: proxyPrefix, TimeoutSeconds: 5, CacheMinutes: cacheMinutes}, nil)
	httpmock.ActivateNonDefault(f.httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)
	return f
}

func imageResponder(contentType, disposition string) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		resp := httpmock.NewBytesResponse(http.StatusOK, []byte("\x89PNG fake"))
		resp.Header.Set("Content-Type", contentType)
		if disposition != "" {
			resp.Header.Set("Content-Disposition", disposition)
		}
		resp.Request = req
		return resp, nil
	}
}

func TestDirectDownloadURL(t *testing.T) {
	got, ok := DirectDownloadURL(shareURL)
	require.True(t, ok)
	assert.Equal(t, "https://drive.google.com/uc?export=download&id="+driveID, got)

	_, ok = DirectDownloadURL("https://drive.google.com/file/d/short/view")
	assert.False(t, ok)
	_, ok = DirectDownloadURL("https://example.com/d/" + driveID)
	assert.False(t, ok)
}

func TestProxyURL(t *testing.T) {
	got := ProxyURL("https://images.weserv.nl/?url=", "https://drive.google.com/uc?export=download&id=abc")
	assert.Equal(t, "https://images.weserv.nl/?url=drive.google.com%2Fuc%3Fexport%3Ddownload%26id%3Dabc", got)
}

func TestFallbackFileName(t *testing.T) {
	assert.Equal(t, "https___drive.google.com_file_d_x_view_a=b", FallbackFileName(`https://drive.google.com/file/d/x/view?a=b`))
}

func TestSplitURLs(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitURLs("a\n\n  \n b \n"))
	assert.Empty(t, SplitURLs("\n \n"))
}

func TestFetchUsesDispositionName(t *testing.T) {
	f := setupHTTPMock(t, 0)
	httpmock.RegisterResponder("GET", "https://proxy.test/",
		imageResponder("image/png", `attachment; filename="poste%2012.png"`))

	file, err := f.Fetch(context.Background(), shareURL)
	require.NoError(t, err)
	assert.Equal(t, "poste 12.png", file.Name)
	assert.Equal(t, "image/png", file.ContentType)
	assert.Equal(t, shareURL, file.SourceURL)
	assert.NotEmpty(t, file.Data)

	info := httpmock.GetCallCountInfo()
	assert.Equal(t, 1, httpmock.GetTotalCallCount(), info)
}

func TestFetchFallbackName(t *testing.T) {
	f := setupHTTPMock(t, 0)
	httpmock.RegisterResponder("GET", "https://proxy.test/", imageResponder("image/jpeg; charset=binary", ""))

	file, err := f.Fetch(context.Background(), shareURL)
	require.NoError(t, err)
	assert.Equal(t, FallbackFileName(shareURL), file.Name)
	assert.Equal(t, "image/jpeg", file.ContentType)
}

func TestFetchErrors(t *testing.T) {
	t.Run("not_drive", func(t *testing.T) {
		f := setupHTTPMock(t, 0)
		_, err := f.Fetch(context.Background(), "https://example.com/photo.jpg")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotDriveURL)
		assert.Equal(t, "URL inválida o no es de Google Drive: https://example.com/photo.jpg", err.Error())
		assert.Zero(t, httpmock.GetTotalCallCount())
	})

	t.Run("bad_status", func(t *testing.T) {
		f := setupHTTPMock(t, 0)
		httpmock.RegisterResponder("GET", "https://proxy.test/", httpmock.NewStringResponder(http.StatusNotFound, "nope"))
		_, err := f.Fetch(context.Background(), shareURL)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrBadStatus)
		assert.Equal(t, "Error al descargar la imagen de "+shareURL+". Status: 404", err.Error())
	})

	t.Run("html_body", func(t *testing.T) {
		f := setupHTTPMock(t, 0)
		httpmock.RegisterResponder("GET", "https://proxy.test/", imageResponder("text/html; charset=utf-8", ""))
		_, err := f.Fetch(context.Background(), shareURL)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrProxyHTML)
		assert.Contains(t, err.Error(), "Verifica el enlace.")
	})

	t.Run("timeout", func(t *testing.T) {
		f := setupHTTPMock(t, 0)
		f.timeout = 50 * time.Millisecond
		httpmock.RegisterResponder("GET", "https://proxy.test/", func(req *http.Request) (*http.Response, error) {
			<-req.Context().Done()
			return nil, req.Context().Err()
		})
		_, err := f.Fetch(context.Background(), shareURL)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTimeout)
		assert.Equal(t, "La descarga tardó demasiado y fue cancelada. Inténtalo de nuevo.", err.Error())
	})

	t.Run("transport", func(t *testing.T) {
		f := setupHTTPMock(t, 0)
		httpmock.RegisterResponder("GET", "https://proxy.test/", httpmock.NewErrorResponder(errors.New("dns failure")))
		_, err := f.Fetch(context.Background(), shareURL)
		require.Error(t, err)
		var fe *Error
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, shareURL, fe.URL)
	})
}

func TestFetchAll(t *testing.T) {
	f := setupHTTPMock(t, 0)
	httpmock.RegisterResponder("GET", "https://proxy.test/", imageResponder("image/jpeg", ""))

	second := "https://drive.google.com/file/d/" + driveID + "XYZ/view"
	files, err := f.FetchAll(context.Background(), []string{"", shareURL, "  ", second})
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, shareURL, files[0].SourceURL)
	assert.Equal(t, second, files[1].SourceURL)
}

func TestFetchAllRejectsWholeRequest(t *testing.T) {
	f := setupHTTPMock(t, 0)
	httpmock.RegisterResponder("GET", "https://proxy.test/", imageResponder("image/jpeg", ""))

	files, err := f.FetchAll(context.Background(), []string{shareURL, "https://example.com/x.jpg"})
	assert.ErrorIs(t, err, ErrNotDriveURL)
	assert.Nil(t, files)
}

func TestFetchAllEmpty(t *testing.T) {
	f := setupHTTPMock(t, 0)
	_, err := f.FetchAll(context.Background(), []string{" ", ""})
	assert.ErrorIs(t, err, ErrNoURLs)
	assert.Equal(t, "Por favor, introduce al menos una URL.", err.Error())
}

func TestFetchCache(t *testing.T) {
	f := setupHTTPMock(t, 5)
	httpmock.RegisterResponder("GET", "https://proxy.test/", imageResponder("image/jpeg", ""))

	_, err := f.Fetch(context.Background(), shareURL)
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), shareURL)
	require.NoError(t, err)

	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}
