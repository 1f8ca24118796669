package source

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bstardust/image-metadata-extractor/internal/config"
	"github.com/bstardust/image-metadata-extractor/internal/exif/exiftest"
	"github.com/bstardust/image-metadata-extractor/internal/metadata"
	"github.com/bstardust/image-metadata-extractor/pkg/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.SourceConfig {
	cfg := config.New().Source
	cfg.Retries = 2
	cfg.Timeout = 5 * time.Second
	return cfg
}

func sampleJPEG() []byte {
	return exiftest.JPEG(32, 24,
		[]exiftest.Entry{exiftest.ASCII(exiftest.TagMake, "Acme")},
		[]exiftest.Entry{
			exiftest.Rational(exiftest.TagFNumber, 28, 10),
			exiftest.Rational(exiftest.TagExposureTime, 1, 200),
		},
	)
}

func fastFetcher(client *http.Client) *Fetcher {
	f := NewWithClient(testConfig(), client)
	f.retry.InitialBackoff = time.Millisecond
	f.retry.MaxBackoff = 2 * time.Millisecond
	return f
}

// rewriteTransport sends every request to target, keeping the path
type rewriteTransport struct {
	target *url.URL
	hosts  []string
}

func (rt *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.hosts = append(rt.hosts, req.URL.Host)
	out := req.Clone(req.Context())
	out.URL.Scheme = rt.target.Scheme
	out.URL.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(out)
}

func retrievalMessage(t *testing.T, err error) string {
	t.Helper()
	var rerr *common.RetrievalError
	require.True(t, errors.As(err, &rerr), "expected RetrievalError, got %T: %v", err, err)
	return rerr.Message
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://example.com/photo.jpg"))
	assert.True(t, IsURL("http://images.example.co.uk"))
	assert.False(t, IsURL("ftp://example.com/photo.jpg"))
	assert.False(t, IsURL("photos/example.com.jpg"))
	assert.False(t, IsURL("http://localhost/photo.jpg"))
	assert.False(t, IsURL("https://example.com/with space.jpg"))
}

func TestFetch_LocalJPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.jpg")
	require.NoError(t, os.WriteFile(path, sampleJPEG(), 0644))

	img, err := New(testConfig()).Fetch(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "jpeg", img.Format)
	assert.Equal(t, metadata.Dimensions{Width: 32, Height: 24}, img.Dimensions)
	assert.Equal(t, metadata.Text("Acme"), img.Tags[metadata.TagMake])
	assert.Equal(t, metadata.Rational(28, 10), img.Tags[metadata.TagFNumber])
}

func TestFetch_LocalPNGWithoutExif(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 7, 3))))
	path := filepath.Join(t.TempDir(), "plain.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	img, err := New(testConfig()).Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "png", img.Format)
	assert.Equal(t, metadata.Dimensions{Width: 7, Height: 3}, img.Dimensions)
	assert.Empty(t, img.Tags)
}

func TestFetch_Missing(t *testing.T) {
	_, err := New(testConfig()).Fetch(context.Background(), filepath.Join(t.TempDir(), "missing.jpg"))
	assert.Equal(t, FileNotFoundMessage, retrievalMessage(t, err))
}

func TestFetch_Directory(t *testing.T) {
	dir := t.TempDir()
	_, err := New(testConfig()).Fetch(context.Background(), dir)
	assert.Contains(t, retrievalMessage(t, err), "Error opening image: is a directory")
}

func TestFetch_NotAnImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("just text"), 0644))

	_, err := New(testConfig()).Fetch(context.Background(), path)
	assert.Contains(t, retrievalMessage(t, err), "Error decoding image: cannot identify image file")
}

func TestFetch_TooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.jpg")
	require.NoError(t, os.WriteFile(path, sampleJPEG(), 0644))

	cfg := testConfig()
	cfg.MaxBytes = 16
	_, err := New(cfg).Fetch(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestFetch_URL(t *testing.T) {
	var userAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		assert.Equal(t, "/photos/photo.jpg", r.URL.Path)
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(sampleJPEG())
	}))
	defer server.Close()

	target, err := url.Parse(server.URL)
	require.NoError(t, err)
	transport := &rewriteTransport{target: target}

	img, err := fastFetcher(&http.Client{Transport: transport}).
		Fetch(context.Background(), "https://images.example.com/photos/photo.jpg")
	require.NoError(t, err)

	assert.Equal(t, []string{"images.example.com"}, transport.hosts)
	assert.Equal(t, testConfig().UserAgent, userAgent)
	assert.Equal(t, metadata.Dimensions{Width: 32, Height: 24}, img.Dimensions)
	assert.Equal(t, metadata.Rational(1, 200), img.Tags[metadata.TagExposureTime])
}

func TestFetchURL_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write(sampleJPEG())
	}))
	defer server.Close()

	img, err := fastFetcher(server.Client()).FetchURL(context.Background(), server.URL+"/photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, 32, img.Dimensions.Width)
}

func TestFetchURL_NotFound(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := fastFetcher(server.Client()).FetchURL(context.Background(), server.URL+"/missing.jpg")

	msg := retrievalMessage(t, err)
	assert.Equal(t, "Error downloading image: 404 Client Error: Not Found for url: "+server.URL+"/missing.jpg", msg)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "client errors are not retried")
}

func TestStatusError(t *testing.T) {
	err := &StatusError{Code: 502, URL: "https://example.com/a.jpg"}
	assert.Equal(t, "502 Server Error: Bad Gateway for url: https://example.com/a.jpg", err.Error())
	assert.True(t, err.Retryable())
	assert.True(t, (&StatusError{Code: 429}).Retryable())
	assert.False(t, (&StatusError{Code: 403}).Retryable())
}
