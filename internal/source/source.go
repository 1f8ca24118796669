// Package source retrieves images from local paths or remote URLs and
// hands back their pixel dimensions and resolved EXIF tags.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"regexp"

	"github.com/bstardust/image-metadata-extractor/internal/config"
	"github.com/bstardust/image-metadata-extractor/internal/exif"
	"github.com/bstardust/image-metadata-extractor/internal/logger"
	"github.com/bstardust/image-metadata-extractor/internal/metadata"
	"github.com/bstardust/image-metadata-extractor/internal/retry"
	"github.com/bstardust/image-metadata-extractor/pkg/common"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// FileNotFoundMessage is reported when a local path does not exist
const FileNotFoundMessage = "File not found. Please check the file path and try again."

var urlPattern = regexp.MustCompile(`^(http|https)://[a-zA-Z0-9\-.]+\.[a-zA-Z]{2,}(/\S*)?$`)

// Image is a decoded image ready for normalization
type Image struct {
	Location   string
	Format     string
	Dimensions metadata.Dimensions
	Tags       metadata.Tags
}

// Fetcher loads images from the local filesystem or over HTTP
type Fetcher struct {
	client *http.Client
	cfg    config.SourceConfig
	retry  retry.Config
}

// New creates a new Fetcher
func New(cfg config.SourceConfig) *Fetcher {
	return NewWithClient(cfg, &http.Client{Timeout: cfg.Timeout})
}

// NewWithClient creates a Fetcher using the given HTTP client
func NewWithClient(cfg config.SourceConfig, client *http.Client) *Fetcher {
	return &Fetcher{
		client: client,
		cfg:    cfg,
		retry:  retry.DefaultConfig(cfg.Retries),
	}
}

// IsURL reports whether location looks like an http(s) URL rather than a path
func IsURL(location string) bool {
	return urlPattern.MatchString(location)
}

// Fetch retrieves and decodes the image at location. Every failure is a
// *common.RetrievalError.
func (f *Fetcher) Fetch(ctx context.Context, location string) (*Image, error) {
	if IsURL(location) {
		return f.FetchURL(ctx, location)
	}
	return f.FetchFile(location)
}

// FetchFile reads and decodes a local image file
func (f *Fetcher) FetchFile(path string) (*Image, error) {
	data, err := f.readLocal(path)
	if err != nil {
		return nil, err
	}
	return f.decode(path, data)
}

// FetchURL downloads and decodes a remote image, retrying transient failures
func (f *Fetcher) FetchURL(ctx context.Context, url string) (*Image, error) {
	data, err := f.download(ctx, url)
	if err != nil {
		return nil, err
	}
	return f.decode(url, data)
}

func (f *Fetcher) readLocal(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, common.NewRetrievalError(FileNotFoundMessage, nil)
		}
		return nil, common.NewRetrievalError("Error opening image", err)
	}
	if info.IsDir() {
		return nil, common.NewRetrievalError("Error opening image",
			fmt.Errorf("is a directory: '%s'", path))
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, common.NewRetrievalError("Error opening image", err)
	}
	defer file.Close()

	data, err := readLimited(file, f.cfg.MaxBytes)
	if err != nil {
		return nil, common.NewRetrievalError("Error opening image", err)
	}

	logger.Debug("Read %d bytes from %s", len(data), path)
	return data, nil
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	var data []byte

	err := retry.Do(ctx, "download "+url, func() error {
		var err error
		data, err = f.get(ctx, url)
		return err
	}, f.retry)
	if err != nil {
		return nil, common.NewRetrievalError("Error downloading image", err)
	}

	logger.Debug("Downloaded %d bytes from %s", len(data), url)
	return data, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &StatusError{Code: resp.StatusCode, URL: url}
	}

	return readLimited(resp.Body, f.cfg.MaxBytes)
}

func (f *Fetcher) decode(location string, data []byte) (*Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, common.NewRetrievalError("Error decoding image",
			fmt.Errorf("cannot identify image file '%s': %w", location, err))
	}

	tags, err := exif.Extract(bytes.NewReader(data))
	if err != nil {
		logger.Warn("Ignoring unreadable EXIF data in %s: %v", location, err)
		tags = metadata.Tags{}
	}

	logger.Debug("Decoded %s image %dx%d with %d EXIF tags", format, cfg.Width, cfg.Height, len(tags))

	return &Image{
		Location:   location,
		Format:     format,
		Dimensions: metadata.Dimensions{Width: cfg.Width, Height: cfg.Height},
		Tags:       tags,
	}, nil
}

// ErrTooLarge is returned when an image exceeds the configured size limit
var ErrTooLarge = errors.New("image exceeds maximum size")

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, limit)
	}
	return data, nil
}

// StatusError is an HTTP response with a 4xx or 5xx status
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	kind := "Client"
	if e.Code >= http.StatusInternalServerError {
		kind = "Server"
	}
	return fmt.Sprintf("%d %s Error: %s for url: %s", e.Code, kind, http.StatusText(e.Code), e.URL)
}

// Retryable reports whether the status is worth retrying
func (e *StatusError) Retryable() bool {
	return e.Code >= http.StatusInternalServerError || e.Code == http.StatusTooManyRequests
}
