// Package export renders normalized metadata to the console or to a JSON
// document, optionally copied to S3.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/bstardust/image-metadata-extractor/internal/logger"
	"github.com/bstardust/image-metadata-extractor/internal/metadata"
	"github.com/bstardust/image-metadata-extractor/internal/retry"
	"github.com/bstardust/image-metadata-extractor/pkg/common"
	"github.com/bstardust/image-metadata-extractor/pkg/s3client"
)

// Presenter delivers a result somewhere
type Presenter interface {
	Present(ctx context.Context, result metadata.Result) error
}

// Uploader stores a document in object storage
type Uploader interface {
	UploadFile(ctx context.Context, reader io.Reader, objectKey string, size int64, metadata map[string]string, contentType string) error
	ObjectKey(key string) string
	GetBucketName() string
}

// Console prints one "{field}: {value}" line per field
type Console struct {
	w io.Writer
}

// NewConsole creates a console presenter writing to w
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Present(_ context.Context, result metadata.Result) error {
	for _, f := range result {
		if _, err := fmt.Fprintf(c.w, "%s: %s\n", f.Name, f.Value); err != nil {
			return err
		}
	}
	return nil
}

// JSONFile writes the result to a JSON document on disk and, when an
// uploader is configured, copies it to object storage.
type JSONFile struct {
	dir       string
	name      string
	objectKey string
	out       io.Writer
	uploader  Uploader
	retry     retry.Config
}

// NewJSONFile creates a presenter writing dir/name and printing
// confirmations to out
func NewJSONFile(dir, name string, out io.Writer) *JSONFile {
	return &JSONFile{
		dir:   dir,
		name:  name,
		out:   out,
		retry: retry.S3Config(3),
	}
}

// WithUploader enables the S3 copy, stored under objectKey
func (j *JSONFile) WithUploader(u Uploader, objectKey string) *JSONFile {
	j.uploader = u
	j.objectKey = objectKey
	return j
}

// Path returns the file the document is written to
func (j *JSONFile) Path() string {
	return filepath.Join(j.dir, j.name)
}

func (j *JSONFile) Present(ctx context.Context, result metadata.Result) error {
	data, err := Marshal(result)
	if err != nil {
		return common.NewExportError("failed to encode metadata", err)
	}

	target := j.Path()
	if err := os.WriteFile(target, data, 0644); err != nil {
		return common.NewExportError("failed to write "+target, err)
	}
	fmt.Fprintf(j.out, "Metadata exported as JSON to %s\n", target)

	if j.uploader == nil {
		return nil
	}
	return j.upload(ctx, data, result)
}

func (j *JSONFile) upload(ctx context.Context, data []byte, result metadata.Result) error {
	contentType := s3client.DetectContentType(j.objectKey)

	err := retry.Do(ctx, "upload "+j.objectKey, func() error {
		return j.uploader.UploadFile(ctx, bytes.NewReader(data), j.objectKey, int64(len(data)), result.ToMap(), contentType)
	}, j.retry)
	if err != nil {
		if s3client.IsAuthError(err) {
			logger.Error("S3 rejected the credentials for bucket %s", j.uploader.GetBucketName())
		}
		logger.Debug("Upload of %s failed: %s", j.objectKey, s3client.FormatError(err))
		return common.NewExportError("failed to upload metadata", err)
	}

	fmt.Fprintf(j.out, "Metadata uploaded to s3://%s/%s\n", j.uploader.GetBucketName(), j.uploader.ObjectKey(j.objectKey))
	return nil
}

// Marshal encodes the result as a 4-space indented JSON object in field order
func Marshal(result metadata.Result) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(result); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ObjectKey derives the S3 key for an image location: its base name plus
// ".json".
func ObjectKey(location string) string {
	base := filepath.Base(location)
	if u, err := url.Parse(location); err == nil && u.Scheme != "" && u.Host != "" {
		base = path.Base(u.Path)
		if base == "/" || base == "." || base == "" {
			base = u.Host
		}
	}
	return base + ".json"
}
