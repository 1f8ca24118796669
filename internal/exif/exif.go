// internal/exif/exif.go
package exif

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bstardust/image-metadata-extractor/internal/logger"
	"github.com/bstardust/image-metadata-extractor/internal/metadata"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
	"github.com/rwcarlsen/goexif/tiff"
)

func init() {
	exif.RegisterParsers(mknote.All...)
}

// Extract decodes the EXIF block of an image and resolves every tag to its
// name. Images without EXIF data yield an empty map and no error.
func Extract(r io.Reader) (metadata.Tags, error) {
	tags := metadata.Tags{}

	x, err := exif.Decode(r)
	if err != nil {
		if x == nil || exif.IsCriticalError(err) {
			if isMissingExif(err) {
				logger.Debug("No EXIF data found: %v", err)
				return tags, nil
			}
			return tags, fmt.Errorf("failed to decode EXIF data: %w", err)
		}
		// partial data is still usable
		logger.Debug("EXIF decoded with non-critical errors: %v", err)
	}

	if err := x.Walk(walker{tags: tags}); err != nil {
		return tags, fmt.Errorf("failed to walk EXIF tags: %w", err)
	}

	return tags, nil
}

// Convert turns a decoded TIFF tag into a raw tag value. Only the first
// component of multi-valued tags is kept.
func Convert(tag *tiff.Tag) (metadata.Value, bool) {
	if tag == nil || tag.Count == 0 {
		return metadata.Value{}, false
	}

	switch tag.Format() {
	case tiff.IntVal:
		if v, err := tag.Int64(0); err == nil {
			return metadata.Integer(v), true
		}
	case tiff.RatVal:
		if num, den, err := tag.Rat2(0); err == nil {
			return metadata.Rational(num, den), true
		}
	case tiff.FloatVal:
		if v, err := tag.Float(0); err == nil {
			return metadata.Real(v), true
		}
	case tiff.StringVal:
		if s, err := tag.StringVal(); err == nil {
			return metadata.Text(strings.TrimRight(s, "\x00")), true
		}
	}

	return metadata.Value{}, false
}

type walker struct {
	tags metadata.Tags
}

func (w walker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if v, ok := Convert(tag); ok {
		w.tags[string(name)] = v
	}
	return nil
}

// isMissingExif reports whether err means the image simply carries no EXIF
// block, as opposed to a corrupt one.
func isMissingExif(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no exif") ||
		strings.Contains(msg, "failed to find exif") ||
		strings.Contains(msg, "exif header")
}
