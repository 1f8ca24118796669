package exif

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/bstardust/image-metadata-extractor/internal/exif/exiftest"
	"github.com/bstardust/image-metadata-extractor/internal/metadata"
	"github.com/rwcarlsen/goexif/tiff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_JPEG(t *testing.T) {
	data := exiftest.JPEG(16, 8,
		[]exiftest.Entry{
			exiftest.ASCII(exiftest.TagMake, "Acme"),
			exiftest.ASCII(exiftest.TagModel, "Pinhole 1"),
		},
		[]exiftest.Entry{
			exiftest.Rational(exiftest.TagExposureTime, 1, 200),
			exiftest.Rational(exiftest.TagFNumber, 28, 10),
			exiftest.Short(exiftest.TagISOSpeedRatings, 400),
			exiftest.Rational(exiftest.TagFocalLength, 50, 1),
		},
	)

	tags, err := Extract(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, metadata.Text("Acme"), tags[metadata.TagMake])
	assert.Equal(t, metadata.Text("Pinhole 1"), tags[metadata.TagModel])
	assert.Equal(t, metadata.Rational(1, 200), tags[metadata.TagExposureTime])
	assert.Equal(t, metadata.Rational(28, 10), tags[metadata.TagFNumber])
	assert.Equal(t, metadata.Integer(400), tags[metadata.TagISO])
	assert.Equal(t, metadata.Rational(50, 1), tags[metadata.TagFocalLength])
}

func TestExtract_NoExif(t *testing.T) {
	data := exiftest.JPEG(4, 4, nil, nil)

	tags, err := Extract(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestExtract_RawTIFF(t *testing.T) {
	data := exiftest.TIFF(
		[]exiftest.Entry{exiftest.ASCII(exiftest.TagMake, "Nocturne")},
		[]exiftest.Entry{exiftest.Rational(exiftest.TagFNumber, 4, 1)},
	)

	tags, err := Extract(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, metadata.Text("Nocturne"), tags[metadata.TagMake])
	assert.Equal(t, metadata.Rational(4, 1), tags[metadata.TagFNumber])
}

func decodeTag(t *testing.T, e exiftest.Entry) *tiff.Tag {
	t.Helper()

	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, e.Tag)
	binary.Write(&buf, binary.LittleEndian, e.Type)
	binary.Write(&buf, binary.LittleEndian, e.Count)
	if len(e.Data) <= 4 {
		inline := make([]byte, 4)
		copy(inline, e.Data)
		buf.Write(inline)
	} else {
		binary.Write(&buf, binary.LittleEndian, uint32(12))
		buf.Write(e.Data)
	}

	tag, err := tiff.DecodeTag(bytes.NewReader(buf.Bytes()), binary.LittleEndian)
	require.NoError(t, err)
	return tag
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name  string
		entry exiftest.Entry
		want  metadata.Value
	}{
		{"ascii", exiftest.ASCII(exiftest.TagMake, "Canon"), metadata.Text("Canon")},
		{"short", exiftest.Short(exiftest.TagISOSpeedRatings, 100), metadata.Integer(100)},
		{"long", exiftest.Long(0x0100, 4032), metadata.Integer(4032)},
		{"rational", exiftest.Rational(exiftest.TagFNumber, 18, 10), metadata.Rational(18, 10)},
		{"zero denominator", exiftest.Rational(exiftest.TagFNumber, 18, 0), metadata.Rational(18, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Convert(decodeTag(t, tt.entry))
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvert_Nil(t *testing.T) {
	_, ok := Convert(nil)
	assert.False(t, ok)
}
