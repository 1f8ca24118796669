package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Unknown is reported for any field whose source data is missing or unusable
const Unknown = "unknown"

// Display field names, in output order
const (
	FieldCameraMake   = "Camera Make"
	FieldCameraModel  = "Camera Model"
	FieldImageSize    = "Image Size"
	FieldFStop        = "F-stop"
	FieldFocalLength  = "Focal Length"
	FieldShutterSpeed = "Shutter Speed"
	FieldISO          = "ISO"
)

// Source EXIF tag names
const (
	TagMake         = "Make"
	TagModel        = "Model"
	TagFNumber      = "FNumber"
	TagFocalLength  = "FocalLength"
	TagExposureTime = "ExposureTime"
	TagISO          = "ISOSpeedRatings"
)

// FieldNames lists every display field in output order
var FieldNames = []string{
	FieldCameraMake,
	FieldCameraModel,
	FieldImageSize,
	FieldFStop,
	FieldFocalLength,
	FieldShutterSpeed,
	FieldISO,
}

// Dimensions represents the pixel size of a decoded image
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Field is one display entry of a Result
type Field struct {
	Name  string
	Value string
}

// Result holds the display fields in fixed order. Every name in FieldNames
// is present exactly once.
type Result []Field

// Normalize derives display fields from raw EXIF tags and optional image
// dimensions. It never fails: a missing or malformed input only turns the
// affected field into Unknown.
func Normalize(tags Tags, dims *Dimensions) Result {
	imageSize := ""
	if dims != nil {
		imageSize = fmt.Sprintf("%d x %d", dims.Width, dims.Height)
	}

	return Result{
		{FieldCameraMake, orUnknown(asIs(tags, TagMake))},
		{FieldCameraModel, orUnknown(asIs(tags, TagModel))},
		{FieldImageSize, orUnknown(imageSize, dims != nil)},
		{FieldFStop, orUnknown(decimal(tags, TagFNumber))},
		{FieldFocalLength, orUnknown(decimal(tags, TagFocalLength))},
		{FieldShutterSpeed, orUnknown(shutterSpeed(tags, TagExposureTime))},
		{FieldISO, orUnknown(asIs(tags, TagISO))},
	}
}

// Get returns the value of the named field
func (r Result) Get(name string) (string, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// ToMap converts the result to S3 user metadata keys (camera-make, f-stop, ...)
func (r Result) ToMap() map[string]string {
	result := make(map[string]string, len(r))
	for _, f := range r {
		key := strings.ToLower(strings.ReplaceAll(f.Name, " ", "-"))
		result[key] = f.Value
	}
	return result
}

// MarshalJSON encodes the result as a JSON object keeping field order
func (r Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(&buf, f.Name); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeString(&buf, f.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}

func orUnknown(s string, ok bool) string {
	if !ok {
		return Unknown
	}
	return s
}

func asIs(tags Tags, name string) (string, bool) {
	v, ok := tags.Lookup(name)
	if !ok {
		return "", false
	}
	return v.String(), true
}

// decimal converts rationals to a decimal number; plain numbers and text
// pass through unchanged.
func decimal(tags Tags, name string) (string, bool) {
	v, ok := tags.Lookup(name)
	if !ok {
		return "", false
	}

	switch v.Kind() {
	case KindRational:
		num, den, _ := v.Rat()
		if den == 0 {
			return "", false
		}
		return finite(float64(num) / float64(den))
	case KindReal:
		f, _ := v.Float()
		return finite(f)
	default:
		return v.String(), true
	}
}

// shutterSpeed renders a rational (n, d) as "d/n" and a plain exposure
// time t as "1/round(1/t)".
func shutterSpeed(tags Tags, name string) (string, bool) {
	v, ok := tags.Lookup(name)
	if !ok {
		return "", false
	}

	var t float64
	switch v.Kind() {
	case KindRational:
		num, den, _ := v.Rat()
		if den == 0 {
			return "", false
		}
		return fmt.Sprintf("%d/%d", den, num), true
	case KindInteger:
		i, _ := v.Int()
		t = float64(i)
	case KindReal:
		t, _ = v.Float()
	default:
		return "", false
	}

	if t == 0 {
		return "", false
	}
	recip := 1 / t
	if math.IsNaN(recip) || math.IsInf(recip, 0) {
		return "", false
	}

	rounded := math.RoundToEven(recip)
	if rounded == 0 {
		// drop the sign of negative zero
		rounded = 0
	}
	return "1/" + strconv.FormatFloat(rounded, 'f', 0, 64), true
}

func finite(f float64) (string, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false
	}
	return formatReal(f), true
}
