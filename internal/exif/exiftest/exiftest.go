// Package exiftest builds small JPEG and TIFF payloads carrying EXIF tags
// for use in tests.
package exiftest

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
)

// TIFF field types
const (
	typeASCII    = 2
	typeShort    = 3
	typeLong     = 4
	typeRational = 5
)

// Tag ids
const (
	TagMake            = 0x010F
	TagModel           = 0x0110
	TagExifIFDPointer  = 0x8769
	TagExposureTime    = 0x829A
	TagFNumber         = 0x829D
	TagISOSpeedRatings = 0x8827
	TagFocalLength     = 0x920A
)

// Entry is a single IFD entry with its value already encoded little-endian
type Entry struct {
	Tag   uint16
	Type  uint16
	Count uint32
	Data  []byte
}

// ASCII returns a NUL-terminated string entry
func ASCII(tag uint16, s string) Entry {
	data := append([]byte(s), 0)
	return Entry{Tag: tag, Type: typeASCII, Count: uint32(len(data)), Data: data}
}

// Short returns a single SHORT entry
func Short(tag uint16, v uint16) Entry {
	data := make([]byte, 2)
	binary.LittleEndian.PutUint16(data, v)
	return Entry{Tag: tag, Type: typeShort, Count: 1, Data: data}
}

// Long returns a single LONG entry
func Long(tag uint16, v uint32) Entry {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, v)
	return Entry{Tag: tag, Type: typeLong, Count: 1, Data: data}
}

// Rational returns a single RATIONAL entry
func Rational(tag uint16, num, den uint32) Entry {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data[:4], num)
	binary.LittleEndian.PutUint32(data[4:], den)
	return Entry{Tag: tag, Type: typeRational, Count: 1, Data: data}
}

// TIFF encodes a little-endian TIFF structure with ifd0 as the primary
// directory and exifIFD linked through an Exif IFD pointer.
func TIFF(ifd0, exifIFD []Entry) []byte {
	const ifd0Offset = 8

	entries := append([]Entry(nil), ifd0...)
	if len(exifIFD) > 0 {
		entries = append(entries, Long(TagExifIFDPointer, 0))
	}

	exifOffset := ifd0Offset + ifdSize(entries)
	if len(exifIFD) > 0 {
		binary.LittleEndian.PutUint32(entries[len(entries)-1].Data, exifOffset)
	}

	var buf bytes.Buffer
	buf.WriteString("II")
	binary.Write(&buf, binary.LittleEndian, uint16(42))
	binary.Write(&buf, binary.LittleEndian, uint32(ifd0Offset))
	buf.Write(encodeIFD(ifd0Offset, entries))
	if len(exifIFD) > 0 {
		buf.Write(encodeIFD(exifOffset, exifIFD))
	}
	return buf.Bytes()
}

// JPEG encodes a gray width x height JPEG and inserts an APP1 Exif segment
// built from the given entries right after the SOI marker. With no entries
// the image carries no EXIF block at all.
func JPEG(width, height int, ifd0, exifIFD []Entry) []byte {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x + y) % 256)})
		}
	}

	var encoded bytes.Buffer
	if err := jpeg.Encode(&encoded, img, nil); err != nil {
		panic(err)
	}
	raw := encoded.Bytes()
	if len(ifd0) == 0 && len(exifIFD) == 0 {
		return raw
	}

	payload := append([]byte("Exif\x00\x00"), TIFF(ifd0, exifIFD)...)

	var out bytes.Buffer
	out.Write(raw[:2]) // SOI
	out.Write([]byte{0xFF, 0xE1})
	binary.Write(&out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
	out.Write(raw[2:])
	return out.Bytes()
}

func ifdSize(entries []Entry) uint32 {
	size := uint32(2 + 12*len(entries) + 4)
	for _, e := range entries {
		if len(e.Data) > 4 {
			size += uint32(padded(len(e.Data)))
		}
	}
	return size
}

func encodeIFD(offset uint32, entries []Entry) []byte {
	var dir, data bytes.Buffer
	dataOffset := offset + uint32(2+12*len(entries)+4)

	binary.Write(&dir, binary.LittleEndian, uint16(len(entries)))
	for _, e := range entries {
		binary.Write(&dir, binary.LittleEndian, e.Tag)
		binary.Write(&dir, binary.LittleEndian, e.Type)
		binary.Write(&dir, binary.LittleEndian, e.Count)
		if len(e.Data) <= 4 {
			inline := make([]byte, 4)
			copy(inline, e.Data)
			dir.Write(inline)
			continue
		}
		binary.Write(&dir, binary.LittleEndian, dataOffset+uint32(data.Len()))
		data.Write(e.Data)
		if len(e.Data)%2 == 1 {
			data.WriteByte(0)
		}
	}
	binary.Write(&dir, binary.LittleEndian, uint32(0)) // no next IFD

	dir.Write(data.Bytes())
	return dir.Bytes()
}

func padded(n int) int {
	return n + n%2
}
