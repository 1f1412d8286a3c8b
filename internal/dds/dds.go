// Package dds writes captured texture payloads into DDS containers. Payload
// bytes are copied verbatim after a format-appropriate header; there is no
// recompression or resampling.
package dds

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// Magic is the little-endian "DDS " signature.
const Magic = 0x20534444

// Header flag bits.
const (
	flagCaps        = 0x1
	flagHeight      = 0x2
	flagWidth       = 0x4
	flagPitch       = 0x8
	flagPixelFormat = 0x1000
	flagLinearSize  = 0x80000

	pixelFormatFourCC = 0x4
	capsTexture       = 0x1000

	dimensionTexture2D = 3

	headerLen     = 124
	dx10HeaderLen = 20
	// PrefixLen is the total byte length before the pixel payload.
	PrefixLen = 4 + headerLen + dx10HeaderLen
)

// formatCodes maps host pixel-format families to output container codes.
// Fixed table; unrecognized formats fall back to R8G8B8A8.
var formatCodes = []struct {
	key  string
	code uint32
}{
	{"R8G8B8A8", 28},
	{"B8G8R8A8", 87},
	{"BC1", 71},
	{"BC2", 74},
	{"BC3", 77},
	{"BC4", 80},
	{"BC5", 83},
	{"BC6H", 95},
	{"BC7", 98},
}

// DefaultFormatCode is used when the host format matches no table entry.
const DefaultFormatCode = 28

// FormatCode returns the container format code for a host pixel-format
// identifier, matching exact names first and then family prefixes.
func FormatCode(format string) uint32 {
	for _, e := range formatCodes {
		if format == e.key {
			return e.code
		}
	}
	for _, e := range formatCodes {
		if strings.Contains(format, e.key) {
			return e.code
		}
	}
	return DefaultFormatCode
}

// BlockSize returns the bytes per 4×4 block for block-compressed formats, or
// 0 for uncompressed formats.
func BlockSize(format string) uint32 {
	switch {
	case strings.Contains(format, "BC1"), strings.Contains(format, "BC4"):
		return 8
	case strings.Contains(format, "BC2"), strings.Contains(format, "BC3"),
		strings.Contains(format, "BC5"), strings.Contains(format, "BC6H"),
		strings.Contains(format, "BC7"):
		return 16
	}
	return 0
}

// BytesPerPixel returns the pixel size of an uncompressed format.
func BytesPerPixel(format string) uint32 {
	switch {
	case strings.Contains(format, "R32G32B32A32"):
		return 16
	case strings.Contains(format, "R16G16B16A16"), strings.Contains(format, "R32G32"):
		return 8
	case strings.Contains(format, "R8G8B8A8"), strings.Contains(format, "B8G8R8A8"),
		strings.Contains(format, "R10G10B10A2"), strings.Contains(format, "R11G11B10"),
		strings.Contains(format, "R16G16"), strings.Contains(format, "R32"),
		strings.Contains(format, "D32"), strings.Contains(format, "D24"):
		return 4
	case strings.Contains(format, "R8G8"), strings.Contains(format, "R16"):
		return 2
	case strings.Contains(format, "R8"):
		return 1
	}
	return 4
}

// Encode writes one 2D texture as a DDS file: magic, 124-byte header, DX10
// extension header, then the payload verbatim.
func Encode(w io.Writer, width, height uint32, format string, payload []byte) error {
	prefix := make([]byte, PrefixLen)
	put := func(off int, v uint32) { binary.LittleEndian.PutUint32(prefix[off:], v) }

	put(0, Magic)

	flags := uint32(flagCaps | flagHeight | flagWidth | flagPixelFormat)
	var pitchOrLinear uint32
	if bs := BlockSize(format); bs > 0 {
		flags |= flagLinearSize
		blockW := (width + 3) / 4
		blockH := (height + 3) / 4
		pitchOrLinear = blockW * blockH * bs
	} else {
		flags |= flagPitch
		pitchOrLinear = width * BytesPerPixel(format)
	}

	// DDS_HEADER at offset 4
	put(4, headerLen)
	put(8, flags)
	put(12, height)
	put(16, width)
	put(20, pitchOrLinear)
	put(24, 1) // depth
	put(28, 1) // mip count

	// DDS_PIXELFORMAT at offset 76
	put(76, 32)
	put(80, pixelFormatFourCC)
	copy(prefix[84:88], "DX10")

	put(108, capsTexture)

	// DDS_HEADER_DXT10 at offset 128
	put(128, FormatCode(format))
	put(132, dimensionTexture2D)
	put(140, 1) // array size

	if _, err := w.Write(prefix); err != nil {
		return fmt.Errorf("dds: write header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("dds: write payload: %w", err)
	}
	return nil
}
