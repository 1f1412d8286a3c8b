// Package geometry rebuilds mesh geometry from raw captured buffer bytes:
// vertex-layout decoding, index slicing and skeletal skinning.
package geometry

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Stream classification by vertex stride. Anything not listed classifies as a
// vertex stream (explicit fallback, not inferred).
const (
	StrideBone    = 8
	StrideTangent = 16
)

// ClassifyStride names a vertex-buffer stream by its stride.
func ClassifyStride(stride uint32) string {
	switch {
	case stride == StrideBone:
		return "bone"
	case stride == StrideTangent:
		return "tangent"
	default:
		return "vertex"
	}
}

// MalformedStreamError flags a buffer whose length is not a whole multiple of
// its stride. Decoding still yields the whole vertices; the remainder is
// reported, never silently dropped.
type MalformedStreamError struct {
	Stride    int
	Length    int
	Remainder int
}

func (e *MalformedStreamError) Error() string {
	return fmt.Sprintf("geometry: buffer length %d leaves %d trailing bytes at stride %d",
		e.Length, e.Remainder, e.Stride)
}

// VertexStream holds the decoded attributes of one vertex buffer. Normals are
// stored as the raw unsigned byte components mapped linearly to 0..1; they are
// not remapped into a signed range (preserved behavior of the capture
// toolchain this replaces).
type VertexStream struct {
	Stride    int
	Positions [][3]float32
	Normals   [][3]float32
	UVs       [][2]float32
}

func f32(data []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
}

// DecodeVertexStream decodes a vertex buffer using the fixed layout for its
// stride. Position is always 3 float32 at offset 0. Known layouts:
//
//	24: pos | normal ubyte4      | uv f32×2
//	28: pos | color ubyte4 (skip)| normal ubyte4 | uv
//	32: pos | normal ubyte4      | uv0 | uv1 (uv0 kept)
//	36: pos | color (skip)       | normal ubyte4 | uv0 | uv1 (uv0 kept)
//
// Other strides ≥ 12 decode position only. The UV V component is flipped.
// A trailing remainder returns the decoded stream alongside a
// *MalformedStreamError.
func DecodeVertexStream(data []byte, stride int) (*VertexStream, error) {
	if stride < 12 {
		return nil, fmt.Errorf("geometry: stride %d too small for positions", stride)
	}

	count := len(data) / stride
	s := &VertexStream{
		Stride:    stride,
		Positions: make([][3]float32, 0, count),
	}

	normalOff, uvOff := attributeOffsets(stride)
	if normalOff >= 0 {
		s.Normals = make([][3]float32, 0, count)
	}
	if uvOff >= 0 {
		s.UVs = make([][2]float32, 0, count)
	}

	for i := 0; i < count; i++ {
		base := i * stride
		s.Positions = append(s.Positions, [3]float32{
			f32(data, base), f32(data, base+4), f32(data, base+8),
		})
		if normalOff >= 0 {
			s.Normals = append(s.Normals, decodeByteNormal(
				data[base+normalOff], data[base+normalOff+1], data[base+normalOff+2]))
		}
		if uvOff >= 0 {
			u := f32(data, base+uvOff)
			v := f32(data, base+uvOff+4)
			s.UVs = append(s.UVs, [2]float32{u, 1 - v})
		}
	}

	if rem := len(data) % stride; rem != 0 {
		return s, &MalformedStreamError{Stride: stride, Length: len(data), Remainder: rem}
	}
	return s, nil
}

// attributeOffsets returns the normal and uv byte offsets for a stride, or -1
// when the attribute is absent.
func attributeOffsets(stride int) (normal, uv int) {
	switch stride {
	case 24:
		return 12, 16
	case 28:
		return 16, 20
	case 32:
		return 12, 16
	case 36:
		return 16, 20
	default:
		return -1, -1
	}
}

// decodeByteNormal maps unsigned byte components linearly into 0..1. The
// mapping is deliberately not signed-normalized into -1..1.
func decodeByteNormal(x, y, z byte) [3]float32 {
	return [3]float32{float32(x) / 255, float32(y) / 255, float32(z) / 255}
}

// BoneStream holds per-vertex bone indices and weights decoded from a
// stride-8 stream: 4 weight bytes then 4 index bytes per vertex. Weights are
// scaled byte/255 and used as-is; they are never renormalized to sum to 1.
type BoneStream struct {
	Indices [][4]uint8
	Weights [][4]float32
}

// DecodeBoneStream decodes a bone-classified stream.
func DecodeBoneStream(data []byte) (*BoneStream, error) {
	count := len(data) / StrideBone
	s := &BoneStream{
		Indices: make([][4]uint8, 0, count),
		Weights: make([][4]float32, 0, count),
	}
	for i := 0; i < count; i++ {
		base := i * StrideBone
		var w [4]float32
		var ix [4]uint8
		for k := 0; k < 4; k++ {
			w[k] = float32(data[base+k]) / 255
			ix[k] = data[base+4+k]
		}
		s.Weights = append(s.Weights, w)
		s.Indices = append(s.Indices, ix)
	}
	if rem := len(data) % StrideBone; rem != 0 {
		return s, &MalformedStreamError{Stride: StrideBone, Length: len(data), Remainder: rem}
	}
	return s, nil
}
