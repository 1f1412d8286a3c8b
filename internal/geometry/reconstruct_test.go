package geometry

import (
	"encoding/binary"
	"fmt"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gpa-frame-export/internal/capture"
	"gpa-frame-export/internal/runlog"
)

type fakeBuffers map[uint64][]byte

func (f fakeBuffers) BufferData(id uint64) ([]byte, error) {
	data, ok := f[id]
	if !ok {
		return nil, fmt.Errorf("buffer %d: %w", id, capture.ErrNoData)
	}
	return data, nil
}

func (f fakeBuffers) ImageData(id uint64, subresource uint32) ([]byte, capture.ImageInfo, error) {
	return nil, capture.ImageInfo{}, capture.ErrNoData
}

// triangleBuffers builds a 3-vertex stride-24 buffer and a 16-bit index buffer.
func triangleBuffers() (vertices, indices []byte) {
	vertices = make([]byte, 3*24)
	pos := [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	for i, p := range pos {
		base := i * 24
		putF32(vertices, base, p[0])
		putF32(vertices, base+4, p[1])
		putF32(vertices, base+8, p[2])
		vertices[base+12] = 128
		putF32(vertices, base+16, 0)
		putF32(vertices, base+20, 0)
	}
	indices = make([]byte, 3*2)
	for i, idx := range []uint16{0, 1, 2} {
		binary.LittleEndian.PutUint16(indices[i*2:], idx)
	}
	return vertices, indices
}

func drawEvent(indexCount, startIndex, baseVertex int64, inputs []capture.ResourceRef) capture.Call {
	return capture.Call{
		Index:   42,
		Name:    "DrawIndexed",
		IsEvent: true,
		Arguments: []capture.Argument{
			{Name: "IndexCount", Value: indexCount},
			{Name: "StartIndexLocation", Value: startIndex},
			{Name: "BaseVertexLocation", Value: baseVertex},
		},
		Inputs: inputs,
	}
}

func TestReconstructTriangle(t *testing.T) {
	vertices, indices := triangleBuffers()
	r := &Reconstructor{
		Resources: fakeBuffers{1: vertices, 2: indices},
		Log:       runlog.Discard(),
	}
	event := drawEvent(3, 0, 0, []capture.ResourceRef{
		{ResourceID: 2, ViewType: "IBV", Stride: 2},
		{ResourceID: 1, ViewType: "VBV", Stride: 24},
	})

	mesh, err := r.Reconstruct(event, 0, false)
	require.NoError(t, err)
	require.Len(t, mesh.Positions, 3)
	assert.Equal(t, []uint32{0, 1, 2}, mesh.Indices)
	assert.False(t, mesh.Skinned)
	assert.Len(t, mesh.Normals, 3)
	assert.Len(t, mesh.UVs, 3)
}

func TestReconstructCompactsUnusedVertices(t *testing.T) {
	vertices, _ := triangleBuffers()
	// indices reference only vertices 1 and 2
	indices := make([]byte, 6)
	for i, idx := range []uint16{1, 2, 1} {
		binary.LittleEndian.PutUint16(indices[i*2:], idx)
	}
	r := &Reconstructor{
		Resources: fakeBuffers{1: vertices, 2: indices},
		Log:       runlog.Discard(),
	}
	event := drawEvent(3, 0, 0, []capture.ResourceRef{
		{ResourceID: 2, ViewType: "IBV", Stride: 2},
		{ResourceID: 1, ViewType: "VBV", Stride: 24},
	})

	mesh, err := r.Reconstruct(event, 0, false)
	require.NoError(t, err)
	assert.Len(t, mesh.Positions, 2)
	assert.Equal(t, []uint32{0, 1, 0}, mesh.Indices)
	assert.Equal(t, [3]float32{1, 0, 0}, mesh.Positions[0])
	assert.Equal(t, [3]float32{0, 1, 0}, mesh.Positions[1])
}

func TestReconstructAppliesBaseVertex(t *testing.T) {
	vertices, _ := triangleBuffers()
	indices := make([]byte, 6) // all zeros; base vertex shifts them to 1
	r := &Reconstructor{
		Resources: fakeBuffers{1: vertices, 2: indices},
		Log:       runlog.Discard(),
	}
	event := drawEvent(3, 0, 1, []capture.ResourceRef{
		{ResourceID: 2, ViewType: "IBV", Stride: 2},
		{ResourceID: 1, ViewType: "VBV", Stride: 24},
	})

	mesh, err := r.Reconstruct(event, 0, false)
	require.NoError(t, err)
	require.Len(t, mesh.Positions, 1)
	assert.Equal(t, [3]float32{1, 0, 0}, mesh.Positions[0])
}

func TestReconstructSkinned(t *testing.T) {
	vertices, indices := triangleBuffers()

	bones := make([]byte, 3*StrideBone)
	for i := 0; i < 3; i++ {
		bones[i*StrideBone] = 255 // full weight on bone 0
	}

	skelBytes := make([]byte, matrixSize)
	m := mgl32.Translate3D(0, 0, 5)
	for r := 0; r < 4; r++ {
		row := m.Row(r)
		for c := 0; c < 4; c++ {
			binary.LittleEndian.PutUint32(skelBytes[(r*4+c)*4:], math.Float32bits(row[c]))
		}
	}

	rec := &Reconstructor{
		Resources: fakeBuffers{1: vertices, 2: indices, 3: bones, 4: skelBytes},
		Log:       runlog.Discard(),
	}
	event := drawEvent(3, 0, 0, []capture.ResourceRef{
		{ResourceID: 2, ViewType: "IBV", Stride: 2},
		{ResourceID: 1, ViewType: "VBV", Stride: 24},
		{ResourceID: 3, ViewType: "VBV", Stride: 8},
	})

	mesh, err := rec.Reconstruct(event, 4, true)
	require.NoError(t, err)
	assert.True(t, mesh.Skinned)
	for _, p := range mesh.Positions {
		assert.InDelta(t, 5.0, p[2], 1e-4)
	}
}

func TestReconstructSkinningDegradesWithoutSkeleton(t *testing.T) {
	vertices, indices := triangleBuffers()
	rec := &Reconstructor{
		Resources: fakeBuffers{1: vertices, 2: indices},
		Log:       runlog.Discard(),
	}
	event := drawEvent(3, 0, 0, []capture.ResourceRef{
		{ResourceID: 2, ViewType: "IBV", Stride: 2},
		{ResourceID: 1, ViewType: "VBV", Stride: 24},
	})

	mesh, err := rec.Reconstruct(event, 0, true)
	require.NoError(t, err)
	assert.False(t, mesh.Skinned)
}

func TestReconstructNoBuffersIsSkippable(t *testing.T) {
	rec := &Reconstructor{Resources: fakeBuffers{}, Log: runlog.Discard()}
	event := drawEvent(3, 0, 0, nil)

	_, err := rec.Reconstruct(event, 0, false)
	assert.ErrorIs(t, err, ErrNoGeometry)
}

func TestReconstructMissingBufferData(t *testing.T) {
	rec := &Reconstructor{Resources: fakeBuffers{}, Log: runlog.Discard()}
	event := drawEvent(3, 0, 0, []capture.ResourceRef{
		{ResourceID: 2, ViewType: "IBV", Stride: 2},
		{ResourceID: 1, ViewType: "VBV", Stride: 24},
	})

	_, err := rec.Reconstruct(event, 0, false)
	assert.ErrorIs(t, err, capture.ErrNoData)
}

func TestReconstructBadIndexKeepsFacesAligned(t *testing.T) {
	vertices, _ := triangleBuffers()
	// second corner of the first triangle points past the 3 decoded vertices
	indices := make([]byte, 12)
	for i, idx := range []uint16{0, 1, 5, 1, 2, 0} {
		binary.LittleEndian.PutUint16(indices[i*2:], idx)
	}
	r := &Reconstructor{
		Resources: fakeBuffers{1: vertices, 2: indices},
		Log:       runlog.Discard(),
	}
	event := drawEvent(6, 0, 0, []capture.ResourceRef{
		{ResourceID: 2, ViewType: "IBV", Stride: 2},
		{ResourceID: 1, ViewType: "VBV", Stride: 24},
	})

	mesh, err := r.Reconstruct(event, 0, false)
	require.NoError(t, err)

	// every index survives; the bad one maps to a shared zero placeholder
	require.Len(t, mesh.Indices, 6)
	require.Len(t, mesh.Positions, 4)
	assert.Equal(t, []uint32{0, 1, 3, 1, 2, 0}, mesh.Indices)
	assert.Equal(t, [3]float32{}, mesh.Positions[3])

	// the second triangle still references its own corners
	assert.Equal(t, [3]float32{1, 0, 0}, mesh.Positions[mesh.Indices[3]])
	assert.Equal(t, [3]float32{0, 1, 0}, mesh.Positions[mesh.Indices[4]])
	assert.Equal(t, [3]float32{0, 0, 0}, mesh.Positions[mesh.Indices[5]])
}

func TestReconstructPrefersWidestVertexStream(t *testing.T) {
	_, indices := triangleBuffers()

	wide := make([]byte, 3*36)
	for i := 0; i < 3; i++ {
		putF32(wide, i*36, float32(i)*10)
	}
	narrow := make([]byte, 3*24)

	rec := &Reconstructor{
		Resources: fakeBuffers{1: narrow, 2: indices, 5: wide},
		Log:       runlog.Discard(),
	}
	event := drawEvent(3, 0, 0, []capture.ResourceRef{
		{ResourceID: 2, ViewType: "IBV", Stride: 2},
		{ResourceID: 1, ViewType: "VBV", Stride: 24},
		{ResourceID: 5, ViewType: "VBV", Stride: 36},
	})

	mesh, err := rec.Reconstruct(event, 0, false)
	require.NoError(t, err)
	assert.Equal(t, [3]float32{10, 0, 0}, mesh.Positions[1])
}
