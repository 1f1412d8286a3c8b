package geometry

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matrixBytes(ms ...mgl32.Mat4) []byte {
	buf := make([]byte, 0, len(ms)*matrixSize)
	for _, m := range ms {
		for r := 0; r < 4; r++ {
			row := m.Row(r)
			for c := 0; c < 4; c++ {
				var b [4]byte
				binary.LittleEndian.PutUint32(b[:], math.Float32bits(row[c]))
				buf = append(buf, b[:]...)
			}
		}
	}
	return buf
}

func TestParseSkeleton(t *testing.T) {
	ident := mgl32.Ident4()
	trans := mgl32.Translate3D(1, 2, 3)

	skel := ParseSkeleton(matrixBytes(ident, trans))
	require.Len(t, skel.Matrices, 2)
	assert.Equal(t, ident, skel.Matrices[0])
	assert.Equal(t, trans, skel.Matrices[1])
}

func TestParseSkeletonIgnoresPartialTrailingMatrix(t *testing.T) {
	data := matrixBytes(mgl32.Ident4())
	data = append(data, make([]byte, 30)...)
	skel := ParseSkeleton(data)
	assert.Len(t, skel.Matrices, 1)
}

func TestSkinVerticesHalfWeightBlend(t *testing.T) {
	positions := [][3]float32{{2, 3, 4}}
	bones := &BoneStream{
		Indices: [][4]uint8{{0, 1, 0, 0}},
		Weights: [][4]float32{{0.5, 0.5, 0, 0}},
	}
	skel := &Skeleton{Matrices: []mgl32.Mat4{
		mgl32.Ident4(),
		mgl32.Translate3D(1, 0, 0),
	}}

	outPos, _, stats := SkinVertices(positions, nil, bones, skel)
	require.Len(t, outPos, 1)
	assert.Zero(t, stats.OutOfRange)
	assert.InDelta(t, 2.5, outPos[0][0], 1e-5)
	assert.InDelta(t, 3.0, outPos[0][1], 1e-5)
	assert.InDelta(t, 4.0, outPos[0][2], 1e-5)
}

func TestSkinVerticesWeightsNotRenormalized(t *testing.T) {
	positions := [][3]float32{{1, 1, 1}}
	bones := &BoneStream{
		Indices: [][4]uint8{{0, 0, 0, 0}},
		Weights: [][4]float32{{0.25, 0.25, 0, 0}},
	}
	skel := &Skeleton{Matrices: []mgl32.Mat4{mgl32.Ident4()}}

	outPos, _, _ := SkinVertices(positions, nil, bones, skel)
	// the half-weight sum scales the result, it is not corrected to 1
	assert.InDelta(t, 0.5, outPos[0][0], 1e-5)
	assert.InDelta(t, 0.5, outPos[0][1], 1e-5)
	assert.InDelta(t, 0.5, outPos[0][2], 1e-5)
}

func TestSkinVerticesOutOfRangeIdentityFallback(t *testing.T) {
	positions := [][3]float32{{3, 0, 0}}
	bones := &BoneStream{
		Indices: [][4]uint8{{7, 0, 0, 0}},
		Weights: [][4]float32{{1, 0, 0, 0}},
	}
	skel := &Skeleton{Matrices: []mgl32.Mat4{mgl32.Translate3D(100, 0, 0)}}

	outPos, _, stats := SkinVertices(positions, nil, bones, skel)
	assert.Equal(t, 1, stats.OutOfRange)
	assert.InDelta(t, 3.0, outPos[0][0], 1e-5)
}

func TestSkinVerticesNormalsRotatedAndNormalized(t *testing.T) {
	positions := [][3]float32{{0, 0, 0}}
	normals := [][3]float32{{1, 0, 0}}
	bones := &BoneStream{
		Indices: [][4]uint8{{0, 0, 0, 0}},
		Weights: [][4]float32{{1, 0, 0, 0}},
	}
	// rotate 90° about Z and translate; translation must not affect the normal
	rot := mgl32.Translate3D(10, 20, 30).Mul4(mgl32.HomogRotate3DZ(math.Pi / 2))
	skel := &Skeleton{Matrices: []mgl32.Mat4{rot}}

	_, outNorm, _ := SkinVertices(positions, normals, bones, skel)
	require.Len(t, outNorm, 1)
	assert.InDelta(t, 0.0, outNorm[0][0], 1e-5)
	assert.InDelta(t, 1.0, outNorm[0][1], 1e-5)
	assert.InDelta(t, 0.0, outNorm[0][2], 1e-5)

	l := math.Sqrt(float64(outNorm[0][0]*outNorm[0][0] + outNorm[0][1]*outNorm[0][1] + outNorm[0][2]*outNorm[0][2]))
	assert.InDelta(t, 1.0, l, 1e-4)
}

func TestSkinVerticesShortBoneStream(t *testing.T) {
	positions := [][3]float32{{1, 0, 0}, {2, 0, 0}}
	bones := &BoneStream{
		Indices: [][4]uint8{{0, 0, 0, 0}},
		Weights: [][4]float32{{1, 0, 0, 0}},
	}
	skel := &Skeleton{Matrices: []mgl32.Mat4{mgl32.Translate3D(1, 0, 0)}}

	outPos, _, _ := SkinVertices(positions, nil, bones, skel)
	require.Len(t, outPos, 2)
	assert.InDelta(t, 2.0, outPos[0][0], 1e-5)
	// vertices without bone data pass through unchanged
	assert.InDelta(t, 2.0, outPos[1][0], 1e-5)
}
