package geometry

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// matrixSize is one row-major 4×4 float32 matrix.
const matrixSize = 64

// Skeleton is a resolved bone-matrix array read from the constant buffer the
// correlator names "Skeleton".
type Skeleton struct {
	Matrices []mgl32.Mat4
}

// ParseSkeleton reads buffer bytes as consecutive row-major 4×4 float32
// matrices. Trailing bytes short of a full matrix are ignored.
func ParseSkeleton(data []byte) *Skeleton {
	count := len(data) / matrixSize
	s := &Skeleton{Matrices: make([]mgl32.Mat4, 0, count)}
	for i := 0; i < count; i++ {
		base := i * matrixSize
		var rows [4]mgl32.Vec4
		for r := 0; r < 4; r++ {
			for c := 0; c < 4; c++ {
				bits := binary.LittleEndian.Uint32(data[base+(r*4+c)*4:])
				rows[r][c] = math.Float32frombits(bits)
			}
		}
		s.Matrices = append(s.Matrices, mgl32.Mat4FromRows(rows[0], rows[1], rows[2], rows[3]))
	}
	return s
}

// SkinStats reports per-mesh skinning anomalies.
type SkinStats struct {
	// OutOfRange counts weighted contributions whose bone index was >= the
	// matrix count and therefore fell back to the unskinned position.
	OutOfRange int
}

// SkinVertices blends each vertex by its (up to 4) weighted bone matrices:
//
//	out = Σ wᵢ · (Mᵢ × pos)
//
// Weights are used exactly as decoded; a weight sum other than 1 scales the
// result accordingly. A bone index beyond the matrix array contributes the
// identity transform (weight applied to the unskinned position) and is
// counted, not fatal. Normals get the same blend with translation removed,
// then are unit-normalized.
func SkinVertices(positions, normals [][3]float32, bones *BoneStream, skel *Skeleton) (outPos, outNorm [][3]float32, stats SkinStats) {
	outPos = make([][3]float32, len(positions))
	copy(outPos, positions)
	outNorm = make([][3]float32, len(normals))
	copy(outNorm, normals)

	n := len(positions)
	if len(bones.Indices) < n {
		n = len(bones.Indices)
	}

	for i := 0; i < n; i++ {
		p := mgl32.Vec3{positions[i][0], positions[i][1], positions[i][2]}
		var blended mgl32.Vec3

		var nrm, blendedNrm mgl32.Vec3
		hasNormal := i < len(normals)
		if hasNormal {
			nrm = mgl32.Vec3{normals[i][0], normals[i][1], normals[i][2]}
		}

		for k := 0; k < 4; k++ {
			w := bones.Weights[i][k]
			if w == 0 {
				continue
			}
			idx := int(bones.Indices[i][k])
			if idx >= len(skel.Matrices) {
				blended = blended.Add(p.Mul(w))
				if hasNormal {
					blendedNrm = blendedNrm.Add(nrm.Mul(w))
				}
				stats.OutOfRange++
				continue
			}
			m := skel.Matrices[idx]
			blended = blended.Add(m.Mul4x1(p.Vec4(1)).Vec3().Mul(w))
			if hasNormal {
				blendedNrm = blendedNrm.Add(m.Mat3().Mul3x1(nrm).Mul(w))
			}
		}

		outPos[i] = [3]float32{blended.X(), blended.Y(), blended.Z()}
		if hasNormal {
			if l := blendedNrm.Len(); l > 1e-4 {
				blendedNrm = blendedNrm.Mul(1 / l)
			}
			outNorm[i] = [3]float32{blendedNrm.X(), blendedNrm.Y(), blendedNrm.Z()}
		}
	}

	return outPos, outNorm, stats
}
