package geometry

import (
	"errors"
	"fmt"
	"sort"

	"gpa-frame-export/internal/capture"
	"gpa-frame-export/internal/runlog"
)

// ErrNoGeometry means the event has no usable vertex/index buffer pair.
// Callers skip mesh output for the event and continue.
var ErrNoGeometry = errors.New("geometry: event has no vertex/index buffers")

// Draw argument names carrying the index-range parameters.
const (
	argIndexCount         = "IndexCount"
	argStartIndexLocation = "StartIndexLocation"
	argBaseVertexLocation = "BaseVertexLocation"
)

// Reconstructor rebuilds meshes from an event's bound buffer views.
type Reconstructor struct {
	Resources capture.ResourceSource
	Log       *runlog.Sink
}

// Reconstruct decodes the event's index and vertex streams into a Mesh.
// skeletonResource, when non-zero and skinning is enabled, names the buffer
// holding the bone matrices; a missing skeleton or bone stream degrades to
// unskinned output.
func (r *Reconstructor) Reconstruct(event capture.Call, skeletonResource uint64, enableSkinning bool) (*Mesh, error) {
	var ibv *capture.ResourceRef
	var mainVBV, boneVBV *capture.ResourceRef

	for i := range event.Inputs {
		ref := &event.Inputs[i]
		switch ref.ViewType {
		case "IBV":
			if ibv == nil {
				ibv = ref
			}
		case "VBV":
			switch {
			case ref.Stride == StrideBone:
				boneVBV = ref
			case ref.Stride >= 24 && (mainVBV == nil || ref.Stride > mainVBV.Stride):
				mainVBV = ref
			}
		}
	}
	if mainVBV == nil {
		// no full-attribute stream; fall back to any non-bone VBV
		for i := range event.Inputs {
			ref := &event.Inputs[i]
			if ref.ViewType == "VBV" && ref.Stride != StrideBone {
				mainVBV = ref
				break
			}
		}
	}
	if ibv == nil || mainVBV == nil {
		return nil, ErrNoGeometry
	}

	indexData, err := r.Resources.BufferData(ibv.ResourceID)
	if err != nil {
		return nil, fmt.Errorf("geometry: index buffer %d: %w", ibv.ResourceID, err)
	}
	allIndices := DecodeIndices(indexData, ibv.Stride)

	indexCount := int(event.ArgValue(argIndexCount))
	startIndex := int(event.ArgValue(argStartIndexLocation))
	baseVertex := int32(event.ArgValue(argBaseVertexLocation))

	used := SliceIndices(allIndices, startIndex, indexCount)
	if len(used) == 0 {
		return nil, ErrNoGeometry
	}
	used = ApplyBaseVertex(used, baseVertex)

	vertexData, err := r.Resources.BufferData(mainVBV.ResourceID)
	if err != nil {
		return nil, fmt.Errorf("geometry: vertex buffer %d: %w", mainVBV.ResourceID, err)
	}
	stream, err := DecodeVertexStream(vertexData, int(mainVBV.Stride))
	if err != nil {
		var malformed *MalformedStreamError
		if !errors.As(err, &malformed) {
			return nil, err
		}
		r.Log.Errorf("geometry: event %d: vertex buffer %d malformed: %v",
			event.Index, mainVBV.ResourceID, err)
	}

	positions, normals := stream.Positions, stream.Normals
	skinned := false
	if enableSkinning {
		positions, normals, skinned = r.skin(event, skeletonResource, boneVBV, positions, normals)
	}

	mesh := compact(positions, normals, stream.UVs, used)
	if mesh == nil {
		return nil, ErrNoGeometry
	}
	mesh.Skinned = skinned
	return mesh, nil
}

// skin applies the bone blend when both the skeleton buffer and a bone stream
// resolve; otherwise it returns the inputs untouched.
func (r *Reconstructor) skin(event capture.Call, skeletonResource uint64, boneVBV *capture.ResourceRef, positions, normals [][3]float32) ([][3]float32, [][3]float32, bool) {
	if skeletonResource == 0 {
		r.Log.Debugf("geometry: event %d: no Skeleton cbuffer, emitting unskinned", event.Index)
		return positions, normals, false
	}
	if boneVBV == nil {
		r.Log.Debugf("geometry: event %d: no bone stream, emitting unskinned", event.Index)
		return positions, normals, false
	}

	skelData, err := r.Resources.BufferData(skeletonResource)
	if err != nil {
		r.Log.Errorf("geometry: event %d: skeleton buffer %d: %v", event.Index, skeletonResource, err)
		return positions, normals, false
	}
	skel := ParseSkeleton(skelData)
	if len(skel.Matrices) == 0 {
		return positions, normals, false
	}

	boneData, err := r.Resources.BufferData(boneVBV.ResourceID)
	if err != nil {
		r.Log.Errorf("geometry: event %d: bone buffer %d: %v", event.Index, boneVBV.ResourceID, err)
		return positions, normals, false
	}
	bones, err := DecodeBoneStream(boneData)
	if err != nil {
		r.Log.Errorf("geometry: event %d: bone stream: %v", event.Index, err)
	}

	outPos, outNorm, stats := SkinVertices(positions, normals, bones, skel)
	if stats.OutOfRange > 0 {
		r.Log.Errorf("geometry: event %d: %d bone references beyond %d matrices, used identity",
			event.Index, stats.OutOfRange, len(skel.Matrices))
	}
	return outPos, outNorm, true
}

// compact drops vertices the index list never references, remapping indices
// onto the packed arrays. An index pointing outside the decoded vertex range
// maps to a single shared zero placeholder vertex, keeping every index in
// place so the consecutive-triple face grouping stays aligned.
func compact(positions, normals [][3]float32, uvs [][2]float32, indices []uint32) *Mesh {
	unique := make([]uint32, 0, len(indices))
	seen := make(map[uint32]bool, len(indices))
	for _, idx := range indices {
		if int(idx) < len(positions) && !seen[idx] {
			seen[idx] = true
			unique = append(unique, idx)
		}
	}
	if len(unique) == 0 {
		return nil
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i] < unique[j] })

	remap := make(map[uint32]uint32, len(unique))
	mesh := &Mesh{Positions: make([][3]float32, 0, len(unique))}
	for newIdx, old := range unique {
		remap[old] = uint32(newIdx)
		mesh.Positions = append(mesh.Positions, positions[old])
		if len(normals) > 0 {
			n := [3]float32{0.5, 0.5, 1}
			if int(old) < len(normals) {
				n = normals[old]
			}
			mesh.Normals = append(mesh.Normals, n)
		}
		if len(uvs) > 0 {
			var uv [2]float32
			if int(old) < len(uvs) {
				uv = uvs[old]
			}
			mesh.UVs = append(mesh.UVs, uv)
		}
	}

	var placeholder uint32
	havePlaceholder := false
	mesh.Indices = make([]uint32, 0, len(indices))
	for _, idx := range indices {
		packed, ok := remap[idx]
		if !ok {
			if !havePlaceholder {
				placeholder = uint32(len(mesh.Positions))
				mesh.Positions = append(mesh.Positions, [3]float32{})
				if len(mesh.Normals) > 0 {
					mesh.Normals = append(mesh.Normals, [3]float32{})
				}
				if len(mesh.UVs) > 0 {
					mesh.UVs = append(mesh.UVs, [2]float32{})
				}
				havePlaceholder = true
			}
			packed = placeholder
		}
		mesh.Indices = append(mesh.Indices, packed)
	}
	return mesh
}
