package geometry

import "encoding/binary"

// DecodeIndices decodes an index buffer as unsigned integers. elemSize 4
// selects 32-bit elements; anything else is treated as 16-bit, matching the
// capture host's convention.
func DecodeIndices(data []byte, elemSize uint32) []uint32 {
	if elemSize != 4 {
		elemSize = 2
	}
	count := len(data) / int(elemSize)
	out := make([]uint32, count)
	if elemSize == 4 {
		for i := 0; i < count; i++ {
			out[i] = binary.LittleEndian.Uint32(data[i*4:])
		}
	} else {
		for i := 0; i < count; i++ {
			out[i] = uint32(binary.LittleEndian.Uint16(data[i*2:]))
		}
	}
	return out
}

// SliceIndices returns indices[start : start+count], clamped to the available
// range. count <= 0 means "all remaining".
func SliceIndices(indices []uint32, start, count int) []uint32 {
	if start < 0 {
		start = 0
	}
	if start >= len(indices) {
		return nil
	}
	end := len(indices)
	if count > 0 && start+count < end {
		end = start + count
	}
	return indices[start:end]
}

// ApplyBaseVertex adds base to every index, returning a new slice.
func ApplyBaseVertex(indices []uint32, base int32) []uint32 {
	if base == 0 {
		return indices
	}
	out := make([]uint32, len(indices))
	for i, idx := range indices {
		out[i] = uint32(int64(idx) + int64(base))
	}
	return out
}
