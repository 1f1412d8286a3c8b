package export

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gpa-frame-export/internal/capture"
	"gpa-frame-export/internal/correlate"
	"gpa-frame-export/internal/geometry"
	"gpa-frame-export/internal/runlog"
)

// VertexBufferDesc describes one VBV bound to an event.
type VertexBufferDesc struct {
	ResourceID    uint64 `json:"resource_id"`
	ResourceIDHex string `json:"resource_id_hex"`
	ViewID        uint64 `json:"view_id"`
	Offset        uint64 `json:"offset"`
	Stride        uint32 `json:"stride"`
	Size          uint64 `json:"size"`
	StreamClass   string `json:"stream_class"`
	DataFile      string `json:"data_file,omitempty"`
}

// IndexBufferDesc describes one IBV bound to an event. Stride is the index
// element size (2 or 4).
type IndexBufferDesc struct {
	ResourceID    uint64 `json:"resource_id"`
	ResourceIDHex string `json:"resource_id_hex"`
	ViewID        uint64 `json:"view_id"`
	Offset        uint64 `json:"offset"`
	Stride        uint32 `json:"stride"`
	Size          uint64 `json:"size"`
	DataFile      string `json:"data_file,omitempty"`
}

// CBufferDesc describes one correlated constant-buffer binding. When the
// binding is the skeleton its matrix payload is embedded as float4 rows.
type CBufferDesc struct {
	Slot          string       `json:"slot"`
	SlotIndex     uint32       `json:"slot_index"`
	Name          string       `json:"dxbc_name"`
	ResourceID    uint64       `json:"resource_id"`
	ResourceIDHex string       `json:"resource_id_hex"`
	ViewID        uint64       `json:"view_id"`
	Offset        uint64       `json:"offset"`
	Size          uint64       `json:"size"`
	MatrixCount   int          `json:"matrix_count,omitempty"`
	Rows          [][4]float32 `json:"rows,omitempty"`
}

// skeletonCBufferName marks the vertex cbuffer carrying bone matrices.
const skeletonCBufferName = "Skeleton"

// BufferExporter writes buffer descriptors and raw bytes for a draw event.
type BufferExporter struct {
	Resources capture.ResourceSource
	Log       *runlog.Sink
}

// ExportVertexBuffers merges every VBV of the event into one descriptor file
// (vbv.json) and dumps each distinct buffer's bytes next to it. It returns the
// number of descriptor/data files written.
func (be *BufferExporter) ExportVertexBuffers(dir string, event capture.Call) (int, error) {
	var descs []VertexBufferDesc
	for _, ref := range event.Inputs {
		if ref.ViewType != "VBV" {
			continue
		}
		desc := VertexBufferDesc{
			ResourceID:    ref.ResourceID,
			ResourceIDHex: fmt.Sprintf("%X", ref.ResourceID),
			ViewID:        ref.ViewID,
			Offset:        ref.Offset,
			Stride:        ref.Stride,
			Size:          ref.Size,
			StreamClass:   geometry.ClassifyStride(ref.Stride),
		}
		desc.DataFile = be.dumpBytes(dir, ref.ResourceID)
		descs = append(descs, desc)
	}
	if len(descs) == 0 {
		return 0, nil
	}
	if err := writeJSON(filepath.Join(dir, "vbv.json"), descs); err != nil {
		return 0, err
	}
	return len(descs), nil
}

// ExportIndexBuffers writes one descriptor file per distinct IBV resource.
func (be *BufferExporter) ExportIndexBuffers(dir string, event capture.Call) (int, error) {
	seen := make(map[uint64]bool)
	count := 0
	for _, ref := range event.Inputs {
		if ref.ViewType != "IBV" || seen[ref.ResourceID] {
			continue
		}
		seen[ref.ResourceID] = true
		desc := IndexBufferDesc{
			ResourceID:    ref.ResourceID,
			ResourceIDHex: fmt.Sprintf("%X", ref.ResourceID),
			ViewID:        ref.ViewID,
			Offset:        ref.Offset,
			Stride:        ref.Stride,
			Size:          ref.Size,
		}
		desc.DataFile = be.dumpBytes(dir, ref.ResourceID)
		name := fmt.Sprintf("ibv_%X.json", ref.ResourceID)
		if err := writeJSON(filepath.Join(dir, name), desc); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// ExportConstantBuffers writes one descriptor per correlated cbuffer binding.
// The Skeleton cbuffer additionally gets its float4 rows embedded.
func (be *BufferExporter) ExportConstantBuffers(dir string, bindings []correlate.Binding) (int, error) {
	count := 0
	for _, b := range bindings {
		desc := CBufferDesc{
			Slot:          b.Slot,
			SlotIndex:     b.SlotIndex,
			Name:          b.Name,
			ResourceID:    b.ResourceID,
			ResourceIDHex: fmt.Sprintf("%X", b.ResourceID),
			ViewID:        b.ViewID,
			Offset:        b.Offset,
			Size:          b.Size,
		}
		if b.Name == skeletonCBufferName {
			if data, err := be.Resources.BufferData(b.ResourceID); err != nil {
				be.Log.Debugf("export: skeleton cbuffer %X: %v", b.ResourceID, err)
			} else {
				desc.Rows = float4Rows(data)
				desc.MatrixCount = len(desc.Rows) / 4
			}
		}
		name := fmt.Sprintf("cbv_%X.json", b.ResourceID)
		if err := writeJSON(filepath.Join(dir, name), desc); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// dumpBytes writes a buffer's raw bytes as b_<hex>.bin, returning the file
// name or "" when the host has no data.
func (be *BufferExporter) dumpBytes(dir string, resourceID uint64) string {
	data, err := be.Resources.BufferData(resourceID)
	if err != nil {
		be.Log.Debugf("export: buffer %X: %v", resourceID, err)
		return ""
	}
	name := fmt.Sprintf("b_%X.bin", resourceID)
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		be.Log.Errorf("export: buffer %X: %v", resourceID, err)
		return ""
	}
	return name
}

// float4Rows reads buffer bytes as consecutive little-endian float4 rows.
// Trailing bytes short of a row are dropped.
func float4Rows(data []byte) [][4]float32 {
	count := len(data) / 16
	rows := make([][4]float32, count)
	for i := 0; i < count; i++ {
		for c := 0; c < 4; c++ {
			bits := binary.LittleEndian.Uint32(data[i*16+c*4:])
			rows[i][c] = math.Float32frombits(bits)
		}
	}
	return rows
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
