package export

import (
	"fmt"
	"path/filepath"

	"gpa-frame-export/internal/correlate"
	"gpa-frame-export/internal/dxbc"
)

// CBVBinding is one constant-buffer entry of a program's binding map, with
// hex mirrors of the numeric ids for readability.
type CBVBinding struct {
	Slot          string `json:"slot"`
	SlotIndex     uint32 `json:"slot_index"`
	Name          string `json:"dxbc_name"`
	ResourceID    uint64 `json:"resource_id"`
	ResourceIDHex string `json:"resource_id_hex"`
	ViewID        uint64 `json:"view_id"`
	ViewIDHex     string `json:"view_id_hex"`
	Offset        uint64 `json:"offset"`
	Stride        uint32 `json:"stride"`
	Size          uint64 `json:"size"`
	Kind          string `json:"resource_type"`
}

// BindingMap is the per-program JSON document associating shader-declared
// cbuffer slots with the concrete resources bound at draw time.
type BindingMap struct {
	ProgramID    uint64            `json:"program_id"`
	ProgramIDHex string            `json:"program_id_hex"`
	CBufferMap   map[string]string `json:"dxbc_cbuffer_map"`
	CBVBindings  []CBVBinding      `json:"cbv_bindings"`
}

// WriteBindingMap writes bindings_<hex>.json for one program: the shader's
// slot→name cbuffer map plus the correlated bindings in slot order.
func WriteBindingMap(dir string, table *dxbc.BindingTable, bindings []correlate.Binding) (string, error) {
	bm := BindingMap{
		ProgramID:    table.ProgramID,
		ProgramIDHex: fmt.Sprintf("%X", table.ProgramID),
		CBufferMap:   make(map[string]string, len(table.CBuffers)),
		CBVBindings:  make([]CBVBinding, 0, len(bindings)),
	}
	for slot, name := range table.CBuffers {
		bm.CBufferMap[fmt.Sprintf("cb%d", slot)] = name
	}
	for _, b := range bindings {
		bm.CBVBindings = append(bm.CBVBindings, CBVBinding{
			Slot:          b.Slot,
			SlotIndex:     b.SlotIndex,
			Name:          b.Name,
			ResourceID:    b.ResourceID,
			ResourceIDHex: fmt.Sprintf("%X", b.ResourceID),
			ViewID:        b.ViewID,
			ViewIDHex:     fmt.Sprintf("%X", b.ViewID),
			Offset:        b.Offset,
			Stride:        b.Stride,
			Size:          b.Size,
			Kind:          b.Kind,
		})
	}

	name := fmt.Sprintf("bindings_%X.json", table.ProgramID)
	if err := writeJSON(filepath.Join(dir, name), bm); err != nil {
		return "", err
	}
	return name, nil
}
