// Package correlate merges call-log bind snapshots with parsed shader binding
// tables to resolve semantic names for the resources a draw event uses.
package correlate

import (
	"errors"
	"fmt"
	"sort"

	"gpa-frame-export/internal/calllog"
	"gpa-frame-export/internal/capture"
	"gpa-frame-export/internal/dxbc"
	"gpa-frame-export/internal/runlog"
)

// Bind-call vocabulary of the captured API.
const (
	callSetPixelTextures  = "PSSetShaderResources"
	callSetVertexCBuffers = "VSSetConstantBuffers"

	argStartSlot    = "StartSlot"
	argTextureViews = "ppShaderResourceViews"
	argCBufferViews = "ppConstantBuffers"
	nullResourceID  = 0
)

// Binding is one resolved slot→resource association for a draw event.
type Binding struct {
	Slot       string `json:"slot"`       // "t3", "cb1"
	SlotIndex  uint32 `json:"slot_index"`
	Name       string `json:"dxbc_name"`
	ResourceID uint64 `json:"resource_id"`
	ViewID     uint64 `json:"view_id"`
	Offset     uint64 `json:"offset"`
	Stride     uint32 `json:"stride"`
	Size       uint64 `json:"size"`
	Kind       string `json:"resource_type"`
}

// TableCache lazily parses and caches one BindingTable per program id. A blob
// that fails to parse (or cannot be fetched) caches an empty table so the run
// degrades to numeric slot names exactly once per program.
type TableCache struct {
	shaders capture.ShaderSource
	log     *runlog.Sink
	tables  map[uint64]*dxbc.BindingTable
}

// NewTableCache returns an empty cache reading bytecode from shaders.
func NewTableCache(shaders capture.ShaderSource, log *runlog.Sink) *TableCache {
	return &TableCache{
		shaders: shaders,
		log:     log,
		tables:  make(map[uint64]*dxbc.BindingTable),
	}
}

// Table returns the binding table for programID, parsing on first use.
// The returned table is never nil and must not be mutated.
func (tc *TableCache) Table(programID uint64, stage capture.Stage) *dxbc.BindingTable {
	if t, ok := tc.tables[programID]; ok {
		return t
	}

	table := dxbc.NewBindingTable(programID)
	blob, err := tc.shaders.Bytecode(programID, stage)
	if err != nil {
		tc.log.Debugf("correlate: no bytecode for program %X (%s): %v", programID, stage, err)
	} else if parsed, perr := dxbc.Parse(programID, blob); perr != nil {
		var parseErr *dxbc.ParseError
		if errors.As(perr, &parseErr) {
			tc.log.Errorf("correlate: program %X: %v (falling back to numeric slots)", programID, perr)
		} else {
			tc.log.Errorf("correlate: program %X: %v", programID, perr)
		}
	} else {
		table = parsed
	}

	tc.tables[programID] = table
	return table
}

// Programs returns the ids of all cached tables in ascending order.
func (tc *TableCache) Programs() []uint64 {
	ids := make([]uint64, 0, len(tc.tables))
	for id := range tc.tables {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Correlator resolves per-event bindings against the call log and the cached
// shader binding tables.
type Correlator struct {
	Index  *calllog.Index
	Tables *TableCache
	Log    *runlog.Sink
}

// PixelTextures resolves the pixel-stage texture bindings in effect at event:
// the nearest preceding texture bind call, named through the pixel program's
// table. No preceding bind call yields an empty (non-error) result.
func (co *Correlator) PixelTextures(event capture.Call) []Binding {
	table := co.Tables.Table(event.Programs.Pixel, capture.StagePixel)
	return co.resolve(event, callSetPixelTextures, argTextureViews, "t", "texture", table.Textures)
}

// VertexConstantBuffers resolves the vertex-stage constant-buffer bindings in
// effect at event.
func (co *Correlator) VertexConstantBuffers(event capture.Call) []Binding {
	table := co.Tables.Table(event.Programs.Vertex, capture.StageVertex)
	return co.resolve(event, callSetVertexCBuffers, argCBufferViews, "cb", "buffer", table.CBuffers)
}

func (co *Correlator) resolve(event capture.Call, bindCall, listArg, slotPrefix, kind string, names map[uint32]string) []Binding {
	bind, ok := co.Index.NearestPreceding(event.Index, bindCall)
	if !ok {
		co.Log.Debugf("correlate: event %d: no preceding %s", event.Index, bindCall)
		return nil
	}

	startSlot := uint32(bind.ArgValue(argStartSlot))
	views, _ := bind.Arg(listArg)

	var bindings []Binding
	for i, resID := range views.List {
		if resID == nullResourceID {
			continue
		}
		slotIndex := startSlot + uint32(i)
		name, resolved := names[slotIndex]
		if !resolved {
			name = fmt.Sprintf("%s%d", slotPrefix, slotIndex)
		}
		b := Binding{
			Slot:       fmt.Sprintf("%s%d", slotPrefix, slotIndex),
			SlotIndex:  slotIndex,
			Name:       name,
			ResourceID: resID,
			Kind:       kind,
		}
		fillFromRefs(&b, event.Inputs)
		bindings = append(bindings, b)
	}

	sort.Slice(bindings, func(i, j int) bool {
		return bindings[i].SlotIndex < bindings[j].SlotIndex
	})
	return bindings
}

// fillFromRefs copies view geometry (view id, offset, stride, size) from the
// event's bound resource refs when the host reported them.
func fillFromRefs(b *Binding, refs []capture.ResourceRef) {
	for _, r := range refs {
		if r.ResourceID == b.ResourceID {
			b.ViewID = r.ViewID
			b.Offset = r.Offset
			b.Stride = r.Stride
			b.Size = r.Size
			return
		}
	}
}

// FindByName returns the first binding whose semantic name equals name.
func FindByName(bindings []Binding, name string) (Binding, bool) {
	for _, b := range bindings {
		if b.Name == name {
			return b, true
		}
	}
	return Binding{}, false
}
