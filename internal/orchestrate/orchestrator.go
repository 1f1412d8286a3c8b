// Package orchestrate runs the per-frame export pipeline: correlate each draw
// event's bindings, export its textures, buffers and shaders, and reconstruct
// its geometry, isolating failures per event.
package orchestrate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gpa-frame-export/internal/calllog"
	"gpa-frame-export/internal/capture"
	"gpa-frame-export/internal/correlate"
	"gpa-frame-export/internal/export"
	"gpa-frame-export/internal/geometry"
	"gpa-frame-export/internal/runlog"
)

// Options controls one export run.
type Options struct {
	OutputDir      string
	FrameName      string
	MinCall        int
	MaxCall        int // -1 means unbounded
	EnableSkinning bool
	Preview        bool
}

// EventRecord is the manifest entry for one processed draw event.
type EventRecord struct {
	Index            int                    `json:"index"`
	ID               uint64                 `json:"id"`
	Name             string                 `json:"name"`
	Dir              string                 `json:"dir"`
	TextureBindings  []export.TextureRecord `json:"texture_binding_map,omitempty"`
	ExportedTextures int                    `json:"exported_textures"`
	ExportedBuffers  int                    `json:"exported_buffers"`
	ExportedShaders  []string               `json:"exported_shaders,omitempty"`
	ExportedMesh     string                 `json:"exported_mesh,omitempty"`
	Skinned          bool                   `json:"skinned,omitempty"`
	Error            string                 `json:"error,omitempty"`
}

// RunSummary is the export.json document written at the run root.
type RunSummary struct {
	ExportTime string        `json:"export_time"`
	Filter     Filter        `json:"filter"`
	TotalCount int           `json:"total_count"`
	Events     []EventRecord `json:"events"`
	Summary    Totals        `json:"summary"`
}

type Filter struct {
	MinCall int `json:"min_call"`
	MaxCall int `json:"max_call"`
}

type Totals struct {
	TotalEvents   int `json:"total_events"`
	TotalTextures int `json:"total_textures"`
	TotalBuffers  int `json:"total_buffers"`
	TotalMeshes   int `json:"total_meshes"`
	TotalShaders  int `json:"total_shaders"`
}

// Orchestrator wires the capture boundary to the export pipeline.
type Orchestrator struct {
	Source    capture.Source
	Resources capture.ResourceSource
	Shaders   capture.ShaderSource
	Log       *runlog.Sink
	Options   Options
}

// Run processes every draw event in the configured call range. The only fatal
// condition is an unobtainable call log; per-event failures are recorded in
// that event's manifest entry and processing continues. It returns the summary
// and the run directory path.
func (o *Orchestrator) Run() (*RunSummary, string, error) {
	calls, err := o.Source.Calls()
	if err != nil {
		return nil, "", fmt.Errorf("orchestrate: %w", err)
	}

	runDir := filepath.Join(o.Options.OutputDir,
		fmt.Sprintf("%s_%s", o.Options.FrameName, time.Now().Format("20060102_150405")))
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, "", fmt.Errorf("orchestrate: create run dir: %w", err)
	}

	index := calllog.New(calls)
	tables := correlate.NewTableCache(o.Shaders, o.Log)
	correlator := &correlate.Correlator{Index: index, Tables: tables, Log: o.Log}
	textures := &export.TextureExporter{Resources: o.Resources, Log: o.Log, Preview: o.Options.Preview}
	buffers := &export.BufferExporter{Resources: o.Resources, Log: o.Log}
	shaders := &export.ShaderExporter{Shaders: o.Shaders, Log: o.Log}
	reconstructor := &geometry.Reconstructor{Resources: o.Resources, Log: o.Log}

	events := index.Events(o.Options.MinCall, o.Options.MaxCall)
	o.Log.Infof("orchestrate: %d draw events in range [%d, %d]",
		len(events), o.Options.MinCall, o.Options.MaxCall)

	summary := &RunSummary{
		ExportTime: time.Now().Format(time.RFC3339),
		Filter:     Filter{MinCall: o.Options.MinCall, MaxCall: o.Options.MaxCall},
		TotalCount: len(events),
		Events:     make([]EventRecord, 0, len(events)),
	}

	for _, event := range events {
		rec := o.processEvent(runDir, event, correlator, textures, buffers, shaders, reconstructor)
		if rec.Error != "" {
			o.Log.Errorf("orchestrate: event %d: %s", event.Index, rec.Error)
		}
		summary.Summary.TotalEvents++
		summary.Summary.TotalTextures += rec.ExportedTextures
		summary.Summary.TotalBuffers += rec.ExportedBuffers
		summary.Summary.TotalShaders += len(rec.ExportedShaders)
		if rec.ExportedMesh != "" {
			summary.Summary.TotalMeshes++
		}
		summary.Events = append(summary.Events, rec)
	}

	if err := writeJSON(filepath.Join(runDir, "export.json"), summary); err != nil {
		return summary, runDir, fmt.Errorf("orchestrate: write summary: %w", err)
	}
	o.Log.Infof("orchestrate: done: %d events, %d textures, %d buffers, %d meshes, %d shaders",
		summary.Summary.TotalEvents, summary.Summary.TotalTextures,
		summary.Summary.TotalBuffers, summary.Summary.TotalMeshes, summary.Summary.TotalShaders)
	return summary, runDir, nil
}

func (o *Orchestrator) processEvent(runDir string, event capture.Call,
	correlator *correlate.Correlator, textures *export.TextureExporter,
	buffers *export.BufferExporter, shaders *export.ShaderExporter,
	reconstructor *geometry.Reconstructor) EventRecord {

	rec := EventRecord{Index: event.Index, ID: event.ID, Name: event.Name,
		Dir: fmt.Sprintf("g_%d", event.Index)}

	eventDir := filepath.Join(runDir, rec.Dir)
	inputDir := filepath.Join(eventDir, "input")
	outputDir := filepath.Join(eventDir, "output")
	for _, d := range []string{inputDir, outputDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			rec.Error = err.Error()
			return rec
		}
	}

	pixelTextures := correlator.PixelTextures(event)
	vertexCBuffers := correlator.VertexConstantBuffers(event)

	rec.TextureBindings, rec.ExportedTextures = textures.Export(inputDir, pixelTextures)

	if n, err := buffers.ExportVertexBuffers(inputDir, event); err != nil {
		rec.addError(err)
	} else {
		rec.ExportedBuffers += n
	}
	if n, err := buffers.ExportIndexBuffers(inputDir, event); err != nil {
		rec.addError(err)
	} else {
		rec.ExportedBuffers += n
	}
	if n, err := buffers.ExportConstantBuffers(inputDir, vertexCBuffers); err != nil {
		rec.addError(err)
	} else {
		rec.ExportedBuffers += n
	}

	rec.ExportedShaders = shaders.Export(inputDir, event.Programs)
	if event.Programs.Vertex != 0 {
		table := correlator.Tables.Table(event.Programs.Vertex, capture.StageVertex)
		if _, err := export.WriteBindingMap(inputDir, table, vertexCBuffers); err != nil {
			rec.addError(err)
		}
	}

	var skeletonResource uint64
	if skel, ok := correlate.FindByName(vertexCBuffers, "Skeleton"); ok {
		skeletonResource = skel.ResourceID
	}

	mesh, err := reconstructor.Reconstruct(event, skeletonResource, o.Options.EnableSkinning)
	switch {
	case errors.Is(err, geometry.ErrNoGeometry):
		o.Log.Debugf("orchestrate: event %d: no geometry", event.Index)
	case err != nil:
		rec.addError(err)
	default:
		objName := fmt.Sprintf("g_%d.obj", event.Index)
		header := []string{
			fmt.Sprintf("frame %s event %d (%s)", o.Options.FrameName, event.Index, event.Name),
			fmt.Sprintf("%d vertices, %d triangles, skinned=%v",
				len(mesh.Positions), len(mesh.Indices)/3, mesh.Skinned),
		}
		if werr := writeOBJFile(filepath.Join(outputDir, objName), mesh, header); werr != nil {
			rec.addError(werr)
		} else {
			rec.ExportedMesh = objName
			rec.Skinned = mesh.Skinned
		}
	}

	if err := writeJSON(filepath.Join(eventDir, "_event_info.json"), rec); err != nil {
		rec.addError(err)
	}
	return rec
}

// addError appends to the event's error field so earlier stage failures are
// not lost when a later stage also fails.
func (r *EventRecord) addError(err error) {
	if r.Error == "" {
		r.Error = err.Error()
		return
	}
	r.Error += "; " + err.Error()
}

func writeOBJFile(path string, mesh *geometry.Mesh, header []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return geometry.WriteOBJ(f, mesh, header)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
