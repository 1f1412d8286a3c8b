package export

import (
	"fmt"
	"os"
	"path/filepath"

	"gpa-frame-export/internal/capture"
	"gpa-frame-export/internal/runlog"
)

// ShaderExporter dumps the bytecode blobs of the programs a draw event binds.
type ShaderExporter struct {
	Shaders capture.ShaderSource
	Log     *runlog.Sink
}

// Export writes vs_<hex>.dxbc / ps_<hex>.dxbc for the event's bound programs
// into dir and returns the written file names. A stage with no program or no
// retrievable bytecode is skipped.
func (se *ShaderExporter) Export(dir string, programs capture.ProgramBindings) []string {
	var files []string
	for _, s := range []struct {
		prefix string
		stage  capture.Stage
		id     uint64
	}{
		{"vs", capture.StageVertex, programs.Vertex},
		{"ps", capture.StagePixel, programs.Pixel},
	} {
		if s.id == 0 {
			continue
		}
		blob, err := se.Shaders.Bytecode(s.id, s.stage)
		if err != nil {
			se.Log.Debugf("export: %s program %X: %v", s.stage, s.id, err)
			continue
		}
		name := fmt.Sprintf("%s_%X.dxbc", s.prefix, s.id)
		if err := os.WriteFile(filepath.Join(dir, name), blob, 0644); err != nil {
			se.Log.Errorf("export: %s program %X: %v", s.stage, s.id, err)
			continue
		}
		files = append(files, name)
	}
	return files
}
