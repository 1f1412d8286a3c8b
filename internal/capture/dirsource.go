package capture

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoData is returned when the capture dump holds no bytes for a resource.
var ErrNoData = errors.New("capture: no data for resource")

// DirSource reads a capture dump directory:
//
//	calllog.json            frame name + ordered call log
//	resources.json          per-resource metadata (images and buffers)
//	resources/img_<id>_<sub>.bin
//	resources/buf_<id>.bin
//	shaders/vs_<hexid>.dxbc, shaders/ps_<hexid>.dxbc
//
// It implements Source, ResourceSource and ShaderSource.
type DirSource struct {
	dir       string
	FrameName string
	calls     []Call
	images    map[uint64]ImageInfo
}

type callLogFile struct {
	FrameName string `json:"frame_name"`
	Calls     []Call `json:"calls"`
}

type resourceMetaFile struct {
	Images map[string]ImageInfo `json:"images"`
}

// OpenDir loads the call log and resource metadata from dir.
func OpenDir(dir string) (*DirSource, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "calllog.json"))
	if err != nil {
		return nil, fmt.Errorf("capture: read call log: %w", err)
	}

	var logFile callLogFile
	if err := json.Unmarshal(raw, &logFile); err != nil {
		return nil, fmt.Errorf("capture: parse call log: %w", err)
	}

	src := &DirSource{
		dir:       dir,
		FrameName: logFile.FrameName,
		calls:     logFile.Calls,
		images:    make(map[uint64]ImageInfo),
	}

	// resources.json is optional; without it every image fetch misses.
	metaRaw, err := os.ReadFile(filepath.Join(dir, "resources.json"))
	if err == nil {
		var meta resourceMetaFile
		if err := json.Unmarshal(metaRaw, &meta); err != nil {
			return nil, fmt.Errorf("capture: parse resources.json: %w", err)
		}
		for idStr, info := range meta.Images {
			var id uint64
			if _, err := fmt.Sscanf(idStr, "%d", &id); err == nil {
				src.images[id] = info
			}
		}
	}

	return src, nil
}

// Calls returns the ordered call log.
func (s *DirSource) Calls() ([]Call, error) {
	if len(s.calls) == 0 {
		return nil, errors.New("capture: call log is empty")
	}
	return s.calls, nil
}

// ImageData returns the pixel bytes and metadata for one image subresource.
func (s *DirSource) ImageData(resourceID uint64, subresource uint32) ([]byte, ImageInfo, error) {
	info, ok := s.images[resourceID]
	if !ok {
		return nil, ImageInfo{}, fmt.Errorf("capture: image %d: %w", resourceID, ErrNoData)
	}
	path := filepath.Join(s.dir, "resources", fmt.Sprintf("img_%d_%d.bin", resourceID, subresource))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ImageInfo{}, fmt.Errorf("capture: image %d: %w", resourceID, ErrNoData)
	}
	return data, info, nil
}

// BufferData returns the raw bytes of one buffer resource.
func (s *DirSource) BufferData(resourceID uint64) ([]byte, error) {
	path := filepath.Join(s.dir, "resources", fmt.Sprintf("buf_%d.bin", resourceID))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("capture: buffer %d: %w", resourceID, ErrNoData)
	}
	return data, nil
}

// Bytecode returns the compiled-shader blob for a bound program stage.
func (s *DirSource) Bytecode(programID uint64, stage Stage) ([]byte, error) {
	prefix := "vs"
	if stage == StagePixel {
		prefix = "ps"
	}
	path := filepath.Join(s.dir, "shaders", fmt.Sprintf("%s_%X.dxbc", prefix, programID))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("capture: bytecode %s/%d: %w", stage, programID, ErrNoData)
	}
	return data, nil
}
