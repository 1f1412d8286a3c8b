package capture

// Stage identifies a shader pipeline stage with a bound program.
type Stage string

const (
	StageVertex Stage = "vertex"
	StagePixel  Stage = "pixel"
)

// Argument is one named argument of a logged API call. Scalar arguments carry
// Value; pointer-to-array arguments (resource view lists) carry List.
type Argument struct {
	Name  string   `json:"name"`
	Value int64    `json:"value"`
	List  []uint64 `json:"list,omitempty"`
}

// ResourceRef describes one resource view bound to a call, as reported by the
// host capture. For index buffers Stride is the element size (2 or 4).
type ResourceRef struct {
	ResourceID uint64 `json:"resource_id"`
	ViewID     uint64 `json:"view_id"`
	ViewType   string `json:"view_type"` // SRV, VBV, IBV, CBV, RTV
	Kind       string `json:"resource_type"`
	Offset     uint64 `json:"offset"`
	Stride     uint32 `json:"stride"`
	Size       uint64 `json:"size"`
}

// ProgramBindings holds the program id bound per stage at the time of a call.
// Zero means no program bound for that stage.
type ProgramBindings struct {
	Vertex uint64 `json:"vertex,omitempty"`
	Pixel  uint64 `json:"pixel,omitempty"`
}

// Call is one entry of the host call log. Index is 1-based and strictly
// increasing across the log. Calls with IsEvent set are draw events; the rest
// are state-setting calls (resource binds etc).
type Call struct {
	Index     int             `json:"index"`
	ID        uint64          `json:"id"`
	Name      string          `json:"name"`
	IsEvent   bool            `json:"is_event,omitempty"`
	Arguments []Argument      `json:"arguments,omitempty"`
	Programs  ProgramBindings `json:"programs"`
	Inputs    []ResourceRef   `json:"inputs,omitempty"`
	Outputs   []ResourceRef   `json:"outputs,omitempty"`
}

// Arg returns the named argument, if present.
func (c *Call) Arg(name string) (Argument, bool) {
	for _, a := range c.Arguments {
		if a.Name == name {
			return a, true
		}
	}
	return Argument{}, false
}

// ArgValue returns the scalar value of the named argument, or 0.
func (c *Call) ArgValue(name string) int64 {
	a, ok := c.Arg(name)
	if !ok {
		return 0
	}
	return a.Value
}

// ImageInfo is the metadata the host reports for a texture resource.
type ImageInfo struct {
	Width    uint32 `json:"width"`
	Height   uint32 `json:"height"`
	Format   string `json:"format"`
	MipCount uint32 `json:"mips"`
}

// Source supplies the ordered call log. Failure here is the one fatal
// condition of a run.
type Source interface {
	Calls() ([]Call, error)
}

// ResourceSource supplies raw bytes for captured resources. Both methods
// return ErrNoData (possibly wrapped) when the host has no bytes for the
// resource; callers skip the resource and continue.
type ResourceSource interface {
	ImageData(resourceID uint64, subresource uint32) ([]byte, ImageInfo, error)
	BufferData(resourceID uint64) ([]byte, error)
}

// ShaderSource supplies compiled-shader bytecode per bound program.
type ShaderSource interface {
	Bytecode(programID uint64, stage Stage) ([]byte, error)
}
