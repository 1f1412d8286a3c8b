package capture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDump(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "calllog.json"), []byte(`{
		"frame_name": "frame42",
		"calls": [
			{"index": 1, "name": "PSSetShaderResources",
			 "arguments": [{"name": "StartSlot", "value": 0},
			               {"name": "ppShaderResourceViews", "list": [171]}]},
			{"index": 2, "name": "DrawIndexed", "is_event": true,
			 "programs": {"vertex": 16, "pixel": 32},
			 "inputs": [{"resource_id": 9, "view_type": "IBV", "stride": 2}]}
		]
	}`), 0644))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "resources.json"), []byte(`{
		"images": {"171": {"width": 64, "height": 32, "format": "BC1_UNORM", "mips": 1}}
	}`), 0644))

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "resources"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "resources", "img_171_0.bin"), []byte("texels"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "resources", "buf_9.bin"), []byte("indices"), 0644))

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "shaders"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shaders", "vs_10.dxbc"), []byte("vsblob"), 0644))

	return dir
}

func TestOpenDir(t *testing.T) {
	src, err := OpenDir(writeDump(t))
	require.NoError(t, err)
	assert.Equal(t, "frame42", src.FrameName)

	calls, err := src.Calls()
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, "DrawIndexed", calls[1].Name)
	assert.True(t, calls[1].IsEvent)
	assert.Equal(t, uint64(16), calls[1].Programs.Vertex)

	arg, ok := calls[0].Arg("ppShaderResourceViews")
	require.True(t, ok)
	assert.Equal(t, []uint64{171}, arg.List)
}

func TestDirSourceImageData(t *testing.T) {
	src, err := OpenDir(writeDump(t))
	require.NoError(t, err)

	data, info, err := src.ImageData(171, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("texels"), data)
	assert.Equal(t, uint32(64), info.Width)
	assert.Equal(t, "BC1_UNORM", info.Format)

	_, _, err = src.ImageData(999, 0)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestDirSourceBufferData(t *testing.T) {
	src, err := OpenDir(writeDump(t))
	require.NoError(t, err)

	data, err := src.BufferData(9)
	require.NoError(t, err)
	assert.Equal(t, []byte("indices"), data)

	_, err = src.BufferData(404)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestDirSourceBytecode(t *testing.T) {
	src, err := OpenDir(writeDump(t))
	require.NoError(t, err)

	blob, err := src.Bytecode(0x10, StageVertex)
	require.NoError(t, err)
	assert.Equal(t, []byte("vsblob"), blob)

	_, err = src.Bytecode(0x10, StagePixel)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestOpenDirMissingCallLog(t *testing.T) {
	_, err := OpenDir(t.TempDir())
	assert.Error(t, err)
}

func TestEmptyCallLogIsError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "calllog.json"),
		[]byte(`{"frame_name": "empty", "calls": []}`), 0644))

	src, err := OpenDir(dir)
	require.NoError(t, err)
	_, err = src.Calls()
	assert.Error(t, err)
}
