package runlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSinkWritesLevels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	s, err := Open(path, false, true)
	require.NoError(t, err)

	s.Debugf("probe %d", 1)
	s.Infof("started")
	s.Errorf("failed: %v", os.ErrNotExist)
	require.NoError(t, s.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(raw)
	assert.Contains(t, out, "DEBUG probe 1")
	assert.Contains(t, out, "INFO  started")
	assert.Contains(t, out, "ERROR failed")
}

func TestSinkDebugGatedByVerbose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	s, err := Open(path, false, false)
	require.NoError(t, err)

	s.Debugf("hidden")
	s.Infof("shown")
	require.NoError(t, s.Close())

	raw, _ := os.ReadFile(path)
	assert.NotContains(t, string(raw), "hidden")
	assert.Contains(t, string(raw), "shown")
}

func TestDiscard(t *testing.T) {
	s := Discard()
	s.Infof("dropped")
	assert.NoError(t, s.Close())
}
