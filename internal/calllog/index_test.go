package calllog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gpa-frame-export/internal/capture"
)

func call(index int, name string, event bool) capture.Call {
	return capture.Call{Index: index, ID: uint64(index), Name: name, IsEvent: event}
}

func TestCallsInRangeInclusive(t *testing.T) {
	ix := New([]capture.Call{
		call(50, "DrawIndexed", true),
		call(51, "DrawIndexed", true),
		call(52, "DrawIndexed", true),
	})

	got := ix.CallsInRange(51, 52)
	require.Len(t, got, 2)
	assert.Equal(t, 51, got[0].Index)
	assert.Equal(t, 52, got[1].Index)
}

func TestCallsInRangeUnbounded(t *testing.T) {
	ix := New([]capture.Call{
		call(3, "DrawIndexed", true),
		call(4, "DrawIndexed", true),
		call(5, "DrawIndexed", true),
	})

	got := ix.CallsInRange(1, Unbounded)
	require.Len(t, got, 3)
	assert.Equal(t, []int{3, 4, 5}, []int{got[0].Index, got[1].Index, got[2].Index})
}

func TestEventsFiltersNonEvents(t *testing.T) {
	ix := New([]capture.Call{
		call(1, "PSSetShaderResources", false),
		call(2, "DrawIndexed", true),
		call(3, "VSSetConstantBuffers", false),
		call(4, "DrawIndexed", true),
	})

	events := ix.Events(1, Unbounded)
	require.Len(t, events, 2)
	assert.Equal(t, 2, events[0].Index)
	assert.Equal(t, 4, events[1].Index)
}

func TestNearestPrecedingStrictlyBefore(t *testing.T) {
	ix := New([]capture.Call{
		call(10, "PSSetShaderResources", false),
		call(20, "PSSetShaderResources", false),
		call(25, "DrawIndexed", true),
		call(30, "PSSetShaderResources", false),
	})

	c, ok := ix.NearestPreceding(25, "PSSetShaderResources")
	require.True(t, ok)
	assert.Equal(t, 20, c.Index)

	// A call at exactly the probe index does not count.
	c, ok = ix.NearestPreceding(20, "PSSetShaderResources")
	require.True(t, ok)
	assert.Equal(t, 10, c.Index)

	_, ok = ix.NearestPreceding(10, "PSSetShaderResources")
	assert.False(t, ok)

	_, ok = ix.NearestPreceding(25, "VSSetConstantBuffers")
	assert.False(t, ok)
}

func TestNewSortsUnorderedInput(t *testing.T) {
	ix := New([]capture.Call{
		call(5, "DrawIndexed", true),
		call(1, "DrawIndexed", true),
		call(3, "DrawIndexed", true),
	})

	got := ix.CallsInRange(1, Unbounded)
	require.Len(t, got, 3)
	assert.Equal(t, []int{1, 3, 5}, []int{got[0].Index, got[1].Index, got[2].Index})
}
