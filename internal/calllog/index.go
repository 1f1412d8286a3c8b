// Package calllog indexes the host call log for ordered range iteration and
// backward nearest-preceding lookups.
package calllog

import (
	"sort"

	"gpa-frame-export/internal/capture"
)

// Unbounded is the max-call sentinel meaning "to the last available call".
const Unbounded = -1

// Index holds the call log ordered by index plus a per-name sub-index of
// positions, both built once and read-only afterwards.
type Index struct {
	calls  []capture.Call
	byName map[string][]int // positions into calls, ascending
}

// New builds an index over calls. The log is sorted by call index if the host
// did not already deliver it ordered.
func New(calls []capture.Call) *Index {
	ordered := make([]capture.Call, len(calls))
	copy(ordered, calls)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Index < ordered[j].Index
	})

	byName := make(map[string][]int)
	for pos, c := range ordered {
		byName[c.Name] = append(byName[c.Name], pos)
	}

	return &Index{calls: ordered, byName: byName}
}

// Len returns the number of indexed calls.
func (ix *Index) Len() int { return len(ix.calls) }

// CallsInRange returns calls with min <= call.Index <= max, in order.
// max == Unbounded removes the upper bound.
func (ix *Index) CallsInRange(min, max int) []capture.Call {
	lo := sort.Search(len(ix.calls), func(i int) bool {
		return ix.calls[i].Index >= min
	})
	hi := len(ix.calls)
	if max != Unbounded {
		hi = sort.Search(len(ix.calls), func(i int) bool {
			return ix.calls[i].Index > max
		})
	}
	if lo >= hi {
		return nil
	}
	return ix.calls[lo:hi]
}

// Events returns the draw events within the inclusive index range.
func (ix *Index) Events(min, max int) []capture.Call {
	var events []capture.Call
	for _, c := range ix.CallsInRange(min, max) {
		if c.IsEvent {
			events = append(events, c)
		}
	}
	return events
}

// NearestPreceding returns the call named name with the greatest index
// strictly less than eventIndex, or ok=false if no such call exists.
func (ix *Index) NearestPreceding(eventIndex int, name string) (capture.Call, bool) {
	positions := ix.byName[name]
	// first position whose call index >= eventIndex
	n := sort.Search(len(positions), func(i int) bool {
		return ix.calls[positions[i]].Index >= eventIndex
	})
	if n == 0 {
		return capture.Call{}, false
	}
	return ix.calls[positions[n-1]], true
}
