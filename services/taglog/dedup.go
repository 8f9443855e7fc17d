package taglog

import (
	"github.com/Eli-S-Bridge/ETAG-V9.3/types"
	"github.com/Eli-S-Bridge/ETAG-V9.3/x/timex"
)

// DefaultDedupWindow is the minimum spacing, in seconds, between two
// accepted reads of the same tag on the same circuit.
const DefaultDedupWindow = 5

// DedupFilter suppresses duplicate tag events observed within a short
// window. State is the last accepted (tag, circuit) pair and its time
// of day; rejected events do not update it.
//
// The distance between reads is computed by modular 24-hour
// subtraction, so a read just after midnight is close to one just
// before it. (The historical decimal-packed subtraction misbehaved
// across midnight; the packed form survives only as a display value.)
type DedupFilter struct {
	window int32

	has     bool
	tag     [5]byte
	circuit uint8
	lastSec int32
}

// NewDedup builds a filter with the given window in seconds; zero or
// negative selects DefaultDedupWindow.
func NewDedup(windowSeconds int32) *DedupFilter {
	if windowSeconds <= 0 {
		windowSeconds = DefaultDedupWindow
	}
	return &DedupFilter{window: windowSeconds}
}

// Accept reports whether ev should be logged, updating filter state
// when it is. A new event passes if its (tag, circuit) differs from
// the stored pair, or if at least the window has elapsed on the
// 24-hour clock.
func (f *DedupFilter) Accept(ev types.TagEvent) bool {
	sec := timex.SecondsOfDay(ev.TS.Hour, ev.TS.Minute, ev.TS.Second)
	if f.has && f.tag == ev.Tag && f.circuit == ev.Circuit {
		if timex.ClockDiffSeconds(f.lastSec, sec) < f.window {
			return false
		}
	}
	f.has = true
	f.tag = ev.Tag
	f.circuit = ev.Circuit
	f.lastSec = sec
	return true
}

// Reset forgets the stored pair, so the next event is always accepted.
func (f *DedupFilter) Reset() { f.has = false }
