package taglog

import "testing"

func TestDedupWindow(t *testing.T) {
	// Same tag+circuit at 12:00:00, 12:00:03, 12:00:06; window 5 s.
	f := NewDedup(5)
	if !f.Accept(mkEvent(1, 1, 12, 0, 0)) {
		t.Fatal("first read rejected")
	}
	if f.Accept(mkEvent(1, 1, 12, 0, 3)) {
		t.Fatal("3 s repeat accepted")
	}
	if !f.Accept(mkEvent(1, 1, 12, 0, 6)) {
		t.Fatal("6 s repeat rejected")
	}
}

func TestDedupExactWindowBoundary(t *testing.T) {
	f := NewDedup(5)
	f.Accept(mkEvent(1, 1, 12, 0, 0))
	if !f.Accept(mkEvent(1, 1, 12, 0, 5)) {
		t.Fatal("repeat at exactly the window rejected")
	}
}

func TestDedupDifferentPairAlwaysAccepted(t *testing.T) {
	f := NewDedup(5)
	f.Accept(mkEvent(1, 1, 12, 0, 0))
	if !f.Accept(mkEvent(2, 1, 12, 0, 0)) {
		t.Fatal("different tag rejected")
	}
	if !f.Accept(mkEvent(2, 2, 12, 0, 0)) {
		t.Fatal("different circuit rejected")
	}
}

func TestDedupAcrossMidnight(t *testing.T) {
	// 23:59:58 then 00:00:01 is 3 s on the 24-hour clock, inside a 5 s
	// window, and must be rejected despite the date rollover.
	f := NewDedup(5)
	f.Accept(mkEvent(1, 1, 23, 59, 58))
	if f.Accept(mkEvent(1, 1, 0, 0, 1)) {
		t.Fatal("midnight-spanning repeat accepted")
	}
	if !f.Accept(mkEvent(1, 1, 0, 0, 3)) {
		t.Fatal("read 5 s after the last accepted one rejected")
	}
}

func TestDedupRejectedEventDoesNotSlideWindow(t *testing.T) {
	f := NewDedup(5)
	f.Accept(mkEvent(1, 1, 12, 0, 0))
	f.Accept(mkEvent(1, 1, 12, 0, 3)) // rejected, must not refresh state
	if !f.Accept(mkEvent(1, 1, 12, 0, 5)) {
		t.Fatal("window measured from a rejected event")
	}
}

func TestDedupDefaultWindow(t *testing.T) {
	f := NewDedup(0)
	if f.window != DefaultDedupWindow {
		t.Fatalf("window %d, want default %d", f.window, DefaultDedupWindow)
	}
}

func TestDedupReset(t *testing.T) {
	f := NewDedup(5)
	f.Accept(mkEvent(1, 1, 12, 0, 0))
	f.Reset()
	if !f.Accept(mkEvent(1, 1, 12, 0, 1)) {
		t.Fatal("reset did not clear the stored pair")
	}
}
