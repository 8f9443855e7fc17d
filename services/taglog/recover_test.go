package taglog

import (
	"testing"

	"github.com/Eli-S-Bridge/ETAG-V9.3/drivers/flashsim"
)

func TestScanBlankFlash(t *testing.T) {
	cur, err := ScanCursor(flashsim.New(16))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if cur != Start() {
		t.Fatalf("cursor %+v, want (2,0)", cur)
	}
}

func TestScanMatchesLiveCursorAfterAppends(t *testing.T) {
	for _, k := range []int{1, 7, recordsPerPage, recordsPerPage + 1, recordsPerPage*3 + 11} {
		dev := flashsim.New(16)
		l := NewLog(dev)
		for i := 0; i < k; i++ {
			if err := l.Append(mkEvent(byte(i), 1, 9, 0, 0)); err != nil {
				t.Fatalf("k=%d append %d: %v", k, i, err)
			}
		}
		cur, err := ScanCursor(dev)
		if err != nil {
			t.Fatalf("k=%d scan: %v", k, err)
		}
		if cur != l.Cursor() {
			t.Fatalf("k=%d recovered %+v, live %+v", k, cur, l.Cursor())
		}
	}
}

func TestScanIsIdempotent(t *testing.T) {
	dev := flashsim.New(16)
	l := NewLog(dev)
	for i := 0; i < recordsPerPage+9; i++ {
		if err := l.Append(mkEvent(byte(i), 1, 9, 0, 0)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	img := dev.Snapshot()
	first, err := ScanCursor(img)
	if err != nil {
		t.Fatalf("scan 1: %v", err)
	}
	second, err := ScanCursor(img)
	if err != nil {
		t.Fatalf("scan 2: %v", err)
	}
	if first != second {
		t.Fatalf("scan not idempotent: %+v then %+v", first, second)
	}
}

func TestScanCarriesPastFullPage(t *testing.T) {
	dev := flashsim.New(16)
	l := NewLog(dev)
	for i := 0; i < recordsPerPage; i++ {
		if err := l.Append(mkEvent(byte(i), 1, 9, 0, 0)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	// Page 2 full, page 3 untouched: in-page search exceeds the limit
	// and the cursor carries to (3, 0).
	cur, err := ScanCursor(dev)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if cur != (Cursor{Page: 3, Offset: 0}) {
		t.Fatalf("cursor %+v, want (3,0)", cur)
	}
}

func TestOpenRecoversCursor(t *testing.T) {
	dev := flashsim.New(16)
	l := NewLog(dev)
	for i := 0; i < 5; i++ {
		if err := l.Append(mkEvent(byte(i), 1, 9, 0, 0)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	// Simulated power loss: a fresh Log over the same chip image.
	reopened, err := Open(dev)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if reopened.Cursor() != l.Cursor() {
		t.Fatalf("reopened cursor %+v, live %+v", reopened.Cursor(), l.Cursor())
	}
}
