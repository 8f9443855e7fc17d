package taglog

import (
	"testing"

	"github.com/Eli-S-Bridge/ETAG-V9.3/drivers/flashsim"
)

func fillPages(t *testing.T, l *Log, pages int) {
	t.Helper()
	for i := 0; i < recordsPerPage*pages; i++ {
		if err := l.Append(mkEvent(byte(i), 1, 8, 0, 0)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
}

func TestEraseModesResetCursor(t *testing.T) {
	for name, erase := range map[string]func(*Log) error{
		"full": (*Log).EraseFull,
		"seek": (*Log).EraseSeek,
		"fast": (*Log).EraseFast,
	} {
		dev := flashsim.New(16)
		l := NewLog(dev)
		fillPages(t, l, 2)

		if err := erase(l); err != nil {
			t.Fatalf("%s: erase: %v", name, err)
		}
		if l.Cursor() != Start() {
			t.Fatalf("%s: cursor %+v after erase", name, l.Cursor())
		}
		cur, err := ScanCursor(dev)
		if err != nil {
			t.Fatalf("%s: rescan: %v", name, err)
		}
		if cur != Start() {
			t.Fatalf("%s: rescan found %+v, want (2,0)", name, cur)
		}
	}
}

func TestFastEraseScope(t *testing.T) {
	dev := flashsim.New(16)

	// A previous, longer session left data through page 6.
	old := NewLog(dev)
	fillPages(t, old, 5)

	// This session only wrote into pages 2..3.
	l := NewLog(dev)
	l.cur = Cursor{Page: 3, Offset: 2 * RecordSize}

	if err := l.EraseFast(); err != nil {
		t.Fatalf("erase: %v", err)
	}
	for _, page := range dev.PageErases {
		if page > 3 {
			t.Fatalf("fast erase touched page %d beyond the known cursor", page)
		}
	}
	// Stale pages keep their data; that is the documented limitation.
	var b [1]byte
	if err := dev.ReadBytes(Cursor{Page: 4, Offset: 0}.Addr(), b[:]); err != nil {
		t.Fatalf("read: %v", err)
	}
	if b[0] == ErasedByte {
		t.Fatal("stale page 4 was erased by fast mode")
	}
}

func TestSeekEraseFindsStaleData(t *testing.T) {
	dev := flashsim.New(16)
	old := NewLog(dev)
	fillPages(t, old, 4) // data through page 5

	// In-memory cursor is wrong on purpose; seek mode re-scans.
	l := NewLog(dev)
	l.cur = Cursor{Page: 2, Offset: 0}
	if err := l.EraseSeek(); err != nil {
		t.Fatalf("erase: %v", err)
	}

	cur, err := ScanCursor(dev)
	if err != nil {
		t.Fatalf("rescan: %v", err)
	}
	if cur != Start() {
		t.Fatalf("rescan found %+v after seek erase", cur)
	}
}

func TestSeekEraseOnBlankChipIsNoop(t *testing.T) {
	dev := flashsim.New(16)
	l := NewLog(dev)
	if err := l.EraseSeek(); err != nil {
		t.Fatalf("erase: %v", err)
	}
	if len(dev.PageErases) != 0 {
		t.Fatalf("blank chip erased pages %v", dev.PageErases)
	}
}

func TestFullEraseDestroysParameterPage(t *testing.T) {
	dev := flashsim.New(16)
	if err := StoreParams(dev, DefaultParams()); err != nil {
		t.Fatalf("store: %v", err)
	}
	l := NewLog(dev)
	if err := l.EraseFull(); err != nil {
		t.Fatalf("erase: %v", err)
	}
	p, err := LoadParams(dev)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Initialized {
		t.Fatal("parameter block survived a chip erase")
	}
}
