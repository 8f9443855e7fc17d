// Package taglog implements the on-flash event log: an append-only
// sequence of fixed 12-byte tag records over raw paged dataflash, with
// scan-based cursor recovery and the three erase procedures.
//
// Durability of "where we are" comes from re-scanning flash at boot,
// not from persisting the pointer on every write; the parameter page
// would wear out orders of magnitude sooner than the log pages.
package taglog

import (
	"github.com/Eli-S-Bridge/ETAG-V9.3/drivers/at45db"
	"github.com/Eli-S-Bridge/ETAG-V9.3/errcode"
	"github.com/Eli-S-Bridge/ETAG-V9.3/types"
)

const (
	// RecordSize is the fixed on-flash record width.
	RecordSize = 12

	// FirstLogPage is where the log begins. Page 0 holds the known-tag
	// table, page 1 the parameter block.
	FirstLogPage = 2

	// PageLimit is the conventional in-page boundary: no record starts
	// past this offset. Tail bytes of the 528-byte page stay unused so
	// a record never spans pages.
	PageLimit = 500

	// ErasedByte is what an erased cell reads as.
	ErasedByte = 0xFF
)

// Flash is the paged-flash contract the log needs. Satisfied by
// at45db.Device and flashsim.Device.
type Flash interface {
	ReadBytes(addr uint32, buf []byte) error
	ProgramBytes(addr uint32, data []byte) error
	ErasePage(page uint32) error
	EraseChip() error
	Pages() uint32
}

// Cursor is the next free write location.
type Cursor struct {
	Page   uint32
	Offset uint32
}

// Addr returns the cursor's split flash address.
func (c Cursor) Addr() uint32 { return at45db.Addr(c.Page, c.Offset) }

// Start is the cursor of an empty log.
func Start() Cursor { return Cursor{Page: FirstLogPage, Offset: 0} }

// Next returns the position following c in append order. A record
// whose successor would start past PageLimit continues on the next
// page instead.
func (c Cursor) Next() Cursor {
	if c.Offset+RecordSize > PageLimit {
		return Cursor{Page: c.Page + 1, Offset: 0}
	}
	return Cursor{Page: c.Page, Offset: c.Offset + RecordSize}
}

// Log owns the in-memory write cursor over a flash device.
type Log struct {
	dev Flash
	cur Cursor
}

// NewLog wraps a device with the cursor at the empty-log position.
// Callers normally use Open, which recovers the real cursor first.
func NewLog(dev Flash) *Log {
	return &Log{dev: dev, cur: Start()}
}

// Open wraps a device and reconstructs the cursor by scanning flash.
// No persisted cursor is trusted across restarts.
func Open(dev Flash) (*Log, error) {
	cur, err := ScanCursor(dev)
	if err != nil {
		return nil, err
	}
	return &Log{dev: dev, cur: cur}, nil
}

// Cursor reports the live write position.
func (l *Log) Cursor() Cursor { return l.cur }

// Append encodes ev at the cursor and advances it. A record whose end
// would pass the page boundary is never split: the cursor moves to the
// next page instead. Device errors are propagated; the cursor does not
// advance on failure.
func (l *Log) Append(ev types.TagEvent) error {
	if l.cur.Page >= l.dev.Pages() {
		return &errcode.E{C: errcode.PageRange, Op: "taglog.Append", Msg: "log full"}
	}
	var rec [RecordSize]byte
	EncodeRecord(&rec, ev)
	if err := l.dev.ProgramBytes(l.cur.Addr(), rec[:]); err != nil {
		return err
	}
	l.cur = l.cur.Next()
	return nil
}

// ReadRecord decodes the record at the given cursor position, for the
// display-log command.
func (l *Log) ReadRecord(at Cursor) (types.TagEvent, error) {
	var rec [RecordSize]byte
	if err := l.dev.ReadBytes(at.Addr(), rec[:]); err != nil {
		return types.TagEvent{}, err
	}
	return DecodeRecord(rec[:]), nil
}
