package taglog

import "github.com/Eli-S-Bridge/ETAG-V9.3/drivers/at45db"

// ScanCursor reconstructs the write cursor from flash contents. Runs
// once at startup, before any append.
//
// Two-level linear scan: first the page search walks first bytes from
// FirstLogPage until an erased one is found; then the in-page search
// strides record-by-record through the last data page. O(pages) +
// O(records-per-page), which is fine for a scan that runs once per
// boot on a chip of a few thousand pages.
func ScanCursor(dev Flash) (Cursor, error) {
	page, err := lastDataPage(dev)
	if err != nil {
		return Cursor{}, err
	}
	if page < FirstLogPage {
		// Nothing ever written.
		return Start(), nil
	}

	var b [1]byte
	for off := uint32(0); off <= PageLimit; off += RecordSize {
		if err := dev.ReadBytes(at45db.Addr(page, off), b[:]); err != nil {
			return Cursor{}, err
		}
		if b[0] == ErasedByte {
			return Cursor{Page: page, Offset: off}, nil
		}
	}
	// Page is full; continue on the next one.
	return Cursor{Page: page + 1, Offset: 0}, nil
}

// lastDataPage returns the highest log page whose first byte is
// programmed, or FirstLogPage-1 when the log is empty.
func lastDataPage(dev Flash) (uint32, error) {
	var b [1]byte
	page := uint32(FirstLogPage)
	for page < dev.Pages() {
		if err := dev.ReadBytes(at45db.Addr(page, 0), b[:]); err != nil {
			return 0, err
		}
		if b[0] == ErasedByte {
			break
		}
		page++
	}
	return page - 1, nil
}
