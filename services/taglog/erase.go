package taglog

import "github.com/Eli-S-Bridge/ETAG-V9.3/errcode"

// Three erase procedures. Each leaves the cursor at the empty-log
// position. Page erases block for the chip's fixed erase duration and
// no verification read is performed afterward.

// EraseFull issues a whole-chip erase. Destroys the tag table and
// parameter pages too; the caller must re-establish parameters.
func (l *Log) EraseFull() error {
	if err := l.dev.EraseChip(); err != nil {
		return &errcode.E{C: errcode.EraseFailed, Op: "taglog.EraseFull", Err: err}
	}
	l.cur = Start()
	return nil
}

// EraseSeek re-runs the page search to find the last page containing
// data, then erases pages FirstLogPage through that page inclusive,
// one page at a time. Works even when the in-memory cursor is stale.
func (l *Log) EraseSeek() error {
	last, err := lastDataPage(l.dev)
	if err != nil {
		return err
	}
	for page := uint32(FirstLogPage); page <= last; page++ {
		if err := l.dev.ErasePage(page); err != nil {
			return &errcode.E{C: errcode.EraseFailed, Op: "taglog.EraseSeek", Err: err}
		}
	}
	l.cur = Start()
	return nil
}

// EraseFast erases pages FirstLogPage through the page component of
// the currently known cursor, with no re-scan. Cheapest mode; assumes
// the in-memory cursor is accurate. Stale data on pages beyond the
// cursor from a previous longer session is left untouched.
func (l *Log) EraseFast() error {
	for page := uint32(FirstLogPage); page <= l.cur.Page && page < l.dev.Pages(); page++ {
		if err := l.dev.ErasePage(page); err != nil {
			return &errcode.E{C: errcode.EraseFailed, Op: "taglog.EraseFast", Err: err}
		}
	}
	l.cur = Start()
	return nil
}
