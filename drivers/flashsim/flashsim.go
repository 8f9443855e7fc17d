// Package flashsim is an in-memory paged flash used by host tests and
// the host simulator binary. It mirrors the at45db surface: erased
// cells read 0xFF, programming ANDs bits, erase restores all-ones.
package flashsim

import (
	"github.com/Eli-S-Bridge/ETAG-V9.3/drivers/at45db"
	"github.com/Eli-S-Bridge/ETAG-V9.3/errcode"
)

const (
	Erased   = 0xFF
	PageSize = at45db.PageSize
)

type Device struct {
	pages [][]byte

	// Fault injection, nil means healthy.
	ProgramErr error
	EraseErr   error

	// Counters for erase-scope assertions.
	PageErases []uint32
	ChipErases int
}

// New returns a blank chip with the given page count.
func New(pages uint32) *Device {
	d := &Device{pages: make([][]byte, pages)}
	for i := range d.pages {
		d.pages[i] = blankPage()
	}
	return d
}

func blankPage() []byte {
	p := make([]byte, PageSize)
	for i := range p {
		p[i] = Erased
	}
	return p
}

func (d *Device) Pages() uint32    { return uint32(len(d.pages)) }
func (d *Device) PageSize() uint32 { return PageSize }

// ReadBytes fills buf from addr, rolling over to the next page after
// in-page byte 527 like the chip's continuous array read.
func (d *Device) ReadBytes(addr uint32, buf []byte) error {
	page, off := at45db.Split(addr)
	if page >= d.Pages() || off >= PageSize {
		return &errcode.E{C: errcode.AddressRange, Op: "flashsim.ReadBytes"}
	}
	for i := range buf {
		buf[i] = d.pages[page][off]
		off++
		if off == PageSize {
			off = 0
			page++
			if page == d.Pages() {
				page = 0
			}
		}
	}
	return nil
}

// ProgramBytes ANDs data into the page at addr. Writes may not cross
// the page boundary.
func (d *Device) ProgramBytes(addr uint32, data []byte) error {
	if d.ProgramErr != nil {
		return d.ProgramErr
	}
	page, off := at45db.Split(addr)
	if page >= d.Pages() || off >= PageSize {
		return &errcode.E{C: errcode.AddressRange, Op: "flashsim.ProgramBytes"}
	}
	if off+uint32(len(data)) > PageSize {
		return &errcode.E{C: errcode.AddressRange, Op: "flashsim.ProgramBytes", Msg: "write crosses page boundary"}
	}
	for i, b := range data {
		d.pages[page][off+uint32(i)] &= b
	}
	return nil
}

func (d *Device) ErasePage(page uint32) error {
	if d.EraseErr != nil {
		return d.EraseErr
	}
	if page >= d.Pages() {
		return &errcode.E{C: errcode.PageRange, Op: "flashsim.ErasePage"}
	}
	d.pages[page] = blankPage()
	d.PageErases = append(d.PageErases, page)
	return nil
}

func (d *Device) EraseChip() error {
	if d.EraseErr != nil {
		return d.EraseErr
	}
	for i := range d.pages {
		d.pages[i] = blankPage()
	}
	d.ChipErases++
	return nil
}

// Snapshot returns a deep copy, for recovery-idempotence tests that
// must run against an unmodified image.
func (d *Device) Snapshot() *Device {
	c := New(d.Pages())
	for i, p := range d.pages {
		copy(c.pages[i], p)
	}
	return c
}
