// Package at45db drives an AT45DB-series SPI dataflash in its standard
// 528-byte page mode. Addresses are the chip's native split form:
// page index in bits 10 and up, byte offset in the low 10 bits.
package at45db

import (
	"time"

	"tinygo.org/x/drivers"

	"github.com/Eli-S-Bridge/ETAG-V9.3/errcode"
)

const (
	// PageSize is the full dataflash page, including the tail bytes the
	// log never uses.
	PageSize = 528

	// OffsetBits is the width of the in-page offset field of an address.
	OffsetBits = 10
	offsetMask = (1 << OffsetBits) - 1
)

// ChipSelect abstracts the CS line. Set(true) asserts the (active-low)
// select; implementations own the polarity.
type ChipSelect interface {
	Set(active bool) error
}

// Config for a Device. Integer-only.
type Config struct {
	Pages        uint32 // page count of the fitted chip (e.g. 2048 for AT45DB041)
	BusyTimeout  time.Duration
	ErasePoll    time.Duration // status poll interval while erasing
	PageEraseMax time.Duration // upper bound for a single page erase
	ChipEraseMax time.Duration // upper bound for a full chip erase
}

// DefaultConfig matches the AT45DB041E fitted on the logger board.
func DefaultConfig() Config {
	return Config{
		Pages:        2048,
		BusyTimeout:  100 * time.Millisecond,
		ErasePoll:    2 * time.Millisecond,
		PageEraseMax: 50 * time.Millisecond,
		ChipEraseMax: 40 * time.Second,
	}
}

func (c Config) Validate() error {
	if c.Pages == 0 {
		return &errcode.E{C: errcode.InvalidParams, Op: "at45db.Config", Msg: "Pages must be non-zero"}
	}
	if c.BusyTimeout <= 0 || c.PageEraseMax <= 0 || c.ChipEraseMax <= 0 {
		return &errcode.E{C: errcode.InvalidParams, Op: "at45db.Config", Msg: "timeouts must be positive"}
	}
	return nil
}

// Device represents one dataflash chip on a shared SPI bus.
type Device struct {
	spi   drivers.SPI
	cs    ChipSelect
	pages uint32

	busyTimeout  time.Duration
	erasePoll    time.Duration
	pageEraseMax time.Duration
	chipEraseMax time.Duration

	// Fixed command buffer to avoid per-call heap allocations.
	cmd [4]byte
}

// New constructs a Device with supplied config.
func New(spi drivers.SPI, cs ChipSelect, cfg Config) *Device {
	if cfg.Pages == 0 {
		cfg = DefaultConfig()
	}
	return &Device{
		spi:          spi,
		cs:           cs,
		pages:        cfg.Pages,
		busyTimeout:  cfg.BusyTimeout,
		erasePoll:    cfg.ErasePoll,
		pageEraseMax: cfg.PageEraseMax,
		chipEraseMax: cfg.ChipEraseMax,
	}
}

// Pages reports the configured page count.
func (d *Device) Pages() uint32 { return d.pages }

// PageSize reports the page size in bytes.
func (d *Device) PageSize() uint32 { return PageSize }

// Addr composes a split page/offset address.
func Addr(page, offset uint32) uint32 { return page<<OffsetBits | offset&offsetMask }

// Split decomposes a split address.
func Split(addr uint32) (page, offset uint32) {
	return addr >> OffsetBits, addr & offsetMask
}

// ReadBytes fills buf starting at addr. The chip's continuous read
// rolls over to the next page after in-page byte 527.
func (d *Device) ReadBytes(addr uint32, buf []byte) error {
	if err := d.checkAddr(addr); err != nil {
		return err
	}
	if err := d.waitReady(d.busyTimeout); err != nil {
		return err
	}
	if err := d.cs.Set(true); err != nil {
		return err
	}
	defer d.cs.Set(false)

	d.cmd[0] = opArrayReadLF
	d.putAddr(addr)
	if err := d.spi.Tx(d.cmd[:4], nil); err != nil {
		return err
	}
	return d.spi.Tx(nil, buf)
}

// ProgramBytes writes data at addr without a built-in erase. The target
// cells must already be erased; the chip ANDs programmed bits and no
// verify is performed. A write may not cross its page boundary.
func (d *Device) ProgramBytes(addr uint32, data []byte) error {
	if err := d.checkAddr(addr); err != nil {
		return err
	}
	if _, off := Split(addr); off+uint32(len(data)) > PageSize {
		return &errcode.E{C: errcode.AddressRange, Op: "at45db.ProgramBytes", Msg: "write crosses page boundary"}
	}
	if err := d.waitReady(d.busyTimeout); err != nil {
		return err
	}
	if err := d.cs.Set(true); err != nil {
		return err
	}

	d.cmd[0] = opProgNoErase
	d.putAddr(addr)
	err := d.spi.Tx(d.cmd[:4], nil)
	if err == nil {
		err = d.spi.Tx(data, nil)
	}
	d.cs.Set(false) // deassert latches the program cycle
	if err != nil {
		return &errcode.E{C: errcode.ProgramFailed, Op: "at45db.ProgramBytes", Err: err}
	}
	return d.waitReady(d.busyTimeout)
}

// ErasePage erases one page back to all-ones. Blocks until the chip
// reports ready or PageEraseMax elapses.
func (d *Device) ErasePage(page uint32) error {
	if page >= d.pages {
		return &errcode.E{C: errcode.PageRange, Op: "at45db.ErasePage"}
	}
	if err := d.waitReady(d.busyTimeout); err != nil {
		return err
	}
	if err := d.cs.Set(true); err != nil {
		return err
	}
	d.cmd[0] = opPageErase
	d.putAddr(Addr(page, 0))
	err := d.spi.Tx(d.cmd[:4], nil)
	d.cs.Set(false)
	if err != nil {
		return &errcode.E{C: errcode.EraseFailed, Op: "at45db.ErasePage", Err: err}
	}
	if err := d.waitReady(d.pageEraseMax); err != nil {
		return &errcode.E{C: errcode.EraseFailed, Op: "at45db.ErasePage", Err: err}
	}
	return nil
}

// EraseChip erases the whole array, reserved pages included. Blocks for
// the chip's full-erase duration (tens of seconds).
func (d *Device) EraseChip() error {
	if err := d.waitReady(d.busyTimeout); err != nil {
		return err
	}
	if err := d.cs.Set(true); err != nil {
		return err
	}
	err := d.spi.Tx(chipEraseSeq[:], nil)
	d.cs.Set(false)
	if err != nil {
		return &errcode.E{C: errcode.EraseFailed, Op: "at45db.EraseChip", Err: err}
	}
	if err := d.waitReady(d.chipEraseMax); err != nil {
		return &errcode.E{C: errcode.EraseFailed, Op: "at45db.EraseChip", Err: err}
	}
	return nil
}

// Status reads the raw status register.
func (d *Device) Status() (byte, error) {
	if err := d.cs.Set(true); err != nil {
		return 0, err
	}
	defer d.cs.Set(false)
	d.cmd[0] = opStatus
	var r [1]byte
	if err := d.spi.Tx(d.cmd[:1], nil); err != nil {
		return 0, err
	}
	if err := d.spi.Tx(nil, r[:]); err != nil {
		return 0, err
	}
	return r[0], nil
}

// waitReady polls the status register until the ready bit is set.
func (d *Device) waitReady(max time.Duration) error {
	deadline := time.Now().Add(max)
	for {
		s, err := d.Status()
		if err != nil {
			return err
		}
		if s&statusReady != 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return errcode.FlashBusy
		}
		time.Sleep(d.erasePoll)
	}
}

func (d *Device) checkAddr(addr uint32) error {
	page, off := Split(addr)
	if page >= d.pages {
		return &errcode.E{C: errcode.PageRange, Op: "at45db"}
	}
	if off >= PageSize {
		return &errcode.E{C: errcode.AddressRange, Op: "at45db"}
	}
	return nil
}

// putAddr encodes a 3-byte big-endian split address into cmd[1:4].
func (d *Device) putAddr(addr uint32) {
	d.cmd[1] = byte(addr >> 16)
	d.cmd[2] = byte(addr >> 8)
	d.cmd[3] = byte(addr)
}
