package taglog

import (
	"github.com/Eli-S-Bridge/ETAG-V9.3/drivers/at45db"
	"github.com/Eli-S-Bridge/ETAG-V9.3/types"
)

// Parameter block, page 1. Mutated only at device setup or on an
// operator command, never on append: the live cursor is recovered by
// scanning, so the persisted one is written exactly once, at
// first-ever initialization.
//
//	0..2   persisted cursor (page-high, page-low, byte-offset)
//	3      init marker (0xAA once initialized)
//	4..7   device identifier (4 characters)
//	8      identifier-init marker (0xAA once set)
//	9      tag count
//	10     feeder mode
//	11..12 clock recalibration interval (minutes, big-endian)
//	13     logging mode ('S' = flash+secondary, 'F' = flash-only)
const (
	paramPage = 1
	paramLen  = 14

	initMarker = 0xAA
)

type Params struct {
	DeviceID    [4]byte
	TagCount    uint8
	FeederMode  uint8
	RecalMins   uint16
	Mode        types.LoggingMode
	Initialized bool
	IDSet       bool
}

// DefaultParams are what a factory-fresh device self-heals to.
func DefaultParams() Params {
	return Params{
		DeviceID:  [4]byte{'E', 'T', 'A', 'G'},
		RecalMins: 60,
		Mode:      types.ModeFull,
	}
}

// LoadParams reads the parameter block. Initialized / IDSet reflect the
// marker bytes; absent initialization is not an error.
func LoadParams(dev Flash) (Params, error) {
	var raw [paramLen]byte
	if err := dev.ReadBytes(at45db.Addr(paramPage, 0), raw[:]); err != nil {
		return Params{}, err
	}
	p := Params{
		TagCount:    raw[9],
		FeederMode:  raw[10],
		RecalMins:   uint16(raw[11])<<8 | uint16(raw[12]),
		Mode:        types.LoggingMode(raw[13]),
		Initialized: raw[3] == initMarker,
		IDSet:       raw[8] == initMarker,
	}
	copy(p.DeviceID[:], raw[4:8])
	if !p.Mode.Valid() {
		p.Mode = types.ModeFull
	}
	return p, nil
}

// StoreParams rewrites the parameter block: the page is erased and the
// block programmed with both markers set. The persisted cursor field is
// written as the empty-log position; it is never kept in sync with the
// live cursor.
func StoreParams(dev Flash, p Params) error {
	if err := dev.ErasePage(paramPage); err != nil {
		return err
	}
	start := Start()
	var raw [paramLen]byte
	raw[0] = byte(start.Page >> 8)
	raw[1] = byte(start.Page)
	raw[2] = byte(start.Offset)
	raw[3] = initMarker
	copy(raw[4:8], p.DeviceID[:])
	raw[8] = initMarker
	raw[9] = p.TagCount
	raw[10] = p.FeederMode
	raw[11] = byte(p.RecalMins >> 8)
	raw[12] = byte(p.RecalMins)
	raw[13] = byte(p.Mode)
	return dev.ProgramBytes(at45db.Addr(paramPage, 0), raw[:])
}

// EnsureParams loads the block and self-heals a factory-fresh or wiped
// device to defaults. Reports whether healing was needed so the caller
// can log an informational message.
func EnsureParams(dev Flash) (Params, bool, error) {
	p, err := LoadParams(dev)
	if err != nil {
		return Params{}, false, err
	}
	if p.Initialized && p.IDSet {
		return p, false, nil
	}
	d := DefaultParams()
	if p.Initialized {
		// Keep whatever was valid, heal only the identifier.
		d = p
		d.DeviceID = DefaultParams().DeviceID
	}
	if err := StoreParams(dev, d); err != nil {
		return Params{}, false, err
	}
	d.Initialized, d.IDSet = true, true
	return d, true, nil
}
