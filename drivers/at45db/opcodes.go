package at45db

// Command opcodes (AT45DB-series dataflash, 528-byte standard page size).
const (
	opArrayReadLF  = 0x03 // continuous array read, low frequency (no dummy bytes)
	opProgNoErase  = 0x02 // byte/page program through buffer 1, no built-in erase
	opPageErase    = 0x81
	opStatus       = 0xD7
	opDeviceID     = 0x9F
	opPowerDown    = 0xB9
	opResumeFromPD = 0xAB
)

// Chip erase is a fixed 4-byte sequence.
var chipEraseSeq = [4]byte{0xC7, 0x94, 0x80, 0x9A}

// Status register bits.
const (
	statusReady = 1 << 7 // device not busy
	statusComp  = 1 << 6 // compare result (unused here)
)
