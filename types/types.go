package types

// ------------------------
// Tag events
// ------------------------

// Timestamp is calendar time as the RTC reports it. Year is two-digit
// (00..99), matching the on-flash record encoding.
type Timestamp struct {
	Month  uint8 `json:"month"`
	Day    uint8 `json:"day"`
	Year   uint8 `json:"year"`
	Hour   uint8 `json:"hour"`
	Minute uint8 `json:"minute"`
	Second uint8 `json:"second"`
}

// TagEvent is one decoded RFID read. Immutable once created.
type TagEvent struct {
	Tag     [5]byte   `json:"tag"`
	Circuit uint8     `json:"circuit"`
	TS      Timestamp `json:"ts"`
}

// ------------------------
// Logging mode
// ------------------------

// LoggingMode selects the persistence path for accepted events.
type LoggingMode byte

const (
	// ModeFull mirrors every event to secondary storage as well as flash.
	ModeFull LoggingMode = 'S'
	// ModeFlashOnly writes to flash alone.
	ModeFlashOnly LoggingMode = 'F'
)

func (m LoggingMode) Valid() bool { return m == ModeFull || m == ModeFlashOnly }

func (m LoggingMode) String() string {
	switch m {
	case ModeFull:
		return "full"
	case ModeFlashOnly:
		return "flash_only"
	default:
		return "unknown"
	}
}

// ------------------------
// Clock boundary
// ------------------------

// Clock is the RTC boundary. The driver behind it is out of scope;
// the core only needs calendar time and the two wake primitives.
type Clock interface {
	Now() (Timestamp, error)
	// SetAlarm arms a calendar alarm at the given time of day.
	SetAlarm(hour, minute uint8) error
	// SetTime reprograms the RTC (operator set-clock command).
	SetTime(ts Timestamp) error
}

// TagReader is the RFID decoder boundary. ReadTag blocks for at most
// one attempt window and reports ok=false when no tag was in field.
type TagReader interface {
	ReadTag() (ev TagEvent, ok bool, err error)
}
