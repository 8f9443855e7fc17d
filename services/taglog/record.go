package taglog

import "github.com/Eli-S-Bridge/ETAG-V9.3/types"

// On-flash record layout, 12 bytes:
//
//	0..4   tag id
//	5      circuit id
//	6..11  month, day, year, hour, minute, second

// EncodeRecord fills dst with the on-flash form of ev.
func EncodeRecord(dst *[RecordSize]byte, ev types.TagEvent) {
	copy(dst[0:5], ev.Tag[:])
	dst[5] = ev.Circuit
	dst[6] = ev.TS.Month
	dst[7] = ev.TS.Day
	dst[8] = ev.TS.Year
	dst[9] = ev.TS.Hour
	dst[10] = ev.TS.Minute
	dst[11] = ev.TS.Second
}

// DecodeRecord parses a 12-byte record. src must be at least RecordSize
// bytes; extra bytes are ignored.
func DecodeRecord(src []byte) types.TagEvent {
	var ev types.TagEvent
	copy(ev.Tag[:], src[0:5])
	ev.Circuit = src[5]
	ev.TS = types.Timestamp{
		Month:  src[6],
		Day:    src[7],
		Year:   src[8],
		Hour:   src[9],
		Minute: src[10],
		Second: src[11],
	}
	return ev
}
