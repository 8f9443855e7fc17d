package taglog

import (
	"bytes"
	"testing"

	"github.com/Eli-S-Bridge/ETAG-V9.3/types"
)

func mkEvent(first byte, circuit uint8, h, m, s uint8) types.TagEvent {
	return types.TagEvent{
		Tag:     [5]byte{first, 0xBB, 0xCC, 0xDD, 0xEE},
		Circuit: circuit,
		TS:      types.Timestamp{Month: 7, Day: 15, Year: 25, Hour: h, Minute: m, Second: s},
	}
}

func TestRecordLayout(t *testing.T) {
	ev := mkEvent(0xAA, 3, 12, 34, 56)
	var rec [RecordSize]byte
	EncodeRecord(&rec, ev)

	want := []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 3, 7, 15, 25, 12, 34, 56}
	if !bytes.Equal(rec[:], want) {
		t.Fatalf("encoded %x, want %x", rec, want)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	ev := mkEvent(0x01, 9, 23, 59, 58)
	var rec [RecordSize]byte
	EncodeRecord(&rec, ev)
	got := DecodeRecord(rec[:])
	if got != ev {
		t.Fatalf("round trip %+v, want %+v", got, ev)
	}
}
