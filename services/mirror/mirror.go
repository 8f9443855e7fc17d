// Package mirror is the secondary-storage boundary: best-effort text
// lines appended to removable media. The media driver itself is out of
// scope; services talk to a Sink and the formatting lives here.
package mirror

import (
	"github.com/Eli-S-Bridge/ETAG-V9.3/errcode"
	"github.com/Eli-S-Bridge/ETAG-V9.3/types"
	"github.com/Eli-S-Bridge/ETAG-V9.3/x/conv"
)

// Sink appends one line to the event file on removable media.
type Sink interface {
	AppendLine(line string) error
	// Probe performs the startup availability check (a probe write).
	Probe() error
}

// FormatEventLine renders the documented one-line form:
//
//	"<10-hex-char tag id>, <circuit>, <mm/dd/yy hh:mm:ss>"
func FormatEventLine(ev types.TagEvent) string {
	var buf [64]byte
	b := buf[:0]

	var tag [10]byte
	b = append(b, conv.TagHex(tag[:], ev.Tag)...)
	b = append(b, ", "...)

	var num [8]byte
	b = append(b, conv.Itoa(num[:], int64(ev.Circuit))...)
	b = append(b, ", "...)

	var two [2]byte
	b = append(b, conv.Pad2(two[:], ev.TS.Month)...)
	b = append(b, '/')
	b = append(b, conv.Pad2(two[:], ev.TS.Day)...)
	b = append(b, '/')
	b = append(b, conv.Pad2(two[:], ev.TS.Year)...)
	b = append(b, ' ')
	b = append(b, conv.Pad2(two[:], ev.TS.Hour)...)
	b = append(b, ':')
	b = append(b, conv.Pad2(two[:], ev.TS.Minute)...)
	b = append(b, ':')
	b = append(b, conv.Pad2(two[:], ev.TS.Second)...)

	return string(b)
}

// Writer tracks sink availability. Probed once at startup; when the
// media is absent the system degrades to flash-only logging and does
// not retry on its own.
type Writer struct {
	sink      Sink
	available bool
}

func NewWriter(sink Sink) *Writer {
	return &Writer{sink: sink}
}

// Probe runs the availability check and reports the result.
func (w *Writer) Probe() bool {
	if w.sink == nil {
		w.available = false
		return false
	}
	w.available = w.sink.Probe() == nil
	return w.available
}

func (w *Writer) Available() bool { return w.available }

// LogEvent mirrors one accepted tag event. Unavailable media is an
// errcode.StorageUnavailable, which callers treat as non-fatal.
func (w *Writer) LogEvent(ev types.TagEvent) error {
	return w.Note(FormatEventLine(ev))
}

// Note appends an arbitrary line (sleep/wake markers, repeat notes).
// A write failure marks the media unavailable until the next probe.
func (w *Writer) Note(line string) error {
	if !w.available {
		return errcode.StorageUnavailable
	}
	if err := w.sink.AppendLine(line); err != nil {
		w.available = false
		return &errcode.E{C: errcode.StorageUnavailable, Op: "mirror.Note", Err: err}
	}
	return nil
}
