// Package uplink streams accepted tag events to a base station over a
// serial link. The link is optional field equipment: when absent the
// service sits in a dial-retry loop and the logger is unaffected, the
// flash copy stays the durable record.
package uplink

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/Eli-S-Bridge/ETAG-V9.3/bus"
	"github.com/Eli-S-Bridge/ETAG-V9.3/types"
	"github.com/Eli-S-Bridge/ETAG-V9.3/x/conv"
)

var (
	topicEvents = bus.T("tag", "event")
	topicState  = bus.T("uplink", "state")
)

// -----------------------------------------------------------------------------
// Wire format
// -----------------------------------------------------------------------------

const (
	framePing  byte = 0x01
	frameEvent byte = 0x10
	frameClose byte = 0x7f
)

// Frame is a length-prefixed unit on the link.
type Frame struct {
	Type    byte
	Payload []byte
}

// WireEvent is the JSON body of an event frame.
type WireEvent struct {
	Tag     string `json:"tag"`
	Circuit uint8  `json:"circuit"`
	Date    string `json:"date"` // mm/dd/yy
	Time    string `json:"time"` // hh:mm:ss
}

func encodeEvent(ev types.TagEvent) ([]byte, error) {
	var tag [10]byte
	var b [8]byte
	date := string(conv.Pad2(b[:2], ev.TS.Month)) + "/" +
		string(conv.Pad2(b[2:4], ev.TS.Day)) + "/" +
		string(conv.Pad2(b[4:6], ev.TS.Year))
	clock := string(conv.Pad2(b[:2], ev.TS.Hour)) + ":" +
		string(conv.Pad2(b[2:4], ev.TS.Minute)) + ":" +
		string(conv.Pad2(b[4:6], ev.TS.Second))
	return json.Marshal(WireEvent{
		Tag:     string(conv.TagHex(tag[:], ev.Tag)),
		Circuit: ev.Circuit,
		Date:    date,
		Time:    clock,
	})
}

// -----------------------------------------------------------------------------
// Transport registry
// -----------------------------------------------------------------------------

// Transport dials and owns one link attempt.
type Transport interface {
	Open(ctx context.Context) (io.ReadWriteCloser, error)
	String() string
}

// SerialDial is injected by platform code to open the uplink UART.
var SerialDial func(ctx context.Context) (io.ReadWriteCloser, error)

type serialTransport struct{}

func (serialTransport) String() string { return "serial" }
func (serialTransport) Open(ctx context.Context) (io.ReadWriteCloser, error) {
	if SerialDial == nil {
		return nil, errors.New("uplink: SerialDial not provided")
	}
	return SerialDial(ctx)
}

// -----------------------------------------------------------------------------
// Service
// -----------------------------------------------------------------------------

type Config struct {
	// PingInterval keeps an idle link alive.
	PingInterval time.Duration
	// BackoffMin and BackoffMax bound the dial-retry delay.
	BackoffMin, BackoffMax time.Duration
}

func DefaultConfig() Config {
	return Config{
		PingInterval: 30 * time.Second,
		BackoffMin:   250 * time.Millisecond,
		BackoffMax:   30 * time.Second,
	}
}

type Service struct {
	cfg  Config
	conn *bus.Connection
	tr   Transport
}

// New builds the service. A nil transport selects the injected serial
// dialler.
func New(conn *bus.Connection, tr Transport, cfg Config) *Service {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultConfig().PingInterval
	}
	if cfg.BackoffMin <= 0 {
		cfg.BackoffMin = DefaultConfig().BackoffMin
	}
	if cfg.BackoffMax < cfg.BackoffMin {
		cfg.BackoffMax = cfg.BackoffMin
	}
	if tr == nil {
		tr = serialTransport{}
	}
	return &Service{cfg: cfg, conn: conn, tr: tr}
}

// Run supervises the link until ctx is cancelled: dial, forward, and
// on loss retry with exponential backoff.
func (s *Service) Run(ctx context.Context) {
	events := s.conn.Subscribe(topicEvents)
	defer events.Unsubscribe()

	backoff := backoffSeq(s.cfg.BackoffMin, s.cfg.BackoffMax)
	for {
		if ctx.Err() != nil {
			return
		}
		rwc, err := s.tr.Open(ctx)
		if err != nil {
			s.publishState("down", err)
			if !sleep(ctx, backoff()) {
				return
			}
			continue
		}
		backoff = backoffSeq(s.cfg.BackoffMin, s.cfg.BackoffMax)
		s.publishState("up", nil)

		err = s.forward(ctx, rwc, events.Channel())
		_ = rwc.Close()
		if ctx.Err() != nil {
			return
		}
		s.publishState("down", err)
		if !sleep(ctx, backoff()) {
			return
		}
	}
}

// forward owns one live link: events out, pings on idle.
func (s *Service) forward(ctx context.Context, rwc io.ReadWriteCloser, events <-chan *bus.Message) error {
	wr := newFramedWriter(rwc)

	// The base station sends nothing we act on yet; drain reads so a
	// peer close surfaces as an error.
	readErr := make(chan error, 1)
	go func() {
		var buf [64]byte
		for {
			if _, err := rwc.Read(buf[:]); err != nil {
				readErr <- err
				return
			}
		}
	}()

	tick := time.NewTicker(s.cfg.PingInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = wr.WriteFrame(Frame{Type: frameClose})
			return nil
		case err := <-readErr:
			return err
		case <-tick.C:
			if err := wr.WriteFrame(Frame{Type: framePing}); err != nil {
				return err
			}
		case msg, ok := <-events:
			if !ok {
				return nil
			}
			ev, isEvent := msg.Payload.(types.TagEvent)
			if !isEvent {
				continue
			}
			body, err := encodeEvent(ev)
			if err != nil {
				continue
			}
			if err := wr.WriteFrame(Frame{Type: frameEvent, Payload: body}); err != nil {
				return err
			}
		}
	}
}

func (s *Service) publishState(state string, err error) {
	payload := map[string]any{"state": state}
	if err != nil {
		payload["error"] = err.Error()
	}
	s.conn.Publish(s.conn.NewMessage(topicState, payload, true))
}

// -----------------------------------------------------------------------------
// Framing
// -----------------------------------------------------------------------------

type framedReader struct{ r io.Reader }
type framedWriter struct{ w io.Writer }

func newFramedReader(r io.Reader) *framedReader { return &framedReader{r: r} }
func newFramedWriter(w io.Writer) *framedWriter { return &framedWriter{w: w} }

func (fr *framedReader) ReadFrame() (Frame, error) {
	var hdr [3]byte
	if _, err := io.ReadFull(fr.r, hdr[:]); err != nil {
		return Frame{}, err
	}
	n := int(hdr[1])<<8 | int(hdr[2])
	var buf []byte
	if n > 0 {
		buf = make([]byte, n)
		if _, err := io.ReadFull(fr.r, buf); err != nil {
			return Frame{}, err
		}
	}
	return Frame{Type: hdr[0], Payload: buf}, nil
}

func (fw *framedWriter) WriteFrame(f Frame) error {
	if len(f.Payload) > 0xFFFF {
		return errors.New("uplink: frame too large")
	}
	hdr := []byte{f.Type, byte(len(f.Payload) >> 8), byte(len(f.Payload))}
	if _, err := fw.w.Write(hdr); err != nil {
		return err
	}
	if len(f.Payload) > 0 {
		_, err := fw.w.Write(f.Payload)
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------
// Utilities
// -----------------------------------------------------------------------------

func backoffSeq(min, max time.Duration) func() time.Duration {
	cur := min
	return func() time.Duration {
		d := cur
		cur *= 2
		if cur > max {
			cur = max
		}
		return d
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
