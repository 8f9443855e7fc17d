// Package heartbeat publishes a periodic liveness snapshot of the
// logger on the bus: write cursor, loop counters, power state. The
// snapshot is retained, so a tool attaching mid-run sees the latest
// one immediately.
package heartbeat

import (
	"context"
	"time"

	"github.com/Eli-S-Bridge/ETAG-V9.3/bus"
)

var (
	topicStatus = bus.T("status", "logger")
	topicConfig = bus.T("config", "heartbeat")
)

// Snapshot is what each beat carries.
type Snapshot struct {
	CursorPage   uint32
	CursorOffset uint32
	Reads        uint32
	Accepted     uint32
	Repeats      uint32
	PowerState   string
}

// Service beats at a fixed interval. Snap is called on each beat to
// collect the current snapshot.
type Service struct {
	Interval time.Duration
	Snap     func() Snapshot
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfig)
	defer conn.Unsubscribe(cfgSub)

	interval := s.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			conn.Publish(conn.NewMessage(topicStatus, s.Snap(), true))
		case msg := <-cfgSub.Channel():
			if iv, ok := msg.Payload.(time.Duration); ok && iv > 0 {
				tick.Reset(iv)
			}
		}
	}
}

// Start launches the beat loop.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	if s.Snap == nil {
		s.Snap = func() Snapshot { return Snapshot{} }
	}
	go s.serviceLoop(ctx, conn)
	return nil
}
