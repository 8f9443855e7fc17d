package heartbeat

import (
	"context"
	"testing"
	"time"

	"github.com/Eli-S-Bridge/ETAG-V9.3/bus"
)

func TestBeatsCarrySnapshot(t *testing.T) {
	b := bus.NewBus(4)
	sub := b.NewConnection("watcher").Subscribe(bus.T("status", "logger"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var n uint32
	svc := &Service{
		Interval: 5 * time.Millisecond,
		Snap: func() Snapshot {
			n++
			return Snapshot{Reads: n, PowerState: "active"}
		},
	}
	if err := svc.Start(ctx, b.NewConnection("heartbeat")); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		snap := msg.Payload.(Snapshot)
		if snap.Reads == 0 || snap.PowerState != "active" {
			t.Fatalf("snapshot %+v", snap)
		}
		if !msg.Retained {
			t.Fatal("status beat not retained")
		}
	case <-time.After(time.Second):
		t.Fatal("no beat published")
	}
}

func TestRetainedBeatReachesLateSubscriber(t *testing.T) {
	b := bus.NewBus(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := &Service{
		Interval: 5 * time.Millisecond,
		Snap:     func() Snapshot { return Snapshot{Accepted: 7} },
	}
	svc.Start(ctx, b.NewConnection("heartbeat"))

	deadline := time.After(time.Second)
	for {
		sub := b.NewConnection("late").Subscribe(bus.T("status", "logger"))
		select {
		case msg := <-sub.Channel():
			if msg.Payload.(Snapshot).Accepted != 7 {
				t.Fatalf("snapshot %+v", msg.Payload)
			}
			return
		default:
		}
		sub.Unsubscribe()
		select {
		case <-deadline:
			t.Fatal("retained beat never arrived")
		case <-time.After(time.Millisecond):
		}
	}
}
