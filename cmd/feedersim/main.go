// feedersim runs the full logging stack on the host: simulated flash,
// a randomized tag reader, and a virtual clock ticking one second per
// read attempt. Useful for exercising recovery and erase behaviour
// without hardware.
package main

import (
	"flag"
	"math/rand"
	"os"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/Eli-S-Bridge/ETAG-V9.3/bus"
	"github.com/Eli-S-Bridge/ETAG-V9.3/drivers/flashsim"
	"github.com/Eli-S-Bridge/ETAG-V9.3/services/config"
	"github.com/Eli-S-Bridge/ETAG-V9.3/services/feeder"
	"github.com/Eli-S-Bridge/ETAG-V9.3/services/mirror"
	"github.com/Eli-S-Bridge/ETAG-V9.3/services/taglog"
	"github.com/Eli-S-Bridge/ETAG-V9.3/types"
)

func main() {
	var (
		profilePath = flag.String("profile", "", "YAML profile; empty selects the embedded bench profile")
		events      = flag.Int("events", 200, "read attempts to simulate")
		tags        = flag.Int("tags", 4, "distinct tags in the population")
		seed        = flag.Int64("seed", 1, "random seed")
		mirrorPath  = flag.String("mirror", "", "write mirrored lines to this file")
	)
	flag.Parse()

	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	logger = kitlog.With(logger, "app", "feedersim")

	prof, err := loadProfile(*profilePath)
	if err != nil {
		level.Error(logger).Log("msg", "profile load failed", "err", err)
		os.Exit(1)
	}
	level.Info(logger).Log("msg", "profile loaded", "device", prof.Device, "pages", prof.FlashPages)

	dev := flashsim.New(prof.FlashPages)
	b := bus.NewBus(16)
	prof.Publish(b.NewConnection("config"))

	clock := &simClock{ts: types.Timestamp{Month: 7, Day: 1, Year: 26, Hour: 8}}
	reader := &simReader{
		clock: clock,
		rng:   rand.New(rand.NewSource(*seed)),
		tags:  *tags,
	}

	var w *mirror.Writer
	if *mirrorPath != "" {
		sink, err := newFileSink(*mirrorPath)
		if err != nil {
			level.Error(logger).Log("msg", "mirror open failed", "err", err)
			os.Exit(1)
		}
		defer sink.Close()
		w = mirror.NewWriter(sink)
	}

	svc, err := feeder.New(feeder.Deps{
		Reader: reader,
		Flash:  dev,
		Clock:  clock,
		Mirror: w,
		Conn:   b.NewConnection("feeder"),

		DedupWindow: prof.DedupWindowSeconds,
	})
	if err != nil {
		level.Error(logger).Log("msg", "boot failed", "err", err)
		os.Exit(1)
	}

	for i := 0; i < *events; i++ {
		svc.Step()
	}

	st := svc.Stats()
	cur := svc.Log().Cursor()
	level.Info(logger).Log(
		"msg", "run complete",
		"reads", st.Reads,
		"accepted", st.Accepted,
		"repeats", st.Repeats,
		"log_errors", st.LogErrors,
		"cursor_page", cur.Page,
		"cursor_offset", cur.Offset,
	)

	// Recovery cross-check: a fresh scan of the same image must land on
	// the live cursor.
	recovered, err := taglog.ScanCursor(dev)
	if err != nil {
		level.Error(logger).Log("msg", "rescan failed", "err", err)
		os.Exit(1)
	}
	if recovered != cur {
		level.Error(logger).Log("msg", "rescan mismatch",
			"live_page", cur.Page, "live_offset", cur.Offset,
			"scan_page", recovered.Page, "scan_offset", recovered.Offset)
		os.Exit(1)
	}
	level.Info(logger).Log("msg", "rescan agrees with live cursor")
}

func loadProfile(path string) (config.Profile, error) {
	if path == "" {
		return config.Embedded("bench")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return config.Profile{}, err
	}
	return config.Load(raw)
}

// simClock advances one second per read attempt.
type simClock struct {
	ts types.Timestamp
}

func (c *simClock) Now() (types.Timestamp, error) { return c.ts, nil }
func (c *simClock) SetAlarm(h, m uint8) error     { return nil }
func (c *simClock) SetTime(ts types.Timestamp) error {
	c.ts = ts
	return nil
}

func (c *simClock) tick() {
	t := &c.ts
	t.Second++
	if t.Second == 60 {
		t.Second = 0
		t.Minute++
	}
	if t.Minute == 60 {
		t.Minute = 0
		t.Hour++
	}
	if t.Hour == 24 {
		t.Hour = 0
		t.Day++
	}
}

// simReader produces a tag on roughly a third of attempts, drawn from
// a small population so the dedup filter gets real work.
type simReader struct {
	clock *simClock
	rng   *rand.Rand
	tags  int
}

func (r *simReader) ReadTag() (types.TagEvent, bool, error) {
	r.clock.tick()
	if r.rng.Intn(3) != 0 {
		return types.TagEvent{}, false, nil
	}
	n := r.rng.Intn(r.tags)
	ev := types.TagEvent{
		Tag:     [5]byte{0xA0, 0x00, 0x00, 0x00, byte(n)},
		Circuit: uint8(n % 2),
		TS:      r.clock.ts,
	}
	return ev, true, nil
}

// fileSink appends mirror lines to a plain text file.
type fileSink struct {
	f *os.File
}

func newFileSink(path string) (*fileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &fileSink{f: f}, nil
}

func (s *fileSink) AppendLine(line string) error {
	_, err := s.f.WriteString(line + "\n")
	return err
}

func (s *fileSink) Probe() error { return nil }
func (s *fileSink) Close() error { return s.f.Close() }
