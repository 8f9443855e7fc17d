package console

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Eli-S-Bridge/ETAG-V9.3/drivers/flashsim"
	"github.com/Eli-S-Bridge/ETAG-V9.3/services/mirror"
	"github.com/Eli-S-Bridge/ETAG-V9.3/services/taglog"
	"github.com/Eli-S-Bridge/ETAG-V9.3/types"
)

type fakePort struct {
	in  []byte
	out []byte
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.out = append(p.out, b...)
	return len(b), nil
}

func (p *fakePort) RecvSomeContext(ctx context.Context, buf []byte) (int, error) {
	if len(p.in) == 0 {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	n := copy(buf, p.in)
	p.in = p.in[n:]
	return n, nil
}

type fakeClock struct {
	ts  types.Timestamp
	set []types.Timestamp
}

func (c *fakeClock) Now() (types.Timestamp, error)    { return c.ts, nil }
func (c *fakeClock) SetAlarm(h, m uint8) error        { return nil }
func (c *fakeClock) SetTime(ts types.Timestamp) error { c.set = append(c.set, ts); c.ts = ts; return nil }

type fakeSink struct{ lines []string }

func (s *fakeSink) AppendLine(line string) error { s.lines = append(s.lines, line); return nil }
func (s *fakeSink) Probe() error                 { return nil }

type fixture struct {
	port   *fakePort
	dev    *flashsim.Device
	log    *taglog.Log
	clock  *fakeClock
	sink   *fakeSink
	writer *mirror.Writer
	params taglog.Params
	con    *Console
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		port:  &fakePort{},
		dev:   flashsim.New(16),
		clock: &fakeClock{ts: types.Timestamp{Month: 7, Day: 1, Year: 26, Hour: 10}},
		sink:  &fakeSink{},
	}
	f.log = taglog.NewLog(f.dev)
	f.writer = mirror.NewWriter(f.sink)
	f.writer.Probe()
	f.params = taglog.DefaultParams()
	f.con = New(f.port, Deps{
		Log:    f.log,
		Flash:  f.dev,
		Clock:  f.clock,
		Mirror: f.writer,
		Params: &f.params,
	}, Config{InputTimeout: 50 * time.Millisecond, MaxShow: 100})
	return f
}

func (f *fixture) output() string { return string(f.port.out) }

func event(i int) types.TagEvent {
	return types.TagEvent{
		Tag:     [5]byte{byte(i), 2, 3, 4, 5},
		Circuit: 1,
		TS:      types.Timestamp{Month: 7, Day: 1, Year: 26, Hour: 10, Minute: 0, Second: uint8(i)},
	}
}

func TestClockCommand(t *testing.T) {
	f := newFixture(t)
	f.con.Execute("clock 070426091530")
	if len(f.clock.set) != 1 {
		t.Fatalf("SetTime calls: %d", len(f.clock.set))
	}
	want := types.Timestamp{Month: 7, Day: 4, Year: 26, Hour: 9, Minute: 15, Second: 30}
	if f.clock.set[0] != want {
		t.Fatalf("set %+v, want %+v", f.clock.set[0], want)
	}
}

func TestClockRejectsMalformedInput(t *testing.T) {
	f := newFixture(t)
	for _, line := range []string{
		"clock 0704260915",    // too short
		"clock 07042609153x",  // non-digit
		"clock 130426091530",  // month 13
		"clock 070426241530",  // hour 24
		"clock 070426091530 extra",
	} {
		f.con.Execute(line)
	}
	if len(f.clock.set) != 0 {
		t.Fatalf("malformed input reached the clock: %+v", f.clock.set)
	}
	if !strings.Contains(f.output(), "ERR invalid_input") {
		t.Fatalf("no error reported: %q", f.output())
	}
}

func TestEraseCommandModes(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		if err := f.log.Append(event(i)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	f.con.Execute("erase fast")
	if f.log.Cursor() != taglog.Start() {
		t.Fatalf("cursor %+v after erase", f.log.Cursor())
	}

	f.con.Execute("erase sideways")
	if !strings.Contains(f.output(), "ERR invalid_input") {
		t.Fatalf("bad mode accepted: %q", f.output())
	}
}

func TestEraseFullRestoresParams(t *testing.T) {
	f := newFixture(t)
	f.con.Execute("erase full")
	p, err := taglog.LoadParams(f.dev)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !p.Initialized {
		t.Fatal("parameter page not re-established after full erase")
	}
}

func TestIDCommand(t *testing.T) {
	f := newFixture(t)
	f.con.Execute("id WREN")
	if string(f.params.DeviceID[:]) != "WREN" {
		t.Fatalf("params id %q", f.params.DeviceID)
	}
	p, _ := taglog.LoadParams(f.dev)
	if string(p.DeviceID[:]) != "WREN" {
		t.Fatalf("persisted id %q", p.DeviceID)
	}

	f.con.Execute("id TOOLONG")
	if string(f.params.DeviceID[:]) != "WREN" {
		t.Fatal("invalid id committed")
	}
}

func TestModeToggle(t *testing.T) {
	f := newFixture(t)
	f.con.Execute("mode")
	if f.params.Mode != types.ModeFlashOnly {
		t.Fatalf("mode %v after toggle", f.params.Mode)
	}
	f.con.Execute("mode")
	if f.params.Mode != types.ModeFull {
		t.Fatalf("mode %v after second toggle", f.params.Mode)
	}
}

func TestShowAndFlush(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 4; i++ {
		if err := f.log.Append(event(i)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	f.con.Execute("show 2")
	if got := strings.Count(f.output(), "/26 "); got != 2 {
		t.Fatalf("show printed %d records: %q", got, f.output())
	}

	f.con.Execute("flush")
	if len(f.sink.lines) != 4 {
		t.Fatalf("flushed %d lines", len(f.sink.lines))
	}
	if f.sink.lines[0] != mirror.FormatEventLine(event(0)) {
		t.Fatalf("line %q", f.sink.lines[0])
	}
}

func TestRunOnceTimeoutAborts(t *testing.T) {
	f := newFixture(t)
	f.port.in = []byte("erase fa") // no newline; operator walked away
	start := time.Now()
	if err := f.con.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if time.Since(start) < 40*time.Millisecond {
		t.Fatal("returned before the input timeout")
	}
	if strings.Contains(f.output(), "erased") {
		t.Fatal("partial command executed")
	}
}
