// Package console is the interactive operator menu on the serial
// line: clock setting, log display, the three erase modes, identifier
// and logging-mode changes, and a forced flush to secondary storage.
// Malformed input aborts the one operation and returns to the prompt;
// no partial state is committed.
package console

import (
	"context"
	"time"

	"github.com/google/shlex"

	"github.com/Eli-S-Bridge/ETAG-V9.3/errcode"
	"github.com/Eli-S-Bridge/ETAG-V9.3/services/mirror"
	"github.com/Eli-S-Bridge/ETAG-V9.3/services/taglog"
	"github.com/Eli-S-Bridge/ETAG-V9.3/types"
	"github.com/Eli-S-Bridge/ETAG-V9.3/x/conv"
	"github.com/Eli-S-Bridge/ETAG-V9.3/x/mathx"
)

// Port is the operator serial line.
type Port interface {
	Write(p []byte) (int, error)
	RecvSomeContext(ctx context.Context, p []byte) (int, error)
}

// Deps are the collaborators a command can touch.
type Deps struct {
	Log    *taglog.Log
	Flash  taglog.Flash
	Clock  types.Clock
	Mirror *mirror.Writer
	Params *taglog.Params
}

type Config struct {
	// InputTimeout bounds the wait for one command line. Expired input
	// aborts the pending operation.
	InputTimeout time.Duration
	// MaxShow caps how many records one display command prints.
	MaxShow int
}

func DefaultConfig() Config {
	return Config{
		InputTimeout: 10 * time.Second,
		MaxShow:      200,
	}
}

type Console struct {
	port Port
	deps Deps
	cfg  Config
}

func New(port Port, deps Deps, cfg Config) *Console {
	if cfg.InputTimeout <= 0 {
		cfg.InputTimeout = DefaultConfig().InputTimeout
	}
	if cfg.MaxShow <= 0 {
		cfg.MaxShow = DefaultConfig().MaxShow
	}
	return &Console{port: port, deps: deps, cfg: cfg}
}

// RunOnce reads one command line and executes it. A timeout or empty
// line is not an error; the caller decides whether to prompt again.
func (c *Console) RunOnce(ctx context.Context) error {
	line, err := c.readLine(ctx)
	if err != nil {
		return err
	}
	if line == "" {
		return nil
	}
	c.Execute(line)
	return nil
}

// Execute dispatches one command line.
func (c *Console) Execute(line string) {
	args, err := shlex.Split(line)
	if err != nil || len(args) == 0 {
		c.fail(errcode.InvalidInput, "unparseable command")
		return
	}
	switch args[0] {
	case "clock":
		c.cmdClock(args[1:])
	case "show":
		c.cmdShow(args[1:])
	case "erase":
		c.cmdErase(args[1:])
	case "id":
		c.cmdID(args[1:])
	case "mode":
		c.cmdMode()
	case "flush":
		c.cmdFlush()
	case "status":
		c.cmdStatus()
	case "help":
		c.println("commands: clock <mmddyyhhmmss> | show [n] | erase <seek|fast|full> | id <XXXX> | mode | flush | status")
	default:
		c.fail(errcode.InvalidInput, "unknown command: "+args[0])
	}
}

// ---- commands ----

// cmdClock sets the RTC from a 12-digit mmddyyhhmmss string.
func (c *Console) cmdClock(args []string) {
	if len(args) != 1 || len(args[0]) != 12 {
		c.fail(errcode.InvalidInput, "clock wants exactly 12 digits: mmddyyhhmmss")
		return
	}
	var d [6]uint8
	for i := 0; i < 6; i++ {
		hi, lo := args[0][2*i], args[0][2*i+1]
		if hi < '0' || hi > '9' || lo < '0' || lo > '9' {
			c.fail(errcode.InvalidInput, "clock wants digits only")
			return
		}
		d[i] = (hi-'0')*10 + (lo - '0')
	}
	ts := types.Timestamp{Month: d[0], Day: d[1], Year: d[2], Hour: d[3], Minute: d[4], Second: d[5]}
	if ts.Month < 1 || ts.Month > 12 || ts.Day < 1 || ts.Day > 31 ||
		ts.Hour > 23 || ts.Minute > 59 || ts.Second > 59 {
		c.fail(errcode.InvalidInput, "clock fields out of range")
		return
	}
	if err := c.deps.Clock.SetTime(ts); err != nil {
		c.fail(errcode.ClockFailed, err.Error())
		return
	}
	c.println("clock set")
}

// cmdShow prints up to n logged records, oldest first.
func (c *Console) cmdShow(args []string) {
	n := c.cfg.MaxShow
	if len(args) == 1 {
		v, ok := parseInt(args[0])
		if !ok {
			c.fail(errcode.InvalidInput, "show wants a count")
			return
		}
		n = mathx.Clamp(v, 1, c.cfg.MaxShow)
	}
	count := 0
	for at := taglog.Start(); at != c.deps.Log.Cursor() && count < n; at = at.Next() {
		ev, err := c.deps.Log.ReadRecord(at)
		if err != nil {
			c.fail(errcode.Of(err), "read failed")
			return
		}
		c.println(mirror.FormatEventLine(ev))
		count++
	}
	c.println("end of log")
}

func (c *Console) cmdErase(args []string) {
	if len(args) != 1 {
		c.fail(errcode.InvalidInput, "erase wants seek|fast|full")
		return
	}
	var err error
	switch args[0] {
	case "seek":
		err = c.deps.Log.EraseSeek()
	case "fast":
		err = c.deps.Log.EraseFast()
	case "full":
		err = c.deps.Log.EraseFull()
		if err == nil && c.deps.Params != nil {
			// Chip erase destroyed the parameter page too.
			err = taglog.StoreParams(c.deps.Flash, *c.deps.Params)
		}
	default:
		c.fail(errcode.InvalidInput, "erase wants seek|fast|full")
		return
	}
	if err != nil {
		c.fail(errcode.Of(err), "erase failed")
		return
	}
	c.println("log erased")
}

// cmdID sets the 4-character device identifier.
func (c *Console) cmdID(args []string) {
	if len(args) != 1 || len(args[0]) != 4 {
		c.fail(errcode.InvalidInput, "id wants exactly 4 characters")
		return
	}
	p := *c.deps.Params
	copy(p.DeviceID[:], args[0])
	if err := taglog.StoreParams(c.deps.Flash, p); err != nil {
		c.fail(errcode.Of(err), "store failed")
		return
	}
	*c.deps.Params = p
	c.println("id set: " + args[0])
}

// cmdMode toggles between full and flash-only logging.
func (c *Console) cmdMode() {
	p := *c.deps.Params
	if p.Mode == types.ModeFull {
		p.Mode = types.ModeFlashOnly
	} else {
		p.Mode = types.ModeFull
	}
	if err := taglog.StoreParams(c.deps.Flash, p); err != nil {
		c.fail(errcode.Of(err), "store failed")
		return
	}
	*c.deps.Params = p
	c.println("logging mode: " + p.Mode.String())
}

// cmdFlush copies every logged record to secondary storage.
func (c *Console) cmdFlush() {
	if c.deps.Mirror == nil || !c.deps.Mirror.Available() {
		c.fail(errcode.StorageUnavailable, "no secondary storage")
		return
	}
	count := 0
	for at := taglog.Start(); at != c.deps.Log.Cursor(); at = at.Next() {
		ev, err := c.deps.Log.ReadRecord(at)
		if err != nil {
			c.fail(errcode.Of(err), "read failed")
			return
		}
		if err := c.deps.Mirror.LogEvent(ev); err != nil {
			c.fail(errcode.Of(err), "write failed")
			return
		}
		count++
	}
	var num [8]byte
	c.println("flushed " + string(conv.Itoa(num[:], int64(count))) + " records")
}

// cmdStatus prints the live cursor for the status display.
func (c *Console) cmdStatus() {
	cur := c.deps.Log.Cursor()
	var num [12]byte
	c.println("cursor page " + string(conv.Itoa(num[:], int64(cur.Page))) + " offset " + string(conv.Itoa(num[:], int64(cur.Offset))))
}

// ---- plumbing ----

func (c *Console) println(s string) {
	c.port.Write([]byte(s))
	c.port.Write([]byte{'\r', '\n'})
}

func (c *Console) fail(code errcode.Code, msg string) {
	c.println("ERR " + string(code) + ": " + msg)
}

// readLine accumulates bytes until LF or the input timeout. CR is
// ignored. A timeout returns whatever was typed so far discarded and
// no error: the operation is simply aborted.
func (c *Console) readLine(ctx context.Context) (string, error) {
	tctx, cancel := context.WithTimeout(ctx, c.cfg.InputTimeout)
	defer cancel()

	var line []byte
	var buf [32]byte
	for {
		n, err := c.port.RecvSomeContext(tctx, buf[:])
		if err != nil {
			if tctx.Err() != nil {
				return "", nil // timed out; abort quietly
			}
			return "", err
		}
		for i := 0; i < n; i++ {
			switch buf[i] {
			case '\n':
				return string(line), nil
			case '\r':
				// ignore
			default:
				line = append(line, buf[i])
			}
		}
	}
}

func parseInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	v := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
		v = v*10 + int(s[i]-'0')
	}
	return v, true
}
