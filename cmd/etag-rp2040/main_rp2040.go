//go:build rp2040

// etag-rp2040 is the field firmware for the RP2040 board revision:
// dataflash on SPI0 behind the bus guard, DS3231 clock on I2C0, the
// RFID front end on UART1, and the operator console on UART0.
package main

import (
	"context"
	"machine"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers/ds3231"

	"github.com/Eli-S-Bridge/ETAG-V9.3/bus"
	"github.com/Eli-S-Bridge/ETAG-V9.3/drivers/at45db"
	"github.com/Eli-S-Bridge/ETAG-V9.3/drivers/busguard"
	"github.com/Eli-S-Bridge/ETAG-V9.3/errcode"
	"github.com/Eli-S-Bridge/ETAG-V9.3/services/config"
	"github.com/Eli-S-Bridge/ETAG-V9.3/services/console"
	"github.com/Eli-S-Bridge/ETAG-V9.3/services/feeder"
	"github.com/Eli-S-Bridge/ETAG-V9.3/services/power"
	"github.com/Eli-S-Bridge/ETAG-V9.3/types"
)

// Pin assignments for the V9.3 board.
const (
	pinFlashCS   = machine.GPIO17
	pinStorageCS = machine.GPIO20

	pinConsoleTX = machine.GPIO0
	pinConsoleRX = machine.GPIO1
	pinReaderTX  = machine.GPIO4
	pinReaderRX  = machine.GPIO5
)

func main() {
	// Let USB CDC enumerate before anything prints.
	time.Sleep(2 * time.Second)

	prof, err := config.Embedded("field")
	if err != nil {
		println("fatal: profile:", err.Error())
		return
	}

	// SPI bus shared by dataflash and storage card.
	machine.SPI0.Configure(machine.SPIConfig{
		Frequency: 8_000_000,
		Mode:      0,
	})
	guard := busguard.New(pinOut(pinFlashCS), pinOut(pinStorageCS))

	fcfg := at45db.DefaultConfig()
	fcfg.Pages = prof.FlashPages
	flash := at45db.New(machine.SPI0, guard.Handle(busguard.Flash), fcfg)

	// Clock.
	machine.I2C0.Configure(machine.I2CConfig{})
	rtcDev := ds3231.New(machine.I2C0)
	rtcDev.Configure()
	clock := &rtcClock{dev: &rtcDev}

	// Serial ports.
	uartx.UART0.Configure(uartx.UARTConfig{BaudRate: 115200, TX: pinConsoleTX, RX: pinConsoleRX})
	uartx.UART1.Configure(uartx.UARTConfig{BaudRate: 9600, TX: pinReaderTX, RX: pinReaderRX})

	b := bus.NewBus(16)
	prof.Publish(b.NewConnection("config"))

	svc, err := feeder.New(feeder.Deps{
		Reader:      &uartReader{port: uartx.UART1, clock: clock},
		Flash:       flash,
		Clock:       clock,
		Sched:       power.NewScheduler(&rp2040Controller{}, clock, prof.PowerConfig()),
		Conn:        b.NewConnection("feeder"),
		DedupWindow: prof.DedupWindowSeconds,
	})
	if err != nil {
		println("fatal: boot:", err.Error())
		return
	}

	params := svc.Params()
	svc.SetMenu(console.New(uartx.UART0, console.Deps{
		Log:    svc.Log(),
		Flash:  flash,
		Clock:  clock,
		Params: params,
	}, console.DefaultConfig()))

	println("boot", string(params.DeviceID[:]))
	_ = svc.Run(context.Background())
}

// pinOut configures a pin as an output held high (deselected).
func pinOut(p machine.Pin) machine.Pin {
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.High()
	return p
}

// rtcClock adapts the DS3231 to the clock contract. The driver has no
// alarm register access, so night sleep degrades to staying awake.
type rtcClock struct {
	dev *ds3231.Device
}

func (c *rtcClock) Now() (types.Timestamp, error) {
	t, err := c.dev.ReadTime()
	if err != nil {
		return types.Timestamp{}, &errcode.E{C: errcode.ClockFailed, Op: "rtc.Now", Err: err}
	}
	return types.Timestamp{
		Month:  uint8(t.Month()),
		Day:    uint8(t.Day()),
		Year:   uint8(t.Year() % 100),
		Hour:   uint8(t.Hour()),
		Minute: uint8(t.Minute()),
		Second: uint8(t.Second()),
	}, nil
}

func (c *rtcClock) SetTime(ts types.Timestamp) error {
	t := time.Date(2000+int(ts.Year), time.Month(ts.Month), int(ts.Day),
		int(ts.Hour), int(ts.Minute), int(ts.Second), 0, time.UTC)
	if err := c.dev.SetTime(t); err != nil {
		return &errcode.E{C: errcode.ClockFailed, Op: "rtc.SetTime", Err: err}
	}
	return nil
}

func (c *rtcClock) SetAlarm(hour, minute uint8) error {
	return &errcode.E{C: errcode.Unsupported, Op: "rtc.SetAlarm"}
}

// rp2040Controller is the timed-wait fallback until dormant-mode
// support lands in the runtime.
type rp2040Controller struct {
	period time.Duration
}

func (c *rp2040Controller) ArmPeriodic(p time.Duration) error { c.period = p; return nil }
func (c *rp2040Controller) EnterLowPower() error              { time.Sleep(c.period); return nil }
func (c *rp2040Controller) Resume() error                     { return nil }

// uartReader decodes 6-byte frames from the RFID front end: five tag
// bytes then the antenna circuit number.
type uartReader struct {
	port  *uartx.UART
	clock types.Clock
}

func (r *uartReader) ReadTag() (types.TagEvent, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	var frame [6]byte
	got := 0
	for got < len(frame) {
		n, err := r.port.RecvSomeContext(ctx, frame[got:])
		if err != nil {
			return types.TagEvent{}, false, nil // silence is not an error
		}
		got += n
	}
	ts, err := r.clock.Now()
	if err != nil {
		return types.TagEvent{}, false, err
	}
	ev := types.TagEvent{Circuit: frame[5], TS: ts}
	copy(ev.Tag[:], frame[:5])
	return ev, true, nil
}
