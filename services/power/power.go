// Package power decides how the main loop waits between read
// attempts: an interactive timed pause while an operator may still be
// attached, hardware-timer deep sleep once the boot has settled, and a
// calendar-alarm night sleep spanning the configured overnight window.
package power

import (
	"time"

	"github.com/Eli-S-Bridge/ETAG-V9.3/types"
)

// State of the scheduler.
type State uint8

const (
	Active State = iota
	DeepSleepCycle
	NightSleep
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case DeepSleepCycle:
		return "deep_sleep_cycle"
	case NightSleep:
		return "night_sleep"
	default:
		return "unknown"
	}
}

// Controller is the per-target low-power capability. EnterLowPower
// halts until the armed wake source fires; implementations must
// disable the interactive interface and the periodic tick source on
// entry, and Resume must restore both before any flash or storage
// operation is attempted. The bus-select pin doubling as the wake
// interrupt line is repurposed inside these two calls.
type Controller interface {
	// ArmPeriodic sets the hardware wake timer. The frequency is chosen
	// so elapsed real time approximates the period.
	ArmPeriodic(period time.Duration) error
	EnterLowPower() error
	Resume() error
}

// Config for the scheduler.
type Config struct {
	// CycleThreshold is the read-attempt count at which Active hands
	// over to DeepSleepCycle for the rest of the boot.
	CycleThreshold uint32
	// Pause between read attempts, in every non-night state.
	Pause time.Duration

	// Night window. Entry fires when wall-clock hh:mm equals Sleep
	// exactly; the RTC alarm is armed for Wake.
	NightEnabled           bool
	SleepHour, SleepMinute uint8
	WakeHour, WakeMinute   uint8
}

func DefaultConfig() Config {
	return Config{
		CycleThreshold: 500,
		Pause:          time.Second,
		NightEnabled:   true,
		SleepHour:      21, SleepMinute: 0,
		WakeHour: 6, WakeMinute: 0,
	}
}

// Scheduler is the power-state machine. Single caller; not safe for
// concurrent use, by construction the main loop is the only mutator.
type Scheduler struct {
	cfg   Config
	ctrl  Controller
	clock types.Clock

	cycles uint32
	deep   bool // one-way for the life of the boot
	state  State

	clockFailed bool

	// Notify observes transitions; the orchestrator mirrors night
	// sleep/wake through the secondary-storage writer. May be nil.
	Notify func(from, to State, at types.Timestamp)

	// sleep is swappable for tests.
	sleep func(time.Duration)
}

func NewScheduler(ctrl Controller, clock types.Clock, cfg Config) *Scheduler {
	if cfg.CycleThreshold == 0 {
		cfg.CycleThreshold = DefaultConfig().CycleThreshold
	}
	if cfg.Pause <= 0 {
		cfg.Pause = DefaultConfig().Pause
	}
	return &Scheduler{
		cfg:   cfg,
		ctrl:  ctrl,
		clock: clock,
		state: Active,
		sleep: time.Sleep,
	}
}

func (s *Scheduler) State() State   { return s.state }
func (s *Scheduler) Cycles() uint32 { return s.cycles }

// Wait is called once per main-loop iteration, after the read attempt.
// It advances the cycle counter, enters night sleep when the wall
// clock says so, and otherwise pauses in the current mode.
func (s *Scheduler) Wait() error {
	s.cycles++
	if !s.deep && s.cycles >= s.cfg.CycleThreshold {
		s.transition(DeepSleepCycle)
		s.deep = true
	}

	now, ok := s.now()
	if ok && s.cfg.NightEnabled && now.Hour == s.cfg.SleepHour && now.Minute == s.cfg.SleepMinute {
		return s.nightSleep()
	}

	if s.deep {
		return s.deepCycle()
	}
	// Interactive mode: plain timed wait, serial stays up.
	s.sleep(s.cfg.Pause)
	return nil
}

// deepCycle re-arms the periodic wake timer, halts, and restores the
// interface on wake.
func (s *Scheduler) deepCycle() error {
	if err := s.ctrl.ArmPeriodic(s.cfg.Pause); err != nil {
		return err
	}
	if err := s.ctrl.EnterLowPower(); err != nil {
		return err
	}
	return s.ctrl.Resume()
}

// nightSleep arms the calendar alarm, halts until it fires, and
// returns to whichever mode was in effect.
func (s *Scheduler) nightSleep() error {
	prior := s.state
	s.transition(NightSleep)
	if err := s.clock.SetAlarm(s.cfg.WakeHour, s.cfg.WakeMinute); err != nil {
		// Without an alarm the halt would never end; stay awake.
		s.state = prior
		return err
	}
	if err := s.ctrl.EnterLowPower(); err != nil {
		s.state = prior
		return err
	}
	if err := s.ctrl.Resume(); err != nil {
		return err
	}
	s.transition(prior)
	return nil
}

func (s *Scheduler) transition(to State) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	if s.Notify != nil {
		now, _ := s.now()
		s.Notify(from, to, now)
	}
}

// now reads the RTC. A failing clock latches ClockFailed so the
// orchestrator can report it once; the scheduler carries on without
// night scheduling rather than halting.
func (s *Scheduler) now() (types.Timestamp, bool) {
	ts, err := s.clock.Now()
	if err != nil {
		s.clockFailed = true
		return types.Timestamp{}, false
	}
	s.clockFailed = false
	return ts, true
}

// ClockFailed reports whether the most recent RTC read failed.
func (s *Scheduler) ClockFailed() bool { return s.clockFailed }

// NopController is the host stand-in: no hardware to halt.
type NopController struct {
	Period time.Duration
}

func (c *NopController) ArmPeriodic(p time.Duration) error { c.Period = p; return nil }
func (c *NopController) EnterLowPower() error              { time.Sleep(c.Period); return nil }
func (c *NopController) Resume() error                     { return nil }
