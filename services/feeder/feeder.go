// Package feeder is the orchestrator: the boot sequence and the main
// read-filter-log loop that the firmware spends its life in.
package feeder

import (
	"context"

	"github.com/Eli-S-Bridge/ETAG-V9.3/bus"
	"github.com/Eli-S-Bridge/ETAG-V9.3/services/mirror"
	"github.com/Eli-S-Bridge/ETAG-V9.3/services/power"
	"github.com/Eli-S-Bridge/ETAG-V9.3/services/taglog"
	"github.com/Eli-S-Bridge/ETAG-V9.3/types"
)

// Bus topics published by the service. Power state and parameters are
// retained so late subscribers see the current value.
var (
	TopicTagEvent   = bus.T("tag", "event")
	TopicTagRepeat  = bus.T("tag", "repeat")
	TopicPowerState = bus.T("power", "state")
	TopicParams     = bus.T("feeder", "params")
)

// Menu is the optional interactive surface polled between reads while
// the scheduler is still in its interactive mode.
type Menu interface {
	RunOnce(ctx context.Context) error
}

type Deps struct {
	Reader types.TagReader
	Flash  taglog.Flash
	Clock  types.Clock
	Mirror *mirror.Writer
	Sched  *power.Scheduler
	Menu   Menu

	// Conn publishes tag and power traffic; nil disables publication.
	Conn *bus.Connection

	// DedupWindow in seconds; zero selects the default.
	DedupWindow int32
}

// Service owns the long-lived loop state.
type Service struct {
	deps   Deps
	log    *taglog.Log
	dedup  *taglog.DedupFilter
	params taglog.Params

	stats Stats
}

// Stats are loop counters, read by the status command and tests.
type Stats struct {
	Reads     uint32
	Accepted  uint32
	Repeats   uint32
	LogErrors uint32
}

// New runs the boot sequence: parameter-page self-heal, scan-based
// cursor recovery, and the one-time secondary-storage probe. A failed
// probe degrades the session to flash-only logging; it is not fatal.
func New(deps Deps) (*Service, error) {
	params, _, err := taglog.EnsureParams(deps.Flash)
	if err != nil {
		return nil, err
	}
	log, err := taglog.Open(deps.Flash)
	if err != nil {
		return nil, err
	}
	s := &Service{
		deps:   deps,
		log:    log,
		dedup:  taglog.NewDedup(deps.DedupWindow),
		params: params,
	}
	if deps.Mirror != nil && !deps.Mirror.Probe() {
		s.params.Mode = types.ModeFlashOnly
	}
	if deps.Sched != nil {
		deps.Sched.Notify = s.onPowerTransition
	}
	s.publishRetained(TopicParams, s.params)
	return s, nil
}

// SetMenu attaches the interactive surface. The console needs the
// recovered log and healed parameters, so it is built after New.
func (s *Service) SetMenu(m Menu) { s.deps.Menu = m }

func (s *Service) Log() *taglog.Log       { return s.log }
func (s *Service) Params() *taglog.Params { return &s.params }
func (s *Service) Stats() Stats           { return s.stats }

// Run is the main loop. Each iteration polls the menu (interactive
// mode only), attempts one tag read, and hands the wait to the power
// scheduler. It returns when ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.deps.Menu != nil && s.deps.Sched != nil && s.deps.Sched.State() == power.Active {
			if err := s.deps.Menu.RunOnce(ctx); err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
		}
		s.Step()
		if s.deps.Sched != nil {
			if err := s.deps.Sched.Wait(); err != nil {
				// A failed halt leaves us awake; keep reading.
				continue
			}
		}
	}
}

// Step performs one read attempt and routes the result. Split from Run
// so tests can drive the loop without a scheduler.
func (s *Service) Step() {
	s.stats.Reads++
	ev, ok, err := s.deps.Reader.ReadTag()
	if err != nil || !ok {
		return
	}
	if !s.dedup.Accept(ev) {
		s.stats.Repeats++
		s.publish(TopicTagRepeat, ev)
		return
	}
	if err := s.log.Append(ev); err != nil {
		s.stats.LogErrors++
		return
	}
	s.stats.Accepted++
	if s.params.Mode == types.ModeFull && s.deps.Mirror != nil {
		// Best effort; the flash copy is the durable one.
		_ = s.deps.Mirror.LogEvent(ev)
	}
	s.publish(TopicTagEvent, ev)
}

// onPowerTransition mirrors sleep and wake markers to secondary
// storage and publishes the new state.
func (s *Service) onPowerTransition(from, to power.State, at types.Timestamp) {
	s.publishRetained(TopicPowerState, to.String())
	if s.deps.Mirror == nil || s.params.Mode != types.ModeFull {
		return
	}
	switch {
	case to == power.NightSleep:
		_ = s.deps.Mirror.Note("sleep " + clockNote(at))
	case from == power.NightSleep:
		_ = s.deps.Mirror.Note("wake " + clockNote(at))
	}
}

func clockNote(at types.Timestamp) string {
	ev := types.TagEvent{TS: at}
	line := mirror.FormatEventLine(ev)
	// Reuse the event formatter's trailing date-time field.
	const dateStart = len("0000000000, 0, ")
	if len(line) > dateStart {
		return line[dateStart:]
	}
	return line
}

func (s *Service) publish(topic bus.Topic, payload any) {
	if s.deps.Conn == nil {
		return
	}
	s.deps.Conn.Publish(s.deps.Conn.NewMessage(topic, payload, false))
}

func (s *Service) publishRetained(topic bus.Topic, payload any) {
	if s.deps.Conn == nil {
		return
	}
	s.deps.Conn.Publish(s.deps.Conn.NewMessage(topic, payload, true))
}
