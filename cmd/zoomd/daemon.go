package main

import (
	"context"
	"log/slog"
	"time"

	"zoomfilter"
)

// ============================================================================
// Daemon loop
// ============================================================================
// One goroutine owns DaemonState. It turns arrivals and frame ticks into
// events, reduces them, runs the resulting commands and feeds their
// observations back before taking the next arrival. The reducer never does
// I/O; runEffect is the only place that does.
// ============================================================================

type daemonLoop struct {
	state      *DaemonState
	clock      zoomfilter.Clock
	store      *settingsStore
	broadcasts chan<- StateBroadcast
	logger     *slog.Logger

	pending  []Event
	commands []Command
}

// runDaemon drives the loop at fps frames per second until ctx is canceled
// or events is closed.
func runDaemon(
	ctx context.Context,
	events <-chan Event,
	state *DaemonState,
	clock zoomfilter.Clock,
	store *settingsStore,
	broadcasts chan<- StateBroadcast,
	fps int,
	logger *slog.Logger,
) {
	if state == nil {
		logger.Error("daemon state is nil")
		return
	}
	if fps <= 0 {
		fps = defaultRenderFPS
	}

	d := &daemonLoop{
		state:      state,
		clock:      clock,
		store:      store,
		broadcasts: broadcasts,
		logger:     logger,
	}

	frame := time.NewTicker(time.Second / time.Duration(fps))
	defer frame.Stop()

	logger.Info("daemon running", "fps", fps)
	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping (context canceled)")
			return

		case ev, ok := <-events:
			if !ok {
				logger.Info("daemon stopping (events channel closed)")
				return
			}
			d.dispatch(d.stamp(ev))

		case <-frame.C:
			d.dispatch(Tick{Mono: clock.Now()})
		}
	}
}

// stamp wraps payload events with their arrival time. Internal events and
// events that already carry a time pass through.
func (d *daemonLoop) stamp(ev Event) Event {
	switch ev.(type) {
	case RequestStateSnapshot, SettingsLoaded, CommandFailed, Tick, TimedEvent:
		return ev
	default:
		return TimedEvent{Event: ev, At: d.clock.Now()}
	}
}

// dispatch reduces ev and everything it causes. Commands run in order; the
// events a command emits are reduced before the next command runs.
func (d *daemonLoop) dispatch(ev Event) {
	d.pending = append(d.pending, ev)
	d.reduceAll()

	for len(d.commands) > 0 {
		cmd := d.commands[0]
		d.commands = d.commands[1:]

		runEffect(d.store, cmd, d.logger, func(e Event) { d.pending = append(d.pending, e) })
		d.reduceAll()
	}
}

func (d *daemonLoop) reduceAll() {
	for len(d.pending) > 0 {
		ev := d.pending[0]
		d.pending = d.pending[1:]

		rr := Reduce(d.state, ev)
		if rr.State != nil {
			d.state = rr.State
		}
		d.commands = append(d.commands, rr.Commands...)
		d.publish(rr.Broadcasts)
	}
}

// publish forwards broadcasts without blocking the loop.
func (d *daemonLoop) publish(bs []StateBroadcast) {
	if d.broadcasts == nil {
		return
	}
	for _, b := range bs {
		select {
		case d.broadcasts <- b:
		default:
			d.logger.Debug("broadcast queue full, dropping", "broadcast", b)
		}
	}
}
