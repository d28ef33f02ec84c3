package main

import (
	"maps"
	"math"
	"slices"

	"zoomfilter"
)

// This file implements the reducer-style daemon brain:
//
//   - Events: inputs to the reducer (key input, IPC requests, frame ticks, effect results)
//   - Commands: side effects requested by the reducer (settings store I/O, snapshot replies)
//   - Broadcasts: state changes for websocket observers
//
// The reducer performs no I/O. It drives the zoom filter, which is owned by
// DaemonState, and turns the filter's persist callbacks into Commands.

// ==============================
// Broadcasts
// ==============================

// StateBroadcast is a state change to publish to observers.
type StateBroadcast interface {
	broadcastMarker()
}

// BroadcastScaleChanged reports the rendered scale (rounded to 0.01).
type BroadcastScaleChanged struct {
	Scale float64
}

func (BroadcastScaleChanged) broadcastMarker() {}

// BroadcastTargetChanged reports a new target scale.
type BroadcastTargetChanged struct {
	Target float64
}

func (BroadcastTargetChanged) broadcastMarker() {}

// BroadcastCenterChanged reports the zoom centre in frame pixels (rounded).
type BroadcastCenterChanged struct {
	X, Y float64
}

func (BroadcastCenterChanged) broadcastMarker() {}

// BroadcastTrackingModeChanged reports a tracking mode switch.
type BroadcastTrackingModeChanged struct {
	Mode string
}

func (BroadcastTrackingModeChanged) broadcastMarker() {}

// ==============================
// Reducer input/output
// ==============================

// ReduceResult is the output of Reduce(): next state, Commands to execute and
// Broadcasts to publish.
type ReduceResult struct {
	State      *DaemonState
	Commands   []Command
	Broadcasts []StateBroadcast
}

// Reduce applies one event to the daemon state.
//
// Rules:
// - Must not perform I/O
// - Must not block
func Reduce(s *DaemonState, e Event) ReduceResult {
	var cmds []Command

	switch ev := e.(type) {
	case Tick:
		s.Now = ev.Mono
		s.Filter.Render(ev.Mono)

	case TimedEvent:
		if ev.At > s.Now {
			s.Now = ev.At
		}
		cmds = append(cmds, reduceInput(s, ev.Event, ev.At)...)

	case SettingsLoaded:
		s.Filter.Update(ev.Settings, s.Now)

	case RequestStateSnapshot:
		cmds = append(cmds, CmdPublishStateSnapshot{Reply: ev.Reply, Snapshot: s.Snapshot()})

	case CommandFailed:
		// Keep state as-is; the effects layer already logged the failure.

	default:
		// Payload events that arrive without a timestamp are applied at the
		// latest known time.
		cmds = append(cmds, reduceInput(s, e, s.Now)...)
	}

	cmds = append(cmds, flushIntents(s)...)

	return ReduceResult{
		State:      s,
		Commands:   cmds,
		Broadcasts: publish(s),
	}
}

func reduceInput(s *DaemonState, e Event, at uint64) []Command {
	switch ev := e.(type) {
	case ZoomIn:
		s.Filter.ZoomIn(ev.Pressed, at)

	case ZoomOut:
		s.Filter.ZoomOut(ev.Pressed, at)

	case ZoomReset:
		s.Filter.Reset(at)

	case SetScale:
		s.Filter.SetScale(ev.Scale, at)

	case SetTrackingMode:
		mode, err := zoomfilter.ParseTrackingMode(ev.Mode)
		if err != nil {
			return nil
		}
		s.Filter.SetTrackingMode(mode)
		s.persistKey(zoomfilter.KeyTrackingMode, int(mode))

	case PointerMoved:
		s.Pointer.Move(ev.DX, ev.DY)

	case WheelStep:
		s.Filter.Nudge(s.Wheel.clicks(ev.Direction, at), at)

	case ReloadSettings:
		return []Command{CmdLoadSettings{}}

	case RequestStateSnapshot:
		return []Command{CmdPublishStateSnapshot{Reply: ev.Reply, Snapshot: s.Snapshot()}}
	}
	return nil
}

// flushIntents turns pending intents into commands (coalesced latest-wins).
func flushIntents(s *DaemonState) []Command {
	var cmds []Command
	if s.Intent.PersistScale != nil {
		cmds = append(cmds, CmdPersistScale{Scale: *s.Intent.PersistScale})
		s.Intent.PersistScale = nil
	}
	if len(s.Intent.PersistKeys) > 0 {
		for _, k := range slices.Sorted(maps.Keys(s.Intent.PersistKeys)) {
			cmds = append(cmds, CmdPersistSettings{Key: k, Value: s.Intent.PersistKeys[k]})
		}
		s.Intent.PersistKeys = nil
	}
	return cmds
}

// publish compares the current state with what observers last saw.
func publish(s *DaemonState) []StateBroadcast {
	var out []StateBroadcast

	st := s.Filter.Snapshot(s.Now)
	p := &s.Published

	target := roundTo(st.Target, broadcastScaleStep)
	mode := st.TrackingMode.String()

	if !p.Known || target != p.Target {
		p.Target = target
		out = append(out, BroadcastTargetChanged{Target: target})
	}
	if !p.Known || mode != p.TrackingMode {
		p.TrackingMode = mode
		out = append(out, BroadcastTrackingModeChanged{Mode: mode})
	}
	p.Known = true

	if s.FrameKnown {
		scale := roundTo(s.Frame.Scale, broadcastScaleStep)
		cx := roundTo(s.Frame.CenterX, broadcastCenterStep)
		cy := roundTo(s.Frame.CenterY, broadcastCenterStep)

		if !p.FrameKnown || scale != p.Scale {
			p.Scale = scale
			out = append(out, BroadcastScaleChanged{Scale: scale})
		}
		if !p.FrameKnown || cx != p.CenterX || cy != p.CenterY {
			p.CenterX, p.CenterY = cx, cy
			out = append(out, BroadcastCenterChanged{X: cx, Y: cy})
		}
		p.FrameKnown = true
	}

	return out
}

func roundTo(v, step float64) float64 {
	inv := 1 / step
	return math.Round(v*inv) / inv
}
