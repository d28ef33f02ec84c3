package main

import (
	"encoding/json"
	"fmt"

	"zoomfilter"
)

// ============================================================================
// Events - inputs to the reducer
// ============================================================================
// Events come from input devices, IPC clients, the state websocket and the
// daemon's own ticker. Payload events carry no timestamps; the daemon loop
// stamps them with the monotonic clock via TimedEvent.
// ============================================================================

// Event is the input to the reducer.
type Event interface {
	eventMarker()
}

// Tick is emitted by the daemon loop once per rendered frame.
// Mono is the monotonic clock reading in nanoseconds.
type Tick struct {
	Mono uint64
}

func (Tick) eventMarker() {}

// TimedEvent wraps a payload event with the monotonic time it was received.
type TimedEvent struct {
	Event Event
	At    uint64
}

func (TimedEvent) eventMarker() {}

// ZoomIn is a zoom-in key press (Pressed=true) or release.
type ZoomIn struct {
	Pressed bool `json:"pressed"`
}

func (ZoomIn) eventMarker() {}

// ZoomOut is a zoom-out key press (Pressed=true) or release.
type ZoomOut struct {
	Pressed bool `json:"pressed"`
}

func (ZoomOut) eventMarker() {}

// ZoomReset drives the target scale back to 1.0.
type ZoomReset struct{}

func (ZoomReset) eventMarker() {}

// SetScale requests an absolute target scale.
type SetScale struct {
	Scale float64 `json:"scale"`
}

func (SetScale) eventMarker() {}

// SetTrackingMode switches the pointer tracking policy.
type SetTrackingMode struct {
	Mode string `json:"mode"` // "disabled", "realtime", "on_zoom_change"
}

func (SetTrackingMode) eventMarker() {}

// ReloadSettings re-reads the settings file and applies it.
type ReloadSettings struct{}

func (ReloadSettings) eventMarker() {}

// PointerMoved is relative pointer motion from an input device.
type PointerMoved struct {
	DX int32 `json:"dx"`
	DY int32 `json:"dy"`
}

func (PointerMoved) eventMarker() {}

// WheelStep is one scroll wheel detent: +1 zooms in, -1 zooms out.
type WheelStep struct {
	Direction int `json:"direction"`
}

func (WheelStep) eventMarker() {}

// SettingsLoaded carries a freshly loaded settings snapshot (effects -> reducer).
type SettingsLoaded struct {
	Settings zoomfilter.Settings
}

func (SettingsLoaded) eventMarker() {}

// CommandFailed is emitted when executing a Command fails.
type CommandFailed struct {
	Command Command
	Err     error
}

func (CommandFailed) eventMarker() {}

// RequestStateSnapshot asks the daemon for a coherent state snapshot.
// The reply is delivered by the effects layer; Reply should be buffered.
type RequestStateSnapshot struct {
	Reply chan StateSnapshot
}

func (RequestStateSnapshot) eventMarker() {}

// StateSnapshot is an externally consumable view of the daemon state.
type StateSnapshot struct {
	Scale        float64
	Target       float64
	Animating    bool
	TrackingMode string
	CenterX      float64
	CenterY      float64
	Width        uint32
	Height       uint32
}

// ============================================================================
// Wire codec
// ============================================================================
// Client events travel as {"type": "...", "data": {...}}. Only the events in
// wireDecoders can cross the wire; daemon-internal events (Tick,
// SettingsLoaded, snapshots) cannot.
// ============================================================================

// EventEnvelope is the JSON form of a client event.
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// wireEvent is an event with a wire name.
type wireEvent interface {
	Event
	wireType() string
}

func (ZoomIn) wireType() string          { return "zoom_in" }
func (ZoomOut) wireType() string         { return "zoom_out" }
func (ZoomReset) wireType() string       { return "zoom_reset" }
func (SetScale) wireType() string        { return "set_scale" }
func (SetTrackingMode) wireType() string { return "set_tracking_mode" }
func (PointerMoved) wireType() string    { return "pointer_moved" }
func (WheelStep) wireType() string       { return "wheel_step" }
func (ReloadSettings) wireType() string  { return "reload_settings" }

func (e SetTrackingMode) validate() error {
	_, err := zoomfilter.ParseTrackingMode(e.Mode)
	return err
}

func (e WheelStep) validate() error {
	if e.Direction != 1 && e.Direction != -1 {
		return fmt.Errorf("wheel_step direction must be 1 or -1, got %d", e.Direction)
	}
	return nil
}

type eventDecoder func(name string, data json.RawMessage) (Event, error)

var wireDecoders = map[string]eventDecoder{
	"zoom_in":           decodeAs[ZoomIn](false),
	"zoom_out":          decodeAs[ZoomOut](false),
	"zoom_reset":        decodeAs[ZoomReset](false),
	"set_scale":         decodeAs[SetScale](true),
	"set_tracking_mode": decodeAs[SetTrackingMode](true),
	"pointer_moved":     decodeAs[PointerMoved](true),
	"wheel_step":        decodeAs[WheelStep](true),
	"reload_settings":   decodeAs[ReloadSettings](false),
}

// decodeAs decodes the payload into T. Without required, a missing payload
// yields the zero value.
func decodeAs[T Event](required bool) eventDecoder {
	return func(name string, data json.RawMessage) (Event, error) {
		var v T
		if len(data) == 0 && !required {
			return v, nil
		}
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		if c, ok := any(v).(interface{ validate() error }); ok {
			if err := c.validate(); err != nil {
				return nil, err
			}
		}
		return v, nil
	}
}

// UnmarshalEvent decodes one envelope into its client event.
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	decode, ok := wireDecoders[env.Type]
	if !ok {
		return nil, fmt.Errorf("unknown event type: %q", env.Type)
	}
	return decode(env.Type, env.Data)
}

// MarshalEvent encodes a client event as an envelope. Events without fields
// are sent without data.
func MarshalEvent(e Event) ([]byte, error) {
	we, ok := e.(wireEvent)
	if !ok {
		return nil, fmt.Errorf("unsupported event type: %T", e)
	}

	env := EventEnvelope{Type: we.wireType()}
	data, err := json.Marshal(we)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", env.Type, err)
	}
	if string(data) != "{}" {
		env.Data = data
	}
	return json.Marshal(env)
}
