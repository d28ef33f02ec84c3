package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// ============================================================================
// State WebSocket
// ============================================================================
// GET /ws/state streams zoom state to observers as JSON text frames:
//
//	{"type": "...", "ts": "RFC3339", "data": {...}}
//
// The first message is "state_init" with a full snapshot, requested through
// the daemon loop like any other event. After that, reducer broadcasts are
// converted to scale_changed, target_changed, center_changed and
// tracking_mode_changed messages. scale_changed arrives once per frame while
// animating, so it is coalesced (latest wins) to one message per
// wsScaleCoalesceWindow.
// ============================================================================

const (
	wsScaleCoalesceWindow = 50 * time.Millisecond
	wsSnapshotTimeout     = time.Second
)

// wsMessageSnapshot is the "state_init" payload.
type wsMessageSnapshot struct {
	Scale        float64 `json:"scale"`
	Target       float64 `json:"target"`
	Animating    bool    `json:"animating"`
	TrackingMode string  `json:"tracking_mode"`
	CenterX      float64 `json:"center_x"`
	CenterY      float64 `json:"center_y"`
	Width        uint32  `json:"width"`
	Height       uint32  `json:"height"`
}

type wsScaleChangedData struct {
	Scale float64 `json:"scale"`
}

type wsTargetChangedData struct {
	Target float64 `json:"target"`
}

type wsCenterChangedData struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type wsTrackingModeChangedData struct {
	Mode string `json:"mode"`
}

// wsMessage is one outbound message before it is stamped and encoded.
type wsMessage struct {
	Type string
	Data any
}

type envelope struct {
	Type string     `json:"type"`
	Ts   *time.Time `json:"ts,omitempty"`
	Data any        `json:"data,omitempty"`
}

func (m wsMessage) encode() ([]byte, error) {
	now := time.Now().UTC()
	return json.Marshal(envelope{Type: m.Type, Ts: &now, Data: m.Data})
}

func snapshotMessage(snap StateSnapshot) wsMessage {
	return wsMessage{
		Type: "state_init",
		Data: wsMessageSnapshot{
			Scale:        snap.Scale,
			Target:       snap.Target,
			Animating:    snap.Animating,
			TrackingMode: snap.TrackingMode,
			CenterX:      snap.CenterX,
			CenterY:      snap.CenterY,
			Width:        snap.Width,
			Height:       snap.Height,
		},
	}
}

// convertBroadcast maps a reducer broadcast to its websocket message.
func convertBroadcast(b StateBroadcast) (wsMessage, bool) {
	switch ev := b.(type) {
	case BroadcastScaleChanged:
		return wsMessage{Type: "scale_changed", Data: wsScaleChangedData{Scale: ev.Scale}}, true
	case BroadcastTargetChanged:
		return wsMessage{Type: "target_changed", Data: wsTargetChangedData{Target: ev.Target}}, true
	case BroadcastCenterChanged:
		return wsMessage{Type: "center_changed", Data: wsCenterChangedData{X: ev.X, Y: ev.Y}}, true
	case BroadcastTrackingModeChanged:
		return wsMessage{Type: "tracking_mode_changed", Data: wsTrackingModeChangedData{Mode: ev.Mode}}, true
	default:
		return wsMessage{}, false
	}
}

// ============================================================================
// Server
// ============================================================================

type ServerConfig struct {
	Hub HubConfig
}

type Server struct {
	logger *slog.Logger
	hub    *Hub

	// events carries snapshot requests to the daemon loop. nil skips state_init.
	events chan<- Event
}

// NewServer builds the websocket endpoint and its hub. The caller runs
// Hub().Run and RunBroadcaster.
func NewServer(logger *slog.Logger, events chan<- Event, cfg ServerConfig) *Server {
	return &Server{
		logger: logger,
		hub:    NewHub(logger, cfg.Hub),
		events: events,
	}
}

func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) Register(mux *http.ServeMux, path string) {
	if mux == nil {
		return
	}
	mux.HandleFunc(path, s.handleStateWS)
}

var upgrader = websocket.Upgrader{
	// Observers are local tools; any origin may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) handleStateWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "error", err)
		return
	}

	o := s.hub.newObserver(conn, r.RemoteAddr)
	if !s.hub.add(o) {
		o.close()
		return
	}

	// The loops outlive this handler; the hub and connection errors end them.
	go o.writeLoop()
	go o.readLoop()

	if s.events == nil {
		return
	}
	snap, ok := s.requestSnapshot(r.Context())
	if !ok {
		return
	}
	msg, err := snapshotMessage(snap).encode()
	if err != nil {
		s.logger.Warn("ws state_init encode failed", "error", err)
		return
	}

	s.hub.deliver(o, msg)
}

func (s *Server) requestSnapshot(ctx context.Context) (StateSnapshot, bool) {
	ctx, cancel := context.WithTimeout(ctx, wsSnapshotTimeout)
	defer cancel()

	reply := make(chan StateSnapshot, 1)
	select {
	case s.events <- RequestStateSnapshot{Reply: reply}:
	case <-ctx.Done():
		return StateSnapshot{}, false
	}

	select {
	case snap := <-reply:
		return snap, true
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			s.logger.Warn("ws snapshot request timed out")
		}
		return StateSnapshot{}, false
	}
}

// ============================================================================
// Broadcaster
// ============================================================================

// RunBroadcaster forwards reducer broadcasts from src to the hub until ctx is
// canceled or src is closed.
func RunBroadcaster(ctx context.Context, hub *Hub, src <-chan StateBroadcast, logger *slog.Logger) {
	if hub == nil || src == nil {
		return
	}
	b := &broadcaster{hub: hub, logger: logger}
	defer b.stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-b.due():
			b.timer = nil
			b.flush()

		case sb, ok := <-src:
			if !ok {
				logger.Info("ws broadcaster stopping (source closed)")
				return
			}
			msg, ok := convertBroadcast(sb)
			if !ok {
				continue
			}
			if msg.Type == "scale_changed" {
				b.pending = &msg
				if b.timer == nil {
					b.arm()
				}
				continue
			}
			// Keep ordering: the pending scale goes out before any other change,
			// and that send opens a fresh window.
			if b.pending != nil {
				b.flush()
				b.rearm()
			}
			b.send(msg)
		}
	}
}

// broadcaster holds the coalescing state of RunBroadcaster. A window opens
// with the first pending update or with a forced flush; later updates only
// replace the pending value.
type broadcaster struct {
	hub    *Hub
	logger *slog.Logger

	pending *wsMessage
	timer   *time.Timer
}

func (b *broadcaster) due() <-chan time.Time {
	if b.timer == nil {
		return nil
	}
	return b.timer.C
}

func (b *broadcaster) arm() {
	b.timer = time.NewTimer(wsScaleCoalesceWindow)
}

func (b *broadcaster) rearm() {
	if b.timer != nil {
		b.timer.Stop()
	}
	b.arm()
}

func (b *broadcaster) flush() {
	if b.pending == nil {
		return
	}
	msg := *b.pending
	b.pending = nil
	b.send(msg)
}

func (b *broadcaster) send(msg wsMessage) {
	data, err := msg.encode()
	if err != nil {
		b.logger.Warn("ws broadcast encode failed", "type", msg.Type, "error", err)
		return
	}
	b.hub.Publish(data)
}

// stop flushes whatever is pending and releases the timer.
func (b *broadcaster) stop() {
	b.flush()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
