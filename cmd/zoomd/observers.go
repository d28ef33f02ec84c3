package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ============================================================================
// Observer hub
// ============================================================================
// The hub owns the set of connected state observers and fans serialized
// messages out to them. Every observer has its own bounded queue drained by a
// write loop, so a stalled observer never delays the others: when its queue
// is full at publish time it is dropped.
// ============================================================================

const (
	defaultObserverQueue = 32
	defaultPublishQueue  = 128

	observerWriteWait  = 5 * time.Second
	observerPongWait   = 30 * time.Second
	observerPingPeriod = 20 * time.Second
)

type HubConfig struct {
	// ObserverQueue is the per-observer outbound queue length.
	ObserverQueue int

	// PublishQueue is the hub's inbound queue length.
	PublishQueue int
}

type Hub struct {
	logger *slog.Logger
	queue  int

	publish chan []byte
	leave   chan *observer

	mu        sync.Mutex
	observers map[*observer]struct{}
	stopped   bool
}

// NewHub constructs a hub. Call Run(ctx) to start it.
func NewHub(logger *slog.Logger, cfg HubConfig) *Hub {
	if cfg.ObserverQueue <= 0 {
		cfg.ObserverQueue = defaultObserverQueue
	}
	if cfg.PublishQueue <= 0 {
		cfg.PublishQueue = defaultPublishQueue
	}
	return &Hub{
		logger:    logger,
		queue:     cfg.ObserverQueue,
		publish:   make(chan []byte, cfg.PublishQueue),
		leave:     make(chan *observer, 16),
		observers: make(map[*observer]struct{}),
	}
}

// Run serves leaves and publishes until ctx is canceled, then closes every
// observer.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("observer hub running")
	defer h.logger.Info("observer hub stopped")

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			all := h.observers
			h.observers = make(map[*observer]struct{})
			h.stopped = true
			h.mu.Unlock()
			for o := range all {
				o.close()
			}
			return

		case o := <-h.leave:
			h.drop(o, "closed")

		case msg := <-h.publish:
			h.fanOut(msg)
		}
	}
}

// add registers o. It reports false once the hub has stopped.
func (h *Hub) add(o *observer) bool {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return false
	}
	h.observers[o] = struct{}{}
	n := len(h.observers)
	h.mu.Unlock()

	h.logger.Info("observer joined", "remote_addr", o.addr, "observers", n)
	return true
}

func (h *Hub) fanOut(msg []byte) {
	var stalled []*observer

	h.mu.Lock()
	for o := range h.observers {
		select {
		case o.out <- msg:
		default:
			stalled = append(stalled, o)
		}
	}
	h.mu.Unlock()

	for _, o := range stalled {
		h.drop(o, "queue full")
	}
}

func (h *Hub) drop(o *observer, reason string) {
	h.mu.Lock()
	_, ok := h.observers[o]
	delete(h.observers, o)
	n := len(h.observers)
	h.mu.Unlock()

	if !ok {
		return
	}
	o.close()
	h.logger.Info("observer dropped", "remote_addr", o.addr, "reason", reason, "observers", n)
}

// deliver queues msg for a single observer. It reports false when the
// observer is gone or stalled; a stalled observer is dropped.
func (h *Hub) deliver(o *observer, msg []byte) bool {
	h.mu.Lock()
	_, ok := h.observers[o]
	if ok {
		select {
		case o.out <- msg:
		default:
			ok = false
		}
	}
	h.mu.Unlock()

	if !ok {
		h.drop(o, "queue full")
	}
	return ok
}

// Publish queues a serialized message for every observer. It never blocks;
// when the hub queue is full the message is dropped.
func (h *Hub) Publish(msg []byte) {
	select {
	case h.publish <- msg:
	default:
		h.logger.Warn("observer hub queue full, dropping message", "bytes", len(msg))
	}
}

// Len reports the number of connected observers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.observers)
}

// ============================================================================
// Observer
// ============================================================================

type observer struct {
	hub  *Hub
	conn *websocket.Conn // nil in tests
	out  chan []byte
	addr string

	closeOnce sync.Once
	closed    chan struct{}
}

func (h *Hub) newObserver(conn *websocket.Conn, addr string) *observer {
	return &observer{
		hub:    h,
		conn:   conn,
		out:    make(chan []byte, h.queue),
		addr:   addr,
		closed: make(chan struct{}),
	}
}

// close ends the write loop and the connection. Safe to call repeatedly.
func (o *observer) close() {
	o.closeOnce.Do(func() {
		close(o.closed)
		close(o.out)
		if o.conn != nil {
			_ = o.conn.Close()
		}
	})
}

// writeLoop drains the observer queue into the connection and keeps it alive
// with pings. It sends a close frame once the queue is closed.
func (o *observer) writeLoop() {
	ping := time.NewTicker(observerPingPeriod)
	defer ping.Stop()

	for {
		select {
		case msg, ok := <-o.out:
			_ = o.conn.SetWriteDeadline(time.Now().Add(observerWriteWait))
			if !ok {
				_ = o.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := o.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				o.logExit("write", err)
				return
			}

		case <-ping.C:
			_ = o.conn.SetWriteDeadline(time.Now().Add(observerWriteWait))
			if err := o.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				o.logExit("ping", err)
				return
			}
		}
	}
}

// readLoop discards inbound frames; it exists to process control frames and
// to notice the peer going away.
func (o *observer) readLoop() {
	_ = o.conn.SetReadDeadline(time.Now().Add(observerPongWait))
	o.conn.SetPongHandler(func(string) error {
		return o.conn.SetReadDeadline(time.Now().Add(observerPongWait))
	})

	for {
		if _, _, err := o.conn.ReadMessage(); err != nil {
			o.logExit("read", err)
			select {
			case o.hub.leave <- o:
			case <-o.closed:
			}
			return
		}
	}
}

func (o *observer) logExit(op string, err error) {
	if errors.Is(err, websocket.ErrCloseSent) {
		return
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		o.hub.logger.Info("observer connection closed", "remote_addr", o.addr, "op", op, "code", ce.Code, "reason", ce.Text)
		return
	}
	o.hub.logger.Debug("observer connection error", "remote_addr", o.addr, "op", op, "error", err)
}
