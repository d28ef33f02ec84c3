package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
)

// ============================================================================
// IPC socket
// ============================================================================
// zoom-ctl, scripts and hotkey daemons drive zoomd over a unix socket with
// line-delimited JSON. Each request line is an event envelope:
//
//	{"type": "zoom_in", "data": {"pressed": true}}
//
// and each gets one response line: {"status":"ok"} or
// {"status":"error","error":"..."}. A connection may carry any number of
// requests.
// ============================================================================

const ipcSocketMode = 0o660

// IPCResponse answers one request line.
type IPCResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

var ipcOK = IPCResponse{Status: "ok"}

func ipcError(format string, args ...any) IPCResponse {
	return IPCResponse{Status: "error", Error: fmt.Sprintf(format, args...)}
}

type ipcServer struct {
	events chan<- Event
	logger *slog.Logger
}

// runIPCServer serves the socket at socketPath until ctx is canceled. A stale
// socket file is replaced; the file is removed again on return.
func runIPCServer(ctx context.Context, socketPath string, events chan<- Event, logger *slog.Logger) error {
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer os.Remove(socketPath)
	defer ln.Close()

	if err := os.Chmod(socketPath, ipcSocketMode); err != nil {
		return fmt.Errorf("chmod socket: %w", err)
	}
	logger.Info("IPC listening", "socket", socketPath)

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	srv := &ipcServer{events: events, logger: logger}
	for {
		conn, err := ln.Accept()
		switch {
		case err == nil:
			go srv.serve(conn)
		case ctx.Err() != nil, errors.Is(err, net.ErrClosed):
			logger.Debug("IPC listener closed")
			return nil
		default:
			logger.Error("IPC accept error", "error", err)
		}
	}
}

// serve answers request lines from one client until it disconnects.
func (s *ipcServer) serve(conn net.Conn) {
	defer conn.Close()

	sc := bufio.NewScanner(conn)
	enc := json.NewEncoder(conn)
	for sc.Scan() {
		if err := enc.Encode(s.handle(sc.Bytes())); err != nil {
			s.logger.Debug("IPC write failed", "error", err)
			return
		}
	}
	if err := sc.Err(); err != nil {
		s.logger.Debug("IPC read failed", "error", err)
	}
}

// handle decodes one line and queues the event without blocking the client.
// The daemon stamps arrival time when it dequeues the event.
func (s *ipcServer) handle(line []byte) IPCResponse {
	ev, err := UnmarshalEvent(line)
	if err != nil {
		s.logger.Debug("IPC rejected line", "line", string(line), "error", err)
		return ipcError("parse event: %v", err)
	}

	select {
	case s.events <- ev:
		return ipcOK
	default:
		s.logger.Warn("IPC event dropped, queue full", "event", fmt.Sprintf("%T", ev))
		return ipcError("event queue full")
	}
}

// SendIPCEvent sends one event to a running daemon and waits for its answer.
func SendIPCEvent(socketPath string, ev Event) error {
	data, err := MarshalEvent(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	if _, err := conn.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("send event: %w", err)
	}

	var resp IPCResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != "ok" {
		return fmt.Errorf("ipc error: %s", resp.Error)
	}
	return nil
}
