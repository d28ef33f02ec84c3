package main

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func startTestIPCServer(t *testing.T, events chan Event) string {
	t.Helper()

	socketPath := filepath.Join(t.TempDir(), "zoomd.sock")
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- runIPCServer(ctx, socketPath, events, discardLogger()) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("runIPCServer: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Errorf("IPC server did not stop")
		}
	})

	waitUntil(t, time.Second, func() bool {
		conn, err := net.Dial("unix", socketPath)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, "IPC socket to accept connections")
	return socketPath
}

func TestIPC_SendEventDeliversToDaemon(t *testing.T) {
	events := make(chan Event, 4)
	socketPath := startTestIPCServer(t, events)

	if err := SendIPCEvent(socketPath, SetScale{Scale: 2.5}); err != nil {
		t.Fatalf("SendIPCEvent: %v", err)
	}

	select {
	case ev := <-events:
		if ev != (SetScale{Scale: 2.5}) {
			t.Fatalf("expected SetScale 2.5, got %#v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for event")
	}
}

func TestIPC_SocketPermissions(t *testing.T) {
	socketPath := startTestIPCServer(t, make(chan Event, 1))

	// The mode is set right after the socket is created.
	waitUntil(t, time.Second, func() bool {
		fi, err := os.Stat(socketPath)
		return err == nil && fi.Mode().Perm() == 0o660
	}, "socket mode 0660")
}

func TestIPC_MultipleLinesOnOneConnection(t *testing.T) {
	events := make(chan Event, 4)
	socketPath := startTestIPCServer(t, events)

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))

	lines := []string{
		`{"type":"zoom_in","data":{"pressed":true}}`,
		`{"type":"bogus"}`,
		`{"type":"zoom_in","data":{"pressed":false}}`,
	}
	r := bufio.NewReader(conn)
	var responses []IPCResponse
	for _, l := range lines {
		if _, err := conn.Write([]byte(l + "\n")); err != nil {
			t.Fatalf("write: %v", err)
		}
		b, err := r.ReadBytes('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var resp IPCResponse
		if err := json.Unmarshal(b, &resp); err != nil {
			t.Fatalf("unmarshal %s: %v", b, err)
		}
		responses = append(responses, resp)
	}

	if responses[0].Status != "ok" || responses[2].Status != "ok" {
		t.Fatalf("expected ok responses, got %+v", responses)
	}
	if responses[1].Status != "error" || !strings.Contains(responses[1].Error, "unknown event type") {
		t.Fatalf("expected unknown event error, got %+v", responses[1])
	}

	want := []Event{ZoomIn{Pressed: true}, ZoomIn{Pressed: false}}
	for i, w := range want {
		select {
		case ev := <-events:
			if ev != w {
				t.Fatalf("event %d: expected %#v, got %#v", i, w, ev)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for event %d", i)
		}
	}
}

func TestIPC_QueueFullIsReported(t *testing.T) {
	events := make(chan Event) // nobody reads
	socketPath := startTestIPCServer(t, events)

	err := SendIPCEvent(socketPath, ZoomReset{})
	if err == nil || !strings.Contains(err.Error(), "event queue full") {
		t.Fatalf("expected queue full error, got %v", err)
	}
}
