package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestFormatMessage(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want []string
	}{
		{
			"state init",
			`{"type":"state_init","ts":"2024-05-01T10:00:00Z","data":{"scale":1.5,"target":2,"animating":true,"tracking_mode":"realtime","center_x":960,"center_y":540,"width":1920,"height":1080}}`,
			[]string{"state_init", "scale 1.50", "target 2.00 (animating)", "center 960,540", "tracking realtime", "1920x1080"},
		},
		{"scale", `{"type":"scale_changed","data":{"scale":1.25}}`, []string{"--:--:--.---", "scale_changed", "scale 1.25"}},
		{"target", `{"type":"target_changed","data":{"target":3}}`, []string{"target 3.00"}},
		{"center", `{"type":"center_changed","data":{"x":12,"y":34}}`, []string{"center 12,34"}},
		{"mode", `{"type":"tracking_mode_changed","data":{"mode":"on_zoom_change"}}`, []string{"tracking on_zoom_change"}},
		{"unknown type", `{"type":"pong","data":{"n":1}}`, []string{"pong", `{"n":1}`}},
		{"not json", `hello`, []string{"hello"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatMessage([]byte(tt.msg))
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Fatalf("expected %q in %q", w, got)
				}
			}
		})
	}
}

func TestWatch_PrintsUntilServerCloses(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"scale_changed","data":{"scale":1.25}}`))
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		// Wait for the client's close reply.
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var out bytes.Buffer
	err := watch(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), false, &out)
	if err == nil || err.Error() != "connection closed" {
		t.Fatalf("expected connection closed, got %v", err)
	}
	if !strings.Contains(out.String(), "scale 1.25") {
		t.Fatalf("expected scale line, got %q", out.String())
	}
}

func TestWatch_DialError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	err := watch(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"), true, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "connect") {
		t.Fatalf("expected connect error, got %v", err)
	}
}
