package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"
)

var (
	tsStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	typeStyle   = lipgloss.NewStyle().Bold(true).Width(22)
	scaleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00CC33"))
	targetStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFCC00"))
	centerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#33AAFF"))
	modeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF66CC"))
	rawStyle    = lipgloss.NewStyle().Faint(true)
)

// message mirrors zoomd's websocket envelope.
type message struct {
	Type string          `json:"type"`
	Ts   *time.Time      `json:"ts,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

type stateData struct {
	Scale        float64 `json:"scale"`
	Target       float64 `json:"target"`
	Animating    bool    `json:"animating"`
	TrackingMode string  `json:"tracking_mode"`
	CenterX      float64 `json:"center_x"`
	CenterY      float64 `json:"center_y"`
	Width        uint32  `json:"width"`
	Height       uint32  `json:"height"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Mode         string  `json:"mode"`
}

func main() {
	var (
		wsURL = flag.String("ws", "ws://127.0.0.1:3001/ws/state", "zoomd state websocket URL")
		raw   = flag.Bool("raw", false, "Print raw JSON messages")
		retry = flag.Duration("retry", 2*time.Second, "Reconnect delay after the daemon goes away (0 exits instead)")
	)
	flag.Parse()

	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		err := watch(ctx, u.String(), *raw, os.Stdout)
		if ctx.Err() != nil {
			return
		}
		if *retry <= 0 {
			if err != nil {
				log.Fatal(err)
			}
			return
		}
		log.Printf("%v; reconnecting in %s", err, *retry)
		select {
		case <-ctx.Done():
			return
		case <-time.After(*retry):
		}
	}
}

// watch prints state messages from one connection until it drops or ctx is
// canceled.
func watch(ctx context.Context, wsURL string, raw bool, out io.Writer) error {
	d := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := d.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", wsURL, err)
	}
	defer conn.Close()
	log.Printf("connected to %s (Ctrl+C to exit)", wsURL)

	// zoomd pings periodically; gorilla answers them from the read loop.
	closed := make(chan struct{})
	defer close(closed)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-closed:
		}
	}()

	for {
		typ, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return fmt.Errorf("connection closed")
			}
			return fmt.Errorf("read: %w", err)
		}
		if typ != websocket.TextMessage {
			continue
		}
		if raw {
			fmt.Fprintln(out, string(msg))
		} else {
			fmt.Fprintln(out, formatMessage(msg))
		}
	}
}

// formatMessage renders one state message as a single styled line.
func formatMessage(b []byte) string {
	var m message
	if err := json.Unmarshal(b, &m); err != nil {
		return rawStyle.Render(string(b))
	}

	var d stateData
	if len(m.Data) > 0 {
		if err := json.Unmarshal(m.Data, &d); err != nil {
			return rawStyle.Render(string(b))
		}
	}

	ts := "--:--:--.---"
	if m.Ts != nil {
		ts = m.Ts.Local().Format("15:04:05.000")
	}

	var body string
	switch m.Type {
	case "state_init":
		anim := ""
		if d.Animating {
			anim = " (animating)"
		}
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			scaleStyle.Render(fmt.Sprintf("scale %.2f", d.Scale)), "  ",
			targetStyle.Render(fmt.Sprintf("target %.2f%s", d.Target, anim)), "  ",
			centerStyle.Render(fmt.Sprintf("center %.0f,%.0f", d.CenterX, d.CenterY)), "  ",
			modeStyle.Render("tracking "+d.TrackingMode), "  ",
			rawStyle.Render(fmt.Sprintf("%dx%d", d.Width, d.Height)),
		)
	case "scale_changed":
		body = scaleStyle.Render(fmt.Sprintf("scale %.2f", d.Scale))
	case "target_changed":
		body = targetStyle.Render(fmt.Sprintf("target %.2f", d.Target))
	case "center_changed":
		body = centerStyle.Render(fmt.Sprintf("center %.0f,%.0f", d.X, d.Y))
	case "tracking_mode_changed":
		body = modeStyle.Render("tracking " + d.Mode)
	default:
		body = rawStyle.Render(string(m.Data))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		tsStyle.Render(ts), " ",
		typeStyle.Render(m.Type),
		body,
	)
}
