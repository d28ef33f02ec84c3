package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// ============================================================================
// zoom-ctl - Command-line IPC Client
// ============================================================================
// This tool sends events to the zoomd daemon via IPC.
//
// Usage:
//   zoom-ctl in [--hold 500ms]
//   zoom-ctl out [--hold 500ms]
//   zoom-ctl reset
//   zoom-ctl set 2.5
//   zoom-ctl tracking realtime
//   zoom-ctl reload
// ============================================================================

// Event payloads (duplicated from zoomd for a standalone binary)
type zoomKey struct {
	Pressed bool `json:"pressed"`
}

type setScale struct {
	Scale float64 `json:"scale"`
}

type setTrackingMode struct {
	Mode string `json:"mode"`
}

type wheelStep struct {
	Direction int `json:"direction"`
}

// EventEnvelope wraps events for JSON
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// IPCResponse represents the daemon's response
type IPCResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

var (
	flagSocket string
	flagHold   time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "zoom-ctl",
		Short: "zoom-ctl - control a running zoomd over its IPC socket",
		Long: `zoom-ctl sends zoom events to zoomd over a Unix domain socket.

A plain "in" or "out" is a key tap (press then release). With --hold the key
stays down for the given duration, so zoomd keeps stepping continuously.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&flagSocket, "socket", "/tmp/zoomd.sock", "Unix domain socket path")

	inCmd := &cobra.Command{
		Use:   "in",
		Short: "Zoom in one step (or continuously with --hold)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return tapKey("zoom_in", flagHold)
		},
	}
	outCmd := &cobra.Command{
		Use:   "out",
		Short: "Zoom out one step (or continuously with --hold)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return tapKey("zoom_out", flagHold)
		},
	}
	for _, c := range []*cobra.Command{inCmd, outCmd} {
		c.Flags().DurationVar(&flagHold, "hold", 0, "Keep the key pressed for this long (e.g. 500ms)")
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Zoom back to 1.0",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return send("zoom_reset", nil)
		},
	}

	setCmd := &cobra.Command{
		Use:   "set SCALE",
		Short: "Set an absolute zoom scale (1.0 to 5.0)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scale, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid scale: %w", err)
			}
			return send("set_scale", setScale{Scale: scale})
		},
	}

	trackingCmd := &cobra.Command{
		Use:       "tracking MODE",
		Short:     "Set the pointer tracking mode",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"disabled", "realtime", "on_zoom_change"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return send("set_tracking_mode", setTrackingMode{Mode: args[0]})
		},
	}

	wheelCmd := &cobra.Command{
		Use:   "wheel up|down",
		Short: "Send one scroll wheel detent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "up", "in":
				return send("wheel_step", wheelStep{Direction: 1})
			case "down", "out":
				return send("wheel_step", wheelStep{Direction: -1})
			default:
				return fmt.Errorf("wheel direction must be up or down, got %q", args[0])
			}
		},
	}

	reloadCmd := &cobra.Command{
		Use:   "reload",
		Short: "Re-read the settings file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return send("reload_settings", nil)
		},
	}

	rootCmd.AddCommand(inCmd, outCmd, resetCmd, setCmd, trackingCmd, wheelCmd, reloadCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// tapKey sends a press, waits hold, then sends the release.
func tapKey(eventType string, hold time.Duration) error {
	if err := send(eventType, zoomKey{Pressed: true}); err != nil {
		return err
	}
	if hold > 0 {
		time.Sleep(hold)
	}
	return send(eventType, zoomKey{Pressed: false})
}

func send(eventType string, payload any) error {
	env := EventEnvelope{Type: eventType}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", eventType, err)
		}
		env.Data = data
	}
	line, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	return sendLine(flagSocket, line)
}

func sendLine(socketPath string, line []byte) error {
	conn, err := net.DialTimeout("unix", socketPath, 2*time.Second)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	// Send event (line-delimited JSON)
	if _, err := fmt.Fprintf(conn, "%s\n", line); err != nil {
		return fmt.Errorf("send event: %w", err)
	}

	var response IPCResponse
	if err := json.NewDecoder(conn).Decode(&response); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if response.Status != "ok" {
		return fmt.Errorf("daemon error: %s", response.Error)
	}
	return nil
}
