//go:build !linux

package main

import (
	"context"
	"fmt"
	"os"
)

// readInputEventsEpoll falls back to one blocking reader per file. Without
// evdev this only serves recorded event streams (files or FIFOs). Closing the
// files unblocks readers that are waiting for data.
func readInputEventsEpoll(ctx context.Context, files []*os.File, events chan<- inputEvent, readErr chan<- error) {
	if len(files) == 0 {
		reportReadErr(ctx, readErr, fmt.Errorf("no input devices provided"))
		return
	}
	for _, f := range files {
		go readInputEvents(ctx, f, events, readErr)
	}
}
