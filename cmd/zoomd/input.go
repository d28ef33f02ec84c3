package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// inputEvent represents a Linux input event structure
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// keyMap holds the key codes bound to the zoom hotkeys.
type keyMap struct {
	ZoomIn  uint16
	ZoomOut uint16
	Reset   uint16

	// Wheel enables scroll-wheel zoom (REL_WHEEL).
	Wheel bool
}

// translateInput maps a raw input event to a daemon Event.
//
// Key auto-repeat is ignored: hold repeat is driven by the controller from
// the press/release edges. Reset fires on key down only.
func translateInput(ev inputEvent, keys keyMap) (Event, bool) {
	switch ev.Type {
	case EV_KEY:
		if ev.Value == evValueRepeat {
			return nil, false
		}
		pressed := ev.Value == evValuePress

		switch ev.Code {
		case keys.ZoomIn:
			return ZoomIn{Pressed: pressed}, true
		case keys.ZoomOut:
			return ZoomOut{Pressed: pressed}, true
		case keys.Reset:
			if pressed {
				return ZoomReset{}, true
			}
		}

	case EV_REL:
		switch ev.Code {
		case REL_X:
			return PointerMoved{DX: ev.Value}, true
		case REL_Y:
			return PointerMoved{DY: ev.Value}, true
		case REL_WHEEL:
			if !keys.Wheel || ev.Value == 0 {
				return nil, false
			}
			if ev.Value > 0 {
				return WheelStep{Direction: 1}, true
			}
			return WheelStep{Direction: -1}, true
		}
	}
	return nil, false
}

// inputEventSize is sizeof(struct input_event) on 64-bit Linux.
const inputEventSize = 24

// decodeInputEvent parses one little-endian struct input_event.
func decodeInputEvent(b []byte) inputEvent {
	le := binary.LittleEndian
	return inputEvent{
		Sec:   int64(le.Uint64(b[0:8])),
		Usec:  int64(le.Uint64(b[8:16])),
		Type:  le.Uint16(b[16:18]),
		Code:  le.Uint16(b[18:20]),
		Value: int32(le.Uint32(b[20:24])),
	}
}

// readInputEvents forwards whole events from r until a read fails or ctx is
// canceled. A short trailing event is reported as io.ErrUnexpectedEOF. A read
// blocked in r only returns once r is closed.
func readInputEvents(ctx context.Context, r io.Reader, events chan<- inputEvent, readErr chan<- error) {
	buf := make([]byte, inputEventSize)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			reportReadErr(ctx, readErr, err)
			return
		}
		if !forwardInput(ctx, events, decodeInputEvent(buf)) {
			return
		}
	}
}

// forwardInput reports false once ctx is canceled.
func forwardInput(ctx context.Context, events chan<- inputEvent, ev inputEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func reportReadErr(ctx context.Context, readErr chan<- error, err error) {
	select {
	case readErr <- err:
	case <-ctx.Done():
	}
}

// runInputReader opens the given input devices and forwards translated
// events until ctx is canceled or a device fails.
func runInputReader(ctx context.Context, paths []string, keys keyMap, out chan<- Event, logger *slog.Logger) error {
	if len(paths) == 0 {
		return nil
	}

	files := make([]*os.File, 0, len(paths))
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return fmt.Errorf("open input device %s (run as root or add user to 'input' group): %w", p, err)
		}
		files = append(files, f)
	}

	// Cancel the readers on every return path, not only on shutdown.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	raw := make(chan inputEvent, 64)
	readErr := make(chan error, 1)
	go readInputEventsEpoll(ctx, files, raw, readErr)

	logger.Info("input devices opened", "devices", paths)

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-readErr:
			return fmt.Errorf("input reader stopped: %w", err)

		case ev := <-raw:
			e, ok := translateInput(ev, keys)
			if !ok {
				continue
			}
			select {
			case out <- e:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
