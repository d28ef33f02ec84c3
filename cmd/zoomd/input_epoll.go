//go:build linux

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// deviceSet multiplexes evdev devices on one epoll instance so a single
// goroutine serves the keyboard and the mouse. An eventfd in the same set
// wakes the reader on shutdown.
type deviceSet struct {
	epfd    int
	wakefd  int
	devices map[int32]*os.File

	mu     sync.Mutex
	closed bool
}

func newDeviceSet(files []*os.File) (*deviceSet, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	ds := &deviceSet{epfd: epfd, wakefd: wakefd, devices: make(map[int32]*os.File, len(files))}

	if err := ds.watch(int32(wakefd)); err != nil {
		ds.close()
		return nil, fmt.Errorf("watch wake fd: %w", err)
	}
	for _, f := range files {
		fd := int32(f.Fd())
		if err := ds.watch(fd); err != nil {
			ds.close()
			return nil, fmt.Errorf("watch %s: %w", f.Name(), err)
		}
		ds.devices[fd] = f
	}
	return ds, nil
}

func (ds *deviceSet) watch(fd int32) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: fd}
	return unix.EpollCtl(ds.epfd, unix.EPOLL_CTL_ADD, int(fd), &ev)
}

// wake interrupts a pending wait. It is a no-op once the set is closed, so
// a late wake never writes to a reused descriptor.
func (ds *deviceSet) wake() {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.closed {
		return
	}
	var one [8]byte
	one[0] = 1
	_, _ = unix.Write(ds.wakefd, one[:])
}

func (ds *deviceSet) close() {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.closed {
		return
	}
	ds.closed = true
	_ = unix.Close(ds.wakefd)
	_ = unix.Close(ds.epfd)
}

// remove stops watching a device that hung up. The file stays open; the
// caller owns it.
func (ds *deviceSet) remove(fd int32) {
	_ = unix.EpollCtl(ds.epfd, unix.EPOLL_CTL_DEL, int(fd), nil)
	delete(ds.devices, fd)
}

// readInputEventsEpoll forwards events from every device until all of them
// are gone, a read fails or ctx is canceled. An unplugged device is dropped
// from the set.
func readInputEventsEpoll(ctx context.Context, files []*os.File, events chan<- inputEvent, readErr chan<- error) {
	if len(files) == 0 {
		reportReadErr(ctx, readErr, errors.New("no input devices provided"))
		return
	}
	ds, err := newDeviceSet(files)
	if err != nil {
		reportReadErr(ctx, readErr, err)
		return
	}
	defer ds.close()

	stop := context.AfterFunc(ctx, ds.wake)
	defer stop()

	ready := make([]unix.EpollEvent, 16)
	// evdev returns whole events; one read may carry several.
	buf := make([]byte, inputEventSize*64)

	for len(ds.devices) > 0 {
		n, err := unix.EpollWait(ds.epfd, ready, -1)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			reportReadErr(ctx, readErr, fmt.Errorf("epoll_wait: %w", err))
			return
		}

		for _, r := range ready[:n] {
			if r.Fd == int32(ds.wakefd) {
				return
			}
			f, ok := ds.devices[r.Fd]
			if !ok {
				continue
			}
			if r.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
				ds.remove(r.Fd)
				continue
			}

			m, err := f.Read(buf)
			if err != nil {
				reportReadErr(ctx, readErr, fmt.Errorf("read %s: %w", f.Name(), err))
				return
			}
			for off := 0; off+inputEventSize <= m; off += inputEventSize {
				if !forwardInput(ctx, events, decodeInputEvent(buf[off:off+inputEventSize])) {
					return
				}
			}
		}
	}
	reportReadErr(ctx, readErr, errors.New("all input devices disconnected"))
}
