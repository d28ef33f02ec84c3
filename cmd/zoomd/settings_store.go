package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"zoomfilter"
)

// ============================================================================
// Settings store
// ============================================================================
// The settings store keeps the user's filter settings (the last zoom scale,
// tracking mode, ...) in a YAML file. Writes are kept in memory and flushed
// periodically, so holding a zoom key does not rewrite the file every frame.
//
// File format: a flat YAML mapping of settings keys, e.g.
//
//	scale_factor: 2.5
//	tracking_mode: 1
//	animation_time: 400
//
// The file holds only keys changed at runtime. Every other key follows the
// defaults the store was built with (the config file's filter section), so
// later config edits still apply.
// ============================================================================

type settingsStore struct {
	path   string
	logger *slog.Logger

	mu       sync.Mutex
	defaults zoomfilter.Settings
	// runtime holds the keys read from the file or changed since.
	runtime zoomfilter.Settings
	// pending names runtime keys not yet flushed.
	pending map[string]struct{}
}

// newSettingsStore creates a store backed by path. An empty path keeps
// settings in memory only.
func newSettingsStore(path string, defaults zoomfilter.Settings, logger *slog.Logger) *settingsStore {
	return &settingsStore{
		path:     path,
		logger:   logger,
		defaults: defaults.Clone(),
		runtime:  zoomfilter.Settings{},
		pending:  make(map[string]struct{}),
	}
}

func (s *settingsStore) Path() string { return s.path }

// Load reads the settings file and returns it merged over the defaults. A
// missing file is not an error. Unflushed changes survive a reload.
func (s *settingsStore) Load() (zoomfilter.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return s.mergedLocked(), nil
	}

	fromFile := zoomfilter.Settings{}
	b, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read settings file: %w", err)
	default:
		if err := yaml.Unmarshal(b, &fromFile); err != nil {
			return nil, fmt.Errorf("parse settings file: %w", err)
		}
		if fromFile == nil {
			fromFile = zoomfilter.Settings{}
		}
	}

	for k := range s.pending {
		fromFile[k] = s.runtime[k]
	}
	s.runtime = fromFile
	return s.mergedLocked(), nil
}

func (s *settingsStore) mergedLocked() zoomfilter.Settings {
	return s.defaults.Merge(s.runtime)
}

// Set stores a single key. The change reaches disk on the next Flush.
func (s *settingsStore) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.runtime[key]
	if !ok {
		current, ok = s.defaults[key]
	}
	if ok && current == value {
		return
	}
	s.runtime[key] = value
	s.pending[key] = struct{}{}
}

// SetScale stores the zoom target scale.
func (s *settingsStore) SetScale(scale float64) {
	s.Set(zoomfilter.KeyScaleFactor, scale)
}

// Snapshot returns the current settings: defaults with runtime keys on top.
func (s *settingsStore) Snapshot() zoomfilter.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mergedLocked()
}

// Dirty reports whether there are unflushed changes.
func (s *settingsStore) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) > 0
}

// Flush writes the runtime keys to disk using a temp file + rename.
func (s *settingsStore) Flush() error {
	s.mu.Lock()
	if len(s.pending) == 0 || s.path == "" {
		s.mu.Unlock()
		return nil
	}
	snapshot := s.runtime.Clone()
	flushed := s.pending
	s.pending = make(map[string]struct{})
	s.mu.Unlock()

	if err := writeSettingsFile(s.path, snapshot); err != nil {
		// Keep the keys pending so the next flush retries.
		s.mu.Lock()
		for k := range flushed {
			s.pending[k] = struct{}{}
		}
		s.mu.Unlock()
		return err
	}

	s.logger.Debug("settings flushed", "path", s.path, "keys", len(snapshot))
	return nil
}

// run flushes on every interval until ctx is canceled, then flushes once more.
func (s *settingsStore) run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Duration(defaultFlushIntervalMS) * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := s.Flush(); err != nil {
				return fmt.Errorf("final settings flush: %w", err)
			}
			return nil
		case <-ticker.C:
			if err := s.Flush(); err != nil {
				s.logger.Warn("settings flush failed", "error", err, "path", s.path)
			}
		}
	}
}

func writeSettingsFile(path string, settings zoomfilter.Settings) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any(settings)); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp settings file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp settings file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace settings file: %w", err)
	}
	return nil
}
