package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"zoomfilter"
)

func readSettingsFile(t *testing.T, path string) map[string]any {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read settings file: %v", err)
	}
	var m map[string]any
	if err := yaml.Unmarshal(b, &m); err != nil {
		t.Fatalf("parse settings file: %v", err)
	}
	return m
}

func TestSettingsStore_LoadMissingFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	defaults := zoomfilter.DefaultSettings().Merge(zoomfilter.Settings{zoomfilter.KeyScaleFactor: 1.5})
	store := newSettingsStore(path, defaults, discardLogger())

	s, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Float(zoomfilter.KeyScaleFactor, 0) != 1.5 {
		t.Fatalf("expected default scale 1.5, got %v", s[zoomfilter.KeyScaleFactor])
	}
	if store.Dirty() {
		t.Fatalf("expected clean store after load")
	}
}

func TestSettingsStore_LoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	content := "scale_factor: 3\ntracking_mode: 2\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	store := newSettingsStore(path, zoomfilter.DefaultSettings(), discardLogger())

	s, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := s.Config()
	if cfg.ScaleFactor != 3 {
		t.Fatalf("expected scale 3, got %v", cfg.ScaleFactor)
	}
	if cfg.Tracking.Mode != zoomfilter.TrackingOnZoomChange {
		t.Fatalf("expected on_zoom_change, got %v", cfg.Tracking.Mode)
	}
	if cfg.Smoothing.Duration != zoomfilter.Milliseconds(400) {
		t.Fatalf("expected default animation time, got %d", cfg.Smoothing.Duration)
	}
}

func TestSettingsStore_SetIsDirtyUntilFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")
	store := newSettingsStore(path, zoomfilter.DefaultSettings(), discardLogger())

	store.SetScale(zoomfilter.DefaultSettings().Float(zoomfilter.KeyScaleFactor, 1))
	if store.Dirty() {
		t.Fatalf("setting an unchanged value must not mark the store dirty")
	}

	store.SetScale(2.2)
	if !store.Dirty() {
		t.Fatalf("expected dirty store after SetScale")
	}

	if err := store.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if store.Dirty() {
		t.Fatalf("expected clean store after Flush")
	}

	m := readSettingsFile(t, path)
	if m[zoomfilter.KeyScaleFactor] != 2.2 {
		t.Fatalf("expected scale_factor 2.2 on disk, got %v", m[zoomfilter.KeyScaleFactor])
	}

	// No leftover temp files.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only settings.yaml, got %d entries", len(entries))
	}
}

func TestSettingsStore_FlushedFileLoadsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	store := newSettingsStore(path, zoomfilter.DefaultSettings(), discardLogger())
	store.SetScale(4)
	store.Set(zoomfilter.KeyTrackingMode, int(zoomfilter.TrackingRealtime))
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	reopened := newSettingsStore(path, zoomfilter.DefaultSettings(), discardLogger())
	s, err := reopened.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := s.Config()
	if cfg.ScaleFactor != 4 || cfg.Tracking.Mode != zoomfilter.TrackingRealtime {
		t.Fatalf("unexpected reloaded config: scale=%v mode=%v", cfg.ScaleFactor, cfg.Tracking.Mode)
	}
}

func TestSettingsStore_InMemoryNeverWrites(t *testing.T) {
	store := newSettingsStore("", zoomfilter.DefaultSettings(), discardLogger())
	store.SetScale(2)
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	s, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s[zoomfilter.KeyScaleFactor] != 2.0 {
		t.Fatalf("expected in-memory scale 2, got %v", s[zoomfilter.KeyScaleFactor])
	}
}

func TestSettingsStore_RunFlushesOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	store := newSettingsStore(path, zoomfilter.DefaultSettings(), discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- store.run(ctx, time.Hour) }()

	store.SetScale(1.8)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not return after cancel")
	}

	if m := readSettingsFile(t, path); m[zoomfilter.KeyScaleFactor] != 1.8 {
		t.Fatalf("expected scale_factor 1.8 on disk, got %v", m[zoomfilter.KeyScaleFactor])
	}
}

func TestSettingsStore_RunFlushesPeriodically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	store := newSettingsStore(path, zoomfilter.DefaultSettings(), discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = store.run(ctx, 10*time.Millisecond) }()

	store.SetScale(2.6)
	waitUntil(t, time.Second, func() bool {
		_, err := os.Stat(path)
		return err == nil && !store.Dirty()
	}, "periodic flush")
}

func TestSettingsStore_UnchangedKeysFollowNewDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	store := newSettingsStore(path, zoomfilter.DefaultSettings(), discardLogger())
	store.SetScale(2)
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if m := readSettingsFile(t, path); len(m) != 1 {
		t.Fatalf("expected only runtime keys on disk, got %v", m)
	}

	// The config file changed between runs.
	edited := zoomfilter.DefaultSettings().Merge(zoomfilter.Settings{
		zoomfilter.KeyAnimationTime: 100,
		zoomfilter.KeyScaleFactor:   3.0,
	})
	reopened := newSettingsStore(path, edited, discardLogger())
	s, err := reopened.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := s.Config()
	if cfg.Smoothing.Duration != zoomfilter.Milliseconds(100) {
		t.Fatalf("expected animation time from config, got %d", cfg.Smoothing.Duration)
	}
	if cfg.ScaleFactor != 2 {
		t.Fatalf("expected persisted scale 2, got %v", cfg.ScaleFactor)
	}
}

func TestSettingsStore_ReloadKeepsUnflushedChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("scale_factor: 1.5\nsmoothness: 0.3\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	store := newSettingsStore(path, zoomfilter.DefaultSettings(), discardLogger())
	if _, err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	store.SetScale(2.5)
	s, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v := s.Float(zoomfilter.KeyScaleFactor, 0); v != 2.5 {
		t.Fatalf("expected pending scale 2.5 after reload, got %v", v)
	}
	if v := s.Float(zoomfilter.KeySmoothness, 0); v != 0.3 {
		t.Fatalf("expected smoothness 0.3 from file, got %v", v)
	}
	if !store.Dirty() {
		t.Fatalf("expected pending change to stay dirty")
	}

	if err := store.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	m := readSettingsFile(t, path)
	if m[zoomfilter.KeyScaleFactor] != 2.5 || m[zoomfilter.KeySmoothness] != 0.3 {
		t.Fatalf("unexpected file after flush: %v", m)
	}
}
