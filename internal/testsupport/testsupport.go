// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"modwatch/internal/config"
	"modwatch/internal/profile"
)

// NewConfig returns a validated configuration rooted in a temp
// directory that is removed when the test finishes.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Workshop.BaseURL = "http://workshop.test"
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return cfg
}

// MustOpenStore opens a profile store against a temp config and closes
// it when the test finishes.
func MustOpenStore(t *testing.T, cfg *config.Config) *profile.Store {
	t.Helper()

	store, err := profile.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}
