package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"modwatch/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, used, found, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if found {
		t.Fatalf("expected found=false for missing file")
	}
	if used != path {
		t.Fatalf("expected path %s, got %s", path, used)
	}
	if cfg.Scheduler.RequestFloorMS != 3500 {
		t.Fatalf("expected default request floor 3500, got %d", cfg.Scheduler.RequestFloorMS)
	}
	if cfg.Workshop.SearchMaxPages != 50 {
		t.Fatalf("expected default search_max_pages 50, got %d", cfg.Workshop.SearchMaxPages)
	}
}

func TestLoadAppliesOverridesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + dir + `/state"

[workshop]
base_url = "https://example.test/api/"
search_max_pages = 5

[scheduler]
max_retries = 2

[logging]
level = "DEBUG"
format = "json"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, found, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !found {
		t.Fatalf("expected found=true")
	}
	if cfg.Workshop.BaseURL != "https://example.test/api" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Workshop.BaseURL)
	}
	if cfg.Workshop.SearchMaxPages != 5 {
		t.Fatalf("expected search_max_pages 5, got %d", cfg.Workshop.SearchMaxPages)
	}
	if cfg.Scheduler.MaxRetries != 2 {
		t.Fatalf("expected max_retries 2, got %d", cfg.Scheduler.MaxRetries)
	}
	if cfg.Scheduler.InitialRetryMS != 6000 {
		t.Fatalf("expected default initial retry, got %d", cfg.Scheduler.InitialRetryMS)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected level lowered to debug, got %q", cfg.Logging.Level)
	}
	if !filepath.IsAbs(cfg.Paths.DataDir) {
		t.Fatalf("expected absolute data dir, got %q", cfg.Paths.DataDir)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "bad scheme",
			content: "[workshop]\nbase_url = \"ftp://example.test\"\n",
			want:    "scheme",
		},
		{
			name:    "bad level",
			content: "[logging]\nlevel = \"loud\"\n",
			want:    "logging.level",
		},
		{
			name:    "bad format",
			content: "[logging]\nformat = \"xml\"\n",
			want:    "logging.format",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[scheduler]") {
		t.Fatalf("sample missing scheduler section")
	}
	if err := config.CreateSample(path); err == nil {
		t.Fatalf("expected error writing over existing file")
	}
}
