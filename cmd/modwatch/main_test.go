package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestConfig roots all paths in a temp directory so commands run
// against an isolated store.
func writeTestConfig(t *testing.T) string {
	t.Helper()

	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`
[paths]
data_dir = %q
log_dir = %q
`, filepath.Join(base, "data"), filepath.Join(base, "logs"))
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath
}

func runCommand(t *testing.T, configPath string, args ...string) string {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	if err := cmd.Execute(); err != nil {
		t.Fatalf("command %v failed: %v\noutput: %s", args, err, out.String())
	}
	return out.String()
}

func TestItemAddAndList(t *testing.T) {
	configPath := writeTestConfig(t)

	out := runCommand(t, configPath, "item", "add", "Winter Pack", "--id", "mod-1", "--original", "42")
	if !strings.Contains(out, "Tracking \"Winter Pack\"") {
		t.Fatalf("unexpected add output: %s", out)
	}

	out = runCommand(t, configPath, "item", "list")
	for _, fragment := range []string{"Winter Pack", "mod-1", "42", "never"} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("list output missing %q:\n%s", fragment, out)
		}
	}
}

func TestProfileLifecycle(t *testing.T) {
	configPath := writeTestConfig(t)

	out := runCommand(t, configPath, "profile", "create", "Studio")
	if !strings.Contains(out, "Created profile \"Studio\"") {
		t.Fatalf("unexpected create output: %s", out)
	}

	out = runCommand(t, configPath, "profile", "list")
	if !strings.Contains(out, "Studio") || !strings.Contains(out, "Default") {
		t.Fatalf("list output missing profiles:\n%s", out)
	}

	out = runCommand(t, configPath, "profile", "use", "Default")
	if !strings.Contains(out, "Active profile is now \"Default\"") {
		t.Fatalf("unexpected use output: %s", out)
	}
}

func TestDmcaToggleAndList(t *testing.T) {
	configPath := writeTestConfig(t)

	runCommand(t, configPath, "item", "add", "Winter Pack", "--id", "mod-1")
	out := runCommand(t, configPath, "dmca", "toggle", "500", "--identifier", "mod-1")
	if !strings.Contains(out, "added to the takedown list") {
		t.Fatalf("unexpected toggle output: %s", out)
	}

	out = runCommand(t, configPath, "dmca", "list")
	if !strings.Contains(out, "500") || !strings.Contains(out, "pending") {
		t.Fatalf("list output missing entry:\n%s", out)
	}

	out = runCommand(t, configPath, "dmca", "file", "500")
	if !strings.Contains(out, "Marked as filed") {
		t.Fatalf("unexpected file output: %s", out)
	}

	out = runCommand(t, configPath, "dmca", "notice", "500")
	if !strings.Contains(out, "Takedown request") || !strings.Contains(out, "mod-1") {
		t.Fatalf("notice output incomplete:\n%s", out)
	}
}

func TestSearchRequiresWorkshopConfig(t *testing.T) {
	configPath := writeTestConfig(t)

	runCommand(t, configPath, "item", "add", "Winter Pack", "--id", "mod-1")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--config", configPath, "search", "--all"})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "workshop.base_url") {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[workshop]") {
		t.Fatalf("sample missing workshop section:\n%s", data)
	}
}
