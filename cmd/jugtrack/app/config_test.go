package app

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/jugvid/jugtrack/internal/watch"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
settings:
  logLevel: debug
camera:
  index: 2
  enabled: true
watches:
  - name: left
    ip: 192.168.1.10
  - name: right
    ip: 192.168.1.11
    streamPort: 9001
    controlPort: 9000
session:
  outputDir: captures
  indexDB: index.sqlite
  jpegQuality: 90
calibration:
  stdMultiplier: 2.5
pose:
  backend: none
`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}

	if config.Settings.LogLevel != slog.LevelDebug {
		t.Errorf("log level: got %v", config.Settings.LogLevel)
	}
	if !config.Camera.Enabled || config.Camera.Index != 2 {
		t.Errorf("camera: got %+v", config.Camera)
	}

	if len(config.Watches) != 2 {
		t.Fatalf("expected 2 watches, got %d", len(config.Watches))
	}
	left := config.Watches[0]
	if left.StreamPort != watch.DefaultStreamPort || left.ControlPort != watch.DefaultControlPort {
		t.Errorf("default ports not applied: %+v", left)
	}
	right := config.Watches[1]
	if right.StreamPort != 9001 || right.ControlPort != 9000 {
		t.Errorf("explicit ports lost: %+v", right)
	}

	if config.Session.OutputDir != "captures" || config.Session.JPEGQuality != 90 {
		t.Errorf("session: got %+v", config.Session)
	}
	if config.Calibration.ProfileDir != "captures" {
		t.Errorf("profile dir should default to output dir, got %q", config.Calibration.ProfileDir)
	}
	if config.Calibration.StdMultiplier != 2.5 {
		t.Errorf("stdMultiplier: got %f", config.Calibration.StdMultiplier)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
watches:
  - name: left
    ip: 192.168.1.10
`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}

	if config.Settings.LogLevel != slog.LevelInfo {
		t.Errorf("default log level: got %v", config.Settings.LogLevel)
	}
	if config.Session.OutputDir != "data" {
		t.Errorf("default output dir: got %q", config.Session.OutputDir)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			"no watches",
			`settings: {logLevel: info}`,
		},
		{
			"missing watch name",
			"watches:\n  - ip: 192.168.1.10",
		},
		{
			"missing watch ip",
			"watches:\n  - name: left",
		},
		{
			"duplicate watch name",
			"watches:\n  - {name: left, ip: 192.168.1.10}\n  - {name: left, ip: 192.168.1.11}",
		},
		{
			"bad log level",
			"settings: {logLevel: loud}\nwatches:\n  - {name: left, ip: 192.168.1.10}",
		},
		{
			"bad jpeg quality",
			"watches:\n  - {name: left, ip: 192.168.1.10}\nsession: {jpegQuality: 150}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tt.content)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error")
	}
}
