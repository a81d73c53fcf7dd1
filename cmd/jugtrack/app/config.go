package app

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jugvid/jugtrack/internal/watch"
)

// Config represents the main application configuration
type Config struct {
	Settings    Settings          `yaml:"settings"`
	Camera      CameraConfig      `yaml:"camera"`
	Watches     []*watch.Endpoint `yaml:"watches"`
	Session     SessionConfig     `yaml:"session"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Pose        PoseConfig        `yaml:"pose"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel slog.Level `yaml:"-"`

	RawLogLevel string `yaml:"logLevel"`
}

// CameraConfig represents the depth camera settings. The camera stream
// itself is provided by the host process; Enabled declares whether a
// capture device is required for this run.
type CameraConfig struct {
	Index   int  `yaml:"index"`
	Enabled bool `yaml:"enabled"`
}

// SessionConfig represents recording output settings
type SessionConfig struct {
	OutputDir   string `yaml:"outputDir"`
	IndexDB     string `yaml:"indexDB"`
	JPEGQuality int    `yaml:"jpegQuality"`
}

// CalibrationConfig represents ball profile settings
type CalibrationConfig struct {
	ProfileDir    string  `yaml:"profileDir"`
	StdMultiplier float64 `yaml:"stdMultiplier"`
}

// PoseConfig represents hand tracking settings
type PoseConfig struct {
	Backend string `yaml:"backend"`
}

// LoadConfig reads and validates the YAML configuration at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	var config Config
	if err = yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if config.Settings.LogLevel, err = parseLogLevel(config.Settings.RawLogLevel); err != nil {
		return nil, err
	}

	if len(config.Watches) == 0 {
		return nil, fmt.Errorf("no watches specified in configuration")
	}

	seen := make(map[string]struct{}, len(config.Watches))
	for i, endpoint := range config.Watches {
		if endpoint.Name == "" {
			return nil, fmt.Errorf("watch %d: name is required", i)
		}
		if endpoint.IP == "" {
			return nil, fmt.Errorf("watch '%s': ip is required", endpoint.Name)
		}
		if _, ok := seen[endpoint.Name]; ok {
			return nil, fmt.Errorf("watch '%s': duplicate name", endpoint.Name)
		}
		seen[endpoint.Name] = struct{}{}

		if endpoint.StreamPort == 0 {
			endpoint.StreamPort = watch.DefaultStreamPort
		}
		if endpoint.ControlPort == 0 {
			endpoint.ControlPort = watch.DefaultControlPort
		}
	}

	if config.Session.OutputDir == "" {
		config.Session.OutputDir = "data"
	}
	if config.Session.JPEGQuality < 0 || config.Session.JPEGQuality > 100 {
		return nil, fmt.Errorf("invalid jpegQuality %d, must be within [0, 100]", config.Session.JPEGQuality)
	}

	if config.Calibration.ProfileDir == "" {
		config.Calibration.ProfileDir = config.Session.OutputDir
	}
	if config.Calibration.StdMultiplier < 0 {
		return nil, fmt.Errorf("invalid stdMultiplier %f, must not be negative", config.Calibration.StdMultiplier)
	}

	return &config, nil
}

func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level '%s'", level)
	}
}
