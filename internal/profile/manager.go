package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

const profilesFile = "ball_profiles.json"

// WithManagerLogger sets the logger for the manager.
func WithManagerLogger(logger *slog.Logger) func(*Manager) {
	return func(m *Manager) {
		m.logger = logger
	}
}

// Manager owns the set of known ball profiles and persists them as a
// single JSON document in the configured directory.
type Manager struct {
	dir      string
	profiles []*Profile
	logger   *slog.Logger
}

// NewManager creates a manager rooted at dir, creating the directory if
// needed and loading any previously saved profiles.
func NewManager(dir string, options ...func(*Manager)) (*Manager, error) {
	m := Manager{
		dir:    dir,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&m)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating profile directory: %w", err)
	}

	if err := m.Load(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Add registers a profile with the manager. It does not persist; call
// Save once calibration is complete.
func (m *Manager) Add(p *Profile) {
	m.profiles = append(m.profiles, p)
	m.logger.Info("profile added", slog.String("id", p.ID), slog.String("name", p.Name))
}

// Remove drops the profile with the given id, if present.
func (m *Manager) Remove(id string) {
	kept := m.profiles[:0]
	for _, p := range m.profiles {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	m.profiles = kept
}

// ByID returns the profile with the given id, or nil.
func (m *Manager) ByID(id string) *Profile {
	for _, p := range m.profiles {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// All returns the managed profiles in insertion order.
func (m *Manager) All() []*Profile {
	return m.profiles
}

// Save writes every profile to the profiles file.
func (m *Manager) Save() error {
	records := make([]*Record, len(m.profiles))
	for i, p := range m.profiles {
		records[i] = p.ToRecord()
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling profiles: %w", err)
	}

	path := filepath.Join(m.dir, profilesFile)
	if err = os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing profiles file: %w", err)
	}

	m.logger.Info("profiles saved", slog.Int("count", len(records)), slog.String("path", path))
	return nil
}

// Load replaces the managed set with the contents of the profiles file.
// A missing file is not an error; it simply means no profiles yet.
func (m *Manager) Load() error {
	path := filepath.Join(m.dir, profilesFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading profiles file: %w", err)
	}

	var records []*Record
	if err = json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("parsing profiles file: %w", err)
	}

	m.profiles = m.profiles[:0]
	for _, r := range records {
		m.profiles = append(m.profiles, FromRecord(r))
	}

	m.logger.Info("profiles loaded", slog.Int("count", len(m.profiles)), slog.String("path", path))
	return nil
}
