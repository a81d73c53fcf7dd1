package storage

import (
	"context"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store indexes recording sessions, their clips, and the files each clip
// produced, so downstream tooling can locate synchronized video and
// telemetry without scanning directories. All write operations are
// atomic.
type Store interface {
	// CreateSession registers a new session directory and returns its
	// identifier.
	CreateSession(ctx context.Context, dir string) (sessionID int64, err error)

	// CreateClip registers a new clip under a session, keyed by the
	// shared timestamp token that names every file of the clip.
	CreateClip(ctx context.Context, sessionID int64, token string) (clipID int64, err error)

	// AddClipFile records one finalized output file of a clip: the video
	// file or one device's telemetry log.
	AddClipFile(ctx context.Context, clipID int64, role, path string, records, sizeBytes int64) error

	// Clips returns every clip of a session with its files, ordered by
	// start time.
	Clips(ctx context.Context, sessionID int64) ([]Clip, error)

	// Close releases the database connections. Safe to call multiple
	// times.
	Close() error
}

// Clip is one bounded recording interval within a session.
type Clip struct {
	ID        int64
	SessionID int64
	Token     string
	StartTime time.Time
	Files     []ClipFile
}

// ClipFile is one finalized output file of a clip.
type ClipFile struct {
	ID        int64
	ClipID    int64
	Role      string // "manual" for video, the device name for telemetry
	Path      string
	Records   int64
	SizeBytes int64
}
