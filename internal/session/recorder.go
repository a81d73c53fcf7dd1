package session

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jugvid/jugtrack/internal/imu"
	"github.com/jugvid/jugtrack/internal/storage"
)

const (
	// tokenFormat renders the timestamp token shared by every file of
	// one clip. This naming is a contract with downstream tooling.
	tokenFormat = "20060102_150405"

	// videoRole names the video file of a clip; telemetry files carry
	// the device's logical name instead.
	videoRole = "manual"

	defaultJPEGQuality = 85
)

// WithLogger sets the logger for the recorder.
func WithLogger(logger *slog.Logger) func(*Recorder) {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithStore attaches a clip index store; finalized clips and files are
// registered with it.
func WithStore(store storage.Store) func(*Recorder) {
	return func(r *Recorder) {
		r.store = store
	}
}

// WithJPEGQuality overrides the video frame encoding quality.
func WithJPEGQuality(quality int) func(*Recorder) {
	return func(r *Recorder) {
		r.jpegQuality = quality
	}
}

// clip holds the open sinks of one Active period. It is discarded
// wholesale on stop, so no per-device state can leak into the next clip.
type clip struct {
	token   string
	id      int64
	started time.Time

	video       VideoSink
	videoPath   string
	videoFailed bool

	sinks map[string]*telemetrySink
}

// Recorder is the manual recording toggle state machine. Idle → Active
// opens a video sink plus one telemetry sink per device, all named with
// one shared timestamp token; Active → Idle flushes and finalizes every
// open sink. A sink that fails to open or write is excluded from the
// current clip without stopping the others.
//
// The recorder is owned by the single consumer goroutine and is not safe
// for concurrent use.
type Recorder struct {
	dir       string
	devices   []string
	sessionID int64

	store       storage.Store
	logger      *slog.Logger
	jpegQuality int
	now         func() time.Time

	active bool
	clip   *clip
}

// NewRecorder creates a recorder rooted at a fresh session directory
// under outputDir, one per run.
func NewRecorder(outputDir string, devices []string, options ...func(*Recorder)) (*Recorder, error) {
	r := Recorder{
		devices:     devices,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		jpegQuality: defaultJPEGQuality,
		now:         time.Now,
	}

	for _, option := range options {
		option(&r)
	}

	r.dir = filepath.Join(outputDir, "session_"+r.now().Format(tokenFormat))
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}

	if r.store != nil {
		sessionID, err := r.store.CreateSession(context.Background(), r.dir)
		if err != nil {
			return nil, fmt.Errorf("registering session: %w", err)
		}
		r.sessionID = sessionID
	}

	r.logger.Info("session directory ready", slog.String("dir", r.dir))
	return &r, nil
}

// Dir returns the session directory.
func (r *Recorder) Dir() string {
	return r.dir
}

// Active reports whether a clip is currently open.
func (r *Recorder) Active() bool {
	return r.active
}

// ClipToken returns the current clip's timestamp token, or "" when idle.
func (r *Recorder) ClipToken() string {
	if r.clip == nil {
		return ""
	}
	return r.clip.token
}

// Toggle flips the state machine: it opens a new clip when idle and
// finalizes the current clip when active.
func (r *Recorder) Toggle() error {
	if r.active {
		return r.stop()
	}
	return r.start()
}

func (r *Recorder) start() error {
	started := r.now()
	token := started.Format(tokenFormat)

	c := clip{
		token:   token,
		started: started,
		sinks:   make(map[string]*telemetrySink, len(r.devices)),
	}

	c.videoPath = filepath.Join(r.dir, fmt.Sprintf("%s_%s.mjpeg", videoRole, token))
	video, err := newMJPEGSink(c.videoPath, r.jpegQuality)
	if err != nil {
		// The clip proceeds with telemetry only; the operator is told.
		r.logger.Error("video sink failed to open, excluded from clip",
			slog.String("path", c.videoPath),
			slog.String("error", err.Error()))
		c.videoFailed = true
	} else {
		c.video = video
	}

	for _, device := range r.devices {
		path := filepath.Join(r.dir, fmt.Sprintf("%s_%s.csv", device, token))
		sink, err := newTelemetrySink(path, device, token, started)
		if err != nil {
			r.logger.Error("telemetry sink failed to open, excluded from clip",
				slog.String("device", device),
				slog.String("error", err.Error()))
			continue
		}
		c.sinks[device] = sink
	}

	if r.store != nil {
		id, err := r.store.CreateClip(context.Background(), r.sessionID, token)
		if err != nil {
			r.logger.Error("failed to register clip in index",
				slog.String("error", err.Error()))
		} else {
			c.id = id
		}
	}

	r.clip = &c
	r.active = true

	r.logger.Info("recording started",
		slog.String("token", token),
		slog.Int("telemetrySinks", len(c.sinks)))
	return nil
}

func (r *Recorder) stop() error {
	c := r.clip

	// Clearing the state first guarantees the next clip starts from a
	// clean slate even if finalization reports errors.
	r.clip = nil
	r.active = false

	if c.video != nil {
		frames, size, err := c.video.Close()
		if err != nil {
			r.logger.Error("finalizing video file failed",
				slog.String("path", c.videoPath),
				slog.String("error", err.Error()))
		} else {
			r.logger.Info("video finalized",
				slog.String("path", c.videoPath),
				slog.Int64("frames", frames),
				slog.String("size", humanize.Bytes(uint64(size))))
			r.indexFile(c.id, videoRole, c.videoPath, frames, size)
		}
	}

	for device, sink := range c.sinks {
		size, err := sink.close()
		if err != nil {
			r.logger.Error("finalizing telemetry file failed",
				slog.String("device", device),
				slog.String("error", err.Error()))
			continue
		}

		r.logger.Info("telemetry finalized",
			slog.String("device", device),
			slog.Int64("samples", sink.records),
			slog.String("size", humanize.Bytes(uint64(size))))
		r.indexFile(c.id, device, sink.path, sink.records, size)
	}

	r.logger.Info("recording stopped",
		slog.String("token", c.token),
		slog.Duration("duration", r.now().Sub(c.started)))
	return nil
}

// AppendSample writes a completed sample to its device's telemetry sink.
// Samples for unknown devices or failed sinks are dropped silently; no
// sink is open while idle.
func (r *Recorder) AppendSample(s *imu.Sample) {
	if !r.active {
		return
	}

	sink, ok := r.clip.sinks[s.Device]
	if !ok || sink.failed {
		return
	}

	if err := sink.append(s); err != nil {
		sink.failed = true
		r.logger.Error("telemetry sink write failed, excluded from clip",
			slog.String("device", s.Device),
			slog.String("error", err.Error()))
	}
}

// AppendFrame writes a color frame to the video sink.
func (r *Recorder) AppendFrame(img image.Image, ts time.Time) {
	if !r.active || r.clip.video == nil || r.clip.videoFailed {
		return
	}

	if err := r.clip.video.WriteFrame(img, ts); err != nil {
		r.clip.videoFailed = true
		r.logger.Error("video sink write failed, excluded from clip",
			slog.String("error", err.Error()))
	}
}

// Close finalizes whatever sinks are currently open. It backs the
// cleanup guarantee on abnormal termination: the owning goroutine defers
// it, and signal-driven shutdown unwinds through that defer.
func (r *Recorder) Close() error {
	if !r.active {
		return nil
	}
	return r.stop()
}

func (r *Recorder) indexFile(clipID int64, role, path string, records, size int64) {
	if r.store == nil || clipID == 0 {
		return
	}

	if err := r.store.AddClipFile(context.Background(), clipID, role, path, records, size); err != nil {
		r.logger.Error("failed to index clip file",
			slog.String("role", role),
			slog.String("error", err.Error()))
	}
}
