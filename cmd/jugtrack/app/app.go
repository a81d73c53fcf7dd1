package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jugvid/jugtrack/internal/camera"
	"github.com/jugvid/jugtrack/internal/imu"
	"github.com/jugvid/jugtrack/internal/overlay"
	"github.com/jugvid/jugtrack/internal/pose"
	"github.com/jugvid/jugtrack/internal/profile"
	"github.com/jugvid/jugtrack/internal/session"
	"github.com/jugvid/jugtrack/internal/storage"
	"github.com/jugvid/jugtrack/internal/watch"
)

// drainInterval paces the consumer loop when no camera drives it.
const drainInterval = 20 * time.Millisecond

// Options carries run-time collaborators that are not part of the file
// configuration.
type Options struct {
	// Source is the depth camera stream. When nil and the camera is
	// enabled in configuration, Run fails at startup.
	Source camera.Source

	// Input is where the manual record toggle is read from, one line per
	// toggle. Defaults to os.Stdin.
	Input io.Reader
}

// Run wires the capture pipeline and blocks until ctx is cancelled or an
// unrecoverable error occurs.
func Run(ctx context.Context, config *Config, logger *slog.Logger, opts Options) error {
	if config.Camera.Enabled && opts.Source == nil {
		return fmt.Errorf("no capture device available (camera index %d)", config.Camera.Index)
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}

	detector, err := pose.ForBackend(config.Pose.Backend)
	if err != nil {
		return fmt.Errorf("selecting pose backend: %w", err)
	}

	profiles, err := profile.NewManager(config.Calibration.ProfileDir,
		profile.WithManagerLogger(logger))
	if err != nil {
		return fmt.Errorf("loading ball profiles: %w", err)
	}
	logger.Info("ball profiles loaded", slog.Int("count", len(profiles.All())))

	endpoints := endpointList(config.Watches)
	devices := make([]string, len(endpoints))
	for i, e := range endpoints {
		devices[i] = e.Name
	}

	recorderOptions := []func(*session.Recorder){session.WithLogger(logger)}
	if config.Session.JPEGQuality > 0 {
		recorderOptions = append(recorderOptions, session.WithJPEGQuality(config.Session.JPEGQuality))
	}

	var store storage.Store
	if config.Session.IndexDB != "" {
		s := storage.NewSqliteStore(filepath.Join(config.Session.OutputDir, config.Session.IndexDB))
		defer s.Close()

		store = s
		recorderOptions = append(recorderOptions, session.WithStore(store))
	}

	recorder, err := session.NewRecorder(config.Session.OutputDir, devices, recorderOptions...)
	if err != nil {
		return fmt.Errorf("creating recorder: %w", err)
	}
	defer recorder.Close()

	manager := watch.NewManager(watch.WithLogger(logger))
	if err = manager.Start(ctx, endpoints); err != nil {
		return fmt.Errorf("starting stream manager: %w", err)
	}
	defer manager.Stop()

	commander := watch.NewCommander(endpoints, watch.WithCommanderLogger(logger))
	if reachable := commander.Discover(ctx); len(reachable) < len(endpoints) {
		logger.Warn("some watches are not reachable for commands",
			slog.Int("reachable", len(reachable)),
			slog.Int("configured", len(endpoints)))
	}

	toggles := readToggles(ctx, opts.Input)

	logger.Info("ready, press Enter to toggle recording")
	return consume(ctx, consumer{
		logger:    logger,
		devices:   devices,
		manager:   manager,
		commander: commander,
		recorder:  recorder,
		source:    opts.Source,
		detector:  detector,
		hud:       overlay.NewHUD(),
		toggles:   toggles,
	})
}

// Status queries every configured watch and prints the per-device
// responses.
func Status(ctx context.Context, config *Config, logger *slog.Logger, out io.Writer) error {
	endpoints := endpointList(config.Watches)

	commander := watch.NewCommander(endpoints, watch.WithCommanderLogger(logger))
	commander.Discover(ctx)

	results, err := commander.StatusAll(ctx)
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(out, "%s: unreachable (%s)\n", r.Device, r.Err)
			continue
		}
		fmt.Fprintf(out, "%s: %s\n", r.Device, strings.TrimSpace(r.Response))
	}

	return err
}

type consumer struct {
	logger    *slog.Logger
	devices   []string
	manager   *watch.Manager
	commander *watch.Commander
	recorder  *session.Recorder
	source    camera.Source
	detector  pose.Detector
	hud       *overlay.HUD
	toggles   <-chan struct{}
}

// consume is the single consumer loop: it drains completed samples into
// the recorder, advances the camera stream, and services toggle input.
// Recorder state is touched from this goroutine only.
func consume(ctx context.Context, c consumer) error {
	ticker := time.NewTicker(drainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-c.toggles:
			c.toggle(ctx)

		case <-ticker.C:
			for _, s := range c.manager.Drain() {
				c.recorder.AppendSample(s)
			}

			if c.source != nil {
				if err := c.frame(ctx); err != nil {
					if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
						return nil
					}
					return fmt.Errorf("camera stream: %w", err)
				}
			}
		}
	}
}

// toggle flips the local recorder and mirrors the state to the watches'
// on-device recorders. Watch command failures are reported but do not
// abort the local clip.
func (c consumer) toggle(ctx context.Context) {
	if !c.recorder.Active() {
		if _, err := c.commander.StartAll(ctx); err != nil {
			c.logger.Warn("not all watches started recording", slog.String("error", err.Error()))
		}
		if err := c.recorder.Toggle(); err != nil {
			c.logger.Error("failed to start recording", slog.String("error", err.Error()))
		}
		return
	}

	if err := c.recorder.Toggle(); err != nil {
		c.logger.Error("failed to stop recording", slog.String("error", err.Error()))
	}
	if _, err := c.commander.StopAll(ctx); err != nil {
		c.logger.Warn("not all watches stopped recording", slog.String("error", err.Error()))
	}
}

// frame pulls one camera frame, annotates it, and hands it to the
// recorder.
func (c consumer) frame(ctx context.Context) error {
	frame, err := c.source.Next(ctx)
	if err != nil {
		return err
	}

	img := frame.Color
	if landmarks, ok := c.detector.Detect(frame); ok {
		img = c.detector.Annotate(img, landmarks)
		for name, p := range c.detector.Hands(landmarks) {
			c.hud.Mark(img, int(p.X), int(p.Y), name)
		}
	}

	c.hud.Draw(img, overlay.State{
		Recording: c.recorder.Active(),
		ClipToken: c.recorder.ClipToken(),
		Samples:   c.latestSamples(),
		Dropped:   c.manager.Dropped(),
	})

	c.recorder.AppendFrame(cloneFrame(img), frame.Timestamp)
	return nil
}

// latestSamples collects the freshest sample per device in configuration
// order for the HUD.
func (c consumer) latestSamples() []*imu.Sample {
	samples := make([]*imu.Sample, 0, len(c.devices))
	for _, device := range c.devices {
		if s, ok := c.manager.LatestFor(device); ok {
			samples = append(samples, s)
		}
	}
	return samples
}

// readToggles turns input lines into toggle events. The reader goroutine
// exits with its input; an interactive stdin simply outlives ctx.
func readToggles(ctx context.Context, input io.Reader) <-chan struct{} {
	toggles := make(chan struct{})

	go func() {
		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			select {
			case toggles <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return toggles
}

func endpointList(watches []*watch.Endpoint) []watch.Endpoint {
	endpoints := make([]watch.Endpoint, len(watches))
	for i, w := range watches {
		endpoints[i] = *w
	}
	return endpoints
}

// cloneFrame copies the annotated frame so the video sink never races
// with a source that reuses frame buffers.
func cloneFrame(img *image.RGBA) *image.RGBA {
	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}
