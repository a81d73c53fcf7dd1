package camera

import (
	"context"
	"image"
	"time"
)

// Intrinsics holds the camera parameters needed to convert pixel
// measurements to metric units.
type Intrinsics struct {
	Fx, Fy   float64 // focal lengths in pixels
	Ppx, Ppy float64 // principal point in pixels
	Width    int
	Height   int
}

// DepthMap provides metric distance lookups for a depth image aligned to
// the color frame. A reading of 0 means the sensor has no data for that pixel.
type DepthMap interface {
	DistanceAt(x, y int) float64
}

// Frame is one aligned color+depth capture with the intrinsics that
// produced it.
type Frame struct {
	Color      *image.RGBA
	Depth      DepthMap
	Intrinsics Intrinsics
	Timestamp  time.Time
}

// Source delivers aligned frames on demand. Stream configuration and
// lifecycle belong to the implementation, not to consumers of this
// interface.
type Source interface {
	// Next blocks until the next frame is available or ctx is cancelled.
	Next(ctx context.Context) (*Frame, error)
	Close() error
}
