package pose

import (
	"image"

	"github.com/jugvid/jugtrack/internal/camera"
)

// Noop is the pose detector used when no landmark backend is available.
// It never detects anything and leaves frames untouched.
type Noop struct{}

func (Noop) Detect(_ *camera.Frame) ([]Landmark, bool) {
	return nil, false
}

func (Noop) Hands(_ []Landmark) map[string]Point {
	return nil
}

func (Noop) Annotate(img *image.RGBA, _ []Landmark) *image.RGBA {
	return img
}
