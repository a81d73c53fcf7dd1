package pose

import (
	"fmt"
	"image"

	"github.com/jugvid/jugtrack/internal/camera"
)

// Point is a 3D position in camera space (meters), with Z of 0 when the
// backend provides 2D landmarks only.
type Point struct {
	X, Y, Z float64
}

// Landmark is one named body landmark with its detection confidence.
type Landmark struct {
	Name       string
	Position   Point
	Confidence float64
}

// Detector is the pose/landmark capability. Implementations are selected
// explicitly at configuration time; the no-op variant satisfies the same
// contract so the rest of the system runs unmodified when the capability
// is unavailable.
type Detector interface {
	// Detect returns the landmarks found in the frame, and false when
	// nothing was detected.
	Detect(frame *camera.Frame) ([]Landmark, bool)

	// Hands extracts named hand positions ("left", "right") from a
	// landmark set. Missing hands are simply absent from the map.
	Hands(landmarks []Landmark) map[string]Point

	// Annotate renders the landmarks onto the image and returns it.
	Annotate(img *image.RGBA, landmarks []Landmark) *image.RGBA
}

// ForBackend returns the detector for a configured backend name. The
// empty string and "none" select the no-op detector.
func ForBackend(name string) (Detector, error) {
	switch name {
	case "", "none":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown pose backend %q", name)
	}
}
