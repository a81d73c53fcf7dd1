package pose

import (
	"image"
	"testing"

	"github.com/jugvid/jugtrack/internal/camera"
)

func TestNoopSatisfiesContract(t *testing.T) {
	var d Detector = Noop{}

	frame := &camera.Frame{Color: image.NewRGBA(image.Rect(0, 0, 4, 4))}

	landmarks, ok := d.Detect(frame)
	if ok || landmarks != nil {
		t.Error("no-op detector must never detect landmarks")
	}

	if hands := d.Hands(nil); len(hands) != 0 {
		t.Error("no-op detector must return no hands")
	}

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	if got := d.Annotate(img, nil); got != img {
		t.Error("no-op detector must return the input frame unchanged")
	}
}

func TestForBackend(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		wantErr bool
	}{
		{"empty selects noop", "", false},
		{"none selects noop", "none", false},
		{"unknown backend", "mediapipe", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d, err := ForBackend(tc.backend)
			if tc.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, ok := d.(Noop); !ok {
				t.Errorf("expected Noop detector, got %T", d)
			}
		})
	}
}
