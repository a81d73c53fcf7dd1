package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/jugvid/jugtrack/internal/imu"
)

const (
	lineHeight = 14
	margin     = 4
	markerArm  = 6
)

var (
	bandColor  = color.RGBA{0, 0, 0, 160}
	textColor  = image.NewUniform(color.RGBA{255, 255, 255, 255})
	recColor   = image.NewUniform(color.RGBA{255, 64, 64, 255})
	staleColor = image.NewUniform(color.RGBA{255, 200, 0, 255})
)

// staleAfter is the age past which a device's telemetry line is flagged
// as stale on the HUD.
const staleAfter = 500 * time.Millisecond

// State is everything the HUD renders for one frame.
type State struct {
	Recording bool
	ClipToken string
	Samples   []*imu.Sample // latest per device, display order
	Dropped   uint64
}

// HUD draws the live telemetry readout and recording state onto color
// frames. It owns no per-frame state and may be reused across frames.
type HUD struct {
	face font.Face
}

// NewHUD creates a HUD using the built-in fixed-width face, which needs
// no font asset.
func NewHUD() *HUD {
	return &HUD{face: basicfont.Face7x13}
}

// Draw renders the state onto img in place.
func (h *HUD) Draw(img *image.RGBA, state State) {
	lines := 1 + len(state.Samples)
	band := image.Rect(0, 0, img.Bounds().Dx(), margin*2+lines*lineHeight)
	draw.Draw(img, band.Intersect(img.Bounds()), image.NewUniform(bandColor), image.Point{}, draw.Over)

	y := margin + lineHeight - 3

	if state.Recording {
		h.drawString(img, recColor, margin, y, fmt.Sprintf("REC %s", state.ClipToken))
	} else {
		h.drawString(img, textColor, margin, y, "IDLE")
	}
	if state.Dropped > 0 {
		h.drawString(img, staleColor, img.Bounds().Dx()/2, y,
			fmt.Sprintf("dropped: %s", humanize.Comma(int64(state.Dropped))))
	}
	y += lineHeight

	for _, s := range state.Samples {
		src := textColor
		age := s.Age()
		if age > staleAfter {
			src = staleColor
		}

		h.drawString(img, src, margin, y, fmt.Sprintf("%-8s a=%6.2f g=%6.2f age=%s",
			s.Device, s.AccelMagnitude, s.GyroMagnitude, age.Round(time.Millisecond)))
		y += lineHeight
	}
}

// Mark draws a crosshair with a label, e.g. for detected hand positions.
func (h *HUD) Mark(img *image.RGBA, x, y int, label string) {
	bounds := img.Bounds()
	for d := -markerArm; d <= markerArm; d++ {
		if (image.Point{x + d, y}).In(bounds) {
			img.Set(x+d, y, color.RGBA{0, 255, 0, 255})
		}
		if (image.Point{x, y + d}).In(bounds) {
			img.Set(x, y+d, color.RGBA{0, 255, 0, 255})
		}
	}

	if label != "" {
		h.drawString(img, textColor, x+markerArm+2, y+4, label)
	}
}

func (h *HUD) drawString(img *image.RGBA, src *image.Uniform, x, y int, s string) {
	d := font.Drawer{
		Dst:  img,
		Src:  src,
		Face: h.face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
