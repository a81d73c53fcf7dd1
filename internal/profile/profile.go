package profile

import (
	"io"
	"log/slog"
	"math"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/jugvid/jugtrack/internal/camera"
)

const (
	// DefaultStdMultiplier is how many standard deviations around the mean
	// the derived color thresholds span.
	DefaultStdMultiplier = 2.0

	// DefaultRadiusConfidence defines the acceptance band around the
	// estimated radius: [radius/confidence, radius*confidence].
	DefaultRadiusConfidence = 1.5

	// DefaultCircularityMin is the minimum shape circularity for a blob
	// to be considered a ball candidate.
	DefaultCircularityMin = 0.7

	// minSaturation and minBrightness floor the lower thresholds of the
	// 2nd and 3rd channel so a profile never matches near-black or
	// desaturated pixels, whatever the calibration statistics say.
	// This trades false negatives for false positives under low light.
	minSaturation = 30
	minBrightness = 30
)

// channelMax holds the valid upper bound per HSV channel (OpenCV-style
// H in [0,179], S and V in [0,255]).
var channelMax = [3]float64{179, 255, 255}

// WithLogger sets the logger for the profile.
func WithLogger(logger *slog.Logger) func(*Profile) {
	return func(p *Profile) {
		p.logger = logger.With(slog.String("profile", p.ID))
	}
}

// WithStdMultiplier overrides the threshold width used by SetColorModel.
func WithStdMultiplier(k float64) func(*Profile) {
	return func(p *Profile) {
		p.stdMultiplier = k
	}
}

// Profile is a calibrated appearance+geometry model for one tracked ball.
// It is populated by the Set* calls during calibration and read-only
// afterwards; the tracking loop may share it across frames without
// synchronization once derivation completes.
type Profile struct {
	ID   string
	Name string

	// Color model (HSV). Low and High are always derived from Mean and
	// Std via the multiplier, never set independently.
	ColorMean [3]float64
	ColorStd  [3]float64
	ColorLow  [3]float64
	ColorHigh [3]float64
	HasColor  bool

	// Geometry model. RadiusM of 0 means unset.
	RadiusM           float64
	RadiusConfidence  float64
	CalibrationDepthM float64
	CircularityMin    float64

	// Raw calibration samples, retained for re-derivation.
	RawColors [][3]float64
	RawDepths []float64

	stdMultiplier float64
	logger        *slog.Logger
}

// New creates an empty profile with a fresh identity and a discard logger.
func New(name string, options ...func(*Profile)) *Profile {
	p := Profile{
		ID:               uuid.NewString(),
		Name:             name,
		RadiusConfidence: DefaultRadiusConfidence,
		CircularityMin:   DefaultCircularityMin,
		stdMultiplier:    DefaultStdMultiplier,
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&p)
	}

	return &p
}

// SetColorModel derives the color thresholds from a set of HSV samples
// taken inside the calibration region of interest. An empty sample set
// leaves the color model unset.
func (p *Profile) SetColorModel(samples [][3]float64) {
	if len(samples) == 0 {
		p.logger.Warn("no color samples provided, color model left unset")
		return
	}

	p.RawColors = make([][3]float64, len(samples))
	copy(p.RawColors, samples)

	channel := make([]float64, len(samples))
	for c := 0; c < 3; c++ {
		for i, s := range samples {
			channel[i] = s[c]
		}

		mean := stat.Mean(channel, nil)
		std := stat.PopStdDev(channel, nil)

		p.ColorMean[c] = mean
		p.ColorStd[c] = std
		p.ColorLow[c] = clamp(mean-p.stdMultiplier*std, 0, channelMax[c])
		p.ColorHigh[c] = clamp(mean+p.stdMultiplier*std, 0, channelMax[c])
	}

	// Floor S and V so the profile ignores dark or washed-out pixels.
	p.ColorLow[1] = math.Max(p.ColorLow[1], minSaturation)
	p.ColorLow[2] = math.Max(p.ColorLow[2], minBrightness)

	p.HasColor = true
}

// SetSizeModel projects the calibration pixel radius to a metric radius
// via the pinhole relation radius_m = pixelRadius * depth / fx, and
// records the depth at which the calibration happened. Profiles calibrated
// at short range project less accurately at long range; re-derive per
// working-distance range when accuracy matters.
func (p *Profile) SetSizeModel(pixelRadius, depthM float64, intrinsics *camera.Intrinsics) {
	if intrinsics == nil || depthM <= 0 {
		p.logger.Warn("cannot derive size model, missing intrinsics or invalid depth",
			slog.Float64("depthM", depthM))
		p.RadiusM = 0
		return
	}

	p.RadiusM = pixelRadius * depthM / intrinsics.Fx
	p.CalibrationDepthM = depthM

	p.logger.Info("size model derived",
		slog.Float64("radiusM", p.RadiusM),
		slog.Float64("depthM", depthM))
}

// SetDepthSamples stores raw depth samples from the calibration region
// for later analysis or re-calibration. It does not alter the radius model.
func (p *Profile) SetDepthSamples(depths []float64) {
	if len(depths) == 0 {
		p.logger.Warn("no depth samples provided")
		return
	}

	p.RawDepths = make([]float64, len(depths))
	copy(p.RawDepths, depths)
}

// RadiusBand returns the acceptance band for candidate radii, or zeros
// when no size model has been derived.
func (p *Profile) RadiusBand() (low, high float64) {
	if p.RadiusM == 0 {
		return 0, 0
	}
	return p.RadiusM / p.RadiusConfidence, p.RadiusM * p.RadiusConfidence
}

// MatchesColor reports whether an HSV pixel falls inside the derived
// thresholds. Always false while the color model is unset.
func (p *Profile) MatchesColor(hsv [3]float64) bool {
	if !p.HasColor {
		return false
	}
	for c := 0; c < 3; c++ {
		if hsv[c] < p.ColorLow[c] || hsv[c] > p.ColorHigh[c] {
			return false
		}
	}
	return true
}

// MatchesRadius reports whether a candidate metric radius falls inside
// the acceptance band. Always false while the size model is unset.
func (p *Profile) MatchesRadius(radiusM float64) bool {
	low, high := p.RadiusBand()
	if low == 0 && high == 0 {
		return false
	}
	return radiusM >= low && radiusM <= high
}

func clamp(v, low, high float64) float64 {
	return math.Min(math.Max(v, low), high)
}
