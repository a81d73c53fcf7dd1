package profile

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/jugvid/jugtrack/internal/camera"
)

const tolerance = 1e-9

func TestSetColorModel_Thresholds(t *testing.T) {
	p := New("tennis")
	samples := [][3]float64{
		{100, 200, 150},
		{110, 210, 160},
		{90, 190, 140},
		{105, 205, 155},
	}

	p.SetColorModel(samples)

	if !p.HasColor {
		t.Fatal("expected color model to be set")
	}

	for c := 0; c < 3; c++ {
		if p.ColorLow[c] > p.ColorMean[c] || p.ColorMean[c] > p.ColorHigh[c] {
			t.Errorf("channel %d: want low <= mean <= high, got %f, %f, %f",
				c, p.ColorLow[c], p.ColorMean[c], p.ColorHigh[c])
		}
		if p.ColorLow[c] < 0 || p.ColorHigh[c] > channelMax[c] {
			t.Errorf("channel %d: thresholds outside valid range: [%f, %f]",
				c, p.ColorLow[c], p.ColorHigh[c])
		}
	}

	if len(p.RawColors) != len(samples) {
		t.Errorf("expected %d raw samples retained, got %d", len(samples), len(p.RawColors))
	}
}

func TestSetColorModel_SaturationAndBrightnessFloor(t *testing.T) {
	p := New("dark")

	// Low-light samples whose statistical lower bounds fall below the floor.
	samples := [][3]float64{
		{50, 10, 5},
		{55, 20, 15},
		{45, 5, 10},
	}

	p.SetColorModel(samples)

	if p.ColorLow[1] < minSaturation {
		t.Errorf("saturation floor not applied: got %f, want >= %d", p.ColorLow[1], minSaturation)
	}
	if p.ColorLow[2] < minBrightness {
		t.Errorf("brightness floor not applied: got %f, want >= %d", p.ColorLow[2], minBrightness)
	}
}

func TestSetColorModel_EmptySamples(t *testing.T) {
	p := New("empty")
	p.SetColorModel(nil)

	if p.HasColor {
		t.Error("color model should stay unset for empty sample set")
	}
	if p.MatchesColor([3]float64{100, 100, 100}) {
		t.Error("unset color model must not match anything")
	}
}

func TestSetSizeModel(t *testing.T) {
	intrinsics := &camera.Intrinsics{Fx: 615.0, Fy: 615.0, Width: 640, Height: 480}

	t.Run("pinhole projection", func(t *testing.T) {
		p := New("ball")
		p.SetSizeModel(20, 1.5, intrinsics)

		want := 20 * 1.5 / 615.0
		if math.Abs(p.RadiusM-want) > tolerance {
			t.Errorf("radius: got %f, want %f", p.RadiusM, want)
		}
		if p.CalibrationDepthM != 1.5 {
			t.Errorf("calibration depth: got %f, want 1.5", p.CalibrationDepthM)
		}
	})

	t.Run("missing intrinsics", func(t *testing.T) {
		p := New("ball")
		p.SetSizeModel(20, 1.5, nil)

		if p.RadiusM != 0 {
			t.Errorf("radius should stay unset, got %f", p.RadiusM)
		}
	})

	t.Run("invalid depth", func(t *testing.T) {
		p := New("ball")
		p.SetSizeModel(20, 0, intrinsics)

		if p.RadiusM != 0 {
			t.Errorf("radius should stay unset, got %f", p.RadiusM)
		}
		p.SetSizeModel(20, -1, intrinsics)
		if p.RadiusM != 0 {
			t.Errorf("radius should stay unset for negative depth, got %f", p.RadiusM)
		}
	})
}

func TestRadiusBand(t *testing.T) {
	p := New("ball")
	p.SetSizeModel(20, 1.5, &camera.Intrinsics{Fx: 600})

	low, high := p.RadiusBand()
	if math.Abs(low-p.RadiusM/1.5) > tolerance || math.Abs(high-p.RadiusM*1.5) > tolerance {
		t.Errorf("band [%f, %f] does not match confidence 1.5 around %f", low, high, p.RadiusM)
	}

	if !p.MatchesRadius(p.RadiusM) {
		t.Error("estimated radius should fall inside its own band")
	}
	if p.MatchesRadius(high * 2) {
		t.Error("radius far outside the band should not match")
	}
}

func TestSetDepthSamples(t *testing.T) {
	p := New("ball")

	p.SetDepthSamples(nil)
	if p.RawDepths != nil {
		t.Error("empty depth sample set should leave raw depths unset")
	}

	depths := []float64{1.2, 1.25, 1.22}
	p.SetDepthSamples(depths)
	if len(p.RawDepths) != 3 {
		t.Fatalf("expected 3 depth samples, got %d", len(p.RawDepths))
	}
	if p.RadiusM != 0 {
		t.Error("depth samples must not alter the radius model")
	}
}

func TestRecordRoundTrip(t *testing.T) {
	p := New("red beanbag")
	p.SetColorModel([][3]float64{
		{5, 180, 200},
		{8, 190, 210},
		{3, 170, 190},
	})
	p.SetSizeModel(18, 1.2, &camera.Intrinsics{Fx: 610})
	p.SetDepthSamples([]float64{1.19, 1.2, 1.21})

	data, err := json.Marshal(p.ToRecord())
	if err != nil {
		t.Fatalf("marshaling record: %v", err)
	}

	var rec Record
	if err = json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("unmarshaling record: %v", err)
	}

	got := FromRecord(&rec)

	if got.ID != p.ID || got.Name != p.Name {
		t.Errorf("identity not preserved: got %s/%s, want %s/%s", got.ID, got.Name, p.ID, p.Name)
	}
	if !got.HasColor {
		t.Fatal("color model lost in round trip")
	}
	for c := 0; c < 3; c++ {
		if got.ColorMean[c] != p.ColorMean[c] || got.ColorStd[c] != p.ColorStd[c] ||
			got.ColorLow[c] != p.ColorLow[c] || got.ColorHigh[c] != p.ColorHigh[c] {
			t.Errorf("channel %d thresholds not preserved", c)
		}
	}
	if got.RadiusM != p.RadiusM || got.CalibrationDepthM != p.CalibrationDepthM {
		t.Error("size model not preserved")
	}
	if got.RadiusConfidence != p.RadiusConfidence || got.CircularityMin != p.CircularityMin {
		t.Error("confidence parameters not preserved")
	}
	if len(got.RawColors) != len(p.RawColors) || len(got.RawDepths) != len(p.RawDepths) {
		t.Error("raw calibration samples not preserved")
	}
}

func TestFromRecord_Defaults(t *testing.T) {
	rec := Record{ID: "fixed-id", Name: "minimal"}

	p := FromRecord(&rec)

	if p.ID != "fixed-id" {
		t.Errorf("id not preserved: got %s", p.ID)
	}
	if p.RadiusConfidence != DefaultRadiusConfidence {
		t.Errorf("radius confidence default: got %f, want %f", p.RadiusConfidence, DefaultRadiusConfidence)
	}
	if p.CircularityMin != DefaultCircularityMin {
		t.Errorf("circularity default: got %f, want %f", p.CircularityMin, DefaultCircularityMin)
	}
	if p.HasColor {
		t.Error("color model should be unset when record has no thresholds")
	}
}

func TestMatchesColor(t *testing.T) {
	p := New("green")
	p.SetColorModel([][3]float64{
		{60, 200, 200},
		{62, 205, 210},
		{58, 195, 190},
	})

	if !p.MatchesColor(p.ColorMean) {
		t.Error("mean color should match its own thresholds")
	}
	if p.MatchesColor([3]float64{0, 255, 255}) {
		t.Error("hue far outside thresholds should not match")
	}
}
