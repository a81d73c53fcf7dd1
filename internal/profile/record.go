package profile

// Record is the plain serialized form of a Profile, stable across runs.
// Optional fields are pointers so that absent values can be told apart
// from zeros and filled with documented defaults on load.
type Record struct {
	ID   string `json:"profile_id"`
	Name string `json:"name"`

	ColorMean *[3]float64 `json:"color_mean,omitempty"`
	ColorStd  *[3]float64 `json:"color_std,omitempty"`
	ColorLow  *[3]float64 `json:"color_low,omitempty"`
	ColorHigh *[3]float64 `json:"color_high,omitempty"`

	RadiusM           *float64 `json:"real_world_radius_m,omitempty"`
	RadiusConfidence  *float64 `json:"radius_confidence_factor,omitempty"`
	CalibrationDepthM *float64 `json:"calibration_depth_m,omitempty"`
	CircularityMin    *float64 `json:"circularity_min,omitempty"`

	RawColors [][3]float64 `json:"raw_color_values,omitempty"`
	RawDepths []float64    `json:"raw_depth_values,omitempty"`
}

// ToRecord serializes every derived and raw field of the profile.
func (p *Profile) ToRecord() *Record {
	r := Record{
		ID:   p.ID,
		Name: p.Name,
	}

	if p.HasColor {
		mean, std, low, high := p.ColorMean, p.ColorStd, p.ColorLow, p.ColorHigh
		r.ColorMean = &mean
		r.ColorStd = &std
		r.ColorLow = &low
		r.ColorHigh = &high
	}

	if p.RadiusM != 0 {
		radius := p.RadiusM
		r.RadiusM = &radius
	}
	if p.CalibrationDepthM != 0 {
		depth := p.CalibrationDepthM
		r.CalibrationDepthM = &depth
	}

	confidence := p.RadiusConfidence
	r.RadiusConfidence = &confidence

	circularity := p.CircularityMin
	r.CircularityMin = &circularity

	if len(p.RawColors) > 0 {
		r.RawColors = make([][3]float64, len(p.RawColors))
		copy(r.RawColors, p.RawColors)
	}
	if len(p.RawDepths) > 0 {
		r.RawDepths = make([]float64, len(p.RawDepths))
		copy(r.RawDepths, p.RawDepths)
	}

	return &r
}

// FromRecord rebuilds a profile from its serialized form. Absent optional
// fields take the documented defaults (confidence 1.5, circularity 0.7).
func FromRecord(r *Record, options ...func(*Profile)) *Profile {
	p := New(r.Name, options...)
	p.ID = r.ID

	if r.ColorMean != nil && r.ColorStd != nil && r.ColorLow != nil && r.ColorHigh != nil {
		p.ColorMean = *r.ColorMean
		p.ColorStd = *r.ColorStd
		p.ColorLow = *r.ColorLow
		p.ColorHigh = *r.ColorHigh
		p.HasColor = true
	}

	if r.RadiusM != nil {
		p.RadiusM = *r.RadiusM
	}
	if r.RadiusConfidence != nil {
		p.RadiusConfidence = *r.RadiusConfidence
	}
	if r.CalibrationDepthM != nil {
		p.CalibrationDepthM = *r.CalibrationDepthM
	}
	if r.CircularityMin != nil {
		p.CircularityMin = *r.CircularityMin
	}

	if len(r.RawColors) > 0 {
		p.RawColors = make([][3]float64, len(r.RawColors))
		copy(p.RawColors, r.RawColors)
	}
	if len(r.RawDepths) > 0 {
		p.RawDepths = make([]float64, len(r.RawDepths))
		copy(p.RawDepths, r.RawDepths)
	}

	return p
}
