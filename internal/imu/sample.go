package imu

import "time"

// Sample is one complete, merged accelerometer+gyroscope reading from a
// single wrist device. Partial readings never leave the reassembler.
type Sample struct {
	Device string

	AccelX, AccelY, AccelZ float64
	GyroX, GyroY, GyroZ    float64

	// Euclidean norms of the respective triples.
	AccelMagnitude float64
	GyroMagnitude  float64

	// Timestamp is the receipt time of the completing message. Device
	// clocks are not synchronized across watches, so receipt time is the
	// authoritative scale for cross-device comparison.
	Timestamp time.Time

	// DeviceTime is the device-clock timestamp in nanoseconds as reported
	// on the wire. Useful for offline per-device alignment only.
	DeviceTime int64
}

// Age returns the time elapsed since the sample was completed.
func (s *Sample) Age() time.Duration {
	return time.Since(s.Timestamp)
}
