package imu

import (
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"
)

// DefaultStaleWindow bounds how long a lone axis group may wait for its
// complement before being dropped. A completed sample's two groups are
// therefore never further apart in receipt time than this window.
const DefaultStaleWindow = 100 * time.Millisecond

const (
	haveAccel = 1 << iota
	haveGyro
	haveAll = haveAccel | haveGyro
)

// message is the wire format emitted by the watches: one JSON object per
// axis group, at minimum a type tag and three axis values.
type message struct {
	WatchID     string  `json:"watch_id"`
	Type        string  `json:"type"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Z           float64 `json:"z"`
	TimestampNS int64   `json:"timestamp_ns"`
}

// pending holds whichever axis groups have arrived for a device since its
// last completed sample.
type pending struct {
	accel      [3]float64
	gyro       [3]float64
	have       uint8
	deviceTime int64
	firstAt    time.Time
}

// Stats are diagnostic counters accumulated by a Reassembler.
type Stats struct {
	Received    uint64
	Completed   uint64
	ParseErrors uint64
	Evicted     uint64
}

// WithLogger sets the logger for the reassembler.
func WithLogger(logger *slog.Logger) func(*Reassembler) {
	return func(r *Reassembler) {
		r.logger = logger
	}
}

// WithStaleWindow overrides the staleness window for pending groups.
func WithStaleWindow(window time.Duration) func(*Reassembler) {
	return func(r *Reassembler) {
		r.staleWindow = window
	}
}

// Reassembler merges the independently-arriving axis-group messages of
// each device into complete samples. Groups are matched by device identity
// only; the wire format carries no shared sequence number, so pairing is
// best-effort "most recent unpaired group of each kind". The skew between
// the two groups of one sample is bounded by the staleness window.
//
// Safe for concurrent use by multiple device readers.
type Reassembler struct {
	staleWindow time.Duration
	logger      *slog.Logger
	now         func() time.Time

	mu      sync.Mutex
	pending map[string]*pending
	stats   Stats
}

// New creates a Reassembler with a discard logger.
func New(options ...func(*Reassembler)) *Reassembler {
	r := Reassembler{
		staleWindow: DefaultStaleWindow,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:         time.Now,
		pending:     make(map[string]*pending),
	}

	for _, option := range options {
		option(&r)
	}

	return &r
}

// Ingest parses one raw message from the given device and merges it into
// the device's pending slot. It returns a completed sample once both axis
// groups are present. Malformed payloads are logged and skipped; they are
// expected on flaky links and never corrupt the pending state.
func (r *Reassembler) Ingest(device string, raw []byte) (*Sample, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.Received++

	var m message
	if err := json.Unmarshal(raw, &m); err != nil {
		r.stats.ParseErrors++
		r.logger.Debug("discarding malformed frame",
			slog.String("device", device),
			slog.String("error", err.Error()))
		return nil, false
	}

	var group uint8
	switch m.Type {
	case "accel", "acceleration":
		group = haveAccel
	case "gyro", "rotation":
		group = haveGyro
	default:
		r.stats.ParseErrors++
		r.logger.Debug("discarding frame with unknown group tag",
			slog.String("device", device),
			slog.String("type", m.Type))
		return nil, false
	}

	now := r.now()

	slot := r.pending[device]
	if slot != nil && now.Sub(slot.firstAt) > r.staleWindow {
		// The complement never arrived in time. Drop the stale group
		// rather than pairing it with a much later arrival.
		r.stats.Evicted++
		r.logger.Debug("evicting stale partial sample",
			slog.String("device", device),
			slog.Duration("age", now.Sub(slot.firstAt)))
		slot = nil
	}
	if slot == nil {
		slot = &pending{firstAt: now, deviceTime: m.TimestampNS}
		r.pending[device] = slot
	}

	triple := [3]float64{m.X, m.Y, m.Z}
	switch group {
	case haveAccel:
		slot.accel = triple
	case haveGyro:
		slot.gyro = triple
	}
	slot.have |= group

	if slot.have != haveAll {
		return nil, false
	}

	delete(r.pending, device)
	r.stats.Completed++

	return &Sample{
		Device:         device,
		AccelX:         slot.accel[0],
		AccelY:         slot.accel[1],
		AccelZ:         slot.accel[2],
		GyroX:          slot.gyro[0],
		GyroY:          slot.gyro[1],
		GyroZ:          slot.gyro[2],
		AccelMagnitude: norm(slot.accel),
		GyroMagnitude:  norm(slot.gyro),
		Timestamp:      now,
		DeviceTime:     slot.deviceTime,
	}, true
}

// Stats returns a snapshot of the diagnostic counters.
func (r *Reassembler) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// PendingDevices returns the number of devices currently holding a
// partial sample.
func (r *Reassembler) PendingDevices() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func norm(v [3]float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}
