package session

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"strconv"
	"time"

	"github.com/jugvid/jugtrack/internal/imu"
)

// telemetryColumns is the column layout downstream tooling expects; it
// follows the watch recorder's CSV format.
var telemetryColumns = []string{
	"timestamp", "accel_x", "accel_y", "accel_z",
	"gyro_x", "gyro_y", "gyro_z",
	"accel_magnitude", "gyro_magnitude", "device",
}

// telemetrySink appends completed samples for one device to a CSV file.
type telemetrySink struct {
	device string
	path   string

	f *os.File
	w *csv.Writer

	records int64
	failed  bool
}

func newTelemetrySink(path, device, token string, start time.Time) (*telemetrySink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating telemetry file: %w", err)
	}

	// Session metadata comments precede the CSV header, matching the
	// on-watch recorder output.
	header := fmt.Sprintf("# Session ID: %s\n# Device ID: %s\n# Start Time: %d\n",
		token, device, start.UnixMilli())
	if _, err = f.WriteString(header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("writing telemetry header: %w", err)
	}

	s := telemetrySink{
		device: device,
		path:   path,
		f:      f,
		w:      csv.NewWriter(f),
	}

	if err = s.w.Write(telemetryColumns); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("writing telemetry columns: %w", err)
	}

	return &s, nil
}

func (s *telemetrySink) append(sample *imu.Sample) error {
	row := []string{
		strconv.FormatInt(sample.Timestamp.UnixMilli(), 10),
		formatFloat(sample.AccelX),
		formatFloat(sample.AccelY),
		formatFloat(sample.AccelZ),
		formatFloat(sample.GyroX),
		formatFloat(sample.GyroY),
		formatFloat(sample.GyroZ),
		formatFloat(sample.AccelMagnitude),
		formatFloat(sample.GyroMagnitude),
		sample.Device,
	}

	if err := s.w.Write(row); err != nil {
		return fmt.Errorf("writing telemetry row: %w", err)
	}

	s.records++
	return nil
}

// close flushes and finalizes the file, returning its final size.
func (s *telemetrySink) close() (sizeBytes int64, err error) {
	s.w.Flush()
	if err = s.w.Error(); err != nil {
		_ = s.f.Close()
		return 0, fmt.Errorf("flushing telemetry file: %w", err)
	}

	stat, err := s.f.Stat()
	if err == nil {
		sizeBytes = stat.Size()
	}

	if cErr := s.f.Close(); cErr != nil {
		return sizeBytes, fmt.Errorf("closing telemetry file: %w", cErr)
	}

	return sizeBytes, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// VideoSink receives color frames for the duration of one clip.
type VideoSink interface {
	WriteFrame(img image.Image, ts time.Time) error
	// Close finalizes the file and returns the frame count and size.
	Close() (frames, sizeBytes int64, err error)
}

// mjpegSink writes frames as a concatenated JPEG stream. MJPEG needs no
// container and is read directly by common downstream tooling.
type mjpegSink struct {
	path    string
	f       *os.File
	bw      *bufio.Writer
	quality int
	frames  int64
}

func newMJPEGSink(path string, quality int) (*mjpegSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating video file: %w", err)
	}

	return &mjpegSink{
		path:    path,
		f:       f,
		bw:      bufio.NewWriterSize(f, 1<<20),
		quality: quality,
	}, nil
}

func (s *mjpegSink) WriteFrame(img image.Image, _ time.Time) error {
	if err := jpeg.Encode(s.bw, img, &jpeg.Options{Quality: s.quality}); err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}

	s.frames++
	return nil
}

func (s *mjpegSink) Close() (frames, sizeBytes int64, err error) {
	if err = s.bw.Flush(); err != nil {
		_ = s.f.Close()
		return s.frames, 0, fmt.Errorf("flushing video file: %w", err)
	}

	stat, err := s.f.Stat()
	if err == nil {
		sizeBytes = stat.Size()
	}

	if cErr := s.f.Close(); cErr != nil {
		return s.frames, sizeBytes, fmt.Errorf("closing video file: %w", cErr)
	}

	return s.frames, sizeBytes, nil
}
