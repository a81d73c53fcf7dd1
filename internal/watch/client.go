package watch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jugvid/jugtrack/internal/imu"
)

const (
	// DefaultStreamPort is the websocket telemetry port on the watches.
	DefaultStreamPort = 8081

	// DefaultControlPort is the HTTP command port on the watches.
	DefaultControlPort = 8080

	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 10 * time.Second

	dialTimeout = 5 * time.Second
)

// Endpoint identifies one wrist device on the local network.
type Endpoint struct {
	Name        string `yaml:"name"`
	IP          string `yaml:"ip"`
	StreamPort  int    `yaml:"streamPort"`
	ControlPort int    `yaml:"controlPort"`
}

func (e Endpoint) streamURL() string {
	port := e.StreamPort
	if port == 0 {
		port = DefaultStreamPort
	}
	return fmt.Sprintf("ws://%s:%d/imu", e.IP, port)
}

func (e Endpoint) controlURL(port int, endpoint string) string {
	return fmt.Sprintf("http://%s:%d/%s", e.IP, port, endpoint)
}

// client owns the persistent stream connection to one watch. A failed or
// dropped connection is retried with capped exponential backoff so one
// device's outage never affects the others.
type client struct {
	endpoint    Endpoint
	reassembler *imu.Reassembler
	deliver     func(*imu.Sample)
	logger      *slog.Logger
	dialer      *websocket.Dialer
}

func newClient(endpoint Endpoint, reassembler *imu.Reassembler, deliver func(*imu.Sample), logger *slog.Logger) *client {
	return &client{
		endpoint:    endpoint,
		reassembler: reassembler,
		deliver:     deliver,
		logger: logger.With(
			slog.String("device", endpoint.Name),
			slog.String("url", endpoint.streamURL()),
		),
		dialer: &websocket.Dialer{HandshakeTimeout: dialTimeout},
	}
}

// run connects, reads, and reconnects until ctx is cancelled.
func (c *client) run(ctx context.Context) {
	backoff := initialBackoff

	for {
		conn, _, err := c.dialer.DialContext(ctx, c.endpoint.streamURL(), nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			c.logger.Warn("stream connect failed, retrying",
				slog.String("error", err.Error()),
				slog.Duration("backoff", backoff))

			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}

			backoff = min(backoff*2, maxBackoff)
			continue
		}

		backoff = initialBackoff
		c.logger.Info("stream connected")

		c.read(ctx, conn)

		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("stream closed, reconnecting")
	}
}

// read pumps messages from one connection until it fails or ctx is
// cancelled. The watcher goroutine closes the connection on cancellation
// so that ReadMessage never blocks shutdown.
func (c *client) read(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
			_ = conn.Close()
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		if sample, ok := c.reassembler.Ingest(c.endpoint.Name, payload); ok {
			c.deliver(sample)
		}
	}
}
