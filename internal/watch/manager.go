package watch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jugvid/jugtrack/internal/imu"
)

const (
	// DefaultQueueCapacity bounds the shared sample queue between the
	// device readers and the single consumer.
	DefaultQueueCapacity = 100

	// DefaultShutdownTimeout bounds how long Stop waits for the device
	// readers to join.
	DefaultShutdownTimeout = 5 * time.Second
)

// WithLogger sets the logger for the manager and its device readers.
func WithLogger(logger *slog.Logger) func(*Manager) {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithQueueCapacity overrides the shared queue capacity.
func WithQueueCapacity(capacity int) func(*Manager) {
	return func(m *Manager) {
		m.queueCapacity = capacity
	}
}

// WithShutdownTimeout overrides the bounded join timeout used by Stop.
func WithShutdownTimeout(timeout time.Duration) func(*Manager) {
	return func(m *Manager) {
		m.shutdownTimeout = timeout
	}
}

// WithReassembler replaces the manager's reassembler, e.g. to tune the
// staleness window.
func WithReassembler(r *imu.Reassembler) func(*Manager) {
	return func(m *Manager) {
		m.reassembler = r
	}
}

// Manager owns one concurrent stream reader per configured watch and
// funnels every completed sample into a single bounded queue. When the
// queue is full the oldest undelivered sample is dropped in favor of the
// newest: bounded staleness is preferred over blocking a network reader.
type Manager struct {
	queueCapacity   int
	shutdownTimeout time.Duration
	logger          *slog.Logger
	reassembler     *imu.Reassembler

	queue   chan *imu.Sample
	dropped atomic.Uint64

	mu     sync.RWMutex
	latest map[string]*imu.Sample

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager creates a stopped manager with a discard logger.
func NewManager(options ...func(*Manager)) *Manager {
	m := Manager{
		queueCapacity:   DefaultQueueCapacity,
		shutdownTimeout: DefaultShutdownTimeout,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		latest:          make(map[string]*imu.Sample),
	}

	for _, option := range options {
		option(&m)
	}

	if m.reassembler == nil {
		m.reassembler = imu.New(imu.WithLogger(m.logger))
	}
	m.queue = make(chan *imu.Sample, m.queueCapacity)

	return &m
}

// Start spins up one supervised reader per endpoint and returns
// immediately. Readers reconnect on failure independently of each other.
func (m *Manager) Start(ctx context.Context, endpoints []Endpoint) error {
	if len(endpoints) == 0 {
		return fmt.Errorf("no watch endpoints configured")
	}
	if !m.running.CompareAndSwap(false, true) {
		return fmt.Errorf("manager is already running")
	}

	ctx, m.cancel = context.WithCancel(ctx)

	for _, endpoint := range endpoints {
		c := newClient(endpoint, m.reassembler, m.deliver, m.logger)

		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			c.run(ctx)
		}()
	}

	m.logger.Info("stream manager started", slog.Int("devices", len(endpoints)))
	return nil
}

// Stop cancels all device readers and waits for them to join, bounded by
// the shutdown timeout so a wedged connection cannot block shutdown.
func (m *Manager) Stop() {
	if !m.running.Load() {
		return
	}

	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(m.shutdownTimeout):
		m.logger.Warn("device readers did not stop within timeout",
			slog.Duration("timeout", m.shutdownTimeout))
	}

	m.running.Store(false)
}

// LatestFor returns the most recent completed sample for a device without
// disturbing the queue. Intended for live display.
func (m *Manager) LatestFor(device string) (*imu.Sample, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.latest[device]
	return s, ok
}

// Drain removes and returns every currently queued sample. It is the sole
// consumer-side interface for the recording path: each sample is observed
// at most once, in arrival order per device.
func (m *Manager) Drain() []*imu.Sample {
	var out []*imu.Sample
	for {
		select {
		case s := <-m.queue:
			out = append(out, s)
		default:
			return out
		}
	}
}

// Dropped returns the number of samples discarded under queue-full
// conditions since the manager was created.
func (m *Manager) Dropped() uint64 {
	return m.dropped.Load()
}

// Stats exposes the reassembler's diagnostic counters.
func (m *Manager) Stats() imu.Stats {
	return m.reassembler.Stats()
}

func (m *Manager) deliver(s *imu.Sample) {
	m.mu.Lock()
	m.latest[s.Device] = s
	m.mu.Unlock()

	for {
		select {
		case m.queue <- s:
			return
		default:
		}

		// Queue full: drop the oldest undelivered sample and retry.
		select {
		case <-m.queue:
			m.dropped.Add(1)
		default:
		}
	}
}
