package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// discoveryPorts are the candidate control ports probed by Discover, in
// order. Watches answer GET /ping with the body "pong" on whichever port
// their recorder app bound.
var discoveryPorts = []int{8080, 8081, 8082, 8083, 9090}

const commandTimeout = 5 * time.Second

// CommandResult is the outcome of one control command on one watch.
type CommandResult struct {
	Device   string
	Response string
	Err      error
}

// WithCommanderLogger sets the logger for the commander.
func WithCommanderLogger(logger *slog.Logger) func(*Commander) {
	return func(c *Commander) {
		c.logger = logger
	}
}

// WithHTTPClient replaces the HTTP client, e.g. in tests.
func WithHTTPClient(client *http.Client) func(*Commander) {
	return func(c *Commander) {
		c.client = client
	}
}

// Commander drives the watches' HTTP control surface: port discovery and
// the start/stop/status recording commands, fanned out to every device
// concurrently.
type Commander struct {
	endpoints []Endpoint
	client    *http.Client
	logger    *slog.Logger

	mu    sync.Mutex
	ports map[string]int // discovered control port per device name
}

// NewCommander creates a commander for the given endpoints.
func NewCommander(endpoints []Endpoint, options ...func(*Commander)) *Commander {
	c := Commander{
		endpoints: endpoints,
		client:    &http.Client{Timeout: commandTimeout},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		ports:     make(map[string]int),
	}

	for _, option := range options {
		option(&c)
	}

	return &c
}

// Discover probes each device's candidate control ports and records the
// first one that answers the ping. It returns the set of reachable
// devices mapped to their ports; unreachable devices are logged and
// omitted, not treated as fatal.
func (c *Commander) Discover(ctx context.Context) map[string]int {
	active := make(map[string]int, len(c.endpoints))

	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, endpoint := range c.endpoints {
		endpoint := endpoint
		wg.Add(1)
		go func() {
			defer wg.Done()

			port, ok := c.discoverPort(ctx, endpoint)
			if !ok {
				c.logger.Warn("watch is not reachable", slog.String("device", endpoint.Name))
				return
			}

			c.mu.Lock()
			c.ports[endpoint.Name] = port
			c.mu.Unlock()

			mu.Lock()
			active[endpoint.Name] = port
			mu.Unlock()

			c.logger.Info("watch discovered",
				slog.String("device", endpoint.Name),
				slog.Int("port", port))
		}()
	}

	wg.Wait()
	return active
}

func (c *Commander) discoverPort(ctx context.Context, endpoint Endpoint) (int, bool) {
	ports := discoveryPorts
	if endpoint.ControlPort != 0 {
		ports = append([]int{endpoint.ControlPort}, ports...)
	}

	for _, port := range ports {
		body, err := c.get(ctx, endpoint.controlURL(port, "ping"))
		if err != nil {
			continue
		}
		if strings.TrimSpace(body) == "pong" {
			return port, true
		}
	}
	return 0, false
}

// StartAll asks every watch to begin its on-device recording. It returns
// the per-device outcomes plus a joined error for the failures.
func (c *Commander) StartAll(ctx context.Context) ([]CommandResult, error) {
	return c.sendAll(ctx, "start")
}

// StopAll asks every watch to stop its on-device recording.
func (c *Commander) StopAll(ctx context.Context) ([]CommandResult, error) {
	return c.sendAll(ctx, "stop")
}

// StatusAll fetches the status document from every watch.
func (c *Commander) StatusAll(ctx context.Context) ([]CommandResult, error) {
	return c.sendAll(ctx, "status")
}

func (c *Commander) sendAll(ctx context.Context, command string) ([]CommandResult, error) {
	results := make([]CommandResult, len(c.endpoints))

	var wg sync.WaitGroup
	for i, endpoint := range c.endpoints {
		i, endpoint := i, endpoint
		wg.Add(1)
		go func() {
			defer wg.Done()

			body, err := c.send(ctx, endpoint, command)
			results[i] = CommandResult{Device: endpoint.Name, Response: body, Err: err}
		}()
	}
	wg.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			c.logger.Warn("watch command failed",
				slog.String("device", r.Device),
				slog.String("command", command),
				slog.String("error", r.Err.Error()))
			errs = append(errs, fmt.Errorf("%s: %w", r.Device, r.Err))
		}
	}

	return results, errors.Join(errs...)
}

func (c *Commander) send(ctx context.Context, endpoint Endpoint, command string) (string, error) {
	c.mu.Lock()
	port, ok := c.ports[endpoint.Name]
	c.mu.Unlock()

	if !ok {
		port = endpoint.ControlPort
		if port == 0 {
			port = DefaultControlPort
		}
	}

	return c.get(ctx, endpoint.controlURL(port, command))
}

func (c *Commander) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return string(body), nil
}
