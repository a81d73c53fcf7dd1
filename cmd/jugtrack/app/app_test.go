package app

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/jugvid/jugtrack/internal/watch"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun_RequiresCameraSource(t *testing.T) {
	config := Config{
		Camera: CameraConfig{Index: 1, Enabled: true},
	}

	err := Run(context.Background(), &config, discardLogger(), Options{})
	if err == nil {
		t.Fatal("expected a startup error without a capture device")
	}
	if !strings.Contains(err.Error(), "no capture device") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ping":
			io.WriteString(w, "pong")
		case "/status":
			io.WriteString(w, `{"recording":false}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	if err != nil {
		t.Fatalf("splitting server address: %v", err)
	}
	port, _ := strconv.Atoi(portStr)

	config := Config{
		Watches: []*watch.Endpoint{
			{Name: "left", IP: host, ControlPort: port},
		},
	}

	var out strings.Builder
	if err = Status(context.Background(), &config, discardLogger(), &out); err != nil {
		t.Fatalf("status: %v", err)
	}

	if got := out.String(); got != "left: {\"recording\":false}\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestStatus_UnreachableWatch(t *testing.T) {
	config := Config{
		Watches: []*watch.Endpoint{
			{Name: "left", IP: "127.0.0.1", ControlPort: 1},
		},
	}

	var out strings.Builder
	err := Status(context.Background(), &config, discardLogger(), &out)
	if err == nil {
		t.Fatal("expected an error for an unreachable watch")
	}
	if !strings.Contains(out.String(), "left: unreachable") {
		t.Errorf("unexpected output: %q", out.String())
	}
}
