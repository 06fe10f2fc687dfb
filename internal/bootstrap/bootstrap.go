// Package bootstrap implements the startup handshake with a co-located
// service: poll its TCP port until it answers or the retry budget runs
// out, then fetch its version string and record it to a local file.
// Exhausting the retries is logged but not fatal; the version fetch is
// attempted regardless.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"
)

// Defaults for the retry budget.
const (
	DefaultRetries = 10
	DefaultDelay   = 3 * time.Second
)

// Options configures the bootstrap handshake.
type Options struct {
	// Addr is the TCP address to poll, e.g. "localhost:8082".
	Addr string

	// Retries is the number of connection attempts. Default 10.
	Retries int

	// Delay between attempts. Default 3s.
	Delay time.Duration

	// VersionURL to GET once polling finishes, e.g. "http://localhost:8082/version".
	VersionURL string

	// OutPath is the file the version response body is written to.
	OutPath string

	Log *slog.Logger
}

// Run performs the handshake. It fails only if the version fetch or the
// file write fails; an unreachable port within the retry budget does not
// abort.
func Run(ctx context.Context, opts Options) error {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	retries := opts.Retries
	if retries <= 0 {
		retries = DefaultRetries
	}
	delay := opts.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}

	dialer := &net.Dialer{Timeout: delay}
	for attempt := 1; attempt <= retries; attempt++ {
		conn, err := dialer.DialContext(ctx, "tcp", opts.Addr)
		if err == nil {
			conn.Close()
			log.Info("service reachable", "addr", opts.Addr, "attempt", attempt)
			break
		}

		log.Info("service not reachable yet", "addr", opts.Addr, "attempt", attempt, "error", err)
		if attempt == retries {
			log.Warn("retry budget exhausted, fetching version anyway", "addr", opts.Addr)
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.VersionURL, nil)
	if err != nil {
		return fmt.Errorf("create version request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch version: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read version: %w", err)
	}

	if err := os.WriteFile(opts.OutPath, body, 0644); err != nil {
		return fmt.Errorf("write %s: %w", opts.OutPath, err)
	}

	log.Info("recorded service version", "version", string(body), "path", opts.OutPath)
	return nil
}
