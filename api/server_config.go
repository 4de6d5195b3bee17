package api

import (
	"log/slog"
	"time"
)

// Timeouts applied by NewHTTPServerConfig. Relaying executes a whole ledger
// transaction inside the request, so writes get more room than reads need.
const (
	DefaultReadTimeout              = 10 * time.Second
	DefaultWriteTimeout             = 30 * time.Second
	DefaultGracefulShutdownDuration = 30 * time.Second
)

// HTTPServerConfig configures the registry API server.
type HTTPServerConfig struct {
	// ListenAddr serves the relay and registry routes.
	ListenAddr string

	// MetricsAddr serves /metrics with the relay counters. Empty disables it.
	MetricsAddr string

	// EnablePprof mounts /debug/pprof on the API router.
	EnablePprof bool

	Log *slog.Logger

	// DrainDuration is how long /readyz reports not ready before shutdown.
	DrainDuration time.Duration

	// GracefulShutdownDuration bounds waiting for in-flight relays on shutdown.
	GracefulShutdownDuration time.Duration

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewHTTPServerConfig returns a config listening on listenAddr with the default timeouts.
func NewHTTPServerConfig(listenAddr string, log *slog.Logger) *HTTPServerConfig {
	return &HTTPServerConfig{
		ListenAddr:               listenAddr,
		Log:                      log,
		GracefulShutdownDuration: DefaultGracefulShutdownDuration,
		ReadTimeout:              DefaultReadTimeout,
		WriteTimeout:             DefaultWriteTimeout,
	}
}
