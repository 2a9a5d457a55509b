package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	xhttp "github.com/aretw0/xstack/pkg/adapters/http"
	"github.com/aretw0/xstack/pkg/adapters/memory"
	"github.com/aretw0/xstack/pkg/adapters/redis"
	"github.com/aretw0/xstack/pkg/observability"
	"github.com/aretw0/xstack/pkg/ports"
	"github.com/aretw0/xstack/pkg/registry"
	"github.com/aretw0/xstack/pkg/signal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServeOptions configures the HTTP server.
type ServeOptions struct {
	Host        string
	Port        string
	RedisAddr   string
	LogLevel    string
	HistorySize int
	RunTimeout  time.Duration // Bounds each POST /runs (0 = no limit)
	Exec        ExecOptions

	Stderr   io.Writer
	Registry *registry.Registry // Defaults to the built-in processes configured by Exec
}

// NewServeHandler wires the API: one shared bus observed by metrics, the SSE stream
// and, when configured, the Redis publisher. The returned func releases resources.
func NewServeHandler(opts ServeOptions) (http.Handler, func() error, error) {
	if opts.Registry == nil {
		reg, err := NewRegistry(opts.Exec)
		if err != nil {
			return nil, nil, err
		}
		opts.Registry = reg
	}
	logger := createLogger(opts.LogLevel, opts.Stderr)
	if opts.Exec.AllowInline {
		logger.Warn("inline exec is enabled: any client of the API can run commands on this host")
	}
	bus := signal.NewBus(signal.WithLogger(logger))

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := observability.NewMetrics(promReg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	metrics.Attach(bus)

	closer := func() error { return nil }
	var history ports.RunHistory = memory.NewHistory(opts.HistorySize)
	if publisher := connectRedis(opts.RedisAddr); publisher != nil {
		publisher.Attach(bus)
		closer = publisher.Close
		history = redis.NewHistory(publisher.Client(), redis.WithHistoryLimit(opts.HistorySize))
		logger.Info("publishing events to redis", "addr", opts.RedisAddr, "channel", publisher.Channel())
	}

	handler := xhttp.NewHandler(opts.Registry,
		xhttp.WithBus(bus),
		xhttp.WithLogger(logger),
		xhttp.WithHistory(history),
		xhttp.WithRunTimeout(opts.RunTimeout),
		xhttp.WithMetricsHandler(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})),
	)
	return handler, closer, nil
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down gracefully.
func Serve(ctx context.Context, opts ServeOptions) error {
	handler, closer, err := NewServeHandler(opts)
	if err != nil {
		return err
	}
	defer closer()

	logger := createLogger(opts.LogLevel, opts.Stderr)
	srv := &http.Server{
		Addr:              net.JoinHostPort(opts.Host, opts.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Open event streams end when ctx does.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting xstack server", "addr", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		logger.Info("shutting down server")

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown did not complete", "err", err)
			return srv.Close()
		}
		logger.Info("server stopped gracefully")
		return nil
	}
}
