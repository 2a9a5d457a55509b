package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aretw0/xstack/internal/logging"
	"github.com/aretw0/xstack/pkg/adapters/redis"
	"golang.org/x/term"
)

// Environment variables consulted when the matching flag is not set.
const (
	EnvLogLevel  = "XSTACK_LOG_LEVEL"
	EnvRedisAddr = "XSTACK_REDIS_ADDR"
)

// EnvDefault returns the value of key, or def when it is unset or empty.
func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	start  sync.Once
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-sc.sigCh:
				sc.mu.Lock()
				sc.sigVal = sig
				sc.mu.Unlock()
				sc.Cancel()
			case <-sc.Context.Done():
				// Context cancelled elsewhere
			}
			sc.stop.Do(func() {
				signal.Stop(sc.sigCh)
			})
		}()
	})

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// createLogger configures the application logger on stderr.
func createLogger(level string, stderr io.Writer) *slog.Logger {
	if stderr == nil {
		return logging.New(logging.ParseLevel(level))
	}
	return logging.NewWithWriter(logging.ParseLevel(level), stderr)
}

// connectRedis opens an event publisher, or returns nil when addr is empty.
func connectRedis(addr string) *redis.Publisher {
	if addr == "" {
		return nil
	}
	return redis.New(addr, "", 0, redis.WithJournal(1000, 0))
}

// parseContext decodes the --context flag.
func parseContext(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("error parsing --context JSON: %w", err)
	}
	return out, nil
}
