package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/aretw0/xstack"
	"github.com/aretw0/xstack/internal/dto"
	"github.com/aretw0/xstack/internal/presentation/tui"
	"github.com/aretw0/xstack/pkg/adapters/redis"
	"github.com/aretw0/xstack/pkg/domain"
	"github.com/aretw0/xstack/pkg/manifest"
	"github.com/aretw0/xstack/pkg/registry"
	"github.com/aretw0/xstack/pkg/signal"
)

// ErrNotCompleted is returned by Execute when the stack ran but did not complete.
var ErrNotCompleted = errors.New("stack did not complete")

// RunOptions contains all the configuration for the Run command.
type RunOptions struct {
	ManifestPath string
	Context      string // Raw JSON object merged over the manifest context
	NoRollback   bool
	JSON         bool // NDJSON events and result on stdout
	Rich         bool // Colored events and rendered summary
	RedisAddr    string
	LogLevel     string
	Exec         ExecOptions

	Stdout   io.Writer
	Stderr   io.Writer
	Registry *registry.Registry // Defaults to the built-in processes configured by Exec
}

// Execute loads a manifest, runs it and reports progress on Stdout.
// The result is returned together with ErrNotCompleted when the stack rolled back or failed.
func Execute(ctx context.Context, opts RunOptions) (*domain.RunResult, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Registry == nil {
		reg, err := NewRegistry(opts.Exec)
		if err != nil {
			return nil, err
		}
		opts.Registry = reg
	}
	logger := createLogger(opts.LogLevel, opts.Stderr)

	m, err := manifest.Load(opts.ManifestPath)
	if err != nil {
		return nil, err
	}
	overrides, err := parseContext(opts.Context)
	if err != nil {
		return nil, err
	}

	bus := signal.NewBus(signal.WithLogger(logger))
	if opts.JSON {
		bus.Subscribe(domain.EventAny, ndjson(opts.Stdout))
	} else {
		bus.Subscribe(domain.EventAny, tui.NewPrinter(opts.Stdout, opts.Rich).Handle)
	}

	stackOpts := []xstack.Option{xstack.WithBus(bus), xstack.WithLogger(logger)}
	if publisher := connectRedis(opts.RedisAddr); publisher != nil {
		publisher.Attach(bus)
		defer publisher.Close()
		stackOpts = append(stackOpts, xstack.WithRunHistory(redis.NewHistory(publisher.Client())))
		logger.Info("publishing events to redis", "addr", opts.RedisAddr, "channel", publisher.Channel())
	}
	if opts.NoRollback {
		stackOpts = append(stackOpts, xstack.WithRollback(false))
	}
	stack, ec, err := m.Build(opts.Registry, stackOpts...)
	if err != nil {
		return nil, err
	}
	for k, v := range overrides {
		ec.Set(k, v)
	}

	result, err := stack.Run(ctx, ec)
	if err != nil {
		return nil, err
	}

	if err := report(opts, result); err != nil {
		logger.Warn("failed to print run summary", "err", err)
	}
	if !result.Succeeded() {
		return result, fmt.Errorf("%w: %s", ErrNotCompleted, result.Status)
	}
	return result, nil
}

// ndjson writes every event as a JSON line.
func ndjson(w io.Writer) func(context.Context, domain.Event) error {
	var mu sync.Mutex
	enc := json.NewEncoder(w)
	return func(_ context.Context, e domain.Event) error {
		mu.Lock()
		defer mu.Unlock()
		return enc.Encode(e)
	}
}

func report(opts RunOptions, result *domain.RunResult) error {
	if opts.JSON {
		return json.NewEncoder(opts.Stdout).Encode(dto.FromResult(result))
	}

	summary := tui.Summary(result)
	if opts.Rich {
		rendered, err := tui.NewRenderer(0)(summary)
		if err == nil {
			summary = rendered
		}
	}
	_, err := fmt.Fprintln(opts.Stdout, summary)
	return err
}
