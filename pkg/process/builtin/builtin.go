// Package builtin ships the general-purpose processes available to every
// manifest: noop, context.set, fail, sleep and exec.
package builtin

import (
	"context"
	"errors"
	"time"

	"github.com/aretw0/xstack/pkg/domain"
	"github.com/aretw0/xstack/pkg/ports"
	"github.com/aretw0/xstack/pkg/process"
	"github.com/aretw0/xstack/pkg/registry"
)

// Identifiers of the built-in processes.
const (
	Noop       = "noop"
	ContextSet = "context.set"
	Fail       = "fail"
	Sleep      = "sleep"
	Exec       = "exec"
)

// Option configures the built-in processes.
type Option func(*options)

type options struct {
	commands    map[string]Command
	allowInline bool
}

// WithCommands adds trusted commands to the exec allow-list, keyed by name.
func WithCommands(cmds map[string]Command) Option {
	return func(o *options) {
		for name, cmd := range cmds {
			o.commands[name] = cmd
		}
	}
}

// WithCommand adds a single trusted command to the exec allow-list.
func WithCommand(name string, command string, args ...string) Option {
	return func(o *options) {
		o.commands[name] = Command{Command: command, Args: args}
	}
}

// WithInlineExecution lets exec steps carry their own command line (Dangerous).
// Whoever can submit a manifest can then run anything the host user can.
func WithInlineExecution(allow bool) Option {
	return func(o *options) {
		o.allowInline = allow
	}
}

// Entries returns the registry entries of every built-in process.
// Without options, exec only runs commands registered with WithCommand(s),
// and there are none.
func Entries(opts ...Option) []registry.Entry {
	o := &options{commands: make(map[string]Command)}
	for _, opt := range opts {
		opt(o)
	}
	return []registry.Entry{
		{ID: Noop, Description: "Does nothing; useful as a placeholder", Factory: newNoop},
		{ID: ContextSet, Description: "Writes values into the context; rollback restores the previous ones", Factory: newContextSet},
		{ID: Fail, Description: "Always fails with the given message", Factory: newFail},
		{ID: Sleep, Description: "Waits for a duration, honoring cancellation", Factory: newSleep},
		{ID: Exec, Description: "Runs a registered command; an optional undo command compensates it", Factory: o.newExec},
	}
}

// Register adds every built-in process to reg.
func Register(reg *registry.Registry, opts ...Option) error {
	for _, entry := range Entries(opts...) {
		if err := reg.RegisterEntry(entry); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry preloaded with the built-in processes.
func NewRegistry(opts ...Option) *registry.Registry {
	reg := registry.NewRegistry()
	if err := Register(reg, opts...); err != nil {
		panic(err)
	}
	return reg
}

func newNoop(args map[string]any) (ports.Process, error) {
	var cfg struct{}
	if err := registry.Decode(args, &cfg); err != nil {
		return nil, err
	}
	return process.New(Noop, nil, nil), nil
}

func newFail(args map[string]any) (ports.Process, error) {
	cfg := struct {
		Message string `mapstructure:"message"`
	}{Message: "forced failure"}
	if err := registry.Decode(args, &cfg); err != nil {
		return nil, err
	}
	cause := errors.New(cfg.Message)
	return process.New(Fail, func(context.Context, *domain.ExecutionContext) (any, error) {
		return nil, cause
	}, nil), nil
}

func newSleep(args map[string]any) (ports.Process, error) {
	var cfg struct {
		Duration time.Duration `mapstructure:"duration"`
	}
	if err := registry.Decode(args, &cfg); err != nil {
		return nil, err
	}
	if cfg.Duration < 0 {
		return nil, errors.New("duration must not be negative")
	}
	return process.New(Sleep, func(ctx context.Context, _ *domain.ExecutionContext) (any, error) {
		timer := time.NewTimer(cfg.Duration)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}, nil), nil
}
