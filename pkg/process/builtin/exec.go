package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/aretw0/xstack/pkg/domain"
	"github.com/aretw0/xstack/pkg/ports"
	"github.com/aretw0/xstack/pkg/process"
	"github.com/aretw0/xstack/pkg/registry"
)

// EnvPrefix prefixes the environment variables that expose context values to commands.
const EnvPrefix = "XSTACK_CTX_"

// ErrInlineExecDisabled is returned when a step names a command line instead of a
// registered command and inline execution was not enabled.
var ErrInlineExecDisabled = errors.New("inline commands are disabled")

// Command is a trusted command line that exec steps refer to by name.
type Command struct {
	Command string            `mapstructure:"command" yaml:"command" json:"command"`
	Args    []string          `mapstructure:"args" yaml:"args,omitempty" json:"args,omitempty"`
	Dir     string            `mapstructure:"dir" yaml:"dir,omitempty" json:"dir,omitempty"`
	Env     map[string]string `mapstructure:"env" yaml:"env,omitempty" json:"env,omitempty"`
}

// stepCommand is what a manifest step may say about a command: either the name
// of a registered one (run) or, when allowed, a full command line.
type stepCommand struct {
	Run     string            `mapstructure:"run"`
	Command string            `mapstructure:"command"`
	Args    []string          `mapstructure:"args"`
	Dir     string            `mapstructure:"dir"`
	Env     map[string]string `mapstructure:"env"`
}

type execConfig struct {
	Run     string            `mapstructure:"run"`
	Command string            `mapstructure:"command"`
	Args    []string          `mapstructure:"args"`
	Dir     string            `mapstructure:"dir"`
	Env     map[string]string `mapstructure:"env"`
	Undo    *stepCommand      `mapstructure:"undo"`
}

// lookup turns a step's command reference into the command line to execute.
func (o *options) lookup(s stepCommand) (Command, error) {
	switch {
	case s.Run != "" && s.Command != "":
		return Command{}, errors.New("run and command are mutually exclusive")
	case s.Run != "":
		if len(s.Args) > 0 || s.Dir != "" || len(s.Env) > 0 {
			return Command{}, fmt.Errorf("registered command %q cannot be overridden by the step", s.Run)
		}
		cmd, ok := o.commands[s.Run]
		if !ok {
			return Command{}, fmt.Errorf("command %q is not registered", s.Run)
		}
		return cmd, nil
	case s.Command != "":
		if !o.allowInline {
			return Command{}, fmt.Errorf("%w: register %q as a named command instead", ErrInlineExecDisabled, s.Command)
		}
		return Command{Command: s.Command, Args: s.Args, Dir: s.Dir, Env: s.Env}, nil
	default:
		return Command{}, errors.New("run or command is required")
	}
}

func (o *options) newExec(args map[string]any) (ports.Process, error) {
	var cfg execConfig
	if err := registry.Decode(args, &cfg); err != nil {
		return nil, err
	}
	forward, err := o.lookup(stepCommand{Run: cfg.Run, Command: cfg.Command, Args: cfg.Args, Dir: cfg.Dir, Env: cfg.Env})
	if err != nil {
		return nil, err
	}

	do := func(ctx context.Context, ec *domain.ExecutionContext) (any, error) {
		return run(ctx, forward, ec)
	}
	if cfg.Undo == nil {
		return process.New(Exec, do, nil), nil
	}
	undo, err := o.lookup(*cfg.Undo)
	if err != nil {
		return nil, fmt.Errorf("undo: %w", err)
	}
	if undo.Dir == "" {
		undo.Dir = forward.Dir
	}
	return process.New(Exec, do, func(ctx context.Context, ec *domain.ExecutionContext) error {
		_, err := run(ctx, undo, ec)
		return err
	}), nil
}

// run executes c with the context exported through the environment.
// Stdout becomes the result: decoded when it looks like JSON, trimmed text otherwise.
func run(ctx context.Context, c Command, ec *domain.ExecutionContext) (any, error) {
	cmd := exec.CommandContext(ctx, c.Command, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = append(cmd.Environ(), Environ(ec)...)
	for k, v := range c.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("%s: %w", c.Command, err)
		}
		return nil, fmt.Errorf("%s: %w: %s", c.Command, err, msg)
	}

	trimmed := strings.TrimSpace(stdout.String())
	if trimmed == "" {
		return nil, nil
	}
	if (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) {
		var decoded any
		if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
			return decoded, nil
		}
	}
	return trimmed, nil
}

// Environ renders the context as KEY=VALUE pairs. Keys are upper-cased with every
// character outside [A-Z0-9_] replaced by '_'; scalars are printed as-is and
// everything else is JSON encoded.
func Environ(ec *domain.ExecutionContext) []string {
	if ec == nil {
		return nil
	}
	snapshot := ec.Snapshot()
	env := make([]string, 0, len(snapshot))
	for _, k := range ec.Keys() {
		v, ok := snapshot[k]
		if !ok {
			continue
		}
		env = append(env, EnvPrefix+envKey(k)+"="+envValue(v))
	}
	return env
}

func envKey(k string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, k)
}

func envValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case int, int64, float64, bool:
		return fmt.Sprintf("%v", v)
	default:
		if data, err := json.Marshal(v); err == nil {
			return string(data)
		}
		return fmt.Sprintf("%v", v)
	}
}
