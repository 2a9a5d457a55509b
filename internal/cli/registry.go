package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/xstack/pkg/process/builtin"
	"github.com/aretw0/xstack/pkg/registry"
	"gopkg.in/yaml.v3"
)

// EnvCommands names the commands file used when --commands is not set.
const EnvCommands = "XSTACK_COMMANDS"

// ExecOptions controls what the exec process may run.
type ExecOptions struct {
	CommandsPath string // YAML file of named commands exec steps may run
	AllowInline  bool   // Lets manifests carry their own command lines (Dangerous)
}

// commandsFile is the layout of the commands file:
//
//	commands:
//	  build:
//	    command: make
//	    args: [build]
type commandsFile struct {
	Commands map[string]builtin.Command `yaml:"commands"`
}

// LoadCommands reads the named commands from a YAML file.
func LoadCommands(path string) (map[string]builtin.Command, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read commands file: %w", err)
	}

	var file commandsFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse commands file %s: %w", path, err)
	}
	for name, cmd := range file.Commands {
		if cmd.Command == "" {
			return nil, fmt.Errorf("commands file %s: %s: command is required", path, name)
		}
	}
	return file.Commands, nil
}

// NewRegistry builds the built-in registry with the exec allow-list from opts.
func NewRegistry(opts ExecOptions) (*registry.Registry, error) {
	var builtinOpts []builtin.Option
	if opts.CommandsPath != "" {
		cmds, err := LoadCommands(opts.CommandsPath)
		if err != nil {
			return nil, err
		}
		builtinOpts = append(builtinOpts, builtin.WithCommands(cmds))
	}
	if opts.AllowInline {
		builtinOpts = append(builtinOpts, builtin.WithInlineExecution(true))
	}
	return builtin.NewRegistry(builtinOpts...), nil
}
