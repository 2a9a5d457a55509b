package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/xstack"
	"github.com/aretw0/xstack/pkg/domain"
	"github.com/aretw0/xstack/pkg/ports"
	"github.com/aretw0/xstack/pkg/process"
	"gopkg.in/yaml.v3"
)

// Manifest is a declarative stack definition.
type Manifest struct {
	Name      string         `yaml:"name" json:"name"`
	Rollback  *bool          `yaml:"rollback,omitempty" json:"rollback,omitempty"`
	Context   map[string]any `yaml:"context,omitempty" json:"context,omitempty"`
	Processes []Step         `yaml:"processes" json:"processes"`
}

// Step declares one process of the stack.
type Step struct {
	Use  string         `yaml:"use" json:"use"`
	Name string         `yaml:"name,omitempty" json:"name,omitempty"`
	With map[string]any `yaml:"with,omitempty" json:"with,omitempty"`
}

// EffectiveName is the name the process takes in the stack: Name, or Use when empty.
func (s Step) EffectiveName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Use
}

// RollbackEnabled reports whether failures trigger compensation (default true).
func (m *Manifest) RollbackEnabled() bool {
	return m.Rollback == nil || *m.Rollback
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m *Manifest
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		m, err = ParseJSON(data)
	} else {
		m, err = Parse(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes and validates a YAML manifest. Unknown fields are rejected.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// ParseJSON decodes and validates a JSON manifest. Unknown fields are rejected.
func ParseJSON(data []byte) (*Manifest, error) {
	var m Manifest
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that every step names a process and that effective names are unique.
func (m *Manifest) Validate() error {
	var errs []error
	seen := make(map[string]int, len(m.Processes))

	for i, step := range m.Processes {
		field := fmt.Sprintf("processes[%d]", i)
		if step.Use == "" {
			errs = append(errs, &ValidationError{Field: field + ".use", Reason: "required"})
			continue
		}
		name := step.EffectiveName()
		if first, dup := seen[name]; dup {
			errs = append(errs, &ValidationError{
				Field:  field + ".name",
				Reason: fmt.Sprintf("duplicate name %q (first used by processes[%d])", name, first),
			})
			continue
		}
		seen[name] = i
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// Build resolves every step and returns an idle stack ready to run, along with a
// fresh Execution Context seeded from the manifest. opts are applied after the
// manifest's own settings and may override them.
func (m *Manifest) Build(resolver ports.Resolver, opts ...xstack.Option) (*xstack.Stack, *domain.ExecutionContext, error) {
	if err := m.Validate(); err != nil {
		return nil, nil, err
	}

	base := []xstack.Option{
		xstack.WithName(m.Name),
		xstack.WithResolver(resolver),
		xstack.WithRollback(m.RollbackEnabled()),
	}
	stack := xstack.New(append(base, opts...)...)

	for i, step := range m.Processes {
		if resolver == nil {
			return nil, nil, fmt.Errorf("processes[%d]: %w", i, &domain.UnknownProcessError{ID: step.Use})
		}
		p, err := resolver.Resolve(step.Use, step.With)
		if err != nil {
			return nil, nil, fmt.Errorf("processes[%d]: %w", i, err)
		}
		if err := stack.Push(process.Named(step.EffectiveName(), p)); err != nil {
			return nil, nil, fmt.Errorf("processes[%d]: %w", i, err)
		}
	}

	return stack, domain.NewExecutionContext(m.Context), nil
}
