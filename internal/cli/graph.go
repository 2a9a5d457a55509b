package cli

import (
	"fmt"
	"io"

	"github.com/aretw0/xstack/internal/presentation/graph"
	"github.com/aretw0/xstack/pkg/manifest"
	"github.com/aretw0/xstack/pkg/registry"
)

// Graph prints the Mermaid flowchart of a manifest without running it.
func Graph(w io.Writer, reg *registry.Registry, manifestPath string) error {
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return err
	}
	stack, _, err := m.Build(reg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, graph.GenerateMermaid(stack.Processes()))
	return err
}
