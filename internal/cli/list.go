package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/aretw0/xstack/internal/dto"
	"github.com/aretw0/xstack/pkg/registry"
)

// List prints the registered process identifiers with their descriptions.
func List(w io.Writer, reg *registry.Registry, asJSON bool) error {
	ids := reg.IDs()
	infos := make([]dto.ProcessInfo, 0, len(ids))
	width := 0
	for _, id := range ids {
		desc, _ := reg.Describe(id)
		infos = append(infos, dto.ProcessInfo{ID: id, Description: desc})
		width = max(width, len(id))
	}

	if asJSON {
		return json.NewEncoder(w).Encode(infos)
	}
	for _, info := range infos {
		if _, err := fmt.Fprintf(w, "%-*s  %s\n", width, info.ID, info.Description); err != nil {
			return err
		}
	}
	return nil
}
