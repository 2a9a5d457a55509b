package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/xstack/pkg/domain"
)

// GenerateMermaid produces a Mermaid flowchart of a stack from its process reports.
// Forward execution is drawn top-down; every compensable process gets a dotted
// "undo" edge from its successor, which is the path rollback takes.
// Compensable processes are drawn as [[Subroutine]], the rest as [Rectangle].
// Processes that have left pending are styled by status.
func GenerateMermaid(processes []domain.ProcessReport) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	ids := make([]string, len(processes))
	for i, p := range processes {
		ids[i] = fmt.Sprintf("p%d_%s", i, sanitizeMermaidID(p.Name))

		opener, closer := "[", "]"
		if p.Compensable {
			opener, closer = "[[", "]]"
		}
		label := strings.ReplaceAll(p.Name, "\"", "'")
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", ids[i], opener, label, closer))
	}

	for i := 1; i < len(processes); i++ {
		sb.WriteString(fmt.Sprintf("    %s --> %s\n", ids[i-1], ids[i]))
	}
	for i := len(processes) - 1; i > 0; i-- {
		if processes[i-1].Compensable {
			sb.WriteString(fmt.Sprintf("    %s -. undo .-> %s\n", ids[i], ids[i-1]))
		}
	}

	var styled strings.Builder
	for i, p := range processes {
		if p.Status == "" || p.Status == domain.ProcessPending {
			continue
		}
		styled.WriteString(fmt.Sprintf("    class %s %s;\n", ids[i], p.Status))
	}
	if styled.Len() > 0 {
		sb.WriteString("\n    %% Status Styles\n")
		// Force black text (color:#000) for contrast on both light and dark themes
		sb.WriteString("    classDef succeeded fill:#e8f5e9,stroke:#2e7d32,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef running fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffebee,stroke:#c62828,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef rolled_back fill:#e1f5fe,stroke:#01579b,stroke-width:2px,stroke-dasharray:4,color:#000;\n")
		sb.WriteString(styled.String())
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}
