package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/xstack/internal/presentation/graph"
	"github.com/aretw0/xstack/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name        string
		processes   []domain.ProcessReport
		contains    []string
		notContains []string
	}{
		{
			name: "Shapes",
			processes: []domain.ProcessReport{
				{Name: "reserve", Compensable: true},
				{Name: "notify"},
			},
			contains: []string{
				`p0_reserve[["reserve"]]`,
				`p1_notify["notify"]`,
				"p0_reserve --> p1_notify",
				"p1_notify -. undo .-> p0_reserve",
			},
			notContains: []string{"classDef"},
		},
		{
			name: "Non-compensable has no undo edge",
			processes: []domain.ProcessReport{
				{Name: "read"},
				{Name: "write", Compensable: true},
			},
			notContains: []string{"undo"},
		},
		{
			name: "Sanitized IDs",
			processes: []domain.ProcessReport{
				{Name: "context.set"},
				{Name: "ship-it/now"},
			},
			contains: []string{
				`p0_context_set["context.set"]`,
				`p1_ship_it_now["ship-it/now"]`,
			},
		},
		{
			name: "Status Overlay",
			processes: []domain.ProcessReport{
				{Name: "a", Compensable: true, Status: domain.ProcessRolledBack},
				{Name: "b", Status: domain.ProcessFailed},
				{Name: "c", Status: domain.ProcessPending},
			},
			contains: []string{
				"class p0_a rolled_back;",
				"class p1_b failed;",
				"classDef failed",
			},
			notContains: []string{"class p2_c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := graph.GenerateMermaid(tt.processes)
			assert.True(t, strings.HasPrefix(out, "graph TD\n"))
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.notContains {
				assert.NotContains(t, out, s)
			}
		})
	}
}
