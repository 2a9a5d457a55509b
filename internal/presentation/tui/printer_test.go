package tui_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/xstack/internal/presentation/tui"
	"github.com/aretw0/xstack/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrinter_Plain(t *testing.T) {
	var buf bytes.Buffer
	p := tui.NewPrinter(&buf, false)
	ctx := context.Background()

	require.NoError(t, p.Handle(ctx, domain.Event{Type: domain.EventStackStarted, Stack: "deploy"}))
	require.NoError(t, p.Handle(ctx, domain.Event{Type: domain.EventProcessSucceeded, ProcessName: "build"}))
	require.NoError(t, p.Handle(ctx, domain.Event{Type: domain.EventProcessFailed, ProcessName: "ship", Cause: errors.New("boom")}))

	assert.Equal(t,
		"==> stack_started deploy\n"+
			" ok process_succeeded build\n"+
			" !! process_failed ship: boom\n",
		buf.String())
}

func TestSummary(t *testing.T) {
	start := time.Now()
	res := &domain.RunResult{
		RunID:   "r1",
		Stack:   "deploy",
		Status:  domain.StackRolledBack,
		Cause:   errors.New("ship failed"),
		Context: domain.NewExecutionContext(map[string]any{"env": "prod"}),
		Processes: []domain.ProcessReport{
			{Name: "build", Status: domain.ProcessRolledBack, Compensable: true, RollbackErr: errors.New("a|b")},
			{Name: "lint", Status: domain.ProcessRolledBack},
			{Name: "ship", Status: domain.ProcessFailed, Err: errors.New("ship failed")},
		},
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Second),
	}

	md := tui.Summary(res)
	assert.Contains(t, md, "# deploy: rolled_back")
	assert.Contains(t, md, "Run `r1` took 2s.")
	assert.Contains(t, md, "> ship failed")
	assert.Contains(t, md, `| 1 | build | rolled_back | rollback error: a\|b |`)
	assert.Contains(t, md, "| 2 | lint | rolled_back | nothing to undo |")
	assert.Contains(t, md, "- `env`: prod")
}

func TestRenderer(t *testing.T) {
	render := tui.NewRenderer(80)
	out, err := render("# hello")
	require.NoError(t, err)
	assert.Contains(t, out, "hello")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf)
	assert.Contains(t, buf.String(), "|_")
}
