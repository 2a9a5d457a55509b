package tui

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/xstack/pkg/domain"
	"github.com/muesli/termenv"
)

// Printer renders lifecycle events as one line each, colored when the output supports it.
// It satisfies ports.Handler through Handle.
type Printer struct {
	mu  sync.Mutex
	w   io.Writer
	out *termenv.Output
}

// NewPrinter creates a printer. When color is false, output is plain ASCII.
func NewPrinter(w io.Writer, color bool) *Printer {
	profile := termenv.Ascii
	if color {
		profile = termenv.EnvColorProfile()
	}
	return &Printer{
		w:   w,
		out: termenv.NewOutput(w, termenv.WithProfile(profile)),
	}
}

var markers = map[domain.EventType]struct{ symbol, color string }{
	domain.EventStackStarted:         {"==>", "#818cf8"},
	domain.EventProcessStarted:       {" ->", "#94a3b8"},
	domain.EventProcessSucceeded:     {" ok", "#22c55e"},
	domain.EventProcessFailed:        {" !!", "#ef4444"},
	domain.EventProcessRolledBack:    {" <-", "#38bdf8"},
	domain.EventProcessRollbackError: {" !<", "#f97316"},
	domain.EventStackCompleted:       {"==>", "#22c55e"},
	domain.EventStackRolledBack:      {"<==", "#38bdf8"},
	domain.EventStackFailed:          {"!!!", "#ef4444"},
	domain.EventSignalDispatchError:  {"  ?", "#f97316"},
}

// Handle prints a single event.
func (p *Printer) Handle(_ context.Context, e domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, ok := markers[e.Type]
	if !ok {
		m.symbol, m.color = "  ·", "#94a3b8"
	}

	var sb strings.Builder
	sb.WriteString(p.out.String(m.symbol).Foreground(p.out.Color(m.color)).Bold().String())
	sb.WriteString(" ")
	sb.WriteString(string(e.Type))
	if e.ProcessName != "" {
		sb.WriteString(" ")
		sb.WriteString(p.out.String(e.ProcessName).Bold().String())
	}
	if e.Type == domain.EventStackStarted && e.Stack != "" {
		sb.WriteString(" ")
		sb.WriteString(p.out.String(e.Stack).Bold().String())
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(p.out.String(e.Cause.Error()).Faint().String())
	}

	_, err := fmt.Fprintln(p.w, sb.String())
	return err
}

// Summary renders a run result as markdown.
func Summary(r *domain.RunResult) string {
	var sb strings.Builder

	title := r.Stack
	if title == "" {
		title = "stack"
	}
	fmt.Fprintf(&sb, "# %s: %s\n\n", title, r.Status)
	fmt.Fprintf(&sb, "Run `%s` took %s.\n\n", r.RunID, r.Duration().Round(time.Millisecond))

	if r.Cause != nil {
		fmt.Fprintf(&sb, "> %s\n\n", r.Cause)
	}

	if len(r.Processes) > 0 {
		sb.WriteString("| # | process | status | note |\n|---|---|---|---|\n")
		for i, p := range r.Processes {
			note := ""
			switch {
			case p.RollbackErr != nil:
				note = "rollback error: " + p.RollbackErr.Error()
			case p.Err != nil:
				note = p.Err.Error()
			case p.Status == domain.ProcessRolledBack && !p.Compensable:
				note = "nothing to undo"
			}
			fmt.Fprintf(&sb, "| %d | %s | %s | %s |\n", i+1, p.Name, p.Status, escapeCell(note))
		}
		sb.WriteString("\n")
	}

	if r.Context != nil && r.Context.Len() > 0 {
		sb.WriteString("## Context\n\n")
		snapshot := r.Context.Snapshot()
		keys := make([]string, 0, len(snapshot))
		for k := range snapshot {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "- `%s`: %v\n", k, snapshot[k])
		}
	}

	return sb.String()
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
