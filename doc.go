/*
Package xstack is an execution framework for building stack based tools: an ordered,
reversible pipeline of pluggable processes.

A Stack holds processes in insertion order and runs them front-to-back against one
shared Execution Context. When a process fails, the processes that already succeeded
are compensated in reverse order (LIFO rollback). Every transition is published as a
named signal on a bus, so observers (loggers, metrics, dashboards) can follow a run
without the stack depending on them.

# Concept

Processes are discovered through a Resolver (the default is pkg/registry) and
announced through a Bus (the default is pkg/signal). The stack only depends on those
two interfaces, which keeps process implementations decoupled from each other and
from the host.

# Key Features

  - Deterministic Execution: processes run strictly in push order, one at a time.
  - LIFO Rollback: only the contiguous prefix that succeeded is compensated, newest first.
  - Contained Failures: compensation errors and observer errors never abort a run.
  - Observable Lifecycle: stack_started, process_*, stack_completed / stack_rolled_back / stack_failed.

# Usage

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/xstack"
		"github.com/aretw0/xstack/pkg/domain"
		"github.com/aretw0/xstack/pkg/process"
	)

	func main() {
		stack := xstack.New(xstack.WithName("checkout"))

		_ = stack.Push(process.New("charge",
			func(ctx context.Context, ec *domain.ExecutionContext) (any, error) {
				ec.Set("charged", true)
				return "tx-1", nil
			},
			func(ctx context.Context, ec *domain.ExecutionContext) error {
				ec.Set("charged", false) // refund
				return nil
			},
		))

		result, err := stack.Run(context.Background(), nil)
		if err != nil {
			log.Fatal(err) // misuse only (e.g. running a stack that is not idle)
		}
		log.Println(result.Status)
	}
*/
package xstack
