/*
Package domain contains the core models of the xstack execution engine.

It defines the entities shared by the stack runtime, its adapters and its observers.
This package is kept pure and free of external dependencies like I/O or persistence,
following Hexagonal Architecture principles.

# Key Entities

  - ExecutionContext: the key/value bag shared by every process of a single run.
  - ProcessStatus / StackStatus: the lifecycle states of a process and of its stack.
  - Event: a lifecycle signal published by the stack (see the Event* constants).
  - RunResult: the outcome of a stack run, including per-process reports.
  - Errors: ProcessError, UnknownProcessError, ProcessConstructionError,
    DuplicateProcessNameError and InvalidStateError.
*/
package domain
