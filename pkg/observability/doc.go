/*
Package observability turns stack lifecycle signals into Prometheus metrics.

Metrics is an ordinary bus subscriber: attach it to a stack's bus and it keeps
counters for process outcomes, stack outcomes and rollback failures, plus a
histogram of forward execution time per process.
*/
package observability
