/*
Package http exposes stacks over HTTP.

	GET  /health          liveness
	GET  /info            application and version
	GET  /processes       registered process identifiers
	POST /runs            build a stack from a manifest and run it
	GET  /runs            recent run IDs, most recent first
	GET  /runs/{id}       a recorded run
	GET  /events          lifecycle events as Server-Sent Events (optionally ?run_id=)
	GET  /metrics         Prometheus metrics, when a metrics handler is configured
*/
package http
