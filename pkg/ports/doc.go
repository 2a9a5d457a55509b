/*
Package ports defines the driven ports (interfaces) for the xstack engine.

These interfaces decouple the stack runtime from concrete implementations, allowing
the engine to work with any plugin discovery mechanism, any signal transport and any
run history backend.

# Key Interfaces

  - Process / Compensator: A unit of work and its optional compensating action.
  - Resolver: Turns an identifier into a freshly constructed Process.
  - Bus: Publish/subscribe channel used by the stack to announce lifecycle events.
  - RunHistory: Keeps recent run results for introspection.
*/
package ports
