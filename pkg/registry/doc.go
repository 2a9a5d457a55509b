// Package registry is the default process discovery mechanism: a concurrency safe
// map from identifiers to factories, consumed by stacks through ports.Resolver.
package registry
