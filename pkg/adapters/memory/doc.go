// Package memory provides in-memory adapters. Nothing here survives a restart.
package memory
