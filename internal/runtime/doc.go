// Package runtime implements the stack state machine: ordered forward execution,
// failure detection and LIFO rollback of the succeeded prefix, with every
// transition announced on a ports.Bus.
package runtime
