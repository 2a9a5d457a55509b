/*
Package signal provides the default in-process implementation of ports.Bus.

Delivery is synchronous and ordered: Emit returns only after every subscriber has
been called, so observers see events in the same order as the stack state changes
that produced them. A slow subscriber therefore delays the publisher.

Subscriber failures (returned errors or panics) are contained and re-published as
domain.EventSignalDispatchError; they never reach the publisher.
*/
package signal
