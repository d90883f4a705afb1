// Package sink delivers batches of serialized update groups to a
// triplestore, the message bus or a file, and batches producers' groups onto
// a bounded pool of flush workers.
package sink

import "context"

// Sink performs one network write for a batch of update groups. Groups must
// be applied in order. Send reports success or failure for the whole batch.
type Sink interface {
	Send(ctx context.Context, batch []string) error
}

// Func adapts a function to the Sink interface.
type Func func(ctx context.Context, batch []string) error

// Send calls f.
func (f Func) Send(ctx context.Context, batch []string) error {
	return f(ctx, batch)
}
