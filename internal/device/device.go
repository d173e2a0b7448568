// Package device provides stand-in handshakes for the out-of-band connections a
// test environment would normally open. No real protocol traffic is sent.
package device

import (
	"context"
	"time"
)

// Connector is one handshake performed during the setup phase
type Connector interface {
	// Name returns the connector name (e.g., "ssh", "rdp").
	Name() string

	// Connect performs the handshake.
	Connect(ctx context.Context) error
}

// wait pauses for d, returning early with the context error if ctx is done
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
