// Package notify delivers one-time codes to account holders. The
// verification flow only depends on the Dispatcher interface; the
// concrete transport (SMTP in production, log output in development)
// is chosen at wiring time.
package notify

import (
	"context"
	"time"
)

// Dispatcher sends a one-time code to the given address. Implementations
// must treat the code as a secret: it may be delivered, never persisted
// or logged.
type Dispatcher interface {
	Send(ctx context.Context, address, code string, ttl time.Duration) error
}
