package notifier

import (
	"context"
	"errors"
)

// ErrTransientDelivery marks a delivery failure worth retrying. Anything not
// wrapped in it is treated as permanent and fails the job immediately.
var ErrTransientDelivery = errors.New("transient delivery failure")

// Notifier sends a single message through the external messaging provider.
type Notifier interface {
	Send(ctx context.Context, to, body string) error
}

func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientDelivery)
}
