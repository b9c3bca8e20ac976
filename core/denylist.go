package core

import (
	"context"
	"time"
)

// SessionDenylist holds account IDs whose live sessions must be rejected
// before their tokens naturally expire (eg. a declined account). Entries
// only need to outlive the longest token lifetime.
type SessionDenylist interface {
	Deny(ctx context.Context, accountID string, ttl time.Duration) error
	IsDenied(ctx context.Context, accountID string) (bool, error)
}
