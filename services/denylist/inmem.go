package denysvc

import (
	"context"
	"sync"
	"time"

	"github.com/iamthanushgowdap/apsconnect/core"
)

// InmemDenylist keeps denied IDs in memory; used in DEV and tests.
type InmemDenylist struct {
	mu      sync.RWMutex
	entries map[string]time.Time // id -> expiry
}

var _ core.SessionDenylist = (*InmemDenylist)(nil)

func NewInmemDenylist() *InmemDenylist {
	return &InmemDenylist{entries: make(map[string]time.Time)}
}

func (d *InmemDenylist) Deny(ctx context.Context, accountID string, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[accountID] = time.Now().Add(ttl)
	return nil
}

func (d *InmemDenylist) IsDenied(ctx context.Context, accountID string) (bool, error) {
	d.mu.RLock()
	expiry, ok := d.entries[accountID]
	d.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		d.mu.Lock()
		delete(d.entries, accountID)
		d.mu.Unlock()
		return false, nil
	}
	return true, nil
}
