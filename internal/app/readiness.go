package app

import (
	"context"
	"fmt"
)

// Pinger is anything that can report its own reachability.
type Pinger interface{ Ping(ctx context.Context) error }

// BuildReadinessChecks returns the store and Tika checks. The Tika check is
// nil when no Tika server is configured, which omits it from /readyz.
func BuildReadinessChecks(store func(ctx context.Context) error, tika Pinger) (
	func(ctx context.Context) error,
	func(ctx context.Context) error,
) {
	storeCheck := func(ctx context.Context) error {
		if store == nil {
			return fmt.Errorf("store not configured")
		}
		return store(ctx)
	}
	if tika == nil {
		return storeCheck, nil
	}
	return storeCheck, tika.Ping
}
