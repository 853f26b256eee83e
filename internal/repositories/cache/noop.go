package cache

import (
	"context"
	"time"
)

// Noop satisfies the cache and lock interfaces when redis is disabled. Every
// read misses and every lock is granted.
type Noop struct{}

func (Noop) Get(context.Context, string, interface{}) (bool, error) { return false, nil }

func (Noop) SetWithTTL(context.Context, string, interface{}, time.Duration) error { return nil }

func (Noop) Delete(context.Context, ...string) error { return nil }

func (Noop) AcquireLock(context.Context, string, string, time.Duration) (bool, error) {
	return true, nil
}

func (Noop) ReleaseLock(context.Context, string, string) error { return nil }
