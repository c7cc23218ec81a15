package cache

import (
	"context"
	"time"
)

// NullCache disables descriptor memoization: every lookup misses, so the
// resolver parses each descriptor it fetches. It is the resolver's default
// and what "--descriptor-cache off" selects.
type NullCache struct{}

// NewNullCache returns a cache that never remembers a descriptor.
func NewNullCache() Cache { return NullCache{} }

func (NullCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NullCache) Delete(context.Context, string) error { return nil }

func (NullCache) Close() error { return nil }

var _ Cache = NullCache{}
