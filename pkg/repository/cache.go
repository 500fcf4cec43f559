package repository

import (
	"context"
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache miss")

// Cache stores JSON-encoded values. Implementations return ErrCacheMiss for
// absent keys.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// NopCache is used when redis is disabled; every lookup misses.
type NopCache struct{}

func (NopCache) GetJSON(context.Context, string, interface{}) error { return ErrCacheMiss }

func (NopCache) SetJSON(context.Context, string, interface{}, time.Duration) error { return nil }

func (NopCache) Del(context.Context, ...string) error { return nil }
