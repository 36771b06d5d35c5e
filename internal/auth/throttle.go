package auth

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

const throttlePrefix = "helpdesk:login:"

// LoginThrottle limits login attempts per key within a fixed window.
type LoginThrottle struct {
	limiter *limiter.Limiter
}

// NewLoginThrottle builds a throttle from a formatted rate such as "10-M".
// A nil client falls back to a process-local store.
func NewLoginThrottle(client *redis.Client, rate string) (*LoginThrottle, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, err
	}

	options := limiter.StoreOptions{
		Prefix:          throttlePrefix,
		MaxRetry:        3,
		CleanUpInterval: limiter.DefaultCleanUpInterval,
	}
	var store limiter.Store
	if client == nil {
		store = memory.NewStoreWithOptions(options)
	} else {
		store, err = sredis.NewStoreWithOptions(client, options)
		if err != nil {
			return nil, err
		}
	}
	return &LoginThrottle{limiter: limiter.New(store, parsed)}, nil
}

// Allow consumes one attempt for key and reports whether it is within the limit.
func (t *LoginThrottle) Allow(ctx context.Context, key string) (bool, error) {
	if t == nil {
		return true, nil
	}
	state, err := t.limiter.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return !state.Reached, nil
}
