package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"booking-frontend/internal/availability"
)

// QueryCache stores encoded API answers keyed by query.
type QueryCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte) error
	Delete(ctx context.Context, keys ...string) error
}

var ErrCacheMiss = errors.New("cache miss")

// SlotsKey identifies the slot list of an offer for one window. Two views of
// the same offer and window share it.
func SlotsKey(offerID string, w availability.Window) string {
	from, to := w.QueryBounds()
	return fmt.Sprintf("slots:%s:%s:%s", offerID, from, to)
}

func OfferKey(offerID string) string {
	return fmt.Sprintf("offer:%s", offerID)
}

// Load decodes the cached value for key into a T.
func Load[T any](ctx context.Context, c QueryCache, key string) (T, error) {
	var v T
	data, err := c.Get(ctx, key)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("unmarshal %s failed: %w", key, err)
	}
	return v, nil
}

func Store[T any](ctx context.Context, c QueryCache, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", key, err)
	}
	return c.Set(ctx, key, data)
}
