package app

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"booking-frontend/internal/availability"
	"booking-frontend/internal/cache"
	"booking-frontend/internal/model"
)

// shared runs fn once per key across concurrent callers. The flight itself is
// detached from any single caller's cancellation; each caller still stops
// waiting when its own ctx ends.
func shared[T any](ctx context.Context, a *App, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	ch := a.sf.DoChan(key, func() (interface{}, error) {
		return fn(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// loadOffer reads the offer through the query cache.
func (a *App) loadOffer(ctx context.Context, id string) (model.Offer, error) {
	key := cache.OfferKey(id)
	if o, err := cache.Load[model.Offer](ctx, a.Cache, key); err == nil {
		return o, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		a.Log.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	}
	return shared(ctx, a, key, func(ctx context.Context) (model.Offer, error) {
		o, err := a.API.GetOffer(ctx, id)
		if err != nil {
			return o, err
		}
		if err := cache.Store(ctx, a.Cache, key, o); err != nil {
			a.Log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		}
		return o, nil
	})
}

// loadSlots fetches the available slots of an offer for the window. With
// fresh set the cached list is skipped and replaced.
func (a *App) loadSlots(ctx context.Context, offerID string, w availability.Window, fresh bool) ([]model.Slot, error) {
	key := cache.SlotsKey(offerID, w)
	if !fresh {
		if s, err := cache.Load[[]model.Slot](ctx, a.Cache, key); err == nil {
			return s, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			a.Log.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
	}
	epoch := a.epoch(key)
	return shared(ctx, a, key, func(ctx context.Context) ([]model.Slot, error) {
		slots, err := a.API.ListSlots(ctx, offerID, w)
		if err != nil {
			return nil, err
		}
		a.storeSlots(ctx, key, epoch, slots)
		return slots, nil
	})
}

// storeSlots caches slots unless key was invalidated after the fetch began;
// a newer fetch then owns the entry.
func (a *App) storeSlots(ctx context.Context, key string, epoch uint64, slots []model.Slot) {
	a.epochMu.Lock()
	defer a.epochMu.Unlock()
	if a.epochs[key] != epoch {
		a.Log.Debug("dropping slots fetched before invalidation", zap.String("key", key))
		return
	}
	if err := cache.Store(ctx, a.Cache, key, slots); err != nil {
		a.Log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// invalidateSlots drops the cached slot list so the next load hits the API.
func (a *App) invalidateSlots(ctx context.Context, offerID string, w availability.Window) {
	key := cache.SlotsKey(offerID, w)
	a.bumpEpoch(key)
	a.sf.Forget(key)
	if err := a.Cache.Delete(ctx, key); err != nil {
		a.Log.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
	}
}
