package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"booking-frontend/internal/auth"
	"booking-frontend/internal/availability"
	"booking-frontend/internal/cache"
	"booking-frontend/internal/model"
)

// API is the part of the marketplace client the view service uses.
type API interface {
	GetOffer(ctx context.Context, id string) (model.Offer, error)
	ListSlots(ctx context.Context, offerID string, w availability.Window) ([]model.Slot, error)
	CreateBooking(ctx context.Context, cred auth.Credential, offerID, slotID string) (model.Booking, error)
	ListServices(ctx context.Context) ([]model.Service, error)
	GetService(ctx context.Context, id string) (model.Service, error)
	ListOffers(ctx context.Context, serviceID string) ([]model.Offer, error)
	ListBookings(ctx context.Context, cred auth.Credential) ([]model.Booking, error)
	GetProfile(ctx context.Context, cred auth.Credential) (model.Profile, error)
	ListActivities(ctx context.Context, cred auth.Credential, limit int) ([]model.Activity, error)
}

type App struct {
	API   API
	Cache cache.QueryCache
	Log   *zap.Logger
	// Loc is the viewer location used when a view does not name one.
	Loc   *time.Location
	Views *ViewStore
	Now   func() time.Time

	sf singleflight.Group

	// epochs counts invalidations per slot cache key; a flight that started
	// under an older epoch must not write its result back.
	epochMu sync.Mutex
	epochs  map[string]uint64
}

func New(api API, qc cache.QueryCache, log *zap.Logger, loc *time.Location, idleTTL time.Duration) *App {
	if qc == nil {
		qc = cache.NewMemoryCache(time.Minute)
	}
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	a := &App{
		API:    api,
		Cache:  qc,
		Log:    log,
		Loc:    loc,
		Now:    time.Now,
		epochs: make(map[string]uint64),
	}
	a.Views = NewViewStore(idleTTL, log)
	return a
}

func (a *App) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

func (a *App) epoch(key string) uint64 {
	a.epochMu.Lock()
	defer a.epochMu.Unlock()
	return a.epochs[key]
}

func (a *App) bumpEpoch(key string) {
	a.epochMu.Lock()
	defer a.epochMu.Unlock()
	if a.epochs == nil {
		a.epochs = make(map[string]uint64)
	}
	a.epochs[key]++
}
