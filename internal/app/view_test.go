package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"booking-frontend/internal/auth"
	"booking-frontend/internal/availability"
	"booking-frontend/internal/cache"
	"booking-frontend/internal/model"
	"booking-frontend/internal/selection"
)

// stubAPI serves a fixed offer; slot lists come from listSlots.
type stubAPI struct {
	offer     model.Offer
	listSlots func(ctx context.Context, call int) ([]model.Slot, error)
	slotCalls atomic.Int32
	profiles  atomic.Int32
}

func (s *stubAPI) GetOffer(_ context.Context, id string) (model.Offer, error) {
	return s.offer, nil
}

func (s *stubAPI) ListSlots(ctx context.Context, _ string, _ availability.Window) ([]model.Slot, error) {
	n := int(s.slotCalls.Add(1))
	return s.listSlots(ctx, n)
}

func (s *stubAPI) CreateBooking(context.Context, auth.Credential, string, string) (model.Booking, error) {
	return model.Booking{ID: "b1"}, nil
}

func (s *stubAPI) ListServices(context.Context) ([]model.Service, error) { return nil, nil }

func (s *stubAPI) GetService(context.Context, string) (model.Service, error) {
	return model.Service{}, nil
}

func (s *stubAPI) ListOffers(context.Context, string) ([]model.Offer, error) { return nil, nil }

func (s *stubAPI) ListBookings(context.Context, auth.Credential) ([]model.Booking, error) {
	return nil, nil
}

func (s *stubAPI) GetProfile(context.Context, auth.Credential) (model.Profile, error) {
	s.profiles.Add(1)
	return model.Profile{ID: "u1", Role: "owner"}, nil
}

func (s *stubAPI) ListActivities(context.Context, auth.Credential, int) ([]model.Activity, error) {
	return nil, nil
}

var testNow = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

func slotAt(id string, day, hour int) model.Slot {
	start := time.Date(2024, 1, day, hour, 0, 0, 0, time.UTC)
	return model.Slot{ID: id, OfferID: "o1", Start: start, End: start.Add(time.Hour)}
}

func newStubApp(t *testing.T, api API) *App {
	t.Helper()
	a := New(api, cache.NewMemoryCache(time.Minute), zaptest.NewLogger(t), time.UTC, time.Minute)
	a.Now = func() time.Time { return testNow }
	return a
}

func TestLoad_LateResultIsDiscarded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	api := &stubAPI{
		offer: model.Offer{ID: "o1", Title: "Walk"},
		listSlots: func(_ context.Context, call int) ([]model.Slot, error) {
			if call == 1 {
				close(started)
				<-release
				return []model.Slot{slotAt("old", 2, 9)}, nil
			}
			return []model.Slot{slotAt("new", 2, 10)}, nil
		},
	}
	a := newStubApp(t, api)
	v := newView(a, "v1", "o1", time.UTC)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, v.Load(auth.Credential{}, false))
	}()
	<-started

	require.NoError(t, v.Load(auth.Credential{}, true))
	close(release)
	wg.Wait()

	_, ok := v.index.Lookup("new")
	assert.True(t, ok)
	_, ok = v.index.Lookup("old")
	assert.False(t, ok, "the older generation must not overwrite the newer one")
	assert.Equal(t, StatusReady, v.Snapshot().Status)
}

func TestLoad_ResultAfterCloseIsDropped(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	api := &stubAPI{
		offer: model.Offer{ID: "o1"},
		listSlots: func(_ context.Context, _ int) ([]model.Slot, error) {
			close(started)
			<-release
			return []model.Slot{slotAt("s1", 2, 9)}, nil
		},
	}
	a := newStubApp(t, api)
	v := newView(a, "v1", "o1", time.UTC)

	done := make(chan error, 1)
	go func() { done <- v.Load(auth.Credential{}, false) }()
	<-started

	v.Close()
	close(release)
	assert.NoError(t, <-done)

	snap := v.Snapshot()
	assert.Equal(t, StatusClosed, snap.Status)
	assert.Zero(t, v.index.Len())
	assert.ErrorIs(t, v.Load(auth.Credential{}, false), ErrViewClosed)
}

func TestLoad_FetchesProfileWithCredential(t *testing.T) {
	api := &stubAPI{
		offer:     model.Offer{ID: "o1"},
		listSlots: func(context.Context, int) ([]model.Slot, error) { return nil, nil },
	}
	a := newStubApp(t, api)

	v := newView(a, "v1", "o1", time.UTC)
	require.NoError(t, v.Load(auth.Credential{}, false))
	assert.Zero(t, api.profiles.Load())
	assert.Nil(t, v.Snapshot().Viewer)

	v2 := newView(a, "v2", "o1", time.UTC)
	require.NoError(t, v2.Load(auth.New("tok"), false))
	assert.Equal(t, int32(1), api.profiles.Load())
	require.NotNil(t, v2.Snapshot().Viewer)
	assert.Equal(t, "owner", v2.Snapshot().Viewer.Role)
}

func TestLoad_ProfileFollowsLaterSignIn(t *testing.T) {
	api := &stubAPI{
		offer:     model.Offer{ID: "o1"},
		listSlots: func(context.Context, int) ([]model.Slot, error) { return nil, nil },
	}
	a := newStubApp(t, api)
	v := newView(a, "v1", "o1", time.UTC)

	require.NoError(t, v.Load(auth.Credential{}, false))
	assert.Nil(t, v.Snapshot().Viewer)

	require.NoError(t, v.Load(auth.New("tok"), true))
	require.NotNil(t, v.Snapshot().Viewer)
	assert.Equal(t, "owner", v.Snapshot().Viewer.Role)
	assert.Equal(t, int32(1), api.profiles.Load())

	// an anonymous refresh keeps the profile already shown
	require.NoError(t, v.Load(auth.Credential{}, true))
	assert.NotNil(t, v.Snapshot().Viewer)
	assert.Equal(t, int32(1), api.profiles.Load())
}

func TestLoad_SlotErrorAfterCloseKeepsOfferUnset(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	api := &stubAPI{
		offer: model.Offer{ID: "o1", Title: "Walk"},
		listSlots: func(context.Context, int) ([]model.Slot, error) {
			close(started)
			<-release
			return nil, errors.New("backend down")
		},
	}
	a := newStubApp(t, api)
	v := newView(a, "v1", "o1", time.UTC)

	done := make(chan error, 1)
	go func() { done <- v.Load(auth.Credential{}, false) }()
	<-started

	v.Close()
	assert.NoError(t, <-done)
	close(release)

	v.mu.Lock()
	defer v.mu.Unlock()
	assert.Nil(t, v.offer, "a closed view takes no results")
	assert.Equal(t, StatusClosed, v.status)
}

func TestLoadSlots_InvalidationBeatsOlderFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	api := &stubAPI{
		offer: model.Offer{ID: "o1"},
		listSlots: func(_ context.Context, call int) ([]model.Slot, error) {
			s := slotAt("s1", 2, 9)
			if call == 1 {
				close(started)
				<-release
				return []model.Slot{s}, nil
			}
			s.Booked = true
			return []model.Slot{s}, nil
		},
	}
	a := newStubApp(t, api)
	ctx := context.Background()
	w := availability.NewWindow(testNow, time.UTC)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := a.loadSlots(ctx, "o1", w, false)
		assert.NoError(t, err)
	}()
	<-started

	a.invalidateSlots(ctx, "o1", w)
	slots, err := a.loadSlots(ctx, "o1", w, true)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.True(t, slots[0].Booked)

	close(release)
	<-done

	cached, err := cache.Load[[]model.Slot](ctx, a.Cache, cache.SlotsKey("o1", w))
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.True(t, cached[0].Booked, "the older flight must not overwrite the newer list")
	assert.Equal(t, int32(2), api.slotCalls.Load())
}

func TestLoad_RecomputesWindowOnRefresh(t *testing.T) {
	api := &stubAPI{
		offer:     model.Offer{ID: "o1"},
		listSlots: func(context.Context, int) ([]model.Slot, error) { return nil, nil },
	}
	a := newStubApp(t, api)
	v := newView(a, "v1", "o1", time.UTC)
	require.NoError(t, v.Load(auth.Credential{}, false))
	_, err := v.Dispatch(selection.SelectDay{Day: availability.Day{Year: 2024, Month: 1, Day: 1}})
	require.NoError(t, err)

	// a day later the first window day is gone
	a.Now = func() time.Time { return testNow.Add(24 * time.Hour) }
	require.NoError(t, v.Load(auth.Credential{}, true))

	snap := v.Snapshot()
	assert.Equal(t, availability.Day{Year: 2024, Month: 1, Day: 2}, snap.From)
	assert.Equal(t, snap.From, snap.SelectedDay)
}

func TestViewStore_Sweep(t *testing.T) {
	api := &stubAPI{
		offer:     model.Offer{ID: "o1"},
		listSlots: func(context.Context, int) ([]model.Slot, error) { return nil, nil },
	}
	a := newStubApp(t, api)
	v, err := a.OpenView("o1", "", auth.Credential{})
	require.NoError(t, err)
	require.Equal(t, 1, a.Views.Len())

	assert.Zero(t, a.Views.Sweep(testNow.Add(30*time.Second)))
	assert.Equal(t, 1, a.Views.Sweep(testNow.Add(2*time.Minute)))
	assert.Zero(t, a.Views.Len())
	assert.Error(t, v.Context().Err(), "swept views are closed")
}

func TestStartSweeper_RejectsBadSchedule(t *testing.T) {
	a := newStubApp(t, &stubAPI{})
	_, err := a.StartSweeper("not a schedule")
	assert.Error(t, err)

	c, err := a.StartSweeper("@every 1h")
	require.NoError(t, err)
	c.Stop()
}
