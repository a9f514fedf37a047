package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booking-frontend/internal/auth"
	"booking-frontend/internal/availability"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL, Timeout: 2 * time.Second}, nil)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	_, err := New(Config{BaseURL: "/api"}, nil)
	assert.Error(t, err)
}

func TestGetOffer(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/offers/o1", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{
			"id": "o1", "title": "Dog walking", "price": 45, "currency": "EUR",
			"priceType": "hourly", "durationEstimateMin": 90,
		})
	}))

	o, err := c.GetOffer(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, "Dog walking", o.Title)
	assert.True(t, o.Price.Equal(decimal.NewFromInt(45)))
	assert.Equal(t, "EUR 45.00 per hour", o.PriceLabel())
	assert.Equal(t, "1 hr 30 min", o.DurationLabel())
}

func TestGetOffer_NotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "offer not found"})
	}))

	_, err := c.GetOffer(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
	assert.Contains(t, err.Error(), "offer not found")
}

func TestListSlots_QueryBounds(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	w := availability.NewWindow(time.Date(2024, 3, 4, 15, 30, 0, 123, loc), loc)

	c := newTestClient(t, http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/offers/o1/slots", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "true", q.Get("available"))
		assert.Equal(t, "2024-03-03T23:00:00Z", q.Get("from"))
		assert.Equal(t, "2024-03-10T23:00:00Z", q.Get("to"))
		writeJSON(rw, http.StatusOK, []map[string]any{
			{"id": "s1", "startTime": "2024-03-05T09:00:00Z", "endTime": "2024-03-05T10:00:00Z", "isBooked": false},
		})
	}))

	slots, err := c.ListSlots(context.Background(), "o1", w)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "s1", slots[0].ID)
	assert.Equal(t, "o1", slots[0].OfferID)
}

func TestCreateBooking_SendsBearerAndBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/bookings", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"offer_id": "o1", "slot_id": "s1"}, body)
		writeJSON(w, http.StatusCreated, map[string]any{"id": "b1", "offerId": "o1", "slotId": "s1", "status": "pending"})
	}))

	b, err := c.CreateBooking(context.Background(), auth.New("tok-1"), "o1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "b1", b.ID)
	assert.EqualValues(t, "pending", b.Status)
}

func TestCreateBooking_StatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusConflict, ErrConflict},
		{http.StatusUnprocessableEntity, ErrConflict},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusBadRequest, ErrBadRequest},
		{http.StatusInternalServerError, ErrUnavailable},
		{http.StatusBadGateway, ErrUnavailable},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, map[string]string{"message": "nope"})
			}))
			_, err := c.CreateBooking(context.Background(), auth.New("t"), "o1", "s1")
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCreateBooking_IssuedOnce(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	_, err := c.CreateBooking(context.Background(), auth.New("t"), "o1", "s1")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c, err := New(Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)
	srv.Close()

	_, err = c.GetOffer(context.Background(), "o1")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCanceledContext(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{})
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GetOffer(ctx, "o1")
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, ErrUnavailable))
}

func TestBreakerOpensOnServerErrorsOnly(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusNotFound)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := c.GetOffer(ctx, "o1")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, "closed", c.BreakerState())

	status.Store(http.StatusInternalServerError)
	for i := 0; i < 10; i++ {
		_, _ = c.GetOffer(ctx, "o1")
	}
	assert.Equal(t, "open", c.BreakerState())

	_, err := c.GetOffer(ctx, "o1")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Zero(t, StatusOf(err))
}

func TestProfileAndBookingsUseCredential(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing authorization"})
			return
		}
		switch r.URL.Path {
		case "/profile/me":
			writeJSON(w, http.StatusOK, map[string]string{"id": "u1", "email": "a@b.c", "role": "owner"})
		case "/bookings":
			writeJSON(w, http.StatusOK, []map[string]string{{"id": "b1", "status": "confirmed"}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	ctx := context.Background()

	_, err := c.GetProfile(ctx, auth.Credential{})
	assert.ErrorIs(t, err, ErrUnauthorized)

	p, err := c.GetProfile(ctx, auth.New("tok"))
	require.NoError(t, err)
	assert.Equal(t, "owner", p.Role)

	bs, err := c.ListBookings(ctx, auth.New("tok"))
	require.NoError(t, err)
	require.Len(t, bs, 1)
	assert.EqualValues(t, "confirmed", bs[0].Status)
}

func TestCatalog(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/services":
			writeJSON(w, http.StatusOK, []map[string]any{{"id": "svc1", "name": "Grooming", "basePrice": "20.50"}})
		case "/services/svc1":
			writeJSON(w, http.StatusOK, map[string]any{"id": "svc1", "name": "Grooming"})
		case "/offers":
			assert.Equal(t, "svc1", r.URL.Query().Get("service_id"))
			writeJSON(w, http.StatusOK, []map[string]any{{"id": "o1", "serviceId": "svc1"}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	ctx := context.Background()

	svcs, err := c.ListServices(ctx)
	require.NoError(t, err)
	require.Len(t, svcs, 1)
	assert.Equal(t, "20.5", svcs[0].BasePrice.String())

	svc, err := c.GetService(ctx, "svc1")
	require.NoError(t, err)
	assert.Equal(t, "Grooming", svc.Name)

	offers, err := c.ListOffers(ctx, "svc1")
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, "svc1", offers[0].ServiceID)
}

func TestListActivities(t *testing.T) {
	var queries []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/activities", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		queries = append(queries, r.URL.RawQuery)
		writeJSON(w, http.StatusOK, []map[string]any{{
			"id": "a1", "userId": "u1", "title": "Booking confirmed",
			"message": "Walk on Monday", "type": "booking", "createdAt": "2024-01-01T09:00:00Z",
		}})
	}))
	ctx := context.Background()

	acts, err := c.ListActivities(ctx, auth.New("tok"), 5)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, "Booking confirmed", acts[0].Title)
	assert.Equal(t, "booking", acts[0].Type)
	assert.True(t, acts[0].CreatedAt.Equal(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)))

	_, err = c.ListActivities(ctx, auth.New("tok"), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"limit=5", ""}, queries)
}
