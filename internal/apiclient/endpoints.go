package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"booking-frontend/internal/auth"
	"booking-frontend/internal/availability"
	"booking-frontend/internal/model"
)

// GET /offers/{id}
func (c *Client) GetOffer(ctx context.Context, id string) (model.Offer, error) {
	var o model.Offer
	if id == "" {
		return o, &Error{Method: http.MethodGet, Path: "/offers/", Status: http.StatusNotFound, Message: "empty offer id"}
	}
	err := c.get(ctx, auth.Credential{}, "/offers/"+url.PathEscape(id), nil, &o)
	return o, err
}

// GET /offers/{id}/slots?available=true&from=..&to=..
// Bounds are whole-second UTC instants.
func (c *Client) ListSlots(ctx context.Context, offerID string, w availability.Window) ([]model.Slot, error) {
	from, to := w.QueryBounds()
	q := url.Values{}
	q.Set("available", "true")
	q.Set("from", from)
	q.Set("to", to)
	var slots []model.Slot
	if err := c.get(ctx, auth.Credential{}, "/offers/"+url.PathEscape(offerID)+"/slots", q, &slots); err != nil {
		return nil, err
	}
	for i := range slots {
		if slots[i].OfferID == "" {
			slots[i].OfferID = offerID
		}
	}
	return slots, nil
}

type createBookingReq struct {
	OfferID string `json:"offer_id"`
	SlotID  string `json:"slot_id"`
}

// POST /bookings
func (c *Client) CreateBooking(ctx context.Context, cred auth.Credential, offerID, slotID string) (model.Booking, error) {
	var b model.Booking
	err := c.send(ctx, cred, http.MethodPost, "/bookings", createBookingReq{OfferID: offerID, SlotID: slotID}, &b)
	return b, err
}

// GET /services
func (c *Client) ListServices(ctx context.Context) ([]model.Service, error) {
	var out []model.Service
	err := c.get(ctx, auth.Credential{}, "/services", nil, &out)
	return out, err
}

// GET /services/{id}
func (c *Client) GetService(ctx context.Context, id string) (model.Service, error) {
	var s model.Service
	err := c.get(ctx, auth.Credential{}, "/services/"+url.PathEscape(id), nil, &s)
	return s, err
}

// GET /offers?service_id=
func (c *Client) ListOffers(ctx context.Context, serviceID string) ([]model.Offer, error) {
	q := url.Values{}
	if serviceID != "" {
		q.Set("service_id", serviceID)
	}
	var out []model.Offer
	err := c.get(ctx, auth.Credential{}, "/offers", q, &out)
	return out, err
}

// GET /bookings
func (c *Client) ListBookings(ctx context.Context, cred auth.Credential) ([]model.Booking, error) {
	var out []model.Booking
	err := c.get(ctx, cred, "/bookings", nil, &out)
	return out, err
}

// GET /profile/me
func (c *Client) GetProfile(ctx context.Context, cred auth.Credential) (model.Profile, error) {
	var p model.Profile
	err := c.get(ctx, cred, "/profile/me", nil, &p)
	return p, err
}

// GET /activities?limit=
// A non-positive limit leaves the page size to the backend.
func (c *Client) ListActivities(ctx context.Context, cred auth.Credential, limit int) ([]model.Activity, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []model.Activity
	err := c.get(ctx, cred, "/activities", q, &out)
	return out, err
}
