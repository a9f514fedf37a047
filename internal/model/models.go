package model

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type PriceType string

const (
	PriceHourly PriceType = "hourly"
	PriceFixed  PriceType = "fixed"
)

// Money is a decimal amount in a three-letter currency.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

func (m Money) String() string {
	return m.Currency + " " + m.Amount.StringFixed(2)
}

type Offer struct {
	ID           string          `json:"id"`
	ServiceID    string          `json:"serviceId,omitempty"`
	FreelancerID string          `json:"freelancerId,omitempty"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	PriceType    PriceType       `json:"priceType"`
	DurationMin  int             `json:"durationEstimateMin"`
	IsActive     bool            `json:"isActive"`
}

func (o Offer) Money() Money {
	return Money{Amount: o.Price, Currency: o.Currency}
}

// PriceLabel renders the price the way the offer page shows it,
// e.g. "EUR 45.00 per hour".
func (o Offer) PriceLabel() string {
	if o.PriceType == PriceHourly {
		return o.Money().String() + " per hour"
	}
	return o.Money().String() + " fixed price"
}

// DurationLabel renders DurationMin as "45 min", "1 hr" or "1 hr 30 min".
func (o Offer) DurationLabel() string {
	m := o.DurationMin
	if m < 60 {
		return strconv.Itoa(m) + " min"
	}
	out := strconv.Itoa(m/60) + " hr"
	if m%60 != 0 {
		out += " " + strconv.Itoa(m%60) + " min"
	}
	return out
}

// Slot is a bookable interval of an offer.
type Slot struct {
	ID      string    `json:"id"`
	OfferID string    `json:"offerId,omitempty"`
	Start   time.Time `json:"startTime"`
	End     time.Time `json:"endTime"`
	Booked  bool      `json:"isBooked"`
}

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

type Booking struct {
	ID        string        `json:"id"`
	OfferID   string        `json:"offerId"`
	SlotID    string        `json:"slotId"`
	OwnerID   string        `json:"ownerId"`
	Status    BookingStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

type Service struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Description        string          `json:"description,omitempty"`
	BasePrice          decimal.Decimal `json:"basePrice"`
	DefaultDurationMin int             `json:"defaultDurationMin"`
}

type Profile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Activity is one entry of the signed-in user's recent activity feed.
type Activity struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}
