package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"booking-frontend/internal/apiclient"
	"booking-frontend/internal/auth"
	"booking-frontend/internal/model"
	"booking-frontend/internal/selection"
)

var (
	ErrEmptyOfferID = errors.New("offer id is required")
	ErrEmptySlotID  = errors.New("slot id is required")
)

// Intent is the request to book one slot of one offer.
type Intent struct {
	OfferID string `json:"offer_id"`
	SlotID  string `json:"slot_id"`
}

func (in Intent) Validate() error {
	if in.OfferID == "" {
		return ErrEmptyOfferID
	}
	if in.SlotID == "" {
		return ErrEmptySlotID
	}
	return nil
}

type Outcome int

const (
	OutcomeSucceeded Outcome = iota
	OutcomeConflict
	OutcomeTransient
	OutcomeUnauthenticated
	OutcomeInvalid
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeConflict:
		return "conflict"
	case OutcomeTransient:
		return "transient"
	case OutcomeUnauthenticated:
		return "unauthenticated"
	case OutcomeInvalid:
		return "invalid"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Classify sorts a submission error into the outcome the view acts on.
// Anything unrecognised is transient: the user may retry it.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSucceeded
	case errors.Is(err, apiclient.ErrConflict), errors.Is(err, selection.ErrSlotUnavailable):
		return OutcomeConflict
	case errors.Is(err, apiclient.ErrUnauthorized),
		errors.Is(err, auth.ErrNoCredential),
		errors.Is(err, auth.ErrExpiredCredential):
		return OutcomeUnauthenticated
	case errors.Is(err, apiclient.ErrBadRequest),
		errors.Is(err, ErrEmptyOfferID),
		errors.Is(err, ErrEmptySlotID):
		return OutcomeInvalid
	}
	return OutcomeTransient
}

// Writer performs the booking write.
type Writer interface {
	CreateBooking(ctx context.Context, cred auth.Credential, offerID, slotID string) (model.Booking, error)
}

// Submit validates in and the credential, then issues exactly one write.
// Local failures never reach the network.
func Submit(ctx context.Context, w Writer, cred auth.Credential, in Intent, now time.Time) (model.Booking, Outcome, error) {
	if err := in.Validate(); err != nil {
		return model.Booking{}, OutcomeInvalid, err
	}
	if err := cred.Check(now); err != nil {
		return model.Booking{}, OutcomeUnauthenticated, err
	}
	b, err := w.CreateBooking(ctx, cred, in.OfferID, in.SlotID)
	if err != nil {
		return model.Booking{}, Classify(err), fmt.Errorf("create booking: %w", err)
	}
	return b, OutcomeSucceeded, nil
}
