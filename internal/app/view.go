package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"booking-frontend/internal/apiclient"
	"booking-frontend/internal/auth"
	"booking-frontend/internal/availability"
	"booking-frontend/internal/booking"
	"booking-frontend/internal/model"
	"booking-frontend/internal/selection"
)

type Status string

const (
	StatusLoading    Status = "loading"
	StatusReady      Status = "ready"
	StatusNotFound   Status = "not_found"
	StatusLoadFailed Status = "load_failed"
	StatusClosed     Status = "closed"
)

var ErrViewClosed = errors.New("view closed")

// View is the server-side model of one open offer page. All fields below mu
// are guarded by it; mu is never held across a call to the API.
type View struct {
	ID      string
	OfferID string

	app    *App
	loc    *time.Location
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	status   Status
	loadErr  error
	offer    *model.Offer
	profile  *model.Profile
	window   availability.Window
	today    availability.Day
	index    *availability.Index
	state    selection.State
	gen      uint64
	chosen   *model.Slot
	booked   *model.Booking
	lastSeen time.Time
}

func newView(a *App, id, offerID string, loc *time.Location) *View {
	ctx, cancel := context.WithCancel(context.Background())
	now := a.now()
	w := availability.NewWindow(now, loc)
	return &View{
		ID:       id,
		OfferID:  offerID,
		app:      a,
		loc:      loc,
		ctx:      ctx,
		cancel:   cancel,
		status:   StatusLoading,
		window:   w,
		today:    availability.DayOf(now, loc),
		index:    availability.EmptyIndex(loc),
		state:    selection.Initial(w),
		lastSeen: now,
	}
}

// Context ends when the view is closed.
func (v *View) Context() context.Context { return v.ctx }

func (v *View) env() selection.Env {
	return selection.Env{Index: v.index, Window: v.window, Today: v.today}
}

func (v *View) touch() {
	v.lastSeen = v.app.now()
}

func (v *View) idleSince() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastSeen
}

// Close cancels every load still running for the view. Late results are
// dropped.
func (v *View) Close() {
	v.cancel()
	v.mu.Lock()
	v.status = StatusClosed
	v.mu.Unlock()
}

// Snapshot renders the current view state.
func (v *View) Snapshot() ViewDTO {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.touch()
	return v.render()
}

// Load fetches the offer, if not yet known, and with a credential the viewer's
// profile concurrently, then the slots of the current window. The slot fetch only
// runs once the offer is known to exist. With fresh set the cached slot list
// is bypassed; the window and "today" are recomputed on every load.
func (v *View) Load(cred auth.Credential, fresh bool) error {
	v.mu.Lock()
	if v.status == StatusClosed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	v.gen++
	gen := v.gen
	now := v.app.now()
	w := availability.NewWindow(now, v.loc)
	today := availability.DayOf(now, v.loc)
	offer := v.offer
	if offer == nil {
		v.status = StatusLoading
	}
	v.mu.Unlock()

	log := v.app.Log.With(zap.String("view_id", v.ID), zap.String("offer_id", v.OfferID))
	ctx := v.ctx

	var profile *model.Profile
	g, gctx := errgroup.WithContext(ctx)
	if offer == nil {
		g.Go(func() error {
			o, err := v.app.loadOffer(gctx, v.OfferID)
			if err != nil {
				return err
			}
			offer = &o
			return nil
		})
	}
	if cred.Present() {
		// refreshed on every signed-in load so a later sign-in shows up
		g.Go(func() error {
			p, err := v.app.API.GetProfile(gctx, cred)
			if err != nil {
				// the page renders without a profile
				log.Debug("profile fetch failed", zap.Error(err))
				return nil
			}
			profile = &p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return v.failLoad(gen, err, log)
	}

	if fresh {
		v.app.invalidateSlots(ctx, v.OfferID, w)
	}
	slots, err := v.app.loadSlots(ctx, v.OfferID, w, fresh)
	if err != nil {
		v.mu.Lock()
		if v.offer == nil && gen == v.gen && ctx.Err() == nil {
			v.offer = offer
		}
		v.mu.Unlock()
		return v.failLoad(gen, err, log)
	}
	idx, err := availability.BuildIndex(slots, v.loc)
	if err != nil {
		return v.failLoad(gen, err, log)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen || ctx.Err() != nil {
		log.Debug("discarding stale load", zap.Uint64("gen", gen))
		return nil
	}
	v.offer = offer
	if profile != nil {
		v.profile = profile
	}
	v.window = w
	v.today = today
	v.index = idx
	v.status = StatusReady
	v.loadErr = nil
	if !v.state.Pending() {
		// keeps the selected day inside a window that may have moved
		v.state, _ = selection.Reduce(v.state, selection.SetMode{Mode: v.state.Mode}, v.env())
	}
	v.state, _ = selection.Reduce(v.state, selection.IndexRefreshed{}, v.env())
	log.Debug("view loaded", zap.Int("slots", len(slots)), zap.Int("available", idx.Len()))
	return nil
}

func (v *View) failLoad(gen uint64, err error, log *zap.Logger) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen || v.ctx.Err() != nil {
		return nil
	}
	v.loadErr = err
	if errors.Is(err, apiclient.ErrNotFound) && v.offer == nil {
		v.status = StatusNotFound
		log.Info("offer not found")
	} else {
		// the previous index, if any, stays visible
		v.status = StatusLoadFailed
		log.Warn("view load failed", zap.Error(err))
	}
	return err
}

// Dispatch feeds a user event to the selection state.
func (v *View) Dispatch(ev selection.Event) (ViewDTO, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.touch()
	if v.status == StatusClosed {
		return v.render(), ErrViewClosed
	}
	next, err := selection.Reduce(v.state, ev, v.env())
	v.state = next
	if s, ok := v.index.Lookup(next.SlotID); ok {
		v.chosen = &s
	}
	return v.render(), err
}

// SubmitResult is what a submission did to the view.
type SubmitResult struct {
	Outcome booking.Outcome
	Booking *model.Booking
	View    ViewDTO
}

// Submit books the slot held in the confirmation dialog. Without a usable
// credential nothing is sent and the state is left as is. Otherwise exactly
// one write is issued; on success the slot is hidden at once and the slot
// list re-fetched, on conflict the list is re-fetched and the dialog shows
// the error, and on any other failure the selection stays for a retry.
func (v *View) Submit(cred auth.Credential) (SubmitResult, error) {
	now := v.app.now()

	v.mu.Lock()
	v.touch()
	if v.status == StatusClosed {
		defer v.mu.Unlock()
		return SubmitResult{View: v.render()}, ErrViewClosed
	}
	if err := cred.Check(now); err != nil {
		defer v.mu.Unlock()
		return SubmitResult{Outcome: booking.OutcomeUnauthenticated, View: v.render()}, err
	}
	next, err := selection.Reduce(v.state, selection.Confirm{}, v.env())
	v.state = next
	if err != nil {
		defer v.mu.Unlock()
		return SubmitResult{Outcome: booking.Classify(err), View: v.render()}, err
	}
	in := booking.Intent{OfferID: v.OfferID, SlotID: next.SlotID}
	w := v.window
	v.mu.Unlock()

	log := v.app.Log.With(
		zap.String("view_id", v.ID),
		zap.String("offer_id", in.OfferID),
		zap.String("slot_id", in.SlotID))

	// the write is not tied to the view: closing the page must not abort a
	// booking that may already be accepted
	b, out, err := booking.Submit(context.WithoutCancel(v.ctx), v.app.API, cred, in, now)
	log.Info("booking submitted", zap.Stringer("outcome", out), zap.Error(err))

	v.mu.Lock()
	switch out {
	case booking.OutcomeSucceeded:
		v.index = v.index.MarkBooked(in.SlotID)
		v.booked = &b
		v.state, _ = selection.Reduce(v.state, selection.SubmitSucceeded{}, v.env())
	default:
		v.state, _ = selection.Reduce(v.state, selection.SubmitFailed{
			Err:      submitError(out, err),
			Conflict: out == booking.OutcomeConflict || out == booking.OutcomeInvalid,
		}, v.env())
	}
	v.mu.Unlock()

	if out == booking.OutcomeSucceeded || out == booking.OutcomeConflict {
		v.app.invalidateSlots(v.ctx, v.OfferID, w)
		if lerr := v.Load(auth.Credential{}, true); lerr != nil && !errors.Is(lerr, ErrViewClosed) {
			log.Warn("refresh after booking failed", zap.Error(lerr))
		}
	}

	res := SubmitResult{Outcome: out, View: v.Snapshot()}
	if out == booking.OutcomeSucceeded {
		res.Booking = &b
	}
	return res, err
}

// submitError is the message kept on the state for the dialog.
func submitError(out booking.Outcome, err error) error {
	switch out {
	case booking.OutcomeConflict:
		return fmt.Errorf("this slot was just booked by someone else: %w", err)
	case booking.OutcomeUnauthenticated:
		return fmt.Errorf("please sign in again: %w", err)
	}
	return err
}
