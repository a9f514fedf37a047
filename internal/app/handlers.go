package app

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"booking-frontend/internal/apiclient"
	"booking-frontend/internal/auth"
	"booking-frontend/internal/availability"
	"booking-frontend/internal/booking"
	"booking-frontend/internal/selection"
)

var ErrInvalidTimezone = errors.New("invalid timezone")

// OpenView creates a view of the offer and runs its first load. The view is
// stored even when the load fails so the client can read or refresh it.
func (a *App) OpenView(offerID, tz string, cred auth.Credential) (*View, error) {
	loc := a.Loc
	if tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
		}
		loc = l
	}
	v := newView(a, a.Views.newID(), offerID, loc)
	a.Views.Put(v)
	return v, v.Load(cred, false)
}

type openViewReq struct {
	OfferID  string `json:"offer_id" binding:"required"`
	Timezone string `json:"timezone,omitempty"`
}

// POST /api/views
func (a *App) OpenViewHandler(c *gin.Context) {
	var req openViewReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	v, err := a.OpenView(req.OfferID, req.Timezone, credential(c))
	if errors.Is(err, ErrInvalidTimezone) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if errors.Is(err, apiclient.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "offer not found", "view": v.Snapshot()})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "view": v.Snapshot()})
		return
	}
	c.JSON(http.StatusCreated, v.Snapshot())
}

func (a *App) view(c *gin.Context) (*View, bool) {
	v, ok := a.Views.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "view not found"})
	}
	return v, ok
}

// GET /api/views/:id
func (a *App) GetViewHandler(c *gin.Context) {
	v, ok := a.view(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, v.Snapshot())
}

// DELETE /api/views/:id
// Navigating away: pending loads are cancelled and their results dropped.
func (a *App) CloseViewHandler(c *gin.Context) {
	if !a.Views.Remove(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "view not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// eventStatus maps a rejected event to the HTTP status returned with the view.
func eventStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrViewClosed):
		return http.StatusGone
	case errors.Is(err, selection.ErrDayOutOfWindow),
		errors.Is(err, selection.ErrDayInPast),
		errors.Is(err, selection.ErrUnknownMode),
		errors.Is(err, selection.ErrUnknownEvent):
		return http.StatusBadRequest
	case errors.Is(err, selection.ErrSlotUnavailable),
		errors.Is(err, selection.ErrPendingSelection),
		errors.Is(err, selection.ErrIllegalTransition):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (a *App) dispatch(c *gin.Context, ev selection.Event) {
	v, ok := a.view(c)
	if !ok {
		return
	}
	dto, err := v.Dispatch(ev)
	if err != nil {
		c.JSON(eventStatus(err), gin.H{"error": err.Error(), "view": dto})
		return
	}
	c.JSON(http.StatusOK, dto)
}

type dayReq struct {
	Date string `json:"date" binding:"required"`
}

// POST /api/views/:id/day
func (a *App) SelectDayHandler(c *gin.Context) {
	var req dayReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	day, err := availability.ParseDay(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, want YYYY-MM-DD"})
		return
	}
	a.dispatch(c, selection.SelectDay{Day: day})
}

type modeReq struct {
	Mode string `json:"mode" binding:"required"`
}

// POST /api/views/:id/mode
func (a *App) SetModeHandler(c *gin.Context) {
	var req modeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mode, err := selection.ParseMode(req.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a.dispatch(c, selection.SetMode{Mode: mode})
}

type slotReq struct {
	SlotID string `json:"slot_id" binding:"required"`
}

// POST /api/views/:id/slot
func (a *App) ChooseSlotHandler(c *gin.Context) {
	var req slotReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a.dispatch(c, selection.ChooseSlot{SlotID: req.SlotID})
}

// POST /api/views/:id/confirm
func (a *App) OpenConfirmHandler(c *gin.Context) {
	a.dispatch(c, selection.OpenConfirm{})
}

// POST /api/views/:id/cancel
func (a *App) CancelHandler(c *gin.Context) {
	a.dispatch(c, selection.Cancel{})
}

// POST /api/views/:id/submit
func (a *App) SubmitHandler(c *gin.Context) {
	v, ok := a.view(c)
	if !ok {
		return
	}
	res, err := v.Submit(credential(c))
	if err == nil {
		c.JSON(http.StatusCreated, gin.H{"booking": res.Booking, "view": res.View})
		return
	}
	if st := eventStatus(err); st != http.StatusInternalServerError {
		c.JSON(st, gin.H{"error": err.Error(), "view": res.View})
		return
	}
	status := http.StatusBadGateway
	switch res.Outcome {
	case booking.OutcomeConflict:
		status = http.StatusConflict
	case booking.OutcomeUnauthenticated:
		status = http.StatusUnauthorized
	case booking.OutcomeInvalid:
		status = http.StatusBadRequest
	}
	a.getLogger(c).Info("booking not placed", zap.Stringer("outcome", res.Outcome), zap.Error(err))
	c.JSON(status, gin.H{"error": err.Error(), "view": res.View, "retryable": res.View.Retryable})
}

// POST /api/views/:id/refresh
func (a *App) RefreshHandler(c *gin.Context) {
	v, ok := a.view(c)
	if !ok {
		return
	}
	if err := v.Load(credential(c), true); err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, ErrViewClosed):
			status = http.StatusGone
		case errors.Is(err, apiclient.ErrNotFound):
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error(), "view": v.Snapshot()})
		return
	}
	c.JSON(http.StatusOK, v.Snapshot())
}

// apiStatus maps a marketplace API error to the status passed on to the UI.
func apiStatus(err error) int {
	switch {
	case errors.Is(err, apiclient.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apiclient.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apiclient.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, apiclient.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusBadGateway
}

// GET /api/services
func (a *App) ListServicesHandler(c *gin.Context) {
	services, err := a.API.ListServices(c.Request.Context())
	if err != nil {
		c.JSON(apiStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, services)
}

// GET /api/services/:id
func (a *App) GetServiceHandler(c *gin.Context) {
	svc, err := a.API.GetService(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(apiStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, svc)
}

// GET /api/services/:id/offers
func (a *App) ListServiceOffersHandler(c *gin.Context) {
	offers, err := a.API.ListOffers(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(apiStatus(err), gin.H{"error": err.Error()})
		return
	}
	out := make([]*OfferDTO, 0, len(offers))
	for _, o := range offers {
		out = append(out, offerDTO(o))
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/bookings
func (a *App) ListBookingsHandler(c *gin.Context) {
	bookings, err := a.API.ListBookings(c.Request.Context(), credential(c))
	if err != nil {
		c.JSON(apiStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, bookings)
}

// GET /api/profile
func (a *App) ProfileHandler(c *gin.Context) {
	p, err := a.API.GetProfile(c.Request.Context(), credential(c))
	if err != nil {
		c.JSON(apiStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

const (
	defaultActivityLimit = 10
	maxActivityLimit     = 100
)

// GET /api/activities?limit=
func (a *App) ListActivitiesHandler(c *gin.Context) {
	limit := defaultActivityLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxActivityLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("limit must be between 1 and %d", maxActivityLimit)})
			return
		}
		limit = n
	}
	acts, err := a.API.ListActivities(c.Request.Context(), credential(c), limit)
	if err != nil {
		c.JSON(apiStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, acts)
}

// GET /health
func (a *App) HealthHandler(c *gin.Context) {
	body := gin.H{"status": "ok", "views": a.Views.Len()}
	if b, ok := a.API.(interface{ BreakerState() string }); ok {
		body["api_breaker"] = b.BreakerState()
	}
	c.JSON(http.StatusOK, body)
}
