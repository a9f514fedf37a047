package app

import (
	"time"

	"booking-frontend/internal/availability"
	"booking-frontend/internal/model"
	"booking-frontend/internal/selection"
)

type OfferDTO struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Price         string `json:"price"`
	PriceLabel    string `json:"price_label"`
	PriceType     string `json:"price_type"`
	DurationMin   int    `json:"duration_min"`
	DurationLabel string `json:"duration_label"`
}

// Slot DTO
type SlotDTO struct {
	ID    string    `json:"id"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label"`
}

type DayDTO struct {
	Date        availability.Day `json:"date"`
	Weekday     string           `json:"weekday"`
	Available   int              `json:"available"`
	FullyBooked bool             `json:"fully_booked"`
	Selected    bool             `json:"selected"`
}

type MonthDTO struct {
	// EnabledFrom is the first selectable day; earlier days are disabled.
	EnabledFrom   availability.Day   `json:"enabled_from"`
	AvailableDays []availability.Day `json:"available_days"`
}

type ModalDTO struct {
	Submitting bool    `json:"submitting"`
	Offer      string  `json:"offer"`
	Price      string  `json:"price"`
	Duration   string  `json:"duration"`
	Slot       SlotDTO `json:"slot"`
}

type ViewDTO struct {
	ID          string           `json:"id"`
	OfferID     string           `json:"offer_id"`
	Status      Status           `json:"status"`
	LoadError   string           `json:"load_error,omitempty"`
	Timezone    string           `json:"timezone"`
	Offer       *OfferDTO        `json:"offer,omitempty"`
	Viewer      *model.Profile   `json:"viewer,omitempty"`
	From        availability.Day `json:"from"`
	To          availability.Day `json:"to"`
	Mode        selection.Mode   `json:"mode"`
	Phase       selection.Phase  `json:"phase"`
	SelectedDay availability.Day `json:"selected_day"`
	Week        []DayDTO         `json:"week"`
	Month       *MonthDTO        `json:"month,omitempty"`
	Slots       []SlotDTO        `json:"slots"`
	Selected    *SlotDTO         `json:"selected_slot,omitempty"`
	Modal       *ModalDTO        `json:"modal,omitempty"`
	Message     string           `json:"message,omitempty"`
	Retryable   bool             `json:"retryable"`
	LastBooking *model.Booking   `json:"last_booking,omitempty"`
}

func offerDTO(o model.Offer) *OfferDTO {
	return &OfferDTO{
		ID:            o.ID,
		Title:         o.Title,
		Description:   o.Description,
		Price:         o.Price.StringFixed(2),
		PriceLabel:    o.PriceLabel(),
		PriceType:     string(o.PriceType),
		DurationMin:   o.DurationMin,
		DurationLabel: o.DurationLabel(),
	}
}

func slotDTO(s model.Slot, loc *time.Location) SlotDTO {
	start, end := s.Start.In(loc), s.End.In(loc)
	return SlotDTO{
		ID:    s.ID,
		Start: start,
		End:   end,
		Label: start.Format("15:04") + " - " + end.Format("15:04"),
	}
}

// render builds the DTO. Callers hold v.mu.
func (v *View) render() ViewDTO {
	st := v.state
	out := ViewDTO{
		ID:          v.ID,
		OfferID:     v.OfferID,
		Status:      v.status,
		Timezone:    v.loc.String(),
		Viewer:      v.profile,
		From:        v.window.First(),
		To:          v.window.Last(),
		Mode:        st.Mode,
		Phase:       st.Phase,
		SelectedDay: st.Day,
		Retryable:   st.Retryable,
		LastBooking: v.booked,
	}
	if v.loadErr != nil {
		out.LoadError = v.loadErr.Error()
	}
	if st.Err != nil {
		out.Message = st.Err.Error()
	}
	if v.offer != nil {
		out.Offer = offerDTO(*v.offer)
	}

	for d := range v.window.Days() {
		out.Week = append(out.Week, DayDTO{
			Date:        d,
			Weekday:     d.Weekday().String()[:3],
			Available:   v.index.Count(d),
			FullyBooked: v.index.FullyBooked(d),
			Selected:    d == st.Day,
		})
	}
	if st.Mode == selection.ModeMonth {
		out.Month = &MonthDTO{EnabledFrom: v.today, AvailableDays: v.index.AvailableDays()}
	}

	out.Slots = []SlotDTO{}
	for _, s := range v.index.For(st.Day) {
		out.Slots = append(out.Slots, slotDTO(s, v.loc))
	}
	if st.SlotID != "" {
		// the dialog keeps showing a slot that vanished under it
		s, ok := v.index.Lookup(st.SlotID)
		if !ok && v.chosen != nil && v.chosen.ID == st.SlotID {
			s, ok = *v.chosen, true
		}
		if ok {
			sd := slotDTO(s, v.loc)
			out.Selected = &sd
		}
	}
	if st.ModalOpen() && out.Selected != nil && v.offer != nil {
		out.Modal = &ModalDTO{
			Submitting: st.Phase == selection.PhaseSubmitting,
			Offer:      v.offer.Title,
			Price:      v.offer.PriceLabel(),
			Duration:   v.offer.DurationLabel(),
			Slot:       *out.Selected,
		}
	}
	return out
}
