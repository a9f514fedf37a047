package selection

import (
	"booking-frontend/internal/availability"
)

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSlotChosen Phase = "slot_chosen"
	PhaseConfirming Phase = "confirming"
	PhaseSubmitting Phase = "submitting"
)

func (p Phase) String() string { return string(p) }

type Mode string

const (
	ModeWeek  Mode = "week"
	ModeMonth Mode = "month"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeWeek, ModeMonth:
		return Mode(s), nil
	}
	return "", ErrUnknownMode
}

// State is the selection state of one offer view.
//
// SlotID is set only in PhaseSlotChosen, PhaseConfirming and PhaseSubmitting.
// Err carries the last failure shown to the user; Retryable tells whether
// confirming the same slot again makes sense.
type State struct {
	Phase     Phase
	Mode      Mode
	Day       availability.Day
	SlotID    string
	Err       error
	Retryable bool
}

// Initial is the state of a freshly opened view: week mode, first day of the
// window selected, nothing chosen.
func Initial(w availability.Window) State {
	return State{Phase: PhaseIdle, Mode: ModeWeek, Day: w.First()}
}

// ModalOpen reports whether the confirmation dialog is showing.
func (s State) ModalOpen() bool {
	return s.Phase == PhaseConfirming || s.Phase == PhaseSubmitting
}

// Pending reports whether a confirmation is open or a submission in flight.
func (s State) Pending() bool {
	return s.ModalOpen()
}

// Env is what the reducer reads besides the state itself.
type Env struct {
	Index  *availability.Index
	Window availability.Window
	Today  availability.Day
}

func (e Env) index() *availability.Index {
	if e.Index == nil {
		return availability.EmptyIndex(e.Window.Location())
	}
	return e.Index
}

type Event interface{ isEvent() }

type (
	SelectDay       struct{ Day availability.Day }
	SetMode         struct{ Mode Mode }
	ChooseSlot      struct{ SlotID string }
	OpenConfirm     struct{}
	Cancel          struct{}
	Confirm         struct{}
	SubmitSucceeded struct{}
	SubmitFailed    struct {
		Err      error
		Conflict bool
	}
	// IndexRefreshed is fed after the slot index was replaced.
	IndexRefreshed struct{}
)

func (SelectDay) isEvent()       {}
func (SetMode) isEvent()         {}
func (ChooseSlot) isEvent()      {}
func (OpenConfirm) isEvent()     {}
func (Cancel) isEvent()          {}
func (Confirm) isEvent()         {}
func (SubmitSucceeded) isEvent() {}
func (SubmitFailed) isEvent()    {}
func (IndexRefreshed) isEvent()  {}
