package selection

import (
	"fmt"

	"booking-frontend/internal/availability"
)

// Reduce applies ev to s. A rejected event returns s unchanged together with
// the reason. The one exception is a confirmation step whose slot has
// vanished from the index: the dialog closes (PhaseIdle, Err set) and
// ErrSlotUnavailable is returned, so a stale slot is never submitted.
func Reduce(s State, ev Event, env Env) (State, error) {
	switch e := ev.(type) {
	case SelectDay:
		return selectDay(s, e.Day, env)
	case SetMode:
		return setMode(s, e.Mode, env)
	case ChooseSlot:
		return chooseSlot(s, e.SlotID, env)
	case OpenConfirm:
		return openConfirm(s, env)
	case Cancel:
		return cancel(s)
	case Confirm:
		return confirm(s, env)
	case SubmitSucceeded:
		if s.Phase != PhaseSubmitting {
			return s, illegal(s, "submit succeeded")
		}
		return idle(s, nil), nil
	case SubmitFailed:
		if s.Phase != PhaseSubmitting {
			return s, illegal(s, "submit failed")
		}
		next := s
		next.Phase = PhaseConfirming
		next.Err = e.Err
		next.Retryable = !e.Conflict
		return next, nil
	case IndexRefreshed:
		return refreshed(s, env), nil
	}
	return s, ErrUnknownEvent
}

func selectDay(s State, day availability.Day, env Env) (State, error) {
	if s.Pending() {
		return s, ErrPendingSelection
	}
	if err := checkDay(s.Mode, day, env); err != nil {
		return s, err
	}
	next := s
	next.Day = day
	next.Err = nil
	if s.Phase == PhaseSlotChosen && day != s.Day {
		next = idle(next, nil)
	}
	return next, nil
}

func setMode(s State, mode Mode, env Env) (State, error) {
	if s.Pending() {
		return s, ErrPendingSelection
	}
	if _, err := ParseMode(string(mode)); err != nil {
		return s, err
	}
	next := s
	next.Mode = mode
	if mode == ModeWeek && !env.Window.Contains(s.Day) {
		next.Day = env.Window.First()
		if s.Phase == PhaseSlotChosen {
			next = idle(next, nil)
		}
	}
	return next, nil
}

func checkDay(mode Mode, day availability.Day, env Env) error {
	if mode == ModeMonth {
		if day.Before(env.Today) {
			return ErrDayInPast
		}
		return nil
	}
	if !env.Window.Contains(day) {
		return ErrDayOutOfWindow
	}
	return nil
}

func chooseSlot(s State, id string, env Env) (State, error) {
	if s.Phase != PhaseIdle && s.Phase != PhaseSlotChosen {
		return s, illegal(s, "choose slot")
	}
	if id == "" || !env.index().Has(s.Day, id) {
		return s, ErrSlotUnavailable
	}
	next := s
	next.Phase = PhaseSlotChosen
	next.SlotID = id
	next.Err = nil
	next.Retryable = false
	return next, nil
}

func openConfirm(s State, env Env) (State, error) {
	if s.Phase != PhaseSlotChosen {
		return s, illegal(s, "open confirmation")
	}
	if !env.index().Has(s.Day, s.SlotID) {
		return idle(s, ErrSlotUnavailable), ErrSlotUnavailable
	}
	next := s
	next.Phase = PhaseConfirming
	return next, nil
}

func cancel(s State) (State, error) {
	switch s.Phase {
	case PhaseIdle:
		return s, nil
	case PhaseSubmitting:
		return s, illegal(s, "cancel")
	}
	return idle(s, nil), nil
}

func confirm(s State, env Env) (State, error) {
	if s.Phase != PhaseConfirming {
		return s, illegal(s, "confirm")
	}
	if !env.index().Has(s.Day, s.SlotID) {
		return idle(s, ErrSlotUnavailable), ErrSlotUnavailable
	}
	next := s
	next.Phase = PhaseSubmitting
	next.Err = nil
	next.Retryable = false
	return next, nil
}

func refreshed(s State, env Env) State {
	if s.SlotID == "" || env.index().Has(s.Day, s.SlotID) {
		return s
	}
	switch s.Phase {
	case PhaseSlotChosen:
		return idle(s, ErrSlotUnavailable)
	case PhaseConfirming:
		next := s
		if next.Err == nil {
			next.Err = ErrSlotUnavailable
		}
		next.Retryable = false
		return next
	}
	return s
}

func idle(s State, err error) State {
	s.Phase = PhaseIdle
	s.SlotID = ""
	s.Err = err
	s.Retryable = false
	return s
}

func illegal(s State, what string) error {
	return fmt.Errorf("%w: %s from %s", ErrIllegalTransition, what, s.Phase)
}
