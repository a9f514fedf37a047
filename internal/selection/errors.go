package selection

import "errors"

var (
	ErrSlotUnavailable   = errors.New("slot is no longer available")
	ErrIllegalTransition = errors.New("illegal selection transition")
	ErrPendingSelection  = errors.New("a booking confirmation is pending")
	ErrDayOutOfWindow    = errors.New("day is outside the availability window")
	ErrDayInPast         = errors.New("day is in the past")
	ErrUnknownMode       = errors.New("unknown view mode")
	ErrUnknownEvent      = errors.New("unknown selection event")
)
