package payout

import "errors"

// Service errors
var (
	ErrPayoutAlreadyExists = errors.New("payout already exists for cycle")
	ErrCycleNotCompleted   = errors.New("cycle is not completed")
	ErrInvalidTransition   = errors.New("invalid payout status transition")
	ErrInvalidMethod       = errors.New("unknown payout method")
)
