package cycle

import "errors"

// Service errors
var (
	ErrDuplicateCycleNumber = errors.New("cycle number already used for chama")
	ErrNoEligibleMembers    = errors.New("no eligible members for cycle")
	ErrDuplicateReference   = errors.New("duplicate transaction reference")
	ErrIncompleteCollection = errors.New("collection below completion threshold")
	ErrInvalidTransition    = errors.New("invalid cycle status transition")
	ErrCycleClosed          = errors.New("cycle no longer accepts contributions")
	ErrInvalidAmount        = errors.New("invalid contribution amount")
	ErrInvalidMethod        = errors.New("unknown payment method")
	ErrInvalidWindow        = errors.New("cycle end date must be after start date")
	ErrMissingReference     = errors.New("transaction reference is required")
)
