package membership

import "errors"

// Service errors
var (
	ErrCapacityExceeded    = errors.New("chama member capacity exceeded")
	ErrDuplicateMembership = errors.New("user already belongs to this chama")
	ErrInvalidTransition   = errors.New("invalid membership status transition")
	ErrChamaNotAccepting   = errors.New("chama is not accepting members")
	ErrInvalidAmount       = errors.New("invalid contribution amount")
)
