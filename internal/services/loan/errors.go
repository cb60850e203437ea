package loan

import "errors"

// Service errors
var (
	ErrIneligibleApplicant    = errors.New("applicant membership is not active")
	ErrInsufficientGuarantors = errors.New("not enough eligible guarantors")
	ErrInvalidTransition      = errors.New("invalid loan status transition")
	ErrNotEligibleForDefault  = errors.New("loan is not eligible for default")
	ErrDuplicateReference     = errors.New("duplicate transaction reference")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidPeriod          = errors.New("repayment period must be at least one month")
	ErrInvalidMethod          = errors.New("unknown repayment method")
	ErrMissingPurpose         = errors.New("loan purpose is required")
	ErrMissingReference       = errors.New("transaction reference is required")
	ErrMissingReason          = errors.New("rejection reason is required")
	ErrLoanNotRepayable       = errors.New("loan does not accept repayments")
)
