package validation

const (
	// Password requirements
	MinPasswordLength = 8
	MaxPasswordLength = 72

	// String lengths
	MaxPurposeLength   = 500
	MaxReferenceLength = 100
)
