package validation

import "chamapesa/internal/models"

// Enum membership checks used by the core engines to reject unknown
// values before any mutation.

func IsPaymentMethod(m string) bool {
	switch m {
	case models.PaymentMethodMpesa, models.PaymentMethodBank,
		models.PaymentMethodCash, models.PaymentMethodCard:
		return true
	}
	return false
}

func IsPayoutMethod(m string) bool {
	switch m {
	case models.PayoutMethodMpesa, models.PayoutMethodBank,
		models.PayoutMethodCash, models.PayoutMethodCheque:
		return true
	}
	return false
}

func IsRepaymentMethod(m string) bool {
	switch m {
	case models.RepaymentMethodMpesa, models.RepaymentMethodBank,
		models.RepaymentMethodCash, models.RepaymentMethodDeduction:
		return true
	}
	return false
}

func IsContributionStatus(s string) bool {
	switch s {
	case models.ContributionStatusPending, models.ContributionStatusProcessing,
		models.ContributionStatusCompleted, models.ContributionStatusFailed,
		models.ContributionStatusRefunded:
		return true
	}
	return false
}

func IsContributionFrequency(f string) bool {
	switch f {
	case models.FrequencyDaily, models.FrequencyWeekly,
		models.FrequencyBiweekly, models.FrequencyMonthly:
		return true
	}
	return false
}

func IsAttendanceStatus(s string) bool {
	switch s {
	case models.AttendancePresent, models.AttendanceAbsent,
		models.AttendanceExcused, models.AttendanceLate:
		return true
	}
	return false
}

func IsUserRole(r string) bool {
	switch r {
	case models.RoleAdmin, models.RoleTreasurer,
		models.RoleSecretary, models.RoleMember:
		return true
	}
	return false
}
