package models

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Application permissions
const (
	// Admin permissions
	PermissionReadAdmin  = "admin:read"
	PermissionWriteAdmin = "admin:write"

	// Chama management
	PermissionChamaRead  = "chama:read"
	PermissionChamaWrite = "chama:write"

	// Membership management
	PermissionMembershipRead    = "membership:read"
	PermissionMembershipApprove = "membership:approve"

	// Contribution and cycle operations
	PermissionCycleRead         = "cycle:read"
	PermissionCycleManage       = "cycle:manage"
	PermissionContributionWrite = "contribution:write"

	// Payout operations
	PermissionPayoutRead    = "payout:read"
	PermissionPayoutApprove = "payout:approve"
	PermissionPayoutProcess = "payout:process"

	// Loan operations
	PermissionLoanRead    = "loan:read"
	PermissionLoanApply   = "loan:apply"
	PermissionLoanApprove = "loan:approve"
	PermissionLoanRepay   = "loan:repay"

	// Meetings
	PermissionMeetingRead   = "meeting:read"
	PermissionMeetingManage = "meeting:manage"
)

type UserClaims struct {
	jwt.RegisteredClaims
	UserID       uuid.UUID `json:"user_id"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	Permissions  []string  `json:"permissions"`
	TokenVersion int       `json:"token_version"`
}

// HasPermission checks if the claims include a specific permission
func (c *UserClaims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// GetDefaultPermissions returns default permissions based on role
func GetDefaultPermissions(role string) []string {
	switch role {
	case RoleAdmin:
		return []string{
			PermissionChamaRead,
			PermissionChamaWrite,
			PermissionMembershipRead,
			PermissionMembershipApprove,
			PermissionCycleRead,
			PermissionCycleManage,
			PermissionContributionWrite,
			PermissionPayoutRead,
			PermissionPayoutApprove,
			PermissionPayoutProcess,
			PermissionLoanRead,
			PermissionLoanApprove,
			PermissionLoanRepay,
			PermissionMeetingRead,
			PermissionMeetingManage,
			PermissionReadAdmin,
			PermissionWriteAdmin,
		}
	case RoleTreasurer:
		return []string{
			PermissionChamaRead,
			PermissionMembershipRead,
			PermissionCycleRead,
			PermissionCycleManage,
			PermissionContributionWrite,
			PermissionPayoutRead,
			PermissionPayoutApprove,
			PermissionPayoutProcess,
			PermissionLoanRead,
			PermissionLoanApprove,
			PermissionLoanRepay,
			PermissionMeetingRead,
		}
	case RoleSecretary:
		return []string{
			PermissionChamaRead,
			PermissionMembershipRead,
			PermissionCycleRead,
			PermissionLoanRead,
			PermissionMeetingRead,
			PermissionMeetingManage,
		}
	case RoleMember:
		return []string{
			PermissionChamaRead,
			PermissionCycleRead,
			PermissionLoanRead,
			PermissionLoanApply,
			PermissionMeetingRead,
		}
	default:
		return []string{}
	}
}
