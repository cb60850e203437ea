package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles
const (
	RoleAdmin     = "ADMIN"
	RoleTreasurer = "TREASURER"
	RoleSecretary = "SECRETARY"
	RoleMember    = "MEMBER"
)

// User is an account that can belong to chamas. Authorization is
// role-based; the core engines trust the role check done at the edge.
type User struct {
	ID                  uuid.UUID `gorm:"type:uuid;primarykey"`
	Email               string    `gorm:"uniqueIndex;not null"`
	Password            string    `gorm:"not null"`
	FirstName           string    `gorm:"not null"`
	LastName            string    `gorm:"not null"`
	Phone               string    `gorm:"uniqueIndex;not null"`
	NationalID          string    `gorm:"uniqueIndex;default:null"`
	Role                string    `gorm:"default:'MEMBER'"`
	IsVerified          bool      `gorm:"default:false"`
	TwoFactorEnabled    bool      `gorm:"default:false"`
	FailedLoginAttempts int       `gorm:"default:0"`
	AccountLockoutUntil *time.Time
	TokenVersion        int `gorm:"default:1"`
	LastLoginAt         *time.Time
	LastLoginIP         string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// FullName returns the display name used in notifications.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
