package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Loan statuses
const (
	LoanStatusPending   = "PENDING"
	LoanStatusApproved  = "APPROVED"
	LoanStatusRejected  = "REJECTED"
	LoanStatusDisbursed = "DISBURSED"
	LoanStatusActive    = "ACTIVE"
	LoanStatusCompleted = "COMPLETED"
	LoanStatusDefaulted = "DEFAULTED"
)

// Repayment statuses
const (
	RepaymentStatusPending   = "PENDING"
	RepaymentStatusCompleted = "COMPLETED"
	RepaymentStatusFailed    = "FAILED"
)

// Repayment methods
const (
	RepaymentMethodMpesa     = "MPESA"
	RepaymentMethodBank      = "BANK"
	RepaymentMethodCash      = "CASH"
	RepaymentMethodDeduction = "DEDUCTION"
)

// Loan is a member's borrowing against the chama. InterestRate is
// snapshotted from the chama at application time; InterestAmount,
// TotalAmount and Balance are derived exactly once at application and
// only Balance moves afterwards, via repayment application.
type Loan struct {
	ID                     uuid.UUID `gorm:"type:uuid;primarykey"`
	ChamaID                uuid.UUID `gorm:"type:uuid;not null;index"`
	MembershipID           uuid.UUID `gorm:"type:uuid;not null;index"`
	LoanNumber             string    `gorm:"uniqueIndex;not null"`
	PrincipalAmount        Money     `gorm:"not null"`
	InterestRate           Percent   `gorm:"not null"`
	InterestAmount         Money     `gorm:"not null"`
	TotalAmount            Money     `gorm:"not null"`
	AmountPaid             Money     `gorm:"default:0"`
	Balance                Money     `gorm:"not null"`
	RepaymentPeriodMonths  int       `gorm:"not null"`
	ApplicationDate        time.Time
	ApprovalDate           *time.Time
	DisbursementDate       *time.Time
	ExpectedCompletionDate *time.Time
	ActualCompletionDate   *time.Time
	Status                 string     `gorm:"default:'PENDING';index"`
	Purpose                string     `gorm:"not null"`
	Guarantor1ID           *uuid.UUID `gorm:"type:uuid"`
	Guarantor2ID           *uuid.UUID `gorm:"type:uuid"`
	ApprovedByID           *uuid.UUID `gorm:"type:uuid"`
	RejectionReason        string
	Notes                  string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func (l *Loan) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Repayable reports whether the loan currently accepts repayments.
func (l *Loan) Repayable() bool {
	return l.Status == LoanStatusDisbursed || l.Status == LoanStatusActive
}

// LoanRepayment is one payment against a loan. Applying it mutates the
// parent loan's AmountPaid and Balance in the same transaction.
type LoanRepayment struct {
	ID                   uuid.UUID `gorm:"type:uuid;primarykey"`
	LoanID               uuid.UUID `gorm:"type:uuid;not null;index"`
	Amount               Money     `gorm:"not null"`
	PaymentMethod        string    `gorm:"not null"`
	TransactionReference string    `gorm:"uniqueIndex;not null"`
	PaymentDate          time.Time `gorm:"not null"`
	Status               string    `gorm:"default:'COMPLETED'"`
	RecordedByID         uuid.UUID `gorm:"type:uuid"`
	Notes                string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (r *LoanRepayment) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
