package repositories

import (
	"errors"
	"fmt"

	"chamapesa/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrLoanNotFound      = errors.New("loan not found")
	ErrRepaymentNotFound = errors.New("repayment not found")
	ErrDuplicateLoan     = errors.New("loan number already used")
)

// LoanRepository defines loan database operations. Repayment application
// serializes per loan: callers lock the loan row with LockLoan inside
// ExecuteInTransaction before touching the balance.
type LoanRepository interface {
	Create(l *models.Loan) error
	GetByID(id uuid.UUID) (*models.Loan, error)
	GetByNumber(number string) (*models.Loan, error)
	Update(l *models.Loan) error
	ListByMembership(membershipID uuid.UUID) ([]*models.Loan, error)
	ListByChama(chamaID uuid.UUID, status string, limit, offset int) ([]*models.Loan, error)

	CreateRepayment(r *models.LoanRepayment) error
	GetRepaymentByReference(ref string) (*models.LoanRepayment, error)
	ListRepayments(loanID uuid.UUID) ([]*models.LoanRepayment, error)
	SumCompletedRepayments(loanID uuid.UUID) (models.Money, error)

	// Eligibility reads performed inside the loan transaction.
	GetChama(id uuid.UUID) (*models.Chama, error)
	GetMembership(id uuid.UUID) (*models.ChamaMembership, error)

	LockLoan(id uuid.UUID) (*models.Loan, error)
	ExecuteInTransaction(fn func(LoanRepository) error) error
}

type loanRepository struct {
	db *gorm.DB
}

func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(l *models.Loan) error {
	if err := r.db.Create(l).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateLoan
		}
		return fmt.Errorf("failed to create loan: %w", err)
	}
	return nil
}

func (r *loanRepository) GetByID(id uuid.UUID) (*models.Loan, error) {
	var l models.Loan
	if err := r.db.First(&l, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	return &l, nil
}

func (r *loanRepository) GetByNumber(number string) (*models.Loan, error) {
	var l models.Loan
	err := r.db.Where("loan_number = ?", number).First(&l).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	return &l, nil
}

func (r *loanRepository) Update(l *models.Loan) error {
	if err := r.db.Save(l).Error; err != nil {
		return fmt.Errorf("failed to update loan: %w", err)
	}
	return nil
}

func (r *loanRepository) ListByMembership(membershipID uuid.UUID) ([]*models.Loan, error) {
	var loans []*models.Loan
	err := r.db.Where("membership_id = ?", membershipID).
		Order("application_date DESC").
		Find(&loans).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	return loans, nil
}

func (r *loanRepository) ListByChama(chamaID uuid.UUID, status string, limit, offset int) ([]*models.Loan, error) {
	var loans []*models.Loan
	q := r.db.Where("chama_id = ?", chamaID).
		Order("application_date DESC").
		Limit(limit).Offset(offset)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&loans).Error; err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	return loans, nil
}

func (r *loanRepository) CreateRepayment(rp *models.LoanRepayment) error {
	if err := r.db.Create(rp).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateReference
		}
		return fmt.Errorf("failed to create repayment: %w", err)
	}
	return nil
}

func (r *loanRepository) GetRepaymentByReference(ref string) (*models.LoanRepayment, error) {
	var rp models.LoanRepayment
	err := r.db.Where("transaction_reference = ?", ref).First(&rp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRepaymentNotFound
		}
		return nil, fmt.Errorf("failed to get repayment: %w", err)
	}
	return &rp, nil
}

func (r *loanRepository) ListRepayments(loanID uuid.UUID) ([]*models.LoanRepayment, error) {
	var repayments []*models.LoanRepayment
	err := r.db.Where("loan_id = ?", loanID).
		Order("payment_date DESC").
		Find(&repayments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list repayments: %w", err)
	}
	return repayments, nil
}

func (r *loanRepository) SumCompletedRepayments(loanID uuid.UUID) (models.Money, error) {
	var total int64
	err := r.db.Model(&models.LoanRepayment{}).
		Where("loan_id = ? AND status = ?", loanID, models.RepaymentStatusCompleted).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum repayments: %w", err)
	}
	return models.Money(total), nil
}

func (r *loanRepository) GetChama(id uuid.UUID) (*models.Chama, error) {
	var chama models.Chama
	if err := r.db.First(&chama, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChamaNotFound
		}
		return nil, fmt.Errorf("failed to get chama: %w", err)
	}
	return &chama, nil
}

func (r *loanRepository) GetMembership(id uuid.UUID) (*models.ChamaMembership, error) {
	var m models.ChamaMembership
	if err := r.db.First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return &m, nil
}

func (r *loanRepository) LockLoan(id uuid.UUID) (*models.Loan, error) {
	var l models.Loan
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&l, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, fmt.Errorf("failed to lock loan: %w", err)
	}
	return &l, nil
}

func (r *loanRepository) ExecuteInTransaction(fn func(LoanRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&loanRepository{db: tx})
	})
}
