package handlers

import (
	"errors"
	"time"

	"chamapesa/internal/models"
	"chamapesa/internal/repositories"
	"chamapesa/internal/services/loan"
	"chamapesa/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type LoanHandler struct {
	loanService loan.Service
}

func NewLoanHandler(loanService loan.Service) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

// ApplyForLoan opens a loan application.
func (h *LoanHandler) ApplyForLoan(c *fiber.Ctx) error {
	var input struct {
		MembershipID          string   `json:"membership_id"`
		Principal             string   `json:"principal"`
		RepaymentPeriodMonths int      `json:"repayment_period_months"`
		Purpose               string   `json:"purpose"`
		GuarantorIDs          []string `json:"guarantor_ids"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}

	membershipID, err := uuid.Parse(input.MembershipID)
	if err != nil {
		return utils.BadRequest(c, "Invalid membership ID")
	}
	principal, err := models.ParseMoney(input.Principal)
	if err != nil {
		return utils.BadRequest(c, "Invalid principal amount")
	}

	guarantorIDs := make([]uuid.UUID, 0, len(input.GuarantorIDs))
	for _, raw := range input.GuarantorIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return utils.BadRequest(c, "Invalid guarantor ID")
		}
		guarantorIDs = append(guarantorIDs, id)
	}

	created, err := h.loanService.Apply(c.Context(), loan.ApplyRequest{
		MembershipID:          membershipID,
		Principal:             principal,
		RepaymentPeriodMonths: input.RepaymentPeriodMonths,
		Purpose:               input.Purpose,
		GuarantorIDs:          guarantorIDs,
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrMembershipNotFound):
			return utils.NotFound(c, "Membership not found")
		case errors.Is(err, loan.ErrIneligibleApplicant),
			errors.Is(err, loan.ErrInsufficientGuarantors),
			errors.Is(err, loan.ErrInvalidAmount),
			errors.Is(err, loan.ErrInvalidPeriod),
			errors.Is(err, loan.ErrMissingPurpose):
			return utils.BadRequest(c, err.Error())
		default:
			return utils.InternalError(c, "Failed to apply for loan")
		}
	}

	return utils.Created(c, created)
}

// ApproveLoan moves a pending application to APPROVED.
func (h *LoanHandler) ApproveLoan(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid loan ID")
	}

	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "Invalid claims")
	}

	if err := h.loanService.Approve(c.Context(), id, claims.UserID); err != nil {
		return h.mapError(c, err)
	}
	return utils.Success(c, fiber.Map{"message": "Loan approved"})
}

// RejectLoan declines a pending application.
func (h *LoanHandler) RejectLoan(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid loan ID")
	}

	var input struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}

	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "Invalid claims")
	}

	if err := h.loanService.Reject(c.Context(), id, input.Reason, claims.UserID); err != nil {
		if errors.Is(err, loan.ErrMissingReason) {
			return utils.BadRequest(c, err.Error())
		}
		return h.mapError(c, err)
	}
	return utils.Success(c, fiber.Map{"message": "Loan rejected"})
}

// DisburseLoan releases the approved funds.
func (h *LoanHandler) DisburseLoan(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid loan ID")
	}

	var input struct {
		Date time.Time `json:"date"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}
	if input.Date.IsZero() {
		input.Date = time.Now().UTC()
	}

	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "Invalid claims")
	}

	if err := h.loanService.Disburse(c.Context(), id, input.Date, claims.UserID); err != nil {
		return h.mapError(c, err)
	}
	return utils.Success(c, fiber.Map{"message": "Loan disbursed"})
}

// RecordRepayment applies one payment to the loan balance.
func (h *LoanHandler) RecordRepayment(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid loan ID")
	}

	var input struct {
		Amount               string    `json:"amount"`
		PaymentMethod        string    `json:"payment_method"`
		TransactionReference string    `json:"transaction_reference"`
		PaymentDate          time.Time `json:"payment_date"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}

	amount, err := models.ParseMoney(input.Amount)
	if err != nil {
		return utils.BadRequest(c, "Invalid amount")
	}
	if input.PaymentDate.IsZero() {
		input.PaymentDate = time.Now().UTC()
	}

	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "Invalid claims")
	}

	result, err := h.loanService.ApplyRepayment(c.Context(), id, loan.RepaymentRequest{
		Amount:               amount,
		PaymentMethod:        input.PaymentMethod,
		TransactionReference: input.TransactionReference,
		PaymentDate:          input.PaymentDate,
		RecordedBy:           claims.UserID,
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrLoanNotFound):
			return utils.NotFound(c, "Loan not found")
		case errors.Is(err, loan.ErrDuplicateReference):
			return utils.Conflict(c, err.Error())
		case errors.Is(err, loan.ErrLoanNotRepayable),
			errors.Is(err, loan.ErrInvalidAmount),
			errors.Is(err, loan.ErrInvalidMethod),
			errors.Is(err, loan.ErrMissingReference):
			return utils.BadRequest(c, err.Error())
		default:
			return utils.InternalError(c, "Failed to record repayment")
		}
	}

	return utils.Created(c, fiber.Map{
		"repayment":   result.Repayment,
		"balance":     result.Balance,
		"overpayment": result.Overpayment,
		"excess":      result.Excess,
		"completed":   result.Completed,
	})
}

// MarkDefaulted flags a lapsed loan.
func (h *LoanHandler) MarkDefaulted(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid loan ID")
	}

	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "Invalid claims")
	}

	if err := h.loanService.MarkDefaulted(c.Context(), id, claims.UserID); err != nil {
		if errors.Is(err, loan.ErrNotEligibleForDefault) {
			return utils.BadRequest(c, err.Error())
		}
		return h.mapError(c, err)
	}
	return utils.Success(c, fiber.Map{"message": "Loan marked defaulted"})
}

// GetLoan returns one loan.
func (h *LoanHandler) GetLoan(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid loan ID")
	}

	found, err := h.loanService.Get(c.Context(), id)
	if err != nil {
		return h.mapError(c, err)
	}
	return utils.Success(c, found)
}

// ListRepayments returns the loan's repayment history.
func (h *LoanHandler) ListRepayments(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid loan ID")
	}

	repayments, err := h.loanService.ListRepayments(c.Context(), id)
	if err != nil {
		return utils.InternalError(c, "Failed to list repayments")
	}
	return utils.Success(c, fiber.Map{"repayments": repayments})
}

// MyLoans lists loans for one of the caller's memberships.
func (h *LoanHandler) MyLoans(c *fiber.Ctx) error {
	membershipID, err := uuid.Parse(c.Params("membershipID"))
	if err != nil {
		return utils.BadRequest(c, "Invalid membership ID")
	}

	loans, err := h.loanService.ListForMembership(c.Context(), membershipID)
	if err != nil {
		return utils.InternalError(c, "Failed to list loans")
	}
	return utils.Success(c, fiber.Map{"loans": loans})
}

func (h *LoanHandler) mapError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, repositories.ErrLoanNotFound):
		return utils.NotFound(c, "Loan not found")
	case errors.Is(err, loan.ErrInvalidTransition):
		return utils.BadRequest(c, err.Error())
	default:
		return utils.InternalError(c, "Loan operation failed")
	}
}
