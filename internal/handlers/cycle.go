package handlers

import (
	"context"
	"errors"
	"time"

	"chamapesa/internal/models"
	"chamapesa/internal/repositories"
	"chamapesa/internal/services/cycle"
	"chamapesa/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CycleHandler struct {
	cycleService cycle.Service
}

func NewCycleHandler(cycleService cycle.Service) *CycleHandler {
	return &CycleHandler{cycleService: cycleService}
}

// OpenCycle starts a new collection round for a chama.
func (h *CycleHandler) OpenCycle(c *fiber.Ctx) error {
	chamaID, err := uuid.Parse(c.Params("chamaID"))
	if err != nil {
		return utils.BadRequest(c, "Invalid chama ID")
	}

	var input struct {
		CycleNumber int       `json:"cycle_number"`
		StartDate   time.Time `json:"start_date"`
		EndDate     time.Time `json:"end_date"`
		Notes       string    `json:"notes"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}

	created, err := h.cycleService.OpenCycle(c.Context(), cycle.OpenCycleRequest{
		ChamaID:     chamaID,
		CycleNumber: input.CycleNumber,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		Notes:       input.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrChamaNotFound):
			return utils.NotFound(c, "Chama not found")
		case errors.Is(err, cycle.ErrDuplicateCycleNumber):
			return utils.Conflict(c, err.Error())
		case errors.Is(err, cycle.ErrNoEligibleMembers),
			errors.Is(err, cycle.ErrInvalidWindow),
			errors.Is(err, cycle.ErrInvalidTransition):
			return utils.BadRequest(c, err.Error())
		default:
			return utils.InternalError(c, "Failed to open cycle")
		}
	}

	return utils.Created(c, created)
}

// RecordPayment records one contribution toward the cycle.
func (h *CycleHandler) RecordPayment(c *fiber.Ctx) error {
	cycleID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid cycle ID")
	}

	var input struct {
		MembershipID         string    `json:"membership_id"`
		Amount               string    `json:"amount"`
		PaymentMethod        string    `json:"payment_method"`
		TransactionReference string    `json:"transaction_reference"`
		MpesaReceiptNumber   string    `json:"mpesa_receipt_number"`
		PaymentDate          time.Time `json:"payment_date"`
		Status               string    `json:"status"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}

	membershipID, err := uuid.Parse(input.MembershipID)
	if err != nil {
		return utils.BadRequest(c, "Invalid membership ID")
	}
	amount, err := models.ParseMoney(input.Amount)
	if err != nil {
		return utils.BadRequest(c, "Invalid amount")
	}

	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "Invalid claims")
	}

	if input.PaymentDate.IsZero() {
		input.PaymentDate = time.Now().UTC()
	}

	contribution, err := h.cycleService.RecordPayment(c.Context(), cycleID, cycle.RecordPaymentRequest{
		MembershipID:         membershipID,
		Amount:               amount,
		PaymentMethod:        input.PaymentMethod,
		TransactionReference: input.TransactionReference,
		MpesaReceiptNumber:   input.MpesaReceiptNumber,
		PaymentDate:          input.PaymentDate,
		Status:               input.Status,
		RecordedBy:           claims.UserID,
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrCycleNotFound):
			return utils.NotFound(c, "Cycle not found")
		case errors.Is(err, cycle.ErrDuplicateReference):
			return utils.Conflict(c, err.Error())
		case errors.Is(err, cycle.ErrCycleClosed),
			errors.Is(err, cycle.ErrInvalidAmount),
			errors.Is(err, cycle.ErrInvalidMethod),
			errors.Is(err, cycle.ErrMissingReference):
			return utils.BadRequest(c, err.Error())
		default:
			return utils.InternalError(c, "Failed to record payment")
		}
	}

	return utils.Created(c, contribution)
}

// ConfirmPayment settles an asynchronous gateway callback.
func (h *CycleHandler) ConfirmPayment(c *fiber.Ctx) error {
	contributionID, err := uuid.Parse(c.Params("contributionID"))
	if err != nil {
		return utils.BadRequest(c, "Invalid contribution ID")
	}

	var input struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}

	if err := h.cycleService.ConfirmPayment(c.Context(), contributionID, input.Status); err != nil {
		switch {
		case errors.Is(err, repositories.ErrContributionNotFound):
			return utils.NotFound(c, "Contribution not found")
		case errors.Is(err, cycle.ErrInvalidTransition):
			return utils.BadRequest(c, err.Error())
		default:
			return utils.InternalError(c, "Failed to confirm payment")
		}
	}
	return utils.Success(c, fiber.Map{"status": input.Status})
}

// CloseCycle completes the cycle and credits the beneficiary.
func (h *CycleHandler) CloseCycle(c *fiber.Ctx) error {
	return h.lifecycle(c, h.cycleService.CloseCycle, "Cycle closed")
}

// CancelCycle abandons the cycle without paying out.
func (h *CycleHandler) CancelCycle(c *fiber.Ctx) error {
	return h.lifecycle(c, h.cycleService.CancelCycle, "Cycle cancelled")
}

// GetCycle returns one cycle.
func (h *CycleHandler) GetCycle(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid cycle ID")
	}

	found, err := h.cycleService.GetCycle(c.Context(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrCycleNotFound) {
			return utils.NotFound(c, "Cycle not found")
		}
		return utils.InternalError(c, "Failed to get cycle")
	}
	return utils.Success(c, found)
}

// ListCycles returns a chama's cycles, newest first.
func (h *CycleHandler) ListCycles(c *fiber.Ctx) error {
	chamaID, err := uuid.Parse(c.Params("chamaID"))
	if err != nil {
		return utils.BadRequest(c, "Invalid chama ID")
	}

	p := utils.ParsePageParams(c)
	cycles, err := h.cycleService.ListCycles(c.Context(), chamaID, p.Limit, p.Offset)
	if err != nil {
		return utils.InternalError(c, "Failed to list cycles")
	}
	return utils.Success(c, fiber.Map{
		"cycles": cycles,
		"page":   p.Page,
		"limit":  p.Limit,
	})
}

// ListContributions returns the cycle's contributions.
func (h *CycleHandler) ListContributions(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid cycle ID")
	}

	contributions, err := h.cycleService.ListContributions(c.Context(), id)
	if err != nil {
		return utils.InternalError(c, "Failed to list contributions")
	}
	return utils.Success(c, fiber.Map{"contributions": contributions})
}

func (h *CycleHandler) lifecycle(c *fiber.Ctx, op func(ctx context.Context, cycleID, actorID uuid.UUID) error, message string) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid cycle ID")
	}

	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "Invalid claims")
	}

	if err := op(c.Context(), id, claims.UserID); err != nil {
		switch {
		case errors.Is(err, repositories.ErrCycleNotFound):
			return utils.NotFound(c, "Cycle not found")
		case errors.Is(err, cycle.ErrIncompleteCollection),
			errors.Is(err, cycle.ErrInvalidTransition):
			return utils.BadRequest(c, err.Error())
		default:
			return utils.InternalError(c, "Cycle operation failed")
		}
	}
	return utils.Success(c, fiber.Map{"message": message})
}
