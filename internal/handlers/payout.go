package handlers

import (
	"context"
	"errors"
	"time"

	"chamapesa/internal/repositories"
	"chamapesa/internal/services/payout"
	"chamapesa/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type PayoutHandler struct {
	payoutService payout.Service
}

func NewPayoutHandler(payoutService payout.Service) *PayoutHandler {
	return &PayoutHandler{payoutService: payoutService}
}

// CreatePayout creates the payout record for a completed cycle.
func (h *PayoutHandler) CreatePayout(c *fiber.Ctx) error {
	cycleID, err := uuid.Parse(c.Params("cycleID"))
	if err != nil {
		return utils.BadRequest(c, "Invalid cycle ID")
	}

	var input struct {
		PaymentMethod string    `json:"payment_method"`
		ScheduledDate time.Time `json:"scheduled_date"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}
	if input.ScheduledDate.IsZero() {
		input.ScheduledDate = time.Now().UTC()
	}

	created, err := h.payoutService.CreateFromCycle(c.Context(), cycleID, input.PaymentMethod, input.ScheduledDate)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrCycleNotFound):
			return utils.NotFound(c, "Cycle not found")
		case errors.Is(err, payout.ErrPayoutAlreadyExists):
			return utils.Conflict(c, err.Error())
		case errors.Is(err, payout.ErrCycleNotCompleted),
			errors.Is(err, payout.ErrInvalidMethod):
			return utils.BadRequest(c, err.Error())
		default:
			return utils.InternalError(c, "Failed to create payout")
		}
	}

	return utils.Created(c, created)
}

// ApprovePayout moves a pending payout to APPROVED.
func (h *PayoutHandler) ApprovePayout(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid payout ID")
	}

	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "Invalid claims")
	}

	if err := h.payoutService.Approve(c.Context(), id, claims.UserID); err != nil {
		return h.mapError(c, err)
	}
	return utils.Success(c, fiber.Map{"message": "Payout approved"})
}

// MarkProcessing flags the payout as in flight.
func (h *PayoutHandler) MarkProcessing(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid payout ID")
	}

	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "Invalid claims")
	}

	if err := h.payoutService.MarkProcessing(c.Context(), id, claims.UserID); err != nil {
		return h.mapError(c, err)
	}
	return utils.Success(c, fiber.Map{"message": "Payout processing"})
}

// MarkCompleted records the actual disbursement.
func (h *PayoutHandler) MarkCompleted(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid payout ID")
	}

	var input struct {
		ActualDate time.Time `json:"actual_date"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}
	if input.ActualDate.IsZero() {
		input.ActualDate = time.Now().UTC()
	}

	if err := h.payoutService.MarkCompleted(c.Context(), id, input.ActualDate); err != nil {
		return h.mapError(c, err)
	}
	return utils.Success(c, fiber.Map{"message": "Payout completed"})
}

// FailPayout records a failed disbursement attempt.
func (h *PayoutHandler) FailPayout(c *fiber.Ctx) error {
	return h.terminate(c, h.payoutService.Fail, "Payout failed")
}

// CancelPayout abandons the payout.
func (h *PayoutHandler) CancelPayout(c *fiber.Ctx) error {
	return h.terminate(c, h.payoutService.Cancel, "Payout cancelled")
}

// GetPayout returns one payout.
func (h *PayoutHandler) GetPayout(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid payout ID")
	}

	found, err := h.payoutService.Get(c.Context(), id)
	if err != nil {
		return h.mapError(c, err)
	}
	return utils.Success(c, found)
}

// ListPending returns payouts awaiting approval or processing.
func (h *PayoutHandler) ListPending(c *fiber.Ctx) error {
	p := utils.ParsePageParams(c)
	payouts, err := h.payoutService.ListPending(c.Context(), p.Limit, p.Offset)
	if err != nil {
		return utils.InternalError(c, "Failed to list payouts")
	}
	return utils.Success(c, fiber.Map{
		"payouts": payouts,
		"page":    p.Page,
		"limit":   p.Limit,
	})
}

func (h *PayoutHandler) terminate(c *fiber.Ctx, op func(ctx context.Context, payoutID uuid.UUID, reason string) error, message string) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid payout ID")
	}

	var input struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}

	if err := op(c.Context(), id, input.Reason); err != nil {
		return h.mapError(c, err)
	}
	return utils.Success(c, fiber.Map{"message": message})
}

func (h *PayoutHandler) mapError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, repositories.ErrPayoutNotFound):
		return utils.NotFound(c, "Payout not found")
	case errors.Is(err, payout.ErrInvalidTransition):
		return utils.BadRequest(c, err.Error())
	default:
		return utils.InternalError(c, "Payout operation failed")
	}
}
