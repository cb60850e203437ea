package handlers

import (
	"errors"

	"chamapesa/internal/models"
	"chamapesa/internal/repositories"
	"chamapesa/internal/services/chama"
	"chamapesa/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ChamaHandler struct {
	chamaService chama.Service
}

func NewChamaHandler(chamaService chama.Service) *ChamaHandler {
	return &ChamaHandler{chamaService: chamaService}
}

// CreateChama registers a new chama with its financial policy.
func (h *ChamaHandler) CreateChama(c *fiber.Ctx) error {
	var input struct {
		Name                string  `json:"name"`
		Description         string  `json:"description"`
		RegistrationNumber  string  `json:"registration_number"`
		ContributionAmount  string  `json:"contribution_amount"`
		Frequency           string  `json:"frequency"`
		LatePaymentPenalty  string  `json:"late_payment_penalty"`
		LoanInterestRate    float64 `json:"loan_interest_rate"`
		MaxMembers          int     `json:"max_members"`
		MinGuarantors       int     `json:"min_guarantors"`
		CompletionThreshold float64 `json:"completion_threshold"`
		PayoutRatio         float64 `json:"payout_ratio"`
		MeetingDay          string  `json:"meeting_day"`
		MeetingLocation     string  `json:"meeting_location"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}
	if input.Name == "" {
		return utils.BadRequest(c, "Name is required")
	}

	amount, err := models.ParseMoney(input.ContributionAmount)
	if err != nil {
		return utils.BadRequest(c, "Invalid contribution amount")
	}
	var penalty models.Money
	if input.LatePaymentPenalty != "" {
		penalty, err = models.ParseMoney(input.LatePaymentPenalty)
		if err != nil {
			return utils.BadRequest(c, "Invalid late payment penalty")
		}
	}

	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "Invalid claims")
	}

	created, err := h.chamaService.Create(c.Context(), chama.CreateRequest{
		Name:                input.Name,
		Description:         input.Description,
		RegistrationNumber:  input.RegistrationNumber,
		ContributionAmount:  amount,
		Frequency:           input.Frequency,
		LatePaymentPenalty:  penalty,
		LoanInterestRate:    models.Percent(input.LoanInterestRate),
		MaxMembers:          input.MaxMembers,
		MinGuarantors:       input.MinGuarantors,
		CompletionThreshold: models.Ratio(input.CompletionThreshold),
		PayoutRatio:         models.Ratio(input.PayoutRatio),
		MeetingDay:          input.MeetingDay,
		MeetingLocation:     input.MeetingLocation,
		CreatedByID:         claims.UserID,
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrDuplicateChama):
			return utils.Conflict(c, "Chama name already taken")
		case errors.Is(err, chama.ErrInvalidAmount),
			errors.Is(err, chama.ErrInvalidFrequency),
			errors.Is(err, chama.ErrInvalidRate),
			errors.Is(err, chama.ErrInvalidRatio),
			errors.Is(err, chama.ErrInvalidGuarantors):
			return utils.BadRequest(c, err.Error())
		default:
			return utils.InternalError(c, "Failed to create chama")
		}
	}

	return utils.Created(c, created)
}

// GetChama returns one chama by id.
func (h *ChamaHandler) GetChama(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid chama ID")
	}

	found, err := h.chamaService.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrChamaNotFound) {
			return utils.NotFound(c, "Chama not found")
		}
		return utils.InternalError(c, "Failed to get chama")
	}
	return utils.Success(c, found)
}

// ListChamas returns chamas filtered by optional status.
func (h *ChamaHandler) ListChamas(c *fiber.Ctx) error {
	p := utils.ParsePageParams(c)
	status := c.Query("status")

	chamas, err := h.chamaService.List(c.Context(), status, p.Limit, p.Offset)
	if err != nil {
		return utils.InternalError(c, "Failed to list chamas")
	}
	return utils.Success(c, fiber.Map{
		"chamas": chamas,
		"page":   p.Page,
		"limit":  p.Limit,
	})
}

// UpdateSettings mutates the chama's financial policy.
func (h *ChamaHandler) UpdateSettings(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid chama ID")
	}

	var input struct {
		ContributionAmount  *string  `json:"contribution_amount"`
		LatePaymentPenalty  *string  `json:"late_payment_penalty"`
		LoanInterestRate    *float64 `json:"loan_interest_rate"`
		MaxMembers          *int     `json:"max_members"`
		MinGuarantors       *int     `json:"min_guarantors"`
		CompletionThreshold *float64 `json:"completion_threshold"`
		PayoutRatio         *float64 `json:"payout_ratio"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}

	var update chama.SettingsUpdate
	if input.ContributionAmount != nil {
		amount, err := models.ParseMoney(*input.ContributionAmount)
		if err != nil {
			return utils.BadRequest(c, "Invalid contribution amount")
		}
		update.ContributionAmount = &amount
	}
	if input.LatePaymentPenalty != nil {
		penalty, err := models.ParseMoney(*input.LatePaymentPenalty)
		if err != nil {
			return utils.BadRequest(c, "Invalid late payment penalty")
		}
		update.LatePaymentPenalty = &penalty
	}
	if input.LoanInterestRate != nil {
		rate := models.Percent(*input.LoanInterestRate)
		update.LoanInterestRate = &rate
	}
	update.MaxMembers = input.MaxMembers
	update.MinGuarantors = input.MinGuarantors
	if input.CompletionThreshold != nil {
		threshold := models.Ratio(*input.CompletionThreshold)
		update.CompletionThreshold = &threshold
	}
	if input.PayoutRatio != nil {
		ratio := models.Ratio(*input.PayoutRatio)
		update.PayoutRatio = &ratio
	}

	updated, err := h.chamaService.UpdateSettings(c.Context(), id, update)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrChamaNotFound):
			return utils.NotFound(c, "Chama not found")
		case errors.Is(err, chama.ErrSettingsLocked):
			return utils.Forbidden(c, err.Error())
		default:
			return utils.BadRequest(c, err.Error())
		}
	}
	return utils.Success(c, updated)
}

// SetStatus moves the chama between lifecycle states.
func (h *ChamaHandler) SetStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid chama ID")
	}

	var input struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}

	if err := h.chamaService.SetStatus(c.Context(), id, input.Status); err != nil {
		switch {
		case errors.Is(err, repositories.ErrChamaNotFound):
			return utils.NotFound(c, "Chama not found")
		case errors.Is(err, chama.ErrInvalidTransition):
			return utils.BadRequest(c, err.Error())
		default:
			return utils.InternalError(c, "Failed to update status")
		}
	}
	return utils.Success(c, fiber.Map{"status": input.Status})
}
