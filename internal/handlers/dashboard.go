package handlers

import (
	"errors"

	"chamapesa/internal/repositories"
	"chamapesa/internal/services/dashboard"
	"chamapesa/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type DashboardHandler struct {
	dashboardService dashboard.Service
}

func NewDashboardHandler(dashboardService dashboard.Service) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

// GetDashboard returns the projection matching the caller's role.
func (h *DashboardHandler) GetDashboard(c *fiber.Ctx) error {
	chamaID, err := uuid.Parse(c.Params("chamaID"))
	if err != nil {
		return utils.BadRequest(c, "Invalid chama ID")
	}

	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "Invalid claims")
	}

	projection, err := h.dashboardService.DashboardFor(c.Context(), claims.Role, claims.UserID, chamaID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrChamaNotFound),
			errors.Is(err, repositories.ErrMembershipNotFound):
			return utils.NotFound(c, "Not found")
		case errors.Is(err, dashboard.ErrUnknownRole):
			return utils.Forbidden(c, "Access denied")
		default:
			return utils.InternalError(c, "Failed to get dashboard data")
		}
	}

	return utils.Success(c, projection)
}
