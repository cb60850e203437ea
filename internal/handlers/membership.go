package handlers

import (
	"context"
	"errors"
	"time"

	"chamapesa/internal/repositories"
	"chamapesa/internal/services/membership"
	"chamapesa/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type MembershipHandler struct {
	membershipService membership.Service
}

func NewMembershipHandler(membershipService membership.Service) *MembershipHandler {
	return &MembershipHandler{membershipService: membershipService}
}

// Enroll joins the authenticated user to a chama as PENDING.
func (h *MembershipHandler) Enroll(c *fiber.Ctx) error {
	chamaID, err := uuid.Parse(c.Params("chamaID"))
	if err != nil {
		return utils.BadRequest(c, "Invalid chama ID")
	}

	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "Invalid claims")
	}

	m, err := h.membershipService.Enroll(c.Context(), chamaID, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrChamaNotFound):
			return utils.NotFound(c, "Chama not found")
		case errors.Is(err, membership.ErrDuplicateMembership):
			return utils.Conflict(c, "Already a member")
		case errors.Is(err, membership.ErrCapacityExceeded),
			errors.Is(err, membership.ErrChamaNotAccepting):
			return utils.BadRequest(c, err.Error())
		default:
			return utils.InternalError(c, "Failed to enroll")
		}
	}

	return utils.Created(c, m)
}

// Activate approves a pending membership.
func (h *MembershipHandler) Activate(c *fiber.Ctx) error {
	return h.transition(c, h.membershipService.Activate, "Membership activated")
}

// Suspend suspends an active membership.
func (h *MembershipHandler) Suspend(c *fiber.Ctx) error {
	return h.transition(c, h.membershipService.Suspend, "Membership suspended")
}

// Withdraw exits the member from the chama.
func (h *MembershipHandler) Withdraw(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid membership ID")
	}

	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "Invalid claims")
	}

	if err := h.membershipService.Withdraw(c.Context(), id, time.Now().UTC(), claims.UserID); err != nil {
		return h.mapError(c, err)
	}
	return utils.Success(c, fiber.Map{"message": "Membership withdrawn"})
}

// GetMembership returns one membership.
func (h *MembershipHandler) GetMembership(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid membership ID")
	}

	m, err := h.membershipService.Get(c.Context(), id)
	if err != nil {
		return h.mapError(c, err)
	}
	return utils.Success(c, m)
}

// MyMemberships lists the authenticated user's memberships.
func (h *MembershipHandler) MyMemberships(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "Invalid claims")
	}

	memberships, err := h.membershipService.ListForUser(c.Context(), claims.UserID)
	if err != nil {
		return utils.InternalError(c, "Failed to list memberships")
	}
	return utils.Success(c, fiber.Map{"memberships": memberships})
}

func (h *MembershipHandler) transition(c *fiber.Ctx, op func(ctx context.Context, membershipID, actorID uuid.UUID) error, message string) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid membership ID")
	}

	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "Invalid claims")
	}

	if err := op(c.Context(), id, claims.UserID); err != nil {
		return h.mapError(c, err)
	}
	return utils.Success(c, fiber.Map{"message": message})
}

func (h *MembershipHandler) mapError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, repositories.ErrMembershipNotFound):
		return utils.NotFound(c, "Membership not found")
	case errors.Is(err, membership.ErrInvalidTransition):
		return utils.BadRequest(c, err.Error())
	default:
		return utils.InternalError(c, "Membership operation failed")
	}
}
