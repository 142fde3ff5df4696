package handlers

import (
	"github.com/gofiber/fiber/v2"

	"amlguard/internal/services/auth"
	"amlguard/internal/utils"
)

type UserHandler struct {
	authService auth.Service
}

func NewUserHandler(authService auth.Service) *UserHandler {
	return &UserHandler{authService: authService}
}

// Me returns the profile of the caller.
func (h *UserHandler) Me(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	user, err := h.authService.GetUserByID(c.UserContext(), claims.UserID)
	if err != nil {
		return respondError(c, err, "failed to load user")
	}
	return utils.Success(c, user.View())
}

// ChangePassword revokes existing tokens on success.
func (h *UserHandler) ChangePassword(c *fiber.Ctx) error {
	var input struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}

	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	if err := h.authService.ChangePassword(c.UserContext(), claims.UserID, input.OldPassword, input.NewPassword); err != nil {
		return respondError(c, err, "failed to change password")
	}
	return utils.Success(c, fiber.Map{"message": "password changed, please log in again"})
}
