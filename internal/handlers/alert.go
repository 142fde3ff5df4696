package handlers

import (
	"github.com/gofiber/fiber/v2"

	"amlguard/internal/models"
	"amlguard/internal/services/alert"
	"amlguard/internal/services/transaction"
	"amlguard/internal/utils"
)

type AlertHandler struct {
	alertService *alert.Service
}

func NewAlertHandler(alertService *alert.Service) *AlertHandler {
	return &AlertHandler{alertService: alertService}
}

// List returns alerts, highest risk first, optionally filtered by status.
func (h *AlertHandler) List(c *fiber.Ctx) error {
	p := utils.GetPagination(c, transaction.DefaultPageSize, transaction.MaxPageSize)

	alerts, total, err := h.alertService.List(c.UserContext(), c.Query("status"), p.Limit, p.Offset)
	if err != nil {
		return respondError(c, err, "failed to list alerts")
	}

	p.SetTotal(total)
	return utils.Success(c, utils.NewPaginatedResponse(alerts, p))
}

func (h *AlertHandler) Get(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return utils.BadRequest(c, "invalid alert id")
	}

	a, err := h.alertService.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err, "failed to get alert")
	}
	return utils.Success(c, a)
}

func (h *AlertHandler) Transition(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return utils.BadRequest(c, "invalid alert id")
	}

	var input models.AlertTransitionInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}

	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "unauthorized")
	}

	a, err := h.alertService.Transition(c.UserContext(), id, &input, claims.Username)
	if err != nil {
		return respondError(c, err, "failed to transition alert")
	}
	return utils.Success(c, a)
}
