package handlers

import (
	"github.com/gofiber/fiber/v2"

	"amlguard/internal/models"
	"amlguard/internal/services/transaction"
	"amlguard/internal/utils"
)

// RiskHandler exposes the engine without storing anything.
type RiskHandler struct {
	transactionService transaction.Service
}

func NewRiskHandler(transactionService transaction.Service) *RiskHandler {
	return &RiskHandler{transactionService: transactionService}
}

func (h *RiskHandler) Evaluate(c *fiber.Ctx) error {
	var input models.TransactionInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}

	assessment, err := h.transactionService.Evaluate(c.UserContext(), &input)
	if err != nil {
		return respondError(c, err, "failed to evaluate transaction")
	}
	return utils.Success(c, fiber.Map{
		"transaction_id": input.ID,
		"risk_score":     assessment.RiskScore,
		"flags":          assessment.Flags,
		"status":         assessment.Status,
	})
}

func (h *RiskHandler) Rules(c *fiber.Ctx) error {
	return utils.Success(c, fiber.Map{"rules": h.transactionService.Rules()})
}
