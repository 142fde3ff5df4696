package handlers

import (
	"github.com/gofiber/fiber/v2"

	"amlguard/internal/models"
	"amlguard/internal/services/alert"
	"amlguard/internal/services/transaction"
	"amlguard/internal/utils"
)

const dashboardAlerts = 5

type DashboardHandler struct {
	transactionService transaction.Service
	alertService       *alert.Service
}

func NewDashboardHandler(transactionService transaction.Service, alertService *alert.Service) *DashboardHandler {
	return &DashboardHandler{
		transactionService: transactionService,
		alertService:       alertService,
	}
}

// Summary returns status counts and the average risk score.
func (h *DashboardHandler) Summary(c *fiber.Ctx) error {
	summary, err := h.transactionService.Summary(c.UserContext())
	if err != nil {
		return respondError(c, err, "failed to summarize transactions")
	}
	return utils.Success(c, summary)
}

// Overview adds the highest-risk open alerts to the summary.
func (h *DashboardHandler) Overview(c *fiber.Ctx) error {
	ctx := c.UserContext()

	summary, err := h.transactionService.Summary(ctx)
	if err != nil {
		return respondError(c, err, "failed to summarize transactions")
	}

	active, activeTotal, err := h.alertService.List(ctx, models.AlertActive, dashboardAlerts, 0)
	if err != nil {
		return respondError(c, err, "failed to list alerts")
	}
	_, investigating, err := h.alertService.List(ctx, models.AlertInvestigating, 1, 0)
	if err != nil {
		return respondError(c, err, "failed to list alerts")
	}

	return utils.Success(c, fiber.Map{
		"summary": summary,
		"alerts": fiber.Map{
			"active":        activeTotal,
			"investigating": investigating,
			"top":           active,
		},
	})
}
