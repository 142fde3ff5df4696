package handlers

import (
	"github.com/gofiber/fiber/v2"

	"amlguard/internal/models"
	"amlguard/internal/repositories/cache"
	"amlguard/internal/services/auth"
	"amlguard/internal/services/transaction"
	"amlguard/internal/utils"
)

type AdminHandler struct {
	transactionService transaction.Service
	authService        auth.Service
	cache              *cache.CacheService
}

// NewAdminHandler wires the admin routes. cache may be nil.
func NewAdminHandler(transactionService transaction.Service, authService auth.Service, cache *cache.CacheService) *AdminHandler {
	return &AdminHandler{
		transactionService: transactionService,
		authService:        authService,
		cache:              cache,
	}
}

// Reassess re-runs the current rules over every stored transaction.
func (h *AdminHandler) Reassess(c *fiber.Ctx) error {
	result, err := h.transactionService.Reassess(c.UserContext())
	if err != nil {
		return respondError(c, err, "failed to reassess transactions")
	}
	return utils.Success(c, result)
}

// CreateUser provisions an account with an explicit role.
func (h *AdminHandler) CreateUser(c *fiber.Ctx) error {
	var input struct {
		models.RegisterInput
		Role string `json:"role"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}

	user, err := h.authService.CreateUser(c.UserContext(), &input.RegisterInput, input.Role)
	if err != nil {
		return respondError(c, err, "failed to create user")
	}
	return utils.Created(c, user.View())
}

func (h *AdminHandler) CacheStats(c *fiber.Ctx) error {
	if h.cache == nil {
		return utils.Success(c, fiber.Map{"enabled": false})
	}

	stats := h.cache.GetStats()
	return utils.Success(c, fiber.Map{
		"enabled": true,
		"pool_stats": fiber.Map{
			"hits":        stats.Hits,
			"misses":      stats.Misses,
			"timeouts":    stats.Timeouts,
			"total_conns": stats.TotalConns,
			"idle_conns":  stats.IdleConns,
			"stale_conns": stats.StaleConns,
		},
	})
}
