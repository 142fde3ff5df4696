package handlers

import (
	"github.com/gofiber/fiber/v2"

	"amlguard/internal/models"
	"amlguard/internal/services/risk"
	"amlguard/internal/services/transaction"
	"amlguard/internal/utils"
)

type TransactionHandler struct {
	transactionService transaction.Service
}

func NewTransactionHandler(transactionService transaction.Service) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

// List pages through stored transactions, newest first. Supports status,
// q (matched against ids, accounts and description), page and limit.
func (h *TransactionHandler) List(c *fiber.Ctx) error {
	p := utils.GetPagination(c, transaction.DefaultPageSize, transaction.MaxPageSize)

	txs, total, err := h.transactionService.List(c.UserContext(), models.TransactionFilter{
		Status: risk.Status(c.Query("status")),
		Search: c.Query("q"),
		Limit:  p.Limit,
		Offset: p.Offset,
	})
	if err != nil {
		return respondError(c, err, "failed to list transactions")
	}

	views := make([]models.TransactionView, len(txs))
	for i := range txs {
		views[i] = txs[i].View()
	}
	p.SetTotal(total)
	return utils.Success(c, utils.NewPaginatedResponse(views, p))
}

func (h *TransactionHandler) Create(c *fiber.Ctx) error {
	var input models.TransactionInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}

	tx, err := h.transactionService.Create(c.UserContext(), &input)
	if err != nil {
		return respondError(c, err, "failed to create transaction")
	}
	return utils.Created(c, tx.View())
}

func (h *TransactionHandler) Get(c *fiber.Ctx) error {
	tx, err := h.transactionService.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err, "failed to get transaction")
	}
	return utils.Success(c, tx.View())
}

// Update replaces every field and reassesses from scratch.
func (h *TransactionHandler) Update(c *fiber.Ctx) error {
	var input models.TransactionInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}

	tx, err := h.transactionService.Update(c.UserContext(), c.Params("id"), &input)
	if err != nil {
		return respondError(c, err, "failed to update transaction")
	}
	return utils.Success(c, tx.View())
}

func (h *TransactionHandler) Patch(c *fiber.Ctx) error {
	var patch models.TransactionPatch
	if err := c.BodyParser(&patch); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}

	tx, err := h.transactionService.Patch(c.UserContext(), c.Params("id"), &patch)
	if err != nil {
		return respondError(c, err, "failed to patch transaction")
	}
	return utils.Success(c, tx.View())
}

func (h *TransactionHandler) Delete(c *fiber.Ctx) error {
	if err := h.transactionService.Delete(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err, "failed to delete transaction")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *TransactionHandler) DeleteAll(c *fiber.Ctx) error {
	deleted, err := h.transactionService.DeleteAll(c.UserContext())
	if err != nil {
		return respondError(c, err, "failed to delete transactions")
	}
	return utils.Success(c, fiber.Map{"deleted": deleted})
}
