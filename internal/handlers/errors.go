package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"amlguard/internal/services/alert"
	"amlguard/internal/services/auth"
	"amlguard/internal/services/report"
	"amlguard/internal/services/transaction"
	"amlguard/internal/utils"
	"amlguard/internal/validation"
)

// respondError maps service errors to HTTP responses. Anything unmapped is
// logged with action and answered with a generic 500.
func respondError(c *fiber.Ctx, err error, action string) error {
	if errs, ok := validation.AsErrors(err); ok {
		return utils.ValidationFailed(c, errs)
	}

	switch {
	case errors.Is(err, transaction.ErrTransactionNotFound):
		return utils.NotFound(c, "transaction not found")
	case errors.Is(err, alert.ErrAlertNotFound):
		return utils.NotFound(c, "alert not found")
	case errors.Is(err, auth.ErrUserNotFound):
		return utils.NotFound(c, "user not found")
	case errors.Is(err, transaction.ErrDuplicateTransaction):
		return utils.Conflict(c, "transaction already exists")
	case errors.Is(err, auth.ErrUsernameTaken):
		return utils.Conflict(c, "username or email already taken")
	case errors.Is(err, alert.ErrInvalidTransition):
		return utils.Conflict(c, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		return utils.Unauthorized(c, "invalid username or password")
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrSessionExpired):
		return utils.Unauthorized(c, err.Error())
	case errors.Is(err, report.ErrEmptyUpload),
		errors.Is(err, report.ErrMalformedUpload),
		errors.Is(err, report.ErrMissingColumns),
		errors.Is(err, report.ErrUnsupportedFormat),
		errors.Is(err, report.ErrTooManyRows):
		return utils.BadRequest(c, err.Error())
	}

	log.Ctx(c.UserContext()).Error().Err(err).Msg(action)
	return utils.InternalError(c, "internal server error")
}

func paramID(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
