// Package middleware provides the fiber middleware shared by every route:
// bearer authentication, permission checks, request metrics and the
// request-scoped logger.
package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"amlguard/internal/models"
	"amlguard/internal/services/auth"
	"amlguard/internal/utils"
)

// AccessTokenCookie carries the access token for browser clients.
const AccessTokenCookie = "access_token"

// AuthMiddleware validates access tokens and stores the claims in locals.
type AuthMiddleware struct {
	authService auth.Service
}

func NewAuthMiddleware(authService auth.Service) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
	}
}

// Handler accepts a Bearer token from the Authorization header, falling
// back to the access token cookie. Revoked tokens are rejected.
func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	token, err := bearerToken(c)
	if err != nil {
		return utils.Unauthorized(c, err.Error())
	}

	ctx := c.UserContext()
	claims, err := m.authService.Authenticate(ctx, token)
	switch {
	case errors.Is(err, auth.ErrSessionExpired):
		return utils.Unauthorized(c, "session expired")
	case errors.Is(err, auth.ErrInvalidToken):
		log.Ctx(ctx).Debug().Msg("rejected invalid token")
		return utils.Unauthorized(c, "invalid token")
	case err != nil:
		log.Ctx(ctx).Error().Err(err).Msg("token check failed")
		return utils.InternalError(c, "internal server error")
	}

	c.Locals(utils.ClaimsKey, claims)
	logger := log.Ctx(ctx).With().Uint("user_id", claims.UserID).Logger()
	c.SetUserContext(logger.WithContext(ctx))
	return c.Next()
}

func bearerToken(c *fiber.Ctx) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		if cookie := c.Cookies(AccessTokenCookie); cookie != "" {
			return cookie, nil
		}
		return "", errors.New("missing authorization header")
	}

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", errors.New("invalid authorization format")
	}
	return strings.TrimSpace(token), nil
}

// AdminOnly rejects non-admin callers.
func AdminOnly(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "unauthorized")
	}
	if claims.Role != models.RoleAdmin {
		log.Ctx(c.UserContext()).Info().Str("role", claims.Role).Msg("admin route denied")
		return utils.Forbidden(c, "insufficient permissions")
	}
	return c.Next()
}

// HasPermission returns a middleware that checks for a specific permission.
// Admins pass every check.
func HasPermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := utils.GetUserClaims(c)
		if err != nil {
			return utils.Unauthorized(c, "unauthorized")
		}

		if claims.Role == models.RoleAdmin || claims.HasPermission(permission) {
			return c.Next()
		}

		log.Ctx(c.UserContext()).Info().
			Str("role", claims.Role).
			Str("permission", permission).
			Msg("permission denied")
		return utils.Forbidden(c, "insufficient permissions")
	}
}
