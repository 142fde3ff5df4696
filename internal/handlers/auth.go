package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"amlguard/internal/middleware"
	"amlguard/internal/models"
	"amlguard/internal/services/auth"
	"amlguard/internal/utils"
	"amlguard/internal/validation"
)

const refreshTokenCookie = "refresh_token"

type AuthHandler struct {
	authService   auth.Service
	secureCookies bool
	refreshTTL    time.Duration
}

func NewAuthHandler(authService auth.Service, secureCookies bool, refreshTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		secureCookies: secureCookies,
		refreshTTL:    refreshTTL,
	}
}

// Register creates an analyst account and logs it in.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input models.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}

	user, pair, err := h.authService.Register(c.UserContext(), &input)
	if err != nil {
		return respondError(c, err, "failed to register user")
	}

	h.setAuthCookies(c, pair)
	return utils.Created(c, fiber.Map{
		"user":   user.View(),
		"tokens": pair,
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input models.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}

	v := validation.New()
	v.Struct(&input)
	if !v.Valid() {
		return utils.ValidationFailed(c, v.Errors)
	}

	user, pair, err := h.authService.Login(c.UserContext(), input.Username, input.Password)
	if err != nil {
		return respondError(c, err, "failed to log in")
	}

	h.setAuthCookies(c, pair)
	return utils.Success(c, fiber.Map{
		"user":   user.View(),
		"tokens": pair,
	})
}

// Refresh trades a refresh token, from the cookie or the body, for a new pair.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	refreshToken := c.Cookies(refreshTokenCookie)
	if refreshToken == "" {
		var input struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := c.BodyParser(&input); err != nil {
			return utils.Unauthorized(c, "refresh token not provided")
		}
		refreshToken = input.RefreshToken
	}
	if refreshToken == "" {
		return utils.Unauthorized(c, "refresh token not provided")
	}

	pair, err := h.authService.RefreshTokens(c.UserContext(), refreshToken)
	if err != nil {
		return respondError(c, err, "failed to refresh tokens")
	}

	h.setAuthCookies(c, pair)
	return utils.Success(c, pair)
}

// Logout revokes every token of the caller.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	if err := h.authService.Logout(c.UserContext(), claims.UserID); err != nil {
		return respondError(c, err, "failed to log out")
	}

	h.clearAuthCookies(c)
	return utils.Success(c, fiber.Map{"message": "successfully logged out"})
}

func (h *AuthHandler) setAuthCookies(c *fiber.Ctx, pair *auth.TokenPair) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    pair.AccessToken,
		HTTPOnly: true,
		Secure:   h.secureCookies,
		Path:     "/",
		SameSite: fiber.CookieSameSiteStrictMode,
		MaxAge:   int(pair.ExpiresIn),
	})
	c.Cookie(&fiber.Cookie{
		Name:     refreshTokenCookie,
		Value:    pair.RefreshToken,
		HTTPOnly: true,
		Secure:   h.secureCookies,
		Path:     "/api/refresh",
		SameSite: fiber.CookieSameSiteStrictMode,
		MaxAge:   int(h.refreshTTL.Seconds()),
	})
}

func (h *AuthHandler) clearAuthCookies(c *fiber.Ctx) {
	expired := time.Now().Add(-time.Hour)
	c.Cookie(&fiber.Cookie{
		Name:     middleware.AccessTokenCookie,
		Expires:  expired,
		HTTPOnly: true,
		Secure:   h.secureCookies,
		Path:     "/",
	})
	c.Cookie(&fiber.Cookie{
		Name:     refreshTokenCookie,
		Expires:  expired,
		HTTPOnly: true,
		Secure:   h.secureCookies,
		Path:     "/api/refresh",
	})
}
