package utils

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"amlguard/internal/models"
)

const tokenIssuer = "amlguard-api"

var (
	ErrMissingSecret = errors.New("JWT_SECRET not configured")
	ErrInvalidToken  = errors.New("invalid token")
)

// TokenIssuer signs and verifies HS256 access and refresh tokens.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// AccessTTL is the lifetime of access tokens.
func (t *TokenIssuer) AccessTTL() time.Duration {
	return t.accessTTL
}

// GenerateTokens generates an access token and a refresh token for the given user claims.
func (t *TokenIssuer) GenerateTokens(claims *models.UserClaims) (accessToken string, refreshToken string, err error) {
	now := time.Now()

	accessToken, err = t.sign(claims, models.TokenTypeAccess, now, t.accessTTL, claims.Permissions)
	if err != nil {
		return "", "", err
	}

	// refresh tokens carry no permissions; they are re-derived from the role on refresh
	refreshToken, err = t.sign(claims, models.TokenTypeRefresh, now, t.refreshTTL, nil)
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

func (t *TokenIssuer) sign(claims *models.UserClaims, tokenType string, now time.Time, ttl time.Duration, permissions []string) (string, error) {
	c := models.UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatUint(uint64(claims.UserID), 10),
		},
		UserID:       claims.UserID,
		Username:     claims.Username,
		Role:         claims.Role,
		Permissions:  permissions,
		TokenVersion: claims.TokenVersion,
		TokenType:    tokenType,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
}

// ParseToken parses and validates a JWT token string of the given type.
func (t *TokenIssuer) ParseToken(tokenStr, tokenType string) (*models.UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &models.UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*models.UserClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != tokenType {
		return nil, errors.Join(ErrInvalidToken, errors.New("wrong token type"))
	}
	return claims, nil
}
