package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"amlguard/internal/models"
	"amlguard/internal/repositories"
	"amlguard/internal/utils"
	"amlguard/internal/validation"
)

// TokenPair is returned on register, login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type Service interface {
	Register(ctx context.Context, in *models.RegisterInput) (*models.User, *TokenPair, error)
	// CreateUser stores a user with an explicit role and issues no tokens.
	CreateUser(ctx context.Context, in *models.RegisterInput, role string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*models.User, *TokenPair, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error)
	// Logout revokes every token issued to the user so far.
	Logout(ctx context.Context, userID uint) error
	ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error
	GetUserByID(ctx context.Context, userID uint) (*models.User, error)
	GetUserTokenVersion(ctx context.Context, userID uint) (int, error)
	// Authenticate checks an access token and that it has not been revoked.
	Authenticate(ctx context.Context, accessToken string) (*models.UserClaims, error)
}

type service struct {
	userRepo repositories.UserRepository
	tokens   *utils.TokenIssuer
}

func NewService(userRepo repositories.UserRepository, tokens *utils.TokenIssuer) Service {
	return &service{
		userRepo: userRepo,
		tokens:   tokens,
	}
}

func (s *service) Register(ctx context.Context, in *models.RegisterInput) (*models.User, *TokenPair, error) {
	user, err := s.CreateUser(ctx, in, models.RoleAnalyst)
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.issue(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (s *service) CreateUser(ctx context.Context, in *models.RegisterInput, role string) (*models.User, error) {
	v := validation.New()
	v.Registration(in)
	v.Check(models.ValidRole(role), "role", "must be one of: admin, analyst, investigator")
	if err := v.Err(); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		Password:     string(hashedPassword),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Department:   in.Department,
		Role:         role,
		TokenVersion: 1,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().Uint("user_id", user.ID).Str("username", user.Username).Str("role", role).Msg("user registered")
	return user, nil
}

func (s *service) Login(ctx context.Context, username, password string) (*models.User, *TokenPair, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			log.Ctx(ctx).Info().Str("username", username).Msg("login failed: unknown user")
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		log.Ctx(ctx).Info().Uint("user_id", user.ID).Msg("login failed: incorrect password")
		return nil, nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	user.LastLoginAt = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		log.Ctx(ctx).Warn().Err(err).Uint("user_id", user.ID).Msg("failed to record login time")
	}

	pair, err := s.issue(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (s *service) RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.ParseToken(refreshToken, models.TokenTypeRefresh)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if user.TokenVersion != claims.TokenVersion {
		return nil, ErrSessionExpired
	}

	return s.issue(user)
}

func (s *service) Logout(ctx context.Context, userID uint) error {
	return s.userRepo.IncrementTokenVersion(ctx, userID)
}

func (s *service) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}

	v := validation.New()
	v.Password("new_password", newPassword)
	if err := v.Err(); err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.Password = string(hashedPassword)
	user.TokenVersion++ // Invalidate existing tokens
	return s.userRepo.Update(ctx, user)
}

func (s *service) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

func (s *service) GetUserTokenVersion(ctx context.Context, userID uint) (int, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.TokenVersion, nil
}

func (s *service) Authenticate(ctx context.Context, accessToken string) (*models.UserClaims, error) {
	claims, err := s.tokens.ParseToken(accessToken, models.TokenTypeAccess)
	if err != nil {
		return nil, ErrInvalidToken
	}

	version, err := s.GetUserTokenVersion(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if version != claims.TokenVersion {
		return nil, ErrSessionExpired
	}
	return claims, nil
}

func (s *service) issue(user *models.User) (*TokenPair, error) {
	access, refresh, err := s.tokens.GenerateTokens(&models.UserClaims{
		UserID:       user.ID,
		Username:     user.Username,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
		Permissions:  models.GetDefaultPermissions(user.Role),
	})
	if err != nil {
		return nil, fmt.Errorf("error generating tokens: %w", err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}
