// Command admin_seed creates the first admin account. It is safe to run
// repeatedly: an existing account is left untouched.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"amlguard/internal/config"
	"amlguard/internal/logging"
	"amlguard/internal/models"
	"amlguard/internal/repositories"
	"amlguard/internal/services/auth"
	"amlguard/internal/utils"
)

func main() {
	config.LoadEnv()
	cfg := config.Load()
	logger := logging.Init(cfg.LogLevel, cfg.LogFormat)

	username := config.GetEnv("ADMIN_USERNAME", "admin")
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" {
		logger.Fatal().Msg("ADMIN_EMAIL must be set in environment")
	}

	if err := seed(cfg, logger, username, email, password); err != nil {
		logger.Fatal().Err(err).Msg("failed to seed admin")
	}
}

func seed(cfg *config.Config, logger zerolog.Logger, username, email, password string) error {
	generated := password == ""
	if generated {
		secret, err := utils.GenerateSecret(12)
		if err != nil {
			return fmt.Errorf("generate password: %w", err)
		}
		password = secret + "!"
	}

	db, err := repositories.OpenDB(cfg.Database(), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := repositories.CloseDB(db); err != nil {
			logger.Warn().Err(err).Msg("failed to close database connection")
		}
	}()

	// CreateUser issues no tokens, so any secret will do here.
	tokens, err := utils.NewTokenIssuer(config.GetEnv("JWT_SECRET", "admin-seed"), cfg.AccessTTL, cfg.RefreshTTL)
	if err != nil {
		return err
	}
	authService := auth.NewService(repositories.NewUserRepository(db, nil), tokens)

	user, err := authService.CreateUser(context.Background(), &models.RegisterInput{
		Username:   username,
		Email:      email,
		Password:   password,
		Department: "Compliance",
	}, models.RoleAdmin)
	switch {
	case errors.Is(err, auth.ErrUsernameTaken):
		logger.Info().Str("username", username).Msg("admin user already exists")
		return nil
	case err != nil:
		return err
	}

	logger.Info().Uint("user_id", user.ID).Str("username", user.Username).Msg("admin account created")
	if generated {
		// printed once so the operator can log in and change it
		fmt.Printf("generated admin password: %s\n", password)
	}
	return nil
}
