package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/oksasatya/auth-api/config"
	"github.com/oksasatya/auth-api/internal/domain/entity"
	"github.com/oksasatya/auth-api/internal/domain/repository"
	"github.com/oksasatya/auth-api/internal/infrastructure/store"
	"github.com/oksasatya/auth-api/pkg/helpers"
)

// seed creates an admin account so /api/users/search can be reached.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	users, closeStore, err := store.Open(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to open user store")
	}
	defer closeStore()

	email := getenv("SEED_ADMIN_EMAIL", "admin@example.com")
	password := getenv("SEED_ADMIN_PASSWORD", "password123")
	name := getenv("SEED_ADMIN_NAME", "Admin")

	existing, err := users.GetByEmail(ctx, email, repository.IncludeInactive())
	switch {
	case err == nil:
		fmt.Printf("admin already present: id=%s email=%s role=%s\n", existing.ID, existing.Email, existing.Role)
		return
	case !errors.Is(err, repository.ErrNotFound):
		logger.WithError(err).Fatal("lookup failed")
	}

	hash, err := helpers.NewPasswordHasher(cfg.BcryptCost, 1).Hash(ctx, password)
	if err != nil {
		logger.WithError(err).Fatal("failed to hash password")
	}
	u := &entity.User{
		Name:     name,
		Email:    email,
		Photo:    entity.DefaultPhoto,
		Role:     entity.RoleAdmin,
		Password: hash,
		Active:   true,
	}
	if err := users.Create(ctx, u); err != nil {
		logger.WithError(err).Fatal("failed to seed admin")
	}
	fmt.Printf("seeded admin: id=%s email=%s password=%s\n", u.ID, u.Email, password)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
