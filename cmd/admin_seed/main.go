// Command admin_seed creates the first admin account and, on an empty
// catalog, the default credit bundles.
package main

import (
	"context"
	"errors"
	"os"

	"estatehub/internal/config"
	applog "estatehub/internal/logger"
	"estatehub/internal/models"
	"estatehub/internal/repositories"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var defaultBundles = []models.CreditBundle{
	{Name: "Starter", Credits: 10, Bonus: 0, Price: decimal.NewFromInt(2000)},
	{Name: "Growth", Credits: 50, Bonus: 5, Price: decimal.NewFromInt(9000)},
	{Name: "Pro", Credits: 120, Bonus: 20, Price: decimal.NewFromInt(20000)},
}

func main() {
	cfg := config.Load()
	log, err := applog.New(cfg.IsProduction())
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	adminPhone := os.Getenv("ADMIN_PHONE")
	if adminEmail == "" || adminPassword == "" {
		log.Fatal("ADMIN_EMAIL and ADMIN_PASSWORD must be set in environment")
	}

	db, err := repositories.OpenPostgres(cfg)
	if err != nil {
		log.Fatal("database unavailable", zap.Error(err))
	}
	defer func() {
		if err := repositories.Close(db); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}()

	ctx := context.Background()
	store := repositories.NewGormStore(db)

	if err := seedAdmin(ctx, store, adminEmail, adminPassword, adminPhone); err != nil {
		log.Fatal("failed to create admin", zap.Error(err))
	}
	log.Info("admin account ready", zap.String("email", adminEmail))

	n, err := seedBundles(ctx, store, cfg.Currency)
	if err != nil {
		log.Fatal("failed to seed bundles", zap.Error(err))
	}
	log.Info("bundles seeded", zap.Int("created", n))
}

func seedAdmin(ctx context.Context, store repositories.Store, email, password, phone string) error {
	_, err := store.Users().GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repositories.ErrUserNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return store.Users().Create(ctx, &models.User{
		Email:        email,
		Password:     string(hashed),
		Name:         "Administrator",
		Phone:        phone,
		Role:         models.RoleAdmin,
		Status:       "active",
		TokenVersion: 1,
	})
}

func seedBundles(ctx context.Context, store repositories.Store, currency string) (int, error) {
	existing, err := store.Bundles().ListActive(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	for i := range defaultBundles {
		b := defaultBundles[i]
		b.Currency = currency
		b.Active = true
		if err := store.Bundles().Create(ctx, &b); err != nil {
			return i, err
		}
	}
	return len(defaultBundles), nil
}
