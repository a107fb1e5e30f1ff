// seed creates the single super admin from SUPER_ADMIN_EMAIL / SUPER_ADMIN_PASSWORD.
// Idempotent: exits successfully when a super admin already exists.
package main

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"prepmaster/backend/internal/audit"
	auditrepo "prepmaster/backend/internal/audit/repository"
	"prepmaster/backend/internal/config"
	"prepmaster/backend/internal/db"
	identityrepo "prepmaster/backend/internal/identity/repository"
	identityservice "prepmaster/backend/internal/identity/service"
	"prepmaster/backend/internal/platform/apperr"
	"prepmaster/backend/internal/platform/logging"
	"prepmaster/backend/internal/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	log, err := logging.New(cfg.LogLevel, "text", nil)
	if err != nil {
		logrus.Fatalf("logging: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	if cfg.SuperAdminEmail == "" || cfg.SuperAdminPassword == "" {
		log.Fatal("SUPER_ADMIN_EMAIL and SUPER_ADMIN_PASSWORD must be set")
	}

	ctx := context.Background()
	conn, err := db.Open(ctx, cfg.DatabaseURL, db.PoolConfig{MaxOpenConns: 2})
	if err != nil {
		log.WithError(err).Fatal("db")
	}
	defer conn.Close()

	auth := identityservice.NewAuthService(identityservice.Deps{
		Repo:   identityrepo.NewPostgresRepository(conn),
		Hasher: security.NewHasher(cfg.BcryptCost),
		Tokens: security.NewTokenCodec([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.TokenTTL(), nil),
		Audit:  audit.NewLogger(auditrepo.NewPostgresRepository(conn), func(context.Context) string { return "seed" }, log),
		Log:    log,
	})
	ident, err := auth.CreateSuperAdmin(ctx, identityservice.RegisterInput{
		Email:    cfg.SuperAdminEmail,
		Password: cfg.SuperAdminPassword,
		Name:     cfg.SuperAdminName,
	})
	if errors.Is(err, apperr.ErrConflict) {
		log.Info("super admin already exists; skipping")
		return
	}
	if err != nil {
		log.WithError(err).Fatal("create super admin")
	}
	log.WithFields(logrus.Fields{"id": ident.ID, "email": ident.Email}).Info("super admin created")
}
