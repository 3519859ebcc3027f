package seeders

import (
	"context"

	"schooldesk_go/config"
	"schooldesk_go/services/people"

	"github.com/sirupsen/logrus"
)

// SeedAll runs every seeder. Each one is idempotent.
func SeedAll(ctx context.Context, cfg *config.Config, svc *people.Service) {
	logrus.Info("Starting database seeding...")
	SeedAdmin(ctx, cfg, svc)
	logrus.Info("Database seeding completed")
}

// SeedAdmin creates the bootstrap admin from ADMIN_USERNAME / ADMIN_PASSWORD.
func SeedAdmin(ctx context.Context, cfg *config.Config, svc *people.Service) {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		logrus.Info("ADMIN_USERNAME not set, skipping admin seed")
		return
	}
	if err := svc.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		logrus.WithError(err).Error("Failed to seed admin user")
	}
}
