package seed

import (
	"rentflow/config"
	"rentflow/internal/handlers/middleware"
	. "rentflow/internal/models"
	"rentflow/pkg/logger"
	"time"

	"gorm.io/gorm"
)

const devTokenTTL = 30 * 24 * time.Hour

func stringPtr(s string) *string {
	return &s
}

// Seed creates an owner, a tenant and an accepted application, then logs
// development session tokens for both users.
func Seed(db *gorm.DB, config config.Config, log logger.Logger) error {
	log = log.Function("seed")
	log.Info("Seeding development data")

	users := []*User{
		{
			FirstName: "Olivia",
			LastName:  "Owner",
			Email:     stringPtr("owner@example.com"),
			IsActive:  true,
		},
		{
			FirstName: "Oscar",
			LastName:  "Occupant",
			Email:     stringPtr("tenant@example.com"),
			IsActive:  true,
		},
	}

	for _, user := range users {
		var existing User
		if err := db.First(&existing, "email = ?", *user.Email).Error; err == nil {
			log.Info("User already exists", "email", *user.Email)
			*user = existing
			continue
		}
		log.Info("Seeding user", "email", *user.Email)
		if err := db.Create(user).Error; err != nil {
			return log.Err("failed to create user", err, "email", *user.Email)
		}
	}

	owner, tenant := users[0], users[1]
	application := TenancyApplication{
		Reference: "A123",
		OwnerID:   owner.ID,
		TenantID:  tenant.ID,
		Status:    ApplicationAccepted,
	}
	if err := db.Where(TenancyApplication{Reference: application.Reference}).
		FirstOrCreate(&application).Error; err != nil {
		return log.Err("failed to create tenancy application", err, "reference", application.Reference)
	}
	log.Info("Seeded tenancy application", "applicationID", application.ID, "reference", application.Reference)

	now := time.Now()
	for _, user := range users {
		token, err := middleware.IssueSessionToken(
			config.AuthJWTSecret, config.AuthJWTIssuer, user.ID, now, devTokenTTL,
		)
		if err != nil {
			return log.Err("failed to issue development token", err, "userID", user.ID)
		}
		log.Info("Development session token", "email", *user.Email, "userID", user.ID, "token", token)
	}

	return nil
}
