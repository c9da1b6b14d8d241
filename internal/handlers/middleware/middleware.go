package middleware

import (
	"rentflow/config"
	"rentflow/internal/database"
	"rentflow/internal/repositories"
	"rentflow/pkg/logger"
)

// Middleware resolves callers for the HTTP layer. Session tokens are checked
// against AuthJWTSecret; signing-link tokens are left to the signing
// controller, which owns their single-use state.
type Middleware struct {
	DB       database.DB
	Config   config.Config
	userRepo repositories.UserRepository
	log      logger.Logger
}

func New(db database.DB, config config.Config, repos repositories.Repository) Middleware {
	return Middleware{
		DB:       db,
		Config:   config,
		userRepo: repos.User,
		log:      logger.New("middleware"),
	}
}
