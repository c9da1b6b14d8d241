package middleware

import (
	"context"
	"errors"
	"rentflow/internal/models"
	"rentflow/pkg/logger"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthContextKey is used to store auth info in context
type AuthContextKey string

const (
	UserKey      AuthContextKey = "user"
	UserKeyFiber string         = "User"
)

var (
	errMissingToken = errors.New("authorization header required")
	errBadHeader    = errors.New("invalid authorization header format")
	errBadToken     = errors.New("invalid token")
)

// IssueSessionToken signs an HS256 session token for userID. The identity
// provider normally does this; the API only verifies.
func IssueSessionToken(secret, issuer string, userID uuid.UUID, now time.Time, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errMissingToken
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", errBadHeader
	}
	return parts[1], nil
}

func (m *Middleware) subject(raw string) (uuid.UUID, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(
		raw,
		&claims,
		func(token *jwt.Token) (any, error) {
			return []byte(m.Config.AuthJWTSecret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.Config.AuthJWTIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return uuid.Nil, errBadToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, errBadToken
	}
	return userID, nil
}

// authenticate resolves the bearer token to an active user and stores it on
// the request. It writes the failure response itself and reports ok=false.
func (m *Middleware) authenticate(c *fiber.Ctx, raw string) (bool, error) {
	log := logger.NewWithContext(c.UserContext(), "middleware").Function("authenticate")

	userID, err := m.subject(raw)
	if err != nil {
		log.Info("token validation failed", "error", err.Error())
		return false, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid token",
		})
	}

	user, err := m.userRepo.GetByID(c.UserContext(), m.DB.SQL, userID)
	if err != nil {
		log.Info("user not found in database", "userID", userID, "error", err.Error())
		return false, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "User not found",
		})
	}
	if !user.IsActive {
		log.Info("inactive user rejected", "userID", userID)
		return false, c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Account disabled",
		})
	}

	c.Locals(UserKeyFiber, user)
	ctx := context.WithValue(c.UserContext(), UserKey, user)
	c.SetUserContext(ctx)

	log.Debug("user authenticated", "userID", user.ID)
	return true, nil
}

// RequireAuth validates the bearer session token and loads the user.
func (m *Middleware) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		log := logger.NewWithContext(c.UserContext(), "middleware").Function("RequireAuth")

		raw, err := bearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			log.Info("rejected request", "error", err.Error())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}

		ok, err := m.authenticate(c, raw)
		if !ok {
			return err
		}
		return c.Next()
	}
}

// OptionalAuth authenticates when an Authorization header is present and
// otherwise lets the request through anonymously, for routes that also
// accept a signing link token.
func (m *Middleware) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return c.Next()
		}

		raw, err := bearerToken(header)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format",
			})
		}

		ok, err := m.authenticate(c, raw)
		if !ok {
			return err
		}
		return c.Next()
	}
}

// GetUser extracts user from Fiber context
func GetUser(c *fiber.Ctx) *models.User {
	user, ok := c.Locals(UserKeyFiber).(*models.User)
	if !ok {
		return nil
	}
	return user
}
