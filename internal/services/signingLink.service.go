package services

import (
	"net/url"
	"rentflow/config"
	"rentflow/internal/lifecycle"
	"rentflow/internal/models"
	"rentflow/internal/types"
	"rentflow/pkg/logger"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const signingAudience = "inspection:sign"

// LinkClaims are the claims of a remote signing token. The token grants the
// right to sign one inspection and nothing else.
type LinkClaims struct {
	jwt.RegisteredClaims
}

// LinkGrant is a verified token: which inspection, and which issued link.
type LinkGrant struct {
	InspectionID uuid.UUID
	LinkID       uuid.UUID
}

type SigningLinkService struct {
	secret  []byte
	issuer  string
	baseURL string
	log     logger.Logger
}

func NewSigningLinkService(config config.Config) *SigningLinkService {
	return &SigningLinkService{
		secret:  []byte(config.SigningLinkSecret),
		issuer:  config.AuthJWTIssuer,
		baseURL: strings.TrimRight(config.SigningLinkBaseURL, "/"),
		log:     logger.New("signingLinkService"),
	}
}

// Token signs the link currently stored on the inspection. The claims come
// only from stored fields, so the same link always yields the same token.
func (s *SigningLinkService) Token(inspection *models.Inspection) (string, error) {
	log := s.log.Function("Token")

	if inspection.SigningLinkID == nil ||
		inspection.SigningLinkIssuedAt == nil ||
		inspection.SigningLinkExpiresAt == nil {
		return "", log.ErrorWithType(types.ErrInvalidState, "no signing link has been issued",
			"inspectionID", inspection.ID)
	}

	claims := LinkClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   inspection.ID.String(),
			Audience:  jwt.ClaimStrings{signingAudience},
			ID:        inspection.SigningLinkID.String(),
			IssuedAt:  jwt.NewNumericDate(*inspection.SigningLinkIssuedAt),
			ExpiresAt: jwt.NewNumericDate(*inspection.SigningLinkExpiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", log.Err("failed to sign link token", err, "inspectionID", inspection.ID)
	}
	return token, nil
}

// Link renders the shareable link for the stored signing link.
func (s *SigningLinkService) Link(inspection *models.Inspection) (types.SigningLink, error) {
	token, err := s.Token(inspection)
	if err != nil {
		return types.SigningLink{}, err
	}

	link := s.baseURL + "/inspections/" + inspection.ID.String() + "/sign?token=" + url.QueryEscape(token)
	return types.SigningLink{
		URL:         link,
		ExpiresAt:   inspection.SigningLinkExpiresAt.UTC(),
		AlreadySent: inspection.SigningLinkSentAt != nil,
	}, nil
}

// Parse checks the token signature, audience and expiry at now. Every failure
// is reported as the same INVALID_OR_EXPIRED_LINK error. The caller still has
// to match the grant against the stored link with lifecycle.VerifySigningLink.
func (s *SigningLinkService) Parse(raw string, now time.Time) (LinkGrant, error) {
	log := s.log.Function("Parse")
	invalid := types.Errorf(types.ErrInvalidOrExpiredLink, types.InvalidLinkMessage)

	if strings.TrimSpace(raw) == "" {
		return LinkGrant{}, invalid
	}

	claims := &LinkClaims{}
	_, err := jwt.ParseWithClaims(
		raw,
		claims,
		func(token *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(signingAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		log.Debug("rejected signing token", "error", err)
		return LinkGrant{}, invalid
	}

	inspectionID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return LinkGrant{}, invalid
	}
	linkID, err := uuid.Parse(claims.ID)
	if err != nil {
		return LinkGrant{}, invalid
	}

	return LinkGrant{InspectionID: inspectionID, LinkID: linkID}, nil
}

// Authorize verifies a grant against the inspection it names.
func (s *SigningLinkService) Authorize(
	inspection *models.Inspection,
	grant LinkGrant,
	now time.Time,
) error {
	if inspection == nil || inspection.ID != grant.InspectionID {
		return types.Errorf(types.ErrInvalidOrExpiredLink, types.InvalidLinkMessage)
	}
	return lifecycle.VerifySigningLink(inspection, grant.LinkID, now)
}
