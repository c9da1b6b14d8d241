package services

import (
	"net/url"
	"rentflow/config"
	"rentflow/internal/lifecycle"
	"rentflow/internal/models"
	"rentflow/internal/types"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var linkTestConfig = config.Config{
	AuthJWTIssuer:      "rentflow",
	AuthJWTSecret:      "session-secret",
	SigningLinkSecret:  "link-secret",
	SigningLinkBaseURL: "https://app.example.com/",
}

func pendingInspection(t *testing.T, issuedAt time.Time) *models.Inspection {
	t.Helper()

	ownerAt := issuedAt.Add(-time.Minute)
	inspection := &models.Inspection{
		Status:         models.StatusPendingSignature,
		OwnerSignedAt:  &ownerAt,
		OwnerSignature: &models.Signature{SVG: "<svg/>", SignedAt: ownerAt},
	}
	inspection.ID = uuid.Must(uuid.NewV7())

	_, err := lifecycle.IssueSigningLink(inspection, issuedAt)
	require.NoError(t, err)
	return inspection
}

func tokenFromURL(t *testing.T, link string) string {
	t.Helper()
	parsed, err := url.Parse(link)
	require.NoError(t, err)
	return parsed.Query().Get("token")
}

func TestSigningLinkService_LinkShape(t *testing.T) {
	service := NewSigningLinkService(linkTestConfig)
	issued := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	inspection := pendingInspection(t, issued)

	link, err := service.Link(inspection)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(
		link.URL,
		"https://app.example.com/inspections/"+inspection.ID.String()+"/sign?token=",
	))
	assert.True(t, link.ExpiresAt.Equal(issued.Add(lifecycle.SigningLinkTTL)))
	assert.False(t, link.AlreadySent)

	again, err := service.Link(inspection)
	require.NoError(t, err)
	assert.Equal(t, link.URL, again.URL)
}

func TestSigningLinkService_ParseWindow(t *testing.T) {
	service := NewSigningLinkService(linkTestConfig)
	issued := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	inspection := pendingInspection(t, issued)

	link, err := service.Link(inspection)
	require.NoError(t, err)
	token := tokenFromURL(t, link.URL)

	tests := []struct {
		name    string
		at      time.Time
		wantErr bool
	}{
		{name: "just issued", at: issued, wantErr: false},
		{name: "23h59m later", at: issued.Add(23*time.Hour + 59*time.Minute), wantErr: false},
		{name: "24h01m later", at: issued.Add(24*time.Hour + time.Minute), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grant, err := service.Parse(token, tt.at)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrInvalidOrExpiredLink)
				assert.Equal(t, types.InvalidLinkMessage, types.Message(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, inspection.ID, grant.InspectionID)
			assert.Equal(t, *inspection.SigningLinkID, grant.LinkID)
			assert.NoError(t, service.Authorize(inspection, grant, tt.at))
		})
	}
}

func TestSigningLinkService_RejectsForeignTokens(t *testing.T) {
	service := NewSigningLinkService(linkTestConfig)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	inspection := pendingInspection(t, now)

	forged := NewSigningLinkService(config.Config{
		SigningLinkSecret:  "another-secret",
		SigningLinkBaseURL: "https://app.example.com",
	})
	forgedToken, err := forged.Token(inspection)
	require.NoError(t, err)

	sessionToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   inspection.ID.String(),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString([]byte(linkTestConfig.SigningLinkSecret))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-token"},
		{name: "wrong secret", token: forgedToken},
		{name: "missing audience", token: sessionToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Parse(tt.token, now)
			assert.ErrorIs(t, err, types.ErrInvalidOrExpiredLink)
			assert.Equal(t, types.InvalidLinkMessage, types.Message(err))
		})
	}
}

func TestSigningLinkService_ReissuedLinkInvalidatesOldToken(t *testing.T) {
	service := NewSigningLinkService(linkTestConfig)
	issued := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	inspection := pendingInspection(t, issued)

	oldToken, err := service.Token(inspection)
	require.NoError(t, err)

	_, err = lifecycle.IssueSigningLink(inspection, issued.Add(25*time.Hour))
	require.NoError(t, err)

	at := issued.Add(time.Hour)
	grant, err := service.Parse(oldToken, at)
	require.NoError(t, err)
	assert.ErrorIs(t, service.Authorize(inspection, grant, at), types.ErrInvalidOrExpiredLink)
}

func TestSigningLinkService_GrantForOtherInspection(t *testing.T) {
	service := NewSigningLinkService(linkTestConfig)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	inspection := pendingInspection(t, now)

	grant := LinkGrant{InspectionID: uuid.New(), LinkID: *inspection.SigningLinkID}
	assert.ErrorIs(t, service.Authorize(inspection, grant, now), types.ErrInvalidOrExpiredLink)
}

func TestSigningLinkService_TokenWithoutLink(t *testing.T) {
	service := NewSigningLinkService(linkTestConfig)

	_, err := service.Token(&models.Inspection{})
	assert.ErrorIs(t, err, types.ErrInvalidState)
}
