// Package lifecycle holds every guard of the inspection workflow: status
// transitions, signing order, signing-link validity, and the amendment window.
// Functions mutate the models passed in and never touch storage.
package lifecycle

import (
	"rentflow/internal/models"
	"rentflow/internal/types"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	SigningLinkTTL  = 24 * time.Hour
	AmendmentWindow = 10 * 24 * time.Hour
)

// EnsureEditable rejects content mutations once the occupant has signed.
func EnsureEditable(i *models.Inspection) error {
	if i.Status.IsFinalized() {
		return types.Errorf(
			types.ErrInspectionFinalized,
			"the inspection has been signed and can no longer be edited",
		)
	}
	return nil
}

// AuthorizeParty returns the caller's role, or FORBIDDEN for anyone else.
func AuthorizeParty(i *models.Inspection, userID uuid.UUID) (models.SignerRole, error) {
	role := i.PartyRole(userID)
	if role == "" {
		return "", types.Errorf(types.ErrForbidden, "you are not a party to this inspection")
	}
	return role, nil
}

// AuthorizeRole requires the caller to hold exactly the given role.
func AuthorizeRole(i *models.Inspection, userID uuid.UUID, role models.SignerRole) error {
	actual, err := AuthorizeParty(i, userID)
	if err != nil {
		return err
	}
	if actual != role {
		switch role {
		case models.RoleOwner:
			return types.Errorf(types.ErrForbidden, "only the owner can perform this action")
		default:
			return types.Errorf(types.ErrForbidden, "only the occupant can perform this action")
		}
	}
	return nil
}

func validateSignature(sig *models.Signature) error {
	if sig == nil || strings.TrimSpace(sig.SVG) == "" {
		return types.Errorf(types.ErrValidation, "a signature drawing is required")
	}
	return nil
}

// RecordOwnerSignature stores the owner's signature and moves a draft to
// PENDING_SIGNATURE.
func RecordOwnerSignature(i *models.Inspection, sig models.Signature, now time.Time) error {
	if err := EnsureEditable(i); err != nil {
		return err
	}
	if i.OwnerSignature != nil || i.OwnerSignedAt != nil {
		return types.Errorf(types.ErrInvalidState, "the owner has already signed")
	}
	if err := validateSignature(&sig); err != nil {
		return err
	}
	if len(i.Rooms) == 0 {
		return types.Errorf(types.ErrInvalidState, "add at least one room before signing")
	}

	signedAt := now.UTC()
	sig.SignedAt = signedAt
	i.OwnerSignature = &sig
	i.OwnerSignedAt = &signedAt
	i.Status = models.StatusPendingSignature
	return nil
}

// RecordOccupantSignature stores the occupant's signature and optional
// reserves, finalizing the inspection. The recorded time never precedes the
// owner's.
func RecordOccupantSignature(
	i *models.Inspection,
	sig models.Signature,
	reserves *string,
	now time.Time,
) error {
	if i.Status.IsFinalized() || i.OccupantSignature != nil {
		return types.Errorf(types.ErrInspectionFinalized, "the occupant has already signed")
	}
	if i.OwnerSignedAt == nil || i.Status != models.StatusPendingSignature {
		return types.Errorf(types.ErrOutOfOrderSignature, "the owner must sign first")
	}
	if err := validateSignature(&sig); err != nil {
		return err
	}

	signedAt := now.UTC()
	if signedAt.Before(*i.OwnerSignedAt) {
		signedAt = *i.OwnerSignedAt
	}
	sig.SignedAt = signedAt
	i.OccupantSignature = &sig
	i.OccupantSignedAt = &signedAt
	if reserves != nil && strings.TrimSpace(*reserves) != "" {
		text := strings.TrimSpace(*reserves)
		i.OccupantReserves = &text
	}
	i.Status = models.StatusSigned
	i.SigningLinkID = nil
	return nil
}

// RecordSignature dispatches on role.
func RecordSignature(
	i *models.Inspection,
	role models.SignerRole,
	sig models.Signature,
	reserves *string,
	now time.Time,
) error {
	switch role {
	case models.RoleOwner:
		if reserves != nil && strings.TrimSpace(*reserves) != "" {
			return types.Errorf(types.ErrValidation, "reserves can only be recorded by the occupant")
		}
		return RecordOwnerSignature(i, sig, now)
	case models.RoleOccupant:
		return RecordOccupantSignature(i, sig, reserves, now)
	}
	return types.Errorf(types.ErrValidation, "unknown signer role %q", role)
}

// CanIssueSigningLink requires the owner signature and a pending occupant one.
func CanIssueSigningLink(i *models.Inspection) error {
	if i.Status.IsFinalized() {
		return types.Errorf(types.ErrInvalidState, "the inspection is already signed by both parties")
	}
	if i.OwnerSignedAt == nil || i.Status != models.StatusPendingSignature {
		return types.Errorf(types.ErrInvalidState, "the owner must sign before sharing a signing link")
	}
	return nil
}

// ActiveSigningLink reports whether the stored link can be handed out again.
func ActiveSigningLink(i *models.Inspection, now time.Time) bool {
	return i.SigningLinkID != nil &&
		i.SigningLinkExpiresAt != nil &&
		now.Before(*i.SigningLinkExpiresAt)
}

// IssueSigningLink records a fresh link ID valid for SigningLinkTTL.
func IssueSigningLink(i *models.Inspection, now time.Time) (uuid.UUID, error) {
	if err := CanIssueSigningLink(i); err != nil {
		return uuid.Nil, err
	}
	id := uuid.Must(uuid.NewV7())
	issued := now.UTC()
	expires := issued.Add(SigningLinkTTL)
	i.SigningLinkID = &id
	i.SigningLinkIssuedAt = &issued
	i.SigningLinkExpiresAt = &expires
	return id, nil
}

// VerifySigningLink checks a presented link ID against the inspection at use
// time. Every failure yields the same error.
func VerifySigningLink(i *models.Inspection, linkID uuid.UUID, now time.Time) error {
	invalid := types.Errorf(types.ErrInvalidOrExpiredLink, types.InvalidLinkMessage)
	if i == nil || linkID == uuid.Nil || i.SigningLinkID == nil || *i.SigningLinkID != linkID {
		return invalid
	}
	if !ActiveSigningLink(i, now) {
		return invalid
	}
	if i.Status != models.StatusPendingSignature || i.OccupantSignature != nil {
		return invalid
	}
	return nil
}

// MarkLinkSent flags the link notification; it reports false when a
// notification already went out.
func MarkLinkSent(i *models.Inspection, now time.Time) bool {
	if i.SigningLinkSentAt != nil {
		return false
	}
	sent := now.UTC()
	i.SigningLinkSentAt = &sent
	return true
}

// CanExport requires both signatures.
func CanExport(i *models.Inspection) error {
	if !i.Status.IsFinalized() {
		return types.Errorf(types.ErrInvalidState, "both parties must sign before the document is generated")
	}
	return nil
}

// MarkExported stores the artifact reference, overwriting any previous one,
// and locks the inspection.
func MarkExported(i *models.Inspection, reference string, now time.Time) error {
	if err := CanExport(i); err != nil {
		return err
	}
	if strings.TrimSpace(reference) == "" {
		return types.Errorf(types.ErrExportFailed, "the exporter returned an empty reference")
	}
	generated := now.UTC()
	i.ArtifactURL = &reference
	i.ArtifactGeneratedAt = &generated
	i.Status = models.StatusLocked
	return nil
}

// AmendmentDeadline is the last instant an amendment may be created.
func AmendmentDeadline(i *models.Inspection) (time.Time, bool) {
	if i.OccupantSignedAt == nil {
		return time.Time{}, false
	}
	return i.OccupantSignedAt.Add(AmendmentWindow), true
}

// CanCreateAmendment gates creation on finalization and the legal window.
func CanCreateAmendment(i *models.Inspection, now time.Time) error {
	if !i.Status.IsFinalized() {
		return types.Errorf(types.ErrInvalidState, "amendments open once both parties have signed")
	}
	deadline, ok := AmendmentDeadline(i)
	if !ok {
		return types.Errorf(types.ErrInvalidState, "amendments open once both parties have signed")
	}
	if now.After(deadline) {
		return types.Errorf(
			types.ErrAmendmentWindowClosed,
			"amendments could be requested until %s",
			deadline.Format(time.RFC3339),
		)
	}
	return nil
}

// NewAmendment builds a pending amendment after the window check.
func NewAmendment(
	i *models.Inspection,
	requestedBy uuid.UUID,
	description string,
	now time.Time,
) (*models.Amendment, error) {
	if err := CanCreateAmendment(i, now); err != nil {
		return nil, err
	}
	cleaned, err := models.ValidateAmendmentDescription(description)
	if err != nil {
		return nil, types.Errorf(types.ErrValidation, "%s", err.Error())
	}

	amendment := &models.Amendment{
		InspectionID:  i.ID,
		Description:   cleaned,
		Status:        models.AmendmentPending,
		RequestedByID: requestedBy,
	}
	amendment.EnsureID()
	amendment.CreatedAt = now.UTC()
	return amendment, nil
}

// RespondToAmendment applies the owner's single, terminal answer.
func RespondToAmendment(
	a *models.Amendment,
	status models.AmendmentStatus,
	note *string,
	now time.Time,
) error {
	if a.Status != models.AmendmentPending {
		return types.Errorf(types.ErrAmendmentAlreadyResolved, "this amendment was already %s", strings.ToLower(string(a.Status)))
	}
	if !status.IsResponse() {
		return types.Errorf(types.ErrValidation, "response must be ACCEPTED or REJECTED")
	}
	if err := models.ValidateResponseNote(note); err != nil {
		return types.Errorf(types.ErrValidation, "%s", err.Error())
	}

	responded := now.UTC()
	a.Status = status
	a.ResponseNote = note
	a.RespondedAt = &responded
	return nil
}

// AnnotateAmended flags the inspection after an accepted amendment. It
// reports whether the flag changed.
func AnnotateAmended(i *models.Inspection, status models.AmendmentStatus) bool {
	if status != models.AmendmentAccepted || i.Amended {
		return false
	}
	i.Amended = true
	return true
}
