package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestErrorf_MatchesKind(t *testing.T) {
	err := Errorf(ErrOutOfOrderSignature, "the owner must sign first")

	assert.ErrorIs(t, err, ErrOutOfOrderSignature)
	assert.Equal(t, ErrOutOfOrderSignature, KindOf(err))
	assert.Equal(t, "the owner must sign first", Message(err))

	wrapped := fmt.Errorf("sign: %w", err)
	assert.Equal(t, ErrOutOfOrderSignature, KindOf(wrapped))
}

func TestKindOf_Unknown(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("boom")))
	assert.Equal(t, ErrorKind(""), KindOf(nil))
	assert.Equal(t, "boom", Message(errors.New("boom")))
}

func TestParseKind(t *testing.T) {
	assert.Equal(t, ErrAmendmentWindowClosed, ParseKind("AMENDMENT_WINDOW_CLOSED"))
	assert.Equal(t, ErrorKind(""), ParseKind("SOMETHING_ELSE"))
}

func TestMessage_HidesLinkDetails(t *testing.T) {
	err := Errorf(ErrInvalidOrExpiredLink, "token expired at 10:00")

	assert.Equal(t, InvalidLinkMessage, Message(err))
}

func TestDuplicateInspectionError(t *testing.T) {
	existing := uuid.New()
	err := fmt.Errorf("create: %w", &DuplicateInspectionError{InspectionID: existing})

	assert.ErrorIs(t, err, ErrDuplicateInspection)
	assert.Equal(t, ErrDuplicateInspection, KindOf(err))

	id, ok := DuplicateInspectionID(err)
	assert.True(t, ok)
	assert.Equal(t, existing, id)

	_, ok = DuplicateInspectionID(errors.New("other"))
	assert.False(t, ok)
}
