package types

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrorKind is a stable error category shared by the server and the field
// client. Kinds are errors themselves so they can be wrapped with %w and
// matched with errors.Is.
type ErrorKind string

func (k ErrorKind) Error() string {
	return string(k)
}

const (
	ErrNotFound                 ErrorKind = "NOT_FOUND"
	ErrForbidden                ErrorKind = "FORBIDDEN"
	ErrInspectionFinalized      ErrorKind = "INSPECTION_FINALIZED"
	ErrOutOfOrderSignature      ErrorKind = "OUT_OF_ORDER_SIGNATURE"
	ErrInvalidOrExpiredLink     ErrorKind = "INVALID_OR_EXPIRED_LINK"
	ErrDuplicateInspection      ErrorKind = "DUPLICATE_INSPECTION"
	ErrAmendmentWindowClosed    ErrorKind = "AMENDMENT_WINDOW_CLOSED"
	ErrAmendmentAlreadyResolved ErrorKind = "AMENDMENT_ALREADY_RESOLVED"
	ErrExportFailed             ErrorKind = "EXPORT_FAILED"
	ErrInvalidState             ErrorKind = "INVALID_STATE"
	ErrValidation               ErrorKind = "VALIDATION"
)

// InvalidLinkMessage is the only message ever returned for a rejected signing
// link, whatever the underlying reason.
const InvalidLinkMessage = "this signing link is invalid or has expired"

var knownKinds = []ErrorKind{
	ErrNotFound,
	ErrForbidden,
	ErrInspectionFinalized,
	ErrOutOfOrderSignature,
	ErrInvalidOrExpiredLink,
	ErrDuplicateInspection,
	ErrAmendmentWindowClosed,
	ErrAmendmentAlreadyResolved,
	ErrExportFailed,
	ErrInvalidState,
	ErrValidation,
}

// Errorf wraps kind with a formatted, user-facing message.
func Errorf(kind ErrorKind, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// KindOf returns the first known kind found in err's chain, or "" when err
// carries none.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var kind ErrorKind
	if errors.As(err, &kind) {
		return kind
	}
	return ""
}

// ParseKind maps a wire code back to a known kind. Unknown codes yield "".
func ParseKind(code string) ErrorKind {
	for _, kind := range knownKinds {
		if string(kind) == code {
			return kind
		}
	}
	return ""
}

// Message strips the kind prefix added by Errorf and ErrorWithType so the
// remainder can be shown to a person.
func Message(err error) string {
	if err == nil {
		return ""
	}
	kind := KindOf(err)
	if kind == ErrInvalidOrExpiredLink {
		return InvalidLinkMessage
	}
	msg := err.Error()
	prefix := string(kind) + ": "
	if kind != "" && len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}

// DuplicateInspectionError points the caller at the inspection that already
// exists for the application and kind.
type DuplicateInspectionError struct {
	InspectionID uuid.UUID
}

func (e *DuplicateInspectionError) Error() string {
	return fmt.Sprintf("%s: an inspection of this kind already exists", ErrDuplicateInspection)
}

func (e *DuplicateInspectionError) Unwrap() error {
	return ErrDuplicateInspection
}

// DuplicateInspectionID extracts the existing inspection ID, if err carries one.
func DuplicateInspectionID(err error) (uuid.UUID, bool) {
	var dup *DuplicateInspectionError
	if errors.As(err, &dup) {
		return dup.InspectionID, true
	}
	return uuid.Nil, false
}
