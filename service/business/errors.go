package business

import (
	"errors"
	"fmt"
	"time"

	"github.com/antinvestor/service-account/service/models"
)

// LockedError reports a rate or ban violation. It carries the state of the
// offending lock record so the transport layer can surface counter,
// locked-until and reason unchanged.
type LockedError struct {
	Counter     uint32            `json:"counter"`
	LockedUntil *time.Time        `json:"lockedUntil,omitempty"`
	Reason      models.LockReason `json:"reason"`
}

func (e *LockedError) Error() string {
	if e.LockedUntil != nil {
		return fmt.Sprintf("locked for %s until %s", e.Reason, e.LockedUntil.Format(time.RFC3339))
	}
	return fmt.Sprintf("locked for %s", e.Reason)
}

// AsLockedError extracts a LockedError from an error chain.
func AsLockedError(err error) (*LockedError, bool) {
	var lockedErr *LockedError
	ok := errors.As(err, &lockedErr)
	return lockedErr, ok
}

var (
	// ErrMalformedRequest reports an unreadable or incomplete request
	// payload.
	ErrMalformedRequest = errors.New("request payload is malformed")

	// ErrInvalidCode reports an OTP or authenticator code mismatch or an
	// expired code window. Recoverable by retrying with a fresh code.
	ErrInvalidCode = errors.New("verification code is invalid or expired")

	// ErrSessionInvalid reports a guard chain or token strategy rejection.
	// Not recoverable without re-authenticating.
	ErrSessionInvalid = errors.New("session is not valid for this operation")

	// ErrConflict reports an already enrolled or already confirmed state.
	// Terminal for the attempt that raised it.
	ErrConflict = errors.New("operation conflicts with existing state")

	// ErrNotFound reports an unknown session or enrollment.
	ErrNotFound = errors.New("record not found")

	// ErrInternalSigning reports that a freshly minted token failed its own
	// verification. Always fatal; indicates signer or verifier
	// misconfiguration and must not be retried blindly.
	ErrInternalSigning = errors.New("minted token failed self verification")
)
