package models

import (
	"time"

	"github.com/pitabwire/frame"
	"gorm.io/datatypes"
)

// LockType identifies which identifier a lock record counts against.
type LockType string

const (
	LockTypeEmail         LockType = "email"
	LockTypeSubject       LockType = "subject"
	LockTypeWalletAddress LockType = "wallet_address"
)

// LockReason identifies why a lock record exists.
type LockReason string

const (
	LockReasonInvalidOtp  LockReason = "invalid_otp"
	LockReasonResendLimit LockReason = "resend_limit"
	LockReasonResendRate  LockReason = "resend_rate"
	LockReasonBanned      LockReason = "banned"
)

type GrantType string

const (
	GrantTypeAccount       GrantType = "account"
	GrantTypeServiceClient GrantType = "service_client"
)

type SessionType string

const (
	SessionTypeDirect SessionType = "direct"
	SessionTypeOAuth  SessionType = "oauth"
)

// DistributionType records which subsystem minted a tracked session.
type DistributionType string

const (
	DistributionTypePreMature DistributionType = "premature"
	DistributionTypeFederated DistributionType = "federated"
)

// LockRecord is one independent rate/ban counter keyed by
// (target, lock_type, reason). Records are never hard deleted,
// only incremented, locked and reset.
type LockRecord struct {
	frame.BaseModel
	Target      string     `gorm:"type:varchar(255);uniqueIndex:idx_lock_target_type_reason"`
	LockType    LockType   `gorm:"type:varchar(50);uniqueIndex:idx_lock_target_type_reason"`
	Reason      LockReason `gorm:"type:varchar(50);uniqueIndex:idx_lock_target_type_reason"`
	Counter     uint32
	LockedUntil *time.Time
}

// Locked reports whether the record holds an unexpired lock.
func (l *LockRecord) Locked(now time.Time) bool {
	return l.LockedUntil != nil && l.LockedUntil.After(now)
}

// Challenge is a time bound challenge issued for a target. The memo embeds
// a checksum of the challenge payload and the issue time; for email OTP the
// stripped memo doubles as the code secret.
type Challenge struct {
	frame.BaseModel
	Target        string `gorm:"type:varchar(255);index"`
	Memo          string `gorm:"type:text"`
	ExpiryDate    time.Time
	Resolved      bool
	DurationDelta int64
}

// Session is a premature session: a narrowly scoped capability minted by
// this service rather than by the federated identity provider. The checksum
// binds the persisted row to the sub claim of its token.
type Session struct {
	frame.BaseModel
	ActorID           string      `gorm:"type:varchar(50)"`
	AuthorizedPartyID string      `gorm:"type:varchar(255)"`
	Checksum          string      `gorm:"type:varchar(255);uniqueIndex"`
	GrantType         GrantType   `gorm:"type:varchar(50)"`
	SessionType       SessionType `gorm:"type:varchar(50)"`
	Scopes            datatypes.JSONSlice[string]
	ExpiryDate        time.Time
}

// HasScope reports whether the session carries the given scope tag.
func (s *Session) HasScope(scope string) bool {
	for _, sc := range s.Scopes {
		if sc == scope {
			return true
		}
	}
	return false
}

// ExtendedSession is a provider agnostic index over every live session a
// user holds, whether minted locally or by the federated identity provider.
type ExtendedSession struct {
	frame.BaseModel
	SessionOrigin    string           `gorm:"type:varchar(255);index"`
	DistributionType DistributionType `gorm:"type:varchar(50)"`
	UserID           string           `gorm:"type:varchar(50);index"`
	EnabledIdpID     string           `gorm:"type:varchar(50)"`
	IPAddresses      datatypes.JSONSlice[string]
	UserAgents       datatypes.JSONSlice[string]
	DeviceIDs        datatypes.JSONSlice[string]
	LastActiveTime   time.Time
}

// TwoFactorEnrollment is the per user authenticator app state. The secret is
// stored AEAD encrypted; ConfirmedExpiryDate and ConfirmedAt are epoch millis.
type TwoFactorEnrollment struct {
	frame.BaseModel
	UserID              string `gorm:"type:varchar(50);uniqueIndex"`
	EncryptedSecret     []byte
	ConfirmedExpiryDate int64
	ConfirmedAt         *int64
	Step                int `gorm:"default:30"`
}

// Confirmed reports whether the enrollment has gone through its one time
// activation.
func (e *TwoFactorEnrollment) Confirmed() bool {
	return e.ConfirmedAt != nil
}

// Stale reports whether an activated enrollment fell outside its
// confirmation window. The comparison is deliberately against the recorded
// activation instant, not a rolling window.
func (e *TwoFactorEnrollment) Stale() bool {
	return e.ConfirmedAt != nil && *e.ConfirmedAt > e.ConfirmedExpiryDate
}

// Credential is an actor's bcrypt password hash, written through the
// token guarded reset flow.
type Credential struct {
	frame.BaseModel
	ActorID      string `gorm:"type:varchar(50);uniqueIndex"`
	PasswordHash []byte
}
