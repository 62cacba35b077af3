package repository

import (
	"context"
	"time"

	"github.com/antinvestor/service-account/service/models"
)

// LockRepository handles database operations for LockRecord entities.
// Increment and InstantLock are single-statement upserts at the storage
// layer so concurrent abuse bursts on the same key cannot lose updates.
type LockRepository interface {
	// GetByKey retrieves the record for a lockout key, nil when absent
	GetByKey(ctx context.Context, target string, lockType models.LockType, reason models.LockReason) (*models.LockRecord, error)
	// Increment atomically creates-or-increments the counter for a key and,
	// when the post-increment counter reaches limit, locks the key for
	// lockDuration and resets the counter in a follow-up write
	Increment(ctx context.Context, target string, lockType models.LockType, reason models.LockReason, limit uint32, lockDuration time.Duration) (*models.LockRecord, error)
	// InstantLock unconditionally locks a key for lockDuration without
	// disturbing an existing counter
	InstantLock(ctx context.Context, target string, lockType models.LockType, reason models.LockReason, lockDuration time.Duration) error
	// GetBannedByTargets retrieves the most severe ban record whose target is
	// any of the supplied identifiers, ordered by locked_until descending
	GetBannedByTargets(ctx context.Context, targets []string) (*models.LockRecord, error)
}

// ChallengeRepository handles database operations for Challenge entities
type ChallengeRepository interface {
	// GetByID retrieves a challenge by ID
	GetByID(ctx context.Context, id string) (*models.Challenge, error)
	// Create persists a new challenge record
	Create(ctx context.Context, challenge *models.Challenge) error
	// Resolve marks a challenge resolved; resolving twice is a no-op
	Resolve(ctx context.Context, id string) error
	// LatestOpen retrieves the most recently created unresolved, unexpired
	// challenge for a target, nil when none exists
	LatestOpen(ctx context.Context, target string) (*models.Challenge, error)
}

// SessionRepository handles database operations for premature Session
// entities together with their paired ExtendedSession tracking rows.
type SessionRepository interface {
	// GetByID retrieves a session by ID
	GetByID(ctx context.Context, id string) (*models.Session, error)
	// CreateWithTracking inserts a session and its paired tracking row in
	// one transaction; neither row may exist without the other
	CreateWithTracking(ctx context.Context, session *models.Session, tracking *models.ExtendedSession) error
	// DeleteWithTracking removes a session and its tracking row in one
	// transaction
	DeleteWithTracking(ctx context.Context, sessionID, trackingID string) error
	// DeleteExpired removes sessions past their expiry date
	DeleteExpired(ctx context.Context) error
}

// ExtendedSessionRepository handles database operations over the provider
// agnostic session index.
type ExtendedSessionRepository interface {
	// GetByIDAndUser retrieves a tracking row scoped to a user
	GetByIDAndUser(ctx context.Context, id, userID string) (*models.ExtendedSession, error)
	// GetByOrigin retrieves the tracking row pointing at a session origin
	GetByOrigin(ctx context.Context, origin string, distribution models.DistributionType) (*models.ExtendedSession, error)
	// GetByUser retrieves all tracking rows for a user irrespective of origin
	GetByUser(ctx context.Context, userID string) ([]*models.ExtendedSession, error)
	// Save creates or updates a tracking row
	Save(ctx context.Context, session *models.ExtendedSession) error
	// Delete removes a tracking row by ID
	Delete(ctx context.Context, id string) error
	// DeleteAllForUser removes every tracking row a user holds in one
	// transaction
	DeleteAllForUser(ctx context.Context, userID string) error
}

// CredentialRepository handles database operations for Credential entities
type CredentialRepository interface {
	// GetByActorID retrieves the credential an actor holds, nil when absent
	GetByActorID(ctx context.Context, actorID string) (*models.Credential, error)
	// Save creates or updates a credential record
	Save(ctx context.Context, credential *models.Credential) error
}

// EnrollmentRepository handles database operations for TwoFactorEnrollment
// entities
type EnrollmentRepository interface {
	// GetByUserID retrieves the enrollment for a user, nil when absent
	GetByUserID(ctx context.Context, userID string) (*models.TwoFactorEnrollment, error)
	// Save creates or updates an enrollment record
	Save(ctx context.Context, enrollment *models.TwoFactorEnrollment) error
	// DeleteByUserID removes the enrollment a user holds
	DeleteByUserID(ctx context.Context, userID string) error
}
