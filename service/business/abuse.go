package business

import (
	"context"
	"time"

	"github.com/antinvestor/service-account/service/models"
	"github.com/antinvestor/service-account/service/repository"
	"github.com/antinvestor/service-account/utils"
	"github.com/pitabwire/frame"
	"github.com/pitabwire/util"
)

// lockKey hashes an identifier before it becomes a lockout key, so the
// lockout table never holds raw contact details or wallet addresses.
func lockKey(target string) string {
	if target == "" {
		return ""
	}
	return utils.HashStringSecret(target)
}

// Principal carries the identifiers a caller may be banned under.
type Principal struct {
	Email         string
	SubjectID     string
	WalletAddress string
}

// AbusePolicy composes the lockout store into the guards that protect
// sensitive flows: a fixed cadence resend throttle, rolling resend and
// invalid attempt caps, and the account ban check.
type AbusePolicy interface {
	// AssertOpen fails with a LockedError when the key holds an unexpired
	// lock or its counter has reached limit. The read is side effect free;
	// an absent record counts as open.
	AssertOpen(ctx context.Context, target string, lockType models.LockType, reason models.LockReason, limit uint32) (*models.LockRecord, error)

	// ThrottleResend enforces at most one resend per cadence window for a
	// target, independent of the total resend count.
	ThrottleResend(ctx context.Context, target string) error

	// AssertResendQuota fails when the target has exhausted its rolling
	// resend allowance.
	AssertResendQuota(ctx context.Context, target string) error
	// NoteResend counts a completed resend; crossing the cap locks the
	// target and resets the counter.
	NoteResend(ctx context.Context, target string) error

	// AssertAttemptQuota fails when the target has exhausted its invalid
	// code allowance.
	AssertAttemptQuota(ctx context.Context, target string) error
	// NoteFailedAttempt counts an invalid code presentation.
	NoteFailedAttempt(ctx context.Context, target string) error

	// AssertNotBanned fails closed when any of the principal's identifiers
	// carries a ban record. A ban is authoritative even when its
	// locked-until has already lapsed.
	AssertNotBanned(ctx context.Context, principal Principal) error
}

type abusePolicy struct {
	service  *frame.Service
	lockRepo repository.LockRepository

	attemptLimit   uint32
	attemptLockFor time.Duration
	resendEvery    time.Duration
}

// NewAbusePolicy creates a new instance of AbusePolicy.
func NewAbusePolicy(service *frame.Service, lockRepo repository.LockRepository,
	attemptLimit uint32, attemptLockFor, resendEvery time.Duration) AbusePolicy {
	return &abusePolicy{
		service:        service,
		lockRepo:       lockRepo,
		attemptLimit:   attemptLimit,
		attemptLockFor: attemptLockFor,
		resendEvery:    resendEvery,
	}
}

func (p *abusePolicy) AssertOpen(ctx context.Context, target string, lockType models.LockType, reason models.LockReason, limit uint32) (*models.LockRecord, error) {

	record, err := p.lockRepo.GetByKey(ctx, lockKey(target), lockType, reason)
	if err != nil {
		return nil, err
	}
	if record == nil {
		// A key that was never touched is open by definition.
		record = &models.LockRecord{
			Target:   lockKey(target),
			LockType: lockType,
			Reason:   reason,
		}
		return record, nil
	}

	if record.Locked(time.Now()) || record.Counter >= limit {
		return nil, &LockedError{
			Counter:     record.Counter,
			LockedUntil: record.LockedUntil,
			Reason:      reason,
		}
	}

	return record, nil
}

func (p *abusePolicy) ThrottleResend(ctx context.Context, target string) error {
	_, err := p.AssertOpen(ctx, target, models.LockTypeEmail, models.LockReasonResendRate, p.attemptLimit)
	if err != nil {
		return err
	}
	return p.lockRepo.InstantLock(ctx, lockKey(target), models.LockTypeEmail, models.LockReasonResendRate, p.resendEvery)
}

func (p *abusePolicy) AssertResendQuota(ctx context.Context, target string) error {
	_, err := p.AssertOpen(ctx, target, models.LockTypeEmail, models.LockReasonResendLimit, p.attemptLimit)
	return err
}

func (p *abusePolicy) NoteResend(ctx context.Context, target string) error {
	_, err := p.lockRepo.Increment(ctx, lockKey(target), models.LockTypeEmail, models.LockReasonResendLimit, p.attemptLimit, p.attemptLockFor)
	return err
}

func (p *abusePolicy) AssertAttemptQuota(ctx context.Context, target string) error {
	_, err := p.AssertOpen(ctx, target, models.LockTypeEmail, models.LockReasonInvalidOtp, p.attemptLimit)
	return err
}

func (p *abusePolicy) NoteFailedAttempt(ctx context.Context, target string) error {
	_, err := p.lockRepo.Increment(ctx, lockKey(target), models.LockTypeEmail, models.LockReasonInvalidOtp, p.attemptLimit, p.attemptLockFor)
	return err
}

func (p *abusePolicy) AssertNotBanned(ctx context.Context, principal Principal) error {
	record, err := p.lockRepo.GetBannedByTargets(ctx,
		[]string{lockKey(principal.Email), lockKey(principal.SubjectID), lockKey(principal.WalletAddress)})
	if err != nil {
		return err
	}
	if record == nil {
		return nil
	}

	util.Log(ctx).
		WithField("target", record.Target).
		WithField("lock_type", record.LockType).
		Warn("banned principal attempted a protected flow")

	// No expiry check here: a lapsed locked_until does not lift a ban.
	return &LockedError{
		Counter:     record.Counter,
		LockedUntil: record.LockedUntil,
		Reason:      models.LockReasonBanned,
	}
}
