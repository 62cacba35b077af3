package repository

import (
	"context"
	"time"

	"github.com/antinvestor/service-account/service/models"
	"github.com/pitabwire/frame"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type lockRepository struct {
	service *frame.Service
}

// NewLockRepository creates a new instance of LockRepository
func NewLockRepository(service *frame.Service) LockRepository {
	return &lockRepository{
		service: service,
	}
}

var lockKeyColumns = []clause.Column{
	{Name: "target"}, {Name: "lock_type"}, {Name: "reason"},
}

// GetByKey retrieves the record for a lockout key, nil when absent
func (r *lockRepository) GetByKey(ctx context.Context, target string, lockType models.LockType, reason models.LockReason) (*models.LockRecord, error) {
	var record models.LockRecord
	err := r.service.DB(ctx, true).
		First(&record, "target = ? AND lock_type = ? AND reason = ?", target, lockType, reason).Error
	if err != nil {
		if frame.ErrorIsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// Increment atomically creates-or-increments the counter for a key. The
// increment is one upsert statement so concurrent calls never lose counts,
// and RETURNING carries the post-upsert row back from the primary so the
// limit check never consults a possibly lagging replica. Crossing the limit
// triggers a second write that locks the key and resets the counter; a
// concurrent increment may land between the two writes, so the record can
// briefly read over-limit-but-unlocked. Callers re-check via the abuse
// policy's assert.
func (r *lockRepository) Increment(ctx context.Context, target string, lockType models.LockType, reason models.LockReason, limit uint32, lockDuration time.Duration) (*models.LockRecord, error) {

	record := models.LockRecord{
		Target:   target,
		LockType: lockType,
		Reason:   reason,
		Counter:  1,
	}
	record.GenID(ctx)

	err := r.service.DB(ctx, false).Clauses(clause.OnConflict{
		Columns: lockKeyColumns,
		DoUpdates: clause.Assignments(map[string]any{
			"counter": gorm.Expr("lock_records.counter + 1"),
		}),
	}, clause.Returning{}).Create(&record).Error
	if err != nil {
		return nil, err
	}

	if record.Counter < limit {
		return &record, nil
	}

	lockedUntil := time.Now().Add(lockDuration)
	err = r.service.DB(ctx, false).
		Model(&models.LockRecord{}).
		Where("id = ?", record.ID).
		Updates(map[string]any{
			"counter":      0,
			"locked_until": lockedUntil,
		}).Error
	if err != nil {
		return nil, err
	}

	record.Counter = 0
	record.LockedUntil = &lockedUntil
	return &record, nil
}

// InstantLock unconditionally locks a key for lockDuration. The counter is
// initialised to zero only on insert; an existing counter is left untouched.
func (r *lockRepository) InstantLock(ctx context.Context, target string, lockType models.LockType, reason models.LockReason, lockDuration time.Duration) error {

	lockedUntil := time.Now().Add(lockDuration)

	record := models.LockRecord{
		Target:      target,
		LockType:    lockType,
		Reason:      reason,
		Counter:     0,
		LockedUntil: &lockedUntil,
	}
	record.GenID(ctx)

	return r.service.DB(ctx, false).Clauses(clause.OnConflict{
		Columns: lockKeyColumns,
		DoUpdates: clause.Assignments(map[string]any{
			"locked_until": lockedUntil,
		}),
	}).Create(&record).Error
}

// GetBannedByTargets retrieves the ban record with the furthest reaching
// lock among the supplied identifiers, nil when no ban exists. Expiry of
// the lock is deliberately not part of the query: a ban stays authoritative
// even after its locked_until has lapsed.
func (r *lockRepository) GetBannedByTargets(ctx context.Context, targets []string) (*models.LockRecord, error) {
	identifiers := make([]string, 0, len(targets))
	for _, target := range targets {
		if target != "" {
			identifiers = append(identifiers, target)
		}
	}
	if len(identifiers) == 0 {
		return nil, nil
	}

	var record models.LockRecord
	err := r.service.DB(ctx, true).
		Where("reason = ? AND target IN ?", models.LockReasonBanned, identifiers).
		Order("locked_until DESC").
		First(&record).Error
	if err != nil {
		if frame.ErrorIsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}
