package repository

import (
	"context"

	"github.com/antinvestor/service-account/service/models"
	"github.com/pitabwire/frame"
	"gorm.io/gorm"
)

type extendedSessionRepository struct {
	service *frame.Service
}

// NewExtendedSessionRepository creates a new instance of ExtendedSessionRepository
func NewExtendedSessionRepository(service *frame.Service) ExtendedSessionRepository {
	return &extendedSessionRepository{
		service: service,
	}
}

// GetByIDAndUser retrieves a tracking row scoped to a user
func (r *extendedSessionRepository) GetByIDAndUser(ctx context.Context, id, userID string) (*models.ExtendedSession, error) {
	var session models.ExtendedSession
	err := r.service.DB(ctx, true).First(&session, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if frame.ErrorIsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// GetByOrigin retrieves the tracking row pointing at a session origin
func (r *extendedSessionRepository) GetByOrigin(ctx context.Context, origin string, distribution models.DistributionType) (*models.ExtendedSession, error) {
	var session models.ExtendedSession
	err := r.service.DB(ctx, true).
		First(&session, "session_origin = ? AND distribution_type = ?", origin, distribution).Error
	if err != nil {
		if frame.ErrorIsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// GetByUser retrieves all tracking rows for a user irrespective of origin
func (r *extendedSessionRepository) GetByUser(ctx context.Context, userID string) ([]*models.ExtendedSession, error) {
	var sessions []*models.ExtendedSession
	err := r.service.DB(ctx, true).
		Order("last_active_time DESC").
		Find(&sessions, "user_id = ?", userID).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// Save creates or updates a tracking row
func (r *extendedSessionRepository) Save(ctx context.Context, session *models.ExtendedSession) error {
	if session.ID == "" {
		session.GenID(ctx)
		return r.service.DB(ctx, false).Create(session).Error
	}
	return r.service.DB(ctx, false).Save(session).Error
}

// Delete removes a tracking row by ID
func (r *extendedSessionRepository) Delete(ctx context.Context, id string) error {
	return r.service.DB(ctx, false).Delete(&models.ExtendedSession{}, "id = ?", id).Error
}

// DeleteAllForUser removes every tracking row a user holds in one
// transaction.
func (r *extendedSessionRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	return r.service.DB(ctx, false).Transaction(func(tx *gorm.DB) error {
		return tx.Delete(&models.ExtendedSession{}, "user_id = ?", userID).Error
	})
}
