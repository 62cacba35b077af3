package repository

import (
	"context"
	"time"

	"github.com/antinvestor/service-account/service/models"
	"github.com/pitabwire/frame"
	"gorm.io/gorm"
)

type sessionRepository struct {
	service *frame.Service
}

// NewSessionRepository creates a new instance of SessionRepository
func NewSessionRepository(service *frame.Service) SessionRepository {
	return &sessionRepository{
		service: service,
	}
}

// GetByID retrieves a session by ID
func (r *sessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	err := r.service.DB(ctx, true).First(&session, "id = ?", id).Error
	if err != nil {
		if frame.ErrorIsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// CreateWithTracking inserts a session and its paired tracking row in one
// transaction. A session row must never exist without its tracking row and
// vice versa.
func (r *sessionRepository) CreateWithTracking(ctx context.Context, session *models.Session, tracking *models.ExtendedSession) error {
	if session.ID == "" {
		session.GenID(ctx)
	}

	tracking.SessionOrigin = session.ID
	tracking.DistributionType = models.DistributionTypePreMature
	if tracking.ID == "" {
		tracking.GenID(ctx)
	}

	return r.service.DB(ctx, false).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(session).Error; err != nil {
			return err
		}
		return tx.Create(tracking).Error
	})
}

// DeleteWithTracking removes a session and its tracking row in one
// transaction.
func (r *sessionRepository) DeleteWithTracking(ctx context.Context, sessionID, trackingID string) error {
	return r.service.DB(ctx, false).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Session{}, "id = ?", sessionID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.ExtendedSession{}, "id = ?", trackingID).Error
	})
}

// DeleteExpired removes sessions past their expiry date together with their
// tracking rows.
func (r *sessionRepository) DeleteExpired(ctx context.Context) error {
	now := time.Now()
	return r.service.DB(ctx, false).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("distribution_type = ? AND session_origin IN (?)",
			models.DistributionTypePreMature,
			tx.Model(&models.Session{}).Select("id").Where("expiry_date < ?", now),
		).Delete(&models.ExtendedSession{}).Error
		if err != nil {
			return err
		}
		return tx.Delete(&models.Session{}, "expiry_date < ?", now).Error
	})
}
