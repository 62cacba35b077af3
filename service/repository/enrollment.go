package repository

import (
	"context"

	"github.com/antinvestor/service-account/service/models"
	"github.com/pitabwire/frame"
)

type enrollmentRepository struct {
	service *frame.Service
}

// NewEnrollmentRepository creates a new instance of EnrollmentRepository
func NewEnrollmentRepository(service *frame.Service) EnrollmentRepository {
	return &enrollmentRepository{
		service: service,
	}
}

// GetByUserID retrieves the enrollment for a user, nil when absent
func (r *enrollmentRepository) GetByUserID(ctx context.Context, userID string) (*models.TwoFactorEnrollment, error) {
	var enrollment models.TwoFactorEnrollment
	err := r.service.DB(ctx, true).First(&enrollment, "user_id = ?", userID).Error
	if err != nil {
		if frame.ErrorIsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &enrollment, nil
}

// Save creates or updates an enrollment record
func (r *enrollmentRepository) Save(ctx context.Context, enrollment *models.TwoFactorEnrollment) error {
	if enrollment.ID == "" {
		enrollment.GenID(ctx)
		return r.service.DB(ctx, false).Create(enrollment).Error
	}
	return r.service.DB(ctx, false).Save(enrollment).Error
}

// DeleteByUserID removes the enrollment a user holds
func (r *enrollmentRepository) DeleteByUserID(ctx context.Context, userID string) error {
	return r.service.DB(ctx, false).Delete(&models.TwoFactorEnrollment{}, "user_id = ?", userID).Error
}
