package repository

import (
	"context"
	"time"

	"github.com/antinvestor/service-account/service/models"
	"github.com/pitabwire/frame"
)

type challengeRepository struct {
	service *frame.Service
}

// NewChallengeRepository creates a new instance of ChallengeRepository
func NewChallengeRepository(service *frame.Service) ChallengeRepository {
	return &challengeRepository{
		service: service,
	}
}

// GetByID retrieves a challenge by ID
func (r *challengeRepository) GetByID(ctx context.Context, id string) (*models.Challenge, error) {
	var challenge models.Challenge
	err := r.service.DB(ctx, true).First(&challenge, "id = ?", id).Error
	if err != nil {
		if frame.ErrorIsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &challenge, nil
}

// Create persists a new challenge record
func (r *challengeRepository) Create(ctx context.Context, challenge *models.Challenge) error {
	if challenge.ID == "" {
		challenge.GenID(ctx)
	}
	return r.service.DB(ctx, false).Create(challenge).Error
}

// Resolve marks a challenge resolved. A challenge is mutated exactly once,
// unresolved to resolved; resolving an already resolved challenge writes
// the same value again and stays a no-op.
func (r *challengeRepository) Resolve(ctx context.Context, id string) error {
	return r.service.DB(ctx, false).
		Model(&models.Challenge{}).
		Where("id = ?", id).
		Update("resolved", true).Error
}

// LatestOpen retrieves the most recently created unresolved, unexpired
// challenge for a target. Absence is a valid no-challenge result, not an
// error.
func (r *challengeRepository) LatestOpen(ctx context.Context, target string) (*models.Challenge, error) {
	var challenge models.Challenge
	err := r.service.DB(ctx, true).
		Where("target = ? AND resolved = ? AND expiry_date > ?", target, false, time.Now()).
		Order("created_at DESC").
		First(&challenge).Error
	if err != nil {
		if frame.ErrorIsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &challenge, nil
}
