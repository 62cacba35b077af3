package repository

import (
	"context"

	"github.com/antinvestor/service-account/service/models"
	"github.com/pitabwire/frame"
)

type credentialRepository struct {
	service *frame.Service
}

// NewCredentialRepository creates a new instance of CredentialRepository
func NewCredentialRepository(service *frame.Service) CredentialRepository {
	return &credentialRepository{
		service: service,
	}
}

// GetByActorID retrieves the credential an actor holds, nil when absent
func (r *credentialRepository) GetByActorID(ctx context.Context, actorID string) (*models.Credential, error) {
	var credential models.Credential
	err := r.service.DB(ctx, true).First(&credential, "actor_id = ?", actorID).Error
	if err != nil {
		if frame.ErrorIsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &credential, nil
}

// Save creates or updates a credential record
func (r *credentialRepository) Save(ctx context.Context, credential *models.Credential) error {
	if credential.ID == "" {
		credential.GenID(ctx)
		return r.service.DB(ctx, false).Create(credential).Error
	}
	return r.service.DB(ctx, false).Save(credential).Error
}
