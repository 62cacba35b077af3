package handlers

import (
	"net/http"

	"github.com/antinvestor/service-account/service/business"
	"github.com/antinvestor/service-account/service/models"
	"github.com/antinvestor/service-account/utils"
	"github.com/pitabwire/util"
)

const minPasswordLength = 8

type passwordResetRequest struct {
	Password string `json:"password"`
}

type passwordResetResponse struct {
	Reset bool `json:"reset"`
}

// PasswordResetEndpoint stores a new credential for the actor the guard
// chain admitted. The reset token is single use; its session pair is
// revoked once the credential is written.
func (h *AccountServer) PasswordResetEndpoint(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	session := SessionFromContext(ctx)

	req := passwordResetRequest{}
	err := decodeRequest(r, &req)
	if err != nil {
		return err
	}
	if len(req.Password) < minPasswordLength {
		return business.ErrMalformedRequest
	}

	hash, err := utils.NewBCrypt().Hash(ctx, []byte(req.Password))
	if err != nil {
		return err
	}

	credential, err := h.credentialRepo.GetByActorID(ctx, session.ActorID)
	if err != nil {
		return err
	}
	if credential == nil {
		credential = &models.Credential{ActorID: session.ActorID}
	}
	credential.PasswordHash = hash

	err = h.credentialRepo.Save(ctx, credential)
	if err != nil {
		return err
	}

	// Spend the reset token.
	tracked, err := h.extendedRepo.GetByOrigin(ctx, session.ID, models.DistributionTypePreMature)
	if err != nil {
		return err
	}
	if tracked != nil {
		err = h.sessionRepo.DeleteWithTracking(ctx, session.ID, tracked.ID)
		if err != nil {
			return err
		}
	}

	util.Log(ctx).WithField("actor_id", session.ActorID).Info("credential reset completed")

	writeJSON(w, http.StatusOK, &passwordResetResponse{Reset: true})
	return nil
}
