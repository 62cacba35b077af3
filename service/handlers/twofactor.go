package handlers

import (
	"errors"
	"net/http"

	"github.com/antinvestor/service-account/service/business"
	"github.com/pitabwire/util"
)

type requestTwoFactorRequest struct {
	AccountLabel string `json:"accountLabel"`
}

type requestTwoFactorResponse struct {
	Secret       string `json:"secret"`
	ProvisionURI string `json:"provisionUri"`
}

// RequestTwoFactorEndpoint starts authenticator enrollment for the session
// holder. The raw secret in the response is the only time it ever leaves
// the service.
func (h *AccountServer) RequestTwoFactorEndpoint(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	session := SessionFromContext(ctx)

	req := requestTwoFactorRequest{}
	err := decodeRequest(r, &req)
	if err != nil {
		return err
	}
	if req.AccountLabel == "" {
		req.AccountLabel = session.ActorID
	}

	secret, provisionURI, err := h.twoFactorBiz.RequestEnrollment(ctx, session.ActorID, req.AccountLabel)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, &requestTwoFactorResponse{
		Secret:       secret,
		ProvisionURI: provisionURI,
	})
	return nil
}

type twoFactorCodeRequest struct {
	Code string `json:"code"`
}

type twoFactorStatusResponse struct {
	Confirmed bool `json:"confirmed"`
}

// ConfirmTwoFactorEndpoint performs the one time pending-to-active
// transition after the user proves possession of the authenticator.
func (h *AccountServer) ConfirmTwoFactorEndpoint(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	session := SessionFromContext(ctx)

	req := twoFactorCodeRequest{}
	err := decodeRequest(r, &req)
	if err != nil {
		return err
	}
	if req.Code == "" {
		return business.ErrMalformedRequest
	}

	err = h.twoFactorBiz.ConfirmEnrollment(ctx, session.ActorID, req.Code)
	if err != nil {
		return err
	}

	util.Log(ctx).WithField("actor_id", session.ActorID).Info("authenticator enrollment confirmed")

	writeJSON(w, http.StatusOK, &twoFactorStatusResponse{Confirmed: true})
	return nil
}

type verifyTwoFactorResponse struct {
	Valid bool `json:"valid"`
}

// VerifyTwoFactorEndpoint checks an authenticator code for a step up
// decision. Code mismatches count against the subject's attempt quota the
// same way invalid email codes do.
func (h *AccountServer) VerifyTwoFactorEndpoint(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	session := SessionFromContext(ctx)

	req := twoFactorCodeRequest{}
	err := decodeRequest(r, &req)
	if err != nil {
		return err
	}
	if req.Code == "" {
		return business.ErrMalformedRequest
	}

	err = h.abusePolicy.AssertAttemptQuota(ctx, session.ActorID)
	if err != nil {
		return err
	}

	_, err = h.twoFactorBiz.VerifyCode(ctx, session.ActorID, req.Code)
	if err != nil {
		if errors.Is(err, business.ErrInvalidCode) {
			noteErr := h.abusePolicy.NoteFailedAttempt(ctx, session.ActorID)
			if noteErr != nil {
				util.Log(ctx).WithError(noteErr).Error("could not count failed attempt")
			}
		}
		return err
	}

	writeJSON(w, http.StatusOK, &verifyTwoFactorResponse{Valid: true})
	return nil
}
