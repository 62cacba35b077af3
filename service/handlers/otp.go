package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/antinvestor/service-account/service/business"
	"github.com/antinvestor/service-account/service/models"
	"github.com/pitabwire/util"
)

type sendOtpRequest struct {
	Email string `json:"email"`
}

type sendOtpResponse struct {
	ChallengeID string `json:"challengeId"`
	ExpiresAt   string `json:"expiresAt"`
}

// SendOtpEndpoint issues an email one time code. The resend throttle fires
// before the quota check so a caller inside the cadence window never burns
// quota, and the quota is only counted once delivery succeeded.
func (h *AccountServer) SendOtpEndpoint(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	req := sendOtpRequest{}
	err := decodeRequest(r, &req)
	if err != nil {
		return err
	}
	if req.Email == "" {
		return business.ErrMalformedRequest
	}

	err = h.abusePolicy.AssertNotBanned(ctx, business.Principal{Email: req.Email})
	if err != nil {
		return err
	}

	err = h.abusePolicy.ThrottleResend(ctx, req.Email)
	if err != nil {
		return err
	}

	err = h.abusePolicy.AssertResendQuota(ctx, req.Email)
	if err != nil {
		return err
	}

	challenge, err := h.challengeBiz.GenerateChallenge(ctx, req.Email, h.config.OtpCodeWindowSeconds)
	if err != nil {
		return err
	}

	code := h.challengeBiz.CodeForChallenge(challenge)

	err = h.codeSender.SendCode(ctx, req.Email, challenge.Memo, code)
	if err != nil {
		return err
	}

	err = h.abusePolicy.NoteResend(ctx, req.Email)
	if err != nil {
		return err
	}

	util.Log(ctx).WithField("challenge_id", challenge.ID).Debug("issued email code")

	writeJSON(w, http.StatusOK, &sendOtpResponse{
		ChallengeID: challenge.ID,
		ExpiresAt:   challenge.ExpiryDate.UTC().Format(time.RFC3339),
	})
	return nil
}

type verifyOtpRequest struct {
	Email   string `json:"email"`
	Code    string `json:"code"`
	Purpose string `json:"purpose"`
}

type verifyOtpResponse struct {
	Token     string `json:"token"`
	Scope     string `json:"scope"`
	ExpiresAt string `json:"expiresAt"`
}

var purposeScopes = map[string]string{
	"email_verify":   business.ScopeEmailVerify,
	"password_reset": business.ScopePasswordReset,
	"2fa_confirm":    business.ScopeTwoFactorConfirm,
}

// VerifyOtpEndpoint checks a presented code and, on success, settles the
// challenge and mints a short lived token scoped to the declared purpose.
// Only an actual code mismatch counts against the attempt quota.
func (h *AccountServer) VerifyOtpEndpoint(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	req := verifyOtpRequest{}
	err := decodeRequest(r, &req)
	if err != nil {
		return err
	}
	if req.Email == "" || req.Code == "" {
		return business.ErrMalformedRequest
	}

	scope, ok := purposeScopes[req.Purpose]
	if !ok {
		return business.ErrMalformedRequest
	}

	err = h.abusePolicy.AssertNotBanned(ctx, business.Principal{Email: req.Email})
	if err != nil {
		return err
	}

	err = h.abusePolicy.AssertAttemptQuota(ctx, req.Email)
	if err != nil {
		return err
	}

	challenge, err := h.challengeBiz.VerifyChallengeCode(ctx, req.Email, req.Code)
	if err != nil {
		if errors.Is(err, business.ErrInvalidCode) {
			noteErr := h.abusePolicy.NoteFailedAttempt(ctx, req.Email)
			if noteErr != nil {
				util.Log(ctx).WithError(noteErr).Error("could not count failed attempt")
			}
		}
		return err
	}

	err = h.challengeBiz.ResolveChallenge(ctx, challenge.ID)
	if err != nil {
		return err
	}

	token, session, err := h.tokenBiz.GrantToken(ctx, business.TokenGrant{
		ActorID:           req.Email,
		AuthorizedPartyID: h.config.TokenAuthorizedParty,
		GrantType:         models.GrantTypeAccount,
		SessionType:       models.SessionTypeDirect,
		Scopes:            []string{scope},
		RequestedResource: "account",
		ExpiresIn:         h.config.FlowTokenDuration(),
		IPAddress:         util.GetIP(r),
		UserAgent:         r.UserAgent(),
	})
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, &verifyOtpResponse{
		Token:     token,
		Scope:     scope,
		ExpiresAt: session.ExpiryDate.UTC().Format(time.RFC3339),
	})
	return nil
}
