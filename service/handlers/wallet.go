package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/antinvestor/service-account/service/business"
	"github.com/antinvestor/service-account/service/handlers/providers"
	"github.com/pitabwire/util"
)

type walletChallengeRequest struct {
	Address string `json:"address"`
	Kind    string `json:"kind"`
}

type walletChallengeResponse struct {
	ChallengeID string `json:"challengeId"`
	Memo        string `json:"memo"`
	ExpiresAt   string `json:"expiresAt"`
}

func (h *AccountServer) walletProvider(kind string) providers.IdentityProvider {
	provider, ok := h.identityProviders[providers.IdentityKind(kind)]
	if !ok || provider.Kind() == providers.IdentityKindFederated {
		return nil
	}
	return provider
}

// WalletChallengeEndpoint opens a sign in challenge for a wallet address.
// The memo in the response is the exact text the wallet must sign.
func (h *AccountServer) WalletChallengeEndpoint(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	req := walletChallengeRequest{}
	err := decodeRequest(r, &req)
	if err != nil {
		return err
	}
	if req.Address == "" || h.walletProvider(req.Kind) == nil {
		return business.ErrMalformedRequest
	}

	err = h.abusePolicy.AssertNotBanned(ctx, business.Principal{WalletAddress: req.Address})
	if err != nil {
		return err
	}

	challenge, err := h.challengeBiz.GenerateChallenge(ctx, req.Address, h.config.OtpCodeWindowSeconds)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, &walletChallengeResponse{
		ChallengeID: challenge.ID,
		Memo:        challenge.Memo,
		ExpiresAt:   challenge.ExpiryDate.UTC().Format(time.RFC3339),
	})
	return nil
}

type walletVerifyRequest struct {
	Address   string `json:"address"`
	Kind      string `json:"kind"`
	Signature string `json:"signature"`
}

type walletVerifyResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

// WalletVerifyEndpoint settles a wallet challenge. The signature is checked
// by the kind's verification provider against the outstanding challenge
// memo; a valid proof mints a full sign in token.
func (h *AccountServer) WalletVerifyEndpoint(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	req := walletVerifyRequest{}
	err := decodeRequest(r, &req)
	if err != nil {
		return err
	}
	provider := h.walletProvider(req.Kind)
	if req.Address == "" || req.Signature == "" || provider == nil {
		return business.ErrMalformedRequest
	}

	err = h.abusePolicy.AssertNotBanned(ctx, business.Principal{WalletAddress: req.Address})
	if err != nil {
		return err
	}

	err = h.abusePolicy.AssertAttemptQuota(ctx, req.Address)
	if err != nil {
		return err
	}

	challenge, err := h.challengeBiz.LatestOpenChallenge(ctx, req.Address)
	if err != nil {
		return err
	}
	if challenge == nil {
		return business.ErrInvalidCode
	}

	verified, err := provider.VerifyProof(ctx, req.Address, challenge.Memo, req.Signature)
	if err != nil {
		// Only an actual rejection counts against the quota; a verifier
		// outage is not the caller's fault.
		if errors.Is(err, business.ErrInvalidCode) {
			noteErr := h.abusePolicy.NoteFailedAttempt(ctx, req.Address)
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

	actorID := verified.SubjectID
	if actorID == "" {
		actorID = verified.Identifier
	}

	grant := business.SignInGrant(actorID, h.config.TokenAuthorizedParty,
		string(provider.Kind()), util.GetIP(r), r.UserAgent())
	grant.ExpiresIn = h.config.SignInTokenDuration()

	token, session, err := h.tokenBiz.GrantToken(ctx, grant)
	if err != nil {
		return err
	}

	util.Log(ctx).
		WithField("actor_id", actorID).
		WithField("kind", string(provider.Kind())).Info("wallet sign in completed")

	writeJSON(w, http.StatusOK, &walletVerifyResponse{
		Token:     token,
		ExpiresAt: session.ExpiryDate.UTC().Format(time.RFC3339),
	})
	return nil
}

type walletLinkRequest struct {
	Address   string `json:"address"`
	Kind      string `json:"kind"`
	Signature string `json:"signature"`
}

type walletLinkResponse struct {
	Linked bool `json:"linked"`
}

// WalletLinkEndpoint binds a wallet address to the signed in account. The
// caller proves ownership the same way sign in does, by signing the
// outstanding challenge memo; an address already bound elsewhere conflicts.
func (h *AccountServer) WalletLinkEndpoint(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	session := SessionFromContext(ctx)

	req := walletLinkRequest{}
	err := decodeRequest(r, &req)
	if err != nil {
		return err
	}
	provider := h.walletProvider(req.Kind)
	if req.Address == "" || req.Signature == "" || provider == nil {
		return business.ErrMalformedRequest
	}

	err = h.abusePolicy.AssertAttemptQuota(ctx, req.Address)
	if err != nil {
		return err
	}

	challenge, err := h.challengeBiz.LatestOpenChallenge(ctx, req.Address)
	if err != nil {
		return err
	}
	if challenge == nil {
		return business.ErrInvalidCode
	}

	_, err = provider.VerifyProof(ctx, req.Address, challenge.Memo, req.Signature)
	if err != nil {
		if errors.Is(err, business.ErrInvalidCode) {
			noteErr := h.abusePolicy.NoteFailedAttempt(ctx, req.Address)
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

	available, err := provider.CheckAvailable(ctx, req.Address)
	if err != nil {
		return err
	}
	if !available {
		return business.ErrConflict
	}

	err = provider.Link(ctx, session.ActorID, req.Address)
	if err != nil {
		return err
	}

	util.Log(ctx).
		WithField("actor_id", session.ActorID).
		WithField("kind", string(provider.Kind())).Info("wallet linked")

	writeJSON(w, http.StatusOK, &walletLinkResponse{Linked: true})
	return nil
}

type walletUnlinkRequest struct {
	Address string `json:"address"`
	Kind    string `json:"kind"`
}

// WalletUnlinkEndpoint releases a wallet address from the signed in
// account. Unlinking an address that was never bound is a no-op.
func (h *AccountServer) WalletUnlinkEndpoint(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	session := SessionFromContext(ctx)

	req := walletUnlinkRequest{}
	err := decodeRequest(r, &req)
	if err != nil {
		return err
	}
	provider := h.walletProvider(req.Kind)
	if req.Address == "" || provider == nil {
		return business.ErrMalformedRequest
	}

	err = provider.Unlink(ctx, session.ActorID, req.Address)
	if err != nil {
		return err
	}

	util.Log(ctx).
		WithField("actor_id", session.ActorID).
		WithField("kind", string(provider.Kind())).Info("wallet unlinked")

	w.WriteHeader(http.StatusNoContent)
	return nil
}
