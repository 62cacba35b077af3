package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	profilev1 "github.com/antinvestor/apis/go/profile/v1"
	"github.com/antinvestor/service-account/config"
	"github.com/antinvestor/service-account/hydra"
	"github.com/antinvestor/service-account/service/business"
	"github.com/antinvestor/service-account/service/handlers/providers"
	"github.com/antinvestor/service-account/service/repository"
	"github.com/gorilla/securecookie"
	"github.com/pitabwire/frame"
	"github.com/pitabwire/util"
)

type AccountServer struct {
	deviceCookieCodec []securecookie.Codec

	service    *frame.Service
	config     *config.AccountConfig
	profileCli *profilev1.ProfileClient
	idpCli     hydra.Hydra

	// Repository dependencies
	sessionRepo    repository.SessionRepository
	extendedRepo   repository.ExtendedSessionRepository
	credentialRepo repository.CredentialRepository

	// Business dependencies
	abusePolicy  business.AbusePolicy
	challengeBiz business.ChallengeBusiness
	tokenBiz     business.TokenBusiness
	twoFactorBiz business.TwoFactorBusiness
	sessionBiz   business.SessionBusiness
	codeSender   business.CodeSender

	// Identity provider strategies keyed by kind
	identityProviders map[providers.IdentityKind]providers.IdentityProvider
}

func NewAccountServer(ctx context.Context, service *frame.Service, cfg *config.AccountConfig,
	profileCli *profilev1.ProfileClient, idpCli hydra.Hydra,
	codeSender business.CodeSender) *AccountServer {

	log := util.Log(ctx)

	lockRepo := repository.NewLockRepository(service)
	challengeRepo := repository.NewChallengeRepository(service)
	sessionRepo := repository.NewSessionRepository(service)
	extendedRepo := repository.NewExtendedSessionRepository(service)
	enrollmentRepo := repository.NewEnrollmentRepository(service)

	tokenBiz, err := business.NewTokenBusiness(service, sessionRepo,
		[]byte(cfg.TokenPrivateKeyPEM), []byte(cfg.TokenPublicKeyPEM), cfg.TokenIssuer)
	if err != nil {
		log.WithError(err).Fatal("could not initialise token issuer")
	}

	h := &AccountServer{
		service:    service,
		config:     cfg,
		profileCli: profileCli,
		idpCli:     idpCli,

		sessionRepo:    sessionRepo,
		extendedRepo:   extendedRepo,
		credentialRepo: repository.NewCredentialRepository(service),

		abusePolicy: business.NewAbusePolicy(service, lockRepo,
			cfg.VerificationAttemptLimit, cfg.AttemptLockDuration(), cfg.ResendCadence()),
		challengeBiz: business.NewChallengeBusiness(service, challengeRepo),
		tokenBiz:     tokenBiz,
		twoFactorBiz: business.NewTwoFactorBusiness(service, enrollmentRepo,
			[]byte(cfg.TwoFactorEncryptionKey), cfg.TokenIssuer),
		sessionBiz: business.NewSessionBusiness(service, sessionRepo, extendedRepo, idpCli),
		codeSender: codeSender,
	}

	err = h.setupDeviceCookies(cfg)
	if err != nil {
		log.WithError(err).Fatal("could not initialise device cookies")
	}

	h.identityProviders, err = providers.SetupIdentityProviders(ctx, cfg, idpCli, profileCli)
	if err != nil {
		log.WithError(err).Fatal("could not initialise identity providers")
	}

	return h
}

// Service methods for accessing dependencies
func (h *AccountServer) Service() *frame.Service {
	return h.service
}

func (h *AccountServer) Config() *config.AccountConfig {
	return h.config
}

func (h *AccountServer) ProfileCli() *profilev1.ProfileClient {
	return h.profileCli
}

func (h *AccountServer) TokenBiz() business.TokenBusiness {
	return h.tokenBiz
}

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// LockedResponse is the payload returned on rate or ban rejections.
type LockedResponse struct {
	Counter     uint32  `json:"counter"`
	LockedUntil *string `json:"lockedUntil,omitempty"`
	Reason      string  `json:"reason"`
}

// writeError maps the domain error taxonomy onto transport statuses. Lock
// violations carry their full state; everything else collapses to a status
// and a message so failure detail never leaks further than configured.
func (h *AccountServer) writeError(ctx context.Context, w http.ResponseWriter, err error) {

	log := h.service.Log(ctx).WithError(err)

	if lockedErr, ok := business.AsLockedError(err); ok {
		payload := LockedResponse{
			Counter: lockedErr.Counter,
			Reason:  string(lockedErr.Reason),
		}
		if lockedErr.LockedUntil != nil {
			until := lockedErr.LockedUntil.UTC().Format("2006-01-02T15:04:05Z07:00")
			payload.LockedUntil = &until
		}
		log.Debug("request rejected by lockout policy")
		writeJSON(w, http.StatusTooManyRequests, payload)
		return
	}

	code := http.StatusInternalServerError
	message := "could not process request"

	switch {
	case errors.Is(err, business.ErrMalformedRequest):
		code, message = http.StatusBadRequest, "request payload is malformed"
	case errors.Is(err, business.ErrInvalidCode):
		code, message = http.StatusBadRequest, "verification code is invalid or expired"
	case errors.Is(err, business.ErrSessionInvalid):
		code, message = http.StatusForbidden, "forbidden"
	case errors.Is(err, business.ErrConflict):
		code, message = http.StatusConflict, "operation conflicts with existing state"
	case errors.Is(err, business.ErrNotFound):
		code, message = http.StatusNotFound, "not found"
	case errors.Is(err, business.ErrInternalSigning):
		log.Error("token issuance is misconfigured")
	default:
		log.Error("internal service error")
	}

	if h.config.ExposeErrors && code == http.StatusInternalServerError {
		message = err.Error()
	}

	writeJSON(w, code, &ErrorResponse{Code: code, Message: message})
}

// decodeRequest parses a JSON body; any parse failure surfaces as a
// malformed request.
func decodeRequest(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil {
		return business.ErrMalformedRequest
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
