package handlers

import (
	"encoding/hex"
	"net/http"
	"time"

	"github.com/antinvestor/service-account/config"
	"github.com/antinvestor/service-account/service/business"
	"github.com/antinvestor/service-account/service/models"
	"github.com/antinvestor/service-account/utils"
	ghandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"
	"github.com/pitabwire/util"
)

const (
	deviceCookieName = "device_storage"
	deviceCookieKey  = "link_id"
)

// SetupRouterV1 wires up the HTTP surface of the service. Routes holding a
// guarded resource declare their expected session value sets here so the
// requirement is visible at the routing table.
func (h *AccountServer) SetupRouterV1() http.Handler {

	router := mux.NewRouter().StrictSlash(true)

	h.addHandler(router, h.HealthEndpoint, "/healthz", "HealthEndpoint", http.MethodGet)

	h.addHandler(router, h.SendOtpEndpoint, "/api/otp/send", "SendOtpEndpoint", http.MethodPost)
	h.addHandler(router, h.VerifyOtpEndpoint, "/api/otp/verify", "VerifyOtpEndpoint", http.MethodPost)
	h.addHandler(router, h.IntrospectTokenEndpoint, "/api/token/introspect", "IntrospectTokenEndpoint", http.MethodPost)
	h.addHandler(router, h.WalletChallengeEndpoint, "/api/wallet/challenge", "WalletChallengeEndpoint", http.MethodPost)
	h.addHandler(router, h.WalletVerifyEndpoint, "/api/wallet/verify", "WalletVerifyEndpoint", http.MethodPost)

	signedInRead := RouteSecurity{
		SessionTypes: []models.SessionType{models.SessionTypeDirect},
		GrantTypes:   []models.GrantType{models.GrantTypeAccount},
		Resources:    []string{"account"},
		Scopes:       []string{business.ScopeProfileRead, business.ScopeProfileWrite},
	}
	signedInWrite := RouteSecurity{
		SessionTypes: []models.SessionType{models.SessionTypeDirect},
		GrantTypes:   []models.GrantType{models.GrantTypeAccount},
		Resources:    []string{"account"},
		Scopes:       []string{business.ScopeProfileWrite},
	}
	twoFactorManage := RouteSecurity{
		SessionTypes: []models.SessionType{models.SessionTypeDirect},
		GrantTypes:   []models.GrantType{models.GrantTypeAccount},
		Resources:    []string{"account"},
		Scopes:       []string{business.ScopeProfileWrite, business.ScopeTwoFactorConfirm},
	}
	passwordReset := RouteSecurity{
		GrantTypes: []models.GrantType{models.GrantTypeAccount},
		Resources:  []string{"account"},
		Scopes:     []string{business.ScopePasswordReset},
	}

	h.addHandler(router, h.secured(twoFactorManage, h.RequestTwoFactorEndpoint),
		"/api/2fa/request", "RequestTwoFactorEndpoint", http.MethodPost)
	h.addHandler(router, h.secured(twoFactorManage, h.ConfirmTwoFactorEndpoint),
		"/api/2fa/confirm", "ConfirmTwoFactorEndpoint", http.MethodPost)
	h.addHandler(router, h.secured(signedInRead, h.VerifyTwoFactorEndpoint),
		"/api/2fa/verify", "VerifyTwoFactorEndpoint", http.MethodPost)

	h.addHandler(router, h.secured(signedInRead, h.ListSessionsEndpoint),
		"/api/sessions", "ListSessionsEndpoint", http.MethodGet)
	h.addHandler(router, h.secured(signedInWrite, h.EndSessionEndpoint),
		"/api/sessions/{SessionId}", "EndSessionEndpoint", http.MethodDelete)
	h.addHandler(router, h.secured(signedInWrite, h.EndAllSessionsEndpoint),
		"/api/sessions", "EndAllSessionsEndpoint", http.MethodDelete)

	h.addHandler(router, h.secured(signedInWrite, h.WalletLinkEndpoint),
		"/api/wallet/link", "WalletLinkEndpoint", http.MethodPost)
	h.addHandler(router, h.secured(signedInWrite, h.WalletUnlinkEndpoint),
		"/api/wallet/link", "WalletUnlinkEndpoint", http.MethodDelete)

	h.addHandler(router, h.secured(passwordReset, h.PasswordResetEndpoint),
		"/api/password/reset", "PasswordResetEndpoint", http.MethodPost)

	router.NotFoundHandler = http.HandlerFunc(h.NotFoundEndpoint)

	return ghandlers.RecoveryHandler()(h.deviceIDMiddleware(router))
}

func (h *AccountServer) addHandler(router *mux.Router,
	f func(w http.ResponseWriter, r *http.Request) error, path string, name string, method string) {

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := f(w, r)
		if err != nil {
			h.service.Log(r.Context()).
				WithError(err).
				WithField("path", path).
				WithField("name", name).Debug("handler returned an error")
			h.writeError(r.Context(), w, err)
		}
	})

	router.Path(path).
		Name(name).
		Handler(handler).
		Methods(method)
}

func (h *AccountServer) NotFoundEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, &ErrorResponse{
		Code:    http.StatusNotFound,
		Message: "no such resource",
	})
}

// deviceIDMiddleware maintains a signed device id cookie so session tracking
// rows can correlate requests from the same installation.
func (h *AccountServer) deviceIDMiddleware(next http.Handler) http.Handler {

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var deviceID string

		deviceCookie, err := r.Cookie(deviceCookieName)
		if err == nil {
			for _, cookieCodec := range h.deviceCookieCodec {
				decodeErr := cookieCodec.Decode(deviceCookieKey, deviceCookie.Value, &deviceID)
				if decodeErr == nil {
					break
				}
			}
		}

		if deviceID == "" {
			deviceID = util.IDString()

			encoded, encodeErr := h.deviceCookieCodec[0].Encode(deviceCookieKey, deviceID)
			if encodeErr != nil {
				http.Error(w, "failed to encode device cookie", http.StatusInternalServerError)
				return
			}

			http.SetCookie(w, &http.Cookie{
				Name:     deviceCookieName,
				Value:    encoded,
				Path:     "/",
				Secure:   true,
				HttpOnly: true,
				SameSite: http.SameSiteStrictMode,
				Expires:  time.Now().Add(365 * 24 * time.Hour),
			})
		}

		r = r.WithContext(utils.DeviceIDToContext(ctx, deviceID))

		next.ServeHTTP(w, r)
	})
}

func (h *AccountServer) setupDeviceCookies(cfg *config.AccountConfig) error {

	hashKey, err := hex.DecodeString(cfg.SecureCookieHashKey)
	if err != nil {
		return err
	}

	blockKey, err := hex.DecodeString(cfg.SecureCookieBlockKey)
	if err != nil {
		return err
	}

	h.deviceCookieCodec = securecookie.CodecsFromPairs(hashKey, blockKey)
	return nil
}
