package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/antinvestor/service-account/service/business"
	"github.com/antinvestor/service-account/service/models"
	"github.com/antinvestor/service-account/utils"
	"github.com/pitabwire/util"
)

// RouteSecurity declares the value sets a protected route expects of the
// presented session. A route passes when every populated dimension accepts
// the session; a dimension left empty does not restrict. That makes an
// undeclared restriction fail open by construction, so every protected
// route must state its expectations explicitly.
type RouteSecurity struct {
	SessionTypes []models.SessionType
	GrantTypes   []models.GrantType
	Resources    []string
	Scopes       []string
}

type sessionContextKey string

const ctxKeySession = sessionContextKey("premature_session")

func sessionToContext(ctx context.Context, session *models.Session) context.Context {
	return context.WithValue(ctx, ctxKeySession, session)
}

// SessionFromContext obtains the validated session a guarded handler runs
// under.
func SessionFromContext(ctx context.Context) *models.Session {
	session, ok := ctx.Value(ctxKeySession).(*models.Session)
	if !ok {
		return nil
	}
	return session
}

// secured wraps a handler behind the token strategy and the guard chain.
// Every rejection surfaces as the same forbidden error; which dimension
// failed is logged but never reported to the caller.
func (h *AccountServer) secured(sec RouteSecurity, f func(w http.ResponseWriter, r *http.Request) error) func(w http.ResponseWriter, r *http.Request) error {

	return func(w http.ResponseWriter, r *http.Request) error {
		ctx := r.Context()
		log := util.Log(ctx).WithField("path", r.URL.Path)

		session, claims, err := h.validateBearer(ctx, r)
		if err != nil {
			log.WithError(err).Debug("session strategy rejected token")
			return business.ErrSessionInvalid
		}

		if failed := h.runGuardChain(sec, session, claims); failed != "" {
			log.WithField("guard", failed).Debug("guard chain rejected session")
			return business.ErrSessionInvalid
		}

		h.noteSessionActivity(ctx, session.ID, r)

		return f(w, r.WithContext(sessionToContext(ctx, session)))
	}
}

// validateBearer is the strategy step that precedes the guard chain: the
// token must verify, its sid must resolve to a premature session row with
// its tracking row present, the sub claim must equal the row's checksum,
// the session must be unexpired and the azp must match this service.
func (h *AccountServer) validateBearer(ctx context.Context, r *http.Request) (*models.Session, map[string]any, error) {

	authHeader := r.Header.Get("Authorization")
	tokenStr, found := strings.CutPrefix(authHeader, "Bearer ")
	if !found || tokenStr == "" {
		return nil, nil, business.ErrSessionInvalid
	}

	claims, err := h.tokenBiz.Introspect(tokenStr)
	if err != nil {
		return nil, nil, err
	}

	sid, _ := claims["sid"].(string)
	if sid == "" {
		return nil, nil, business.ErrSessionInvalid
	}

	session, err := h.sessionRepo.GetByID(ctx, sid)
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		return nil, nil, business.ErrSessionInvalid
	}

	tracked, err := h.extendedRepo.GetByOrigin(ctx, sid, models.DistributionTypePreMature)
	if err != nil {
		return nil, nil, err
	}
	if tracked == nil {
		return nil, nil, business.ErrSessionInvalid
	}

	sub, _ := claims["sub"].(string)
	if sub == "" || sub != session.Checksum {
		return nil, nil, business.ErrSessionInvalid
	}

	if !session.ExpiryDate.After(time.Now()) {
		return nil, nil, business.ErrSessionInvalid
	}

	azp, _ := claims["azp"].(string)
	if azp != h.config.TokenAuthorizedParty {
		return nil, nil, business.ErrSessionInvalid
	}

	return session, claims, nil
}

// runGuardChain evaluates the four independent predicates. They are order
// insensitive and combined with a logical AND; within one guard the
// declared list is a logical OR. The name of the first failing guard is
// returned for logging only.
func (h *AccountServer) runGuardChain(sec RouteSecurity, session *models.Session, claims map[string]any) string {

	if !sessionTypeGuard(sec.SessionTypes, session.SessionType) {
		return "session_type"
	}
	if !grantTypeGuard(sec.GrantTypes, session.GrantType) {
		return "grant_type"
	}
	aud, _ := claims["aud"].(string)
	if !resourceGuard(sec.Resources, aud) {
		return "requested_resource"
	}
	if !scopeGuard(sec.Scopes, session) {
		return "scope"
	}
	return ""
}

func sessionTypeGuard(expected []models.SessionType, actual models.SessionType) bool {
	if len(expected) == 0 {
		return true
	}
	for _, e := range expected {
		if e == actual {
			return true
		}
	}
	return false
}

func grantTypeGuard(expected []models.GrantType, actual models.GrantType) bool {
	if len(expected) == 0 {
		return true
	}
	for _, e := range expected {
		if e == actual {
			return true
		}
	}
	return false
}

func resourceGuard(expected []string, actual string) bool {
	if len(expected) == 0 {
		return true
	}
	for _, e := range expected {
		if e == actual {
			return true
		}
	}
	return false
}

func scopeGuard(expected []string, session *models.Session) bool {
	if len(expected) == 0 {
		return true
	}
	for _, e := range expected {
		if session.HasScope(e) {
			return true
		}
	}
	return false
}

// noteSessionActivity refreshes the tracking row for a validated request.
// Failures are logged and swallowed; activity tracking never blocks a
// legitimate request.
func (h *AccountServer) noteSessionActivity(ctx context.Context, sid string, r *http.Request) {

	tracked, err := h.extendedRepo.GetByOrigin(ctx, sid, models.DistributionTypePreMature)
	if err != nil || tracked == nil {
		return
	}

	tracked.LastActiveTime = time.Now()

	ip := util.GetIP(r)
	if ip != "" && !containsString(tracked.IPAddresses, ip) {
		tracked.IPAddresses = append(tracked.IPAddresses, ip)
	}
	agent := r.UserAgent()
	if agent != "" && !containsString(tracked.UserAgents, agent) {
		tracked.UserAgents = append(tracked.UserAgents, agent)
	}
	deviceID := utils.DeviceIDFromContext(ctx)
	if deviceID != "" && !containsString(tracked.DeviceIDs, deviceID) {
		tracked.DeviceIDs = append(tracked.DeviceIDs, deviceID)
	}

	err = h.extendedRepo.Save(ctx, tracked)
	if err != nil {
		util.Log(ctx).WithError(err).Warn("could not record session activity")
	}
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
