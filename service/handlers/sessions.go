package handlers

import (
	"net/http"
	"time"

	"github.com/antinvestor/service-account/service/models"
	"github.com/gorilla/mux"
	"github.com/pitabwire/util"
)

type sessionItem struct {
	ID               string   `json:"id"`
	DistributionType string   `json:"distributionType"`
	EnabledIdpID     string   `json:"enabledIdpId,omitempty"`
	IPAddresses      []string `json:"ipAddresses,omitempty"`
	UserAgents       []string `json:"userAgents,omitempty"`
	LastActiveTime   string   `json:"lastActiveTime"`
	CreatedAt        string   `json:"createdAt"`
}

type listSessionsResponse struct {
	Sessions []sessionItem `json:"sessions"`
}

// ListSessionsEndpoint returns every tracked session the caller holds,
// federated ones included.
func (h *AccountServer) ListSessionsEndpoint(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	session := SessionFromContext(ctx)

	tracked, err := h.sessionBiz.ListUserSessions(ctx, session.ActorID)
	if err != nil {
		return err
	}

	resp := listSessionsResponse{Sessions: make([]sessionItem, 0, len(tracked))}
	for _, t := range tracked {
		resp.Sessions = append(resp.Sessions, toSessionItem(t))
	}

	writeJSON(w, http.StatusOK, &resp)
	return nil
}

func toSessionItem(t *models.ExtendedSession) sessionItem {
	return sessionItem{
		ID:               t.ID,
		DistributionType: string(t.DistributionType),
		EnabledIdpID:     t.EnabledIdpID,
		IPAddresses:      t.IPAddresses,
		UserAgents:       t.UserAgents,
		LastActiveTime:   t.LastActiveTime.UTC().Format(time.RFC3339),
		CreatedAt:        t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// EndSessionEndpoint terminates one of the caller's sessions. For
// federated sessions the provider side sign out has to succeed before the
// local record is released.
func (h *AccountServer) EndSessionEndpoint(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	session := SessionFromContext(ctx)

	sessionID := mux.Vars(r)["SessionId"]

	err := h.sessionBiz.EndSession(ctx, session.ActorID, sessionID)
	if err != nil {
		return err
	}

	util.Log(ctx).
		WithField("actor_id", session.ActorID).
		WithField("session_id", sessionID).Info("session terminated")

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// EndAllSessionsEndpoint signs the caller out everywhere.
func (h *AccountServer) EndAllSessionsEndpoint(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	session := SessionFromContext(ctx)

	err := h.sessionBiz.EndAllSessions(ctx, session.ActorID)
	if err != nil {
		return err
	}

	util.Log(ctx).WithField("actor_id", session.ActorID).Info("all sessions terminated")

	w.WriteHeader(http.StatusNoContent)
	return nil
}
