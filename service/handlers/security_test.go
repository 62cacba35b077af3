package handlers

import (
	"context"
	"testing"

	"github.com/antinvestor/service-account/service/models"
	"github.com/stretchr/testify/assert"
)

func TestGuardsFailOpenWhenUndeclared(t *testing.T) {
	assert.True(t, sessionTypeGuard(nil, models.SessionTypeOAuth))
	assert.True(t, grantTypeGuard(nil, models.GrantTypeServiceClient))
	assert.True(t, resourceGuard(nil, "anything"))
	assert.True(t, scopeGuard(nil, &models.Session{Scopes: []string{"profile:read"}}))
	assert.True(t, scopeGuard([]string{}, &models.Session{}))
}

func TestSessionTypeGuard(t *testing.T) {
	expected := []models.SessionType{models.SessionTypeDirect}
	assert.True(t, sessionTypeGuard(expected, models.SessionTypeDirect))
	assert.False(t, sessionTypeGuard(expected, models.SessionTypeOAuth))
}

func TestGrantTypeGuard(t *testing.T) {
	expected := []models.GrantType{models.GrantTypeAccount, models.GrantTypeServiceClient}
	assert.True(t, grantTypeGuard(expected, models.GrantTypeServiceClient))
	assert.False(t, grantTypeGuard([]models.GrantType{models.GrantTypeAccount}, models.GrantTypeServiceClient))
}

func TestResourceGuard(t *testing.T) {
	assert.True(t, resourceGuard([]string{"account", "profile"}, "profile"))
	assert.False(t, resourceGuard([]string{"account"}, "profile"))
	assert.False(t, resourceGuard([]string{"account"}, ""))
}

func TestScopeGuardMatchesOnAnyIntersection(t *testing.T) {
	expected := []string{"profile:read", "profile:write"}
	assert.True(t, scopeGuard(expected, &models.Session{Scopes: []string{"profile:read"}}))
	assert.True(t, scopeGuard(expected, &models.Session{Scopes: []string{"password:reset", "profile:write"}}))
	assert.False(t, scopeGuard(expected, &models.Session{Scopes: []string{"password:reset"}}))
	assert.False(t, scopeGuard(expected, &models.Session{}))
}

func TestGuardChainReportsFirstFailure(t *testing.T) {
	h := &AccountServer{}
	session := &models.Session{
		GrantType:   models.GrantTypeAccount,
		SessionType: models.SessionTypeDirect,
		Scopes:      []string{"profile:read"},
	}
	claims := map[string]any{"aud": "account"}

	sec := RouteSecurity{
		SessionTypes: []models.SessionType{models.SessionTypeDirect},
		GrantTypes:   []models.GrantType{models.GrantTypeAccount},
		Resources:    []string{"account"},
		Scopes:       []string{"profile:read"},
	}
	assert.Empty(t, h.runGuardChain(sec, session, claims))

	sec.SessionTypes = []models.SessionType{models.SessionTypeOAuth}
	assert.Equal(t, "session_type", h.runGuardChain(sec, session, claims))

	sec.SessionTypes = nil
	sec.Scopes = []string{"profile:write"}
	assert.Equal(t, "scope", h.runGuardChain(sec, session, claims))

	sec.Scopes = nil
	sec.Resources = []string{"profile"}
	assert.Equal(t, "requested_resource", h.runGuardChain(sec, session, claims))
}

func TestSessionFromContext(t *testing.T) {
	assert.Nil(t, SessionFromContext(context.Background()))

	session := &models.Session{ActorID: "user_1"}
	ctx := sessionToContext(context.Background(), session)
	assert.Equal(t, session, SessionFromContext(ctx))
}
