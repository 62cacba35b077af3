package hydra

import (
	"context"
	"net/http"

	hydraclientgo "github.com/ory/hydra-client-go/v2"
	"github.com/pitabwire/util"
	"github.com/pkg/errors"
)

type (
	// IntrospectedToken is the subset of the federated introspection result
	// this service consumes.
	IntrospectedToken struct {
		Active    bool
		Subject   string
		ClientID  string
		Scope     string
		SessionID string
	}

	// Hydra is the boundary to the federated identity provider. Remote
	// calls can fail independently of local store state; session deletes
	// are idempotent so retrying after a partial failure is safe.
	Hydra interface {
		// IntrospectToken asks the provider whether a token it issued is
		// still active.
		IntrospectToken(ctx context.Context, token string) (*IntrospectedToken, error)
		// DeleteLoginSession revokes one federated session by its id.
		// Deleting an already deleted session is a no-op, not an error.
		DeleteLoginSession(ctx context.Context, sessionID string) error
		// RevokeUserSessions logs a subject out everywhere on the provider
		// side.
		RevokeUserSessions(ctx context.Context, subject string) error
	}

	DefaultHydra struct {
		cli      *hydraclientgo.APIClient
		adminURL string
	}
)

// NewDefaultHydra wires a client against the provider's admin API.
func NewDefaultHydra(httpClient *http.Client, adminURL string) *DefaultHydra {
	configuration := hydraclientgo.NewConfiguration()
	configuration.Servers = []hydraclientgo.ServerConfiguration{
		{
			URL: adminURL,
		},
	}
	configuration.HTTPClient = httpClient
	apiClient := hydraclientgo.NewAPIClient(configuration)

	return &DefaultHydra{
		cli:      apiClient,
		adminURL: adminURL,
	}
}

func (h *DefaultHydra) IntrospectToken(ctx context.Context, token string) (*IntrospectedToken, error) {
	logger := util.Log(ctx).WithField("admin_url", h.adminURL)

	result, _, err := h.cli.OAuth2API.IntrospectOAuth2Token(ctx).Token(token).Execute()
	if err != nil {
		logger.WithError(err).Error("federated token introspection failed")
		return nil, errors.WithStack(err)
	}

	introspected := &IntrospectedToken{
		Active:   result.Active,
		Subject:  result.GetSub(),
		ClientID: result.GetClientId(),
		Scope:    result.GetScope(),
	}
	if sid, ok := result.GetExtOk(); ok {
		if v, found := sid["sid"]; found {
			if s, isString := v.(string); isString {
				introspected.SessionID = s
			}
		}
	}

	return introspected, nil
}

func (h *DefaultHydra) DeleteLoginSession(ctx context.Context, sessionID string) error {
	logger := util.Log(ctx).WithField("session_id", sessionID)

	httpResp, err := h.cli.OAuth2API.RevokeOAuth2LoginSessions(ctx).Sid(sessionID).Execute()
	if err != nil {
		if httpResp != nil && httpResp.StatusCode == http.StatusNotFound {
			logger.Debug("federated session already gone")
			return nil
		}
		logger.WithError(err).Error("federated session delete failed")
		return errors.WithStack(err)
	}

	return nil
}

func (h *DefaultHydra) RevokeUserSessions(ctx context.Context, subject string) error {
	logger := util.Log(ctx).WithField("subject", subject)

	httpResp, err := h.cli.OAuth2API.RevokeOAuth2LoginSessions(ctx).Subject(subject).Execute()
	if err != nil {
		if httpResp != nil && httpResp.StatusCode == http.StatusNotFound {
			return nil
		}
		logger.WithError(err).Error("federated logout everywhere failed")
		return errors.WithStack(err)
	}

	return nil
}
