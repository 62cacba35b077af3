package providers

import (
	"context"

	profilev1 "github.com/antinvestor/apis/go/profile/v1"
	"github.com/antinvestor/service-account/hydra"
	"github.com/antinvestor/service-account/service/business"
	"github.com/pitabwire/util"
	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FederatedProvider proves identity through the federated identity
// provider: the proof is a token that provider issued, checked by
// introspection. Linking is managed on the provider side, so Link and
// Unlink only validate inputs locally.
type FederatedProvider struct {
	idpCli     hydra.Hydra
	profileCli *profilev1.ProfileClient
}

// NewFederatedProvider creates the federated identity provider strategy.
func NewFederatedProvider(idpCli hydra.Hydra, profileCli *profilev1.ProfileClient) *FederatedProvider {
	return &FederatedProvider{
		idpCli:     idpCli,
		profileCli: profileCli,
	}
}

func (p *FederatedProvider) Kind() IdentityKind {
	return IdentityKindFederated
}

func (p *FederatedProvider) VerifyProof(ctx context.Context, identifier, _ string, proof string) (*VerifiedIdentity, error) {
	log := util.Log(ctx).WithField("identifier", identifier)

	introspected, err := p.idpCli.IntrospectToken(ctx, proof)
	if err != nil {
		return nil, err
	}

	if !introspected.Active {
		log.Debug("federated token is not active")
		return nil, business.ErrInvalidCode
	}

	if identifier != "" && introspected.Subject != identifier {
		log.WithField("subject", introspected.Subject).
			Warn("federated token subject mismatch")
		return nil, business.ErrInvalidCode
	}

	return &VerifiedIdentity{
		Identifier: introspected.Subject,
		SubjectID:  introspected.Subject,
	}, nil
}

func (p *FederatedProvider) CheckAvailable(ctx context.Context, identifier string) (bool, error) {
	existing, err := p.profileCli.GetProfileByContact(ctx, identifier)
	if err != nil {
		st, ok := status.FromError(err)
		if ok && st.Code() == codes.NotFound {
			return true, nil
		}
		return false, err
	}
	return existing == nil, nil
}

func (p *FederatedProvider) Link(ctx context.Context, userID, identifier string) error {
	if userID == "" || identifier == "" {
		return errors.New("user and identifier are required to link")
	}
	// Account linkage for federated identities lives with the provider.
	return nil
}

func (p *FederatedProvider) Unlink(ctx context.Context, userID, identifier string) error {
	if userID == "" || identifier == "" {
		return errors.New("user and identifier are required to unlink")
	}
	return nil
}
