package providers

import (
	"context"
	"fmt"
	"net/http"

	profilev1 "github.com/antinvestor/apis/go/profile/v1"
	"github.com/antinvestor/service-account/config"
	"github.com/antinvestor/service-account/hydra"
	"github.com/pitabwire/util"
)

// SetupIdentityProviders instantiates every configured identity kind once.
// Callers select a strategy from the returned map by its kind tag; an
// absent kind means that sign-in path is disabled.
func SetupIdentityProviders(ctx context.Context, cfg *config.AccountConfig,
	idpCli hydra.Hydra, profileCli *profilev1.ProfileClient) (map[IdentityKind]IdentityProvider, error) {

	log := util.Log(ctx)
	registry := map[IdentityKind]IdentityProvider{}

	httpClient := &http.Client{Timeout: cfg.WalletVerifyTimeout()}

	if cfg.WalletVerifierEvmURI != "" {
		p := NewWalletProvider(IdentityKindEVM, cfg.WalletVerifierEvmURI, httpClient, profileCli)
		registry[p.Kind()] = p
		log.WithField("verifier_url", cfg.WalletVerifierEvmURI).Info("EVM wallet provider initialised")
	}

	if cfg.WalletVerifierSolanaURI != "" {
		p := NewWalletProvider(IdentityKindSolana, cfg.WalletVerifierSolanaURI, httpClient, profileCli)
		registry[p.Kind()] = p
		log.WithField("verifier_url", cfg.WalletVerifierSolanaURI).Info("Solana wallet provider initialised")
	}

	if idpCli != nil {
		p := NewFederatedProvider(idpCli, profileCli)
		registry[p.Kind()] = p
		log.Info("federated identity provider initialised")
	}

	if len(registry) == 0 {
		return nil, fmt.Errorf("no identity providers configured")
	}

	log.WithField("provider_count", len(registry)).Info("identity provider setup complete")
	return registry, nil
}
