package providers

import (
	"context"
)

// IdentityKind tags the closed set of identity providers a principal can
// sign in through.
type IdentityKind string

const (
	IdentityKindEVM       IdentityKind = "evm"
	IdentityKindSolana    IdentityKind = "solana"
	IdentityKindFederated IdentityKind = "federated"
)

// VerifiedIdentity is the outcome of a successful proof check.
type VerifiedIdentity struct {
	Identifier string
	SubjectID  string
	Raw        map[string]any
}

// IdentityProvider is one identity kind's capability set. Implementations
// are selected once, via the factory in setup.go, keyed by kind.
type IdentityProvider interface {
	Kind() IdentityKind

	// VerifyProof checks that proof authorises identifier over message. For
	// wallet kinds the proof is a signature over the challenge memo,
	// checked by the kind's external verification provider; for the
	// federated kind it is a provider issued token. A rejected proof
	// surfaces as the invalid code error; any other error means the check
	// itself could not run.
	VerifyProof(ctx context.Context, identifier, message, proof string) (*VerifiedIdentity, error)

	// CheckAvailable reports whether the identifier is not yet bound to an
	// account.
	CheckAvailable(ctx context.Context, identifier string) (bool, error)

	// Link binds the identifier to a user's profile.
	Link(ctx context.Context, userID, identifier string) error

	// Unlink releases the identifier from a user's profile.
	Unlink(ctx context.Context, userID, identifier string) error
}
