package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	profilev1 "github.com/antinvestor/apis/go/profile/v1"
	"github.com/antinvestor/service-account/service/business"
	"github.com/pitabwire/util"
	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// WalletProvider proves wallet ownership through an external signature
// verification service and binds verified addresses to profiles as
// contacts. One instance serves one chain family; the kind decides which
// verification endpoint answers.
type WalletProvider struct {
	kind        IdentityKind
	verifierURL string
	httpClient  *http.Client
	profileCli  *profilev1.ProfileClient
}

// NewWalletProvider creates a wallet identity provider for the given kind.
func NewWalletProvider(kind IdentityKind, verifierURL string, httpClient *http.Client, profileCli *profilev1.ProfileClient) *WalletProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &WalletProvider{
		kind:        kind,
		verifierURL: verifierURL,
		httpClient:  httpClient,
		profileCli:  profileCli,
	}
}

func (p *WalletProvider) Kind() IdentityKind {
	return p.kind
}

type walletVerifyRequest struct {
	Address   string `json:"address"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

type walletVerifyResponse struct {
	Valid bool `json:"valid"`
}

func (p *WalletProvider) VerifyProof(ctx context.Context, identifier, message, proof string) (*VerifiedIdentity, error) {
	log := util.Log(ctx).
		WithField("kind", p.kind).
		WithField("address", identifier)

	body, err := json.Marshal(walletVerifyRequest{
		Address:   identifier,
		Message:   message,
		Signature: proof,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.verifierURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Error("wallet verification provider unreachable")
		return nil, errors.WithStack(err)
	}
	defer util.CloseAndLogOnError(ctx, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wallet verification provider replied %s", resp.Status)
	}

	var result walletVerifyResponse
	err = json.NewDecoder(resp.Body).Decode(&result)
	if err != nil {
		return nil, err
	}

	if !result.Valid {
		log.Debug("wallet signature rejected by verifier")
		return nil, business.ErrInvalidCode
	}

	return &VerifiedIdentity{Identifier: identifier}, nil
}

func (p *WalletProvider) CheckAvailable(ctx context.Context, identifier string) (bool, error) {
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

func (p *WalletProvider) Link(ctx context.Context, userID, identifier string) error {
	_, err := p.profileCli.Svc().AddContact(ctx, &profilev1.AddContactRequest{
		Id:      userID,
		Contact: identifier,
	})
	return err
}

// Unlink releases a wallet address from a profile. Contacts are removed by
// their own id, so the profile is fetched first to find the matching one.
func (p *WalletProvider) Unlink(ctx context.Context, userID, identifier string) error {
	profile, err := p.profileCli.GetProfileByContact(ctx, identifier)
	if err != nil {
		st, ok := status.FromError(err)
		if ok && st.Code() == codes.NotFound {
			return nil
		}
		return err
	}
	if profile == nil || profile.GetId() != userID {
		return nil
	}

	var contactID string
	for _, profileContact := range profile.GetContacts() {
		if strings.EqualFold(profileContact.GetDetail(), identifier) {
			contactID = profileContact.GetId()
			break
		}
	}
	if contactID == "" {
		return nil
	}

	_, err = p.profileCli.Svc().RemoveContact(ctx, &profilev1.RemoveContactRequest{
		Id:        userID,
		ContactId: contactID,
	})
	return err
}
