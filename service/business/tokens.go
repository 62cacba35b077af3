package business

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"strings"
	"time"

	"github.com/antinvestor/service-account/service/models"
	"github.com/antinvestor/service-account/service/repository"
	"github.com/antinvestor/service-account/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pitabwire/frame"
	"github.com/pitabwire/util"
	"github.com/pkg/errors"
)

// Scope tags carried by premature session tokens.
const (
	ScopeProfileRead      = "profile:read"
	ScopeProfileWrite     = "profile:write"
	ScopeEmailVerify      = "email:verify"
	ScopePasswordReset    = "password:reset"
	ScopeTwoFactorConfirm = "2fa:confirm"
)

// DistributionMarker is the dist claim stamped on every token this service
// mints, distinguishing it from tokens of the federated identity provider.
const DistributionMarker = string(models.DistributionTypePreMature)

// TokenGrant is the configuration one token issuance runs under. Variants
// such as the sign-in grant differ only in the values passed here.
type TokenGrant struct {
	ActorID           string
	AuthorizedPartyID string
	GrantType         models.GrantType
	SessionType       models.SessionType
	Scopes            []string
	RequestedResource string
	ExpiresIn         time.Duration

	EnabledIdpID string
	IPAddress    string
	UserAgent    string
}

// SignInGrant is the full sign-in variant: profile scopes on the account
// resource for seven days.
func SignInGrant(actorID, authorizedParty, idpID, ip, agent string) TokenGrant {
	return TokenGrant{
		ActorID:           actorID,
		AuthorizedPartyID: authorizedParty,
		GrantType:         models.GrantTypeAccount,
		SessionType:       models.SessionTypeDirect,
		Scopes:            []string{ScopeProfileRead, ScopeProfileWrite},
		RequestedResource: "account",
		ExpiresIn:         7 * 24 * time.Hour,
		EnabledIdpID:      idpID,
		IPAddress:         ip,
		UserAgent:         agent,
	}
}

// TokenBusiness mints, persists and introspects premature session tokens.
type TokenBusiness interface {
	// GrantToken builds and persists a session with its tracking row, signs
	// the matching token and re-verifies it before release. A token the
	// issuer cannot itself validate is never returned.
	GrantToken(ctx context.Context, grant TokenGrant) (string, *models.Session, error)

	// Introspect verifies a token's signature and registered claims without
	// touching the store.
	Introspect(tokenStr string) (jwt.MapClaims, error)
}

type tokenBusiness struct {
	service     *frame.Service
	sessionRepo repository.SessionRepository

	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	issuer     string
}

// NewTokenBusiness creates a new instance of TokenBusiness. The supplied
// keys are the service's signing pair in PEM form.
func NewTokenBusiness(service *frame.Service, sessionRepo repository.SessionRepository,
	privateKeyPEM, publicKeyPEM []byte, issuer string) (TokenBusiness, error) {

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse signing private key")
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse signing public key")
	}

	return &tokenBusiness{
		service:     service,
		sessionRepo: sessionRepo,
		privateKey:  privateKey,
		publicKey:   publicKey,
		issuer:      issuer,
	}, nil
}

func (b *tokenBusiness) GrantToken(ctx context.Context, grant TokenGrant) (string, *models.Session, error) {

	log := util.Log(ctx).WithField("actor_id", grant.ActorID)

	now := time.Now()
	expiresAt := now.Add(grant.ExpiresIn)

	session := &models.Session{
		ActorID:           grant.ActorID,
		AuthorizedPartyID: grant.AuthorizedPartyID,
		GrantType:         grant.GrantType,
		SessionType:       grant.SessionType,
		Scopes:            grant.Scopes,
		ExpiryDate:        expiresAt,
	}

	checksum, err := sessionChecksum(session)
	if err != nil {
		return "", nil, err
	}
	session.Checksum = checksum

	tracking := &models.ExtendedSession{
		UserID:         grant.ActorID,
		EnabledIdpID:   grant.EnabledIdpID,
		LastActiveTime: now,
	}
	if grant.IPAddress != "" {
		tracking.IPAddresses = append(tracking.IPAddresses, grant.IPAddress)
	}
	if grant.UserAgent != "" {
		tracking.UserAgents = append(tracking.UserAgents, grant.UserAgent)
	}

	err = b.sessionRepo.CreateWithTracking(ctx, session, tracking)
	if err != nil {
		return "", nil, err
	}

	claims := jwt.MapClaims{
		"jti":   session.ID,
		"sid":   session.ID,
		"sub":   session.Checksum,
		"scope": strings.Join(grant.Scopes, " "),
		"azp":   grant.AuthorizedPartyID,
		"aud":   grant.RequestedResource,
		"exp":   expiresAt.Unix(),
		"iat":   now.Unix(),
		"nbf":   now.Unix(),
		"iss":   b.issuer,
		"dist":  DistributionMarker,
		"typ":   "Bearer",
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(b.privateKey)
	if err != nil {
		return "", nil, errors.Wrap(err, "could not sign session token")
	}

	// Re-verify the fresh token before anyone sees it. Failing here means
	// the signer and verifier disagree about the key pair or claims, which
	// is a deployment fault the caller cannot recover from.
	_, err = b.verify(signed, grant.RequestedResource)
	if err != nil {
		log.WithError(err).Error("freshly minted token failed self verification")
		return "", nil, ErrInternalSigning
	}

	return signed, session, nil
}

func (b *tokenBusiness) Introspect(tokenStr string) (jwt.MapClaims, error) {
	return b.verify(tokenStr, "")
}

func (b *tokenBusiness) verify(tokenStr string, audience string) (jwt.MapClaims, error) {

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(b.issuer),
		jwt.WithExpirationRequired(),
	}
	if audience != "" {
		options = append(options, jwt.WithAudience(audience))
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		return b.publicKey, nil
	}, options...)
	if err != nil {
		return nil, err
	}

	return claims, nil
}

// sessionChecksum digests the session payload with the checksum field still
// empty, producing the value that later binds the row to its token's sub
// claim.
func sessionChecksum(session *models.Session) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"actorId":           session.ActorID,
		"authorizedPartyId": session.AuthorizedPartyID,
		"grantType":         session.GrantType,
		"sessionType":       session.SessionType,
		"scopes":            []string(session.Scopes),
		"expiryDate":        session.ExpiryDate.UTC().Format(time.RFC3339),
		"checksum":          "",
	})
	if err != nil {
		return "", err
	}
	return utils.Checksum(payload), nil
}
