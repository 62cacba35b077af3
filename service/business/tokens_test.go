package business_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	internaltests "github.com/antinvestor/service-account/internal/tests"
	"github.com/antinvestor/service-account/service/business"
	"github.com/antinvestor/service-account/service/models"
	"github.com/antinvestor/service-account/service/repository"
	"github.com/pitabwire/frame/frametests/testdef"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type TokenBusinessTestSuite struct {
	internaltests.BaseTestSuite
}

func TestTokenBusinessTestSuite(t *testing.T) {
	suite.Run(t, new(TokenBusinessTestSuite))
}

func generateKeyPairPEM(t *testing.T) ([]byte, []byte) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privatePEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	publicPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicDER,
	})

	return privatePEM, publicPEM
}

func (suite *TokenBusinessTestSuite) TestGrantToken() {
	suite.WithTestDependancies(suite.T(), func(t *testing.T, dep *testdef.DependancyOption) {
		ctx, svc := suite.CreateService(t, dep)

		privatePEM, publicPEM := generateKeyPairPEM(t)
		sessionRepo := repository.NewSessionRepository(svc)
		extendedRepo := repository.NewExtendedSessionRepository(svc)

		tokenBiz, err := business.NewTokenBusiness(svc, sessionRepo,
			privatePEM, publicPEM, "https://account.test")
		require.NoError(t, err)

		token, session, err := tokenBiz.GrantToken(ctx, business.SignInGrant(
			"actor_1", "service_account", "", "10.0.0.1", "test-agent"))
		require.NoError(t, err)
		require.NotEmpty(t, token)
		require.NotEmpty(t, session.ID)

		claims, err := tokenBiz.Introspect(token)
		require.NoError(t, err)

		// The sub claim is the persisted row's checksum, sid its id.
		assert.Equal(t, session.Checksum, claims["sub"])
		assert.Equal(t, session.ID, claims["sid"])
		assert.Equal(t, "premature", claims["dist"])
		assert.Equal(t, "service_account", claims["azp"])
		assert.Equal(t, "profile:read profile:write", claims["scope"])

		stored, err := sessionRepo.GetByID(ctx, session.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, session.Checksum, stored.Checksum)
		assert.True(t, stored.ExpiryDate.After(time.Now()))

		tracked, err := extendedRepo.GetByOrigin(ctx, session.ID, models.DistributionTypePreMature)
		require.NoError(t, err)
		require.NotNil(t, tracked)
		assert.Equal(t, "actor_1", tracked.UserID)
		assert.Contains(t, []string(tracked.IPAddresses), "10.0.0.1")
		assert.Contains(t, []string(tracked.UserAgents), "test-agent")
	})
}

func (suite *TokenBusinessTestSuite) TestGrantTokenSelfVerification() {
	suite.WithTestDependancies(suite.T(), func(t *testing.T, dep *testdef.DependancyOption) {
		ctx, svc := suite.CreateService(t, dep)

		privatePEM, _ := generateKeyPairPEM(t)
		_, foreignPublicPEM := generateKeyPairPEM(t)
		sessionRepo := repository.NewSessionRepository(svc)

		// A verifier keyed differently from the signer must refuse to
		// release any token at all.
		tokenBiz, err := business.NewTokenBusiness(svc, sessionRepo,
			privatePEM, foreignPublicPEM, "https://account.test")
		require.NoError(t, err)

		_, _, err = tokenBiz.GrantToken(ctx, business.SignInGrant(
			"actor_1", "service_account", "", "", ""))
		assert.ErrorIs(t, err, business.ErrInternalSigning)
	})
}

func (suite *TokenBusinessTestSuite) TestIntrospectRejectsGarbage() {
	suite.WithTestDependancies(suite.T(), func(t *testing.T, dep *testdef.DependancyOption) {
		ctx, svc := suite.CreateService(t, dep)

		privatePEM, publicPEM := generateKeyPairPEM(t)
		tokenBiz, err := business.NewTokenBusiness(svc, repository.NewSessionRepository(svc),
			privatePEM, publicPEM, "https://account.test")
		require.NoError(t, err)

		_, err = tokenBiz.Introspect("not.a.token")
		assert.Error(t, err)

		token, _, err := tokenBiz.GrantToken(ctx, business.SignInGrant(
			"actor_1", "service_account", "", "", ""))
		require.NoError(t, err)

		// Flipping one signature byte invalidates the token.
		tampered := token[:len(token)-2] + "xx"
		_, err = tokenBiz.Introspect(tampered)
		assert.Error(t, err)
	})
}
