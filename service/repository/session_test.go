package repository_test

import (
	"testing"
	"time"

	internaltests "github.com/antinvestor/service-account/internal/tests"
	"github.com/antinvestor/service-account/service/models"
	"github.com/antinvestor/service-account/service/repository"
	"github.com/pitabwire/frame/frametests/testdef"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type SessionRepositoryTestSuite struct {
	internaltests.BaseTestSuite
}

func TestSessionRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(SessionRepositoryTestSuite))
}

func newTestSession(checksum string, expiresIn time.Duration) (*models.Session, *models.ExtendedSession) {
	session := &models.Session{
		ActorID:           "actor_1",
		AuthorizedPartyID: "service_account",
		Checksum:          checksum,
		GrantType:         models.GrantTypeAccount,
		SessionType:       models.SessionTypeDirect,
		Scopes:            []string{"profile:read"},
		ExpiryDate:        time.Now().Add(expiresIn),
	}
	tracking := &models.ExtendedSession{
		UserID:         "actor_1",
		LastActiveTime: time.Now(),
	}
	return session, tracking
}

func (suite *SessionRepositoryTestSuite) TestCreateWithTracking() {
	suite.WithTestDependancies(suite.T(), func(t *testing.T, dep *testdef.DependancyOption) {
		ctx, svc := suite.CreateService(t, dep)
		sessionRepo := repository.NewSessionRepository(svc)
		extendedRepo := repository.NewExtendedSessionRepository(svc)

		session, tracking := newTestSession("checksum_a", time.Hour)
		err := sessionRepo.CreateWithTracking(ctx, session, tracking)
		require.NoError(t, err)
		require.NotEmpty(t, session.ID)

		got, err := sessionRepo.GetByID(ctx, session.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "checksum_a", got.Checksum)

		tracked, err := extendedRepo.GetByOrigin(ctx, session.ID, models.DistributionTypePreMature)
		require.NoError(t, err)
		require.NotNil(t, tracked)
		assert.Equal(t, session.ID, tracked.SessionOrigin)
		assert.Equal(t, "actor_1", tracked.UserID)
	})
}

func (suite *SessionRepositoryTestSuite) TestDeleteWithTracking() {
	suite.WithTestDependancies(suite.T(), func(t *testing.T, dep *testdef.DependancyOption) {
		ctx, svc := suite.CreateService(t, dep)
		sessionRepo := repository.NewSessionRepository(svc)
		extendedRepo := repository.NewExtendedSessionRepository(svc)

		session, tracking := newTestSession("checksum_b", time.Hour)
		require.NoError(t, sessionRepo.CreateWithTracking(ctx, session, tracking))

		err := sessionRepo.DeleteWithTracking(ctx, session.ID, tracking.ID)
		require.NoError(t, err)

		got, err := sessionRepo.GetByID(ctx, session.ID)
		require.NoError(t, err)
		assert.Nil(t, got)

		tracked, err := extendedRepo.GetByOrigin(ctx, session.ID, models.DistributionTypePreMature)
		require.NoError(t, err)
		assert.Nil(t, tracked)
	})
}

func (suite *SessionRepositoryTestSuite) TestDeleteExpired() {
	suite.WithTestDependancies(suite.T(), func(t *testing.T, dep *testdef.DependancyOption) {
		ctx, svc := suite.CreateService(t, dep)
		sessionRepo := repository.NewSessionRepository(svc)
		extendedRepo := repository.NewExtendedSessionRepository(svc)

		expired, expiredTracking := newTestSession("checksum_expired", -time.Minute)
		require.NoError(t, sessionRepo.CreateWithTracking(ctx, expired, expiredTracking))

		live, liveTracking := newTestSession("checksum_live", time.Hour)
		require.NoError(t, sessionRepo.CreateWithTracking(ctx, live, liveTracking))

		err := sessionRepo.DeleteExpired(ctx)
		require.NoError(t, err)

		got, err := sessionRepo.GetByID(ctx, expired.ID)
		require.NoError(t, err)
		assert.Nil(t, got)

		tracked, err := extendedRepo.GetByOrigin(ctx, expired.ID, models.DistributionTypePreMature)
		require.NoError(t, err)
		assert.Nil(t, tracked)

		got, err = sessionRepo.GetByID(ctx, live.ID)
		require.NoError(t, err)
		assert.NotNil(t, got)
	})
}

func (suite *SessionRepositoryTestSuite) TestExtendedSessionQueries() {
	suite.WithTestDependancies(suite.T(), func(t *testing.T, dep *testdef.DependancyOption) {
		ctx, svc := suite.CreateService(t, dep)
		extendedRepo := repository.NewExtendedSessionRepository(svc)

		local := &models.ExtendedSession{
			SessionOrigin:    "origin_local",
			DistributionType: models.DistributionTypePreMature,
			UserID:           "user_1",
			LastActiveTime:   time.Now(),
		}
		require.NoError(t, extendedRepo.Save(ctx, local))

		federated := &models.ExtendedSession{
			SessionOrigin:    "origin_idp",
			DistributionType: models.DistributionTypeFederated,
			UserID:           "user_1",
			EnabledIdpID:     "hydra",
			LastActiveTime:   time.Now(),
		}
		require.NoError(t, extendedRepo.Save(ctx, federated))

		all, err := extendedRepo.GetByUser(ctx, "user_1")
		require.NoError(t, err)
		assert.Len(t, all, 2)

		scoped, err := extendedRepo.GetByIDAndUser(ctx, local.ID, "user_1")
		require.NoError(t, err)
		require.NotNil(t, scoped)

		// Another user's id never resolves someone else's session.
		scoped, err = extendedRepo.GetByIDAndUser(ctx, local.ID, "user_2")
		require.NoError(t, err)
		assert.Nil(t, scoped)

		require.NoError(t, extendedRepo.DeleteAllForUser(ctx, "user_1"))
		all, err = extendedRepo.GetByUser(ctx, "user_1")
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}
