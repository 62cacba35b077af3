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

type ChallengeRepositoryTestSuite struct {
	internaltests.BaseTestSuite
}

func TestChallengeRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(ChallengeRepositoryTestSuite))
}

func (suite *ChallengeRepositoryTestSuite) TestLatestOpen() {
	suite.WithTestDependancies(suite.T(), func(t *testing.T, dep *testdef.DependancyOption) {
		ctx, svc := suite.CreateService(t, dep)
		challengeRepo := repository.NewChallengeRepository(svc)

		older := &models.Challenge{
			Target:     "user@example.com",
			Memo:       "older memo",
			ExpiryDate: time.Now().Add(time.Hour),
		}
		require.NoError(t, challengeRepo.Create(ctx, older))

		newer := &models.Challenge{
			Target:     "user@example.com",
			Memo:       "newer memo",
			ExpiryDate: time.Now().Add(time.Hour),
		}
		require.NoError(t, challengeRepo.Create(ctx, newer))

		expired := &models.Challenge{
			Target:     "user@example.com",
			Memo:       "expired memo",
			ExpiryDate: time.Now().Add(-time.Minute),
		}
		require.NoError(t, challengeRepo.Create(ctx, expired))

		got, err := challengeRepo.LatestOpen(ctx, "user@example.com")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, newer.ID, got.ID)

		got, err = challengeRepo.LatestOpen(ctx, "other@example.com")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func (suite *ChallengeRepositoryTestSuite) TestResolveIsIdempotent() {
	suite.WithTestDependancies(suite.T(), func(t *testing.T, dep *testdef.DependancyOption) {
		ctx, svc := suite.CreateService(t, dep)
		challengeRepo := repository.NewChallengeRepository(svc)

		challenge := &models.Challenge{
			Target:     "user@example.com",
			Memo:       "memo",
			ExpiryDate: time.Now().Add(time.Hour),
		}
		require.NoError(t, challengeRepo.Create(ctx, challenge))

		require.NoError(t, challengeRepo.Resolve(ctx, challenge.ID))
		require.NoError(t, challengeRepo.Resolve(ctx, challenge.ID))

		got, err := challengeRepo.GetByID(ctx, challenge.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.Resolved)

		// A resolved challenge is no longer open.
		open, err := challengeRepo.LatestOpen(ctx, "user@example.com")
		require.NoError(t, err)
		assert.Nil(t, open)
	})
}
