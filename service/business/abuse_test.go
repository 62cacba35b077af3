package business_test

import (
	"testing"
	"time"

	internaltests "github.com/antinvestor/service-account/internal/tests"
	"github.com/antinvestor/service-account/service/business"
	"github.com/antinvestor/service-account/service/models"
	"github.com/antinvestor/service-account/service/repository"
	"github.com/antinvestor/service-account/utils"
	"github.com/pitabwire/frame"
	"github.com/pitabwire/frame/frametests/testdef"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type AbusePolicyTestSuite struct {
	internaltests.BaseTestSuite
}

func TestAbusePolicyTestSuite(t *testing.T) {
	suite.Run(t, new(AbusePolicyTestSuite))
}

func newAbusePolicy(svc *frame.Service) (business.AbusePolicy, repository.LockRepository) {
	lockRepo := repository.NewLockRepository(svc)
	return business.NewAbusePolicy(svc, lockRepo, 3, time.Hour, time.Minute), lockRepo
}

func (suite *AbusePolicyTestSuite) TestAttemptQuota() {
	suite.WithTestDependancies(suite.T(), func(t *testing.T, dep *testdef.DependancyOption) {
		ctx, svc := suite.CreateService(t, dep)
		policy, lockRepo := newAbusePolicy(svc)

		require.NoError(t, policy.AssertAttemptQuota(ctx, "user@example.com"))

		for i := 0; i < 3; i++ {
			require.NoError(t, policy.NoteFailedAttempt(ctx, "user@example.com"))
		}

		err := policy.AssertAttemptQuota(ctx, "user@example.com")
		require.Error(t, err)

		lockedErr, ok := business.AsLockedError(err)
		require.True(t, ok)
		assert.Equal(t, models.LockReasonInvalidOtp, lockedErr.Reason)
		require.NotNil(t, lockedErr.LockedUntil)

		// The lockout table holds hashed keys, never the raw address.
		record, err := lockRepo.GetByKey(ctx, "user@example.com",
			models.LockTypeEmail, models.LockReasonInvalidOtp)
		require.NoError(t, err)
		assert.Nil(t, record)
		record, err = lockRepo.GetByKey(ctx, utils.HashStringSecret("user@example.com"),
			models.LockTypeEmail, models.LockReasonInvalidOtp)
		require.NoError(t, err)
		require.NotNil(t, record)
	})
}

func (suite *AbusePolicyTestSuite) TestResendThrottle() {
	suite.WithTestDependancies(suite.T(), func(t *testing.T, dep *testdef.DependancyOption) {
		ctx, svc := suite.CreateService(t, dep)
		policy, _ := newAbusePolicy(svc)

		// First resend passes and arms the cadence lock.
		require.NoError(t, policy.ThrottleResend(ctx, "user@example.com"))

		err := policy.ThrottleResend(ctx, "user@example.com")
		require.Error(t, err)

		lockedErr, ok := business.AsLockedError(err)
		require.True(t, ok)
		assert.Equal(t, models.LockReasonResendRate, lockedErr.Reason)
	})
}

func (suite *AbusePolicyTestSuite) TestResendQuota() {
	suite.WithTestDependancies(suite.T(), func(t *testing.T, dep *testdef.DependancyOption) {
		ctx, svc := suite.CreateService(t, dep)
		policy, _ := newAbusePolicy(svc)

		for i := 0; i < 3; i++ {
			require.NoError(t, policy.AssertResendQuota(ctx, "user@example.com"))
			require.NoError(t, policy.NoteResend(ctx, "user@example.com"))
		}

		err := policy.AssertResendQuota(ctx, "user@example.com")
		require.Error(t, err)

		lockedErr, ok := business.AsLockedError(err)
		require.True(t, ok)
		assert.Equal(t, models.LockReasonResendLimit, lockedErr.Reason)
	})
}

func (suite *AbusePolicyTestSuite) TestBanIgnoresExpiry() {
	suite.WithTestDependancies(suite.T(), func(t *testing.T, dep *testdef.DependancyOption) {
		ctx, svc := suite.CreateService(t, dep)
		policy, lockRepo := newAbusePolicy(svc)

		// A ban whose lock window already lapsed. Bans are keyed the same
		// hashed way the policy keys every lock.
		require.NoError(t, lockRepo.InstantLock(ctx, utils.HashStringSecret("subject_1"),
			models.LockTypeSubject, models.LockReasonBanned, -time.Hour))

		err := policy.AssertNotBanned(ctx, business.Principal{
			Email:     "user@example.com",
			SubjectID: "subject_1",
		})
		require.Error(t, err)

		lockedErr, ok := business.AsLockedError(err)
		require.True(t, ok)
		assert.Equal(t, models.LockReasonBanned, lockedErr.Reason)

		require.NoError(t, policy.AssertNotBanned(ctx, business.Principal{
			Email: "clean@example.com",
		}))
	})
}
