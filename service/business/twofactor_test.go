package business_test

import (
	"testing"
	"time"

	internaltests "github.com/antinvestor/service-account/internal/tests"
	"github.com/antinvestor/service-account/service/business"
	"github.com/antinvestor/service-account/service/repository"
	"github.com/antinvestor/service-account/utils"
	"github.com/pitabwire/frame"
	"github.com/pitabwire/frame/frametests/testdef"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type TwoFactorBusinessTestSuite struct {
	internaltests.BaseTestSuite
}

func TestTwoFactorBusinessTestSuite(t *testing.T) {
	suite.Run(t, new(TwoFactorBusinessTestSuite))
}

func newTwoFactorBusiness(svc *frame.Service) (business.TwoFactorBusiness, repository.EnrollmentRepository) {
	enrollmentRepo := repository.NewEnrollmentRepository(svc)
	biz := business.NewTwoFactorBusiness(svc, enrollmentRepo,
		[]byte("server held encryption key"), "Account Service")
	return biz, enrollmentRepo
}

func currentCode(secret string) string {
	return utils.GenerateCode(secret, time.Unix(0, 0), 30)
}

func (suite *TwoFactorBusinessTestSuite) TestEnrollmentLifecycle() {
	suite.WithTestDependancies(suite.T(), func(t *testing.T, dep *testdef.DependancyOption) {
		ctx, svc := suite.CreateService(t, dep)
		biz, enrollmentRepo := newTwoFactorBusiness(svc)

		secret, provisionURI, err := biz.RequestEnrollment(ctx, "user_1", "user@example.com")
		require.NoError(t, err)
		require.NotEmpty(t, secret)
		assert.Contains(t, provisionURI, "otpauth://totp/")
		assert.Contains(t, provisionURI, secret)

		// Only the encrypted secret is at rest.
		enrollment, err := enrollmentRepo.GetByUserID(ctx, "user_1")
		require.NoError(t, err)
		require.NotNil(t, enrollment)
		assert.NotContains(t, string(enrollment.EncryptedSecret), secret)
		assert.False(t, enrollment.Confirmed())

		// A live pending enrollment blocks a second request.
		_, _, err = biz.RequestEnrollment(ctx, "user_1", "user@example.com")
		assert.ErrorIs(t, err, business.ErrConflict)

		err = biz.ConfirmEnrollment(ctx, "user_1", currentCode(secret))
		require.NoError(t, err)

		enrollment, err = enrollmentRepo.GetByUserID(ctx, "user_1")
		require.NoError(t, err)
		assert.True(t, enrollment.Confirmed())

		// Confirmation is a one time transition.
		err = biz.ConfirmEnrollment(ctx, "user_1", currentCode(secret))
		assert.ErrorIs(t, err, business.ErrConflict)

		// An active enrollment keeps verifying codes.
		_, err = biz.VerifyCode(ctx, "user_1", currentCode(secret))
		require.NoError(t, err)

		_, err = biz.VerifyCode(ctx, "user_1", "000000")
		assert.ErrorIs(t, err, business.ErrInvalidCode)
	})
}

func (suite *TwoFactorBusinessTestSuite) TestVerifyWithoutEnrollment() {
	suite.WithTestDependancies(suite.T(), func(t *testing.T, dep *testdef.DependancyOption) {
		ctx, svc := suite.CreateService(t, dep)
		biz, _ := newTwoFactorBusiness(svc)

		_, err := biz.VerifyCode(ctx, "nobody", "123456")
		assert.ErrorIs(t, err, business.ErrInvalidCode)
	})
}

func (suite *TwoFactorBusinessTestSuite) TestStaleEnrollmentRejectsCodes() {
	suite.WithTestDependancies(suite.T(), func(t *testing.T, dep *testdef.DependancyOption) {
		ctx, svc := suite.CreateService(t, dep)
		biz, enrollmentRepo := newTwoFactorBusiness(svc)

		secret, _, err := biz.RequestEnrollment(ctx, "user_1", "user@example.com")
		require.NoError(t, err)

		// Force the enrollment stale: recorded activation after the
		// confirmation window closed.
		enrollment, err := enrollmentRepo.GetByUserID(ctx, "user_1")
		require.NoError(t, err)
		confirmedAt := enrollment.ConfirmedExpiryDate + 1
		enrollment.ConfirmedAt = &confirmedAt
		require.NoError(t, enrollmentRepo.Save(ctx, enrollment))

		_, err = biz.VerifyCode(ctx, "user_1", currentCode(secret))
		assert.ErrorIs(t, err, business.ErrInvalidCode)
	})
}

func (suite *TwoFactorBusinessTestSuite) TestStaleEnrollmentIsReaped() {
	suite.WithTestDependancies(suite.T(), func(t *testing.T, dep *testdef.DependancyOption) {
		ctx, svc := suite.CreateService(t, dep)
		biz, enrollmentRepo := newTwoFactorBusiness(svc)

		firstSecret, _, err := biz.RequestEnrollment(ctx, "user_1", "user@example.com")
		require.NoError(t, err)

		enrollment, err := enrollmentRepo.GetByUserID(ctx, "user_1")
		require.NoError(t, err)
		confirmedAt := enrollment.ConfirmedExpiryDate + 1
		enrollment.ConfirmedAt = &confirmedAt
		require.NoError(t, enrollmentRepo.Save(ctx, enrollment))

		// A stale enrollment yields to a fresh request.
		secondSecret, _, err := biz.RequestEnrollment(ctx, "user_1", "user@example.com")
		require.NoError(t, err)
		assert.NotEqual(t, firstSecret, secondSecret)

		refreshed, err := enrollmentRepo.GetByUserID(ctx, "user_1")
		require.NoError(t, err)
		require.NotNil(t, refreshed)
		assert.False(t, refreshed.Confirmed())
		assert.False(t, refreshed.Stale())
	})
}

func (suite *TwoFactorBusinessTestSuite) TestPendingPastWindowIsReaped() {
	suite.WithTestDependancies(suite.T(), func(t *testing.T, dep *testdef.DependancyOption) {
		ctx, svc := suite.CreateService(t, dep)
		biz, enrollmentRepo := newTwoFactorBusiness(svc)

		_, _, err := biz.RequestEnrollment(ctx, "user_1", "user@example.com")
		require.NoError(t, err)

		enrollment, err := enrollmentRepo.GetByUserID(ctx, "user_1")
		require.NoError(t, err)
		enrollment.ConfirmedExpiryDate = time.Now().Add(-time.Minute).UnixMilli()
		require.NoError(t, enrollmentRepo.Save(ctx, enrollment))

		_, _, err = biz.RequestEnrollment(ctx, "user_1", "user@example.com")
		require.NoError(t, err)
	})
}
