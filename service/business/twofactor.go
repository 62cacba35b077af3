package business

import (
	"context"
	"time"

	"github.com/antinvestor/service-account/service/models"
	"github.com/antinvestor/service-account/service/repository"
	"github.com/antinvestor/service-account/utils"
	"github.com/pitabwire/frame"
	"github.com/pitabwire/util"
)

const (
	twoFactorSecretBytes   = 32
	twoFactorConfirmWindow = 24 * time.Hour
	twoFactorStepSeconds   = 30
)

// TwoFactorBusiness drives the authenticator app enrollment state machine:
// unenrolled, pending once a secret is generated, active once confirmed,
// and stale enrollments reaped on the next request.
type TwoFactorBusiness interface {
	// RequestEnrollment issues a fresh shared secret for a user. The raw
	// secret and its provisioning URI are returned exactly once; only the
	// encrypted form is stored, so neither is ever re-derivable.
	RequestEnrollment(ctx context.Context, userID, accountLabel string) (secret string, provisionURI string, err error)

	// VerifyCode checks an authenticator code against the user's
	// enrollment.
	VerifyCode(ctx context.Context, userID, code string) (*models.TwoFactorEnrollment, error)

	// ConfirmEnrollment performs the one time pending-to-active transition
	// after a successful code check. Confirming an already active
	// enrollment conflicts.
	ConfirmEnrollment(ctx context.Context, userID, code string) error
}

type twoFactorBusiness struct {
	service        *frame.Service
	enrollmentRepo repository.EnrollmentRepository

	encryptionKey []byte
	issuer        string
}

// NewTwoFactorBusiness creates a new instance of TwoFactorBusiness. The
// encryption key is the server held symmetric key protecting secrets at
// rest.
func NewTwoFactorBusiness(service *frame.Service, enrollmentRepo repository.EnrollmentRepository,
	encryptionKey []byte, issuer string) TwoFactorBusiness {
	return &twoFactorBusiness{
		service:        service,
		enrollmentRepo: enrollmentRepo,
		encryptionKey:  encryptionKey,
		issuer:         issuer,
	}
}

func (b *twoFactorBusiness) RequestEnrollment(ctx context.Context, userID, accountLabel string) (string, string, error) {

	log := util.Log(ctx).WithField("user_id", userID)

	existing, err := b.enrollmentRepo.GetByUserID(ctx, userID)
	if err != nil {
		return "", "", err
	}

	if existing != nil {
		if !enrollmentReapable(existing) {
			return "", "", ErrConflict
		}

		log.Debug("reaping stale two factor enrollment")
		err = b.enrollmentRepo.DeleteByUserID(ctx, userID)
		if err != nil {
			return "", "", err
		}
	}

	secret, err := utils.GenerateTwoFactorSecret(twoFactorSecretBytes)
	if err != nil {
		return "", "", err
	}

	encrypted, err := utils.EncryptSecret(b.encryptionKey, []byte(secret))
	if err != nil {
		return "", "", err
	}

	enrollment := &models.TwoFactorEnrollment{
		UserID:              userID,
		EncryptedSecret:     encrypted,
		ConfirmedExpiryDate: time.Now().Add(twoFactorConfirmWindow).UnixMilli(),
		Step:                twoFactorStepSeconds,
	}

	err = b.enrollmentRepo.Save(ctx, enrollment)
	if err != nil {
		return "", "", err
	}

	return secret, utils.ProvisionURI(b.issuer, accountLabel, secret, int64(enrollment.Step)), nil
}

func (b *twoFactorBusiness) VerifyCode(ctx context.Context, userID, code string) (*models.TwoFactorEnrollment, error) {

	enrollment, err := b.enrollmentRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if enrollment == nil {
		return nil, ErrInvalidCode
	}

	// Guard against an enrollment that went stale but has not been reaped
	// yet. The comparison is against the recorded activation instant.
	if enrollment.Stale() {
		return nil, ErrInvalidCode
	}

	secret, err := utils.DecryptSecret(b.encryptionKey, enrollment.EncryptedSecret)
	if err != nil {
		return nil, err
	}

	if !utils.VerifyTOTP(code, string(secret), int64(enrollment.Step)) {
		return nil, ErrInvalidCode
	}

	return enrollment, nil
}

func (b *twoFactorBusiness) ConfirmEnrollment(ctx context.Context, userID, code string) error {

	enrollment, err := b.VerifyCode(ctx, userID, code)
	if err != nil {
		return err
	}

	if enrollment.ConfirmedAt != nil && *enrollment.ConfirmedAt <= enrollment.ConfirmedExpiryDate {
		// Already active; confirmation happens exactly once.
		return ErrConflict
	}

	confirmedAt := time.Now().UnixMilli()
	enrollment.ConfirmedAt = &confirmedAt

	return b.enrollmentRepo.Save(ctx, enrollment)
}

// enrollmentReapable reports whether an enrollment no longer blocks a new
// request: a pending one whose confirmation window passed, or an activated
// one recorded outside that window.
func enrollmentReapable(enrollment *models.TwoFactorEnrollment) bool {
	if enrollment.ConfirmedAt == nil {
		return time.Now().UnixMilli() > enrollment.ConfirmedExpiryDate
	}
	return enrollment.Stale()
}
