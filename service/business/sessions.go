package business

import (
	"context"

	"github.com/antinvestor/service-account/hydra"
	"github.com/antinvestor/service-account/service/models"
	"github.com/antinvestor/service-account/service/repository"
	"github.com/pitabwire/frame"
	"github.com/pitabwire/util"
)

// SessionBusiness unifies ending and listing sessions across both origins:
// locally minted premature sessions and sessions the federated identity
// provider holds.
type SessionBusiness interface {
	// ListUserSessions returns every live session a user holds, origin
	// agnostic.
	ListUserSessions(ctx context.Context, userID string) ([]*models.ExtendedSession, error)

	// EndSession revokes one session. For a federated session the remote
	// delete runs before the local one and a remote failure keeps the local
	// row, so no revocation state is orphaned.
	EndSession(ctx context.Context, userID, extendedSessionID string) error

	// EndAllSessions revokes a user's sessions everywhere, then removes
	// every local tracking row in one local transaction.
	EndAllSessions(ctx context.Context, userID string) error

	// ReapExpired removes premature sessions past their expiry together
	// with their tracking rows.
	ReapExpired(ctx context.Context) error
}

type sessionBusiness struct {
	service      *frame.Service
	sessionRepo  repository.SessionRepository
	extendedRepo repository.ExtendedSessionRepository
	idpCli       hydra.Hydra
}

// NewSessionBusiness creates a new instance of SessionBusiness.
func NewSessionBusiness(service *frame.Service,
	sessionRepo repository.SessionRepository,
	extendedRepo repository.ExtendedSessionRepository,
	idpCli hydra.Hydra) SessionBusiness {
	return &sessionBusiness{
		service:      service,
		sessionRepo:  sessionRepo,
		extendedRepo: extendedRepo,
		idpCli:       idpCli,
	}
}

func (b *sessionBusiness) ListUserSessions(ctx context.Context, userID string) ([]*models.ExtendedSession, error) {
	return b.extendedRepo.GetByUser(ctx, userID)
}

func (b *sessionBusiness) EndSession(ctx context.Context, userID, extendedSessionID string) error {

	log := util.Log(ctx).
		WithField("user_id", userID).
		WithField("extended_session_id", extendedSessionID)

	tracked, err := b.extendedRepo.GetByIDAndUser(ctx, extendedSessionID, userID)
	if err != nil {
		return err
	}
	if tracked == nil {
		return ErrNotFound
	}

	switch tracked.DistributionType {
	case models.DistributionTypeFederated:
		// Remote first. The remote call sits outside the local transaction;
		// a crash after it leaves a local row pointing at a dead federated
		// session, which the idempotent remote delete tolerates on retry.
		err = b.idpCli.DeleteLoginSession(ctx, tracked.SessionOrigin)
		if err != nil {
			log.WithError(err).Error("could not revoke federated session")
			return err
		}
		return b.extendedRepo.Delete(ctx, tracked.ID)

	case models.DistributionTypePreMature:
		return b.sessionRepo.DeleteWithTracking(ctx, tracked.SessionOrigin, tracked.ID)

	default:
		log.WithField("distribution_type", tracked.DistributionType).
			Error("tracked session has unknown distribution type")
		return ErrSessionInvalid
	}
}

func (b *sessionBusiness) EndAllSessions(ctx context.Context, userID string) error {

	err := b.idpCli.RevokeUserSessions(ctx, userID)
	if err != nil {
		return err
	}

	return b.extendedRepo.DeleteAllForUser(ctx, userID)
}

func (b *sessionBusiness) ReapExpired(ctx context.Context) error {
	return b.sessionRepo.DeleteExpired(ctx)
}
