package business

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/antinvestor/service-account/service/models"
	"github.com/antinvestor/service-account/service/repository"
	"github.com/antinvestor/service-account/utils"
	"github.com/pitabwire/frame"
	"github.com/pitabwire/util"
)

// challengeExpiryWindow is how long a challenge itself stays answerable.
// It is fixed irrespective of the code validity window the caller asks for;
// that window is stored on the challenge as the duration delta instead.
const challengeExpiryWindow = 60 * time.Second

// ChallengeBusiness issues and settles time bound challenges, and derives
// the one time codes bound to them.
type ChallengeBusiness interface {
	// GenerateChallenge creates and persists a challenge for a target.
	// windowSeconds becomes the validity window of codes derived from the
	// challenge, not of the challenge itself.
	GenerateChallenge(ctx context.Context, target string, windowSeconds int64) (*models.Challenge, error)

	// ResolveChallenge settles a challenge. Resolving twice is a no-op.
	ResolveChallenge(ctx context.Context, id string) error

	// LatestOpenChallenge returns the most recent unresolved, unexpired
	// challenge for a target; nil means no challenge outstanding.
	LatestOpenChallenge(ctx context.Context, target string) (*models.Challenge, error)

	// CodeForChallenge derives the current one time code for a challenge.
	CodeForChallenge(challenge *models.Challenge) string

	// VerifyChallengeCode checks a presented code against the latest open
	// challenge for the target. On success the matching challenge is
	// returned still unresolved; settling it is the caller's decision.
	VerifyChallengeCode(ctx context.Context, target, code string) (*models.Challenge, error)
}

type challengeBusiness struct {
	service       *frame.Service
	challengeRepo repository.ChallengeRepository
}

// NewChallengeBusiness creates a new instance of ChallengeBusiness.
func NewChallengeBusiness(service *frame.Service, challengeRepo repository.ChallengeRepository) ChallengeBusiness {
	return &challengeBusiness{
		service:       service,
		challengeRepo: challengeRepo,
	}
}

func (b *challengeBusiness) GenerateChallenge(ctx context.Context, target string, windowSeconds int64) (*models.Challenge, error) {

	now := time.Now()
	challenge := &models.Challenge{
		Target:        target,
		ExpiryDate:    now.Add(challengeExpiryWindow),
		Resolved:      false,
		DurationDelta: windowSeconds,
	}

	// The checksum covers the challenge payload as it stands before the
	// memo exists, so the memo can embed it.
	payload, err := json.Marshal(map[string]any{
		"target":        challenge.Target,
		"expiryDate":    challenge.ExpiryDate.UTC().Format(time.RFC3339),
		"resolved":      challenge.Resolved,
		"durationDelta": challenge.DurationDelta,
	})
	if err != nil {
		return nil, err
	}

	checksum := utils.Checksum(payload)
	challenge.Memo = fmt.Sprintf("Authorize a session for %s.\nChallenge hash: %s.\nDate: %s.",
		target, checksum, now.UTC().Format(time.RFC3339))

	err = b.challengeRepo.Create(ctx, challenge)
	if err != nil {
		return nil, err
	}

	return challenge, nil
}

func (b *challengeBusiness) ResolveChallenge(ctx context.Context, id string) error {
	return b.challengeRepo.Resolve(ctx, id)
}

func (b *challengeBusiness) LatestOpenChallenge(ctx context.Context, target string) (*models.Challenge, error) {
	return b.challengeRepo.LatestOpen(ctx, target)
}

func (b *challengeBusiness) CodeForChallenge(challenge *models.Challenge) string {
	return utils.GenerateCode(challengeSecret(challenge), challenge.CreatedAt, challenge.DurationDelta)
}

func (b *challengeBusiness) VerifyChallengeCode(ctx context.Context, target, code string) (*models.Challenge, error) {

	challenge, err := b.challengeRepo.LatestOpen(ctx, target)
	if err != nil {
		return nil, err
	}
	if challenge == nil {
		util.Log(ctx).WithField("target", target).Debug("no open challenge for code verification")
		return nil, ErrInvalidCode
	}

	ok := utils.VerifySingleWindowCode(code, challengeSecret(challenge), challenge.CreatedAt, challenge.DurationDelta)
	if !ok {
		return nil, ErrInvalidCode
	}

	return challenge, nil
}

// challengeSecret binds derived codes to the exact challenge content: the
// memo text with every run of whitespace removed.
func challengeSecret(challenge *models.Challenge) string {
	return strings.Join(strings.Fields(challenge.Memo), "")
}
