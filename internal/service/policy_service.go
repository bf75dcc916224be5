package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/linkboard-io/linkboard-api/internal/models"
	"github.com/linkboard-io/linkboard-api/internal/repository"
	appErrors "github.com/linkboard-io/linkboard-api/pkg/errors"
)

type usageLedger interface {
	TryIncrementUsage(ctx context.Context, id string, now time.Time) (bool, error)
}

// PolicyConfig tunes admission retry behaviour.
type PolicyConfig struct {
	AdmitRetries    int
	AdmitRetryDelay time.Duration
}

// PolicyService decides whether an access attempt against a share is
// currently permitted, and charges admitted attempts against the usage
// ledger. Decisions depend only on expires_at and max_uses; the
// access_type label never changes enforcement.
type PolicyService struct {
	ledger usageLedger
	logger *zap.Logger
	cfg    PolicyConfig
	now    func() time.Time
}

// NewPolicyService constructs a PolicyService.
func NewPolicyService(ledger usageLedger, logger *zap.Logger, cfg PolicyConfig) *PolicyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.AdmitRetries <= 0 {
		cfg.AdmitRetries = 3
	}
	if cfg.AdmitRetryDelay <= 0 {
		cfg.AdmitRetryDelay = 25 * time.Millisecond
	}
	return &PolicyService{ledger: ledger, logger: logger, cfg: cfg, now: time.Now}
}

// Evaluate applies the access policy to the share record as loaded.
// Pure: no state is read or written beyond the record itself, so it
// must be re-run on every request; both fields can flip a share to
// Deny between requests. Returns nil on Allow, or the deny reason.
func (s *PolicyService) Evaluate(share *models.SharedView, now time.Time) error {
	if share == nil {
		return appErrors.ErrShareNotFound
	}
	if share.ExpiresAt != nil && !now.Before(*share.ExpiresAt) {
		return appErrors.ErrShareExpired
	}
	if share.MaxUses != nil && share.CurrentUses >= *share.MaxUses {
		return appErrors.ErrUsesExhausted
	}
	return nil
}

// Now returns the policy clock reading.
func (s *PolicyService) Now() time.Time {
	return s.now()
}

// Admit consumes one use from the share's ledger. The conditional
// update can race to rejection after a successful Evaluate; that
// surfaces as UsesExhausted, and it is the only spot where the policy
// is effectively checked twice. Transient storage contention is
// retried a bounded number of times and then reported as a temporary
// failure, never as UsesExhausted, which is reserved for a genuinely
// reached cap.
func (s *PolicyService) Admit(ctx context.Context, shareID string) error {
	var lastErr error
	for attempt := 0; attempt <= s.cfg.AdmitRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return appErrors.Wrap(ctx.Err(), appErrors.ErrTemporary.Code, appErrors.ErrTemporary.Status, "admission interrupted")
			case <-time.After(s.cfg.AdmitRetryDelay):
			}
		}

		ok, err := s.ledger.TryIncrementUsage(ctx, shareID, s.now())
		if err == nil {
			if !ok {
				return appErrors.ErrUsesExhausted
			}
			return nil
		}
		if !repository.IsRetryable(err) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record share admission")
		}
		lastErr = err
		s.logger.Warn("usage ledger contention, retrying", zap.String("share_id", shareID), zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return appErrors.Wrap(lastErr, appErrors.ErrTemporary.Code, appErrors.ErrTemporary.Status, "usage ledger unavailable")
}
