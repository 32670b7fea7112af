package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Collinsarusei/giftme-sub000/internal/domain"
)

// withdrawalKey scopes a client idempotency key to its caller so two callers
// can never collide on the same key.
func withdrawalKey(actor Actor) string {
	key := strings.TrimSpace(actor.IdempotencyKey)
	if key == "" {
		return ""
	}
	return actor.SubjectID + ":" + key
}

func hashPayload(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// replayWithdrawal returns the payout an earlier request with the same key
// produced. A key reused for a different request, or still held by a request
// that has not reserved its payout yet, is a conflict.
func (s *Service) replayWithdrawal(ctx context.Context, key, requestHash string) (domain.Payout, bool, error) {
	if s.idempotency == nil || key == "" {
		return domain.Payout{}, false, nil
	}
	rec, err := s.idempotency.Get(ctx, key, s.nowFn())
	if err != nil || rec == nil {
		return domain.Payout{}, false, err
	}
	if rec.RequestHash != requestHash {
		return domain.Payout{}, false, fmt.Errorf("%w: key was used for a different withdrawal", domain.ErrIdempotencyConflict)
	}
	if rec.PayoutID == "" {
		return domain.Payout{}, false, fmt.Errorf("%w: withdrawal with this key is still in progress", domain.ErrIdempotencyConflict)
	}
	payout, err := s.payouts.Get(ctx, rec.PayoutID)
	if err != nil {
		return domain.Payout{}, false, err
	}
	return payout, true, nil
}

func (s *Service) reserveIdempotency(ctx context.Context, key, requestHash string) error {
	if s.idempotency == nil || key == "" {
		return nil
	}
	now := s.nowFn()
	err := s.idempotency.Reserve(ctx, key, requestHash, now, now.Add(s.cfg.IdempotencyTTL))
	if errors.Is(err, domain.ErrConflict) {
		return fmt.Errorf("%w: withdrawal with this key is still in progress", domain.ErrIdempotencyConflict)
	}
	return err
}

func (s *Service) completeIdempotency(ctx context.Context, key, payoutID string) {
	if s.idempotency == nil || key == "" {
		return
	}
	if err := s.idempotency.Complete(ctx, key, payoutID, s.nowFn()); err != nil {
		s.logger.ErrorContext(ctx, "idempotency key could not be completed",
			"module", "application.withdrawals",
			"layer", "application",
			"operation", "complete_idempotency",
			"outcome", "failure",
			"payout_id", payoutID,
			"error", err,
		)
	}
}

// releaseIdempotency frees a key whose request never reserved a payout, so
// the client may retry once the cause is fixed.
func (s *Service) releaseIdempotency(ctx context.Context, key string) {
	if s.idempotency == nil || key == "" {
		return
	}
	if err := s.idempotency.Release(context.WithoutCancel(ctx), key); err != nil {
		s.logger.WarnContext(ctx, "idempotency key could not be released",
			"module", "application.withdrawals",
			"layer", "application",
			"operation", "release_idempotency",
			"outcome", "failure",
			"error", err,
		)
	}
}
