package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/Collinsarusei/giftme-sub000/internal/domain"
	"github.com/Collinsarusei/giftme-sub000/internal/ports"
	"gorm.io/gorm"
)

type idempotencyRepository struct {
	db *gorm.DB
}

func (r *idempotencyRepository) Get(ctx context.Context, key string, now time.Time) (*ports.IdempotencyRecord, error) {
	var rec withdrawalIdempotencyModel
	if err := r.db.WithContext(ctx).
		Where("idempotency_key = ? AND expires_at > ?", key, now).
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	out := &ports.IdempotencyRecord{Key: rec.IdempotencyKey, RequestHash: rec.RequestHash, ExpiresAt: rec.ExpiresAt}
	if rec.PayoutID != nil {
		out.PayoutID = *rec.PayoutID
	}
	return out, nil
}

// Reserve drops an expired holder of the key before inserting, so a key can
// be reused once its window has passed.
func (r *idempotencyRepository) Reserve(ctx context.Context, key, requestHash string, now, expiresAt time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("idempotency_key = ? AND expires_at <= ?", key, now).
			Delete(&withdrawalIdempotencyModel{}).Error; err != nil {
			return err
		}
		rec := withdrawalIdempotencyModel{
			IdempotencyKey: key,
			RequestHash:    requestHash,
			ExpiresAt:      expiresAt,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConflict
			}
			return err
		}
		return nil
	})
}

func (r *idempotencyRepository) Complete(ctx context.Context, key, payoutID string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&withdrawalIdempotencyModel{}).
		Where("idempotency_key = ?", key).
		Updates(map[string]any{"payout_id": payoutID, "updated_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *idempotencyRepository) Release(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).
		Where("idempotency_key = ? AND payout_id IS NULL", key).
		Delete(&withdrawalIdempotencyModel{}).Error
}
