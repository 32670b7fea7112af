package postgres

import (
	"context"
	"time"

	"github.com/Collinsarusei/giftme-sub000/internal/domain"
	"github.com/Collinsarusei/giftme-sub000/internal/ports"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type giftRepository struct {
	db *gorm.DB
}

func (r *giftRepository) AppendGift(ctx context.Context, gift domain.Gift, fee *domain.PlatformFee) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&ledgerEventModel{}).Where("event_id = ?", gift.EventID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domain.ErrNotFound
		}
		rec := toGiftModel(gift)
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
		if res.Error != nil {
			if isUniqueViolation(res.Error) {
				return domain.ErrDuplicateNotification
			}
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrDuplicateNotification
		}
		if !gift.Status.CountsTowardRaised() {
			return nil
		}
		return settleGift(tx, gift.EventID, gift.Amount, fee, gift.CreatedAt)
	})
}

func (r *giftRepository) PromotePending(ctx context.Context, channel domain.Channel, transactionRef, feeID string, at time.Time) (domain.Gift, error) {
	var promoted domain.Gift
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row giftModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("channel = ? AND transaction_ref = ?", string(channel), transactionRef).
			Take(&row).Error; err != nil {
			return notFound(err)
		}
		if row.Status != string(domain.GiftStatusPending) {
			return domain.ErrDuplicateNotification
		}
		settled := domain.SettledStatusFor(channel)
		res := tx.Model(&giftModel{}).
			Where("gift_id = ? AND status = ?", row.GiftID, string(domain.GiftStatusPending)).
			Update("status", string(settled))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrDuplicateNotification
		}
		row.Status = string(settled)
		promoted = toDomainGift(row)
		return settleGift(tx, row.EventID, row.Amount, &domain.PlatformFee{
			FeeID:     feeID,
			EventID:   row.EventID,
			GiftID:    row.GiftID,
			Amount:    row.PlatformFee,
			Currency:  row.Currency,
			Status:    domain.FeeStatusCollected,
			CreatedAt: at,
		}, at)
	})
	if err != nil {
		return domain.Gift{}, err
	}
	return promoted, nil
}

// settleGift applies the aggregate and fee side effects of a gift reaching a
// settled status inside the caller's transaction.
func settleGift(tx *gorm.DB, eventID string, amount int64, fee *domain.PlatformFee, at time.Time) error {
	res := tx.Model(&ledgerEventModel{}).Where("event_id = ?", eventID).Updates(map[string]any{
		"raised_total": gorm.Expr("raised_total + ?", amount),
		"gift_count":   gorm.Expr("gift_count + 1"),
		"updated_at":   at,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	if fee == nil {
		return nil
	}
	rec := toFeeModel(*fee)
	if err := tx.Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateNotification
		}
		return err
	}
	return nil
}

func (r *giftRepository) GetByTransactionRef(ctx context.Context, channel domain.Channel, transactionRef string) (domain.Gift, error) {
	var row giftModel
	if err := r.db.WithContext(ctx).
		Where("channel = ? AND transaction_ref = ?", string(channel), transactionRef).
		Take(&row).Error; err != nil {
		return domain.Gift{}, notFound(err)
	}
	return toDomainGift(row), nil
}

func (r *giftRepository) ListByEvent(ctx context.Context, eventID string, query ports.PageQuery) ([]domain.Gift, int, error) {
	if query.Limit <= 0 {
		query.Limit = 50
	}
	if query.Offset < 0 {
		query.Offset = 0
	}
	base := r.db.WithContext(ctx).Model(&giftModel{}).Where("event_id = ?", eventID)
	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []giftModel
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at asc").Order("seq asc").
		Offset(query.Offset).Limit(query.Limit).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]domain.Gift, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainGift(row))
	}
	return out, int(total), nil
}

func (r *giftRepository) ListEligible(ctx context.Context, eventID string, statuses []domain.GiftStatus) ([]domain.Gift, error) {
	if len(statuses) == 0 {
		return []domain.Gift{}, nil
	}
	var rows []giftModel
	if err := r.db.WithContext(ctx).
		Where("event_id = ? AND status IN ?", eventID, giftStatusStrings(statuses)).
		Order("created_at asc").Order("seq asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Gift, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainGift(row))
	}
	return out, nil
}

func (r *giftRepository) WithdrawnTotal(ctx context.Context, eventID string) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&giftModel{}).
		Select("COALESCE(SUM(net_amount), 0)").
		Where("event_id = ? AND status = ?", eventID, string(domain.GiftStatusWithdrawn)).
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

type feeRepository struct {
	db *gorm.DB
}

func (r *feeRepository) ListEligible(ctx context.Context, currency string) ([]domain.PlatformFee, error) {
	var rows []platformFeeModel
	if err := r.db.WithContext(ctx).
		Where("currency = ? AND status = ?", currency, string(domain.FeeStatusCollected)).
		Order("created_at asc").Order("seq asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.PlatformFee, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainFee(row))
	}
	return out, nil
}

type developerGiftRepository struct {
	db *gorm.DB
}

func (r *developerGiftRepository) Append(ctx context.Context, gift domain.DeveloperGift) error {
	rec := toDeveloperGiftModel(gift)
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return domain.ErrDuplicateNotification
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrDuplicateNotification
	}
	return nil
}

func (r *developerGiftRepository) ListEligible(ctx context.Context, currency string) ([]domain.DeveloperGift, error) {
	var rows []developerGiftModel
	if err := r.db.WithContext(ctx).
		Where("currency = ? AND status IN ?", currency, giftStatusStrings(domain.EligibleGiftStatuses)).
		Order("created_at asc").Order("seq asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.DeveloperGift, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainDeveloperGift(row))
	}
	return out, nil
}

var (
	_ ports.GiftRepository          = (*giftRepository)(nil)
	_ ports.FeeRepository           = (*feeRepository)(nil)
	_ ports.DeveloperGiftRepository = (*developerGiftRepository)(nil)
	_ ports.EventRepository         = (*eventRepository)(nil)
)
