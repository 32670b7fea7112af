package postgres

import (
	"context"
	"time"

	"github.com/Collinsarusei/giftme-sub000/internal/domain"
	"github.com/Collinsarusei/giftme-sub000/internal/ports"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type payoutRepository struct {
	db *gorm.DB
}

// claimTarget is the ledger table a payout kind draws from, together with the
// predicate that makes a row eligible.
type claimTarget struct {
	model     any
	idColumn  string
	eligible  string
	args      []any
	withdrawn string
}

func claimTargetFor(payout domain.Payout) (claimTarget, error) {
	eligibleGifts := giftStatusStrings(domain.EligibleGiftStatuses)
	switch payout.Kind {
	case domain.LedgerKindEventGift:
		return claimTarget{
			model:     &giftModel{},
			idColumn:  "gift_id",
			eligible:  "event_id = ? AND status IN ?",
			args:      []any{payout.EventID, eligibleGifts},
			withdrawn: string(domain.GiftStatusWithdrawn),
		}, nil
	case domain.LedgerKindPlatformFee:
		return claimTarget{
			model:     &platformFeeModel{},
			idColumn:  "fee_id",
			eligible:  "currency = ? AND status = ?",
			args:      []any{payout.Currency, string(domain.FeeStatusCollected)},
			withdrawn: string(domain.FeeStatusWithdrawn),
		}, nil
	case domain.LedgerKindDeveloperGift:
		return claimTarget{
			model:     &developerGiftModel{},
			idColumn:  "gift_id",
			eligible:  "currency = ? AND status IN ?",
			args:      []any{payout.Currency, eligibleGifts},
			withdrawn: string(domain.GiftStatusWithdrawn),
		}, nil
	default:
		return claimTarget{}, domain.ErrInvalidInput
	}
}

// markWithdrawn moves the records claimed by payoutID to their withdrawn
// status inside tx. Records already withdrawn no longer match and are skipped.
func markWithdrawn(tx *gorm.DB, target claimTarget, payoutID string, at time.Time) (int64, error) {
	res := tx.Model(target.model).
		Where("payout_id = ?", payoutID).
		Where(target.eligible, target.args...).
		Updates(map[string]any{"status": target.withdrawn, "withdrawn_at": at})
	return res.RowsAffected, res.Error
}

// Reserve claims the records with a conditional update. Under read committed
// a concurrent claimer blocks on the row locks and then re-evaluates the
// payout_id IS NULL predicate, so the losing transaction updates fewer rows
// and rolls back.
func (r *payoutRepository) Reserve(ctx context.Context, payout domain.Payout) error {
	if len(payout.RecordIDs) == 0 {
		return domain.ErrInvalidInput
	}
	target, err := claimTargetFor(payout)
	if err != nil {
		return err
	}
	rec, err := toPayoutModel(payout)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConflict
			}
			return err
		}
		res := tx.Model(target.model).
			Where(target.idColumn+" IN ?", payout.RecordIDs).
			Where(target.eligible, target.args...).
			Where("payout_id IS NULL").
			Update("payout_id", payout.PayoutID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(payout.RecordIDs)) {
			return domain.ErrConflict
		}
		return nil
	})
}

func (r *payoutRepository) MarkAccepted(ctx context.Context, payoutID string, update ports.PayoutUpdate) (domain.Payout, error) {
	return r.transition(ctx, payoutID, domain.PayoutStatusAccepted, update, map[string]any{"accepted_at": update.At})
}

func (r *payoutRepository) MarkUnknown(ctx context.Context, payoutID string, update ports.PayoutUpdate) (domain.Payout, error) {
	return r.transition(ctx, payoutID, domain.PayoutStatusUnknown, update, map[string]any{"failure_reason": update.Reason})
}

func (r *payoutRepository) transition(ctx context.Context, payoutID string, to domain.PayoutStatus, update ports.PayoutUpdate, extra map[string]any) (domain.Payout, error) {
	var out payoutModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := lockPayout(tx, payoutID)
		if err != nil {
			return err
		}
		if !domain.CanTransitionPayout(domain.PayoutStatus(row.Status), to) {
			return domain.ErrIllegalTransition
		}
		changes := updateColumns(update)
		changes["status"] = string(to)
		for k, v := range extra {
			changes[k] = v
		}
		if err := savePayout(tx, payoutID, changes); err != nil {
			return err
		}
		return tx.Where("payout_id = ?", payoutID).Take(&out).Error
	})
	if err != nil {
		return domain.Payout{}, err
	}
	return toDomainPayout(out)
}

func (r *payoutRepository) Settle(ctx context.Context, payoutID string, update ports.PayoutUpdate) (domain.Payout, bool, error) {
	var (
		out     payoutModel
		changed bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := lockPayout(tx, payoutID)
		if err != nil {
			return err
		}
		switch domain.PayoutStatus(row.Status) {
		case domain.PayoutStatusSucceeded:
			out = row
			return nil
		case domain.PayoutStatusFailed:
			return domain.ErrIllegalTransition
		}
		payout, err := toDomainPayout(row)
		if err != nil {
			return err
		}
		target, err := claimTargetFor(payout)
		if err != nil {
			return err
		}
		if _, err := markWithdrawn(tx, target, payoutID, update.At); err != nil {
			return err
		}
		changes := updateColumns(update)
		changes["status"] = string(domain.PayoutStatusSucceeded)
		changes["settled_at"] = update.At
		if row.AcceptedAt == nil {
			changes["accepted_at"] = update.At
		}
		if err := savePayout(tx, payoutID, changes); err != nil {
			return err
		}
		changed = true
		return tx.Where("payout_id = ?", payoutID).Take(&out).Error
	})
	if err != nil {
		return domain.Payout{}, false, err
	}
	payout, err := toDomainPayout(out)
	return payout, changed, err
}

func (r *payoutRepository) Fail(ctx context.Context, payoutID string, update ports.PayoutUpdate) (domain.Payout, bool, error) {
	var (
		out     payoutModel
		changed bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := lockPayout(tx, payoutID)
		if err != nil {
			return err
		}
		switch domain.PayoutStatus(row.Status) {
		case domain.PayoutStatusFailed:
			out = row
			return nil
		case domain.PayoutStatusSucceeded:
			return domain.ErrIllegalTransition
		}
		payout, err := toDomainPayout(row)
		if err != nil {
			return err
		}
		target, err := claimTargetFor(payout)
		if err != nil {
			return err
		}
		if err := tx.Model(target.model).
			Where("payout_id = ?", payoutID).
			Where(target.eligible, target.args...).
			Update("payout_id", nil).Error; err != nil {
			return err
		}
		changes := updateColumns(update)
		changes["status"] = string(domain.PayoutStatusFailed)
		changes["failed_at"] = update.At
		if update.Reason != "" {
			changes["failure_reason"] = update.Reason
		}
		if err := savePayout(tx, payoutID, changes); err != nil {
			return err
		}
		changed = true
		return tx.Where("payout_id = ?", payoutID).Take(&out).Error
	})
	if err != nil {
		return domain.Payout{}, false, err
	}
	payout, err := toDomainPayout(out)
	return payout, changed, err
}

func (r *payoutRepository) Get(ctx context.Context, payoutID string) (domain.Payout, error) {
	var row payoutModel
	if err := r.db.WithContext(ctx).Where("payout_id = ?", payoutID).Take(&row).Error; err != nil {
		return domain.Payout{}, notFound(err)
	}
	return toDomainPayout(row)
}

func (r *payoutRepository) GetByTransferRef(ctx context.Context, transferRef string) (domain.Payout, error) {
	var row payoutModel
	if err := r.db.WithContext(ctx).Where("transfer_ref = ?", transferRef).Take(&row).Error; err != nil {
		return domain.Payout{}, notFound(err)
	}
	return toDomainPayout(row)
}

func (r *payoutRepository) List(ctx context.Context, query ports.PayoutQuery) ([]domain.Payout, int, error) {
	if query.Limit <= 0 {
		query.Limit = 50
	}
	if query.Offset < 0 {
		query.Offset = 0
	}
	scope := func(db *gorm.DB) *gorm.DB {
		if query.Kind != "" {
			db = db.Where("kind = ?", string(query.Kind))
		}
		if query.EventID != "" {
			db = db.Where("event_id = ?", query.EventID)
		}
		return db
	}
	var total int64
	if err := r.db.WithContext(ctx).Model(&payoutModel{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []payoutModel
	if err := r.db.WithContext(ctx).Scopes(scope).
		Order("created_at desc").
		Offset(query.Offset).Limit(query.Limit).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]domain.Payout, 0, len(rows))
	for _, row := range rows {
		payout, err := toDomainPayout(row)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, payout)
	}
	return out, int(total), nil
}

func lockPayout(tx *gorm.DB, payoutID string) (payoutModel, error) {
	var row payoutModel
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("payout_id = ?", payoutID).Take(&row).Error; err != nil {
		return payoutModel{}, notFound(err)
	}
	return row, nil
}

func updateColumns(update ports.PayoutUpdate) map[string]any {
	changes := map[string]any{"updated_at": update.At}
	if update.TransferRef != "" {
		changes["transfer_ref"] = update.TransferRef
	}
	if update.RecipientToken != "" {
		changes["recipient_token"] = update.RecipientToken
	}
	return changes
}

func savePayout(tx *gorm.DB, payoutID string, changes map[string]any) error {
	if err := tx.Model(&payoutModel{}).Where("payout_id = ?", payoutID).Updates(changes).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

type outboxRepository struct {
	db *gorm.DB
}

func (r *outboxRepository) Enqueue(ctx context.Context, record ports.OutboxRecord) error {
	rec, err := toOutboxModel(record)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *outboxRepository) ListPending(ctx context.Context, limit int) ([]ports.OutboxRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).Where("sent_at IS NULL").Order("created_at asc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ports.OutboxRecord, 0, len(rows))
	for _, row := range rows {
		record, err := toOutboxRecord(row)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}

func (r *outboxRepository) MarkSent(ctx context.Context, recordID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&outboxModel{}).Where("record_id = ?", recordID).Update("sent_at", at).Error
}

func (r *outboxRepository) MarkFailed(ctx context.Context, recordID, errMsg string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&outboxModel{}).Where("record_id = ?", recordID).Updates(map[string]any{
		"retry_count":   gorm.Expr("retry_count + 1"),
		"last_error":    errMsg,
		"last_error_at": at,
	}).Error
}

var (
	_ ports.PayoutRepository = (*payoutRepository)(nil)
	_ ports.OutboxRepository = (*outboxRepository)(nil)
)
