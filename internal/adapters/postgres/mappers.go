package postgres

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/Collinsarusei/giftme-sub000/internal/contracts"
	"github.com/Collinsarusei/giftme-sub000/internal/domain"
	"github.com/Collinsarusei/giftme-sub000/internal/ports"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func toDomainEvent(row ledgerEventModel) domain.Event {
	return domain.Event{
		EventID:     row.EventID,
		OrganizerID: row.OrganizerID,
		Title:       row.Title,
		Currency:    row.Currency,
		Status:      domain.EventStatus(row.Status),
		ExpiresAt:   utcPtr(row.ExpiresAt),
		RaisedTotal: row.RaisedTotal,
		GiftCount:   row.GiftCount,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

func toGiftModel(gift domain.Gift) giftModel {
	return giftModel{
		GiftID:         gift.GiftID,
		EventID:        gift.EventID,
		PayerName:      gift.PayerName,
		PayerEmail:     gift.PayerEmail,
		Message:        gift.Message,
		Amount:         gift.Amount,
		Currency:       gift.Currency,
		PlatformFee:    gift.PlatformFee,
		NetAmount:      gift.NetAmount,
		Channel:        string(gift.Channel),
		TransactionRef: gift.TransactionRef,
		Status:         string(gift.Status),
		PayoutID:       nullable(gift.PayoutID),
		CreatedAt:      gift.CreatedAt,
		WithdrawnAt:    gift.WithdrawnAt,
	}
}

func toDomainGift(row giftModel) domain.Gift {
	return domain.Gift{
		GiftID:         row.GiftID,
		Seq:            row.Seq,
		EventID:        row.EventID,
		PayerName:      row.PayerName,
		PayerEmail:     row.PayerEmail,
		Message:        row.Message,
		Amount:         row.Amount,
		Currency:       row.Currency,
		PlatformFee:    row.PlatformFee,
		NetAmount:      row.NetAmount,
		Channel:        domain.Channel(row.Channel),
		TransactionRef: row.TransactionRef,
		Status:         domain.GiftStatus(row.Status),
		PayoutID:       deref(row.PayoutID),
		CreatedAt:      row.CreatedAt.UTC(),
		WithdrawnAt:    utcPtr(row.WithdrawnAt),
	}
}

func toFeeModel(fee domain.PlatformFee) platformFeeModel {
	return platformFeeModel{
		FeeID:       fee.FeeID,
		EventID:     fee.EventID,
		GiftID:      fee.GiftID,
		Amount:      fee.Amount,
		Currency:    fee.Currency,
		Status:      string(fee.Status),
		PayoutID:    nullable(fee.PayoutID),
		CreatedAt:   fee.CreatedAt,
		WithdrawnAt: fee.WithdrawnAt,
	}
}

func toDomainFee(row platformFeeModel) domain.PlatformFee {
	return domain.PlatformFee{
		FeeID:       row.FeeID,
		Seq:         row.Seq,
		EventID:     row.EventID,
		GiftID:      row.GiftID,
		Amount:      row.Amount,
		Currency:    row.Currency,
		Status:      domain.FeeStatus(row.Status),
		PayoutID:    deref(row.PayoutID),
		CreatedAt:   row.CreatedAt.UTC(),
		WithdrawnAt: utcPtr(row.WithdrawnAt),
	}
}

func toDeveloperGiftModel(gift domain.DeveloperGift) developerGiftModel {
	return developerGiftModel{
		GiftID:         gift.GiftID,
		PayerName:      gift.PayerName,
		PayerEmail:     gift.PayerEmail,
		Message:        gift.Message,
		Amount:         gift.Amount,
		Currency:       gift.Currency,
		Channel:        string(gift.Channel),
		TransactionRef: gift.TransactionRef,
		Status:         string(gift.Status),
		PayoutID:       nullable(gift.PayoutID),
		CreatedAt:      gift.CreatedAt,
		WithdrawnAt:    gift.WithdrawnAt,
	}
}

func toDomainDeveloperGift(row developerGiftModel) domain.DeveloperGift {
	return domain.DeveloperGift{
		GiftID:         row.GiftID,
		Seq:            row.Seq,
		PayerName:      row.PayerName,
		PayerEmail:     row.PayerEmail,
		Message:        row.Message,
		Amount:         row.Amount,
		Currency:       row.Currency,
		Channel:        domain.Channel(row.Channel),
		TransactionRef: row.TransactionRef,
		Status:         domain.GiftStatus(row.Status),
		PayoutID:       deref(row.PayoutID),
		CreatedAt:      row.CreatedAt.UTC(),
		WithdrawnAt:    utcPtr(row.WithdrawnAt),
	}
}

func toPayoutModel(payout domain.Payout) (payoutModel, error) {
	ids, err := json.Marshal(payout.RecordIDs)
	if err != nil {
		return payoutModel{}, err
	}
	return payoutModel{
		PayoutID:        payout.PayoutID,
		Kind:            string(payout.Kind),
		EventID:         payout.EventID,
		Currency:        payout.Currency,
		Gateway:         payout.Gateway,
		AccountRef:      payout.AccountRef,
		RequestedBy:     payout.RequestedBy,
		RequestedAmount: payout.RequestedAmount,
		CoveredAmount:   payout.CoveredAmount,
		TransferFee:     payout.TransferFee,
		NetAmount:       payout.NetAmount,
		RecordIDs:       string(ids),
		Status:          string(payout.Status),
		RecipientToken:  payout.RecipientToken,
		TransferRef:     nullable(payout.TransferRef),
		FailureReason:   payout.FailureReason,
		CreatedAt:       payout.CreatedAt,
		UpdatedAt:       payout.UpdatedAt,
		AcceptedAt:      payout.AcceptedAt,
		SettledAt:       payout.SettledAt,
		FailedAt:        payout.FailedAt,
	}, nil
}

func toDomainPayout(row payoutModel) (domain.Payout, error) {
	var ids []string
	if row.RecordIDs != "" {
		if err := json.Unmarshal([]byte(row.RecordIDs), &ids); err != nil {
			return domain.Payout{}, err
		}
	}
	return domain.Payout{
		PayoutID:        row.PayoutID,
		Kind:            domain.LedgerKind(row.Kind),
		EventID:         row.EventID,
		Currency:        row.Currency,
		Gateway:         row.Gateway,
		AccountRef:      row.AccountRef,
		RequestedBy:     row.RequestedBy,
		RequestedAmount: row.RequestedAmount,
		CoveredAmount:   row.CoveredAmount,
		TransferFee:     row.TransferFee,
		NetAmount:       row.NetAmount,
		RecordIDs:       ids,
		Status:          domain.PayoutStatus(row.Status),
		RecipientToken:  row.RecipientToken,
		TransferRef:     deref(row.TransferRef),
		FailureReason:   row.FailureReason,
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
		AcceptedAt:      utcPtr(row.AcceptedAt),
		SettledAt:       utcPtr(row.SettledAt),
		FailedAt:        utcPtr(row.FailedAt),
	}, nil
}

func toOutboxModel(record ports.OutboxRecord) (outboxModel, error) {
	raw, err := json.Marshal(record.Envelope)
	if err != nil {
		return outboxModel{}, err
	}
	return outboxModel{
		RecordID:     record.RecordID,
		EventType:    record.Envelope.EventType,
		EventClass:   record.EventClass,
		PartitionKey: record.Envelope.PartitionKey,
		Envelope:     string(raw),
		RetryCount:   record.RetryCount,
		CreatedAt:    record.CreatedAt,
		SentAt:       record.SentAt,
	}, nil
}

func toOutboxRecord(row outboxModel) (ports.OutboxRecord, error) {
	var envelope contracts.EventEnvelope
	if err := json.Unmarshal([]byte(row.Envelope), &envelope); err != nil {
		return ports.OutboxRecord{}, err
	}
	return ports.OutboxRecord{
		RecordID:   row.RecordID,
		EventClass: row.EventClass,
		Envelope:   envelope,
		RetryCount: row.RetryCount,
		CreatedAt:  row.CreatedAt.UTC(),
		SentAt:     utcPtr(row.SentAt),
	}, nil
}

func nullable(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	out := t.UTC()
	return &out
}

func giftStatusStrings(statuses []domain.GiftStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, string(status))
	}
	return out
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}
