package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/Collinsarusei/giftme-sub000/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type eventRepository struct {
	db *gorm.DB
}

// Upsert creates the event or replaces its descriptive fields. The aggregates
// are owned by the gift store and never overwritten here.
func (r *eventRepository) Upsert(ctx context.Context, event domain.Event) (domain.Event, error) {
	var out ledgerEventModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing ledgerEventModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("event_id = ?", event.EventID).Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			out = ledgerEventModel{
				EventID:     event.EventID,
				OrganizerID: event.OrganizerID,
				Title:       event.Title,
				Currency:    event.Currency,
				Status:      string(event.Status),
				ExpiresAt:   event.ExpiresAt,
				CreatedAt:   event.CreatedAt,
				UpdatedAt:   event.UpdatedAt,
			}
			if err := tx.Create(&out).Error; err != nil {
				if isUniqueViolation(err) {
					return domain.ErrConflict
				}
				return err
			}
			return nil
		case err != nil:
			return err
		}
		if err := tx.Model(&ledgerEventModel{}).Where("event_id = ?", event.EventID).Updates(map[string]any{
			"organizer_id": event.OrganizerID,
			"title":        event.Title,
			"currency":     event.Currency,
			"status":       string(event.Status),
			"expires_at":   event.ExpiresAt,
			"updated_at":   event.UpdatedAt,
		}).Error; err != nil {
			return err
		}
		return tx.Where("event_id = ?", event.EventID).Take(&out).Error
	})
	if err != nil {
		return domain.Event{}, err
	}
	return toDomainEvent(out), nil
}

func (r *eventRepository) Get(ctx context.Context, eventID string) (domain.Event, error) {
	var row ledgerEventModel
	if err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Take(&row).Error; err != nil {
		return domain.Event{}, notFound(err)
	}
	return toDomainEvent(row), nil
}

func (r *eventRepository) ExpireDue(ctx context.Context, now time.Time, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 500
	}
	var ids []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []ledgerEventModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Select("event_id").
			Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", string(domain.EventStatusActive), now).
			Order("event_id asc").
			Limit(limit).
			Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		ids = make([]string, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.EventID)
		}
		return tx.Model(&ledgerEventModel{}).
			Where("event_id IN ? AND status = ?", ids, string(domain.EventStatusActive)).
			Updates(map[string]any{"status": string(domain.EventStatusExpired), "updated_at": now}).Error
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
