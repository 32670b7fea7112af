package postgres

import (
	"github.com/Collinsarusei/giftme-sub000/internal/ports"
	"gorm.io/gorm"
)

type Repositories struct {
	Events         ports.EventRepository
	Gifts          ports.GiftRepository
	Fees           ports.FeeRepository
	DeveloperGifts ports.DeveloperGiftRepository
	Payouts        ports.PayoutRepository
	Outbox         ports.OutboxRepository
	Idempotency    ports.IdempotencyRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Events:         &eventRepository{db: db},
		Gifts:          &giftRepository{db: db},
		Fees:           &feeRepository{db: db},
		DeveloperGifts: &developerGiftRepository{db: db},
		Payouts:        &payoutRepository{db: db},
		Outbox:         &outboxRepository{db: db},
		Idempotency:    &idempotencyRepository{db: db},
	}
}
