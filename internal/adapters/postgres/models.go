package postgres

import "time"

type ledgerEventModel struct {
	EventID     string     `gorm:"column:event_id;primaryKey"`
	OrganizerID string     `gorm:"column:organizer_id;not null;index"`
	Title       string     `gorm:"column:title"`
	Currency    string     `gorm:"column:currency;not null"`
	Status      string     `gorm:"column:status;not null;index"`
	ExpiresAt   *time.Time `gorm:"column:expires_at"`
	RaisedTotal int64      `gorm:"column:raised_total;not null;default:0"`
	GiftCount   int64      `gorm:"column:gift_count;not null;default:0"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
}

func (ledgerEventModel) TableName() string { return "ledger_events" }

type giftModel struct {
	Seq            int64      `gorm:"column:seq;primaryKey;autoIncrement"`
	GiftID         string     `gorm:"column:gift_id;not null;uniqueIndex"`
	EventID        string     `gorm:"column:event_id;not null;index"`
	PayerName      string     `gorm:"column:payer_name"`
	PayerEmail     string     `gorm:"column:payer_email"`
	Message        string     `gorm:"column:message"`
	Amount         int64      `gorm:"column:amount;not null"`
	Currency       string     `gorm:"column:currency;not null"`
	PlatformFee    int64      `gorm:"column:platform_fee;not null"`
	NetAmount      int64      `gorm:"column:net_amount;not null"`
	Channel        string     `gorm:"column:channel;not null;uniqueIndex:ux_ledger_gifts_channel_ref"`
	TransactionRef string     `gorm:"column:transaction_ref;not null;uniqueIndex:ux_ledger_gifts_channel_ref"`
	Status         string     `gorm:"column:status;not null"`
	PayoutID       *string    `gorm:"column:payout_id;index"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	WithdrawnAt    *time.Time `gorm:"column:withdrawn_at"`
}

func (giftModel) TableName() string { return "ledger_gifts" }

type platformFeeModel struct {
	Seq         int64      `gorm:"column:seq;primaryKey;autoIncrement"`
	FeeID       string     `gorm:"column:fee_id;not null;uniqueIndex"`
	EventID     string     `gorm:"column:event_id;not null;index"`
	GiftID      string     `gorm:"column:gift_id;not null;uniqueIndex"`
	Amount      int64      `gorm:"column:amount;not null"`
	Currency    string     `gorm:"column:currency;not null"`
	Status      string     `gorm:"column:status;not null"`
	PayoutID    *string    `gorm:"column:payout_id;index"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	WithdrawnAt *time.Time `gorm:"column:withdrawn_at"`
}

func (platformFeeModel) TableName() string { return "ledger_platform_fees" }

type developerGiftModel struct {
	Seq            int64      `gorm:"column:seq;primaryKey;autoIncrement"`
	GiftID         string     `gorm:"column:gift_id;not null;uniqueIndex"`
	PayerName      string     `gorm:"column:payer_name"`
	PayerEmail     string     `gorm:"column:payer_email"`
	Message        string     `gorm:"column:message"`
	Amount         int64      `gorm:"column:amount;not null"`
	Currency       string     `gorm:"column:currency;not null"`
	Channel        string     `gorm:"column:channel;not null;uniqueIndex:ux_ledger_developer_gifts_channel_ref"`
	TransactionRef string     `gorm:"column:transaction_ref;not null;uniqueIndex:ux_ledger_developer_gifts_channel_ref"`
	Status         string     `gorm:"column:status;not null"`
	PayoutID       *string    `gorm:"column:payout_id;index"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	WithdrawnAt    *time.Time `gorm:"column:withdrawn_at"`
}

func (developerGiftModel) TableName() string { return "ledger_developer_gifts" }

type payoutModel struct {
	PayoutID        string     `gorm:"column:payout_id;primaryKey"`
	Kind            string     `gorm:"column:kind;not null;index"`
	EventID         string     `gorm:"column:event_id;index"`
	Currency        string     `gorm:"column:currency;not null"`
	Gateway         string     `gorm:"column:gateway;not null"`
	AccountRef      string     `gorm:"column:account_ref;not null"`
	RequestedBy     string     `gorm:"column:requested_by;not null"`
	RequestedAmount int64      `gorm:"column:requested_amount;not null"`
	CoveredAmount   int64      `gorm:"column:covered_amount;not null"`
	TransferFee     int64      `gorm:"column:transfer_fee;not null"`
	NetAmount       int64      `gorm:"column:net_amount;not null"`
	RecordIDs       string     `gorm:"column:record_ids;not null"`
	Status          string     `gorm:"column:status;not null;index"`
	RecipientToken  string     `gorm:"column:recipient_token"`
	TransferRef     *string    `gorm:"column:transfer_ref;uniqueIndex"`
	FailureReason   string     `gorm:"column:failure_reason"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
	AcceptedAt      *time.Time `gorm:"column:accepted_at"`
	SettledAt       *time.Time `gorm:"column:settled_at"`
	FailedAt        *time.Time `gorm:"column:failed_at"`
}

func (payoutModel) TableName() string { return "ledger_payouts" }

type outboxModel struct {
	RecordID     string     `gorm:"column:record_id;primaryKey"`
	EventType    string     `gorm:"column:event_type;not null"`
	EventClass   string     `gorm:"column:event_class;not null"`
	PartitionKey string     `gorm:"column:partition_key;not null"`
	Envelope     string     `gorm:"column:envelope;not null"`
	RetryCount   int        `gorm:"column:retry_count;not null;default:0"`
	LastError    *string    `gorm:"column:last_error"`
	LastErrorAt  *time.Time `gorm:"column:last_error_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;index"`
	SentAt       *time.Time `gorm:"column:sent_at"`
}

func (outboxModel) TableName() string { return "ledger_outbox" }

type withdrawalIdempotencyModel struct {
	IdempotencyKey string    `gorm:"column:idempotency_key;primaryKey"`
	RequestHash    string    `gorm:"column:request_hash;not null"`
	PayoutID       *string   `gorm:"column:payout_id"`
	ExpiresAt      time.Time `gorm:"column:expires_at;not null;index"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (withdrawalIdempotencyModel) TableName() string { return "ledger_withdrawal_idempotency" }
