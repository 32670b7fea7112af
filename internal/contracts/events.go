package contracts

import (
	"encoding/json"
	"time"
)

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	EventClass       string          `json:"event_class,omitempty"`
	OccurredAt       time.Time       `json:"occurred_at"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    string          `json:"schema_version"`
	Data             json.RawMessage `json:"data"`
}

type GiftRecordedPayload struct {
	GiftID      string `json:"gift_id"`
	EventID     string `json:"event_id"`
	Kind        string `json:"kind"`
	Amount      int64  `json:"amount"`
	PlatformFee int64  `json:"platform_fee"`
	NetAmount   int64  `json:"net_amount"`
	Currency    string `json:"currency"`
	Channel     string `json:"channel"`
	RecordedAt  string `json:"recorded_at"`
}

type PayoutCompletedPayload struct {
	PayoutID    string `json:"payout_id"`
	Kind        string `json:"kind"`
	EventID     string `json:"event_id,omitempty"`
	RequestedBy string `json:"requested_by"`
	NetAmount   int64  `json:"net_amount"`
	Currency    string `json:"currency"`
	TransferRef string `json:"transfer_ref"`
	CompletedAt string `json:"completed_at"`
}

type PayoutFailedPayload struct {
	PayoutID    string `json:"payout_id"`
	Kind        string `json:"kind"`
	EventID     string `json:"event_id,omitempty"`
	RequestedBy string `json:"requested_by"`
	NetAmount   int64  `json:"net_amount"`
	Currency    string `json:"currency"`
	TransferRef string `json:"transfer_ref,omitempty"`
	FailedAt    string `json:"failed_at"`
	Reason      string `json:"reason"`
}

type PartialSettlementPayload struct {
	PayoutID    string   `json:"payout_id"`
	Kind        string   `json:"kind"`
	EventID     string   `json:"event_id,omitempty"`
	TransferRef string   `json:"transfer_ref"`
	NetAmount   int64    `json:"net_amount"`
	Currency    string   `json:"currency"`
	RecordIDs   []string `json:"record_ids"`
	Error       string   `json:"error"`
	DetectedAt  string   `json:"detected_at"`
}

type EventExpiredPayload struct {
	EventID     string `json:"event_id"`
	RaisedTotal int64  `json:"raised_total"`
	GiftCount   int64  `json:"gift_count"`
	ExpiredAt   string `json:"expired_at"`
}
