package domain

const (
	CanonicalEventClassDomain = "domain"
	CanonicalEventClassOps    = "ops"
)

const (
	EventGiftRecorded      = "gift.recorded"
	EventPayoutCompleted   = "payout.completed"
	EventPayoutFailed      = "payout.failed"
	EventSettlementAlerted = "ledger.partial_settlement"
	EventEventsExpired     = "event.expired"
)
