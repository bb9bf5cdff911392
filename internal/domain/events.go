package domain

import "time"

// Event types
const (
	EventTypeNativeDepositRecorded    = "deposit.native.recorded"
	EventTypeTokenDepositRecorded     = "deposit.token.recorded"
	EventTypeNativeWithdrawalRecorded = "withdrawal.native.recorded"
	EventTypeTokenWithdrawalRecorded  = "withdrawal.token.recorded"
	EventTypeOracleUpdated            = "oracle.updated"
)

// Aggregate types
const (
	AggregateTypeAccount = "account"
	AggregateTypeOracle  = "oracle"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// OperationRecordedEvent is the payload for the four settlement events.
// NativeValue repeats Amount for native operations; for token operations it
// carries the converted value and Price the rate used.
type OperationRecordedEvent struct {
	AccountID   string `json:"account_id"`
	Asset       string `json:"asset"`
	Amount      string `json:"amount"`
	NativeValue string `json:"native_value"`
	Price       string `json:"price,omitempty"`
	EventAt     string `json:"event_at"`
}

// OracleUpdatedEvent payload
type OracleUpdatedEvent struct {
	Feed      string `json:"feed"`
	UpdatedBy string `json:"updated_by"`
	EventAt   string `json:"event_at"`
}
