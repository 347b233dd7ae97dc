package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderSubmitted = "OrderSubmitted"
	EventOrderSynced    = "OrderSynced"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // one of the consts above
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "order-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // record id
	Payload       json.RawMessage `json:"payload"`
}

// Record bodies can carry inline images, so events reference records by id only.
type OrderSubmittedPayload struct {
	RecordID   string  `json:"record_id"`
	Variant    Variant `json:"variant"`
	TotalPrice int64   `json:"total_price"`
	CouponCode string  `json:"coupon_code,omitempty"`
}

type OrderSyncedPayload struct {
	RecordID string `json:"record_id"`
	Outcome  string `json:"outcome"`
	Attempts int    `json:"attempts"`
	Notice   string `json:"notice,omitempty"`
}
