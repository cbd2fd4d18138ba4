package order

import "time"

type Status string

const (
	StatusReceived  Status = "received"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// Order is created exactly once on successful submission and immutable
// thereafter except for status transitions driven externally.
type Order struct {
	ID            string     `json:"orderId"`
	ChatbotID     string     `json:"chatbotId"`
	TableID       string     `json:"tableId,omitempty"`
	Lines         []CartLine `json:"lines"`
	SubtotalCents int64      `json:"subtotalCents"`
	Currency      string     `json:"currency"`
	Status        Status     `json:"status"`
	SourceChannel string     `json:"sourceChannel"`
	CreatedAt     time.Time  `json:"createdAt"`
}
