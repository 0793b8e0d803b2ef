package messaging

import "time"

// LedgerEvent is the payload published on the ledger.events exchange.
// investment.* events carry investorId and projectId, distribution.* events carry projectId.
type LedgerEvent struct {
	EventID    string    `json:"eventId,omitempty"`
	InvestorID int64     `json:"investorId,omitempty"`
	ProjectID  int64     `json:"projectId"`
	Amount     string    `json:"amount,omitempty"` // decimal as string
	Status     string    `json:"status,omitempty"`
	OccurredAt time.Time `json:"occurredAt,omitempty"`
}
