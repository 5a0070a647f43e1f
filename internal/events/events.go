package events

import "time"

// Event types
const (
	AccountCreated = "account.created"
	AccountUpdated = "account.updated"
	AccountDeleted = "account.deleted"
	CreditsDebited = "credits.debited"
)

// Stream names
const (
	AccountEventsStream = "account.events"
)

// Event is the envelope written to the Redis Stream.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

type AccountCreatedEvent struct {
	AccountID string `json:"accountId"`
	Key       string `json:"key"`
	Role      string `json:"role"`
	CreatedBy string `json:"createdBy,omitempty"`
}

type AccountUpdatedEvent struct {
	AccountID string `json:"accountId"`
	Key       string `json:"key"`
	Role      string `json:"role"`
}

type AccountDeletedEvent struct {
	AccountID string `json:"accountId"`
	Key       string `json:"key"`
	CreatedBy string `json:"createdBy,omitempty"`
}

// CreditsDebitedEvent records a successful creation charge against a creator.
type CreditsDebitedEvent struct {
	CreatorID        string `json:"creatorId"`
	Amount           int64  `json:"amount"`
	CreatedAccountID string `json:"createdAccountId"`
	CreatedRole      string `json:"createdRole"`
}
