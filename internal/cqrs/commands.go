package cqrs

import (
	"time"

	"github.com/keydesk/keydesk/internal/models"
)

type CreateAccountCommand struct {
	Key        string
	PlanExpiry time.Time
	Role       string
	Credits    int64
	Pricing    models.Pricing
	CreatedBy  string // empty when the account is root-seeded
}

// UpdateAccountCommand is an explicit patch: only non-nil fields are merged
// into the stored record.
type UpdateAccountCommand struct {
	AccountID  string
	Key        *string
	PlanExpiry *time.Time
	Role       *string
	Credits    *int64
	Pricing    *models.Pricing
}

type DeleteAccountCommand struct {
	AccountID string
}
