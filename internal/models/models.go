package models

import "time"

// Account roles, ordered by privilege. An account's role governs both what
// the web API lets it do and what it costs its creator to mint.
const (
	RoleAdmin       = "admin"
	RoleSuperSeller = "super-seller"
	RoleSeller      = "seller"
	RoleUser        = "user"
)

// ValidRoles is the fixed role enumeration accepted on create and update.
var ValidRoles = []string{RoleAdmin, RoleSuperSeller, RoleSeller, RoleUser}

// Pricing holds what this account charges itself when it creates a
// subordinate of the given role.
type Pricing struct {
	SellerCreationCost int64 `json:"seller_creation_cost" validate:"gte=0"`
	UserCreationCost   int64 `json:"user_creation_cost" validate:"gte=0"`
}

// Account is the write model persisted in PostgreSQL. The license key doubles
// as the login credential, so it is unique across all accounts.
type Account struct {
	ID         string    `json:"id"`
	Key        string    `json:"key"`
	Role       string    `json:"role"`
	Credits    int64     `json:"credits"`
	Pricing    Pricing   `json:"pricing"`
	PlanExpiry time.Time `json:"plan_expiry"`
	CreatedBy  string    `json:"createdBy,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// AccountSummary is the trimmed record returned after a delete.
type AccountSummary struct {
	ID      string `json:"id"`
	Key     string `json:"key"`
	Role    string `json:"role"`
	Credits int64  `json:"credits"`
}

// IsValidRole reports whether role is in the fixed enumeration.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
