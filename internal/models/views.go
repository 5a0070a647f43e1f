package models

import (
	"math"
	"time"
)

const dayMillis = 86400000

// CreatorRef is the resolved form of the created_by reference: just enough
// of the creator to show who minted an account. Nil when the account was
// root-seeded or its creator has since been deleted.
type CreatorRef struct {
	Key  string `json:"key"`
	Role string `json:"role"`
}

// AccountView is the read projection of an account. The plan fields are
// stored values; IsExpired, RemainingDays and Status are derived against a
// wall clock at read time via DeriveStatus and must never be cached.
type AccountView struct {
	ID         string      `json:"id"`
	Key        string      `json:"key"`
	Role       string      `json:"role"`
	Credits    int64       `json:"credits"`
	Pricing    Pricing     `json:"pricing"`
	PlanExpiry time.Time   `json:"plan_expiry"`
	CreatedBy  *CreatorRef `json:"createdBy"`
	CreatedAt  time.Time   `json:"createdAt"`

	IsExpired     bool   `json:"isExpired"`
	RemainingDays int    `json:"remainingDays"`
	Status        string `json:"status"`
}

// DeriveStatus fills the computed plan-status fields. RemainingDays is a
// positive ceil of days until expiry while the plan is active, and the
// negated ceil of days since expiry once it has lapsed.
func (v *AccountView) DeriveStatus(now time.Time) {
	v.IsExpired = v.PlanExpiry.Before(now)
	if v.IsExpired {
		v.RemainingDays = -DaysBetween(v.PlanExpiry, now)
		v.Status = "expired"
		return
	}
	v.RemainingDays = DaysBetween(now, v.PlanExpiry)
	v.Status = "active"
}

// DaysBetween returns the ceil of whole days from earlier to later.
func DaysBetween(earlier, later time.Time) int {
	millis := later.UnixMilli() - earlier.UnixMilli()
	return int(math.Ceil(float64(millis) / float64(dayMillis)))
}
