package cqrs

// ---------- Account queries ----------

// GetAccountQuery fetches a single account by ID.
type GetAccountQuery struct {
	AccountID string
}

// ListAccountsQuery fetches a page of accounts. Search matches the license
// key case-insensitively; Role and CreatedBy are exact filters and may be
// left empty.
type ListAccountsQuery struct {
	Page      int
	Limit     int
	Search    string
	Role      string
	CreatedBy string
}

// ---------- Auth queries ----------

// LoginQuery authenticates any account by its license key.
type LoginQuery struct {
	Key string
}

// PrivilegedLoginQuery authenticates an account for the management dashboard;
// only admin, super-seller and seller roles are let through.
type PrivilegedLoginQuery struct {
	Key string
}
