package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/keydesk/keydesk/internal/models"
	"github.com/lib/pq"
)

// Sentinel errors mapped to API status codes by the handlers.
var (
	ErrNotFound            = errors.New("account not found")
	ErrDuplicateKey        = errors.New("account key already exists")
	ErrCreatorNotFound     = errors.New("creator not found")
	ErrInsufficientCredits = errors.New("insufficient credits")
)

// AccountWriteRepository handles all state-mutating operations for accounts.
// It operates exclusively against the PostgreSQL write store (source of truth).
type AccountWriteRepository struct {
	db *sql.DB
}

func NewAccountWriteRepository(db *sql.DB) *AccountWriteRepository {
	return &AccountWriteRepository{db: db}
}

const insertAccountQuery = `
	INSERT INTO accounts (id, key, role, credits, seller_creation_cost, user_creation_cost,
		plan_expiry, created_by, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

func (r *AccountWriteRepository) Create(account *models.Account) error {
	_, err := r.db.Exec(insertAccountQuery,
		account.ID, account.Key, account.Role, account.Credits,
		account.Pricing.SellerCreationCost, account.Pricing.UserCreationCost,
		account.PlanExpiry, nullString(account.CreatedBy), account.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// CreateWithCreator charges the creator and inserts the new account in a
// single transaction. The creator row is locked for the duration, so two
// concurrent creations cannot both pass the credit check; either the debit
// and the insert both land or neither does. Returns the charged cost.
func (r *AccountWriteRepository) CreateWithCreator(account *models.Account, creatorID string) (int64, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var credits, sellerCost, userCost int64
	err = tx.QueryRow(`
		SELECT credits, seller_creation_cost, user_creation_cost
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`, creatorID).Scan(&credits, &sellerCost, &userCost)
	if err == sql.ErrNoRows {
		return 0, ErrCreatorNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to lock creator: %w", err)
	}

	var cost int64
	switch account.Role {
	case models.RoleSeller:
		cost = sellerCost
	case models.RoleUser:
		cost = userCost
	}
	if cost > credits {
		return 0, ErrInsufficientCredits
	}

	if cost > 0 {
		if _, err := tx.Exec(`UPDATE accounts SET credits = credits - $2 WHERE id = $1`, creatorID, cost); err != nil {
			return 0, fmt.Errorf("failed to debit creator: %w", err)
		}
	}

	if _, err := tx.Exec(insertAccountQuery,
		account.ID, account.Key, account.Role, account.Credits,
		account.Pricing.SellerCreationCost, account.Pricing.UserCreationCost,
		account.PlanExpiry, nullString(account.CreatedBy), account.CreatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateKey
		}
		return 0, fmt.Errorf("failed to create account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit creation: %w", err)
	}
	return cost, nil
}

// GetByID fetches the full write model for internal operations.
func (r *AccountWriteRepository) GetByID(id string) (*models.Account, error) {
	query := `
		SELECT id, key, role, credits, seller_creation_cost, user_creation_cost,
			   plan_expiry, created_by, created_at
		FROM accounts
		WHERE id = $1
	`
	var account models.Account
	var createdBy sql.NullString

	err := r.db.QueryRow(query, id).Scan(
		&account.ID, &account.Key, &account.Role, &account.Credits,
		&account.Pricing.SellerCreationCost, &account.Pricing.UserCreationCost,
		&account.PlanExpiry, &createdBy, &account.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if createdBy.Valid {
		account.CreatedBy = createdBy.String
	}
	return &account, nil
}

func (r *AccountWriteRepository) Update(account *models.Account) error {
	query := `
		UPDATE accounts
		SET key = $2, role = $3, credits = $4,
			seller_creation_cost = $5, user_creation_cost = $6, plan_expiry = $7
		WHERE id = $1
	`
	result, err := r.db.Exec(query,
		account.ID, account.Key, account.Role, account.Credits,
		account.Pricing.SellerCreationCost, account.Pricing.UserCreationCost,
		account.PlanExpiry,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to update account: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the record outright. Accounts referencing it via created_by
// keep their dangling reference; there is no cascade.
func (r *AccountWriteRepository) Delete(id string) (*models.AccountSummary, error) {
	query := `DELETE FROM accounts WHERE id = $1 RETURNING id, key, role, credits`
	var summary models.AccountSummary
	err := r.db.QueryRow(query, id).Scan(&summary.ID, &summary.Key, &summary.Role, &summary.Credits)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete account: %w", err)
	}
	return &summary, nil
}

// EnsureAdmin seeds a root admin account if no account holds the key yet.
// Used at startup so a fresh deployment has a way into the protected API.
func (r *AccountWriteRepository) EnsureAdmin(id, key string, planExpiry time.Time) error {
	query := `
		INSERT INTO accounts (id, key, role, plan_expiry, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (key) DO NOTHING
	`
	if _, err := r.db.Exec(query, id, key, models.RoleAdmin, planExpiry); err != nil {
		return fmt.Errorf("failed to seed admin account: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == "23505"
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
