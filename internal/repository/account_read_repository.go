package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/keydesk/keydesk/internal/cqrs"
	"github.com/keydesk/keydesk/internal/models"
	sharedredis "github.com/keydesk/keydesk/internal/redis"
	goredis "github.com/redis/go-redis/v9"
)

const accountViewKeyPrefix = "account:view:"

// accountCacheEntry is the internal Redis representation of an account. It
// holds only stored fields — plan status is derived against the clock at
// read time, so caching it would serve stale expiry data.
type accountCacheEntry struct {
	ID            string    `json:"id"`
	Key           string    `json:"key"`
	Role          string    `json:"role"`
	Credits       int64     `json:"credits"`
	SellerCost    int64     `json:"sellerCreationCost"`
	UserCost      int64     `json:"userCreationCost"`
	PlanExpiry    time.Time `json:"planExpiry"`
	CreatedByKey  string    `json:"createdByKey,omitempty"`
	CreatedByRole string    `json:"createdByRole,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// AccountReadRepository handles all read operations for accounts. Single
// lookups treat Redis as the primary read store and fall back to PostgreSQL
// transparently, warming the cache on every cold read. List queries and
// credential lookups always hit PostgreSQL.
type AccountReadRepository struct {
	db    *sql.DB
	redis *goredis.Client
	cache *sharedredis.ViewCache[accountCacheEntry]
}

func NewAccountReadRepository(db *sql.DB, redisClient *goredis.Client) *AccountReadRepository {
	return &AccountReadRepository{
		db:    db,
		redis: redisClient,
		cache: sharedredis.NewViewCache[accountCacheEntry](redisClient, 0),
	}
}

func cacheEntryToView(e *accountCacheEntry) *models.AccountView {
	view := &models.AccountView{
		ID:      e.ID,
		Key:     e.Key,
		Role:    e.Role,
		Credits: e.Credits,
		Pricing: models.Pricing{
			SellerCreationCost: e.SellerCost,
			UserCreationCost:   e.UserCost,
		},
		PlanExpiry: e.PlanExpiry,
		CreatedAt:  e.CreatedAt,
	}
	if e.CreatedByKey != "" {
		view.CreatedBy = &models.CreatorRef{Key: e.CreatedByKey, Role: e.CreatedByRole}
	}
	return view
}

const selectViewColumns = `
	SELECT a.id, a.key, a.role, a.credits, a.seller_creation_cost, a.user_creation_cost,
		   a.plan_expiry, a.created_at, c.key, c.role
	FROM accounts a
	LEFT JOIN accounts c ON c.id = a.created_by
`

func (r *AccountReadRepository) scanView(row *sql.Row) (*models.AccountView, error) {
	var view models.AccountView
	var creatorKey, creatorRole sql.NullString

	err := row.Scan(
		&view.ID, &view.Key, &view.Role, &view.Credits,
		&view.Pricing.SellerCreationCost, &view.Pricing.UserCreationCost,
		&view.PlanExpiry, &view.CreatedAt, &creatorKey, &creatorRole,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if creatorKey.Valid {
		view.CreatedBy = &models.CreatorRef{Key: creatorKey.String, Role: creatorRole.String}
	}
	return &view, nil
}

// GetByID returns an AccountView, trying Redis first then PostgreSQL.
// The creator reference is resolved to key+role; a dangling created_by
// resolves to nil, same as no creator at all.
func (r *AccountReadRepository) GetByID(ctx context.Context, id string) (*models.AccountView, error) {
	cacheKey := accountViewKeyPrefix + id

	if entry, ok := r.cache.Get(ctx, cacheKey); ok {
		return cacheEntryToView(entry), nil
	}

	view, err := r.scanView(r.db.QueryRow(selectViewColumns+` WHERE a.id = $1`, id))
	if err != nil {
		return nil, err
	}

	// Warm the cache
	r.CacheAccountView(ctx, view)
	return view, nil
}

// GetByKey looks an account up by its license key. Credential checks always
// go to PostgreSQL; the cache is never consulted for logins.
func (r *AccountReadRepository) GetByKey(ctx context.Context, key string) (*models.AccountView, error) {
	return r.scanView(r.db.QueryRow(selectViewColumns+` WHERE a.key = $1`, key))
}

// List returns one page of accounts plus the unfiltered-page total. Search
// matches the key case-insensitively, Role and CreatedBy filter exactly,
// and results come back newest-first.
func (r *AccountReadRepository) List(ctx context.Context, q cqrs.ListAccountsQuery) ([]models.AccountView, int, error) {
	where := ""
	args := []any{}
	addCondition := func(cond string, value any) {
		args = append(args, value)
		if where == "" {
			where = " WHERE "
		} else {
			where += " AND "
		}
		where += fmt.Sprintf(cond, len(args))
	}
	if q.Search != "" {
		addCondition("a.key ILIKE '%%' || $%d || '%%'", q.Search)
	}
	if q.Role != "" {
		addCondition("a.role = $%d", q.Role)
	}
	if q.CreatedBy != "" {
		addCondition("a.created_by = $%d", q.CreatedBy)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM accounts a` + where
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count accounts: %w", err)
	}

	offset := (q.Page - 1) * q.Limit
	pageArgs := append(args, q.Limit, offset)
	listQuery := fmt.Sprintf(
		selectViewColumns+`%s ORDER BY a.created_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2,
	)

	rows, err := r.db.Query(listQuery, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var views []models.AccountView
	for rows.Next() {
		var view models.AccountView
		var creatorKey, creatorRole sql.NullString
		if err := rows.Scan(
			&view.ID, &view.Key, &view.Role, &view.Credits,
			&view.Pricing.SellerCreationCost, &view.Pricing.UserCreationCost,
			&view.PlanExpiry, &view.CreatedAt, &creatorKey, &creatorRole,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan account: %w", err)
		}
		if creatorKey.Valid {
			view.CreatedBy = &models.CreatorRef{Key: creatorKey.String, Role: creatorRole.String}
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list accounts: %w", err)
	}
	return views, total, nil
}

// CacheAccountView stores or refreshes the Redis read model for an account.
// Called by the command service after every mutation.
func (r *AccountReadRepository) CacheAccountView(ctx context.Context, view *models.AccountView) {
	entry := &accountCacheEntry{
		ID:         view.ID,
		Key:        view.Key,
		Role:       view.Role,
		Credits:    view.Credits,
		SellerCost: view.Pricing.SellerCreationCost,
		UserCost:   view.Pricing.UserCreationCost,
		PlanExpiry: view.PlanExpiry,
		CreatedAt:  view.CreatedAt,
	}
	if view.CreatedBy != nil {
		entry.CreatedByKey = view.CreatedBy.Key
		entry.CreatedByRole = view.CreatedBy.Role
	}
	r.cache.Set(ctx, accountViewKeyPrefix+view.ID, entry)
}

// InvalidateAccountView removes the Redis read model entry for a deleted account.
func (r *AccountReadRepository) InvalidateAccountView(ctx context.Context, accountID string) {
	r.cache.Delete(ctx, accountViewKeyPrefix+accountID)
}

const creatorCountKeyPrefix = "creator:count:"

// IncrCreatedCount bumps the advisory counter of accounts minted by a creator.
func (r *AccountReadRepository) IncrCreatedCount(ctx context.Context, creatorID string) {
	if err := r.redis.Incr(ctx, creatorCountKeyPrefix+creatorID).Err(); err != nil {
		log.Printf("Failed to increment created count for %s: %v", creatorID, err)
	}
}

// DecrCreatedCount lowers the counter when a subordinate account is deleted.
func (r *AccountReadRepository) DecrCreatedCount(ctx context.Context, creatorID string) {
	if err := r.redis.Decr(ctx, creatorCountKeyPrefix+creatorID).Err(); err != nil {
		log.Printf("Failed to decrement created count for %s: %v", creatorID, err)
	}
}

// CreatedCount reads the counter; a cold cache reads as zero.
func (r *AccountReadRepository) CreatedCount(ctx context.Context, creatorID string) int64 {
	val, err := r.redis.Get(ctx, creatorCountKeyPrefix+creatorID).Result()
	if err != nil {
		return 0
	}
	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}
	return count
}
