package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/keydesk/keydesk/internal/cqrs"
	"github.com/keydesk/keydesk/internal/middleware"
	"github.com/keydesk/keydesk/internal/models"
	"github.com/keydesk/keydesk/internal/repository"
)

var (
	// ErrInvalidKey covers both unknown keys and empty lookups; the handler
	// never tells a caller which one it was.
	ErrInvalidKey = errors.New("invalid key")

	// ErrRoleNotAllowed rejects roles outside the dashboard allow-list.
	ErrRoleNotAllowed = errors.New("role not allowed")
)

// PlanExpiredError is returned when an otherwise valid key belongs to a
// lapsed plan. Days counts how long ago the plan ran out.
type PlanExpiredError struct {
	Days       int
	PlanExpiry time.Time
}

func (e *PlanExpiredError) Error() string {
	return fmt.Sprintf("plan expired %d days ago", e.Days)
}

// LoginResult is the session payload for a successful login.
type LoginResult struct {
	Token         string
	Account       *models.AccountView
	RemainingDays int

	// CreatedAccounts is only populated for privileged logins.
	CreatedAccounts int64
}

// AuthQueryService handles both login variants. There's no CommandService
// for auth because logging in never mutates application state.
type AuthQueryService struct {
	readRepo *repository.AccountReadRepository
}

func NewAuthQueryService(readRepo *repository.AccountReadRepository) *AuthQueryService {
	return &AuthQueryService{readRepo: readRepo}
}

// Login authenticates any account by license key. The key itself is the
// credential; what comes back is a server-signed session token.
func (s *AuthQueryService) Login(q cqrs.LoginQuery) (*LoginResult, error) {
	return s.login(q.Key, false)
}

// PrivilegedLogin additionally requires a management role (admin,
// super-seller or seller) and returns the full profile.
func (s *AuthQueryService) PrivilegedLogin(q cqrs.PrivilegedLoginQuery) (*LoginResult, error) {
	return s.login(q.Key, true)
}

func (s *AuthQueryService) login(key string, privileged bool) (*LoginResult, error) {
	ctx := context.Background()
	view, err := s.readRepo.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidKey
		}
		return nil, err
	}

	now := time.Now()
	if view.PlanExpiry.Before(now) {
		return nil, &PlanExpiredError{
			Days:       models.DaysBetween(view.PlanExpiry, now),
			PlanExpiry: view.PlanExpiry,
		}
	}

	if privileged {
		switch view.Role {
		case models.RoleAdmin, models.RoleSuperSeller, models.RoleSeller:
		default:
			return nil, ErrRoleNotAllowed
		}
	}

	token, err := middleware.SignSession(view.ID, view.Key, view.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session: %w", err)
	}

	view.DeriveStatus(now)
	result := &LoginResult{
		Token:         token,
		Account:       view,
		RemainingDays: view.RemainingDays,
	}
	if privileged {
		result.CreatedAccounts = s.readRepo.CreatedCount(ctx, view.ID)
	}
	return result, nil
}
