package query

import (
	"context"
	"time"

	"github.com/keydesk/keydesk/internal/cqrs"
	"github.com/keydesk/keydesk/internal/models"
	"github.com/keydesk/keydesk/internal/repository"
)

// AccountQueryService reads account views and stamps the derived plan-status
// fields against the current clock.
type AccountQueryService struct {
	readRepo *repository.AccountReadRepository
}

func NewAccountQueryService(readRepo *repository.AccountReadRepository) *AccountQueryService {
	return &AccountQueryService{readRepo: readRepo}
}

func (s *AccountQueryService) ListAccounts(q cqrs.ListAccountsQuery) ([]models.AccountView, int, error) {
	views, total, err := s.readRepo.List(context.Background(), q)
	if err != nil {
		return nil, 0, err
	}
	now := time.Now()
	for i := range views {
		views[i].DeriveStatus(now)
	}
	return views, total, nil
}

func (s *AccountQueryService) GetAccount(q cqrs.GetAccountQuery) (*models.AccountView, error) {
	view, err := s.readRepo.GetByID(context.Background(), q.AccountID)
	if err != nil {
		return nil, err
	}
	view.DeriveStatus(time.Now())
	return view, nil
}
