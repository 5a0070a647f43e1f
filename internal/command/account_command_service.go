package command

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/keydesk/keydesk/internal/cqrs"
	"github.com/keydesk/keydesk/internal/events"
	"github.com/keydesk/keydesk/internal/models"
	"github.com/keydesk/keydesk/internal/repository"
	"github.com/keydesk/keydesk/internal/utils"
)

// AccountCommandService writes account state to PostgreSQL and keeps the
// Redis read model up to date.
type AccountCommandService struct {
	writeRepo *repository.AccountWriteRepository
	readRepo  *repository.AccountReadRepository
	publisher *events.Publisher
}

func NewAccountCommandService(
	writeRepo *repository.AccountWriteRepository,
	readRepo *repository.AccountReadRepository,
	publisher *events.Publisher,
) *AccountCommandService {
	return &AccountCommandService{
		writeRepo: writeRepo,
		readRepo:  readRepo,
		publisher: publisher,
	}
}

// CreateAccount mints a new account. When a creator is named, the creation
// cost for the new role is debited from the creator's credits in the same
// transaction as the insert, so a failed creation never strands a debit.
func (s *AccountCommandService) CreateAccount(cmd cqrs.CreateAccountCommand) (*models.AccountView, error) {
	account := &models.Account{
		ID:         utils.GenerateID("acc"),
		Key:        cmd.Key,
		Role:       cmd.Role,
		Credits:    cmd.Credits,
		Pricing:    cmd.Pricing,
		PlanExpiry: cmd.PlanExpiry,
		CreatedBy:  cmd.CreatedBy,
		CreatedAt:  time.Now().UTC(),
	}

	var cost int64
	var err error
	if cmd.CreatedBy != "" {
		cost, err = s.writeRepo.CreateWithCreator(account, cmd.CreatedBy)
	} else {
		err = s.writeRepo.Create(account)
	}
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	view, err := s.readRepo.GetByID(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load created account: %w", err)
	}
	view.DeriveStatus(time.Now())

	if err := s.publisher.Publish(ctx, events.AccountEventsStream, events.AccountCreated, events.AccountCreatedEvent{
		AccountID: account.ID,
		Key:       account.Key,
		Role:      account.Role,
		CreatedBy: account.CreatedBy,
	}); err != nil {
		log.Printf("Failed to publish account.created event: %v", err)
	}
	if cost > 0 {
		// The creator's cached view now holds a stale balance.
		s.readRepo.InvalidateAccountView(ctx, cmd.CreatedBy)
		if err := s.publisher.Publish(ctx, events.AccountEventsStream, events.CreditsDebited, events.CreditsDebitedEvent{
			CreatorID:        cmd.CreatedBy,
			Amount:           cost,
			CreatedAccountID: account.ID,
			CreatedRole:      account.Role,
		}); err != nil {
			log.Printf("Failed to publish credits.debited event: %v", err)
		}
	}
	return view, nil
}

// UpdateAccount merges the provided patch fields into the stored record.
func (s *AccountCommandService) UpdateAccount(cmd cqrs.UpdateAccountCommand) (*models.AccountView, error) {
	account, err := s.writeRepo.GetByID(cmd.AccountID)
	if err != nil {
		return nil, err
	}
	if cmd.Key != nil {
		account.Key = *cmd.Key
	}
	if cmd.PlanExpiry != nil {
		account.PlanExpiry = *cmd.PlanExpiry
	}
	if cmd.Role != nil {
		account.Role = *cmd.Role
	}
	if cmd.Credits != nil {
		account.Credits = *cmd.Credits
	}
	if cmd.Pricing != nil {
		account.Pricing = *cmd.Pricing
	}
	if err := s.writeRepo.Update(account); err != nil {
		return nil, err
	}

	ctx := context.Background()
	s.readRepo.InvalidateAccountView(ctx, account.ID)
	view, err := s.readRepo.GetByID(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load updated account: %w", err)
	}
	view.DeriveStatus(time.Now())

	if err := s.publisher.Publish(ctx, events.AccountEventsStream, events.AccountUpdated, events.AccountUpdatedEvent{
		AccountID: account.ID,
		Key:       account.Key,
		Role:      account.Role,
	}); err != nil {
		log.Printf("Failed to publish account.updated event: %v", err)
	}
	return view, nil
}

// DeleteAccount removes the record and returns a summary of what was
// deleted. Subordinate accounts keep their dangling created_by reference.
func (s *AccountCommandService) DeleteAccount(cmd cqrs.DeleteAccountCommand) (*models.AccountSummary, error) {
	account, err := s.writeRepo.GetByID(cmd.AccountID)
	if err != nil {
		return nil, err
	}
	summary, err := s.writeRepo.Delete(cmd.AccountID)
	if err != nil {
		return nil, err
	}
	s.readRepo.InvalidateAccountView(context.Background(), cmd.AccountID)
	if err := s.publisher.Publish(context.Background(), events.AccountEventsStream, events.AccountDeleted, events.AccountDeletedEvent{
		AccountID: account.ID,
		Key:       account.Key,
		CreatedBy: account.CreatedBy,
	}); err != nil {
		log.Printf("Failed to publish account.deleted event: %v", err)
	}
	return summary, nil
}

// HandleAccountEvent is the Redis stream subscriber handler. It maintains
// the advisory per-creator counter exposed on privileged logins.
func (s *AccountCommandService) HandleAccountEvent(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.AccountCreated:
		dataBytes, _ := json.Marshal(event.Data)
		var data events.AccountCreatedEvent
		if err := json.Unmarshal(dataBytes, &data); err != nil {
			return fmt.Errorf("failed to unmarshal account.created event: %w", err)
		}
		if data.CreatedBy != "" {
			log.Printf("Account %s created by %s", data.AccountID, data.CreatedBy)
			s.readRepo.IncrCreatedCount(ctx, data.CreatedBy)
		}
	case events.AccountDeleted:
		dataBytes, _ := json.Marshal(event.Data)
		var data events.AccountDeletedEvent
		if err := json.Unmarshal(dataBytes, &data); err != nil {
			return fmt.Errorf("failed to unmarshal account.deleted event: %w", err)
		}
		if data.CreatedBy != "" {
			log.Printf("Account %s deleted, created by %s", data.AccountID, data.CreatedBy)
			s.readRepo.DecrCreatedCount(ctx, data.CreatedBy)
		}
	}
	return nil
}
