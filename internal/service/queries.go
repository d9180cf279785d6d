package service

import (
	"context"
	"fmt"

	"github.com/onurcolak/sms-dispatch-service/internal/domain"
	"github.com/onurcolak/sms-dispatch-service/pkg/logger"
)

func notFound(id int64) error {
	return domain.NewDispatchError(domain.CodeNotFound, fmt.Sprintf("message %d", id), domain.ErrMessageNotFound)
}

// GetMessage returns a message owned by accountID.
func (s *DispatchService) GetMessage(ctx context.Context, accountID, id int64) (*domain.Message, error) {
	msg, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg == nil || msg.AccountID != accountID {
		return nil, notFound(id)
	}
	return msg, nil
}

func (s *DispatchService) ListMessages(
	ctx context.Context,
	filter domain.MessageFilter,
	page,
	pageSize int,
) ([]domain.Message, int64, error) {
	return s.messages.List(ctx, filter, page, pageSize)
}

func (s *DispatchService) GetStats(ctx context.Context, accountID int64) (*domain.MessageStats, error) {
	return s.messages.GetStats(ctx, accountID)
}

func (s *DispatchService) ExportRows(ctx context.Context, filter domain.MessageFilter) ([]domain.ExportRow, error) {
	return s.messages.ExportRows(ctx, filter)
}

func (s *DispatchService) GetCachedMessages(ctx context.Context, accountID int64) (map[int64]*domain.SentMessageCache, error) {
	if s.cache == nil {
		return nil, fmt.Errorf("redis client not configured")
	}
	return s.cache.GetAllCachedMessages(ctx, accountID)
}

func (s *DispatchService) GetBalance(ctx context.Context, accountID int64) (*domain.AccountBalance, error) {
	balance, err := s.ledger.CachedBalance(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return balance, nil
}

// TopUp adds credits to an account, opening it on first use.
func (s *DispatchService) TopUp(ctx context.Context, accountID, amount int64, reason string) (*domain.AccountBalance, error) {
	if amount <= 0 {
		return nil, domain.InvalidSubmission("top-up amount must be positive, got %d", amount)
	}
	if reason == "" {
		reason = "top-up"
	}

	var balance *domain.AccountBalance
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.accounts.EnsureAccount(ctx, accountID); err != nil {
			return err
		}
		var err error
		balance, err = s.ledger.Credit(ctx, accountID, amount, reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.ledger.Invalidate(ctx, accountID)

	logger.Infof("Credited %d to account %d (%s), available %d", amount, accountID, reason, balance.Available())

	return balance, nil
}

func (s *DispatchService) LedgerEntries(ctx context.Context, accountID int64, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.accounts.ListEntries(ctx, accountID, limit)
}

// Cancel stops a message that has not been handed to the gateway yet. A
// batch left without unfinished messages is settled right away, releasing
// the unused hold.
func (s *DispatchService) Cancel(ctx context.Context, accountID, id int64) error {
	ok, err := s.messages.Cancel(ctx, accountID, id)
	if err != nil {
		return err
	}

	if !ok {
		msg, err := s.GetMessage(ctx, accountID, id)
		if err != nil {
			return err
		}
		return domain.NewDispatchError(
			domain.CodeNotCancellable,
			fmt.Sprintf("message %d is %s", id, msg.Status),
			domain.ErrNotCancellable,
		)
	}

	logger.Infof("Cancelled message %d for account %d", id, accountID)

	msg, err := s.messages.GetByID(ctx, id)
	if err != nil || msg == nil {
		return err
	}
	if _, err := s.settleBatch(ctx, msg.BatchID); err != nil {
		logger.Errorf("Failed to settle batch %s after cancel: %v", msg.BatchID, err)
	}

	return nil
}

// Delete removes a finished message once its batch has been charged.
func (s *DispatchService) Delete(ctx context.Context, accountID, id int64) error {
	ok, err := s.messages.Delete(ctx, accountID, id)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	msg, err := s.GetMessage(ctx, accountID, id)
	if err != nil {
		return err
	}
	return domain.NewDispatchError(
		domain.CodeNotDeletable,
		fmt.Sprintf("message %d is %s or its batch is not settled", id, msg.Status),
		domain.ErrNotDeletable,
	)
}
