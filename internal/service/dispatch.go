package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/onurcolak/sms-dispatch-service/internal/domain"
	"github.com/onurcolak/sms-dispatch-service/internal/metrics"
	"github.com/onurcolak/sms-dispatch-service/pkg/logger"
)

const genericSendFailure = "gateway rejected the message without a reason"

// dispatchAll sends messages in parallel, at most dispatch.Concurrency at a
// time. Results come back in input order.
func (s *DispatchService) dispatchAll(ctx context.Context, messages []domain.Message) []domain.SendResult {
	results := make([]domain.SendResult, len(messages))

	g := new(errgroup.Group)
	g.SetLimit(s.dispatch.Concurrency)

	for i := range messages {
		g.Go(func() error {
			results[i] = s.dispatchMessage(ctx, messages[i])
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// dispatchMessage drives one queued message through processing to sent or
// failed. Every step is a status-guarded update, so a message claimed by a
// concurrent trigger is skipped rather than sent twice.
func (s *DispatchService) dispatchMessage(ctx context.Context, msg domain.Message) domain.SendResult {
	result := domain.SendResult{
		MessageID: msg.ID,
		BatchID:   msg.BatchID,
		Status:    msg.Status,
	}

	attempts, ok, err := s.messages.Claim(ctx, msg.ID)
	if err != nil {
		logger.Errorf("Failed to claim message %d: %v", msg.ID, err)
		result.Error = err
		return result
	}
	if !ok {
		logger.Debugf("Message %d is no longer queued, skipping", msg.ID)
		metrics.DispatchTotal.WithLabelValues("skipped").Inc()
		result.Skipped = true
		return result
	}
	result.Status = domain.StatusProcessing

	receipt, sendErr := s.transport.Send(ctx, domain.SendRequest{
		AccountID: msg.AccountID,
		GatewayID: msg.GatewayID,
		SenderID:  msg.SenderID,
		Recipient: msg.Recipient,
		Body:      msg.Body,
	})

	if sendErr != nil {
		reason := sendErr.Error()
		if reason == "" {
			reason = genericSendFailure
		}

		updated, err := s.messages.TransitionStatus(ctx, domain.Transition{
			ID:           msg.ID,
			From:         domain.StatusProcessing,
			To:           domain.StatusFailed,
			Attempts:     &attempts,
			ErrorMessage: &reason,
		})
		if err != nil {
			logger.Errorf("Failed to mark message %d as failed: %v", msg.ID, err)
			result.Error = err
			return result
		}
		if !updated {
			return s.superseded(result, attempts)
		}

		logger.Warnf("Failed to send message %d (attempt %d): %s", msg.ID, attempts, reason)
		metrics.DispatchTotal.WithLabelValues("failed").Inc()
		result.Status = domain.StatusFailed
		result.Error = domain.NewDispatchError(domain.CodeTransportFailure, reason, domain.ErrTransportFailure)
		return result
	}

	sentAt := s.now()
	updated, err := s.messages.TransitionStatus(ctx, domain.Transition{
		ID:              msg.ID,
		From:            domain.StatusProcessing,
		To:              domain.StatusSent,
		Attempts:        &attempts,
		RemoteMessageID: &receipt.RemoteMessageID,
		SentAt:          &sentAt,
	})
	if err != nil {
		logger.Errorf("Failed to mark message %d as sent: %v", msg.ID, err)
		result.Error = err
		return result
	}
	if !updated {
		return s.superseded(result, attempts)
	}

	metrics.DispatchTotal.WithLabelValues("sent").Inc()
	result.Status = domain.StatusSent

	if s.cache != nil {
		msg.Status = domain.StatusSent
		msg.SentAt = &sentAt
		msg.RemoteMessageID = &receipt.RemoteMessageID
		if err := s.cache.CacheSentMessage(ctx, msg); err != nil {
			logger.Warnf("Failed to cache message %d to Redis: %v", msg.ID, err)
		}
	}

	logger.Infof("Successfully sent message %d (remoteMessageId: %s)", msg.ID, receipt.RemoteMessageID)

	return result
}

// superseded handles a finishing update that matched no row: recovery moved
// the message on while this attempt was in flight.
func (s *DispatchService) superseded(result domain.SendResult, attempts int) domain.SendResult {
	logger.Warnf("Attempt %d of message %d was superseded, outcome discarded", attempts, result.MessageID)
	metrics.DispatchTotal.WithLabelValues("superseded").Inc()
	result.Skipped = true
	result.Error = domain.ErrStatusConflict
	return result
}

// settleBatch charges a finished batch once. It returns the charged amount,
// or nil while the batch still has unfinished messages or was settled
// before.
func (s *DispatchService) settleBatch(ctx context.Context, batchID string) (*int64, error) {
	var (
		charged   *int64
		accountID int64
	)

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		batch, err := s.messages.GetBatch(ctx, batchID)
		if err != nil {
			return err
		}
		if batch == nil {
			return fmt.Errorf("batch %s not found", batchID)
		}
		if batch.Settled() {
			return nil
		}

		progress, err := s.messages.BatchProgress(ctx, batchID)
		if err != nil {
			return err
		}
		if progress.Pending > 0 {
			return nil
		}

		amount := int64(batch.Segments) * int64(progress.Sent)

		won, err := s.messages.MarkBatchSettled(ctx, batchID, amount)
		if err != nil {
			return err
		}
		if !won {
			return nil
		}

		if _, err := s.ledger.Settle(ctx, batch.AccountID, batch.ReservedCredits, amount, batch.ID, "batch settled"); err != nil {
			return fmt.Errorf("failed to settle credits for batch %s: %w", batchID, err)
		}

		charged = &amount
		accountID = batch.AccountID
		return nil
	})
	if err != nil {
		return nil, err
	}

	if charged != nil {
		s.ledger.Invalidate(ctx, accountID)
		metrics.CreditsCharged.Add(float64(*charged))
		logger.Infof("Settled batch %s: charged %d credits", batchID, *charged)
	}

	return charged, nil
}

// settleBatches tries to settle every batch in ids and returns how many
// settled now.
func (s *DispatchService) settleBatches(ctx context.Context, ids []string) (int, error) {
	var (
		settled int
		errs    []error
	)

	for _, id := range ids {
		charged, err := s.settleBatch(ctx, id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if charged != nil {
			settled++
		}
	}

	return settled, errors.Join(errs...)
}

func batchIDs(messages []domain.Message) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, m := range messages {
		if _, ok := seen[m.BatchID]; ok {
			continue
		}
		seen[m.BatchID] = struct{}{}
		ids = append(ids, m.BatchID)
	}
	return ids
}
