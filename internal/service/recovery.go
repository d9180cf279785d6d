package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/onurcolak/sms-dispatch-service/internal/domain"
	"github.com/onurcolak/sms-dispatch-service/internal/metrics"
	"github.com/onurcolak/sms-dispatch-service/pkg/logger"
)

const (
	DefaultStaleAfter  = 10 * time.Minute
	DefaultMaxAttempts = 3
)

// RecoveryCriteria selects the messages RecoverStuck looks at. Zero values
// fall back to the configured defaults.
type RecoveryCriteria struct {
	// Status is processing (stuck in flight) or queued (never picked up).
	Status      domain.MessageStatus
	OlderThan   time.Duration
	MaxAttempts int
	MessageIDs  []int64
	Limit       int
}

type RecoveryReport struct {
	Examined int      `json:"examined"`
	Requeued int      `json:"requeued"`
	Expired  int      `json:"expired"`
	Sent     int      `json:"sent"`
	Failed   int      `json:"failed"`
	Batches  []string `json:"batches,omitempty"`
}

func (s *DispatchService) withDefaults(c RecoveryCriteria) (RecoveryCriteria, error) {
	if c.Status == "" {
		c.Status = domain.StatusProcessing
	}
	if c.Status != domain.StatusProcessing && c.Status != domain.StatusQueued {
		return c, fmt.Errorf("recovery only applies to processing or queued messages, got %q", c.Status)
	}
	if c.OlderThan <= 0 {
		c.OlderThan = s.recovery.StaleAfter
	}
	if c.OlderThan <= 0 {
		c.OlderThan = DefaultStaleAfter
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = s.recovery.MaxAttempts
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.Limit <= 0 {
		c.Limit = s.dispatch.ClaimLimit
	}
	return c, nil
}

// RecoverStuck is the single recovery operation behind the periodic sweep
// and the operator's reset/retry actions. Each selected message with retry
// budget left is put back to queued and dispatched again; the others are
// failed for manual follow up. All updates are guarded by status and attempt
// number, so concurrent recoveries and in-flight sends never double-dispatch.
func (s *DispatchService) RecoverStuck(ctx context.Context, criteria RecoveryCriteria) (*RecoveryReport, error) {
	c, err := s.withDefaults(criteria)
	if err != nil {
		return nil, domain.InvalidSubmission("%v", err)
	}

	olderThan := s.now().Add(-c.OlderThan)

	stale, err := s.messages.FindStale(ctx, c.Status, olderThan, c.MessageIDs, c.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find stale messages: %w", err)
	}

	report := &RecoveryReport{Examined: len(stale)}
	if len(stale) == 0 {
		return report, nil
	}

	var redispatch []domain.Message
	for _, msg := range stale {
		attempts := msg.Attempts

		if attempts >= c.MaxAttempts {
			expired := budgetExhausted(attempts)
			reason := expired.Error()
			updated, err := s.messages.TransitionStatus(ctx, domain.Transition{
				ID:           msg.ID,
				From:         c.Status,
				To:           domain.StatusFailed,
				Attempts:     &attempts,
				ErrorMessage: &reason,
			})
			if err != nil {
				logger.Errorf("Failed to expire message %d: %v", msg.ID, err)
				continue
			}
			if updated {
				report.Expired++
				metrics.RecoveryTotal.WithLabelValues("expired").Inc()
				logger.Warnf("Expired message %d: %v", msg.ID, expired)
			}
			continue
		}

		if c.Status == domain.StatusProcessing {
			updated, err := s.messages.TransitionStatus(ctx, domain.Transition{
				ID:       msg.ID,
				From:     domain.StatusProcessing,
				To:       domain.StatusQueued,
				Attempts: &attempts,
			})
			if err != nil {
				logger.Errorf("Failed to requeue message %d: %v", msg.ID, err)
				continue
			}
			if !updated {
				continue
			}
			msg.Status = domain.StatusQueued
			report.Requeued++
			metrics.RecoveryTotal.WithLabelValues("requeued").Inc()
		}

		redispatch = append(redispatch, msg)
	}

	for _, r := range s.dispatchAll(ctx, redispatch) {
		switch {
		case r.Success():
			report.Sent++
		case r.Status == domain.StatusFailed:
			report.Failed++
		}
	}

	report.Batches = batchIDs(stale)
	if _, err := s.settleBatches(ctx, report.Batches); err != nil {
		logger.Errorf("Failed to settle recovered batches: %v", err)
	}

	logger.Infof("Recovery of %s messages: examined %d, requeued %d, expired %d, sent %d, failed %d",
		c.Status, report.Examined, report.Requeued, report.Expired, report.Sent, report.Failed)

	return report, nil
}

// budgetExhausted is the failure recorded on a stuck message with no retry
// budget left.
func budgetExhausted(attempts int) *domain.DispatchError {
	return domain.NewDispatchError(
		domain.CodeStaleProcessing,
		fmt.Sprintf("manual retry required after %d attempts", attempts),
		domain.ErrStaleProcessing,
	)
}

// PromoteDue moves scheduled messages whose time has come to queued and
// dispatches them.
func (s *DispatchService) PromoteDue(ctx context.Context) (promoted, sent, failed int, err error) {
	due, err := s.messages.DueScheduled(ctx, s.now(), s.dispatch.ClaimLimit)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to get due messages: %w", err)
	}

	queued := make([]domain.Message, 0, len(due))
	for _, msg := range due {
		updated, err := s.messages.TransitionStatus(ctx, domain.Transition{
			ID:   msg.ID,
			From: domain.StatusScheduled,
			To:   domain.StatusQueued,
		})
		if err != nil {
			logger.Errorf("Failed to promote message %d: %v", msg.ID, err)
			continue
		}
		if !updated {
			continue
		}
		msg.Status = domain.StatusQueued
		queued = append(queued, msg)
	}

	for _, r := range s.dispatchAll(ctx, queued) {
		switch {
		case r.Success():
			sent++
		case r.Status == domain.StatusFailed:
			failed++
		}
	}

	if _, err := s.settleBatches(ctx, batchIDs(queued)); err != nil {
		logger.Errorf("Failed to settle promoted batches: %v", err)
	}

	return len(queued), sent, failed, nil
}

// SettlePending settles every finished batch that has not been charged yet,
// e.g. after a crash between the last send and settlement.
func (s *DispatchService) SettlePending(ctx context.Context) (int, error) {
	ids, err := s.messages.SettleableBatches(ctx, s.dispatch.ClaimLimit)
	if err != nil {
		return 0, err
	}
	return s.settleBatches(ctx, ids)
}

// Sweep is one scheduler pass: promote due messages, recover stuck and
// orphaned ones, then settle whatever finished.
func (s *DispatchService) Sweep(ctx context.Context) (*domain.SweepReport, error) {
	report := &domain.SweepReport{}
	var errs []error

	promoted, sent, failed, err := s.PromoteDue(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	report.Promoted = promoted
	report.Sent += sent
	report.Failed += failed

	for _, status := range []domain.MessageStatus{domain.StatusProcessing, domain.StatusQueued} {
		rec, err := s.RecoverStuck(ctx, RecoveryCriteria{Status: status})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		report.Requeued += rec.Requeued
		report.Expired += rec.Expired
		report.Sent += rec.Sent
		report.Failed += rec.Failed
	}

	settled, err := s.SettlePending(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	report.Settled = settled

	return report, errors.Join(errs...)
}
