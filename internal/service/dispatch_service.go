package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/onurcolak/sms-dispatch-service/environments"
	"github.com/onurcolak/sms-dispatch-service/internal/domain"
	"github.com/onurcolak/sms-dispatch-service/internal/metrics"
	"github.com/onurcolak/sms-dispatch-service/internal/sms"
	"github.com/onurcolak/sms-dispatch-service/pkg/logger"
)

// Small internal interfaces so we can test without touching real DB/Redis/gateways.
type messageRepository interface {
	CreateBatch(ctx context.Context, batch *domain.Batch, messages []domain.Message) ([]int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Message, error)
	Claim(ctx context.Context, id int64) (attempts int, ok bool, err error)
	TransitionStatus(ctx context.Context, t domain.Transition) (bool, error)
	Cancel(ctx context.Context, accountID, id int64) (bool, error)
	Delete(ctx context.Context, accountID, id int64) (bool, error)

	DueScheduled(ctx context.Context, now time.Time, limit int) ([]domain.Message, error)
	FindStale(ctx context.Context, status domain.MessageStatus, olderThan time.Time, ids []int64, limit int) ([]domain.Message, error)

	List(ctx context.Context, filter domain.MessageFilter, page, pageSize int) ([]domain.Message, int64, error)
	GetStats(ctx context.Context, accountID int64) (*domain.MessageStats, error)
	ExportRows(ctx context.Context, filter domain.MessageFilter) ([]domain.ExportRow, error)

	GetBatch(ctx context.Context, id string) (*domain.Batch, error)
	BatchProgress(ctx context.Context, batchID string) (*domain.BatchProgress, error)
	MarkBatchSettled(ctx context.Context, id string, charged int64) (bool, error)
	SettleableBatches(ctx context.Context, limit int) ([]string, error)
}

type balanceLedger interface {
	Reserve(ctx context.Context, accountID, amount int64, correlationID string) (*domain.AccountBalance, error)
	Settle(ctx context.Context, accountID, held, charged int64, correlationID, reason string) (*domain.AccountBalance, error)
	Credit(ctx context.Context, accountID, amount int64, reason string) (*domain.AccountBalance, error)
	CachedBalance(ctx context.Context, accountID int64) (*domain.AccountBalance, error)
	Invalidate(ctx context.Context, accountID int64)
}

type accountStore interface {
	EnsureAccount(ctx context.Context, accountID int64) error
	ListEntries(ctx context.Context, accountID int64, limit int) ([]domain.LedgerEntry, error)
}

type gatewayLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.Gateway, error)
}

type transport interface {
	Send(ctx context.Context, req domain.SendRequest) (*domain.SendReceipt, error)
}

type receiptCache interface {
	CacheSentMessage(ctx context.Context, msg domain.Message) error
	GetAllCachedMessages(ctx context.Context, accountID int64) (map[int64]*domain.SentMessageCache, error)
}

type transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Deps struct {
	Messages  messageRepository
	Ledger    balanceLedger
	Accounts  accountStore
	Gateways  gatewayLookup
	Transport transport
	Cache     receiptCache // optional
	Tx        transactor
}

// DispatchService owns the message lifecycle: submission, dispatch,
// settlement, cancellation and recovery.
type DispatchService struct {
	messages  messageRepository
	ledger    balanceLedger
	accounts  accountStore
	gateways  gatewayLookup
	transport transport
	cache     receiptCache
	tx        transactor

	dispatch environments.DispatchConfig
	recovery environments.RecoveryConfig
	now      func() time.Time
}

func NewDispatchService(
	deps Deps,
	dispatch environments.DispatchConfig,
	recovery environments.RecoveryConfig,
) *DispatchService {
	if dispatch.MaxPages <= 0 {
		dispatch.MaxPages = sms.DefaultMaxPages
	}
	if dispatch.Concurrency <= 0 {
		dispatch.Concurrency = 1
	}
	if dispatch.ClaimLimit <= 0 {
		dispatch.ClaimLimit = 500
	}

	return &DispatchService{
		messages:  deps.Messages,
		ledger:    deps.Ledger,
		accounts:  deps.Accounts,
		gateways:  deps.Gateways,
		transport: deps.Transport,
		cache:     deps.Cache,
		tx:        deps.Tx,
		dispatch:  dispatch,
		recovery:  recovery,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type SubmitRequest struct {
	AccountID    int64
	Recipients   []string
	Body         string
	SenderID     string
	GatewayID    int64
	ScheduledFor *time.Time
}

var recipientValidator = validator.New()

// normalizeRecipients trims, drops blanks and removes duplicates while
// keeping the submitted order.
func normalizeRecipients(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))

	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}

	return out
}

func invalidRecipients(recipients []string) []string {
	var invalid []string
	for _, r := range recipients {
		if err := recipientValidator.Var(r, "e164"); err != nil {
			invalid = append(invalid, r)
		}
	}
	return invalid
}

// Analyze measures a draft body the way Submit will.
func (s *DispatchService) Analyze(body string) sms.Analysis {
	return sms.Analyze(body, s.dispatch.MaxPages)
}

// Submit validates a draft, holds its full cost on the account and creates
// one message per recipient. Immediate batches are dispatched before Submit
// returns. Nothing is created when validation or the credit check fails.
func (s *DispatchService) Submit(ctx context.Context, req SubmitRequest) (*domain.BatchResult, error) {
	result, err := s.submit(ctx, req)

	switch {
	case err == nil:
		metrics.SubmissionsTotal.WithLabelValues("accepted").Inc()
	case errors.Is(err, domain.ErrInvalidSubmission):
		metrics.SubmissionsTotal.WithLabelValues("invalid").Inc()
	case errors.Is(err, domain.ErrInsufficientCredits):
		metrics.SubmissionsTotal.WithLabelValues("insufficient_credits").Inc()
	default:
		metrics.SubmissionsTotal.WithLabelValues("error").Inc()
	}

	return result, err
}

func (s *DispatchService) submit(ctx context.Context, req SubmitRequest) (*domain.BatchResult, error) {
	if strings.TrimSpace(req.Body) == "" {
		return nil, domain.InvalidSubmission("message body is empty")
	}
	if strings.TrimSpace(req.SenderID) == "" {
		return nil, domain.InvalidSubmission("sender id is empty")
	}

	recipients := normalizeRecipients(req.Recipients)
	if len(recipients) == 0 {
		return nil, domain.InvalidSubmission("no recipients")
	}
	if bad := invalidRecipients(recipients); len(bad) > 0 {
		return nil, domain.InvalidSubmission("invalid recipient numbers: %s", strings.Join(bad, ", "))
	}

	analysis := s.Analyze(req.Body)
	if analysis.ExceedsMax {
		return nil, domain.InvalidSubmission("message needs %d segments, limit is %d", analysis.Segments, analysis.MaxPages)
	}

	cost := sms.Cost(analysis.Segments, len(recipients))
	if cost == 0 {
		return nil, domain.InvalidSubmission("submission has no billable content")
	}

	gw, err := s.gateways.GetByID(ctx, req.GatewayID)
	if err != nil {
		return nil, fmt.Errorf("failed to load gateway: %w", err)
	}
	if gw == nil || !gw.Active {
		return nil, domain.InvalidSubmission("gateway %d is not available", req.GatewayID)
	}

	now := s.now()
	status := domain.StatusQueued
	var scheduledFor *time.Time
	if req.ScheduledFor != nil && req.ScheduledFor.After(now) {
		status = domain.StatusScheduled
		at := req.ScheduledFor.UTC()
		scheduledFor = &at
	}

	batch := &domain.Batch{
		ID:              uuid.NewString(),
		AccountID:       req.AccountID,
		Segments:        analysis.Segments,
		RecipientCount:  len(recipients),
		ReservedCredits: cost,
	}

	messages := make([]domain.Message, len(recipients))
	for i, r := range recipients {
		messages[i] = domain.Message{
			AccountID:    req.AccountID,
			Recipient:    r,
			Body:         req.Body,
			GatewayID:    req.GatewayID,
			SenderID:     req.SenderID,
			Encoding:     analysis.Encoding,
			Segments:     analysis.Segments,
			Status:       status,
			ScheduledFor: scheduledFor,
		}
	}

	var ids []int64
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.ledger.Reserve(ctx, req.AccountID, cost, batch.ID); err != nil {
			return err
		}

		var err error
		ids, err = s.messages.CreateBatch(ctx, batch, messages)
		return err
	})
	if err != nil {
		// An account without a balance row has nothing to spend.
		if errors.Is(err, domain.ErrAccountNotFound) {
			err = domain.InsufficientCredits(0, cost)
		}
		if errors.Is(err, domain.ErrInsufficientCredits) {
			logger.Warnf("Rejected batch for account %d: %v", req.AccountID, err)
		}
		return nil, err
	}
	s.ledger.Invalidate(ctx, req.AccountID)

	logger.Infof("Accepted batch %s for account %d: %d recipients, %d segments, %d credits held",
		batch.ID, req.AccountID, len(recipients), analysis.Segments, cost)

	result := &domain.BatchResult{
		BatchID:    batch.ID,
		MessageIDs: ids,
		Encoding:   string(analysis.Encoding),
		Segments:   analysis.Segments,
		Cost:       cost,
		Accepted:   len(ids),
		Scheduled:  status == domain.StatusScheduled,
	}

	if result.Scheduled {
		return result, nil
	}

	// The batch outlives the request: a client disconnect must not strand
	// messages half way through dispatch.
	dispatchCtx := context.WithoutCancel(ctx)

	for _, r := range s.dispatchAll(dispatchCtx, messages) {
		switch {
		case r.Success():
			result.Sent++
		case r.Status == domain.StatusFailed:
			result.Failed++
			if r.Error != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("message %d: %v", r.MessageID, r.Error))
			}
		}
	}

	charged, err := s.settleBatch(dispatchCtx, batch.ID)
	if err != nil {
		logger.Errorf("Failed to settle batch %s: %v", batch.ID, err)
	}
	result.Charged = charged

	return result, nil
}
