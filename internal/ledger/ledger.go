package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/onurcolak/sms-dispatch-service/internal/domain"
	"github.com/onurcolak/sms-dispatch-service/internal/metrics"
	"github.com/onurcolak/sms-dispatch-service/pkg/logger"
)

const DefaultMaxRetries = 5

// Store is the authoritative balance storage. CompareAndSwap writes next and
// appends entries atomically, but only if the stored version still equals
// expectedVersion; it reports false when it does not.
type Store interface {
	GetBalance(ctx context.Context, accountID int64) (*domain.AccountBalance, error)
	CompareAndSwap(
		ctx context.Context,
		expectedVersion int64,
		next domain.AccountBalance,
		entries []domain.LedgerEntry,
	) (bool, error)
}

// txAware is implemented by stores that can tell whether ctx carries an
// open transaction.
type txAware interface {
	InTransaction(ctx context.Context) bool
}

// Projection is an optional read-through cache of balances. It is never
// consulted by mutations.
type Projection interface {
	GetBalance(ctx context.Context, accountID int64) (*domain.AccountBalance, error)
	SetBalance(ctx context.Context, balance domain.AccountBalance) error
	InvalidateBalance(ctx context.Context, accountID int64) error
}

type Ledger struct {
	store      Store
	projection Projection
	maxRetries int
	backoff    time.Duration
}

func New(store Store, projection Projection, maxRetries int) *Ledger {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Ledger{
		store:      store,
		projection: projection,
		maxRetries: maxRetries,
		backoff:    5 * time.Millisecond,
	}
}

// Balance reads the authoritative balance.
func (l *Ledger) Balance(ctx context.Context, accountID int64) (*domain.AccountBalance, error) {
	return l.store.GetBalance(ctx, accountID)
}

// CachedBalance serves the balance from the projection when present and
// fills it from the store otherwise.
func (l *Ledger) CachedBalance(ctx context.Context, accountID int64) (*domain.AccountBalance, error) {
	if l.projection != nil {
		cached, err := l.projection.GetBalance(ctx, accountID)
		if err != nil {
			logger.Warnf("Balance projection read failed for account %d: %v", accountID, err)
		} else if cached != nil {
			return cached, nil
		}
	}

	balance, err := l.store.GetBalance(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if l.projection != nil {
		if err := l.projection.SetBalance(ctx, *balance); err != nil {
			logger.Warnf("Balance projection write failed for account %d: %v", accountID, err)
		}
	}

	return balance, nil
}

// Credit adds purchased credits to the account.
func (l *Ledger) Credit(ctx context.Context, accountID, amount int64, reason string) (*domain.AccountBalance, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	correlationID := uuid.NewString()

	return l.mutate(ctx, accountID, func(b domain.AccountBalance) (domain.AccountBalance, []domain.LedgerEntry, error) {
		b.Credits += amount
		return b, []domain.LedgerEntry{entry(accountID, correlationID, domain.LedgerCredit, amount, reason)}, nil
	})
}

// Debit removes credits immediately. It is rejected if it would eat into
// credits held by unsettled batches or drive the balance negative.
func (l *Ledger) Debit(ctx context.Context, accountID, amount int64, correlationID, reason string) (*domain.AccountBalance, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("debit amount must be positive, got %d", amount)
	}

	return l.mutate(ctx, accountID, func(b domain.AccountBalance) (domain.AccountBalance, []domain.LedgerEntry, error) {
		if !b.IsSufficient(amount) {
			return b, nil, domain.InsufficientCredits(b.Available(), amount)
		}
		b.Credits -= amount
		return b, []domain.LedgerEntry{entry(accountID, correlationID, domain.LedgerDebit, amount, reason)}, nil
	})
}

// Reserve holds amount for a batch. Two concurrent reservations can never
// both succeed against credits only one of them could afford.
func (l *Ledger) Reserve(ctx context.Context, accountID, amount int64, correlationID string) (*domain.AccountBalance, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("reserve amount must be positive, got %d", amount)
	}

	return l.mutate(ctx, accountID, func(b domain.AccountBalance) (domain.AccountBalance, []domain.LedgerEntry, error) {
		if !b.IsSufficient(amount) {
			return b, nil, domain.InsufficientCredits(b.Available(), amount)
		}
		b.Reserved += amount
		return b, []domain.LedgerEntry{entry(accountID, correlationID, domain.LedgerReserve, amount, "batch reservation")}, nil
	})
}

// Release drops a hold without charging anything.
func (l *Ledger) Release(ctx context.Context, accountID, amount int64, correlationID, reason string) (*domain.AccountBalance, error) {
	return l.Settle(ctx, accountID, amount, 0, correlationID, reason)
}

// Settle converts a batch hold into its final charge in one atomic step:
// credits drop by charged and the whole hold is released.
func (l *Ledger) Settle(
	ctx context.Context,
	accountID, held, charged int64,
	correlationID, reason string,
) (*domain.AccountBalance, error) {
	if held < 0 || charged < 0 {
		return nil, fmt.Errorf("settle amounts must not be negative (held %d, charged %d)", held, charged)
	}
	if charged > held {
		return nil, fmt.Errorf("cannot charge %d against a hold of %d", charged, held)
	}
	if held == 0 {
		return l.store.GetBalance(ctx, accountID)
	}

	return l.mutate(ctx, accountID, func(b domain.AccountBalance) (domain.AccountBalance, []domain.LedgerEntry, error) {
		if b.Reserved < held {
			return b, nil, fmt.Errorf("account %d holds %d, cannot release %d", accountID, b.Reserved, held)
		}
		if b.Credits < charged {
			return b, nil, domain.InsufficientCredits(b.Credits, charged)
		}

		b.Reserved -= held
		b.Credits -= charged

		var entries []domain.LedgerEntry
		if charged > 0 {
			entries = append(entries, entry(accountID, correlationID, domain.LedgerDebit, charged, reason))
		}
		if released := held - charged; released > 0 {
			entries = append(entries, entry(accountID, correlationID, domain.LedgerRelease, released, reason))
		}
		return b, entries, nil
	})
}

type mutation func(current domain.AccountBalance) (domain.AccountBalance, []domain.LedgerEntry, error)

func (l *Ledger) mutate(ctx context.Context, accountID int64, apply mutation) (*domain.AccountBalance, error) {
	for attempt := 0; attempt < l.maxRetries; attempt++ {
		current, err := l.store.GetBalance(ctx, accountID)
		if err != nil {
			return nil, err
		}

		next, entries, err := apply(*current)
		if err != nil {
			return nil, err
		}
		if next.Credits < 0 || next.Reserved < 0 || next.Reserved > next.Credits {
			return nil, fmt.Errorf("%w: account %d would end with credits %d, reserved %d",
				domain.ErrInsufficientCredits, accountID, next.Credits, next.Reserved)
		}

		next.Version = current.Version + 1
		for i := range entries {
			entries[i].CreditsAfter = next.Credits
			entries[i].ReservedAfter = next.Reserved
		}

		ok, err := l.store.CompareAndSwap(ctx, current.Version, next, entries)
		if err != nil {
			return nil, err
		}
		if ok {
			// Inside a caller's transaction the caller invalidates after commit.
			if tx, aware := l.store.(txAware); !aware || !tx.InTransaction(ctx) {
				l.Invalidate(ctx, accountID)
			}
			return &next, nil
		}

		metrics.LedgerConflicts.Inc()
		logger.Debugf("Balance version conflict for account %d (attempt %d/%d)", accountID, attempt+1, l.maxRetries)

		if err := sleep(ctx, time.Duration(attempt+1)*l.backoff); err != nil {
			return nil, err
		}
	}

	return nil, domain.NewDispatchError(
		domain.CodeLedgerContention,
		fmt.Sprintf("balance of account %d changed %d times in a row", accountID, l.maxRetries),
		domain.ErrLedgerContention,
	)
}

// Invalidate drops the cached balance of accountID. Failures are logged only.
func (l *Ledger) Invalidate(ctx context.Context, accountID int64) {
	if l.projection == nil {
		return
	}
	if err := l.projection.InvalidateBalance(ctx, accountID); err != nil {
		logger.Warnf("Failed to invalidate balance projection for account %d: %v", accountID, err)
	}
}

func entry(accountID int64, correlationID string, kind domain.LedgerEntryKind, amount int64, reason string) domain.LedgerEntry {
	return domain.LedgerEntry{
		AccountID:     accountID,
		CorrelationID: correlationID,
		Kind:          kind,
		Amount:        amount,
		Reason:        reason,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsInsufficient reports whether err is a rejected balance operation.
func IsInsufficient(err error) bool {
	return errors.Is(err, domain.ErrInsufficientCredits)
}
