package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/onurcolak/sms-dispatch-service/internal/domain"
)

var errVersionConflict = errors.New("balance version conflict")

// BalanceRepository is the authoritative account balance store.
type BalanceRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewBalanceRepository(db *sqlx.DB) *BalanceRepository {
	return &BalanceRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// GetBalance reads the balance row. Inside a transaction the row is locked so
// that a following CompareAndSwap in the same transaction sees the latest
// version.
func (r *BalanceRepository) GetBalance(ctx context.Context, accountID int64) (*domain.AccountBalance, error) {
	query := `
		SELECT account_id, credits, reserved, version, updated_at
		FROM account_balances
		WHERE account_id = ?
	`
	if inTransaction(ctx) {
		query += " FOR UPDATE"
	}

	var balance domain.AccountBalance
	if err := conn(ctx, r.db).GetContext(ctx, &balance, query, accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}

	return &balance, nil
}

// InTransaction reports whether ctx carries a transaction this repository
// would join.
func (r *BalanceRepository) InTransaction(ctx context.Context) bool {
	return inTransaction(ctx)
}

func (r *BalanceRepository) CompareAndSwap(
	ctx context.Context,
	expectedVersion int64,
	next domain.AccountBalance,
	entries []domain.LedgerEntry,
) (bool, error) {
	err := WithTransaction(ctx, r.db, func(ctx context.Context) error {
		q := conn(ctx, r.db)
		now := r.now()

		result, err := q.ExecContext(ctx, `
			UPDATE account_balances
			SET credits = ?, reserved = ?, version = ?, updated_at = ?
			WHERE account_id = ? AND version = ?
		`, next.Credits, next.Reserved, next.Version, now, next.AccountID, expectedVersion)
		if err != nil {
			return fmt.Errorf("failed to update balance: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if rows == 0 {
			return errVersionConflict
		}

		for _, e := range entries {
			_, err := q.ExecContext(ctx, `
				INSERT INTO ledger_entries (account_id, correlation_id, kind, amount, credits_after, reserved_after, reason, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, e.AccountID, e.CorrelationID, e.Kind, e.Amount, e.CreditsAfter, e.ReservedAfter, e.Reason, now)
			if err != nil {
				return fmt.Errorf("failed to append ledger entry: %w", err)
			}
		}

		return nil
	})

	if errors.Is(err, errVersionConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

// EnsureAccount creates an empty balance row if the account has none.
func (r *BalanceRepository) EnsureAccount(ctx context.Context, accountID int64) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT IGNORE INTO account_balances (account_id, credits, reserved, version, updated_at)
		VALUES (?, 0, 0, 0, ?)
	`, accountID, r.now())
	if err != nil {
		return fmt.Errorf("failed to ensure account: %w", err)
	}

	return nil
}

func (r *BalanceRepository) ListEntries(ctx context.Context, accountID int64, limit int) ([]domain.LedgerEntry, error) {
	query := `
		SELECT id, account_id, correlation_id, kind, amount, credits_after, reserved_after, reason, created_at
		FROM ledger_entries
		WHERE account_id = ?
		ORDER BY id DESC
		LIMIT ?
	`

	var entries []domain.LedgerEntry
	if err := conn(ctx, r.db).SelectContext(ctx, &entries, query, accountID, limit); err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}

	return entries, nil
}
