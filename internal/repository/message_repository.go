package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/onurcolak/sms-dispatch-service/internal/domain"
)

const messageColumns = `
	id, batch_id, account_id, recipient, body, gateway_id, sender_id, encoding, segments,
	status, attempts, scheduled_for, sent_at, error_message, remote_message_id,
	status_changed_at, created_at, updated_at`

// MessageRepository handles database operations for messages and their batches.
type MessageRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// CreateBatch stores the batch row and one message per recipient. Callers
// wanting the reservation in the same unit of work pass a transactional ctx.
func (r *MessageRepository) CreateBatch(
	ctx context.Context,
	batch *domain.Batch,
	messages []domain.Message,
) ([]int64, error) {
	ids := make([]int64, 0, len(messages))

	err := WithTransaction(ctx, r.db, func(ctx context.Context) error {
		q := conn(ctx, r.db)
		now := r.now()

		_, err := q.ExecContext(ctx, `
			INSERT INTO dispatch_batches (id, account_id, segments, recipient_count, reserved_credits, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, batch.ID, batch.AccountID, batch.Segments, batch.RecipientCount, batch.ReservedCredits, now)
		if err != nil {
			return fmt.Errorf("failed to create batch: %w", err)
		}

		for i := range messages {
			m := &messages[i]
			result, err := q.ExecContext(ctx, `
				INSERT INTO messages (
					batch_id, account_id, recipient, body, gateway_id, sender_id, encoding, segments,
					status, attempts, scheduled_for, status_changed_at, created_at, updated_at
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?)
			`, batch.ID, m.AccountID, m.Recipient, m.Body, m.GatewayID, m.SenderID, m.Encoding, m.Segments,
				m.Status, m.ScheduledFor, now, now, now)
			if err != nil {
				return fmt.Errorf("failed to create message for %s: %w", m.Recipient, err)
			}

			id, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("failed to get last insert id: %w", err)
			}

			m.ID = id
			m.BatchID = batch.ID
			m.StatusChangedAt = now
			m.CreatedAt = now
			m.UpdatedAt = now
			ids = append(ids, id)
		}

		batch.CreatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	query := `SELECT` + messageColumns + ` FROM messages WHERE id = ?`

	var message domain.Message
	if err := conn(ctx, r.db).GetContext(ctx, &message, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return &message, nil
}

// Claim moves a queued message to processing and returns the attempt number
// it now carries. ok is false when the message was no longer queued.
func (r *MessageRepository) Claim(ctx context.Context, id int64) (attempts int, ok bool, err error) {
	err = WithTransaction(ctx, r.db, func(ctx context.Context) error {
		q := conn(ctx, r.db)
		now := r.now()

		result, err := q.ExecContext(ctx, `
			UPDATE messages
			SET status = 'processing', attempts = attempts + 1, status_changed_at = ?, updated_at = ?
			WHERE id = ? AND status = 'queued'
		`, now, now, id)
		if err != nil {
			return fmt.Errorf("failed to claim message: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if rows == 0 {
			return nil
		}

		if err := q.GetContext(ctx, &attempts, `SELECT attempts FROM messages WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to read claimed attempts: %w", err)
		}

		ok = true
		return nil
	})

	return attempts, ok, err
}

// TransitionStatus applies t only if the row still has t.From. sent_at is
// written for sent and cleared for every other target status.
func (r *MessageRepository) TransitionStatus(ctx context.Context, t domain.Transition) (bool, error) {
	if !t.From.CanTransitionTo(t.To) {
		return false, fmt.Errorf("illegal transition %s -> %s", t.From, t.To)
	}

	now := r.now()

	var sentAt *time.Time
	if t.To == domain.StatusSent {
		sentAt = t.SentAt
		if sentAt == nil {
			sentAt = &now
		}
	}

	set := []string{"status = ?", "status_changed_at = ?", "updated_at = ?", "sent_at = ?", "error_message = ?"}
	args := []any{t.To, now, now, sentAt, t.ErrorMessage}

	if t.RemoteMessageID != nil {
		set = append(set, "remote_message_id = ?")
		args = append(args, *t.RemoteMessageID)
	}

	where := "id = ? AND status = ?"
	args = append(args, t.ID, t.From)
	if t.Attempts != nil {
		where += " AND attempts = ?"
		args = append(args, *t.Attempts)
	}

	query := "UPDATE messages SET " + strings.Join(set, ", ") + " WHERE " + where

	result, err := conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update message %d to %s: %w", t.ID, t.To, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows > 0, nil
}

// Cancel moves a queued or scheduled message owned by accountID to cancelled.
func (r *MessageRepository) Cancel(ctx context.Context, accountID, id int64) (bool, error) {
	now := r.now()

	result, err := conn(ctx, r.db).ExecContext(ctx, `
		UPDATE messages
		SET status = 'cancelled', status_changed_at = ?, updated_at = ?
		WHERE id = ? AND account_id = ? AND status IN ('queued', 'scheduled')
	`, now, now, id, accountID)
	if err != nil {
		return false, fmt.Errorf("failed to cancel message: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows > 0, nil
}

// Delete removes a terminal message whose batch has been settled.
func (r *MessageRepository) Delete(ctx context.Context, accountID, id int64) (bool, error) {
	result, err := conn(ctx, r.db).ExecContext(ctx, `
		DELETE m FROM messages m
		JOIN dispatch_batches b ON b.id = m.batch_id
		WHERE m.id = ? AND m.account_id = ?
		  AND m.status IN ('sent', 'failed', 'cancelled')
		  AND b.settled_at IS NOT NULL
	`, id, accountID)
	if err != nil {
		return false, fmt.Errorf("failed to delete message: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows > 0, nil
}

func (r *MessageRepository) DueScheduled(ctx context.Context, now time.Time, limit int) ([]domain.Message, error) {
	query := `SELECT` + messageColumns + `
		FROM messages
		WHERE status = 'scheduled' AND scheduled_for <= ?
		ORDER BY scheduled_for ASC
		LIMIT ?`

	var messages []domain.Message
	if err := conn(ctx, r.db).SelectContext(ctx, &messages, query, now, limit); err != nil {
		return nil, fmt.Errorf("failed to get due messages: %w", err)
	}

	return messages, nil
}

// FindStale returns messages in status whose last status change is older
// than olderThan, optionally restricted to ids.
func (r *MessageRepository) FindStale(
	ctx context.Context,
	status domain.MessageStatus,
	olderThan time.Time,
	ids []int64,
	limit int,
) ([]domain.Message, error) {
	query := `SELECT` + messageColumns + `
		FROM messages
		WHERE status = ? AND status_changed_at <= ?`
	args := []any{status, olderThan}

	if len(ids) > 0 {
		query += " AND id IN (?)"
		args = append(args, ids)
	}
	query += " ORDER BY status_changed_at ASC LIMIT ?"
	args = append(args, limit)

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to expand stale query: %w", err)
	}

	q := conn(ctx, r.db)

	var messages []domain.Message
	if err := q.SelectContext(ctx, &messages, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get stale messages: %w", err)
	}

	return messages, nil
}

func buildFilter(filter domain.MessageFilter, alias string) (string, []any) {
	clauses := []string{alias + "account_id = ?"}
	args := []any{filter.AccountID}

	if filter.Status != nil {
		clauses = append(clauses, alias+"status = ?")
		args = append(args, *filter.Status)
	}
	if filter.BatchID != "" {
		clauses = append(clauses, alias+"batch_id = ?")
		args = append(args, filter.BatchID)
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (r *MessageRepository) List(
	ctx context.Context,
	filter domain.MessageFilter,
	page, pageSize int,
) ([]domain.Message, int64, error) {
	offset := (page - 1) * pageSize
	where, args := buildFilter(filter, "")
	q := conn(ctx, r.db)

	var totalCount int64
	if err := q.GetContext(ctx, &totalCount, "SELECT COUNT(*) FROM messages"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	query := `SELECT` + messageColumns + ` FROM messages` + where + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`

	var messages []domain.Message
	if err := q.SelectContext(ctx, &messages, query, append(args, pageSize, offset)...); err != nil {
		return nil, 0, fmt.Errorf("failed to get messages: %w", err)
	}

	return messages, totalCount, nil
}

// GetStats returns message counts by status for one account.
func (r *MessageRepository) GetStats(ctx context.Context, accountID int64) (*domain.MessageStats, error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'scheduled' THEN 1 ELSE 0 END), 0)  AS scheduled,
			COALESCE(SUM(CASE WHEN status = 'queued' THEN 1 ELSE 0 END), 0)     AS queued,
			COALESCE(SUM(CASE WHEN status = 'processing' THEN 1 ELSE 0 END), 0) AS processing,
			COALESCE(SUM(CASE WHEN status = 'sent' THEN 1 ELSE 0 END), 0)       AS sent,
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0)     AS failed,
			COALESCE(SUM(CASE WHEN status = 'cancelled' THEN 1 ELSE 0 END), 0)  AS cancelled
		FROM messages
		WHERE account_id = ?
	`

	var stats domain.MessageStats
	if err := conn(ctx, r.db).GetContext(ctx, &stats, query, accountID); err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	return &stats, nil
}

func (r *MessageRepository) ExportRows(ctx context.Context, filter domain.MessageFilter) ([]domain.ExportRow, error) {
	where, args := buildFilter(filter, "m.")

	query := `
		SELECT m.body, m.recipient, m.status, COALESCE(g.name, '') AS gateway_name, m.created_at
		FROM messages m
		LEFT JOIN gateways g ON g.id = m.gateway_id` + where + `
		ORDER BY m.created_at DESC, m.id DESC`

	var rows []domain.ExportRow
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to export messages: %w", err)
	}

	return rows, nil
}

// BatchProgress counts the batch's unfinished and sent messages.
func (r *MessageRepository) BatchProgress(ctx context.Context, batchID string) (*domain.BatchProgress, error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN status IN ('scheduled', 'queued', 'processing') THEN 1 ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN status = 'sent' THEN 1 ELSE 0 END), 0) AS sent
		FROM messages
		WHERE batch_id = ?
	`

	var progress domain.BatchProgress
	if err := conn(ctx, r.db).GetContext(ctx, &progress, query, batchID); err != nil {
		return nil, fmt.Errorf("failed to get batch progress: %w", err)
	}

	return &progress, nil
}

func (r *MessageRepository) GetBatch(ctx context.Context, id string) (*domain.Batch, error) {
	query := `
		SELECT id, account_id, segments, recipient_count, reserved_credits, charged_credits, settled_at, created_at
		FROM dispatch_batches
		WHERE id = ?
	`

	var batch domain.Batch
	if err := conn(ctx, r.db).GetContext(ctx, &batch, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	return &batch, nil
}

// MarkBatchSettled records the charge once. Only the first caller sees true.
func (r *MessageRepository) MarkBatchSettled(ctx context.Context, id string, charged int64) (bool, error) {
	result, err := conn(ctx, r.db).ExecContext(ctx, `
		UPDATE dispatch_batches
		SET settled_at = ?, charged_credits = ?
		WHERE id = ? AND settled_at IS NULL
	`, r.now(), charged, id)
	if err != nil {
		return false, fmt.Errorf("failed to settle batch: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows > 0, nil
}

// SettleableBatches lists unsettled batches whose messages are all terminal.
func (r *MessageRepository) SettleableBatches(ctx context.Context, limit int) ([]string, error) {
	query := `
		SELECT b.id
		FROM dispatch_batches b
		WHERE b.settled_at IS NULL
		  AND NOT EXISTS (
			SELECT 1 FROM messages m
			WHERE m.batch_id = b.id AND m.status IN ('scheduled', 'queued', 'processing')
		  )
		ORDER BY b.created_at ASC
		LIMIT ?
	`

	var ids []string
	if err := conn(ctx, r.db).SelectContext(ctx, &ids, query, limit); err != nil {
		return nil, fmt.Errorf("failed to get settleable batches: %w", err)
	}

	return ids, nil
}
