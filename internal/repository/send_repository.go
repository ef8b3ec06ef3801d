package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edupulse/campus-messaging/internal/domain"
)

// SendRepository owns scheduled sends and their per-recipient outcome rows.
type SendRepository struct {
	db *sqlx.DB
}

func NewSendRepository(db *sqlx.DB) *SendRepository {
	return &SendRepository{db: db}
}

const sendColumns = `id, rule_id, body, scheduled_at, status, attempt_count,
	last_error, version, created_at, updated_at`

// Create inserts the send and its recipient snapshot in one transaction.
func (r *SendRepository) Create(ctx context.Context, send *domain.ScheduledSend) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	sendQuery := `
		INSERT INTO scheduled_sends
			(id, rule_id, body, scheduled_at, status, attempt_count, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, 'pending', 0, 1, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`

	if _, err := tx.ExecContext(ctx, sendQuery, send.ID, send.RuleID, send.Body, send.ScheduledAt); err != nil {
		return fmt.Errorf("failed to create scheduled send: %w", err)
	}

	recipientQuery := `
		INSERT INTO scheduled_send_recipients (id, send_id, recipient_id, name, phone, outcome)
		VALUES (?, ?, ?, ?, ?, 'pending')
	`

	for _, rec := range send.Recipients {
		if _, err := tx.ExecContext(ctx, recipientQuery, rec.ID, send.ID, rec.RecipientID, rec.Name, rec.Phone); err != nil {
			return fmt.Errorf("failed to create send recipient: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scheduled send: %w", err)
	}

	return nil
}

// GetDue returns pending sends whose scheduled time has passed, oldest
// commitment first (scheduled_at, then creation order).
func (r *SendRepository) GetDue(ctx context.Context, now time.Time, limit int) ([]domain.ScheduledSend, error) {
	query := `
		SELECT ` + sendColumns + `
		FROM scheduled_sends
		WHERE status = 'pending' AND scheduled_at <= ?
		ORDER BY scheduled_at ASC, created_at ASC, id ASC
		LIMIT ?
	`

	var sends []domain.ScheduledSend
	if err := r.db.SelectContext(ctx, &sends, query, now, limit); err != nil {
		return nil, fmt.Errorf("failed to get due sends: %w", err)
	}

	for i := range sends {
		recipients, err := r.getRecipients(ctx, sends[i].ID)
		if err != nil {
			return nil, err
		}
		sends[i].Recipients = recipients
	}

	return sends, nil
}

func (r *SendRepository) GetByID(ctx context.Context, id string) (*domain.ScheduledSend, error) {
	query := `
		SELECT ` + sendColumns + `
		FROM scheduled_sends
		WHERE id = ?
	`

	var send domain.ScheduledSend
	if err := r.db.GetContext(ctx, &send, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get scheduled send: %w", err)
	}

	recipients, err := r.getRecipients(ctx, id)
	if err != nil {
		return nil, err
	}
	send.Recipients = recipients

	return &send, nil
}

func (r *SendRepository) getRecipients(ctx context.Context, sendID string) ([]domain.SendRecipient, error) {
	query := `
		SELECT id, send_id, recipient_id, name, phone, outcome, message_id, last_error, attempted_at
		FROM scheduled_send_recipients
		WHERE send_id = ?
		ORDER BY recipient_id ASC
	`

	var recipients []domain.SendRecipient
	if err := r.db.SelectContext(ctx, &recipients, query, sendID); err != nil {
		return nil, fmt.Errorf("failed to get send recipients: %w", err)
	}

	return recipients, nil
}

func (r *SendRepository) List(
	ctx context.Context,
	status *domain.SendStatus,
	page, pageSize int,
) ([]domain.ScheduledSend, int64, error) {
	offset := (page - 1) * pageSize
	var totalCount int64
	var sends []domain.ScheduledSend

	if status != nil {
		countQuery := "SELECT COUNT(*) FROM scheduled_sends WHERE status = ?"
		if err := r.db.GetContext(ctx, &totalCount, countQuery, *status); err != nil {
			return nil, 0, fmt.Errorf("failed to count sends: %w", err)
		}

		query := `
			SELECT ` + sendColumns + `
			FROM scheduled_sends
			WHERE status = ?
			ORDER BY created_at DESC
			LIMIT ? OFFSET ?
		`
		if err := r.db.SelectContext(ctx, &sends, query, *status, pageSize, offset); err != nil {
			return nil, 0, fmt.Errorf("failed to list sends: %w", err)
		}
	} else {
		countQuery := "SELECT COUNT(*) FROM scheduled_sends"
		if err := r.db.GetContext(ctx, &totalCount, countQuery); err != nil {
			return nil, 0, fmt.Errorf("failed to count sends: %w", err)
		}

		query := `
			SELECT ` + sendColumns + `
			FROM scheduled_sends
			ORDER BY created_at DESC
			LIMIT ? OFFSET ?
		`
		if err := r.db.SelectContext(ctx, &sends, query, pageSize, offset); err != nil {
			return nil, 0, fmt.Errorf("failed to list sends: %w", err)
		}
	}

	return sends, totalCount, nil
}

// ClaimRecipient atomically moves one recipient from pending to sending.
// A false return means the recipient was already attempted or skipped by a
// cancellation, and no send attempt must be made.
func (r *SendRepository) ClaimRecipient(ctx context.Context, recipientRowID string) (bool, error) {
	query := `
		UPDATE scheduled_send_recipients
		SET outcome = 'sending', attempted_at = ?
		WHERE id = ? AND outcome = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, time.Now(), recipientRowID)
	if err != nil {
		return false, fmt.Errorf("failed to claim send recipient: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows > 0, nil
}

func (r *SendRepository) FinishRecipient(
	ctx context.Context,
	recipientRowID string,
	delivered bool,
	messageID, lastError *string,
) error {
	outcome := domain.OutcomeDelivered
	if !delivered {
		outcome = domain.OutcomeFailed
	}

	query := `
		UPDATE scheduled_send_recipients
		SET outcome = ?, message_id = ?, last_error = ?
		WHERE id = ? AND outcome = 'sending'
	`

	result, err := r.db.ExecContext(ctx, query, outcome, messageID, lastError, recipientRowID)
	if err != nil {
		return fmt.Errorf("failed to finish send recipient: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("send recipient %s was not in sending state", recipientRowID)
	}

	return nil
}

// UpdateStatus is the optimistic aggregate transition: it only applies when
// the stored version matches, bumping version and attempt count together.
func (r *SendRepository) UpdateStatus(
	ctx context.Context,
	id string,
	version int64,
	status domain.SendStatus,
	attemptCount int,
	lastError *string,
) error {
	query := `
		UPDATE scheduled_sends
		SET status = ?, attempt_count = ?, last_error = ?,
		    version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?
	`

	result, err := r.db.ExecContext(ctx, query, status, attemptCount, lastError, id, version)
	if err != nil {
		return fmt.Errorf("failed to update send status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return domain.ErrVersionConflict
	}

	return nil
}

// Cancel moves a pending send to cancelled and skips every recipient not yet
// claimed. Recipients already in flight keep whatever outcome they reach.
func (r *SendRepository) Cancel(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE scheduled_sends
		SET status = 'cancelled', version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'pending'
	`, id)
	if err != nil {
		return fmt.Errorf("failed to cancel send: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("only pending sends can be cancelled")
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE scheduled_send_recipients
		SET outcome = 'skipped'
		WHERE send_id = ? AND outcome = 'pending'
	`, id); err != nil {
		return fmt.Errorf("failed to skip pending recipients: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cancellation: %w", err)
	}

	return nil
}

// Retry moves a failed send (and its failed recipients) back to pending.
// Both the dispatcher's automatic requeue and the operator endpoint use this
// transition; the attempt bound is enforced by the service.
func (r *SendRepository) Retry(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE scheduled_sends
		SET status = 'pending', last_error = NULL,
		    version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'failed'
	`, id)
	if err != nil {
		return fmt.Errorf("failed to retry send: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("no failed send found with id %s", id)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE scheduled_send_recipients
		SET outcome = 'pending', last_error = NULL
		WHERE send_id = ? AND outcome = 'failed'
	`, id); err != nil {
		return fmt.Errorf("failed to reset failed recipients: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit retry: %w", err)
	}

	return nil
}

// GetStats returns scheduled send counts grouped by status.
func (r *SendRepository) GetStats(ctx context.Context) (map[domain.SendStatus]int64, error) {
	query := `
		SELECT status, COUNT(*) AS cnt
		FROM scheduled_sends
		GROUP BY status
	`

	var rows []struct {
		Status domain.SendStatus `db:"status"`
		Count  int64             `db:"cnt"`
	}

	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to get send stats: %w", err)
	}

	stats := make(map[domain.SendStatus]int64, len(rows))
	for _, row := range rows {
		stats[row.Status] = row.Count
	}

	return stats, nil
}
