package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vibast-solutions/ms-go-website/app/entity"
)

// EmailHistorySchema creates the table backing EmailHistoryRepository.
const EmailHistorySchema = `
	CREATE TABLE IF NOT EXISTS email_history (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		message_id VARCHAR(255) NOT NULL,
		recipient VARCHAR(512) NOT NULL,
		sender VARCHAR(255) NOT NULL,
		subject VARCHAR(255) NOT NULL,
		status VARCHAR(16) NOT NULL,
		transport VARCHAR(64) NOT NULL DEFAULT '',
		error TEXT,
		attempts INT NOT NULL DEFAULT 0,
		created_at DATETIME(3) NOT NULL,
		KEY idx_email_history_created_at (created_at)
	)
`

type EmailHistoryRepository struct {
	db *sql.DB
}

// NewEmailHistoryRepository constructs a repository backed by MySQL.
func NewEmailHistoryRepository(db *sql.DB) *EmailHistoryRepository {
	return &EmailHistoryRepository{db: db}
}

// Migrate creates the email_history table when missing.
func (r *EmailHistoryRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, EmailHistorySchema); err != nil {
		return fmt.Errorf("migrate email_history: %w", err)
	}
	return nil
}

// Save inserts a delivery record.
func (r *EmailHistoryRepository) Save(ctx context.Context, record entity.EmailRecord) error {
	const query = `
		INSERT INTO email_history (message_id, recipient, sender, subject, status, transport, error, attempts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		record.MessageID,
		record.Recipient,
		record.Sender,
		record.Subject,
		record.Status,
		record.Transport,
		record.Error,
		record.Attempts,
		record.CreatedAt,
	)
	return err
}

// ListRecent returns the newest records first.
func (r *EmailHistoryRepository) ListRecent(ctx context.Context, limit int) ([]entity.EmailRecord, error) {
	if limit <= 0 {
		limit = DefaultRecordCapacity
	}

	const query = `
		SELECT message_id, recipient, sender, subject, status, transport, COALESCE(error, ''), attempts, created_at
		FROM email_history
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []entity.EmailRecord
	for rows.Next() {
		var rec entity.EmailRecord
		if err := rows.Scan(
			&rec.MessageID,
			&rec.Recipient,
			&rec.Sender,
			&rec.Subject,
			&rec.Status,
			&rec.Transport,
			&rec.Error,
			&rec.Attempts,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
