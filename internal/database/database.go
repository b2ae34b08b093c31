package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	apperrors "courierbridge/internal/errors"
	"courierbridge/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

// Delivery journal schema. A single append-mostly table: one row per
// recipient per fan-out, written after the recipient's attempt
// sequence finishes. The journal is an audit record for operators;
// correlation state never depends on it.
const schema = `
CREATE TABLE IF NOT EXISTS delivery_receipts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_msg_id TEXT NOT NULL,
	group_id TEXT NOT NULL,
	recipient TEXT NOT NULL,
	mode TEXT NOT NULL,
	attempts INTEGER NOT NULL,
	status TEXT NOT NULL,
	last_error TEXT,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_receipts_order ON delivery_receipts(order_msg_id);
CREATE INDEX IF NOT EXISTS idx_receipts_created ON delivery_receipts(created_at);
`

// Receipt statuses
const (
	ReceiptStatusSent   = "sent"
	ReceiptStatusFailed = "failed"
)

// DeliveryReceipt is one journal row.
type DeliveryReceipt struct {
	OrderMessageID string
	GroupID        string
	Recipient      string
	Mode           models.DeliveryMode
	Attempts       int
	Status         string
	LastError      string
	CreatedAt      time.Time
}

type Database struct {
	db        *sql.DB
	encryptor *encryptor
}

func New(dbPath string) (*Database, error) {
	if len(dbPath) == 0 || dbPath[0] == '\x00' {
		return nil, fmt.Errorf("invalid database path")
	}

	file, err := os.OpenFile(dbPath, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create journal file: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close journal file: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping journal: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping journal: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	enc, err := NewEncryptor()
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize encryptor: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
	}

	return &Database{db: db, encryptor: enc}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// SaveReceipt appends a delivery receipt. The recipient column is
// encrypted at rest when encryption is enabled.
func (d *Database) SaveReceipt(ctx context.Context, r *DeliveryReceipt) error {
	recipient, err := d.encryptor.EncryptIfEnabled(r.Recipient)
	if err != nil {
		return fmt.Errorf("failed to encrypt recipient: %w", err)
	}

	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO delivery_receipts (
			order_msg_id, group_id, recipient, mode, attempts, status, last_error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = d.db.ExecContext(ctx, query,
		r.OrderMessageID,
		r.GroupID,
		recipient,
		string(r.Mode),
		r.Attempts,
		r.Status,
		r.LastError,
		createdAt,
	)
	if err != nil {
		return apperrors.NewJournalError("save_receipt", err)
	}
	return nil
}

// GetReceiptsByOrder returns all receipts recorded for a dispatch
// message, oldest first.
func (d *Database) GetReceiptsByOrder(ctx context.Context, orderMsgID string) ([]*DeliveryReceipt, error) {
	query := `
		SELECT order_msg_id, group_id, recipient, mode, attempts, status, last_error, created_at
		FROM delivery_receipts
		WHERE order_msg_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := d.db.QueryContext(ctx, query, orderMsgID)
	if err != nil {
		return nil, apperrors.NewJournalError("query_receipts", err)
	}
	defer rows.Close()

	var receipts []*DeliveryReceipt
	for rows.Next() {
		var r DeliveryReceipt
		var mode string
		var lastError sql.NullString
		if err := rows.Scan(&r.OrderMessageID, &r.GroupID, &r.Recipient, &mode, &r.Attempts, &r.Status, &lastError, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		r.Mode = models.DeliveryMode(mode)
		r.LastError = lastError.String

		recipient, err := d.encryptor.DecryptIfEnabled(r.Recipient)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt recipient: %w", err)
		}
		r.Recipient = recipient

		receipts = append(receipts, &r)
	}
	return receipts, rows.Err()
}

// CleanupOldReceipts deletes receipts older than the retention window
// and reports how many rows were removed.
func (d *Database) CleanupOldReceipts(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("retention days must be positive")
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	res, err := d.db.ExecContext(ctx, `DELETE FROM delivery_receipts WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, apperrors.NewJournalError("cleanup_receipts", err)
	}
	return res.RowsAffected()
}
