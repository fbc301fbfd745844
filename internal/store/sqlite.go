package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/chatrelay/internal/domain"
	_ "modernc.org/sqlite"
)

// MaxListLimit caps the number of rows ListRecent returns.
const MaxListLimit = 500

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS relays (
		id TEXT PRIMARY KEY,
		message_id TEXT NOT NULL,
		phone TEXT NOT NULL,
		client_id TEXT,
		status TEXT NOT NULL,
		run_status TEXT,
		reply TEXT,
		delivered INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_relays_created ON relays(created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// RecordRelay inserts rec. A zero CreatedAt is set to now.
func (s *SQLiteStore) RecordRelay(ctx context.Context, rec *domain.RelayRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
	INSERT INTO relays (id, message_id, phone, client_id, status, run_status, reply, delivered, error, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	err := withBusyRetry(ctx, "record relay", func() error {
		_, err := s.db.ExecContext(ctx, query,
			rec.ID, rec.MessageID, rec.Phone,
			nullable(rec.ClientID.String()), string(rec.Status), nullable(rec.RunStatus),
			nullable(rec.Reply), rec.Delivered, nullable(rec.Error),
			rec.CreatedAt.UnixMilli(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert relay %s: %w", rec.ID, err)
	}
	return nil
}

// ListRecent returns up to limit records, newest first. Limit is clamped
// to [1, MaxListLimit].
func (s *SQLiteStore) ListRecent(ctx context.Context, limit int) ([]*domain.RelayRecord, error) {
	if limit <= 0 {
		limit = 1
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := `
		SELECT id, message_id, phone, client_id, status, run_status,
		       reply, delivered, error, created_at
		FROM relays ORDER BY created_at DESC, rowid DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query relays: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close relay rows", "error", closeErr)
		}
	}()

	records := make([]*domain.RelayRecord, 0, limit)
	for rows.Next() {
		var rec domain.RelayRecord
		var clientID, runStatus, reply, errText sql.NullString
		var status string
		var createdAt int64

		if err := rows.Scan(
			&rec.ID, &rec.MessageID, &rec.Phone, &clientID, &status, &runStatus,
			&reply, &rec.Delivered, &errText, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan relay row: %w", err)
		}

		rec.ClientID = domain.ClientID(clientID.String)
		rec.Status = domain.Status(status)
		rec.RunStatus = runStatus.String
		rec.Reply = reply.String
		rec.Error = errText.String
		rec.CreatedAt = time.UnixMilli(createdAt).UTC()
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate relays: %w", err)
	}

	return records, nil
}

// DeleteOlderThan removes records created before cutoff.
func (s *SQLiteStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := withBusyRetry(ctx, "delete relays", func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM relays WHERE created_at < ?`, cutoff.UnixMilli())
		if err != nil {
			return err
		}
		deleted, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("delete relays before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return deleted, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
