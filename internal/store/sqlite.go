package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lyftr-ai/inbox/internal/models"
)

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/inbox.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/inbox.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates the messages table and indexes if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		message_id TEXT PRIMARY KEY,
		from_msisdn TEXT NOT NULL,
		to_msisdn TEXT NOT NULL,
		ts TEXT NOT NULL,
		text TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_from ON messages(from_msisdn);
	CREATE INDEX IF NOT EXISTS idx_messages_ts ON messages(ts);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the connection and that the messages table exists.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return err
	}
	var name string
	return s.db.QueryRowContext(ctx, `
		SELECT name FROM sqlite_master WHERE type='table' AND name='messages'
	`).Scan(&name)
}

// InsertIfAbsent inserts a message, relying on the primary key constraint
// for idempotency. A conflicting message_id leaves the existing row
// untouched and reports OutcomeDuplicate.
func (s *SQLiteStore) InsertIfAbsent(ctx context.Context, msg models.Message) (InsertOutcome, error) {
	createdAt := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (message_id, from_msisdn, to_msisdn, ts, text, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO NOTHING
	`, msg.MessageID, msg.From, msg.To, msg.TS, msg.Text, createdAt)
	if err != nil {
		return OutcomeDuplicate, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return OutcomeDuplicate, err
	}
	if n == 0 {
		return OutcomeDuplicate, nil
	}
	return OutcomeCreated, nil
}

// List retrieves messages with pagination and filtering.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter, limit, offset int) ([]models.Message, int, error) {
	where := "1=1"
	var args []any

	if filter.From != "" {
		where += " AND from_msisdn = ?"
		args = append(args, filter.From)
	}
	if filter.Since != "" {
		where += " AND ts >= ?"
		args = append(args, filter.Since)
	}
	if filter.Query != "" {
		where += " AND lower(text) LIKE '%' || lower(?) || '%'"
		args = append(args, filter.Query)
	}

	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT message_id, from_msisdn, to_msisdn, ts, text
		FROM messages
		WHERE `+where+`
		ORDER BY ts ASC, message_id ASC
		LIMIT ? OFFSET ?
	`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	messages := make([]models.Message, 0, limit)
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.MessageID, &msg.From, &msg.To, &msg.TS, &msg.Text); err != nil {
			return nil, 0, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

// Stats computes aggregate statistics across all messages.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{MessagesPerSender: []SenderCount{}}

	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&stats.TotalMessages)
	if err != nil {
		return stats, err
	}

	err = s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT from_msisdn) FROM messages`).Scan(&stats.SendersCount)
	if err != nil {
		return stats, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT from_msisdn, COUNT(*) AS count
		FROM messages
		GROUP BY from_msisdn
		ORDER BY count DESC, from_msisdn ASC
		LIMIT 10
	`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var sc SenderCount
		if err := rows.Scan(&sc.From, &sc.Count); err != nil {
			return stats, err
		}
		stats.MessagesPerSender = append(stats.MessagesPerSender, sc)
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	err = s.db.QueryRowContext(ctx, `SELECT MIN(ts), MAX(ts) FROM messages`).Scan(&stats.FirstMessageTS, &stats.LastMessageTS)
	if err != nil {
		return stats, err
	}

	return stats, nil
}
