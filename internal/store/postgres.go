package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lyftr-ai/inbox/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	store := &PostgresStore{pool: pool}

	if err := store.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return store, nil
}

// initSchema creates the messages table and indexes if they don't exist.
func (s *PostgresStore) initSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
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
	`)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the connection and that the messages table exists.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return err
	}
	var one int
	return s.pool.QueryRow(ctx, `
		SELECT 1 FROM pg_tables WHERE schemaname = current_schema() AND tablename = 'messages'
	`).Scan(&one)
}

// InsertIfAbsent inserts a message, relying on the primary key constraint
// for idempotency.
func (s *PostgresStore) InsertIfAbsent(ctx context.Context, msg models.Message) (InsertOutcome, error) {
	createdAt := time.Now().UTC().Format(time.RFC3339Nano)

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO messages (message_id, from_msisdn, to_msisdn, ts, text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (message_id) DO NOTHING
	`, msg.MessageID, msg.From, msg.To, msg.TS, msg.Text, createdAt)
	if err != nil {
		return OutcomeDuplicate, err
	}

	if tag.RowsAffected() == 0 {
		return OutcomeDuplicate, nil
	}
	return OutcomeCreated, nil
}

// List retrieves messages with pagination and filtering.
func (s *PostgresStore) List(ctx context.Context, filter ListFilter, limit, offset int) ([]models.Message, int, error) {
	where := "TRUE"
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.From != "" {
		where += " AND from_msisdn = " + arg(filter.From)
	}
	if filter.Since != "" {
		where += " AND ts >= " + arg(filter.Since)
	}
	if filter.Query != "" {
		where += " AND text ILIKE '%' || " + arg(filter.Query) + " || '%'"
	}

	var total int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages WHERE `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT message_id, from_msisdn, to_msisdn, ts, text
		FROM messages
		WHERE `+where+`
		ORDER BY ts ASC, message_id ASC
		LIMIT `+arg(limit)+` OFFSET `+arg(offset), args...)
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
func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{MessagesPerSender: []SenderCount{}}

	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages`).Scan(&stats.TotalMessages)
	if err != nil {
		return stats, err
	}

	err = s.pool.QueryRow(ctx, `SELECT COUNT(DISTINCT from_msisdn) FROM messages`).Scan(&stats.SendersCount)
	if err != nil {
		return stats, err
	}

	rows, err := s.pool.Query(ctx, `
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

	err = s.pool.QueryRow(ctx, `SELECT MIN(ts), MAX(ts) FROM messages`).Scan(&stats.FirstMessageTS, &stats.LastMessageTS)
	if err != nil {
		return stats, err
	}

	return stats, nil
}
