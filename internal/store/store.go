package store

import (
	"context"
	"strings"

	"github.com/lyftr-ai/inbox/internal/models"
)

// InsertOutcome reports what InsertIfAbsent did.
type InsertOutcome int

const (
	// OutcomeCreated means a new row was written.
	OutcomeCreated InsertOutcome = iota
	// OutcomeDuplicate means a row with the same message_id already existed
	// and the call was a no-op.
	OutcomeDuplicate
)

func (o InsertOutcome) String() string {
	if o == OutcomeCreated {
		return "created"
	}
	return "duplicate"
}

// ListFilter holds the optional message listing filters. Empty fields are
// ignored; set fields are combined with AND.
type ListFilter struct {
	From  string // exact sender match
	Since string // inclusive lower bound on ts
	Query string // case-insensitive substring match on text
}

// SenderCount is one entry of the per-sender message counts.
type SenderCount struct {
	From  string `json:"from"`
	Count int64  `json:"count"`
}

// Stats holds aggregate statistics over the whole store. The timestamp
// fields are nil when the store is empty.
type Stats struct {
	TotalMessages     int64         `json:"total_messages"`
	SendersCount      int64         `json:"senders_count"`
	MessagesPerSender []SenderCount `json:"messages_per_sender"`
	FirstMessageTS    *string       `json:"first_message_ts"`
	LastMessageTS     *string       `json:"last_message_ts"`
}

// MessageStore defines the interface for durable message storage.
// Both SQLiteStore and PostgresStore implement this interface.
type MessageStore interface {
	// InsertIfAbsent atomically creates a row keyed by message_id. If the key
	// already exists the call is a no-op and reports OutcomeDuplicate.
	// Concurrent calls with the same message_id yield exactly one
	// OutcomeCreated; uniqueness is enforced by the database, not by a
	// read-then-write.
	InsertIfAbsent(ctx context.Context, msg models.Message) (InsertOutcome, error)

	// List returns one page of messages matching filter, ordered by
	// (ts, message_id) ascending, plus the total match count independent of
	// limit/offset.
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]models.Message, int, error)

	// Stats computes aggregate statistics over all stored messages.
	Stats(ctx context.Context) (Stats, error)

	// Ping checks that the store is reachable and its schema is applied.
	Ping(ctx context.Context) error

	Close()
}

// New opens the store selected by the connection string: a PostgreSQL URL
// for Postgres, anything else is treated as a SQLite file path.
func New(ctx context.Context, databaseURL string) (MessageStore, error) {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return NewPostgresStore(ctx, databaseURL)
	}
	return NewSQLiteStore(ctx, databaseURL)
}
