// Package events deduplicates inbound provider messages so webhook retries
// are handled once.
package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrMissingMessageID is returned when a provider or message id is blank.
var ErrMissingMessageID = errors.New("events: provider and message id required")

const (
	markProcessedSQL = `
		INSERT INTO processed_messages (provider, message_id, processed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (provider, message_id) DO NOTHING
		RETURNING processed_at`
	releaseSQL = `DELETE FROM processed_messages WHERE provider = $1 AND message_id = $2`
	purgeSQL   = `DELETE FROM processed_messages WHERE processed_at < $1`
)

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ProcessedStore keeps provider message ids in the processed_messages table.
// It backs webhook dedupe when Redis is not configured.
type ProcessedStore struct {
	db  rowQuerier
	now func() time.Time
}

func NewProcessedStore(pool *pgxpool.Pool) *ProcessedStore {
	if pool == nil {
		panic("events: pgx pool required")
	}
	return newProcessedStore(pool)
}

func newProcessedStore(db rowQuerier) *ProcessedStore {
	return &ProcessedStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// MarkProcessed records the id and reports whether this call was the first.
func (s *ProcessedStore) MarkProcessed(ctx context.Context, provider, messageID string) (bool, error) {
	if err := checkIDs(provider, messageID); err != nil {
		return false, err
	}
	var at time.Time
	err := s.db.QueryRow(ctx, markProcessedSQL, provider, messageID, s.now()).Scan(&at)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("events: mark processed: %w", err)
	}
	return true, nil
}

// Release forgets the id so a redelivery is handled again.
func (s *ProcessedStore) Release(ctx context.Context, provider, messageID string) error {
	if err := checkIDs(provider, messageID); err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, releaseSQL, provider, messageID); err != nil {
		return fmt.Errorf("events: release processed: %w", err)
	}
	return nil
}

// Purge deletes ids recorded more than ttl ago and returns how many went.
func (s *ProcessedStore) Purge(ctx context.Context, ttl time.Duration) (int64, error) {
	tag, err := s.db.Exec(ctx, purgeSQL, s.now().Add(-ttl))
	if err != nil {
		return 0, fmt.Errorf("events: purge processed: %w", err)
	}
	return tag.RowsAffected(), nil
}

func checkIDs(provider, messageID string) error {
	if strings.TrimSpace(provider) == "" || strings.TrimSpace(messageID) == "" {
		return ErrMissingMessageID
	}
	return nil
}
