// Package messagelog keeps an audit trail of inbound citizen messages with
// their heuristic classification.
package messagelog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/cybersathi/internal/nlu"
	"github.com/wolfman30/cybersathi/pkg/logging"
)

// Entry is one logged inbound message.
type Entry struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	Intent    string    `json:"intent"`
	FraudType string    `json:"fraud_type"`
	Emotion   string    `json:"emotion"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists entries in the messages table.
type Store struct {
	db *sql.DB
}

// NewStore creates a store over db.
func NewStore(db *sql.DB) *Store {
	if db == nil {
		panic("messagelog: sql db required")
	}
	return &Store{db: db}
}

// Insert writes e, filling ID and CreatedAt when empty.
func (s *Store) Insert(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO messages (id, sender, message, intent, fraud_type, emotion, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := s.db.ExecContext(ctx, query,
		e.ID, e.Sender, e.Message, e.Intent, e.FraudType, e.Emotion, e.CreatedAt,
	); err != nil {
		return fmt.Errorf("messagelog: insert failed: %w", err)
	}
	return nil
}

const (
	defaultRecentLimit = 100
	maxRecentLimit     = 500
)

// Recent returns the newest entries, optionally limited to one sender. The
// limit defaults to 100 and is capped at 500.
func (s *Store) Recent(ctx context.Context, sender string, limit int) ([]Entry, error) {
	switch {
	case limit <= 0:
		limit = defaultRecentLimit
	case limit > maxRecentLimit:
		limit = maxRecentLimit
	}
	query := `
		SELECT id::text, sender, message, intent, fraud_type, emotion, created_at
		FROM messages
		WHERE ($1 = '' OR sender = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, sender, limit)
	if err != nil {
		return nil, fmt.Errorf("messagelog: query failed: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Sender, &e.Message, &e.Intent, &e.FraudType, &e.Emotion, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("messagelog: scan failed: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("messagelog: rows: %w", err)
	}
	return out, nil
}

type inserter interface {
	Insert(ctx context.Context, e Entry) error
}

// Recorder classifies inbound text and writes it to the log.
type Recorder struct {
	store    inserter
	analyzer *nlu.Analyzer
	logger   *logging.Logger
}

// NewRecorder wires a recorder. A nil analyzer uses the built-in heuristics.
func NewRecorder(store *Store, analyzer *nlu.Analyzer, logger *logging.Logger) *Recorder {
	if store == nil {
		panic("messagelog: store required")
	}
	return newRecorder(store, analyzer, logger)
}

func newRecorder(store inserter, analyzer *nlu.Analyzer, logger *logging.Logger) *Recorder {
	if analyzer == nil {
		analyzer = nlu.NewAnalyzer(nil)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Recorder{store: store, analyzer: analyzer, logger: logger.Component("messagelog")}
}

// Record classifies text and stores it.
func (r *Recorder) Record(ctx context.Context, sender, text string) error {
	a := r.analyzer.Analyze(ctx, text)
	r.logger.Debug("message classified", "sender", sender, "intent", a.Intent, "emotion", a.Emotion)
	return r.store.Insert(ctx, Entry{
		Sender:    sender,
		Message:   text,
		Intent:    string(a.Intent),
		FraudType: string(a.FraudType),
		Emotion:   a.Emotion,
	})
}
