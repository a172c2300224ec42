package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*ProcessedStore, pgxmock.PgxPoolIface, time.Time) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	now := time.Date(2026, 10, 15, 6, 30, 0, 0, time.UTC)
	store := newProcessedStore(mock)
	store.now = func() time.Time { return now }
	return store, mock, now
}

func TestProcessedStore_MarkProcessed(t *testing.T) {
	store, mock, now := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery("INSERT INTO processed_messages").
		WithArgs("whatsapp", "wamid.new", now).
		WillReturnRows(pgxmock.NewRows([]string{"processed_at"}).AddRow(now))
	fresh, err := store.MarkProcessed(ctx, "whatsapp", "wamid.new")
	require.NoError(t, err)
	assert.True(t, fresh)

	mock.ExpectQuery("INSERT INTO processed_messages").
		WithArgs("whatsapp", "wamid.new", now).
		WillReturnError(pgx.ErrNoRows)
	fresh, err = store.MarkProcessed(ctx, "whatsapp", "wamid.new")
	require.NoError(t, err)
	assert.False(t, fresh, "conflict means the id was already recorded")

	mock.ExpectQuery("INSERT INTO processed_messages").
		WithArgs("whatsapp", "wamid.err", now).
		WillReturnError(errors.New("connection reset"))
	_, err = store.MarkProcessed(ctx, "whatsapp", "wamid.err")
	assert.ErrorContains(t, err, "events: mark processed")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessedStore_Release(t *testing.T) {
	store, mock, _ := newMockStore(t)
	ctx := context.Background()

	mock.ExpectExec("DELETE FROM processed_messages WHERE provider").
		WithArgs("whatsapp", "wamid.1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, store.Release(ctx, "whatsapp", "wamid.1"))

	mock.ExpectExec("DELETE FROM processed_messages WHERE provider").
		WithArgs("whatsapp", "wamid.2").
		WillReturnError(errors.New("connection reset"))
	assert.ErrorContains(t, store.Release(ctx, "whatsapp", "wamid.2"), "events: release processed")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessedStore_Purge(t *testing.T) {
	store, mock, now := newMockStore(t)

	mock.ExpectExec("DELETE FROM processed_messages WHERE processed_at").
		WithArgs(now.Add(-24 * time.Hour)).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	n, err := store.Purge(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessedStore_RejectsBlankIDs(t *testing.T) {
	store, mock, _ := newMockStore(t)

	_, err := store.MarkProcessed(context.Background(), "whatsapp", " ")
	assert.ErrorIs(t, err, ErrMissingMessageID)
	assert.ErrorIs(t, store.Release(context.Background(), "", "wamid.1"), ErrMissingMessageID)
	require.NoError(t, mock.ExpectationsWereMet())
}
