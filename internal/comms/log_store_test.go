package comms

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogStore_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO comms_log`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewLogStore(db)
	err = store.Record(context.Background(), LogEntry{
		ID:        "n1",
		Kind:      KindSubmission,
		Recipient: "office@mzansiprolife.org.za",
		Subject:   "New submission",
		Status:    "sent",
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogStore_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT id, kind, recipient`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "kind", "recipient", "subject", "status", "error", "created_at"}).
			AddRow("n2", KindDonation, "office@mzansiprolife.org.za", "Pledge", "failed", "smtp down", now).
			AddRow("n1", KindAdmin, "a@b.co", "Hello", "sent", "", now.Add(-time.Minute)))

	entries, err := NewLogStore(db).List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "failed", entries[0].Status)
	assert.Equal(t, "smtp down", entries[0].Error)
}

func TestLogStore_NilSafe(t *testing.T) {
	var store *LogStore
	assert.NoError(t, store.Record(context.Background(), LogEntry{}))

	entries, err := store.List(context.Background(), 10)
	assert.NoError(t, err)
	assert.Nil(t, entries)
}
