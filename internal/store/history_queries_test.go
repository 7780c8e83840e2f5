package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/MKhiriev/go-sync15/internal/logger"
	"github.com/MKhiriev/go-sync15/internal/telemetry"
	"github.com/MKhiriev/go-sync15/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_buildOutgoingPagesQuery(t *testing.T) {
	query, args, err := buildOutgoingPagesQuery(7)
	require.NoError(t, err)

	q := strings.ToLower(query)
	for _, part := range []string{
		"select id, guid, url, title, frecency, sync_change_counter",
		"from places",
		"sync_change_counter > ?",
		"sync_status <> ?",
		"hidden = ?",
		"order by frecency desc",
		"limit 7",
	} {
		assert.Contains(t, q, part)
	}
	require.Len(t, args, 3)
	assert.Equal(t, models.SyncStatusNormal, args[1])
}

func Test_buildMarkNormalQuery(t *testing.T) {
	query, args, err := buildMarkNormalQuery([]int64{1, 2, 3})
	require.NoError(t, err)

	q := strings.ToLower(query)
	assert.Contains(t, q, "update places set sync_status = ?")
	assert.Contains(t, q, "where id in (?,?,?)")
	assert.Equal(t, []any{models.SyncStatusNormal, int64(1), int64(2), int64(3)}, args)
}

func Test_buildExistingVisitDatesQuery(t *testing.T) {
	query, args, err := buildExistingVisitDatesQuery(5, []int64{10, 20})
	require.NoError(t, err)

	q := strings.ToLower(query)
	assert.Contains(t, q, "from visits")
	assert.Contains(t, q, "union all")
	assert.Contains(t, q, "from visit_tombstones")
	assert.Equal(t, 2, strings.Count(q, "visit_date in (?,?)"))
	assert.Len(t, args, 6)
}

// ── database errors ──

func newMockHistoryStore(t *testing.T) (*HistoryStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	l := logger.Nop()
	return NewHistoryStore(&DB{DB: db, logger: l}, l), mock
}

func TestHistoryStore_DatabaseErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk I/O error")

	t.Run("meta query fails", func(t *testing.T) {
		s, mock := newMockHistoryStore(t)
		mock.ExpectQuery("SELECT value FROM meta").WillReturnError(boom)

		_, err := s.GetCollectionRequests(ctx, 1000)
		require.ErrorIs(t, err, ErrExecutingQuery)
		require.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin fails", func(t *testing.T) {
		s, mock := newMockHistoryStore(t)
		mock.ExpectBegin().WillReturnError(boom)

		err := s.SyncFinished(ctx, 1000, nil)
		require.ErrorIs(t, err, ErrBeginningTransaction)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("statement fails and rolls back", func(t *testing.T) {
		s, mock := newMockHistoryStore(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE places SET sync_change_counter").WillReturnError(boom)
		mock.ExpectRollback()

		err := s.Reset(ctx, models.Disconnected())
		require.ErrorIs(t, err, ErrExecutingStatement)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("commit fails", func(t *testing.T) {
		s, mock := newMockHistoryStore(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE places SET sync_change_counter").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("INSERT INTO meta").WithArgs(lastSyncMetaKey, int64(0)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO meta").WithArgs(globalSyncIDMetaKey, "g").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO meta").WithArgs(collSyncIDMetaKey, "c").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit().WillReturnError(boom)

		err := s.Reset(ctx, models.ConnectedTo(models.CollSyncIDs{Global: "g", Coll: "c"}))
		require.ErrorIs(t, err, ErrCommitingTransaction)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("planner lookup fails", func(t *testing.T) {
		s, mock := newMockHistoryStore(t)
		mock.ExpectQuery("SELECT id, guid, url, title, sync_status").WillReturnError(boom)
		mock.ExpectBegin()
		mock.ExpectCommit()
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM sync_updated_meta").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT guid FROM places_tombstones").WillReturnRows(sqlmock.NewRows([]string{"guid"}))
		mock.ExpectQuery("SELECT id, guid, url, title, frecency").WillReturnRows(
			sqlmock.NewRows([]string{"id", "guid", "url", "title", "frecency", "sync_change_counter"}))
		mock.ExpectCommit()
		mock.ExpectExec("INSERT INTO meta").WithArgs(lastSyncMetaKey, int64(1000)).WillReturnResult(sqlmock.NewResult(0, 1))

		telem := telemetry.NewEngine(models.HistoryCollection)
		_, err := s.ApplyIncoming(ctx, incomingChangesets(1000,
			historyPayload(t, guidA, urlA, "A", visitAt(visit1, models.TransitionLink))), telem)

		require.NoError(t, err)
		assert.Equal(t, uint32(1), telem.IncomingCounts().Failed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
