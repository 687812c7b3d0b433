package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/lumenlms/lumen-api/internal/models"
)

func newConnectionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func connectionRows(conn models.Connection) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "subject_kind", "subject_id", "object_kind", "object_id",
		"scope_id", "connect_type", "connect_status", "created_at", "updated_at",
	}).AddRow(conn.ID, conn.SubjectKind, conn.SubjectID, conn.ObjectKind, conn.ObjectID,
		conn.ScopeID, conn.ConnectType, conn.ConnectStatus, time.Now(), time.Now())
}

func TestConnectionUpsertInsertsNewEdge(t *testing.T) {
	db, mock, cleanup := newConnectionRepoMock(t)
	defer cleanup()

	repo := NewConnectionRepository(db)
	edge := &models.Connection{
		SubjectKind: models.KindUser, SubjectID: "user-1",
		ObjectKind: models.KindCourse, ObjectID: "course-1",
		ScopeID:     "team-1",
		ConnectType: models.ConnectTypeInvite, ConnectStatus: models.ConnectStatusPending,
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO connections")).
		WillReturnRows(connectionRows(models.Connection{
			ID:          "edge-1",
			SubjectKind: edge.SubjectKind, SubjectID: edge.SubjectID,
			ObjectKind: edge.ObjectKind, ObjectID: edge.ObjectID,
			ScopeID:     edge.ScopeID,
			ConnectType: edge.ConnectType, ConnectStatus: edge.ConnectStatus,
		}))

	stored, written, err := repo.Upsert(context.Background(), edge)
	require.NoError(t, err)
	require.True(t, written)
	require.Equal(t, "edge-1", stored.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectionUpsertConflictFallsBackToStoredRow(t *testing.T) {
	db, mock, cleanup := newConnectionRepoMock(t)
	defer cleanup()

	repo := NewConnectionRepository(db)
	edge := &models.Connection{
		SubjectKind: models.KindUser, SubjectID: "user-1",
		ObjectKind: models.KindCourse, ObjectID: "course-1",
		ScopeID:     "team-1",
		ConnectType: models.ConnectTypeInvite, ConnectStatus: models.ConnectStatusPending,
	}

	// The conflict arm rejected the write: RETURNING yields no rows.
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO connections")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	existing := models.Connection{
		ID:          "edge-existing",
		SubjectKind: edge.SubjectKind, SubjectID: edge.SubjectID,
		ObjectKind: edge.ObjectKind, ObjectID: edge.ObjectID,
		ScopeID:     edge.ScopeID,
		ConnectType: models.ConnectTypeInvite, ConnectStatus: models.ConnectStatusAccepted,
	}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, subject_kind, subject_id, object_kind, object_id, scope_id, connect_type, connect_status, created_at, updated_at FROM connections")).
		WithArgs("USER", "user-1", "COURSE", "course-1", "team-1").
		WillReturnRows(connectionRows(existing))

	stored, written, err := repo.Upsert(context.Background(), edge)
	require.NoError(t, err)
	require.False(t, written)
	require.Equal(t, "edge-existing", stored.ID)
	require.Equal(t, models.ConnectStatusAccepted, stored.ConnectStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectionUpdateStatusOnlyTouchesPending(t *testing.T) {
	db, mock, cleanup := newConnectionRepoMock(t)
	defer cleanup()

	repo := NewConnectionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE connections SET connect_status")).
		WithArgs("edge-1", string(models.ConnectStatusAccepted), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	updated, err := repo.UpdateStatus(context.Background(), "edge-1", models.ConnectStatusAccepted)
	require.NoError(t, err)
	require.True(t, updated)

	// Terminal edge: no rows match the PENDING guard.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE connections SET connect_status")).
		WithArgs("edge-1", string(models.ConnectStatusRejected), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	updated, err = repo.UpdateStatus(context.Background(), "edge-1", models.ConnectStatusRejected)
	require.NoError(t, err)
	require.False(t, updated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectionDeleteWithShareCascade(t *testing.T) {
	db, mock, cleanup := newConnectionRepoMock(t)
	defer cleanup()

	repo := NewConnectionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM connections WHERE id = $1")).
		WithArgs("edge-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM collection_courses")).
		WithArgs("team-b", "course-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := repo.DeleteWithShareCascade(context.Background(), "edge-1", "team-b", "course-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectionListAppliesFilters(t *testing.T) {
	db, mock, cleanup := newConnectionRepoMock(t)
	defer cleanup()

	repo := NewConnectionRepository(db)

	rows := sqlmock.NewRows([]string{
		"id", "subject_kind", "subject_id", "object_kind", "object_id",
		"scope_id", "connect_type", "connect_status", "created_at", "updated_at",
		"subject_label", "object_label",
	}).AddRow("edge-1", "USER", "user-1", "COURSE", "course-1",
		"team-1", "INVITE", "PENDING", time.Now(), time.Now(),
		"Jane Doe", "Intro")

	mock.ExpectQuery("SELECT c\\.id, c\\.subject_kind").
		WithArgs("USER", "user-1", "PENDING").
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\)").
		WithArgs("USER", "user-1", "PENDING").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	details, total, err := repo.List(context.Background(), models.ConnectionFilter{
		SubjectKind:   models.KindUser,
		SubjectID:     "user-1",
		ConnectStatus: models.ConnectStatusPending,
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, details, 1)
	require.Equal(t, "Jane Doe", details[0].SubjectLabel)
	require.Equal(t, "Intro", details[0].ObjectLabel)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindAcceptedCollectionForCourse(t *testing.T) {
	db, mock, cleanup := newConnectionRepoMock(t)
	defer cleanup()

	repo := NewConnectionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT c.object_id FROM connections c")).
		WithArgs("user-1", "team-1", "course-1").
		WillReturnRows(sqlmock.NewRows([]string{"object_id"}).AddRow("coll-1"))

	collectionID, err := repo.FindAcceptedCollectionForCourse(context.Background(), "user-1", "team-1", "course-1")
	require.NoError(t, err)
	require.Equal(t, "coll-1", collectionID)

	// No transitive path: empty string, no error.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT c.object_id FROM connections c")).
		WithArgs("user-1", "team-1", "course-2").
		WillReturnRows(sqlmock.NewRows([]string{"object_id"}))

	collectionID, err = repo.FindAcceptedCollectionForCourse(context.Background(), "user-1", "team-1", "course-2")
	require.NoError(t, err)
	require.Empty(t, collectionID)
	require.NoError(t, mock.ExpectationsWereMet())
}
