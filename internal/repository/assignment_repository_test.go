package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadly/timetable-api/internal/models"
)

func newAssignmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func assignmentRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "professor", "subject", "subject_id", "group_no", "room_no", "start_time", "end_time", "date", "day", "created_at", "updated_at"}).
		AddRow("a1", "jdoe", "CC101", "s1", 4, "3-007", "09:20", "10:30", "2024-03-04", "Monday", now, now)
}

func TestAssignmentRepositoryList(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, professor, subject, subject_id, group_no, room_no, start_time, end_time, date, day, created_at, updated_at FROM assignments WHERE 1=1 AND professor = $1 ORDER BY date ASC, start_time ASC LIMIT 20 OFFSET 0")).
		WithArgs("jdoe").
		WillReturnRows(assignmentRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM assignments WHERE 1=1 AND professor = $1")).
		WithArgs("jdoe").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.AssignmentFilter{Professor: "jdoe"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryCountByProfessorAndDate(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM assignments WHERE professor = $1 AND date = $2")).
		WithArgs("jdoe", "2024-03-04").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountByProfessorAndDate(context.Background(), "jdoe", "2024-03-04", "")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM assignments WHERE professor = $1 AND date = $2 AND id != $3")).
		WithArgs("jdoe", "2024-03-04", "a1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	count, err = repo.CountByProfessorAndDate(context.Background(), "jdoe", "2024-03-04", "a1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryFindByDateAndResources(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM assignments WHERE date = $1 AND (room_no = $2 OR group_no = $3)")).
		WithArgs("2024-03-04", "3-007", 4).
		WillReturnRows(assignmentRows())

	booked, err := repo.FindByDateAndResources(context.Background(), "2024-03-04", "3-007", 4, "")
	require.NoError(t, err)
	require.Len(t, booked, 1)
	assert.Equal(t, "3-007", booked[0].RoomNo)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryFindSubjectOwner(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM assignments WHERE group_no = $1 AND subject = $2 AND professor != $3 LIMIT 1")).
		WithArgs(4, "CC101", "asmith").
		WillReturnRows(assignmentRows())

	owner, err := repo.FindSubjectOwner(context.Background(), 4, "CC101", "asmith", "")
	require.NoError(t, err)
	assert.Equal(t, "jdoe", owner.Professor)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryFindSubjectOwnerExcludesRecord(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM assignments WHERE group_no = $1 AND subject = $2 AND professor != $3 AND id != $4 LIMIT 1")).
		WithArgs(4, "CC101", "asmith", "a1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindSubjectOwner(context.Background(), 4, "CC101", "asmith", "a1")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryFindSubjectOwnerNoRows(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery("FROM assignments WHERE group_no =").
		WithArgs(4, "CC101", "jdoe").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindSubjectOwner(context.Background(), 4, "CC101", "jdoe", "")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryInsertBatchCommits(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	for i := 0; i < 4; i++ {
		mock.ExpectExec("INSERT INTO assignments").
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	batch := []models.Assignment{
		{Professor: "jdoe", Subject: "CC101", SubjectID: "s1", GroupNo: 4, RoomNo: "3-007", StartTime: "09:20", EndTime: "10:30", Date: "2024-03-04", Day: "Monday"},
		{Professor: "jdoe", Subject: "CC101", SubjectID: "s1", GroupNo: 4, RoomNo: "3-007", StartTime: "09:20", EndTime: "10:30", Date: "2024-03-11", Day: "Monday"},
		{Professor: "jdoe", Subject: "CC101", SubjectID: "s1", GroupNo: 4, RoomNo: "3-007", StartTime: "09:20", EndTime: "10:30", Date: "2024-03-18", Day: "Monday"},
		{Professor: "jdoe", Subject: "CC101", SubjectID: "s1", GroupNo: 4, RoomNo: "3-007", StartTime: "09:20", EndTime: "10:30", Date: "2024-03-25", Day: "Monday"},
	}
	err := repo.InsertBatch(context.Background(), batch)
	require.NoError(t, err)
	for _, a := range batch {
		assert.NotEmpty(t, a.ID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryInsertBatchRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO assignments").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO assignments").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	batch := []models.Assignment{
		{Professor: "jdoe", Subject: "CC101", GroupNo: 4, RoomNo: "3-007", StartTime: "09:20", EndTime: "10:30", Date: "2024-03-04", Day: "Monday"},
		{Professor: "jdoe", Subject: "CC101", GroupNo: 4, RoomNo: "3-007", StartTime: "09:20", EndTime: "10:30", Date: "2024-03-11", Day: "Monday"},
	}
	err := repo.InsertBatch(context.Background(), batch)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec("DELETE FROM assignments WHERE id =").
		WithArgs("a1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Delete(context.Background(), "a1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
