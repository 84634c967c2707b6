package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/acadly/timetable-api/internal/models"
	appErrors "github.com/acadly/timetable-api/pkg/errors"
)

type mockAssignmentRepo struct {
	items     []models.Assignment
	nextID    int
	insertErr error
	countErr  error
	deleted   []string
}

func (m *mockAssignmentRepo) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, int, error) {
	return m.items, len(m.items), nil
}

func (m *mockAssignmentRepo) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	for _, item := range m.items {
		if item.ID == id {
			cp := item
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentRepo) ListByProfessor(ctx context.Context, professor string) ([]models.Assignment, error) {
	var out []models.Assignment
	for _, item := range m.items {
		if item.Professor == professor {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *mockAssignmentRepo) ListByGroup(ctx context.Context, groupNo int) ([]models.Assignment, error) {
	var out []models.Assignment
	for _, item := range m.items {
		if item.GroupNo == groupNo {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *mockAssignmentRepo) CountByProfessorAndDate(ctx context.Context, professor, date, excludeID string) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	count := 0
	for _, item := range m.items {
		if item.Professor == professor && item.Date == date && item.ID != excludeID {
			count++
		}
	}
	return count, nil
}

func (m *mockAssignmentRepo) FindByDateAndResources(ctx context.Context, date, roomNo string, groupNo int, excludeID string) ([]models.Assignment, error) {
	var out []models.Assignment
	for _, item := range m.items {
		if item.Date == date && (item.RoomNo == roomNo || item.GroupNo == groupNo) && item.ID != excludeID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *mockAssignmentRepo) FindSubjectOwner(ctx context.Context, groupNo int, subject, otherThanProfessor, excludeID string) (*models.Assignment, error) {
	for _, item := range m.items {
		if item.GroupNo == groupNo && item.Subject == subject && item.Professor != otherThanProfessor && item.ID != excludeID {
			cp := item
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentRepo) InsertBatch(ctx context.Context, assignments []models.Assignment) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	for i := range assignments {
		m.nextID++
		assignments[i].ID = fmt.Sprintf("a%d", m.nextID)
		m.items = append(m.items, assignments[i])
	}
	return nil
}

func (m *mockAssignmentRepo) Update(ctx context.Context, assignment *models.Assignment) error {
	for i, item := range m.items {
		if item.ID == assignment.ID {
			m.items[i] = *assignment
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockAssignmentRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	for i, item := range m.items {
		if item.ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return nil
}

type mockDirectory struct {
	professors map[string]*models.Professor
}

func (m *mockDirectory) FindProfessor(ctx context.Context, username string) (*models.Professor, error) {
	if p, ok := m.professors[username]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func newTestDirectory() *mockDirectory {
	return &mockDirectory{professors: map[string]*models.Professor{
		"jdoe": {ID: "u1", Username: "jdoe", FullName: "John Doe", Subjects: []models.SubjectEntry{
			{SubjectName: "CC101", SubjectID: "s1"},
			{SubjectName: "DS202", SubjectID: "s2"},
		}},
		"asmith": {ID: "u2", Username: "asmith", FullName: "Alice Smith", Subjects: []models.SubjectEntry{
			{SubjectName: "CC101", SubjectID: "s3"},
			{SubjectName: "ML303", SubjectID: "s4"},
		}},
	}}
}

func newTestEngine(repo *mockAssignmentRepo) *AssignmentService {
	return NewAssignmentService(repo, newTestDirectory(), validator.New(), zap.NewNop(), 0)
}

func errorCode(t *testing.T, err error) string {
	t.Helper()
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr), "expected typed error, got %v", err)
	return appErr.Code
}

func TestAssignExpandsFourWeeklyOccurrences(t *testing.T) {
	repo := &mockAssignmentRepo{}
	engine := newTestEngine(repo)

	created, err := engine.Assign(context.Background(), AssignScheduleRequest{
		Professor: "jdoe",
		Subject:   "CC101",
		GroupNo:   4,
		StartTime: "09:20",
		EndTime:   "10:30",
		Date:      "2024-03-04",
	})
	require.NoError(t, err)
	require.Len(t, created, 4)
	require.Len(t, repo.items, 4)

	wantDates := []string{"2024-03-04", "2024-03-11", "2024-03-18", "2024-03-25"}
	for i, a := range created {
		assert.Equal(t, wantDates[i], a.Date)
		assert.Equal(t, "Monday", a.Day)
		assert.Equal(t, "3-007", a.RoomNo)
		assert.Equal(t, "s1", a.SubjectID)
		assert.Equal(t, "09:20", a.StartTime)
		assert.Equal(t, "10:30", a.EndTime)
	}
}

func TestAssignRejectsOffCatalogSlot(t *testing.T) {
	engine := newTestEngine(&mockAssignmentRepo{})

	_, err := engine.Assign(context.Background(), AssignScheduleRequest{
		Professor: "jdoe",
		Subject:   "CC101",
		GroupNo:   4,
		StartTime: "09:00",
		EndTime:   "10:00",
		Date:      "2024-03-04",
	})
	require.Error(t, err)
	assert.Equal(t, "INVALID_SLOT", errorCode(t, err))
}

func TestAssignRejectsUnknownGroup(t *testing.T) {
	engine := newTestEngine(&mockAssignmentRepo{})

	for _, groupNo := range []int{0, 9, -1, 100} {
		_, err := engine.Assign(context.Background(), AssignScheduleRequest{
			Professor: "jdoe",
			Subject:   "CC101",
			GroupNo:   groupNo,
			StartTime: "09:20",
			EndTime:   "10:30",
			Date:      "2024-03-04",
		})
		require.Error(t, err, "group %d", groupNo)
		assert.Equal(t, "INVALID_GROUP", errorCode(t, err), "group %d", groupNo)
	}
}

func TestAssignRejectsMalformedDate(t *testing.T) {
	engine := newTestEngine(&mockAssignmentRepo{})

	_, err := engine.Assign(context.Background(), AssignScheduleRequest{
		Professor: "jdoe",
		Subject:   "CC101",
		GroupNo:   4,
		StartTime: "09:20",
		EndTime:   "10:30",
		Date:      "2024-02-30",
	})
	require.Error(t, err)
	assert.Equal(t, "INVALID_DATE", errorCode(t, err))
}

func TestAssignRejectsUnknownProfessor(t *testing.T) {
	engine := newTestEngine(&mockAssignmentRepo{})

	_, err := engine.Assign(context.Background(), AssignScheduleRequest{
		Professor: "ghost",
		Subject:   "CC101",
		GroupNo:   4,
		StartTime: "09:20",
		EndTime:   "10:30",
		Date:      "2024-03-04",
	})
	require.Error(t, err)
	assert.Equal(t, "PROFESSOR_NOT_FOUND", errorCode(t, err))
}

func TestAssignRejectsSubjectNotOnRoster(t *testing.T) {
	engine := newTestEngine(&mockAssignmentRepo{})

	_, err := engine.Assign(context.Background(), AssignScheduleRequest{
		Professor: "jdoe",
		Subject:   "ML303",
		GroupNo:   4,
		StartTime: "09:20",
		EndTime:   "10:30",
		Date:      "2024-03-04",
	})
	require.Error(t, err)
	assert.Equal(t, "SUBJECT_NOT_ASSIGNED", errorCode(t, err))
}

func TestAssignIsNotIdempotent(t *testing.T) {
	repo := &mockAssignmentRepo{}
	engine := newTestEngine(repo)

	req := AssignScheduleRequest{
		Professor: "jdoe",
		Subject:   "CC101",
		GroupNo:   4,
		StartTime: "09:20",
		EndTime:   "10:30",
		Date:      "2024-03-04",
	}
	_, err := engine.Assign(context.Background(), req)
	require.NoError(t, err)

	_, err = engine.Assign(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, "RESOURCE_CONFLICT", errorCode(t, err))
	assert.Len(t, repo.items, 4)
}

func TestAssignOwnershipGuardIgnoresDateAndTime(t *testing.T) {
	repo := &mockAssignmentRepo{}
	engine := newTestEngine(repo)

	_, err := engine.Assign(context.Background(), AssignScheduleRequest{
		Professor: "jdoe",
		Subject:   "CC101",
		GroupNo:   4,
		StartTime: "09:20",
		EndTime:   "10:30",
		Date:      "2024-03-04",
	})
	require.NoError(t, err)

	// Different professor, same subject and group, fully disjoint month
	// and slot. The ownership guard must still reject it.
	_, err = engine.Assign(context.Background(), AssignScheduleRequest{
		Professor: "asmith",
		Subject:   "CC101",
		GroupNo:   4,
		StartTime: "14:40",
		EndTime:   "15:30",
		Date:      "2024-06-03",
	})
	require.Error(t, err)
	assert.Equal(t, "DUPLICATE_SUBJECT_OWNERSHIP", errorCode(t, err))

	var conflict *models.AssignmentConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "OWNERSHIP", conflict.Type)
	assert.Equal(t, "jdoe", conflict.Conflict.Professor)
}

func TestAssignTouchingSlotsDoNotConflict(t *testing.T) {
	repo := &mockAssignmentRepo{}
	engine := newTestEngine(repo)

	_, err := engine.Assign(context.Background(), AssignScheduleRequest{
		Professor: "jdoe",
		Subject:   "CC101",
		GroupNo:   4,
		StartTime: "09:20",
		EndTime:   "10:30",
		Date:      "2024-03-04",
	})
	require.NoError(t, err)

	// Back-to-back period in the same room and group.
	_, err = engine.Assign(context.Background(), AssignScheduleRequest{
		Professor: "jdoe",
		Subject:   "DS202",
		GroupNo:   4,
		StartTime: "10:30",
		EndTime:   "11:40",
		Date:      "2024-03-04",
	})
	require.NoError(t, err)
	assert.Len(t, repo.items, 8)
}

func TestAssignRoomConflictAcrossGroups(t *testing.T) {
	// Seed an occupied room window directly; the group differs so only
	// the room dimension can collide.
	repo := &mockAssignmentRepo{items: []models.Assignment{
		{ID: "x1", Professor: "asmith", Subject: "ML303", GroupNo: 5, RoomNo: "3-007",
			StartTime: "09:20", EndTime: "10:30", Date: "2024-03-04", Day: "Monday"},
	}}
	engine := newTestEngine(repo)

	_, err := engine.Assign(context.Background(), AssignScheduleRequest{
		Professor: "jdoe",
		Subject:   "CC101",
		GroupNo:   4,
		StartTime: "09:20",
		EndTime:   "10:30",
		Date:      "2024-03-04",
	})
	require.Error(t, err)
	assert.Equal(t, "RESOURCE_CONFLICT", errorCode(t, err))

	var conflict *models.AssignmentConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "ROOM", conflict.Type)
}

func TestAssignGroupConflictAcrossRooms(t *testing.T) {
	repo := &mockAssignmentRepo{items: []models.Assignment{
		{ID: "x1", Professor: "asmith", Subject: "ML303", GroupNo: 4, RoomNo: "3-999",
			StartTime: "09:20", EndTime: "10:30", Date: "2024-03-04", Day: "Monday"},
	}}
	engine := newTestEngine(repo)

	_, err := engine.Assign(context.Background(), AssignScheduleRequest{
		Professor: "jdoe",
		Subject:   "CC101",
		GroupNo:   4,
		StartTime: "09:20",
		EndTime:   "10:30",
		Date:      "2024-03-04",
	})
	require.Error(t, err)

	var conflict *models.AssignmentConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "GROUP", conflict.Type)
}

func TestAssignDailyLimit(t *testing.T) {
	repo := &mockAssignmentRepo{}
	engine := newTestEngine(repo)

	slots := [][2]string{{"09:20", "10:30"}, {"10:30", "11:40"}, {"11:50", "13:00"}}
	subjects := []string{"CC101", "DS202"}
	groups := []int{4, 5, 6}
	for i, slot := range slots {
		_, err := engine.Assign(context.Background(), AssignScheduleRequest{
			Professor: "jdoe",
			Subject:   subjects[i%2],
			GroupNo:   groups[i],
			StartTime: slot[0],
			EndTime:   slot[1],
			Date:      "2024-03-04",
		})
		require.NoError(t, err)
	}

	_, err := engine.Assign(context.Background(), AssignScheduleRequest{
		Professor: "jdoe",
		Subject:   "CC101",
		GroupNo:   7,
		StartTime: "13:50",
		EndTime:   "14:40",
		Date:      "2024-03-04",
	})
	require.Error(t, err)
	assert.Equal(t, "DAILY_LIMIT_EXCEEDED", errorCode(t, err))
	assert.Len(t, repo.items, 12)
}

func TestAssignMidBatchRejectionWritesNothing(t *testing.T) {
	// Occupy the room only on the third weekly occurrence. The whole
	// batch must be rejected and the first two dates left unwritten.
	repo := &mockAssignmentRepo{items: []models.Assignment{
		{ID: "x1", Professor: "asmith", Subject: "ML303", GroupNo: 5, RoomNo: "3-007",
			StartTime: "09:20", EndTime: "10:30", Date: "2024-03-18", Day: "Monday"},
	}}
	engine := newTestEngine(repo)

	_, err := engine.Assign(context.Background(), AssignScheduleRequest{
		Professor: "jdoe",
		Subject:   "CC101",
		GroupNo:   4,
		StartTime: "09:20",
		EndTime:   "10:30",
		Date:      "2024-03-04",
	})
	require.Error(t, err)
	assert.Equal(t, "RESOURCE_CONFLICT", errorCode(t, err))
	assert.Len(t, repo.items, 1)
}

func TestAssignMapsUniqueViolationToResourceConflict(t *testing.T) {
	repo := &mockAssignmentRepo{insertErr: &pq.Error{Code: "23505"}}
	engine := newTestEngine(repo)

	_, err := engine.Assign(context.Background(), AssignScheduleRequest{
		Professor: "jdoe",
		Subject:   "CC101",
		GroupNo:   4,
		StartTime: "09:20",
		EndTime:   "10:30",
		Date:      "2024-03-04",
	})
	require.Error(t, err)
	assert.Equal(t, "RESOURCE_CONFLICT", errorCode(t, err))
}

func TestAssignMapsBatchInsertFailureToTransient(t *testing.T) {
	// The batch runs in one transaction, so any non-conflict insert
	// failure leaves nothing committed and must read as retry-safe.
	repo := &mockAssignmentRepo{insertErr: errors.New("pq: connection reset by peer")}
	engine := newTestEngine(repo)

	_, err := engine.Assign(context.Background(), AssignScheduleRequest{
		Professor: "jdoe",
		Subject:   "CC101",
		GroupNo:   4,
		StartTime: "09:20",
		EndTime:   "10:30",
		Date:      "2024-03-04",
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "TRANSIENT", appErr.Code)
	assert.Equal(t, 503, appErr.Status)
}

func TestAssignMapsTimeoutToTransient(t *testing.T) {
	repo := &mockAssignmentRepo{countErr: context.DeadlineExceeded}
	engine := newTestEngine(repo)

	_, err := engine.Assign(context.Background(), AssignScheduleRequest{
		Professor: "jdoe",
		Subject:   "CC101",
		GroupNo:   4,
		StartTime: "09:20",
		EndTime:   "10:30",
		Date:      "2024-03-04",
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "TRANSIENT", appErr.Code)
	assert.Equal(t, 503, appErr.Status)
}

func TestUpdateExcludesOwnRecordFromConflictChecks(t *testing.T) {
	repo := &mockAssignmentRepo{}
	engine := newTestEngine(repo)

	created, err := engine.Assign(context.Background(), AssignScheduleRequest{
		Professor: "jdoe",
		Subject:   "CC101",
		GroupNo:   4,
		StartTime: "09:20",
		EndTime:   "10:30",
		Date:      "2024-03-04",
	})
	require.NoError(t, err)

	// Re-submitting an occurrence's own slot must not conflict with
	// itself.
	updated, err := engine.Update(context.Background(), created[0].ID, UpdateAssignmentRequest{
		Professor: "jdoe",
		Subject:   "DS202",
		GroupNo:   4,
		StartTime: "09:20",
		EndTime:   "10:30",
		Date:      "2024-03-04",
	})
	require.NoError(t, err)
	assert.Equal(t, "DS202", updated.Subject)
	assert.Equal(t, "s2", updated.SubjectID)
	assert.Equal(t, created[0].ID, updated.ID)
}

func TestUpdateReassignsSubjectOwnershipToNewProfessor(t *testing.T) {
	// x1 is the only occurrence of CC101 for group 4. Handing it to a
	// different professor must not trip the ownership guard against the
	// record being rewritten.
	repo := &mockAssignmentRepo{items: []models.Assignment{
		{ID: "x1", Professor: "jdoe", Subject: "CC101", SubjectID: "s1", GroupNo: 4, RoomNo: "3-007",
			StartTime: "09:20", EndTime: "10:30", Date: "2024-03-04", Day: "Monday"},
	}}
	engine := newTestEngine(repo)

	updated, err := engine.Update(context.Background(), "x1", UpdateAssignmentRequest{
		Professor: "asmith",
		Subject:   "CC101",
		GroupNo:   4,
		StartTime: "09:20",
		EndTime:   "10:30",
		Date:      "2024-03-04",
	})
	require.NoError(t, err)
	assert.Equal(t, "asmith", updated.Professor)
	assert.Equal(t, "s3", updated.SubjectID)
}

func TestUpdateRejectsMoveOntoBookedWindow(t *testing.T) {
	repo := &mockAssignmentRepo{}
	engine := newTestEngine(repo)

	first, err := engine.Assign(context.Background(), AssignScheduleRequest{
		Professor: "jdoe",
		Subject:   "CC101",
		GroupNo:   4,
		StartTime: "09:20",
		EndTime:   "10:30",
		Date:      "2024-03-04",
	})
	require.NoError(t, err)

	_, err = engine.Assign(context.Background(), AssignScheduleRequest{
		Professor: "jdoe",
		Subject:   "DS202",
		GroupNo:   4,
		StartTime: "10:30",
		EndTime:   "11:40",
		Date:      "2024-03-04",
	})
	require.NoError(t, err)

	// Move the first occurrence onto the second one's window.
	_, err = engine.Update(context.Background(), first[0].ID, UpdateAssignmentRequest{
		Professor: "jdoe",
		Subject:   "CC101",
		GroupNo:   4,
		StartTime: "10:30",
		EndTime:   "11:40",
		Date:      "2024-03-04",
	})
	require.Error(t, err)
	assert.Equal(t, "RESOURCE_CONFLICT", errorCode(t, err))
}

func TestUpdateUnknownAssignment(t *testing.T) {
	engine := newTestEngine(&mockAssignmentRepo{})

	_, err := engine.Update(context.Background(), "missing", UpdateAssignmentRequest{
		Professor: "jdoe",
		Subject:   "CC101",
		GroupNo:   4,
		StartTime: "09:20",
		EndTime:   "10:30",
		Date:      "2024-03-04",
	})
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", errorCode(t, err))
}

func TestDeleteRemovesSingleOccurrence(t *testing.T) {
	repo := &mockAssignmentRepo{}
	engine := newTestEngine(repo)

	created, err := engine.Assign(context.Background(), AssignScheduleRequest{
		Professor: "jdoe",
		Subject:   "CC101",
		GroupNo:   4,
		StartTime: "09:20",
		EndTime:   "10:30",
		Date:      "2024-03-04",
	})
	require.NoError(t, err)

	require.NoError(t, engine.Delete(context.Background(), created[1].ID))
	assert.Len(t, repo.items, 3)
}

func TestDeleteUnknownAssignment(t *testing.T) {
	engine := newTestEngine(&mockAssignmentRepo{})

	err := engine.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", errorCode(t, err))
}

func TestListByProfessorEmptyIsNotFound(t *testing.T) {
	engine := newTestEngine(&mockAssignmentRepo{})

	_, err := engine.ListByProfessor(context.Background(), "jdoe")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", errorCode(t, err))
}

func TestListByGroupRejectsUnmappedGroup(t *testing.T) {
	engine := newTestEngine(&mockAssignmentRepo{})

	_, err := engine.ListByGroup(context.Background(), 0)
	require.Error(t, err)
	assert.Equal(t, "INVALID_GROUP", errorCode(t, err))
}
