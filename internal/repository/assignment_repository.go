package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/acadly/timetable-api/internal/models"
)

const assignmentColumns = "id, professor, subject, subject_id, group_no, room_no, start_time, end_time, date, day, created_at, updated_at"

// AssignmentRepository provides persistence for schedule assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository creates a new assignment repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// List returns assignments with optional filtering and pagination.
func (r *AssignmentRepository) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, int, error) {
	base := "FROM assignments WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Professor != "" {
		conditions = append(conditions, fmt.Sprintf("professor = $%d", len(args)+1))
		args = append(args, filter.Professor)
	}
	if filter.GroupNo > 0 {
		conditions = append(conditions, fmt.Sprintf("group_no = $%d", len(args)+1))
		args = append(args, filter.GroupNo)
	}
	if filter.Subject != "" {
		conditions = append(conditions, fmt.Sprintf("subject = $%d", len(args)+1))
		args = append(args, filter.Subject)
	}
	if filter.Date != "" {
		conditions = append(conditions, fmt.Sprintf("date = $%d", len(args)+1))
		args = append(args, filter.Date)
	}
	if filter.Day != "" {
		conditions = append(conditions, fmt.Sprintf("day = $%d", len(args)+1))
		args = append(args, filter.Day)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY date ASC, start_time ASC LIMIT %d OFFSET %d", assignmentColumns, base, size, offset)
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list assignments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count assignments: %w", err)
	}

	return assignments, total, nil
}

// FindByID loads an assignment by id.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	query := fmt.Sprintf("SELECT %s FROM assignments WHERE id = $1", assignmentColumns)
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// ListByProfessor returns a professor's assignments in timetable order.
func (r *AssignmentRepository) ListByProfessor(ctx context.Context, professor string) ([]models.Assignment, error) {
	query := fmt.Sprintf("SELECT %s FROM assignments WHERE professor = $1 ORDER BY date ASC, start_time ASC", assignmentColumns)
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, professor); err != nil {
		return nil, fmt.Errorf("list assignments by professor: %w", err)
	}
	return assignments, nil
}

// ListByGroup returns a group's assignments in timetable order.
func (r *AssignmentRepository) ListByGroup(ctx context.Context, groupNo int) ([]models.Assignment, error) {
	query := fmt.Sprintf("SELECT %s FROM assignments WHERE group_no = $1 ORDER BY date ASC, start_time ASC", assignmentColumns)
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, groupNo); err != nil {
		return nil, fmt.Errorf("list assignments by group: %w", err)
	}
	return assignments, nil
}

// CountByProfessorAndDate counts a professor's classes on one date,
// optionally excluding a record (used when re-validating an update).
func (r *AssignmentRepository) CountByProfessorAndDate(ctx context.Context, professor, date, excludeID string) (int, error) {
	query := "SELECT COUNT(*) FROM assignments WHERE professor = $1 AND date = $2"
	args := []interface{}{professor, date}
	if excludeID != "" {
		query += " AND id != $3"
		args = append(args, excludeID)
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count daily assignments: %w", err)
	}
	return count, nil
}

// FindByDateAndResources returns assignments on a date booked on either
// resource axis: the room or the group.
func (r *AssignmentRepository) FindByDateAndResources(ctx context.Context, date, roomNo string, groupNo int, excludeID string) ([]models.Assignment, error) {
	query := fmt.Sprintf("SELECT %s FROM assignments WHERE date = $1 AND (room_no = $2 OR group_no = $3)", assignmentColumns)
	args := []interface{}{date, roomNo, groupNo}
	if excludeID != "" {
		query += " AND id != $4"
		args = append(args, excludeID)
	}
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, fmt.Errorf("find assignments by date and resources: %w", err)
	}
	return assignments, nil
}

// FindSubjectOwner returns an assignment proving another professor already
// teaches the subject to the group, or sql.ErrNoRows when unowned.
// excludeID keeps the record being rewritten out of the probe so an update
// cannot collide with itself.
func (r *AssignmentRepository) FindSubjectOwner(ctx context.Context, groupNo int, subject, otherThanProfessor, excludeID string) (*models.Assignment, error) {
	query := fmt.Sprintf("SELECT %s FROM assignments WHERE group_no = $1 AND subject = $2 AND professor != $3", assignmentColumns)
	args := []interface{}{groupNo, subject, otherThanProfessor}
	if excludeID != "" {
		query += " AND id != $4"
		args = append(args, excludeID)
	}
	query += " LIMIT 1"
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, args...); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// InsertBatch stores all assignments of one request within a transaction.
// Either every record is committed or none is.
func (r *AssignmentRepository) InsertBatch(ctx context.Context, assignments []models.Assignment) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assignment batch: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for i := range assignments {
		payload := assignments[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		payload.UpdatedAt = now

		if _, err = tx.NamedExecContext(ctx, `INSERT INTO assignments (id, professor, subject, subject_id, group_no, room_no, start_time, end_time, date, day, created_at, updated_at) VALUES (:id, :professor, :subject, :subject_id, :group_no, :room_no, :start_time, :end_time, :date, :day, :created_at, :updated_at)`, &payload); err != nil {
			err = fmt.Errorf("insert assignment: %w", err)
			return err
		}
		assignments[i] = payload
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("commit assignment batch: %w", err)
		return err
	}
	return nil
}

// Update modifies an assignment record.
func (r *AssignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	assignment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE assignments SET professor = :professor, subject = :subject, subject_id = :subject_id, group_no = :group_no, room_no = :room_no, start_time = :start_time, end_time = :end_time, date = :date, day = :day, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	return nil
}

// Delete removes an assignment by id.
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return nil
}

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// failure. The engine maps a lost write race onto the same conflict error
// its pre-check would have produced.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// IsNotFound reports whether err means no row matched.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
