package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/acadly/timetable-api/internal/models"
	"github.com/acadly/timetable-api/internal/repository"
	"github.com/acadly/timetable-api/internal/timetable"
	appErrors "github.com/acadly/timetable-api/pkg/errors"
)

// maxDailyClasses is the per-professor cap of sessions on one date.
const maxDailyClasses = 3

type assignmentRepository interface {
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, int, error)
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	ListByProfessor(ctx context.Context, professor string) ([]models.Assignment, error)
	ListByGroup(ctx context.Context, groupNo int) ([]models.Assignment, error)
	CountByProfessorAndDate(ctx context.Context, professor, date, excludeID string) (int, error)
	FindByDateAndResources(ctx context.Context, date, roomNo string, groupNo int, excludeID string) ([]models.Assignment, error)
	FindSubjectOwner(ctx context.Context, groupNo int, subject, otherThanProfessor, excludeID string) (*models.Assignment, error)
	InsertBatch(ctx context.Context, assignments []models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id string) error
}

type professorDirectory interface {
	FindProfessor(ctx context.Context, username string) (*models.Professor, error)
}

// AssignScheduleRequest describes payload for assigning a weekly slot.
// GroupNo carries no validator range; the room resolver owns group
// rejection so out-of-range groups report INVALID_GROUP.
type AssignScheduleRequest struct {
	Professor string `json:"professor" validate:"required"`
	Subject   string `json:"subject" validate:"required"`
	GroupNo   int    `json:"group_no"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Date      string `json:"date" validate:"required"`
}

// UpdateAssignmentRequest rewrites a single assignment occurrence. Every
// field is re-validated and re-resolved as if newly created.
type UpdateAssignmentRequest struct {
	Professor string `json:"professor" validate:"required"`
	Subject   string `json:"subject" validate:"required"`
	GroupNo   int    `json:"group_no"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Date      string `json:"date" validate:"required"`
}

// AssignmentService is the schedule-assignment and conflict-resolution
// engine. One call is one unit of work: it either commits the whole
// monthly batch or writes nothing.
type AssignmentService struct {
	repo           assignmentRepository
	directory      professorDirectory
	validator      *validator.Validate
	logger         *zap.Logger
	storageTimeout time.Duration

	// locks serializes check-then-write per (date, room) and
	// (date, group) key. The unique indexes on assignments are the
	// backstop for multi-process deployments.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewAssignmentService instantiates the engine.
func NewAssignmentService(repo assignmentRepository, directory professorDirectory, validate *validator.Validate, logger *zap.Logger, storageTimeout time.Duration) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if storageTimeout <= 0 {
		storageTimeout = 5 * time.Second
	}
	return &AssignmentService{
		repo:           repo,
		directory:      directory,
		validator:      validate,
		logger:         logger,
		storageTimeout: storageTimeout,
		locks:          make(map[string]*sync.Mutex),
	}
}

// Assign validates the requested slot, expands it into a one-month weekly
// recurrence and commits all four occurrences, or rejects the request with
// a structured diagnostic and writes nothing.
func (s *AssignmentService) Assign(ctx context.Context, req AssignScheduleRequest) ([]models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	if !timetable.ValidSlot(req.StartTime, req.EndTime) {
		return nil, appErrors.Clone(appErrors.ErrInvalidSlot, fmt.Sprintf("invalid time slot: %s-%s", req.StartTime, req.EndTime))
	}

	roomNo, ok := timetable.RoomFor(req.GroupNo)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidGroup, fmt.Sprintf("invalid group number: %d", req.GroupNo))
	}

	occurrences, err := timetable.ExpandWeekly(req.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidDate.Code, appErrors.ErrInvalidDate.Status, appErrors.ErrInvalidDate.Message)
	}

	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	subjectID, err := s.resolveSubject(ctx, req.Professor, req.Subject)
	if err != nil {
		return nil, err
	}

	unlock := s.lockResources(occurrences, roomNo, req.GroupNo)
	defer unlock()

	if err := s.checkOwnership(ctx, req.GroupNo, req.Subject, req.Professor, ""); err != nil {
		return nil, err
	}

	newStart, err := timetable.MinuteOfDay(req.StartTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidSlot.Code, appErrors.ErrInvalidSlot.Status, appErrors.ErrInvalidSlot.Message)
	}
	newEnd, err := timetable.MinuteOfDay(req.EndTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidSlot.Code, appErrors.ErrInvalidSlot.Status, appErrors.ErrInvalidSlot.Message)
	}

	// Validate every date before writing anything: a mid-batch rejection
	// must leave the store untouched.
	batch := make([]models.Assignment, 0, len(occurrences))
	for _, occ := range occurrences {
		if err := s.checkDailyLoad(ctx, req.Professor, occ.Date, ""); err != nil {
			return nil, err
		}
		if err := s.checkOverlaps(ctx, occ.Date, roomNo, req.GroupNo, newStart, newEnd, ""); err != nil {
			return nil, err
		}

		batch = append(batch, models.Assignment{
			Professor: req.Professor,
			Subject:   req.Subject,
			SubjectID: subjectID,
			GroupNo:   req.GroupNo,
			RoomNo:    roomNo,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
			Date:      occ.Date,
			Day:       occ.Day,
		})
	}

	if err := s.repo.InsertBatch(ctx, batch); err != nil {
		if repository.IsUniqueViolation(err) {
			// A concurrent writer won the window between check and
			// commit; report it exactly like a pre-write conflict.
			return nil, appErrors.Wrap(err, appErrors.ErrResourceConflict.Code, appErrors.ErrResourceConflict.Status, appErrors.ErrResourceConflict.Message)
		}
		// The transaction rolled back, so nothing was committed and the
		// caller may retry the whole batch.
		return nil, appErrors.Wrap(err, appErrors.ErrTransient.Code, appErrors.ErrTransient.Status, appErrors.ErrTransient.Message)
	}

	s.logger.Info("assignment batch committed",
		zap.String("professor", req.Professor),
		zap.String("subject", req.Subject),
		zap.Int("group_no", req.GroupNo),
		zap.String("start_date", req.Date),
	)
	return batch, nil
}

// Update rewrites one existing occurrence, re-running the full validation
// for its single date while excluding the record from its own conflict and
// load queries.
func (s *AssignmentService) Update(ctx context.Context, id string, req UpdateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	if !timetable.ValidSlot(req.StartTime, req.EndTime) {
		return nil, appErrors.Clone(appErrors.ErrInvalidSlot, fmt.Sprintf("invalid time slot: %s-%s", req.StartTime, req.EndTime))
	}

	roomNo, ok := timetable.RoomFor(req.GroupNo)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidGroup, fmt.Sprintf("invalid group number: %d", req.GroupNo))
	}

	day, err := timetable.WeekdayName(req.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidDate.Code, appErrors.ErrInvalidDate.Status, appErrors.ErrInvalidDate.Message)
	}

	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, s.storageError(err, "failed to load assignment")
	}

	subjectID, err := s.resolveSubject(ctx, req.Professor, req.Subject)
	if err != nil {
		return nil, err
	}

	unlock := s.lockResources([]timetable.Occurrence{{Date: req.Date, Day: day}}, roomNo, req.GroupNo)
	defer unlock()

	if err := s.checkOwnership(ctx, req.GroupNo, req.Subject, req.Professor, existing.ID); err != nil {
		return nil, err
	}

	newStart, _ := timetable.MinuteOfDay(req.StartTime)
	newEnd, _ := timetable.MinuteOfDay(req.EndTime)

	if err := s.checkDailyLoad(ctx, req.Professor, req.Date, existing.ID); err != nil {
		return nil, err
	}
	if err := s.checkOverlaps(ctx, req.Date, roomNo, req.GroupNo, newStart, newEnd, existing.ID); err != nil {
		return nil, err
	}

	updated := models.Assignment{
		ID:        existing.ID,
		Professor: req.Professor,
		Subject:   req.Subject,
		SubjectID: subjectID,
		GroupNo:   req.GroupNo,
		RoomNo:    roomNo,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Date:      req.Date,
		Day:       day,
		CreatedAt: existing.CreatedAt,
	}

	if err := s.repo.Update(ctx, &updated); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Wrap(err, appErrors.ErrResourceConflict.Code, appErrors.ErrResourceConflict.Status, appErrors.ErrResourceConflict.Message)
		}
		return nil, s.storageError(err, "failed to update assignment")
	}
	return &updated, nil
}

// Delete removes a single occurrence. No cascading effects.
func (s *AssignmentService) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return s.storageError(err, "failed to load assignment")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.storageError(err, "failed to delete assignment")
	}
	return nil
}

// List returns assignments with pagination metadata.
func (s *AssignmentService) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, *models.Pagination, error) {
	assignments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, s.storageError(err, "failed to list assignments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return assignments, pagination, nil
}

// ListByProfessor returns a professor's timetable in chronological order.
func (s *AssignmentService) ListByProfessor(ctx context.Context, professor string) ([]models.Assignment, error) {
	assignments, err := s.repo.ListByProfessor(ctx, professor)
	if err != nil {
		return nil, s.storageError(err, "failed to list professor assignments")
	}
	if len(assignments) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no schedules assigned for professor %s", professor))
	}
	return assignments, nil
}

// ListByGroup returns a group's timetable after validating the group.
func (s *AssignmentService) ListByGroup(ctx context.Context, groupNo int) ([]models.Assignment, error) {
	if _, ok := timetable.RoomFor(groupNo); !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidGroup, fmt.Sprintf("invalid group number: %d", groupNo))
	}
	assignments, err := s.repo.ListByGroup(ctx, groupNo)
	if err != nil {
		return nil, s.storageError(err, "failed to list group assignments")
	}
	return assignments, nil
}

// resolveSubject maps a (professor, subject name) pair onto the subject id
// from the professor's directory entry.
func (s *AssignmentService) resolveSubject(ctx context.Context, professor, subject string) (string, error) {
	entry, err := s.directory.FindProfessor(ctx, professor)
	if err != nil {
		if repository.IsNotFound(err) {
			return "", appErrors.Clone(appErrors.ErrProfessorNotFound, fmt.Sprintf("professor not found: %s", professor))
		}
		return "", s.storageError(err, "failed to load professor directory entry")
	}

	subjectID, ok := entry.SubjectFor(subject)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrSubjectNotOwned, fmt.Sprintf("subject %q not assigned to professor %s", subject, professor))
	}
	return subjectID, nil
}

// checkOwnership enforces that a subject taught to a group belongs to one
// professor at a time. The check ignores date and time entirely; excludeID
// keeps an updated record from blocking its own reassignment.
func (s *AssignmentService) checkOwnership(ctx context.Context, groupNo int, subject, professor, excludeID string) error {
	owner, err := s.repo.FindSubjectOwner(ctx, groupNo, subject, professor, excludeID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		return s.storageError(err, "failed to check subject ownership")
	}
	return s.wrapConflict("OWNERSHIP", appErrors.ErrSubjectTaken,
		fmt.Sprintf("%s already teaches %s to group %d (%s %s-%s)", owner.Professor, subject, groupNo, owner.Date, owner.StartTime, owner.EndTime),
		*owner)
}

func (s *AssignmentService) checkDailyLoad(ctx context.Context, professor, date, excludeID string) error {
	count, err := s.repo.CountByProfessorAndDate(ctx, professor, date, excludeID)
	if err != nil {
		return s.storageError(err, "failed to count daily assignments")
	}
	if count >= maxDailyClasses {
		return appErrors.Clone(appErrors.ErrDailyLimit,
			fmt.Sprintf("professor %s has reached the daily limit of %d classes on %s", professor, maxDailyClasses, date))
	}
	return nil
}

func (s *AssignmentService) checkOverlaps(ctx context.Context, date, roomNo string, groupNo, newStart, newEnd int, excludeID string) error {
	existing, err := s.repo.FindByDateAndResources(ctx, date, roomNo, groupNo, excludeID)
	if err != nil {
		return s.storageError(err, "failed to query booked resources")
	}

	for _, item := range existing {
		itemStart, err := timetable.MinuteOfDay(item.StartTime)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored assignment has malformed time")
		}
		itemEnd, err := timetable.MinuteOfDay(item.EndTime)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored assignment has malformed time")
		}

		if timetable.Overlaps(newStart, newEnd, itemStart, itemEnd) {
			dimension := "ROOM"
			if item.GroupNo == groupNo {
				dimension = "GROUP"
				if item.RoomNo == roomNo {
					dimension = "ROOM_AND_GROUP"
				}
			}
			return s.wrapConflict(dimension, appErrors.ErrResourceConflict,
				fmt.Sprintf("%s is already scheduled in %s for group %d on %s from %s to %s", item.Professor, item.RoomNo, item.GroupNo, item.Date, item.StartTime, item.EndTime),
				item)
		}
	}
	return nil
}

func (s *AssignmentService) wrapConflict(dimension string, kind *appErrors.Error, message string, existing models.Assignment) error {
	conflict := models.AssignmentConflict{
		AssignmentID: existing.ID,
		Professor:    existing.Professor,
		Subject:      existing.Subject,
		GroupNo:      existing.GroupNo,
		RoomNo:       existing.RoomNo,
		StartTime:    existing.StartTime,
		EndTime:      existing.EndTime,
		Date:         existing.Date,
		Dimension:    dimension,
	}
	domainErr := &models.AssignmentConflictError{Type: dimension, Message: message, Conflict: conflict}
	return appErrors.Wrap(domainErr, kind.Code, kind.Status, message)
}

// storageError distinguishes a timed-out or cancelled storage call, which
// is safe to retry, from a genuine internal failure.
func (s *AssignmentService) storageError(err error, message string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return appErrors.Wrap(err, appErrors.ErrTransient.Code, appErrors.ErrTransient.Status, appErrors.ErrTransient.Message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// lockResources acquires the per-(date, room) and per-(date, group) locks
// for every occurrence, in sorted key order to keep acquisition
// deadlock-free, and returns the matching unlock.
func (s *AssignmentService) lockResources(occurrences []timetable.Occurrence, roomNo string, groupNo int) func() {
	keys := make([]string, 0, len(occurrences)*2)
	for _, occ := range occurrences {
		keys = append(keys, fmt.Sprintf("room:%s:%s", occ.Date, roomNo))
		keys = append(keys, fmt.Sprintf("group:%s:%d", occ.Date, groupNo))
	}
	sort.Strings(keys)

	locked := make([]*sync.Mutex, 0, len(keys))
	for _, key := range keys {
		s.mu.Lock()
		m, ok := s.locks[key]
		if !ok {
			m = &sync.Mutex{}
			s.locks[key] = m
		}
		s.mu.Unlock()
		m.Lock()
		locked = append(locked, m)
	}

	return func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].Unlock()
		}
	}
}
