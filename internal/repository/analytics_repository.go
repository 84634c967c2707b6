package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/acadly/timetable-api/internal/models"
)

// AnalyticsRepository exposes read-only grouped counts over assignments.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository instantiates the repository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// ClassesPerProfessor counts assignments grouped by professor, joined
// with the directory for display names.
func (r *AnalyticsRepository) ClassesPerProfessor(ctx context.Context) ([]models.ProfessorLoad, error) {
	const query = `SELECT a.professor, COALESCE(u.full_name, a.professor) AS full_name, COUNT(*) AS count
        FROM assignments a
        LEFT JOIN users u ON u.username = a.professor
        GROUP BY a.professor, u.full_name
        ORDER BY a.professor ASC`
	var loads []models.ProfessorLoad
	if err := r.db.SelectContext(ctx, &loads, query); err != nil {
		return nil, fmt.Errorf("classes per professor: %w", err)
	}
	return loads, nil
}

// ClassesPerGroup counts assignments grouped by group number.
func (r *AnalyticsRepository) ClassesPerGroup(ctx context.Context) ([]models.GroupLoad, error) {
	const query = `SELECT group_no, COUNT(*) AS count FROM assignments GROUP BY group_no ORDER BY group_no ASC`
	var loads []models.GroupLoad
	if err := r.db.SelectContext(ctx, &loads, query); err != nil {
		return nil, fmt.Errorf("classes per group: %w", err)
	}
	return loads, nil
}

// ClassesPerDay counts assignments grouped by weekday name.
func (r *AnalyticsRepository) ClassesPerDay(ctx context.Context) ([]models.DayLoad, error) {
	const query = `SELECT day, COUNT(*) AS count FROM assignments GROUP BY day ORDER BY day ASC`
	var loads []models.DayLoad
	if err := r.db.SelectContext(ctx, &loads, query); err != nil {
		return nil, fmt.Errorf("classes per day: %w", err)
	}
	return loads, nil
}

// SubjectDistribution counts assignments grouped by subject.
func (r *AnalyticsRepository) SubjectDistribution(ctx context.Context) ([]models.SubjectLoad, error) {
	const query = `SELECT subject, COUNT(*) AS count FROM assignments GROUP BY subject ORDER BY subject ASC`
	var loads []models.SubjectLoad
	if err := r.db.SelectContext(ctx, &loads, query); err != nil {
		return nil, fmt.Errorf("subject distribution: %w", err)
	}
	return loads, nil
}

// ClassesPerProfessorGroup counts assignments per (professor, group) pair.
func (r *AnalyticsRepository) ClassesPerProfessorGroup(ctx context.Context) ([]models.ProfessorGroupLoad, error) {
	const query = `SELECT a.professor, COALESCE(u.full_name, a.professor) AS full_name, a.group_no, COUNT(*) AS count
        FROM assignments a
        LEFT JOIN users u ON u.username = a.professor
        GROUP BY a.professor, u.full_name, a.group_no
        ORDER BY a.professor ASC, a.group_no ASC`
	var loads []models.ProfessorGroupLoad
	if err := r.db.SelectContext(ctx, &loads, query); err != nil {
		return nil, fmt.Errorf("classes per professor per group: %w", err)
	}
	return loads, nil
}
