package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/acadly/timetable-api/internal/models"
)

// UserRepository provides database access for users and the professor
// directory, including each professor's subject list.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByUsername returns a user by username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	const query = `SELECT id, username, full_name, password_hash, role, active, last_login, created_at, updated_at FROM users WHERE username = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		return nil, err
	}
	return &user, nil
}

// ExistsByUsername reports whether the username is already registered.
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, username); err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return exists, nil
}

// FindProfessor returns a professor's directory entry with the ordered
// subject list, or sql.ErrNoRows for unknown or non-professor usernames.
func (r *UserRepository) FindProfessor(ctx context.Context, username string) (*models.Professor, error) {
	const userQuery = `SELECT id, username, full_name, password_hash, role, active, last_login, created_at, updated_at FROM users WHERE username = $1 AND role = $2 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, userQuery, username, models.RoleProfessor); err != nil {
		return nil, err
	}

	subjects, err := r.subjectsFor(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &models.Professor{
		ID:       user.ID,
		Username: user.Username,
		FullName: user.FullName,
		Subjects: subjects,
	}, nil
}

// ListProfessors returns every professor with their subject lists.
func (r *UserRepository) ListProfessors(ctx context.Context) ([]models.Professor, error) {
	const query = `SELECT id, username, full_name, password_hash, role, active, last_login, created_at, updated_at FROM users WHERE role = $1 ORDER BY username ASC`
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, models.RoleProfessor); err != nil {
		return nil, fmt.Errorf("list professors: %w", err)
	}

	professors := make([]models.Professor, 0, len(users))
	for _, user := range users {
		subjects, err := r.subjectsFor(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		professors = append(professors, models.Professor{
			ID:       user.ID,
			Username: user.Username,
			FullName: user.FullName,
			Subjects: subjects,
		})
	}
	return professors, nil
}

func (r *UserRepository) subjectsFor(ctx context.Context, professorID string) ([]models.SubjectEntry, error) {
	const query = `SELECT subject_name, subject_id FROM professor_subjects WHERE professor_id = $1 ORDER BY position ASC`
	var subjects []models.SubjectEntry
	if err := r.db.SelectContext(ctx, &subjects, query, professorID); err != nil {
		return nil, fmt.Errorf("list professor subjects: %w", err)
	}
	return subjects, nil
}

// CreateProfessor stores a professor and their subject list atomically.
func (r *UserRepository) CreateProfessor(ctx context.Context, user *models.User, subjects []models.SubjectEntry) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create professor: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Role = models.RoleProfessor
	user.Active = true
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err = tx.NamedExecContext(ctx, `INSERT INTO users (id, username, full_name, password_hash, role, active, created_at, updated_at) VALUES (:id, :username, :full_name, :password_hash, :role, :active, :created_at, :updated_at)`, user); err != nil {
		err = fmt.Errorf("insert user: %w", err)
		return err
	}

	for i, subject := range subjects {
		if _, err = tx.ExecContext(ctx, `INSERT INTO professor_subjects (id, professor_id, subject_name, subject_id, position) VALUES ($1, $2, $3, $4, $5)`,
			uuid.NewString(), user.ID, subject.SubjectName, subject.SubjectID, i); err != nil {
			err = fmt.Errorf("insert professor subject: %w", err)
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("commit create professor: %w", err)
		return err
	}
	return nil
}

// UpdateLastLogin updates the last_login timestamp for a user.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE users SET last_login = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}
