package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/acadly/timetable-api/internal/models"
	"github.com/acadly/timetable-api/internal/repository"
	appErrors "github.com/acadly/timetable-api/pkg/errors"
)

type professorRepository interface {
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	FindProfessor(ctx context.Context, username string) (*models.Professor, error)
	ListProfessors(ctx context.Context) ([]models.Professor, error)
	CreateProfessor(ctx context.Context, user *models.User, subjects []models.SubjectEntry) error
}

// RegisterProfessorRequest describes the HOD-gated registration payload.
type RegisterProfessorRequest struct {
	Username string                `json:"username" validate:"required,min=3"`
	FullName string                `json:"full_name" validate:"required"`
	Password string                `json:"password" validate:"required,min=6"`
	Subjects []SubjectEntryRequest `json:"subjects" validate:"required,min=1,dive"`
}

// SubjectEntryRequest is one authorized subject for a new professor.
type SubjectEntryRequest struct {
	SubjectName string `json:"subject_name" validate:"required"`
	SubjectID   string `json:"subject_id" validate:"required"`
}

// ProfessorService manages the professor directory.
type ProfessorService struct {
	repo      professorRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfessorService instantiates ProfessorService.
func NewProfessorService(repo professorRepository, validate *validator.Validate, logger *zap.Logger) *ProfessorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfessorService{repo: repo, validator: validate, logger: logger}
}

// Register creates a professor with their subject list.
func (s *ProfessorService) Register(ctx context.Context, req RegisterProfessorRequest) (*models.Professor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid professor payload")
	}

	exists, err := s.repo.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("username already exists: %s", req.Username))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := models.User{
		Username:     req.Username,
		FullName:     req.FullName,
		PasswordHash: string(hash),
	}
	subjects := make([]models.SubjectEntry, len(req.Subjects))
	for i, subject := range req.Subjects {
		subjects[i] = models.SubjectEntry{SubjectName: subject.SubjectName, SubjectID: subject.SubjectID}
	}

	if err := s.repo.CreateProfessor(ctx, &user, subjects); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register professor")
	}

	s.logger.Info("professor registered", zap.String("username", user.Username))
	return &models.Professor{
		ID:       user.ID,
		Username: user.Username,
		FullName: user.FullName,
		Subjects: subjects,
	}, nil
}

// List returns the full professor directory.
func (s *ProfessorService) List(ctx context.Context) ([]models.Professor, error) {
	professors, err := s.repo.ListProfessors(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list professors")
	}
	return professors, nil
}

// Find returns one professor's directory entry.
func (s *ProfessorService) Find(ctx context.Context, username string) (*models.Professor, error) {
	professor, err := s.repo.FindProfessor(ctx, username)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrProfessorNotFound, fmt.Sprintf("professor not found: %s", username))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor")
	}
	return professor, nil
}
