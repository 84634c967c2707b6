package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/acadly/timetable-api/internal/models"
	appErrors "github.com/acadly/timetable-api/pkg/errors"
)

const analyticsCacheKey = "analytics:schedules"

// AnalyticsRepository describes the persistence layer required by AnalyticsService.
type AnalyticsRepository interface {
	ClassesPerProfessor(ctx context.Context) ([]models.ProfessorLoad, error)
	ClassesPerGroup(ctx context.Context) ([]models.GroupLoad, error)
	ClassesPerDay(ctx context.Context) ([]models.DayLoad, error)
	SubjectDistribution(ctx context.Context) ([]models.SubjectLoad, error)
	ClassesPerProfessorGroup(ctx context.Context) ([]models.ProfessorGroupLoad, error)
}

// AnalyticsService provides read-optimised access to schedule reporting
// with cache integration. It carries no conflict logic.
type AnalyticsService struct {
	repo    AnalyticsRepository
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(repo AnalyticsRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{repo: repo, cache: cache, metrics: metrics, logger: logger}
}

// Schedules returns every grouped count for the dashboard. The boolean
// indicates whether data originated from cache.
func (s *AnalyticsService) Schedules(ctx context.Context) (*models.ScheduleAnalytics, bool, error) {
	var cached models.ScheduleAnalytics
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, analyticsCacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	start := time.Now()
	analytics := &models.ScheduleAnalytics{}
	var err error

	if analytics.ClassesPerProfessor, err = s.repo.ClassesPerProfessor(ctx); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor analytics")
	}
	if analytics.ClassesPerGroup, err = s.repo.ClassesPerGroup(ctx); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group analytics")
	}
	if analytics.ClassesPerDay, err = s.repo.ClassesPerDay(ctx); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load day analytics")
	}
	if analytics.SubjectDistribution, err = s.repo.SubjectDistribution(ctx); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject analytics")
	}
	if analytics.ClassesPerProfessorGroup, err = s.repo.ClassesPerProfessorGroup(ctx); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor-group analytics")
	}

	if s.metrics != nil {
		s.metrics.ObserveDBQuery("analytics_schedules", time.Since(start))
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, analyticsCacheKey, analytics, 0); err != nil {
			s.logger.Warn("cache schedule analytics", zap.Error(err))
		}
	}
	return analytics, false, nil
}

// InvalidateCache drops cached analytics after assignments change.
func (s *AnalyticsService) InvalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, analyticsCacheKey); err != nil {
		s.logger.Warn("invalidate schedule analytics cache", zap.Error(err))
	}
}
