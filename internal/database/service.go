package database

import (
	"github.com/robalyx/sentinel/internal/database/service"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Service provides access to all business logic services.
type Service struct {
	tracking *service.TrackingService
	schedule *service.ScheduleService
}

// NewService creates a new service instance with all services.
func NewService(_ *bun.DB, repository *Repository, logger *zap.Logger) *Service {
	return &Service{
		tracking: service.NewTracking(repository.Tracking(), repository.User(), logger),
		schedule: service.NewSchedule(repository.Schedule(), logger),
	}
}

// Tracking returns the tracking service.
func (s *Service) Tracking() *service.TrackingService {
	return s.tracking
}

// Schedule returns the schedule service.
func (s *Service) Schedule() *service.ScheduleService {
	return s.schedule
}
