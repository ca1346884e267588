package database

import (
	"github.com/robalyx/sentinel/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	user     *models.UserModel
	tracking *models.TrackingModel
	schedule *models.ScheduleModel
	stats    *models.StatsModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		user:     models.NewUser(db, logger),
		tracking: models.NewTracking(db, logger),
		schedule: models.NewSchedule(db, logger),
		stats:    models.NewStats(db, logger),
	}
}

// User returns the user model repository.
func (r *Repository) User() *models.UserModel {
	return r.user
}

// Tracking returns the tracking model repository.
func (r *Repository) Tracking() *models.TrackingModel {
	return r.tracking
}

// Schedule returns the scheduled message model repository.
func (r *Repository) Schedule() *models.ScheduleModel {
	return r.schedule
}

// Stats returns the stats model repository.
func (r *Repository) Stats() *models.StatsModel {
	return r.stats
}
