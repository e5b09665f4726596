package inference

import (
	"context"
	"fmt"
	"time"

	"github.com/opto-ai/opto/internal/database"
	"github.com/rs/zerolog"
)

// CleanupJob deletes inference records older than the retention window
type CleanupJob struct {
	repo      *Repository
	db        *database.DB
	retention time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// NewCleanupJob creates a retention job. db may be nil, in which case
// freed pages are not reclaimed.
func NewCleanupJob(repo *Repository, db *database.DB, retentionDays int, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo:      repo,
		db:        db,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		now:       time.Now,
		log:       log.With().Str("job", "inference_cleanup").Logger(),
	}
}

// Name returns the job name
func (j *CleanupJob) Name() string {
	return "inference_cleanup"
}

// Run executes the cleanup
func (j *CleanupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := j.now().Add(-j.retention)
	deleted, err := j.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("inference cleanup failed: %w", err)
	}

	if deleted == 0 {
		j.log.Debug().Time("cutoff", cutoff).Msg("No inference logs to clean up")
		return nil
	}

	if j.db != nil {
		if err := j.db.IncrementalVacuum(ctx); err != nil {
			j.log.Warn().Err(err).Msg("Failed to reclaim space after cleanup")
		}
	}

	j.log.Info().
		Int64("deleted", deleted).
		Time("cutoff", cutoff).
		Msg("Inference log cleanup completed")
	return nil
}
