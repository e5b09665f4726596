package di

import (
	"fmt"

	"github.com/opto-ai/opto/internal/config"
	"github.com/opto-ai/opto/internal/modules/inference"
	"github.com/opto-ai/opto/internal/scheduler"
	"github.com/rs/zerolog"
)

// walCheckpointSchedule runs the WAL check every 15 minutes
const walCheckpointSchedule = "0 */15 * * * *"

// RegisterJobs creates the scheduler and registers maintenance jobs. The
// scheduler is not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	sched := scheduler.New(log)
	instances := &JobInstances{}

	cleanup := inference.NewCleanupJob(container.InferenceRepo, container.InferenceDB, cfg.InferenceLog.RetentionDays, log)
	if err := sched.AddJob(cfg.InferenceLog.CleanupSchedule, cleanup); err != nil {
		return nil, fmt.Errorf("failed to register %s job: %w", cleanup.Name(), err)
	}
	instances.InferenceCleanup = cleanup

	walCheckpoint := scheduler.NewWALCheckpointJob(log, container.InferenceDB)
	if err := sched.AddJob(walCheckpointSchedule, walCheckpoint); err != nil {
		return nil, fmt.Errorf("failed to register %s job: %w", walCheckpoint.Name(), err)
	}
	instances.WALCheckpoint = walCheckpoint

	container.Scheduler = sched

	log.Info().Int("jobs", len(sched.Status())).Msg("Background jobs registered")

	return instances, nil
}
