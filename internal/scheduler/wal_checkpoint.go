package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/opto-ai/opto/internal/database"
	"github.com/rs/zerolog"
)

// walWarnFrames is the WAL size above which a truncating checkpoint is forced
const walWarnFrames = 1000

// WALCheckpointJob checks WAL growth on each database and truncates it
// when it gets large
type WALCheckpointJob struct {
	databases []*database.DB
	log       zerolog.Logger
}

// NewWALCheckpointJob creates a new WALCheckpointJob
func NewWALCheckpointJob(log zerolog.Logger, databases ...*database.DB) *WALCheckpointJob {
	return &WALCheckpointJob{
		databases: databases,
		log:       log.With().Str("job", "wal_checkpoint").Logger(),
	}
}

// Name returns the job name
func (j *WALCheckpointJob) Name() string {
	return "wal_checkpoint"
}

// Run executes the WAL checkpoint job
func (j *WALCheckpointJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	failed := 0
	for _, db := range j.databases {
		if db == nil {
			continue
		}

		// PRAGMA wal_checkpoint returns: busy, log, checkpointed
		var busy, frames, checkpointed int
		err := db.Conn().QueryRowContext(ctx, "PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &frames, &checkpointed)
		if err != nil {
			j.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to check WAL checkpoint")
			failed++
			continue
		}

		if frames <= walWarnFrames {
			j.log.Debug().
				Str("database", db.Name()).
				Int("wal_frames", frames).
				Msg("WAL checkpoint status OK")
			continue
		}

		j.log.Warn().
			Str("database", db.Name()).
			Int("wal_frames", frames).
			Int("checkpointed", checkpointed).
			Msg("WAL file is large, truncating")
		if err := db.WALCheckpoint(ctx, "TRUNCATE"); err != nil {
			j.log.Error().Err(err).Str("database", db.Name()).Msg("Truncating checkpoint failed")
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("wal checkpoint failed for %d database(s)", failed)
	}
	return nil
}
