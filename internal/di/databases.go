package di

import (
	"fmt"

	"github.com/opto-ai/opto/internal/config"
	"github.com/opto-ai/opto/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens the inference log database and applies its
// schema
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{Config: cfg}

	inferenceDB, err := database.New(database.Config{
		Path:    cfg.InferenceDBPath(),
		Profile: database.ProfileStandard,
		Name:    "inference",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize inference database: %w", err)
	}

	if err := inferenceDB.Migrate(); err != nil {
		inferenceDB.Close()
		return nil, fmt.Errorf("failed to migrate inference database: %w", err)
	}
	container.InferenceDB = inferenceDB

	log.Info().Str("path", inferenceDB.Path()).Msg("Inference database ready")

	return container, nil
}
