// Package di provides dependency injection type definitions.
package di

import (
	"github.com/opto-ai/opto/internal/clients/openai"
	"github.com/opto-ai/opto/internal/config"
	"github.com/opto-ai/opto/internal/database"
	"github.com/opto-ai/opto/internal/metrics"
	"github.com/opto-ai/opto/internal/modules/advisor"
	"github.com/opto-ai/opto/internal/modules/inference"
	"github.com/opto-ai/opto/internal/modules/portfolio"
	"github.com/opto-ai/opto/internal/modules/reference"
	"github.com/opto-ai/opto/internal/scheduler"
)

// Container holds all dependencies for the application. It is created by
// Wire and handed to the server, which builds its handlers from it.
type Container struct {
	Config *config.Config

	// Databases
	InferenceDB *database.DB

	// Reference data
	ReferenceStore *reference.Store

	// Repositories
	InferenceRepo *inference.Repository

	// Clients
	OpenAIClient *openai.Client // nil when no API key is configured

	// Services
	InferenceLogger  *inference.Logger // nil when inference logging is disabled
	Metrics          *metrics.Collector
	AdvisorService   *advisor.Service
	PortfolioService *portfolio.Service

	// Background jobs
	Scheduler *scheduler.Scheduler
}

// JobInstances holds the registered jobs for manual triggering
type JobInstances struct {
	InferenceCleanup scheduler.Job
	WALCheckpoint    scheduler.Job
}

// Close flushes pending inference writes and closes the databases
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	c.InferenceLogger.Flush()
	if c.InferenceDB != nil {
		return c.InferenceDB.Close()
	}
	return nil
}
