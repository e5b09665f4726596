package di

import (
	"fmt"

	"github.com/opto-ai/opto/internal/clients/openai"
	"github.com/opto-ai/opto/internal/config"
	"github.com/opto-ai/opto/internal/metrics"
	"github.com/opto-ai/opto/internal/modules/advisor"
	"github.com/opto-ai/opto/internal/modules/inference"
	"github.com/opto-ai/opto/internal/modules/portfolio"
	"github.com/opto-ai/opto/internal/modules/reference"
	"github.com/rs/zerolog"
)

// InitializeServices builds reference data, repositories, clients and
// services on top of an initialized container
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	store, err := reference.NewStore(cfg.ReferenceDataPath, log)
	if err != nil {
		return fmt.Errorf("failed to load reference data: %w", err)
	}
	container.ReferenceStore = store

	container.InferenceRepo = inference.NewRepository(container.InferenceDB.Conn(), log)
	if cfg.InferenceLog.Enabled {
		container.InferenceLogger = inference.NewLogger(container.InferenceRepo, log)
	}

	collector, err := metrics.NewCollector()
	if err != nil {
		return fmt.Errorf("failed to create metrics collector: %w", err)
	}
	container.Metrics = collector

	// The advisor stays registered without a key and answers 503
	var assistant advisor.Assistant
	if cfg.AssistantEnabled() {
		client, err := openai.NewClient(openai.Config{
			APIKey:     cfg.OpenAI.APIKey,
			Model:      cfg.OpenAI.Model,
			BaseURL:    cfg.OpenAI.BaseURL,
			Timeout:    cfg.OpenAI.Timeout,
			MaxRetries: cfg.OpenAI.MaxRetries,
			MaxTokens:  cfg.OpenAI.MaxTokens,
		}, container.InferenceLogger, collector, log)
		if err != nil {
			return fmt.Errorf("failed to create OpenAI client: %w", err)
		}
		container.OpenAIClient = client
		assistant = client
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set, chat endpoint disabled")
	}
	container.AdvisorService = advisor.NewService(assistant, store, collector, log)

	dashboard, err := loadDashboard(cfg.DashboardDataPath)
	if err != nil {
		return err
	}
	container.PortfolioService = portfolio.NewService(dashboard, store, log)

	return nil
}

func loadDashboard(path string) (*portfolio.Dashboard, error) {
	if path == "" {
		d, err := portfolio.DefaultDashboard()
		if err != nil {
			return nil, fmt.Errorf("failed to load embedded dashboard: %w", err)
		}
		return d, nil
	}
	d, err := portfolio.LoadDashboard(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load dashboard %s: %w", path, err)
	}
	return d, nil
}
