package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/iandry357/jobpulse/internal/enrich"
	"github.com/iandry357/jobpulse/internal/francetravail"
	"github.com/iandry357/jobpulse/internal/lifecycle"
	"github.com/iandry357/jobpulse/internal/llm"
	"github.com/iandry357/jobpulse/internal/pipeline"
	"github.com/iandry357/jobpulse/internal/profile"
	"github.com/iandry357/jobpulse/internal/scoring"
	"github.com/iandry357/jobpulse/internal/secrets"
	"github.com/iandry357/jobpulse/internal/store"
	"github.com/iandry357/jobpulse/internal/voyage"
)

// application is the fully wired object graph behind the serve, run and
// enrich commands.
type application struct {
	pipeline *pipeline.Pipeline
	enricher *enrich.Service
	pool     *pgxpool.Pool
}

func (a *application) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

func buildApplication(ctx context.Context, config *Config, logger *zap.Logger) (*application, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.Database == nil || config.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if config.FranceTravail == nil || config.FranceTravail.ClientID == "" {
		return nil, errors.New("france-travail.client-id is required")
	}
	if config.Voyage == nil {
		return nil, errors.New("voyage section is required")
	}

	clientSecret, err := secrets.Load(secrets.Source{
		Name: "france travail client secret",
		File: config.FranceTravail.ClientSecretFile,
	})
	if err != nil {
		return nil, err
	}

	voyageKey, err := secrets.Load(secrets.Source{
		Name: "voyage api key",
		File: config.Voyage.APIKeyFile,
	})
	if err != nil {
		return nil, err
	}

	creds, err := loadGenerationCredentials(config)
	if err != nil {
		return nil, err
	}

	pool, err := store.NewPool(ctx, config.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	postings := store.NewPostgres(pool)
	reports := store.NewPostgresReports(pool)
	experiences := store.NewPostgresExperiences(pool)

	tokens := francetravail.NewTokenManager(logger, config.FranceTravail.ClientID, clientSecret)
	ft := francetravail.New(logger, tokens)

	vg := voyage.New(logger, voyageKey)
	if config.Voyage.EmbeddingModel != "" {
		vg.EmbeddingModel = config.Voyage.EmbeddingModel
	}
	if config.Voyage.RerankModel != "" {
		vg.RerankModel = config.Voyage.RerankModel
	}

	threshold := scoring.DefaultThreshold
	topK := scoring.DefaultTopK
	if config.Scoring != nil {
		if config.Scoring.Threshold > 0 {
			threshold = config.Scoring.Threshold
		}
		if config.Scoring.TopK > 0 {
			topK = config.Scoring.TopK
		}
	}
	engine := scoring.NewEngine(vg, vg, threshold, topK, logger)

	profileBuilder := profile.NewBuilder(experiences)
	reconciler := lifecycle.NewReconciler(postings, logger)

	generator := llm.NewFallbackClient(llm.DefaultProviders(creds, config.PrimaryModel()), logger)
	orchestrator := enrich.NewOrchestrator(generator, logger)
	enricher := enrich.NewService(orchestrator, postings, reports, profileBuilder, logger)

	return &application{
		pipeline: pipeline.New(profileBuilder, ft, ft, engine, reconciler, logger),
		enricher: enricher,
		pool:     pool,
	}, nil
}

// loadGenerationCredentials reads every configured provider key file. A
// missing file entry only disables that provider; a configured but unreadable
// file is an error.
func loadGenerationCredentials(config *Config) (llm.Credentials, error) {
	if config.LLM == nil {
		return llm.Credentials{}, nil
	}

	var creds llm.Credentials
	for _, entry := range []struct {
		name string
		file string
		dest *string
	}{
		{"mistral api key", config.LLM.MistralAPIKeyFile, &creds.Mistral},
		{"openai api key", config.LLM.OpenAIAPIKeyFile, &creds.OpenAI},
		{"groq api key", config.LLM.GroqAPIKeyFile, &creds.Groq},
		{"gemini api key", config.LLM.GeminiAPIKeyFile, &creds.Gemini},
	} {
		if entry.file == "" {
			continue
		}
		value, err := secrets.Load(secrets.Source{Name: entry.name, File: entry.file})
		if err != nil {
			return llm.Credentials{}, err
		}
		*entry.dest = value
	}
	return creds, nil
}

func pipelineRegion(config *Config) string {
	if config.Pipeline == nil {
		return ""
	}
	return config.Pipeline.Region
}

func pipelineCronSpec(config *Config) string {
	if config.Pipeline == nil {
		return ""
	}
	return config.Pipeline.CronSpec
}
