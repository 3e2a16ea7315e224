package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/savir/supportline/internal/call"
	"github.com/savir/supportline/internal/config"
	"github.com/savir/supportline/internal/dialogue"
	"github.com/savir/supportline/internal/escalation"
	"github.com/savir/supportline/internal/httpapi"
	"github.com/savir/supportline/internal/insight"
	"github.com/savir/supportline/internal/matcher"
	"github.com/savir/supportline/internal/observability"
	"github.com/savir/supportline/internal/provider"
	"github.com/savir/supportline/internal/ticket"
)

type BuildResult struct {
	Config   config.Config
	API      *httpapi.Server
	Engine   *call.Engine
	Registry *call.Registry
	Tickets  ticket.Store
	Metrics  *observability.Metrics

	// Cleanup should be called on shutdown to release external resources.
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config, log *logrus.Logger) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	tickets, err := ticket.NewStore(ctx, cfg.DatabaseURL, cfg.EmbeddingDim)
	if err != nil {
		return nil, fmt.Errorf("ticket store init failed: %w", err)
	}

	escalations, err := escalation.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		_ = tickets.Close()
		return nil, fmt.Errorf("escalation store init failed: %w", err)
	}

	prov, err := provider.New(provider.Config{
		Mode:         cfg.ProviderMode,
		OpenAIAPIKey: cfg.OpenAIAPIKey,
		ChatModel:    cfg.OpenAIChatModel,
		EmbedModel:   cfg.OpenAIEmbedModel,
		EmbeddingDim: cfg.EmbeddingDim,
	})
	if err != nil {
		_ = tickets.Close()
		_ = escalations.Close()
		return nil, fmt.Errorf("provider init failed: %w", err)
	}
	prov = provider.WithTimeout(prov, cfg.ProviderTimeout)

	if cfg.SeedTickets {
		if err := seedTickets(ctx, tickets, prov, log); err != nil {
			log.WithError(err).Warn("knowledge base seeding incomplete")
		}
	}

	gen := dialogue.NewGenerator(prov, log)
	registry := call.NewRegistry(cfg.CallIdleTimeout, log)
	recorder := insight.NewRecorder(gen, cfg.AnalyticsURL, cfg.AnalyticsTimeout, log, metrics)

	engine := call.NewEngine(
		registry,
		matcher.New(prov, tickets, cfg.SearchTopK, cfg.SimilarityThreshold, log),
		gen,
		dialogue.NewDetector(),
		escalations,
		recorder,
		call.NewHub(),
		metrics,
		log,
		cfg.MaxTroubleshootRounds,
	)

	api := httpapi.New(cfg, engine, tickets, prov, metrics, log)

	cleanup := func() error {
		var errs []string
		if err := escalations.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if err := tickets.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if len(errs) > 0 {
			return fmt.Errorf("%s", strings.Join(errs, "; "))
		}
		return nil
	}

	return &BuildResult{
		Config:   cfg,
		API:      api,
		Engine:   engine,
		Registry: registry,
		Tickets:  tickets,
		Metrics:  metrics,
		Cleanup:  cleanup,
	}, nil
}

// seedTickets loads the starter knowledge base. Partial failure keeps going:
// an engine with some tickets beats one with none.
func seedTickets(ctx context.Context, store ticket.Store, prov provider.Provider, log *logrus.Logger) error {
	var firstErr error
	seeded := 0
	for _, sample := range ticket.Samples() {
		embedding, err := prov.Embed(ctx, sample.Problem)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("embedding %q: %w", sample.Problem, err)
			}
			continue
		}
		if _, err := store.Add(ctx, ticket.Record{
			Problem:   sample.Problem,
			Solution:  sample.Solution,
			Embedding: embedding,
		}); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("storing %q: %w", sample.Problem, err)
			}
			continue
		}
		seeded++
	}
	log.WithField("count", seeded).Info("seeded knowledge base")
	return firstErr
}
