package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/canonic/internal/config"
	"github.com/kailas-cloud/canonic/internal/db"
	"github.com/kailas-cloud/canonic/internal/db/memory"
	dbRedis "github.com/kailas-cloud/canonic/internal/db/redis"
	"github.com/kailas-cloud/canonic/internal/domain"
	"github.com/kailas-cloud/canonic/internal/domain/table"
	"github.com/kailas-cloud/canonic/internal/metrics"
	"github.com/kailas-cloud/canonic/internal/repository/dataset"
	"github.com/kailas-cloud/canonic/internal/repository/embcache"
	indexrepo "github.com/kailas-cloud/canonic/internal/repository/index"
	localEmb "github.com/kailas-cloud/canonic/internal/transport/local"
	openaiEmb "github.com/kailas-cloud/canonic/internal/transport/openai"
	catalogu "github.com/kailas-cloud/canonic/internal/usecase/catalog"
	cleaningu "github.com/kailas-cloud/canonic/internal/usecase/cleaning"
	embeddinguc "github.com/kailas-cloud/canonic/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/canonic/internal/usecase/health"
	matchinguc "github.com/kailas-cloud/canonic/internal/usecase/matching"
	reportuc "github.com/kailas-cloud/canonic/internal/usecase/report"
)

// app is the composition root shared by the CLI commands and the HTTP server.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	store    db.Store // nil when the embedding cache is disabled
	provider *embeddinguc.Provider
	holder   *catalogu.Holder
	catalog  *catalogu.Service
	cleaning *cleaningu.Service
	health   *healthuc.Service
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterMatchingMetrics()

	store, err := newCacheStore(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}
	if store != nil {
		logger.Info("Embedding cache ready", zap.String("driver", cfg.Cache.Driver))
	}

	ttl := time.Duration(cfg.Cache.TTLSec) * time.Second
	provider := embeddinguc.NewProvider(
		buildCandidates(cfg.Embedding, store, ttl, logger),
		cfg.Embedding.ProbeText,
		logger,
	)

	repo := indexrepo.New(cfg.Index.Storage, cfg.Index.Path)
	holder := catalogu.NewHolder(repo, openIndex, logger)

	catalogSvc := catalogu.New(provider, repo, holder, readCatalog, logger)
	matchSvc := matchinguc.New(provider, logger)
	reportSvc := reportuc.New(cfg.Matching.ColumnSuffix, dataset.WriteXLSX)
	cleaningSvc := cleaningu.New(holder, matchSvc, reportSvc, readData, cleaningu.Options{
		Threshold:      cfg.Matching.Threshold,
		MinThreshold:   cfg.Matching.MinThreshold,
		MaxThreshold:   cfg.Matching.MaxThreshold,
		ColumnFallback: cfg.Matching.ColumnFallback,
		OutputDir:      cfg.Output.Dir,
	}, logger)

	// Pass nil interface (not typed nil pointer) when no cache is configured.
	var pinger healthuc.CachePinger
	if store != nil {
		pinger = store
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		provider: provider,
		holder:   holder,
		catalog:  catalogSvc,
		cleaning: cleaningSvc,
		health:   healthuc.New(pinger, provider, holder),
	}, nil
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
}

func newCacheStore(ctx context.Context, cfg config.CacheConfig) (db.Store, error) {
	var (
		store db.Store
		err   error
	)
	switch cfg.Driver {
	case "none":
		return nil, nil
	case "memory":
		store = memory.NewStore()
	case "redis", "valkey":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
		})
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("create cache store: %w", err)
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("cache not ready: %w", err)
	}
	return store, nil
}

// buildCandidates turns the ordered model list into lazily built embedder chains.
func buildCandidates(
	cfg config.EmbeddingConfig,
	store db.Store,
	ttl time.Duration,
	logger *zap.Logger,
) []embeddinguc.Candidate {
	candidates := make([]embeddinguc.Candidate, 0, len(cfg.Models))
	for _, m := range cfg.Models {
		provCfg := cfg.Providers[m.Provider]
		candidates = append(candidates, embeddinguc.Candidate{
			ID: m.ID(),
			Load: func(context.Context) (domain.Embedder, error) {
				return buildEmbedder(m, provCfg, store, ttl, cfg.MaxBatchSize, logger), nil
			},
		})
	}
	return candidates
}

// buildEmbedder assembles the decorator chain: base -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	m config.ModelConfig,
	provCfg config.ProviderConfig,
	store db.Store,
	ttl time.Duration,
	maxBatch int,
	logger *zap.Logger,
) domain.Embedder {
	var embedder domain.Embedder
	modelName := m.Model

	if m.Provider == config.LocalProvider {
		// Computing n-gram features is cheaper than a cache round trip.
		embedder = localEmb.NewEmbedder(localEmb.Config{Dimensions: m.Dimensions})
		if modelName == "" {
			modelName = "ngram"
		}
	} else {
		embedder = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     provCfg.APIKey,
			BaseURL:    provCfg.BaseURL,
			Model:      m.Model,
			Dimensions: m.Dimensions,
			Provider:   m.Provider,
			Logger:     logger,
		})
		if store != nil {
			embedder = embcache.New(embedder, store, m.ID(), metrics.EmbeddingCacheTotal, logger).WithTTL(ttl)
		}
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, m.Provider, modelName, logger).
		WithMaxBatchSize(maxBatch)

	// Instruction prefix is outermost so cache keys include it.
	if m.Instruction != "" {
		return domain.NewInstructionEmbedder(embedder, m.Instruction)
	}
	return embedder
}

func openIndex(path string) catalogu.Repository {
	return indexrepo.ForPath(path)
}

// Catalogs may be plain text lists; dirty datasets must be tabular.
func readCatalog(path string) (table.Table, error) {
	return dataset.Read(path, dataset.ReadOptions{AllowText: true})
}

func readData(path string) (table.Table, error) {
	return dataset.Read(path, dataset.ReadOptions{})
}
