package main

import (
	"context"
	"flag"
	"log"

	"github.com/david/contract-radar/internal/aggregate"
	"github.com/david/contract-radar/internal/ai"
	"github.com/david/contract-radar/internal/api"
	"github.com/david/contract-radar/internal/cache"
	"github.com/david/contract-radar/internal/config"
	"github.com/david/contract-radar/internal/ratelimit"
	"github.com/david/contract-radar/internal/source"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config overlay")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	limiter := ratelimit.New(cfg.SamGov.QuotaCalls, cfg.SamGov.QuotaWindow(), cfg.SamGov.MinSpacing())
	responseCache := cache.New(cfg.SamGov.CacheTTL(), cfg.SamGov.CacheMaxEntries)

	samgov := source.NewSamGovClient(
		cfg.SamGov.BaseURL, cfg.SamGov.APIKey,
		limiter, responseCache,
		cfg.SamGov.CacheTTL(), cfg.SamGov.QuotaCooldown(),
	)
	fpds := source.NewFPDSClient(cfg.FPDS.BaseURL)
	usaspending := source.NewUSASpendingClient(cfg.USASpend.BaseURL)

	agg := aggregate.New(
		aggregate.NewSamGovTier(samgov),
		[]aggregate.Tier{
			aggregate.NewFPDSTier(fpds),
			aggregate.NewUSASpendingTier(usaspending),
		},
		aggregate.Config{
			PageSize:           cfg.Aggregate.PageSize,
			RefreshInterval:    cfg.Aggregate.RefreshInterval(),
			QuotaBackoff:       cfg.Aggregate.QuotaBackoff(),
			UnreachableBackoff: cfg.Aggregate.UnreachableBackoff(),
		},
	)

	if cfg.Aggregate.AutoRefresh {
		go agg.Run(context.Background())
		log.Printf("Auto-refresh enabled, base interval %s", cfg.Aggregate.RefreshInterval())
	}

	var aiClient *ai.OllamaClient
	if cfg.AI.Enabled {
		aiClient = ai.NewOllamaClient(cfg.AI.BaseURL, cfg.AI.GenModel)
		log.Printf("Title rewriter enabled (model %s)", aiClient.GenModel)
	}

	srv := api.NewServer(agg, aiClient, cfg.Server.CORSOrigins)
	log.Printf("Server starting on port %s...", cfg.Server.Port)
	if err := srv.Start(cfg.Server.Port); err != nil {
		log.Fatal(err)
	}
}
