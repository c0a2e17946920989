package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/david/contract-radar/internal/aggregate"
	"github.com/david/contract-radar/internal/cache"
	"github.com/david/contract-radar/internal/config"
	"github.com/david/contract-radar/internal/ratelimit"
	"github.com/david/contract-radar/internal/source"
)

// fetch_page runs one aggregation pass against the live tier chain and
// prints the result. Handy for checking credentials and upstream health
// without starting the server.
func main() {
	configPath := flag.String("config", "", "path to a YAML config overlay")
	state := flag.String("state", "", "two-letter place-of-performance state filter")
	naics := flag.String("naics", "", "NAICS industry code filter")
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

	agg := aggregate.New(
		aggregate.NewSamGovTier(samgov),
		[]aggregate.Tier{
			aggregate.NewFPDSTier(source.NewFPDSClient(cfg.FPDS.BaseURL)),
			aggregate.NewUSASpendingTier(source.NewUSASpendingClient(cfg.USASpend.BaseURL)),
		},
		aggregate.Config{
			PageSize:  cfg.Aggregate.PageSize,
			BaseQuery: source.Query{State: *state, NAICSCode: *naics},
		},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	agg.Refresh(ctx)
	snap := agg.Snapshot()

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "Date", "Agency", "Vendor", "Amount", "NAICS", "State", "Set-Aside"})
	for _, r := range snap.Records {
		t.AppendRow(table.Row{r.ID, r.Date, truncate(r.Agency, 28), truncate(r.Vendor, 28), fmt.Sprintf("%.2f", r.Amount), r.NAICSCode, r.State, truncate(r.SetAside, 24)})
	}
	t.Render()

	fmt.Printf("total known: %d, has more: %v\n", snap.TotalKnown, snap.HasMore)
	if snap.Advisory != "" {
		fmt.Printf("advisory: %s\n", snap.Advisory)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
