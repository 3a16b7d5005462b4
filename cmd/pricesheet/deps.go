package main

import (
	"context"
	"log"
	"time"

	"github.com/pricesheet/worker/config"
	"github.com/pricesheet/worker/internal/domain"
	"github.com/pricesheet/worker/internal/infrastructure/cache"
	"github.com/pricesheet/worker/internal/infrastructure/history"
	"github.com/pricesheet/worker/internal/infrastructure/sheets"
	"github.com/pricesheet/worker/internal/infrastructure/shopping"
	"github.com/pricesheet/worker/internal/usecase"
)

// deps is the wired application plus the cleanups of its resources
type deps struct {
	service *usecase.PriceService
	closers []func()
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// buildDeps wires infrastructure and the price service. In dry-run mode rows
// are logged instead of written and no history is recorded.
func buildDeps(ctx context.Context, cfg *config.Config, dryRun bool) (*deps, error) {
	policy, err := cfg.FilterPolicy()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	d := &deps{}

	provider := buildProvider(cfg, d)

	var cacheRepo domain.CacheRepository
	if cfg.Cache.Type == "memory" {
		memoryCache := cache.NewMemoryCache()
		d.closers = append(d.closers, memoryCache.Close)
		cacheRepo = memoryCache
		log.Printf("Cache TTL: %s", cfg.Cache.TTL)
	}

	sheetsClient := sheets.NewClient(sheets.Config{
		BaseURL:         cfg.Sheets.BaseURL,
		SpreadsheetID:   cfg.Sheets.SpreadsheetID,
		SheetName:       cfg.Sheets.SheetName,
		AccessToken:     cfg.Sheets.AccessToken,
		APIKey:          cfg.Sheets.APIKey,
		HeaderRows:      headerRows(cfg.Sheets.HeaderRows),
		OffersColumn:    cfg.Sheets.OffersColumn,
		TimestampColumn: cfg.Sheets.TimestampColumn,
		Location:        loc,
		Timeout:         cfg.Sheets.Timeout,
	})

	// Enable debug mode in development environment
	if cfg.Sheets.Debug || cfg.Server.Environment == "development" {
		sheetsClient.SetDebug(true)
		log.Printf("Sheets client debug mode enabled")
	}

	var sink domain.RowSink = sheetsClient
	if dryRun {
		sink = &logSink{location: loc}
	}

	var historyRepo domain.HistoryRepository
	if cfg.History.Enabled && !dryRun {
		repo, err := openHistory(ctx, cfg)
		if err != nil {
			log.Printf("[HISTORY] WARNING: history disabled: %v", err)
		} else {
			d.closers = append(d.closers, func() { repo.Close(context.Background()) })
			historyRepo = repo
		}
	}

	d.service = usecase.NewPriceService(provider, cacheRepo, sink, sheetsClient, historyRepo, usecase.PriceServiceConfig{
		Policy:             policy,
		CacheTTL:           cfg.Cache.TTL,
		Parallelism:        cfg.Matching.Parallelism,
		EnableDebugLogging: cfg.Matching.EnableDebugLogging,
	})

	log.Printf("Matching: parallelism=%d, max offers=%d, debug=%v",
		cfg.Matching.Parallelism, policy.MaxOffers(), cfg.Matching.EnableDebugLogging)

	return d, nil
}

// openHistory connects to the offer history store
func openHistory(ctx context.Context, cfg *config.Config) (*history.MongoRepository, error) {
	return history.NewMongoRepository(ctx, history.Config{
		URI:        cfg.History.MongoURI,
		Database:   cfg.History.Database,
		Collection: cfg.History.Collection,
		Timeout:    cfg.History.Timeout,
	})
}

func buildProvider(cfg *config.Config, d *deps) domain.FragmentProvider {
	selectors := shopping.Selectors{
		SearchBox:  cfg.Provider.Selectors.SearchBox,
		Result:     cfg.Provider.Selectors.Result,
		Name:       cfg.Provider.Selectors.Name,
		Price:      cfg.Provider.Selectors.Price,
		LinkMarker: cfg.Provider.Selectors.LinkMarker,
	}

	if cfg.Provider.Type == "browser" {
		provider := shopping.NewBrowserProvider(shopping.BrowserConfig{
			HomeURL:      cfg.Provider.HomeURL,
			Bin:          cfg.Provider.BrowserBin,
			Headless:     cfg.Provider.Headless,
			Timeout:      cfg.Provider.Timeout,
			PollInterval: cfg.Provider.PollInterval,
			Selectors:    selectors,
			Debug:        cfg.Provider.Debug,
		})
		d.closers = append(d.closers, func() {
			if err := provider.Close(); err != nil {
				log.Printf("[BROWSER] Close failed: %v", err)
			}
		})
		log.Printf("Provider: browser (%s)", cfg.Provider.HomeURL)
		return provider
	}

	log.Printf("Provider: colly (%d requests/min)", cfg.Provider.RequestsPerMinute)
	return shopping.NewCollyProvider(shopping.CollyConfig{
		SearchURL:         cfg.Provider.SearchURL,
		UserAgent:         cfg.Provider.UserAgent,
		Timeout:           cfg.Provider.Timeout,
		RequestsPerMinute: cfg.Provider.RequestsPerMinute,
		MaxRetries:        cfg.Provider.MaxRetries,
		Selectors:         selectors,
		Debug:             cfg.Provider.Debug,
	})
}

// headerRows maps the config value onto the sheets client. In config 0 means
// the sheet has no header; the client reads 0 as its default of one header
// row and a negative value as none.
func headerRows(n int) int {
	if n == 0 {
		return -1
	}
	return n
}

// logSink prints rows instead of writing them
type logSink struct {
	location *time.Location
}

func (s *logSink) WriteRow(ctx context.Context, rowIndex int, row domain.ProductRow) error {
	ts := "-"
	if row.HasTimestamp() {
		ts = row.Timestamp(s.location)
	}
	log.Printf("[DRY-RUN] Row %d %q: %d offers, timestamp %s, cells %v",
		rowIndex, row.Name, len(row.Offers), ts, sheets.MapRowToValues(row)[0])
	return nil
}
