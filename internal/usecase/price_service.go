package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/pricesheet/worker/internal/domain"
)

// PriceServiceConfig holds configuration for the price service
type PriceServiceConfig struct {
	Policy             domain.Policy
	CacheTTL           time.Duration
	Parallelism        int
	EnableDebugLogging bool
	// Now is the clock used for row timestamps; defaults to time.Now.
	Now func() time.Time
}

// PriceService searches offers for products and writes them back to the sheet
type PriceService struct {
	provider  domain.FragmentProvider
	cache     domain.CacheRepository
	sink      domain.RowSink
	source    domain.ProductSource
	history   domain.HistoryRepository
	collector *OfferCollector
	maxOffers int
	cacheTTL  time.Duration
	now       func() time.Time
	debug     bool

	refreshMu sync.Mutex
}

// SearchResult is the outcome of a single product search
type SearchResult struct {
	Query         string         `json:"query"`
	Offers        []domain.Offer `json:"offers"`
	TotalAccepted int            `json:"totalAccepted"`
	Report        Report         `json:"report"`
}

// ProductFailure records a product whose refresh failed
type ProductFailure struct {
	RowIndex int    `json:"row"`
	Name     string `json:"name"`
	Error    string `json:"error"`
	Err      error  `json:"-"`
}

// RunReport summarizes a sheet refresh
type RunReport struct {
	Processed  int              `json:"processed"`
	Updated    int              `json:"updated"`
	Empty      int              `json:"empty"`
	Skipped    int              `json:"skipped"`
	Failures   []ProductFailure `json:"failures"`
	StartedAt  time.Time        `json:"startedAt"`
	FinishedAt time.Time        `json:"finishedAt"`
}

// NewPriceService creates a new price service with dependencies.
// cache and history may be nil.
func NewPriceService(
	provider domain.FragmentProvider,
	cache domain.CacheRepository,
	sink domain.RowSink,
	source domain.ProductSource,
	history domain.HistoryRepository,
	config PriceServiceConfig,
) *PriceService {
	filter := NewOfferFilter(FilterConfig{
		Policy:             config.Policy,
		EnableDebugLogging: config.EnableDebugLogging,
	})
	collector := NewOfferCollector(filter, CollectorConfig{
		Parallelism:        config.Parallelism,
		EnableDebugLogging: config.EnableDebugLogging,
	})

	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = time.Hour
	}

	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &PriceService{
		provider:  provider,
		cache:     cache,
		sink:      sink,
		source:    source,
		history:   history,
		collector: collector,
		maxOffers: config.Policy.MaxOffers(),
		cacheTTL:  cacheTTL,
		now:       now,
		debug:     config.EnableDebugLogging,
	}
}

// SearchOffers fetches the result page for a product name and returns the
// first MaxOffers accepted offers in page order.
func (s *PriceService) SearchOffers(ctx context.Context, productName string) (*SearchResult, error) {
	query, offers, report, err := s.search(ctx, productName)
	if err != nil {
		return nil, err
	}

	return &SearchResult{
		Query:         query.Lower,
		Offers:        BuildRow(productName, offers, s.maxOffers).Offers,
		TotalAccepted: len(offers),
		Report:        report,
	}, nil
}

// RefreshProduct searches one product and writes its row.
// Flow: search -> build row -> stamp if offers -> sink -> history
func (s *PriceService) RefreshProduct(ctx context.Context, ref domain.ProductRef) (*domain.ProductRow, error) {
	query, offers, _, err := s.search(ctx, ref.Name)
	if err != nil {
		return nil, err
	}

	row := BuildRow(ref.Name, offers, s.maxOffers)
	searchedAt := s.now()
	// The timestamp cell only moves when something was found.
	if len(row.Offers) > 0 {
		row.SearchedAt = searchedAt
	}

	if err := s.sink.WriteRow(ctx, ref.RowIndex, row); err != nil {
		return nil, fmt.Errorf("%w: row %d: %v", domain.ErrSinkFailure, ref.RowIndex, err)
	}

	if s.history != nil {
		snapshot := domain.Snapshot{
			ProductName: ref.Name,
			Query:       query.Lower,
			RowIndex:    ref.RowIndex,
			Offers:      row.Offers,
			SearchedAt:  searchedAt,
		}
		if err := s.history.Record(ctx, snapshot); err != nil {
			log.Printf("[HISTORY] Failed to record %q: %v", ref.Name, err)
		}
	}

	return &row, nil
}

// RefreshSheet refreshes every product of the source, one at a time.
// A failing product is recorded in the report and the next one still runs.
func (s *PriceService) RefreshSheet(ctx context.Context) (*RunReport, error) {
	if !s.refreshMu.TryLock() {
		return nil, domain.ErrRefreshInProgress
	}
	defer s.refreshMu.Unlock()

	report := &RunReport{StartedAt: s.now()}

	products, err := s.source.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceFailure, err)
	}
	if len(products) == 0 {
		log.Printf("[REFRESH] No products found")
		report.FinishedAt = s.now()
		return report, nil
	}

	log.Printf("[REFRESH] Refreshing %d products", len(products))

	for _, ref := range products {
		if err := ctx.Err(); err != nil {
			report.FinishedAt = s.now()
			return report, err
		}

		if Normalize(ref.Name).IsEmpty() {
			report.Skipped++
			continue
		}

		report.Processed++
		row, err := s.RefreshProduct(ctx, ref)
		if err != nil {
			log.Printf("[REFRESH] Row %d %q failed: %v", ref.RowIndex, ref.Name, err)
			report.Failures = append(report.Failures, ProductFailure{
				RowIndex: ref.RowIndex,
				Name:     ref.Name,
				Error:    err.Error(),
				Err:      err,
			})
			continue
		}

		if len(row.Offers) > 0 {
			report.Updated++
		} else {
			report.Empty++
		}
		log.Printf("[REFRESH] Row %d %q: %d offers", ref.RowIndex, ref.Name, len(row.Offers))
	}

	report.FinishedAt = s.now()
	log.Printf("[REFRESH] Done: %d processed, %d updated, %d empty, %d skipped, %d failed",
		report.Processed, report.Updated, report.Empty, report.Skipped, len(report.Failures))

	return report, nil
}

// LatestSnapshot returns the most recent offers recorded for a product.
// It fails with domain.ErrHistoryUnavailable when no history store is wired.
func (s *PriceService) LatestSnapshot(ctx context.Context, productName string) (*domain.Snapshot, error) {
	name := strings.TrimSpace(productName)
	if name == "" {
		return nil, domain.ErrInvalidRequest
	}
	if s.history == nil {
		return nil, domain.ErrHistoryUnavailable
	}

	snapshot, err := s.history.Latest(ctx, name)
	if err != nil {
		return nil, err
	}
	if s.debug {
		log.Printf("[HISTORY] Latest for %q: %d offers at %s", name, len(snapshot.Offers), snapshot.SearchedAt)
	}
	return snapshot, nil
}

// search returns every accepted offer for the product, untruncated
func (s *PriceService) search(ctx context.Context, productName string) (domain.Query, []domain.Offer, Report, error) {
	query := Normalize(strings.TrimSpace(productName))
	if query.IsEmpty() {
		return query, nil, Report{}, domain.ErrInvalidRequest
	}

	fragments, err := s.fetchFragments(ctx, query)
	if err != nil {
		return query, nil, Report{}, err
	}

	offers, report := s.collector.CollectWithReport(query, fragments)
	return query, offers, report, nil
}

// fetchFragments serves the page from cache when possible.
// Cache failures never fail the search.
func (s *PriceService) fetchFragments(ctx context.Context, query domain.Query) ([]domain.ResultFragment, error) {
	cacheKey := generateCacheKey(query)

	if cached, err := s.getFromCache(ctx, cacheKey); err == nil {
		if s.debug {
			log.Printf("[SEARCH] Cache hit for %q (%d fragments)", query.Lower, len(cached))
		}
		return cached, nil
	}

	fragments, err := s.provider.FetchFragments(ctx, strings.Join(query.Tokens(), " "))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}

	// an empty page is usually a consent or captcha interstitial
	if len(fragments) == 0 {
		return fragments, nil
	}
	if err := s.setInCache(ctx, cacheKey, fragments); err != nil {
		log.Printf("[SEARCH] Failed to cache fragments for %q: %v", query.Lower, err)
	}

	return fragments, nil
}

// generateCacheKey creates the cache key for a query.
// Format: "fragments:{tokens joined by a space}"
func generateCacheKey(query domain.Query) string {
	return "fragments:" + strings.Join(query.Tokens(), " ")
}

// getFromCache retrieves cached fragments
func (s *PriceService) getFromCache(ctx context.Context, key string) ([]domain.ResultFragment, error) {
	if s.cache == nil {
		return nil, domain.ErrCacheMiss
	}

	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			log.Printf("[SEARCH] Cache read failed for %q: %v", key, err)
		}
		return nil, err
	}

	var fragments []domain.ResultFragment
	if err := json.Unmarshal(data, &fragments); err != nil {
		log.Printf("[SEARCH] Evicting unreadable cache entry %q: %v", key, err)
		if derr := s.cache.Delete(ctx, key); derr != nil {
			log.Printf("[SEARCH] Cache delete failed for %q: %v", key, derr)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheMiss, err)
	}
	return fragments, nil
}

// setInCache stores fragments in cache
func (s *PriceService) setInCache(ctx context.Context, key string, fragments []domain.ResultFragment) error {
	if s.cache == nil {
		return nil
	}

	data, err := json.Marshal(fragments)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, key, data, s.cacheTTL)
}
