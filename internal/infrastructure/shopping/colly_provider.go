package shopping

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/pricesheet/worker/internal/domain"
	"golang.org/x/time/rate"
)

const (
	// DefaultSearchURL is the shopping results page; %s receives the escaped query.
	DefaultSearchURL = "https://www.google.com.br/search?tbm=shop&hl=pt-BR&q=%s"
	// DefaultUserAgent mimics a desktop Chrome on a pt-BR locale.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// CollyConfig configures the HTTP fragment provider.
type CollyConfig struct {
	SearchURL         string
	UserAgent         string
	AcceptLanguage    string
	Timeout           time.Duration
	RequestsPerMinute int
	MaxRetries        int
	RetryBackoff      time.Duration
	Selectors         Selectors
	Debug             bool
}

// CollyProvider fetches the results page over plain HTTP with colly.
type CollyProvider struct {
	cfg     CollyConfig
	limiter *rate.Limiter
}

// FetchError reports a failed page fetch with the last seen status.
type FetchError struct {
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch error (status %d)", e.Status)
	}
	return fmt.Sprintf("fetch error (status %d): %v", e.Status, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewCollyProvider creates a provider, filling zero values with defaults.
func NewCollyProvider(cfg CollyConfig) *CollyProvider {
	if cfg.SearchURL == "" {
		cfg.SearchURL = DefaultSearchURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.AcceptLanguage == "" {
		cfg.AcceptLanguage = "pt-BR,pt;q=0.9"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 20
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	cfg.Selectors = cfg.Selectors.withDefaults()

	return &CollyProvider{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
	}
}

// SearchURL builds the results page URL for a query.
func (p *CollyProvider) SearchURL(query string) string {
	escaped := url.QueryEscape(query)
	if strings.Contains(p.cfg.SearchURL, "%s") {
		return fmt.Sprintf(p.cfg.SearchURL, escaped)
	}
	sep := "?"
	if strings.Contains(p.cfg.SearchURL, "?") {
		sep = "&"
	}
	return p.cfg.SearchURL + sep + "q=" + escaped
}

// FetchFragments downloads the results page for query and extracts its cards.
func (p *CollyProvider) FetchFragments(ctx context.Context, query string) ([]domain.ResultFragment, error) {
	target := p.SearchURL(query)
	if p.cfg.Debug {
		log.Printf("[COLLY] Fetching %s", target)
	}

	var lastErr error
	status := 0
	for attempt := 0; attempt < p.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		var fragments []domain.ResultFragment
		fragments, status, lastErr = p.fetchOnce(ctx, target)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if lastErr == nil {
			log.Printf("[COLLY] Extracted %d fragments for query: %q", len(fragments), query)
			return fragments, nil
		}

		log.Printf("[COLLY] Fetch error (attempt %d, status %d): %v", attempt+1, status, lastErr)
		if !shouldRetry(status) {
			break
		}
		if attempt+1 < p.cfg.MaxRetries {
			if err := sleepWithContext(ctx, p.backoff(attempt)); err != nil {
				return nil, err
			}
		}
	}

	if lastErr == nil {
		lastErr = errors.New("colly fetch failed")
	}
	return nil, &FetchError{Status: status, Err: lastErr}
}

func (p *CollyProvider) fetchOnce(ctx context.Context, target string) ([]domain.ResultFragment, int, error) {
	c := p.newCollector()

	var (
		fragments []domain.ResultFragment
		status    int
		reqErr    error
	)

	c.OnHTML(p.cfg.Selectors.Result, func(e *colly.HTMLElement) {
		fragments = append(fragments, ExtractFragment(e.DOM, e.Request.URL, p.cfg.Selectors))
	})
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		reqErr = err
	})

	collyCtx := colly.NewContext()
	collyCtx.Put("ctx", ctx)

	hdr := http.Header{}
	hdr.Set("Accept-Language", p.cfg.AcceptLanguage)

	if err := c.Request(http.MethodGet, target, nil, collyCtx, hdr); err != nil {
		return nil, status, err
	}
	if reqErr != nil {
		return nil, status, reqErr
	}
	if status >= 400 {
		return nil, status, fmt.Errorf("status %d", status)
	}
	return fragments, status, nil
}

func (p *CollyProvider) newCollector() *colly.Collector {
	c := colly.NewCollector(colly.UserAgent(p.cfg.UserAgent))
	c.SetRequestTimeout(p.cfg.Timeout)

	c.OnRequest(func(r *colly.Request) {
		if v := r.Ctx.GetAny("ctx"); v != nil {
			if reqCtx, ok := v.(context.Context); ok && reqCtx.Err() != nil {
				r.Abort()
			}
		}
	})

	return c
}

// backoff returns 1x, 2x, 4x... of the configured base delay.
func (p *CollyProvider) backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return p.cfg.RetryBackoff * time.Duration(1<<attempt)
}

func shouldRetry(status int) bool {
	if status == 0 || status == http.StatusTooManyRequests {
		return true
	}
	return status >= 500 && status <= 599
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
