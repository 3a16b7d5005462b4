package shopping

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/pricesheet/worker/internal/domain"
)

// DefaultHomeURL is the page that hosts the shopping search box.
const DefaultHomeURL = "https://shopping.google.com.br/"

// ErrResultsTimeout is returned when no result card shows up in time.
var ErrResultsTimeout = errors.New("results did not load in time")

// BrowserConfig configures the headless browser provider.
type BrowserConfig struct {
	HomeURL      string
	Bin          string
	Headless     bool
	Timeout      time.Duration
	PollInterval time.Duration
	Selectors    Selectors
	Debug        bool
}

// BrowserProvider drives a headless Chromium through the search flow.
// One page is used at a time.
type BrowserProvider struct {
	cfg     BrowserConfig
	mu      sync.Mutex
	browser *rod.Browser
}

// NewBrowserProvider creates a provider. The browser is launched lazily on
// the first search.
func NewBrowserProvider(cfg BrowserConfig) *BrowserProvider {
	if cfg.HomeURL == "" {
		cfg.HomeURL = DefaultHomeURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	cfg.Selectors = cfg.Selectors.withDefaults()

	return &BrowserProvider{cfg: cfg}
}

// launcherFor builds the Chromium launcher with the pt-BR desktop profile.
func launcherFor(cfg BrowserConfig) *launcher.Launcher {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(true).
		Leakless(false).
		Set("lang", "pt-BR").
		Set("window-size", "1366,768").
		Set("incognito")

	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}
	return l
}

// browserProcess is the part of *launcher.Launcher ensureBrowser drives
type browserProcess interface {
	Launch() (string, error)
	Kill()
}

var (
	newBrowserProcess = func(cfg BrowserConfig) browserProcess { return launcherFor(cfg) }
	connectBrowser    = func(controlURL string) (*rod.Browser, error) {
		browser := rod.New().ControlURL(controlURL)
		return browser, browser.Connect()
	}
)

func (p *BrowserProvider) ensureBrowser() error {
	if p.browser != nil {
		return nil
	}

	process := newBrowserProcess(p.cfg)
	controlURL, err := process.Launch()
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	browser, err := connectBrowser(controlURL)
	if err != nil {
		// leakless is off, nothing else reaps the process
		process.Kill()
		return fmt.Errorf("failed to connect to browser: %w", err)
	}

	log.Printf("[BROWSER] Connected at %s", controlURL)
	p.browser = browser
	return nil
}

// FetchFragments types query into the shopping search box and extracts the
// result cards once they appear.
func (p *BrowserProvider) FetchFragments(ctx context.Context, query string) ([]domain.ResultFragment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureBrowser(); err != nil {
		return nil, err
	}

	page, err := p.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: p.cfg.HomeURL})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", p.cfg.HomeURL, err)
	}
	defer page.Close()

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{Width: 1366, Height: 768}); err != nil {
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	timed := page.Timeout(p.cfg.Timeout)
	if err := timed.WaitLoad(); err != nil {
		return nil, fmt.Errorf("home page did not load: %w", err)
	}

	box, err := timed.Element(p.cfg.Selectors.SearchBox)
	if err != nil {
		return nil, fmt.Errorf("search box %q not found: %w", p.cfg.Selectors.SearchBox, err)
	}
	if err := box.Input(query); err != nil {
		return nil, fmt.Errorf("failed to type query: %w", err)
	}
	if err := box.Type(input.Enter); err != nil {
		return nil, fmt.Errorf("failed to submit query: %w", err)
	}

	if err := p.waitForResults(ctx, page); err != nil {
		return nil, err
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to read results page: %w", err)
	}

	pageURL := p.cfg.HomeURL
	if info, err := page.Info(); err == nil && info.URL != "" {
		pageURL = info.URL
	}

	fragments, err := ParseFragments(strings.NewReader(html), pageURL, p.cfg.Selectors)
	if err != nil {
		return nil, err
	}

	log.Printf("[BROWSER] Extracted %d fragments for query: %q", len(fragments), query)
	return fragments, nil
}

// waitForResults polls for the result selector until the timeout elapses.
func (p *BrowserProvider) waitForResults(ctx context.Context, page *rod.Page) error {
	deadline := time.Now().Add(p.cfg.Timeout)
	for {
		found, _, err := page.Has(p.cfg.Selectors.Result)
		if err != nil {
			return fmt.Errorf("failed to query results: %w", err)
		}
		if found {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s", ErrResultsTimeout, p.cfg.Timeout)
		}
		if p.cfg.Debug {
			log.Printf("[BROWSER] Waiting for %q", p.cfg.Selectors.Result)
		}
		if err := sleepWithContext(ctx, p.cfg.PollInterval); err != nil {
			return err
		}
	}
}

// Close shuts the browser down if it was launched.
func (p *BrowserProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.browser == nil {
		return nil
	}
	err := p.browser.Close()
	p.browser = nil
	return err
}
