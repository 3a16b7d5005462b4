package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pricesheet/worker/internal/domain"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Sheets    SheetsConfig
	Provider  ProviderConfig
	Policy    PolicyConfig
	Matching  MatchingConfig
	Cache     CacheConfig
	History   HistoryConfig
	Timestamp TimestampConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// SheetsConfig holds Google Sheets configuration
type SheetsConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	SpreadsheetID   string        `mapstructure:"spreadsheet_id"`
	SheetName       string        `mapstructure:"sheet_name"`
	AccessToken     string        `mapstructure:"access_token"`
	APIKey          string        `mapstructure:"api_key"`
	HeaderRows      int           `mapstructure:"header_rows"`
	OffersColumn    string        `mapstructure:"offers_column"`
	TimestampColumn string        `mapstructure:"timestamp_column"`
	Timeout         time.Duration `mapstructure:"timeout"`
	Debug           bool          `mapstructure:"debug"`
}

// SelectorsConfig holds the CSS selectors of the results page
type SelectorsConfig struct {
	SearchBox  string `mapstructure:"search_box"`
	Result     string `mapstructure:"result"`
	Name       string `mapstructure:"name"`
	Price      string `mapstructure:"price"`
	LinkMarker string `mapstructure:"link_marker"`
}

// ProviderConfig holds shopping results provider configuration
type ProviderConfig struct {
	Type              string          `mapstructure:"type"` // "colly" or "browser"
	SearchURL         string          `mapstructure:"search_url"`
	HomeURL           string          `mapstructure:"home_url"`
	UserAgent         string          `mapstructure:"user_agent"`
	Timeout           time.Duration   `mapstructure:"timeout"`
	PollInterval      time.Duration   `mapstructure:"poll_interval"`
	RequestsPerMinute int             `mapstructure:"requests_per_minute"`
	MaxRetries        int             `mapstructure:"max_retries"`
	BrowserBin        string          `mapstructure:"browser_bin"`
	Headless          bool            `mapstructure:"headless"`
	Debug             bool            `mapstructure:"debug"`
	Selectors         SelectorsConfig `mapstructure:"selectors"`
}

// PolicyConfig holds the offer filtering rules
type PolicyConfig struct {
	BannedTerms      []string `mapstructure:"banned_terms"`
	FeeTerms         []string `mapstructure:"fee_terms"`
	UntrustedDomains []string `mapstructure:"untrusted_domains"`
	CurrencySymbols  []string `mapstructure:"currency_symbols"`
	MaxOffers        int      `mapstructure:"max_offers"`
	File             string   `mapstructure:"file"`
}

// MatchingConfig holds offer matching configuration
type MatchingConfig struct {
	Parallelism        int  `mapstructure:"parallelism"`
	EnableDebugLogging bool `mapstructure:"debug_logging"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type string        `mapstructure:"type"` // "memory" or "none"
	TTL  time.Duration `mapstructure:"ttl"`
}

// HistoryConfig holds offer history configuration
type HistoryConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	MongoURI   string        `mapstructure:"mongo_uri"`
	Database   string        `mapstructure:"database"`
	Collection string        `mapstructure:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// TimestampConfig holds the zone of the last-search timestamp cell
type TimestampConfig struct {
	Location string `mapstructure:"location"`
}

// PolicyFile is the YAML document referenced by policy.file.
// Lists present in the file replace the configured ones.
type PolicyFile struct {
	BannedTerms      []string `yaml:"banned_terms"`
	FeeTerms         []string `yaml:"fee_terms"`
	UntrustedDomains []string `yaml:"untrusted_domains"`
	CurrencySymbols  []string `yaml:"currency_symbols"`
	MaxOffers        int      `yaml:"max_offers"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom loads configuration using path as the config file when set,
// otherwise searching the default locations.
func LoadFrom(path string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/pricesheet/")
	}

	// Environment variable settings
	v.SetEnvPrefix("PRICESHEET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Sheets defaults
	v.SetDefault("sheets.base_url", "https://sheets.googleapis.com")
	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.sheet_name", "Página1")
	v.SetDefault("sheets.access_token", "")
	v.SetDefault("sheets.api_key", "")
	v.SetDefault("sheets.header_rows", 1)
	v.SetDefault("sheets.offers_column", "B")
	v.SetDefault("sheets.timestamp_column", "V")
	v.SetDefault("sheets.timeout", "30s")
	v.SetDefault("sheets.debug", false)

	// Provider defaults
	v.SetDefault("provider.type", "colly")
	v.SetDefault("provider.search_url", "https://www.google.com.br/search?tbm=shop&hl=pt-BR&q=%s")
	v.SetDefault("provider.home_url", "https://shopping.google.com.br/")
	v.SetDefault("provider.user_agent", "")
	v.SetDefault("provider.timeout", "20s")
	v.SetDefault("provider.poll_interval", "1s")
	v.SetDefault("provider.requests_per_minute", 20)
	v.SetDefault("provider.max_retries", 3)
	v.SetDefault("provider.browser_bin", "")
	v.SetDefault("provider.headless", true)
	v.SetDefault("provider.debug", false)
	v.SetDefault("provider.selectors.search_box", ".yyJm8b")
	v.SetDefault("provider.selectors.result", ".i0X6df")
	v.SetDefault("provider.selectors.name", ".tAxDx")
	v.SetDefault("provider.selectors.price", ".a8Pemb")
	v.SetDefault("provider.selectors.link_marker", ".bONr3b")

	// Policy defaults
	v.SetDefault("policy.banned_terms", domain.DefaultBannedTerms)
	v.SetDefault("policy.fee_terms", domain.DefaultFeeTerms)
	v.SetDefault("policy.untrusted_domains", domain.DefaultUntrustedDomains)
	v.SetDefault("policy.currency_symbols", domain.DefaultCurrencySymbols)
	v.SetDefault("policy.max_offers", domain.DefaultMaxOffers)
	v.SetDefault("policy.file", "")

	// Matching defaults
	v.SetDefault("matching.parallelism", 1)
	v.SetDefault("matching.debug_logging", false)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", "1h")

	// History defaults
	v.SetDefault("history.enabled", false)
	v.SetDefault("history.mongo_uri", "")
	v.SetDefault("history.database", "pricesheet")
	v.SetDefault("history.collection", "snapshots")
	v.SetDefault("history.timeout", "10s")

	// Timestamp defaults
	v.SetDefault("timestamp.location", "Local")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Provider.Type != "colly" && config.Provider.Type != "browser" {
		return fmt.Errorf("provider type must be 'colly' or 'browser', got: %s", config.Provider.Type)
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "none" {
		return fmt.Errorf("cache type must be 'memory' or 'none', got: %s", config.Cache.Type)
	}

	if config.Policy.MaxOffers < 0 {
		return fmt.Errorf("policy max_offers must not be negative, got: %d", config.Policy.MaxOffers)
	}

	if config.Matching.Parallelism < 0 {
		return fmt.Errorf("matching parallelism must not be negative, got: %d", config.Matching.Parallelism)
	}

	if config.History.Enabled && config.History.MongoURI == "" {
		return fmt.Errorf("Mongo URI is required when history is enabled (set PRICESHEET_HISTORY_MONGO_URI)")
	}

	if _, err := config.Location(); err != nil {
		return err
	}

	return nil
}

// ValidateSheets checks the settings needed to read and write the sheet.
func (c *Config) ValidateSheets() error {
	if c.Sheets.SpreadsheetID == "" {
		return fmt.Errorf("spreadsheet ID is required (set PRICESHEET_SHEETS_SPREADSHEET_ID)")
	}
	if c.Sheets.AccessToken == "" && c.Sheets.APIKey == "" {
		return fmt.Errorf("an access token or API key is required (set PRICESHEET_SHEETS_ACCESS_TOKEN)")
	}
	return nil
}

// Location resolves the timestamp zone.
func (c *Config) Location() (*time.Location, error) {
	name := c.Timestamp.Location
	if name == "" {
		name = "Local"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp location %q: %w", name, err)
	}
	return loc, nil
}

// FilterPolicy builds the filtering policy, applying policy.file when set.
func (c *Config) FilterPolicy() (domain.Policy, error) {
	pc := domain.PolicyConfig{
		BannedTerms:      c.Policy.BannedTerms,
		FeeTerms:         c.Policy.FeeTerms,
		UntrustedDomains: c.Policy.UntrustedDomains,
		CurrencySymbols:  c.Policy.CurrencySymbols,
		MaxOffers:        c.Policy.MaxOffers,
	}

	if c.Policy.File != "" {
		file, err := LoadPolicyFile(c.Policy.File)
		if err != nil {
			return domain.Policy{}, err
		}
		file.apply(&pc)
	}

	return domain.NewPolicy(pc), nil
}

// LoadPolicyFile decodes a policy YAML file. Unknown keys are rejected.
func LoadPolicyFile(path string) (*PolicyFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening policy file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var pf PolicyFile
	if err := dec.Decode(&pf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("error decoding policy file %s: %w", path, err)
	}

	return &pf, nil
}

func (pf *PolicyFile) apply(pc *domain.PolicyConfig) {
	if pf.BannedTerms != nil {
		pc.BannedTerms = pf.BannedTerms
	}
	if pf.FeeTerms != nil {
		pc.FeeTerms = pf.FeeTerms
	}
	if pf.UntrustedDomains != nil {
		pc.UntrustedDomains = pf.UntrustedDomains
	}
	if pf.CurrencySymbols != nil {
		pc.CurrencySymbols = pf.CurrencySymbols
	}
	if pf.MaxOffers > 0 {
		pc.MaxOffers = pf.MaxOffers
	}
}

// loadEnvFile loads KEY=VALUE pairs from ./.env without overriding
// variables already set in the environment. A missing file is not an error.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(".env")
}
