package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	homedir "github.com/mitchellh/go-homedir"
)

// Config carries everything the runner and the adapters need for one run.
// Numeric pricing knobs live in the owning packages' config structs; Tuning
// holds the scalar overrides exposed to flags and env.
type Config struct {
	// marketplace
	Platform      string
	MarketBaseURL string
	MaxPerQuery   int
	Currency      string

	// extraction oracle
	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string
	ExtractBatch  int

	// web reference oracle
	SearchBaseURL  string
	TrustedDomains []string

	// budget
	MaxOracleCalls  int
	MaxOracleCost   float64
	ExtractCallCost float64
	ExtractItemCost float64
	SearchCallCost  float64

	// local state
	DataDir       string
	DatabaseFile  string
	CacheDir      string
	CacheTTLHours int

	// http
	UserAgent      string
	TimeoutSeconds int

	Tuning Tuning
}

// Tuning is the subset of pricing/evaluation scalars worth overriding per
// deployment. Defaults mirror the values the aggregators ship with.
type Tuning struct {
	MinSpecConfidence float64
	MinHardSamples    int
	MinSoftSamples    int
	CapSlack          float64
	MinProfit         float64
	MarginCapPct      float64
	PlatformFeePct    float64
	BaselineDiscount  float64
	BuyNowAnchorRate  float64
}

// New returns a Config with every default filled in. Env and flags overlay it.
func New() *Config {
	return &Config{
		Platform:      "auction",
		MarketBaseURL: "",
		MaxPerQuery:   60,
		Currency:      "EUR",

		OpenAIModel:   "gpt-4o-mini",
		OpenAIBaseURL: "https://api.openai.com/v1",
		ExtractBatch:  25,

		TrustedDomains: []string{},

		MaxOracleCalls:  40,
		MaxOracleCost:   0.50,
		ExtractCallCost: 0.002,
		ExtractItemCost: 0.0008,
		SearchCallCost:  0.004,

		CacheTTLHours: 24,

		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
		TimeoutSeconds: 30,

		Tuning: Tuning{
			MinSpecConfidence: 0.40,
			MinHardSamples:    3,
			MinSoftSamples:    2,
			CapSlack:          0.10,
			MinProfit:         10,
			MarginCapPct:      30,
			PlatformFeePct:    0.11,
			BaselineDiscount:  0.60,
			BuyNowAnchorRate:  0.55,
		},
	}
}

// Load builds the config from defaults, a .env file when present, and the
// environment.
func Load() (*Config, error) {
	_ = godotenv.Load() // optional

	c := New()
	c.applyEnv()

	if err := c.resolveDirs(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() {
	c.Platform = getEnv("BIDGAP_PLATFORM", c.Platform)
	c.MarketBaseURL = getEnv("BIDGAP_MARKET_URL", c.MarketBaseURL)
	c.MaxPerQuery = getEnvInt("BIDGAP_MAX_PER_QUERY", c.MaxPerQuery)
	c.Currency = getEnv("BIDGAP_CURRENCY", c.Currency)

	c.OpenAIKey = getEnv("BIDGAP_OPENAI_KEY", getEnv("OPENAI_API_KEY", c.OpenAIKey))
	c.OpenAIModel = getEnv("BIDGAP_OPENAI_MODEL", c.OpenAIModel)
	c.OpenAIBaseURL = getEnv("BIDGAP_OPENAI_URL", c.OpenAIBaseURL)
	c.ExtractBatch = getEnvInt("BIDGAP_EXTRACT_BATCH", c.ExtractBatch)

	c.SearchBaseURL = getEnv("BIDGAP_SEARCH_URL", c.SearchBaseURL)
	if v := getEnv("BIDGAP_TRUSTED_DOMAINS", ""); v != "" {
		c.TrustedDomains = splitList(v)
	}

	c.MaxOracleCalls = getEnvInt("BIDGAP_MAX_CALLS", c.MaxOracleCalls)
	c.MaxOracleCost = getEnvFloat("BIDGAP_MAX_COST", c.MaxOracleCost)

	c.DataDir = getEnv("BIDGAP_DATA_DIR", c.DataDir)
	c.CacheTTLHours = getEnvInt("BIDGAP_CACHE_TTL_HOURS", c.CacheTTLHours)
	c.TimeoutSeconds = getEnvInt("BIDGAP_TIMEOUT_SECONDS", c.TimeoutSeconds)

	c.Tuning.MinProfit = getEnvFloat("BIDGAP_MIN_PROFIT", c.Tuning.MinProfit)
	c.Tuning.MarginCapPct = getEnvFloat("BIDGAP_MARGIN_CAP_PCT", c.Tuning.MarginCapPct)
	c.Tuning.PlatformFeePct = getEnvFloat("BIDGAP_FEE_PCT", c.Tuning.PlatformFeePct)
}

// resolveDirs expands the data dir and makes sure it and the cache dir exist.
func (c *Config) resolveDirs() error {
	if c.DataDir == "" {
		home, err := homedir.Dir()
		if err != nil {
			return fmt.Errorf("resolving home dir: %w", err)
		}
		c.DataDir = filepath.Join(home, ".bidgap")
	} else if expanded, err := homedir.Expand(c.DataDir); err == nil {
		c.DataDir = expanded
	}

	if c.DatabaseFile == "" {
		c.DatabaseFile = filepath.Join(c.DataDir, "bidgap.db")
	}
	if c.CacheDir == "" {
		c.CacheDir = filepath.Join(c.DataDir, "cache")
	}

	if err := os.MkdirAll(c.CacheDir, 0o755); err != nil {
		return fmt.Errorf("creating data dirs: %w", err)
	}
	return nil
}

// HasExtractor reports whether a live extraction oracle is configured.
func (c *Config) HasExtractor() bool {
	return c.OpenAIKey != ""
}

// HasWebSearch reports whether a live web reference oracle is configured.
func (c *Config) HasWebSearch() bool {
	return c.SearchBaseURL != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
