package testutil

import (
	"path/filepath"

	"github.com/helmling/bidgap/internal/config"
)

// TestConfig returns a config rooted in dir (pass t.TempDir()) with every
// live oracle disabled, so tests run on mocks and never touch the network.
func TestConfig(dir string) *config.Config {
	c := config.New()
	c.DataDir = dir
	c.DatabaseFile = filepath.Join(dir, "bidgap.db")
	c.CacheDir = filepath.Join(dir, "cache")

	c.MarketBaseURL = ""
	c.OpenAIKey = ""
	c.SearchBaseURL = ""

	// generous budget so budget gating never interferes unless a test sets
	// tighter limits itself
	c.MaxOracleCalls = 1000
	c.MaxOracleCost = 100

	return c
}
