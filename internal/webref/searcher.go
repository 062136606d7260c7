// Package webref looks up retail reference prices on the web. It is a
// best-effort oracle: empty results are normal and the pricing waterfall
// simply moves on to the next tier.
package webref

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/helmling/bidgap/internal/identity"
	"github.com/helmling/bidgap/internal/model"
)

// PriceRef is one observed reference price with its origin.
type PriceRef struct {
	Price     float64 `json:"price"`
	SourceURL string  `json:"source_url"`
	Label     string  `json:"label"` // registrable domain
}

// Searcher is the reference-price oracle. Cached answers without any
// external call, so callers can budget real calls separately.
type Searcher interface {
	Available() bool
	GetProviderName() string
	Cached(query string) ([]PriceRef, bool)
	SearchReferencePrice(ctx context.Context, query string) ([]PriceRef, error)
}

// Config holds web search settings.
type Config struct {
	BaseURL        string
	TrustedDomains []string // empty = accept every domain
	UserAgent      string

	ResultSelector string // CSS selector for one result block

	RequestTimeout time.Duration
	MaxRetries     int
	RatePerSecond  float64
	CacheTTL       time.Duration

	MinPrice float64
	MaxRefs  int
}

func NewConfig() Config {
	return Config{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
		ResultSelector: ".result, article, li.searchresult",
		RequestTimeout: 30 * time.Second,
		MaxRetries:     2,
		RatePerSecond:  1,
		CacheTTL:       24 * time.Hour,
		MinPrice:       5,
		MaxRefs:        8,
	}
}

// BuildQuery composes the search string for a product. The attribute filter
// runs over the raw surface form so the query never carries color, condition
// or size tokens.
func BuildQuery(spec *model.ProductSpec, ident *model.CanonicalIdentity, filter *identity.Filter) string {
	source := ident.DisplayName
	if spec != nil && spec.Brand != "" && spec.Model != "" {
		source = spec.Brand + " " + spec.Model
	}
	profile := identity.Profile{}
	if spec != nil {
		profile = identity.ProfileFor(spec.Category)
	}
	cleaned := filter.Strip(source, profile.PreserveUnits).Cleaned
	return strings.Join(strings.Fields(cleaned), " ")
}

// Summarize reduces refs to the median price, the count and the label of the
// most frequent source.
func Summarize(refs []PriceRef) (median float64, count int, label string) {
	if len(refs) == 0 {
		return 0, 0, ""
	}

	prices := make([]float64, len(refs))
	byLabel := map[string]int{}
	for i, r := range refs {
		prices[i] = r.Price
		byLabel[r.Label]++
	}
	sort.Float64s(prices)

	mid := len(prices) / 2
	median = prices[mid]
	if len(prices)%2 == 0 {
		median = (prices[mid-1] + prices[mid]) / 2
	}

	best := 0
	for l, n := range byLabel {
		if n > best || (n == best && l < label) {
			best, label = n, l
		}
	}
	return median, len(refs), label
}
