// Package scrape fetches marketplace search results and turns them into raw
// listings. The pricing core never talks to it directly; the runner feeds the
// listings through extraction and identity first.
package scrape

import (
	"context"
	"time"

	"github.com/helmling/bidgap/internal/model"
)

// Provider is a marketplace search source.
type Provider interface {
	// Available reports whether the provider is configured and usable.
	Available() bool

	// GetProviderName returns a short name for logs and summaries.
	GetProviderName() string

	// SearchListings returns up to maxResults listings for one query.
	SearchListings(ctx context.Context, query string, maxResults int) ([]model.RawListing, error)
}

// Config holds marketplace client settings. FieldPaths maps the client onto
// whatever JSON the configured endpoint returns.
type Config struct {
	Platform  string
	BaseURL   string
	UserAgent string

	RequestTimeout  time.Duration
	MaxRetries      int
	RateLimitPerMin int

	Fields FieldPaths
}

// FieldPaths are gjson paths into the search response. Items is the path to
// the result array; the rest are relative to one item.
type FieldPaths struct {
	Items        string
	ID           string
	Title        string
	Description  string
	CurrentBid   string
	BidsCount    string
	BuyNowPrice  string
	EndTime      string // RFC3339 or unix seconds
	URL          string
	ImageURL     string
	Location     string
	SellerRating string
}

// NewConfig returns client settings with the shipped defaults. BaseURL stays
// empty; without one the runner falls back to the mock provider.
func NewConfig() Config {
	return Config{
		Platform:        "auction",
		UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
		RequestTimeout:  30 * time.Second,
		MaxRetries:      2,
		RateLimitPerMin: 20,
		Fields: FieldPaths{
			Items:        "items",
			ID:           "id",
			Title:        "title",
			Description:  "description",
			CurrentBid:   "current_bid",
			BidsCount:    "bids_count",
			BuyNowPrice:  "buy_now_price",
			EndTime:      "end_time",
			URL:          "url",
			ImageURL:     "image_url",
			Location:     "location",
			SellerRating: "seller_rating",
		},
	}
}
