package model

import (
	"fmt"
	"strings"
	"time"
)

// Strategy is the terminal classification a listing receives in a run.
// Every ingested listing ends up with exactly one.
type Strategy string

const (
	StrategyBuyNow           Strategy = "buy_now"
	StrategyBidNow           Strategy = "bid_now"
	StrategyWatch            Strategy = "watch"
	StrategySkip             Strategy = "skip"
	StrategyExtractionFailed Strategy = "extraction_failed"
)

// Rank orders strategies from weakest to strongest. Used to enforce that a
// soft-capped resolution never yields a stronger strategy than the uncapped
// one would have.
func (s Strategy) Rank() int {
	switch s {
	case StrategyBuyNow:
		return 3
	case StrategyBidNow:
		return 2
	case StrategyWatch:
		return 1
	default:
		return 0
	}
}

func (s Strategy) Valid() bool {
	switch s {
	case StrategyBuyNow, StrategyBidNow, StrategyWatch, StrategySkip, StrategyExtractionFailed:
		return true
	}
	return false
}

// PriceSource tags which resolution tier produced a resale estimate.
type PriceSource string

const (
	SourcePriorEstimate PriceSource = "prior_estimate"
	SourceQueryBaseline PriceSource = "query_baseline"
	SourceBuyNowAnchor  PriceSource = "buy_now_fallback"
	SourceNoPrice       PriceSource = "no_price"
)

// AuctionDemandSource builds the live-market source tag for a demand tier
// (strong, medium, thin, weak).
func AuctionDemandSource(tier string) PriceSource {
	return PriceSource("auction_demand_" + tier)
}

// WebSource builds the web-reference source tag for a labeled origin,
// e.g. web_idealo.de.
func WebSource(label string) PriceSource {
	if label == "" {
		label = "unknown"
	}
	return PriceSource("web_" + label)
}

func (p PriceSource) IsAuctionDemand() bool {
	return strings.HasPrefix(string(p), "auction_demand_")
}

func (p PriceSource) IsWebReference() bool {
	return strings.HasPrefix(string(p), "web_")
}

// RawListing is a marketplace search hit as the adapter returns it.
// SourceID is the platform's own listing id; uniqueness is (Platform, SourceID).
type RawListing struct {
	SourceID     string
	Platform     string
	Title        string
	Description  string
	CurrentBid   float64
	BidsCount    int
	BuyNowPrice  *float64  // nil when the listing has no fixed-price option
	EndTime      time.Time // zero when not an auction
	URL          string
	ImageURL     string
	Location     string
	SellerRating *float64 // platform score 0..100, nil when unknown
}

func (r *RawListing) HasBuyNow() bool {
	return r.BuyNowPrice != nil && *r.BuyNowPrice > 0
}

func (r *RawListing) IsAuction() bool {
	return !r.EndTime.IsZero()
}

// HoursRemaining reports the time left on the auction clock. Ended or
// non-auction listings report 0.
func (r *RawListing) HoursRemaining(now time.Time) float64 {
	if r.EndTime.IsZero() || !r.EndTime.After(now) {
		return 0
	}
	return r.EndTime.Sub(now).Hours()
}

func (r *RawListing) Validate() error {
	if r.SourceID == "" {
		return fmt.Errorf("listing missing source id")
	}
	if r.Platform == "" {
		return fmt.Errorf("listing %s missing platform", r.SourceID)
	}
	if r.Title == "" {
		return fmt.Errorf("listing %s missing title", r.SourceID)
	}
	if r.CurrentBid < 0 {
		return fmt.Errorf("listing %s has negative bid %.2f", r.SourceID, r.CurrentBid)
	}
	return nil
}

// Attributes are the structured product attributes the extractor recognizes.
// Zero values mean "not present".
type Attributes struct {
	StorageGB  int
	WeightKG   float64
	DiameterCM float64
	Color      string
	Material   string
	Generation int
}

// ProductSpec is the extractor's structured reading of one listing.
type ProductSpec struct {
	ListingID  string // SourceID of the listing this was extracted from
	Brand      string
	Model      string
	Category   string
	Attrs      Attributes
	Confidence float64 // 0..1, extractor's own certainty
	Notes      string
}

// Clamp forces confidence into [0,1].
func (s *ProductSpec) Clamp() {
	if s.Confidence < 0 {
		s.Confidence = 0
	}
	if s.Confidence > 1 {
		s.Confidence = 1
	}
}

func (s *ProductSpec) Usable(minConfidence float64) bool {
	return s.Brand != "" && s.Model != "" && s.Confidence >= minConfidence
}

// CanonicalIdentity is the deterministic product identity derived from a spec
// or title. Listings differing only in price-irrelevant wording share keys;
// listings differing in a variant-forming attribute share only the base key.
type CanonicalIdentity struct {
	BaseProductKey string
	VariantKey     string
	DisplayName    string
	Generation     int // 0 = none detected
}

// Product is one canonical catalog row, unique per variant key.
type Product struct {
	ID             int64
	VariantKey     string
	BaseProductKey string
	DisplayName    string
	Brand          string
	Category       string
	ReferencePrice *float64 // new-price from web references, nil until looked up
	ResaleEstimate *float64 // learned from prior runs, nil until resolved once
	FirstSeen      time.Time
	LastSeen       time.Time
}

// Listing is a persisted marketplace listing bound to its product identity.
// ProductID and VariantKey are written in the same statement that creates the
// row; they are never backfilled.
type Listing struct {
	ID         int64
	RunID      int64
	ProductID  int64
	VariantKey string
	CreatedAt  time.Time
	RawListing
}

// MarketSample is one bid-carrying sibling listing reduced to the numbers the
// aggregators consume.
type MarketSample struct {
	Price          float64
	BidsCount      int
	HoursRemaining float64
	Weight         float64
}

// PriceResolution is the outcome of the resolution waterfall for one listing.
// ResalePrice is nil exactly when Source is SourceNoPrice.
type PriceResolution struct {
	ResalePrice    *float64
	Source         PriceSource
	Confidence     float64
	SampleSize     int
	SoftCapApplied bool
	Ceiling        float64 // 0 = no ceiling computable
	CapReduction   float64 // relative price cut when the cap fired, 0..1
	Reason         string
}

func (p *PriceResolution) HasPrice() bool {
	return p.ResalePrice != nil
}

// Price returns the resolved resale value, 0 when none.
func (p *PriceResolution) Price() float64 {
	if p.ResalePrice == nil {
		return 0
	}
	return *p.ResalePrice
}

// Evaluation is one immutable advice row. Re-running a query inserts new rows
// rather than mutating old ones.
type Evaluation struct {
	ID             int64
	RunID          int64
	ListingID      int64
	ProductID      int64
	CostEstimate   float64
	ResalePrice    *float64
	ExpectedProfit float64
	MarginPct      float64
	DealScore      float64
	Strategy       Strategy
	Reason         string
	Source         PriceSource
	Confidence     float64
	SampleSize     int
	SoftCapApplied bool
	CreatedAt      time.Time
}

// RunSummary aggregates one run for the CLI and the runs table.
type RunSummary struct {
	RunID            int64
	Queries          []string
	ListingsSeen     int
	Extracted        int
	ExtractionFailed int
	Evaluated        int
	ByStrategy       map[Strategy]int
	OracleCalls      int
	EstCost          float64
	ScrapeErrors     int
	Duration         time.Duration
}

func NewRunSummary(queries []string) *RunSummary {
	return &RunSummary{
		Queries:    queries,
		ByStrategy: map[Strategy]int{},
	}
}

func (s *RunSummary) Count(strategy Strategy) {
	s.ByStrategy[strategy]++
	s.Evaluated++
}
