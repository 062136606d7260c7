// Package testutil provides seeded factories and config helpers shared by
// tests across packages.
package testutil

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/helmling/bidgap/internal/model"
)

// Factory generates deterministic test data. Same seed, same data.
type Factory struct {
	rand *rand.Rand
	now  time.Time
	seq  int
}

func NewFactory(seed int64) *Factory {
	if seed == 0 {
		seed = 1
	}
	return &Factory{
		rand: rand.New(rand.NewSource(seed)),
		// fixed reference instant so end times stay stable across test runs
		now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Now returns the factory's fixed reference time. Tests pass it wherever the
// code under test takes a clock value.
func (f *Factory) Now() time.Time {
	return f.now
}

// RawListing builds an auction listing with plausible defaults. Every call
// yields a fresh source id.
func (f *Factory) RawListing(title string) model.RawListing {
	f.seq++
	return model.RawListing{
		SourceID:   fmt.Sprintf("fac-%04d", f.seq),
		Platform:   "test",
		Title:      title,
		CurrentBid: 20 + float64(f.rand.Intn(200)),
		BidsCount:  f.rand.Intn(8),
		EndTime:    f.now.Add(time.Duration(1+f.rand.Intn(96)) * time.Hour),
		URL:        fmt.Sprintf("https://market.test/item/%04d", f.seq),
	}
}

// AuctionListing builds a listing with the given auction numbers.
func (f *Factory) AuctionListing(title string, bid float64, bids int, hoursLeft float64) model.RawListing {
	l := f.RawListing(title)
	l.CurrentBid = bid
	l.BidsCount = bids
	l.EndTime = f.now.Add(time.Duration(hoursLeft * float64(time.Hour)))
	return l
}

// BuyNowListing builds a fixed-price listing without auction state.
func (f *Factory) BuyNowListing(title string, price float64) model.RawListing {
	l := f.RawListing(title)
	l.CurrentBid = 0
	l.BidsCount = 0
	l.EndTime = time.Time{}
	l.BuyNowPrice = &price
	return l
}

// Samples zips parallel price/bid/hour slices into market samples. Panics on
// mismatched lengths, which in a test is the right failure.
func Samples(prices []float64, bids []int, hours []float64) []model.MarketSample {
	if len(prices) != len(bids) || len(prices) != len(hours) {
		panic("testutil.Samples: slice lengths differ")
	}
	out := make([]model.MarketSample, len(prices))
	for i := range prices {
		out[i] = model.MarketSample{
			Price:          prices[i],
			BidsCount:      bids[i],
			HoursRemaining: hours[i],
		}
	}
	return out
}

// Spec builds a usable extractor spec.
func Spec(listingID, brand, mdl, category string) model.ProductSpec {
	return model.ProductSpec{
		ListingID:  listingID,
		Brand:      brand,
		Model:      mdl,
		Category:   category,
		Confidence: 0.85,
	}
}

// FloatPtr returns a pointer to v, for optional-price fields.
func FloatPtr(v float64) *float64 {
	return &v
}
