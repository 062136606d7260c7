package market

import (
	"time"

	"github.com/helmling/bidgap/internal/model"
)

// SampleFilter holds the discard rules shared by both aggregators.
type SampleFilter struct {
	// Absolute floor; symbolic one-euro bids carry no signal.
	MinPrice float64
	// Discard bids below this share of a known reference price.
	ReferenceFloorPct float64
}

func NewSampleFilter() SampleFilter {
	return SampleFilter{
		MinPrice:          1.0,
		ReferenceFloorPct: 0.20,
	}
}

// Qualify reduces sibling listings to bid-carrying market samples. Zero-bid
// listings, trivial prices and prices far under a known reference are
// dropped.
func (f SampleFilter) Qualify(listings []model.Listing, referencePrice *float64, now time.Time) []model.MarketSample {
	samples := make([]model.MarketSample, 0, len(listings))
	for i := range listings {
		l := &listings[i]
		if l.BidsCount < 1 {
			continue
		}
		price := l.CurrentBid
		if price <= f.MinPrice {
			continue
		}
		if referencePrice != nil && *referencePrice > 0 && price < *referencePrice*f.ReferenceFloorPct {
			continue
		}
		samples = append(samples, model.MarketSample{
			Price:          price,
			BidsCount:      l.BidsCount,
			HoursRemaining: l.HoursRemaining(now),
		})
	}
	return samples
}
