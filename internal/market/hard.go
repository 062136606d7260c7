package market

import (
	"fmt"
	"math"

	"github.com/helmling/bidgap/internal/model"
)

// HardConfig tunes the live-demand aggregation. Defaults are the shipped
// calibration; deployments override via config.
type HardConfig struct {
	MinSamples int
	Filter     SampleFilter

	// Weak samples below this share of the set's maximum price are treated
	// as noise and dropped.
	OutlierFloorPct float64

	// Per-sample weights by bid count.
	WeightStrong float64 // >= 5 bids
	WeightMedium float64 // 3-4 bids
	WeightThin   float64 // 2 bids
	WeightWeak   float64 // 1 bid

	// Market-to-resale discount by the set's maximum bid count.
	DiscountStrong      float64
	DiscountMedium      float64
	DiscountThin        float64
	DiscountAllWeak     float64
	WeakMajorityPenalty float64

	BaseConfidence    float64
	SampleBonus       float64
	SampleBonusFull   int
	BidBonus          float64
	BidBonusFull      int
	WeakConfidenceCap float64
}

func NewHardConfig() HardConfig {
	return HardConfig{
		MinSamples:      3,
		Filter:          NewSampleFilter(),
		OutlierFloorPct: 0.30,

		WeightStrong: 1.00,
		WeightMedium: 0.80,
		WeightThin:   0.60,
		WeightWeak:   0.35,

		DiscountStrong:      0.92,
		DiscountMedium:      0.90,
		DiscountThin:        0.88,
		DiscountAllWeak:     0.82,
		WeakMajorityPenalty: 0.05,

		BaseConfidence:    0.50,
		SampleBonus:       0.25,
		SampleBonusFull:   8,
		BidBonus:          0.15,
		BidBonusFull:      8,
		WeakConfidenceCap: 0.60,
	}
}

// Estimate is a hard market read for one product variant.
type Estimate struct {
	MarketValue float64 // weighted median before discount
	Resale      float64
	Confidence  float64
	SampleSize  int
	MaxBids     int
	Tier        string
	WeakShare   float64
	Spread      float64 // sample standard deviation of prices
	Reason      string
}

// HardAggregator turns bid-carrying sibling samples into a resale estimate.
// It declines (returns nil) rather than guess from thin data.
type HardAggregator struct {
	cfg HardConfig
}

func NewHardAggregator(cfg HardConfig) *HardAggregator {
	return &HardAggregator{cfg: cfg}
}

func (a *HardAggregator) weight(bids int) float64 {
	switch {
	case bids >= 5:
		return a.cfg.WeightStrong
	case bids >= 3:
		return a.cfg.WeightMedium
	case bids == 2:
		return a.cfg.WeightThin
	default:
		return a.cfg.WeightWeak
	}
}

func demandTier(maxBids int) string {
	switch {
	case maxBids >= 5:
		return "strong"
	case maxBids >= 3:
		return "medium"
	case maxBids == 2:
		return "thin"
	default:
		return "weak"
	}
}

// Estimate aggregates qualified samples into a discounted resale estimate.
// Returns nil when the sample set is too thin to trust.
func (a *HardAggregator) Estimate(samples []model.MarketSample) *Estimate {
	if len(samples) < a.cfg.MinSamples {
		return nil
	}

	weighted := make([]model.MarketSample, len(samples))
	maxPrice := 0.0
	for i, s := range samples {
		s.Weight = a.weight(s.BidsCount)
		weighted[i] = s
		if s.Price > maxPrice {
			maxPrice = s.Price
		}
	}

	kept := weighted[:0]
	for _, s := range weighted {
		if s.Weight == a.cfg.WeightWeak && s.Price < maxPrice*a.cfg.OutlierFloorPct {
			continue
		}
		kept = append(kept, s)
	}
	if len(kept) < a.cfg.MinSamples {
		return nil
	}

	maxBids := 0
	weak := 0
	for _, s := range kept {
		if s.BidsCount > maxBids {
			maxBids = s.BidsCount
		}
		if s.BidsCount == 1 {
			weak++
		}
	}
	weakShare := float64(weak) / float64(len(kept))

	marketValue := weightedMedian(kept)

	discount := a.cfg.DiscountStrong
	switch {
	case maxBids >= 5:
		discount = a.cfg.DiscountStrong
	case maxBids >= 3:
		discount = a.cfg.DiscountMedium
	case maxBids == 2:
		discount = a.cfg.DiscountThin
	default:
		discount = a.cfg.DiscountAllWeak
	}
	if weakShare > 0.5 {
		discount -= a.cfg.WeakMajorityPenalty
	}

	conf := a.cfg.BaseConfidence
	conf += a.cfg.SampleBonus * math.Min(1, float64(len(kept))/float64(a.cfg.SampleBonusFull))
	conf += a.cfg.BidBonus * math.Min(1, float64(maxBids)/float64(a.cfg.BidBonusFull))
	if weakShare >= 0.5 && conf > a.cfg.WeakConfidenceCap {
		conf = a.cfg.WeakConfidenceCap
	}

	tier := demandTier(maxBids)
	return &Estimate{
		MarketValue: marketValue,
		Resale:      marketValue * discount,
		Confidence:  conf,
		SampleSize:  len(kept),
		MaxBids:     maxBids,
		Tier:        tier,
		WeakShare:   weakShare,
		Spread:      stddev(prices(kept)),
		Reason: fmt.Sprintf("weighted median %.2f over %d bid samples, max %d bids, %s demand",
			marketValue, len(kept), maxBids, tier),
	}
}
