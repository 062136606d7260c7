package deal

import (
	"fmt"
	"math"
	"time"

	"github.com/helmling/bidgap/internal/model"
)

// Config tunes cost prediction and the strategy thresholds.
type Config struct {
	PlatformFeePct   float64
	InboundShipping  float64
	OutboundShipping float64

	MinProfit          float64
	StrongProfitFactor float64
	MarginCapPct       float64
	MediumConfidence   float64
	WatchBandPct       float64

	// Expected bid pressure until close, by current bid count.
	UpliftNone float64 // no bids yet
	UpliftOne  float64
	UpliftFew  float64 // 2-4
	UpliftMany float64 // 5-9
	UpliftHot  float64 // 10+

	// Price drift with time left on the clock.
	DriftUnderHour  float64
	DriftUnderDay   float64
	DriftUnderThree float64
	DriftBeyond     float64

	ScoreProfitWeight float64
	ScoreConfWeight   float64
	ScoreProfitFull   float64 // profit at which the profit term saturates
	CapPenaltyMin     float64
	CapPenaltyMax     float64

	// Risk notes
	LowSellerRating  float64
	ClosingSoonHours float64
}

func NewConfig() Config {
	return Config{
		PlatformFeePct:   0.11,
		InboundShipping:  4.5,
		OutboundShipping: 4.5,

		MinProfit:          10,
		StrongProfitFactor: 2.0,
		MarginCapPct:       30,
		MediumConfidence:   0.45,
		WatchBandPct:       5,

		UpliftNone: 1.05,
		UpliftOne:  1.08,
		UpliftFew:  1.12,
		UpliftMany: 1.18,
		UpliftHot:  1.25,

		DriftUnderHour:  1.02,
		DriftUnderDay:   1.08,
		DriftUnderThree: 1.12,
		DriftBeyond:     1.15,

		ScoreProfitWeight: 0.65,
		ScoreConfWeight:   0.35,
		ScoreProfitFull:   100,
		CapPenaltyMin:     0.5,
		CapPenaltyMax:     2.0,

		LowSellerRating:  80,
		ClosingSoonHours: 2,
	}
}

// Evaluator prices the acquisition side of a listing and classifies the deal.
type Evaluator struct {
	cfg Config
}

func NewEvaluator(cfg Config) *Evaluator {
	return &Evaluator{cfg: cfg}
}

func (e *Evaluator) uplift(bids int) float64 {
	switch {
	case bids >= 10:
		return e.cfg.UpliftHot
	case bids >= 5:
		return e.cfg.UpliftMany
	case bids >= 2:
		return e.cfg.UpliftFew
	case bids == 1:
		return e.cfg.UpliftOne
	default:
		return e.cfg.UpliftNone
	}
}

func (e *Evaluator) drift(hours float64) float64 {
	switch {
	case hours < 1:
		return e.cfg.DriftUnderHour
	case hours < 24:
		return e.cfg.DriftUnderDay
	case hours < 72:
		return e.cfg.DriftUnderThree
	default:
		return e.cfg.DriftBeyond
	}
}

// CostEstimate predicts what acquiring the listing costs: the buy-now price
// when one exists, otherwise the current bid projected to close, plus inbound
// shipping.
func (e *Evaluator) CostEstimate(l *model.Listing, now time.Time) float64 {
	if l.HasBuyNow() {
		return *l.BuyNowPrice + e.cfg.InboundShipping
	}
	predicted := l.CurrentBid * e.uplift(l.BidsCount) * e.drift(l.HoursRemaining(now))
	return predicted + e.cfg.InboundShipping
}

// Evaluate turns a listing and its price resolution into an immutable advice
// row. Never returns an error; listings without a price resolve to skip.
func (e *Evaluator) Evaluate(l *model.Listing, res *model.PriceResolution, now time.Time) model.Evaluation {
	ev := model.Evaluation{
		RunID:          l.RunID,
		ListingID:      l.ID,
		ProductID:      l.ProductID,
		Source:         res.Source,
		Confidence:     res.Confidence,
		SampleSize:     res.SampleSize,
		SoftCapApplied: res.SoftCapApplied,
		ResalePrice:    res.ResalePrice,
		CreatedAt:      now,
	}

	cost := e.CostEstimate(l, now)
	ev.CostEstimate = round2(cost)

	if !res.HasPrice() {
		ev.Strategy = model.StrategySkip
		ev.DealScore = 1.0
		ev.Reason = e.withRiskNotes(l, now, "no resale estimate: "+res.Reason)
		return ev
	}

	resale := res.Price()
	profit := resale - cost - e.cfg.PlatformFeePct*cost - e.cfg.OutboundShipping
	margin := 0.0
	if cost > 0 {
		margin = profit / cost * 100
	}
	ev.ExpectedProfit = round2(profit)
	ev.MarginPct = round2(margin)

	strategy, reason := e.decide(l, res, profit, margin)
	strategy, reason = e.applyCapDowngrade(res, strategy, reason)

	ev.Strategy = strategy
	ev.Reason = e.withRiskNotes(l, now, reason)
	ev.DealScore = e.score(profit, res)
	return ev
}

// score maps profit and confidence onto a 1..10 scale, monotonic in both.
// A fired soft cap subtracts a penalty scaled by how hard the cap bit.
func (e *Evaluator) score(profit float64, res *model.PriceResolution) float64 {
	pn := clamp(profit/e.cfg.ScoreProfitFull, 0, 1)
	s := 1 + 9*(pn*e.cfg.ScoreProfitWeight+res.Confidence*e.cfg.ScoreConfWeight)
	if res.SoftCapApplied {
		s -= e.cfg.CapPenaltyMin +
			(e.cfg.CapPenaltyMax-e.cfg.CapPenaltyMin)*clamp(res.CapReduction, 0, 1)
	}
	return round2(clamp(s, 1, 10))
}

func (e *Evaluator) withRiskNotes(l *model.Listing, now time.Time, reason string) string {
	if l.SellerRating != nil && *l.SellerRating < e.cfg.LowSellerRating {
		reason += fmt.Sprintf("; caution: seller rating %.0f", *l.SellerRating)
	}
	if l.IsAuction() {
		if h := l.HoursRemaining(now); h > 0 && h < e.cfg.ClosingSoonHours {
			reason += "; caution: auction closing soon"
		}
	}
	return reason
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
