package deal

import (
	"fmt"

	"github.com/helmling/bidgap/internal/model"
)

// decide applies the strategy rules in order. Safety caps come first and are
// absolute: they fire regardless of how the price was resolved.
func (e *Evaluator) decide(l *model.Listing, res *model.PriceResolution, profit, margin float64) (model.Strategy, string) {
	if margin > e.cfg.MarginCapPct {
		return model.StrategySkip, fmt.Sprintf(
			"margin %.0f%% above %.0f%% cap, too good to be true", margin, e.cfg.MarginCapPct)
	}
	if profit < e.cfg.MinProfit {
		return model.StrategySkip, fmt.Sprintf(
			"expected profit %.2f below minimum %.2f", profit, e.cfg.MinProfit)
	}

	strongProfit := e.cfg.MinProfit * e.cfg.StrongProfitFactor
	confident := res.Confidence >= e.cfg.MediumConfidence

	if l.HasBuyNow() && profit >= strongProfit && confident {
		return model.StrategyBuyNow, fmt.Sprintf(
			"profit %.2f at buy-now with %.0f%% margin", profit, margin)
	}
	if l.IsAuction() && confident {
		return model.StrategyBidNow, fmt.Sprintf(
			"live auction, profit %.2f with %.0f%% margin", profit, margin)
	}
	if margin > e.cfg.MarginCapPct-e.cfg.WatchBandPct {
		return model.StrategyWatch, fmt.Sprintf(
			"margin %.0f%% close to the cap, verify before committing", margin)
	}
	if profit > 0 {
		return model.StrategyWatch, fmt.Sprintf(
			"profit %.2f but confidence %.2f too low to act", profit, res.Confidence)
	}
	return model.StrategySkip, "no actionable edge"
}

// applyCapDowngrade enforces that a soft-capped resolution only ever moves
// the strategy toward skip.
func (e *Evaluator) applyCapDowngrade(res *model.PriceResolution, s model.Strategy, reason string) (model.Strategy, string) {
	if !res.SoftCapApplied {
		return s, reason
	}
	downgraded := downgrade(s)
	if downgraded != s {
		reason += "; downgraded by soft market cap"
	}
	return downgraded, reason
}

func downgrade(s model.Strategy) model.Strategy {
	switch s {
	case model.StrategyBuyNow, model.StrategyBidNow:
		return model.StrategyWatch
	case model.StrategyWatch:
		return model.StrategySkip
	default:
		return s
	}
}
