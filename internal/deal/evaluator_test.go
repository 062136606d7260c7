package deal

import (
	"strings"
	"testing"
	"time"

	"github.com/helmling/bidgap/internal/model"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func fp(v float64) *float64 { return &v }

func auctionListing(bid float64, bids int, hours float64) *model.Listing {
	return &model.Listing{
		ID: 1, RunID: 1, ProductID: 1, VariantKey: "k",
		RawListing: model.RawListing{
			SourceID: "a1", Platform: "auction", Title: "t",
			CurrentBid: bid, BidsCount: bids,
			EndTime: testNow.Add(time.Duration(hours * float64(time.Hour))),
		},
	}
}

func buyNowListing(price float64) *model.Listing {
	return &model.Listing{
		ID: 2, RunID: 1, ProductID: 1, VariantKey: "k",
		RawListing: model.RawListing{
			SourceID: "b1", Platform: "auction", Title: "t",
			BuyNowPrice: &price,
		},
	}
}

func resolution(price, conf float64) *model.PriceResolution {
	return &model.PriceResolution{
		ResalePrice: &price,
		Source:      model.AuctionDemandSource("strong"),
		Confidence:  conf,
		SampleSize:  5,
	}
}

func TestCostEstimateBuyNow(t *testing.T) {
	e := NewEvaluator(NewConfig())

	got := e.CostEstimate(buyNowListing(80), testNow)
	if abs(got-84.5) > 0.001 {
		t.Errorf("cost: got %.2f want 84.50", got)
	}
}

func TestCostEstimateProjectsBids(t *testing.T) {
	e := NewEvaluator(NewConfig())

	// 50 * 1.12 (3 bids) * 1.08 (10h left) + 4.5 shipping
	got := e.CostEstimate(auctionListing(50, 3, 10), testNow)
	want := 50*1.12*1.08 + 4.5
	if abs(got-want) > 0.001 {
		t.Errorf("cost: got %.2f want %.2f", got, want)
	}

	// more bids and more time mean higher projected cost
	hotter := e.CostEstimate(auctionListing(50, 12, 100), testNow)
	if hotter <= got {
		t.Errorf("hot auction cost %.2f not above %.2f", hotter, got)
	}
}

func TestEvaluateMarginCapIsAbsolute(t *testing.T) {
	e := NewEvaluator(NewConfig())

	// resale 300 against ~56 cost: margin far above the cap, and a strong
	// demand source with high confidence must not rescue it
	l := buyNowListing(51.5)
	ev := e.Evaluate(l, resolution(300, 0.9), testNow)

	if ev.Strategy != model.StrategySkip {
		t.Fatalf("strategy: got %s", ev.Strategy)
	}
	if !strings.Contains(ev.Reason, "too good to be true") {
		t.Errorf("reason: %q", ev.Reason)
	}
	if ev.MarginPct < 300 {
		t.Errorf("margin: got %.1f", ev.MarginPct)
	}
}

func TestEvaluateMinProfit(t *testing.T) {
	e := NewEvaluator(NewConfig())

	ev := e.Evaluate(buyNowListing(50), resolution(60, 0.8), testNow)
	if ev.Strategy != model.StrategySkip {
		t.Fatalf("strategy: got %s", ev.Strategy)
	}
	if !strings.Contains(ev.Reason, "below minimum") {
		t.Errorf("reason: %q", ev.Reason)
	}
	if ev.ExpectedProfit >= 10 {
		t.Errorf("profit: got %.2f", ev.ExpectedProfit)
	}
}

func TestEvaluateBuyNow(t *testing.T) {
	e := NewEvaluator(NewConfig())

	// cost 100.0, resale 140: profit 24.5, margin 24.5%
	ev := e.Evaluate(buyNowListing(95.5), resolution(140, 0.6), testNow)
	if ev.Strategy != model.StrategyBuyNow {
		t.Fatalf("strategy: got %s (%s)", ev.Strategy, ev.Reason)
	}
	if abs(ev.CostEstimate-100) > 0.001 {
		t.Errorf("cost: got %.2f", ev.CostEstimate)
	}
	if abs(ev.ExpectedProfit-24.5) > 0.01 {
		t.Errorf("profit: got %.2f", ev.ExpectedProfit)
	}
}

func TestEvaluateBidNow(t *testing.T) {
	e := NewEvaluator(NewConfig())

	ev := e.Evaluate(auctionListing(80, 2, 30), resolution(140, 0.6), testNow)
	if ev.Strategy != model.StrategyBidNow {
		t.Fatalf("strategy: got %s (%s)", ev.Strategy, ev.Reason)
	}
	if ev.ExpectedProfit < 10 {
		t.Errorf("profit: got %.2f", ev.ExpectedProfit)
	}
}

func TestEvaluateWatchOnLowConfidence(t *testing.T) {
	e := NewEvaluator(NewConfig())

	ev := e.Evaluate(auctionListing(80, 2, 30), resolution(140, 0.3), testNow)
	if ev.Strategy != model.StrategyWatch {
		t.Fatalf("strategy: got %s (%s)", ev.Strategy, ev.Reason)
	}
	if !strings.Contains(ev.Reason, "confidence") {
		t.Errorf("reason: %q", ev.Reason)
	}
}

func TestEvaluateWatchNearMarginCap(t *testing.T) {
	e := NewEvaluator(NewConfig())

	// fixed-price listing without buy-now: neither buy_now nor bid_now can
	// fire, margin inside the watch band
	l := &model.Listing{
		ID: 3, RunID: 1, ProductID: 1, VariantKey: "k",
		RawListing: model.RawListing{
			SourceID: "c1", Platform: "auction", Title: "t", CurrentBid: 100,
		},
	}
	cost := e.CostEstimate(l, testNow)
	resale := cost*(1+0.11+0.27) + 4.5 // margin lands at 27%

	ev := e.Evaluate(l, resolution(resale, 0.6), testNow)
	if ev.Strategy != model.StrategyWatch {
		t.Fatalf("strategy: got %s (%s)", ev.Strategy, ev.Reason)
	}
	if !strings.Contains(ev.Reason, "close to the cap") {
		t.Errorf("reason: %q", ev.Reason)
	}
}

func TestEvaluateNoPrice(t *testing.T) {
	e := NewEvaluator(NewConfig())

	res := &model.PriceResolution{Source: model.SourceNoPrice, Reason: "no usable price signal"}
	ev := e.Evaluate(auctionListing(50, 1, 10), res, testNow)

	if ev.Strategy != model.StrategySkip {
		t.Fatalf("strategy: got %s", ev.Strategy)
	}
	if ev.DealScore != 1.0 {
		t.Errorf("score: got %.2f", ev.DealScore)
	}
	if ev.ResalePrice != nil {
		t.Errorf("resale price should stay nil")
	}
	if !strings.Contains(ev.Reason, "no resale estimate") {
		t.Errorf("reason: %q", ev.Reason)
	}
}

func TestEvaluateRiskNotes(t *testing.T) {
	e := NewEvaluator(NewConfig())

	l := auctionListing(80, 2, 1) // closes within the hour
	rating := 70.0
	l.SellerRating = &rating

	ev := e.Evaluate(l, resolution(140, 0.6), testNow)
	if !strings.Contains(ev.Reason, "seller rating 70") {
		t.Errorf("missing seller note: %q", ev.Reason)
	}
	if !strings.Contains(ev.Reason, "closing soon") {
		t.Errorf("missing closing note: %q", ev.Reason)
	}
	// notes are advisory only
	if ev.Strategy != model.StrategyBidNow {
		t.Errorf("strategy changed by notes: %s", ev.Strategy)
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
