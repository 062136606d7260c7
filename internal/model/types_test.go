package model

import (
	"testing"
	"time"
)

func TestStrategyRankOrdering(t *testing.T) {
	order := []Strategy{StrategySkip, StrategyWatch, StrategyBidNow, StrategyBuyNow}
	for i := 1; i < len(order); i++ {
		if order[i].Rank() <= order[i-1].Rank() {
			t.Errorf("%s rank %d not above %s rank %d",
				order[i], order[i].Rank(), order[i-1], order[i-1].Rank())
		}
	}
	if StrategyExtractionFailed.Rank() != StrategySkip.Rank() {
		t.Errorf("extraction_failed should rank with skip")
	}
}

func TestHoursRemaining(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		end  time.Time
		want float64
	}{
		{"no end time", time.Time{}, 0},
		{"ended", now.Add(-2 * time.Hour), 0},
		{"ten hours left", now.Add(10 * time.Hour), 10},
	}

	for _, c := range cases {
		l := RawListing{EndTime: c.end}
		got := l.HoursRemaining(now)
		if abs(got-c.want) > 0.001 {
			t.Errorf("%s: got %.2f want %.2f", c.name, got, c.want)
		}
	}
}

func TestRawListingValidate(t *testing.T) {
	good := RawListing{SourceID: "a1", Platform: "auction", Title: "Garmin Fenix 7"}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid listing rejected: %v", err)
	}

	bad := []RawListing{
		{Platform: "auction", Title: "x"},
		{SourceID: "a1", Title: "x"},
		{SourceID: "a1", Platform: "auction"},
		{SourceID: "a1", Platform: "auction", Title: "x", CurrentBid: -5},
	}
	for i, b := range bad {
		if err := b.Validate(); err == nil {
			t.Errorf("case %d: invalid listing accepted", i)
		}
	}
}

func TestPriceSourceTags(t *testing.T) {
	if got := AuctionDemandSource("strong"); got != "auction_demand_strong" {
		t.Errorf("got %s", got)
	}
	if !AuctionDemandSource("thin").IsAuctionDemand() {
		t.Errorf("auction demand tag not recognized")
	}
	if got := WebSource("idealo.de"); got != "web_idealo.de" {
		t.Errorf("got %s", got)
	}
	if got := WebSource(""); got != "web_unknown" {
		t.Errorf("empty label: got %s", got)
	}
	if SourceNoPrice.IsAuctionDemand() || SourceNoPrice.IsWebReference() {
		t.Errorf("no_price misclassified")
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
