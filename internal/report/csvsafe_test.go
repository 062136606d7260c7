package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/helmling/bidgap/internal/model"
	"github.com/helmling/bidgap/internal/store"
)

func TestEscapeCell(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"normal text", "normal text"},
		{"=SUM(A1:A9)", "'=SUM(A1:A9)"},
		{"+49 151 000", "'+49 151 000"},
		{"-10", "'-10"},
		{"@import", "'@import"},
		{"|pipe", "'|pipe"},
		{"%cmd", "'%cmd"},
		{"\tindented", "'\tindented"},
		{"\ncr", "'\ncr"},
		{"iPhone 12 = top", "iPhone 12 = top"},
	}
	for _, c := range cases {
		if got := EscapeCell(c.in); got != c.want {
			t.Errorf("EscapeCell(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestEscapeRow(t *testing.T) {
	got := EscapeRow([]string{"=x", "safe"})
	if got[0] != "'=x" || got[1] != "safe" {
		t.Errorf("EscapeRow = %v", got)
	}
}

func TestWriteCSV(t *testing.T) {
	resale := 180.0
	rows := []store.ExportRow{
		{
			Evaluation: model.Evaluation{
				ListingID:      7,
				CostEstimate:   130,
				ResalePrice:    &resale,
				ExpectedProfit: 30,
				MarginPct:      23.1,
				DealScore:      6.5,
				Strategy:       model.StrategyBidNow,
				Reason:         "live auction",
				Source:         model.AuctionDemandSource("medium"),
				Confidence:     0.62,
				SampleSize:     4,
			},
			Title:      "=Garmin Fenix 7", // hostile title
			URL:        "https://example.invalid/7",
			VariantKey: "garmin_fenix_7",
		},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	out := buf.String()

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "listing_id,") {
		t.Errorf("header missing: %q", lines[0])
	}
	if !strings.Contains(out, "'=Garmin Fenix 7") {
		t.Errorf("hostile title not escaped: %q", out)
	}
	if !strings.Contains(out, "bid_now") || !strings.Contains(out, "auction_demand_medium") {
		t.Errorf("row fields missing: %q", out)
	}
}
