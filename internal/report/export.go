package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/helmling/bidgap/internal/store"
)

var exportHeader = []string{
	"listing_id", "title", "variant_key", "url", "strategy", "deal_score",
	"cost_estimate", "resale_price", "expected_profit", "margin_pct",
	"price_source", "confidence", "sample_size", "soft_cap_applied", "reason",
}

// Rows renders export rows for CSV output, header first, every cell escaped.
func Rows(rows []store.ExportRow) [][]string {
	out := make([][]string, 0, len(rows)+1)
	out = append(out, EscapeRow(exportHeader))

	for _, r := range rows {
		ev := r.Evaluation
		resale := ""
		if ev.ResalePrice != nil {
			resale = fmt.Sprintf("%.2f", *ev.ResalePrice)
		}
		out = append(out, EscapeRow([]string{
			fmt.Sprintf("%d", ev.ListingID),
			r.Title,
			r.VariantKey,
			r.URL,
			string(ev.Strategy),
			fmt.Sprintf("%.1f", ev.DealScore),
			fmt.Sprintf("%.2f", ev.CostEstimate),
			resale,
			fmt.Sprintf("%.2f", ev.ExpectedProfit),
			fmt.Sprintf("%.1f", ev.MarginPct),
			string(ev.Source),
			fmt.Sprintf("%.2f", ev.Confidence),
			fmt.Sprintf("%d", ev.SampleSize),
			fmt.Sprintf("%t", ev.SoftCapApplied),
			ev.Reason,
		}))
	}
	return out
}

// WriteCSV writes export rows to w.
func WriteCSV(w io.Writer, rows []store.ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(Rows(rows)); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}
