// Package extract turns free-text listings into structured product specs via
// an external language-model oracle. The oracle is best-effort: batch calls
// that fail degrade to one bounded per-item salvage pass, and whatever still
// fails is reported as missing, never as a fatal error.
package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/helmling/bidgap/internal/budget"
	"github.com/helmling/bidgap/internal/logging"
	"github.com/helmling/bidgap/internal/model"
)

// Extractor is the product-spec oracle. Results are keyed by listing
// SourceID; listings absent from the map failed extraction.
type Extractor interface {
	Available() bool
	GetProviderName() string
	ExtractBatch(ctx context.Context, listings []model.RawListing) (map[string]model.ProductSpec, error)
}

// Costs estimates what one oracle call spends, for budget gating.
type Costs struct {
	PerCall float64
	PerItem float64
}

func (c Costs) batch(n int) float64 {
	return c.PerCall + c.PerItem*float64(n)
}

// ExtractAll runs the oracle over all listings in batches. Every call is
// gated by the budget first. A failed batch gets exactly one salvage level:
// its items retried one by one, each gated again. Never recursive.
func ExtractAll(ctx context.Context, ex Extractor, listings []model.RawListing, batchSize int, bud *budget.Budget, costs Costs) map[string]model.ProductSpec {
	if batchSize < 1 {
		batchSize = 1
	}
	specs := make(map[string]model.ProductSpec, len(listings))

	for start := 0; start < len(listings); start += batchSize {
		end := start + batchSize
		if end > len(listings) {
			end = len(listings)
		}
		batch := listings[start:end]

		cost := costs.batch(len(batch))
		if err := bud.Allow(cost); err != nil {
			if errors.Is(err, budget.ErrExhausted) {
				logging.Log.Warnf("extraction budget exhausted, %d listings left unextracted", len(listings)-start)
				return specs
			}
			logging.Log.Warnf("budget check failed: %v", err)
			return specs
		}

		bud.Spend(cost)
		got, err := ex.ExtractBatch(ctx, batch)
		if err == nil {
			merge(specs, got, batch)
			continue
		}
		logging.Log.Warnf("batch of %d failed (%v), salvaging per item", len(batch), err)
		salvage(ctx, ex, batch, specs, bud, costs)
	}
	return specs
}

// salvage retries one failed batch item by item. This is the only fallback
// level; a failing single item stays failed.
func salvage(ctx context.Context, ex Extractor, batch []model.RawListing, specs map[string]model.ProductSpec, bud *budget.Budget, costs Costs) {
	for i := range batch {
		item := batch[i : i+1]

		cost := costs.batch(1)
		if err := bud.Allow(cost); err != nil {
			logging.Log.Warnf("budget exhausted mid-salvage, %d items abandoned", len(batch)-i)
			return
		}

		bud.Spend(cost)
		got, err := ex.ExtractBatch(ctx, item)
		if err != nil {
			logging.Log.Debugf("salvage failed for %s: %v", item[0].SourceID, err)
			continue
		}
		merge(specs, got, item)
	}
}

func merge(into map[string]model.ProductSpec, got map[string]model.ProductSpec, batch []model.RawListing) {
	for i := range batch {
		id := batch[i].SourceID
		spec, ok := got[id]
		if !ok {
			continue
		}
		spec.ListingID = id
		spec.Clamp()
		into[id] = spec
	}
}

// ValidateSpec rejects specs that cannot seed an identity at all.
func ValidateSpec(s *model.ProductSpec) error {
	if s.Brand == "" && s.Model == "" {
		return fmt.Errorf("spec for %s has neither brand nor model", s.ListingID)
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return fmt.Errorf("spec for %s has confidence %.3f out of range", s.ListingID, s.Confidence)
	}
	return nil
}
