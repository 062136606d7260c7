// Package pipeline drives one run end to end: scrape, extract, identity,
// market aggregation, price resolution, evaluation, persistence. Queries are
// processed sequentially; the pricing core underneath is pure and synchronous.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/helmling/bidgap/internal/budget"
	"github.com/helmling/bidgap/internal/cache"
	"github.com/helmling/bidgap/internal/config"
	"github.com/helmling/bidgap/internal/deal"
	"github.com/helmling/bidgap/internal/extract"
	"github.com/helmling/bidgap/internal/identity"
	"github.com/helmling/bidgap/internal/logging"
	"github.com/helmling/bidgap/internal/market"
	"github.com/helmling/bidgap/internal/model"
	"github.com/helmling/bidgap/internal/pricing"
	"github.com/helmling/bidgap/internal/progress"
	"github.com/helmling/bidgap/internal/scrape"
	"github.com/helmling/bidgap/internal/store"
	"github.com/helmling/bidgap/internal/webref"
)

// Deps are the I/O adapters the runner talks to. Tests inject scripted ones.
type Deps struct {
	Store     *store.Store
	Provider  scrape.Provider
	Extractor extract.Extractor
	Searcher  webref.Searcher
	Cache     *cache.Cache     // extraction + webref response cache, may be nil
	Clock     func() time.Time // nil = wall clock
}

// Runner owns the per-run wiring: one budget, one memo, the pure pricing
// core configured from the tuning block.
type Runner struct {
	cfg  *config.Config
	deps Deps

	normalizer *identity.Normalizer
	filter     *identity.Filter
	samples    market.SampleFilter
	hard       *market.HardAggregator
	soft       *market.SoftAggregator
	resolver   *pricing.Resolver
	evaluator  *deal.Evaluator

	bud   *budget.Budget
	quiet bool
	now   func() time.Time
}

func New(cfg *config.Config, deps Deps, quiet bool) *Runner {
	identCfg := identity.NewConfig()
	identCfg.MinSpecConfidence = cfg.Tuning.MinSpecConfidence

	hardCfg := market.NewHardConfig()
	hardCfg.MinSamples = cfg.Tuning.MinHardSamples

	softCfg := market.NewSoftConfig()
	softCfg.MinSamples = cfg.Tuning.MinSoftSamples

	priceCfg := pricing.NewConfig()
	priceCfg.CapSlack = cfg.Tuning.CapSlack
	priceCfg.BaselineDiscount = cfg.Tuning.BaselineDiscount
	priceCfg.BuyNowAnchorRate = cfg.Tuning.BuyNowAnchorRate

	dealCfg := deal.NewConfig()
	dealCfg.MinProfit = cfg.Tuning.MinProfit
	dealCfg.MarginCapPct = cfg.Tuning.MarginCapPct
	dealCfg.PlatformFeePct = cfg.Tuning.PlatformFeePct

	now := time.Now
	if deps.Clock != nil {
		now = deps.Clock
	}

	return &Runner{
		cfg:        cfg,
		deps:       deps,
		normalizer: identity.NewNormalizer(identCfg),
		filter:     identity.NewFilter(),
		samples:    market.NewSampleFilter(),
		hard:       market.NewHardAggregator(hardCfg),
		soft:       market.NewSoftAggregator(softCfg),
		resolver:   pricing.NewResolver(priceCfg),
		evaluator:  deal.NewEvaluator(dealCfg),
		bud:        budget.New(cfg.MaxOracleCalls, cfg.MaxOracleCost),
		quiet:      quiet,
		now:        now,
	}
}

// workItem carries one listing through the run.
type workItem struct {
	listing *model.Listing
	spec    *model.ProductSpec // nil when extraction failed
	product *model.Product
	ident   model.CanonicalIdentity
}

// Run executes one full pass over the queries. Oracle and scrape failures
// degrade; store failures abort and mark the run failed.
func (r *Runner) Run(ctx context.Context, queries []string) (*model.RunSummary, error) {
	start := r.now()
	summary := model.NewRunSummary(queries)

	runID, err := r.deps.Store.BeginRun(queries)
	if err != nil {
		return nil, fmt.Errorf("beginning run: %w", err)
	}
	summary.RunID = runID

	items, err := r.ingest(ctx, runID, queries, summary)
	if err != nil {
		r.fail(runID)
		return nil, err
	}

	baselines := r.lookupReferences(ctx, items)

	if err := r.evaluate(items, baselines, summary); err != nil {
		r.fail(runID)
		return nil, err
	}

	calls, cost := r.bud.Used()
	summary.OracleCalls = calls
	summary.EstCost = cost
	summary.Duration = r.now().Sub(start)

	if err := r.deps.Store.FinishRun(runID, false); err != nil {
		return nil, fmt.Errorf("finishing run %d: %w", runID, err)
	}
	return summary, nil
}

func (r *Runner) fail(runID int64) {
	if err := r.deps.Store.FinishRun(runID, true); err != nil {
		logging.Log.Errorf("marking run %d failed: %v", runID, err)
	}
}

// ingest scrapes every query, extracts specs and persists listings bound to
// their canonical identity. A failing query is logged and skipped; a failing
// store write aborts.
func (r *Runner) ingest(ctx context.Context, runID int64, queries []string, summary *model.RunSummary) ([]workItem, error) {
	var items []workItem

	// one shared row per variant key, so a reference price fetched later is
	// visible to every sibling work item
	products := map[string]*model.Product{}

	for _, query := range queries {
		ind := progress.Simple("scraping "+query, r.quiet)
		ind.Start()

		raws, err := r.deps.Provider.SearchListings(ctx, query, r.cfg.MaxPerQuery)
		if err != nil {
			ind.FinishWithError(err)
			logging.Log.Errorf("query %q failed on %s: %v", query, r.deps.Provider.GetProviderName(), err)
			summary.ScrapeErrors++
			continue
		}
		ind.Finish()
		summary.ListingsSeen += len(raws)

		specs := r.extractSpecs(ctx, raws)

		for i := range raws {
			raw := raws[i]
			spec := specFor(specs, raw.SourceID)

			ident := r.normalizer.Derive(spec, raw.Title)
			brand, category := "", ""
			if spec != nil {
				brand = spec.Brand
				category = identity.CanonicalCategory(spec.Category)
			}

			product, ok := products[ident.VariantKey]
			if !ok {
				if err := r.aliasResighted(&raw, ident); err != nil {
					return nil, err
				}
				// EnsureProduct resolves historical keys through the alias
				// table, so product.VariantKey may differ from the derived one
				product, err = r.deps.Store.EnsureProduct(ident, brand, category)
				if err != nil {
					return nil, fmt.Errorf("catalog write for %q: %w", ident.VariantKey, err)
				}
				products[ident.VariantKey] = product
				products[product.VariantKey] = product
			}

			l := &model.Listing{
				RunID:      runID,
				ProductID:  product.ID,
				VariantKey: product.VariantKey,
				RawListing: raw,
			}
			if _, err := r.deps.Store.UpsertListing(l); err != nil {
				return nil, fmt.Errorf("persisting listing %s: %w", raw.SourceID, err)
			}

			if spec != nil {
				summary.Extracted++
			} else {
				summary.ExtractionFailed++
			}
			items = append(items, workItem{listing: l, spec: spec, product: product, ident: ident})
		}
	}
	return items, nil
}

// aliasResighted appends an alias when a previously sighted listing comes
// back under a different derived key, e.g. because extraction now succeeds
// where the first sighting fell back to the title. The original key stays
// canonical; the new surface form converges onto the same catalog row.
func (r *Runner) aliasResighted(raw *model.RawListing, ident model.CanonicalIdentity) error {
	prev, err := r.deps.Store.ListingVariantKey(raw.Platform, raw.SourceID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking prior sighting of %s: %w", raw.SourceID, err)
	}
	if prev == ident.VariantKey {
		return nil
	}
	if err := r.deps.Store.AddAlias(ident.VariantKey, prev); err != nil {
		return fmt.Errorf("aliasing %q to %q: %w", ident.VariantKey, prev, err)
	}
	logging.Log.Debugf("listing %s re-sighted: %q now aliases %q", raw.SourceID, ident.VariantKey, prev)
	return nil
}

// extractSpecs runs the oracle over listings not already answered by the
// cache and stores fresh answers back.
func (r *Runner) extractSpecs(ctx context.Context, raws []model.RawListing) map[string]model.ProductSpec {
	specs := make(map[string]model.ProductSpec, len(raws))
	pending := make([]model.RawListing, 0, len(raws))

	for _, raw := range raws {
		key := cache.ExtractionKey(raw.Platform, raw.SourceID, titleHash(raw.Title))
		var cached model.ProductSpec
		if r.deps.Cache != nil {
			if ok, err := r.deps.Cache.Get(key, &cached); err == nil && ok {
				specs[raw.SourceID] = cached
				continue
			}
		}
		pending = append(pending, raw)
	}

	if len(pending) == 0 || !r.deps.Extractor.Available() {
		return specs
	}

	costs := extract.Costs{PerCall: r.cfg.ExtractCallCost, PerItem: r.cfg.ExtractItemCost}
	fresh := extract.ExtractAll(ctx, r.deps.Extractor, pending, r.cfg.ExtractBatch, r.bud, costs)

	ttl := time.Duration(r.cfg.CacheTTLHours) * time.Hour
	for _, raw := range pending {
		spec, ok := fresh[raw.SourceID]
		if !ok {
			continue
		}
		specs[raw.SourceID] = spec
		if r.deps.Cache != nil {
			key := cache.ExtractionKey(raw.Platform, raw.SourceID, titleHash(raw.Title))
			if err := r.deps.Cache.Put(key, spec, ttl); err != nil {
				logging.Log.Debugf("caching spec for %s: %v", raw.SourceID, err)
			}
		}
	}
	return specs
}

// lookupReferences fetches one reference price per product that has none,
// budget-gated and memoized within the run. Returns the running category
// baselines built from every reference price seen.
func (r *Runner) lookupReferences(ctx context.Context, items []workItem) map[string]float64 {
	sums := map[string]float64{}
	counts := map[string]int{}
	memo := cache.NewMemo(512)

	for i := range items {
		it := &items[i]
		if it.spec == nil {
			continue
		}
		category := identity.CanonicalCategory(it.spec.Category)

		// one pass per product, regardless of how many listings map to it
		if _, done := memo.Get(it.product.VariantKey); done {
			continue
		}
		memo.Set(it.product.VariantKey, true)

		if it.product.ReferencePrice == nil && r.deps.Searcher.Available() {
			r.fetchReference(ctx, it)
		}
		if it.product.ReferencePrice != nil {
			sums[category] += *it.product.ReferencePrice
			counts[category]++
		}
	}

	baselines := make(map[string]float64, len(sums))
	for cat, sum := range sums {
		baselines[cat] = sum / float64(counts[cat])
	}
	return baselines
}

func (r *Runner) fetchReference(ctx context.Context, it *workItem) {
	query := webref.BuildQuery(it.spec, &it.ident, r.filter)

	// a cached answer costs nothing; only a real external call hits the budget
	refs, hit := r.deps.Searcher.Cached(query)
	if !hit {
		if err := r.bud.Allow(r.cfg.SearchCallCost); err != nil {
			logging.Log.Debugf("skipping reference lookup for %s: %v", it.product.VariantKey, err)
			return
		}
		r.bud.Spend(r.cfg.SearchCallCost)

		var err error
		refs, err = r.deps.Searcher.SearchReferencePrice(ctx, query)
		if err != nil {
			logging.Log.Warnf("reference lookup %q failed: %v", query, err)
			return
		}
	}

	median, count, label := webref.Summarize(refs)
	if median <= 0 {
		return
	}
	if err := r.deps.Store.SetReferencePrice(it.product.ID, median); err != nil {
		logging.Log.Errorf("storing reference price for %s: %v", it.product.VariantKey, err)
		return
	}
	it.product.ReferencePrice = &median
	logging.Log.Debugf("reference %s: %.2f from %d refs (%s)", it.product.VariantKey, median, count, label)
}

// evaluate resolves a price and writes one immutable evaluation per listing.
func (r *Runner) evaluate(items []workItem, baselines map[string]float64, summary *model.RunSummary) error {
	now := r.now()
	ind := progress.WithTotal("evaluating", len(items), r.quiet)
	ind.Start()

	for i := range items {
		it := &items[i]
		ind.Update(i + 1)

		ev, err := r.evaluateOne(it, baselines, now)
		if err != nil {
			ind.FinishWithError(err)
			return err
		}
		summary.Count(ev.Strategy)
	}
	ind.Finish()
	return nil
}

func (r *Runner) evaluateOne(it *workItem, baselines map[string]float64, now time.Time) (*model.Evaluation, error) {
	l := it.listing

	if it.spec == nil {
		res := model.PriceResolution{Source: model.SourceNoPrice, Reason: "extraction failed"}
		ev := r.evaluator.Evaluate(l, &res, now)
		ev.Strategy = model.StrategyExtractionFailed
		if _, err := r.deps.Store.InsertEvaluation(&ev); err != nil {
			return nil, fmt.Errorf("persisting evaluation for listing %d: %w", l.ID, err)
		}
		return &ev, nil
	}

	// only the current run's snapshot counts as live demand; history feeds
	// back through the learned prior instead
	siblings, err := r.deps.Store.QueryByIdentity(l.VariantKey, l.RunID)
	if err != nil {
		return nil, fmt.Errorf("loading siblings of %q: %w", l.VariantKey, err)
	}
	samples := r.samples.Qualify(siblings, it.product.ReferencePrice, now)

	category := identity.CanonicalCategory(it.spec.Category)
	in := pricing.Inputs{
		Hard:           r.hard.Estimate(samples),
		Ceiling:        r.soft.Ceiling(samples),
		ReferencePrice: it.product.ReferencePrice,
		PriorEstimate:  it.product.ResaleEstimate,
		BuyNow:         l.BuyNowPrice,
		Category:       category,
	}
	if in.ReferencePrice != nil {
		in.ReferenceCount = 1
		in.ReferenceLabel = "catalog"
	}
	if b, ok := baselines[category]; ok && b > 0 {
		baseline := b
		in.CategoryBaseline = &baseline
	}

	res := r.resolver.Resolve(in)
	if err := pricing.CheckInvariants(&res); err != nil {
		logging.Log.Errorf("price resolution invariant violated for listing %d (%s): %v; resolution: %+v",
			l.ID, l.VariantKey, err, res)
	}

	ev := r.evaluator.Evaluate(l, &res, now)
	if _, err := r.deps.Store.InsertEvaluation(&ev); err != nil {
		return nil, fmt.Errorf("persisting evaluation for listing %d: %w", l.ID, err)
	}

	// a hard market read is worth remembering as next run's prior
	if res.Source.IsAuctionDemand() && res.HasPrice() {
		if err := r.deps.Store.SetResaleEstimate(it.product.ID, res.Price()); err != nil {
			return nil, fmt.Errorf("storing resale estimate for product %d: %w", it.product.ID, err)
		}
	}
	return &ev, nil
}

func specFor(specs map[string]model.ProductSpec, sourceID string) *model.ProductSpec {
	spec, ok := specs[sourceID]
	if !ok {
		return nil
	}
	if err := extract.ValidateSpec(&spec); err != nil {
		logging.Log.Debugf("rejecting spec: %v", err)
		return nil
	}
	return &spec
}

func titleHash(title string) string {
	h := fnv.New64a()
	h.Write([]byte(title))
	return strconv.FormatUint(h.Sum64(), 16)
}
