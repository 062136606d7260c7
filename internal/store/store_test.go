package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/helmling/bidgap/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testIdentity() model.CanonicalIdentity {
	return model.CanonicalIdentity{
		BaseProductKey: "garmin_fenix_7_sapphire_solar",
		VariantKey:     "garmin_fenix_7_sapphire_solar",
		DisplayName:    "Garmin Fenix 7 Sapphire Solar",
	}
}

func testListing(runID, productID int64, sourceID string, bid float64, bids int) *model.Listing {
	return &model.Listing{
		RunID:      runID,
		ProductID:  productID,
		VariantKey: "garmin_fenix_7_sapphire_solar",
		RawListing: model.RawListing{
			SourceID:   sourceID,
			Platform:   "test",
			Title:      "Garmin Fenix 7 Sapphire Solar",
			CurrentBid: bid,
			BidsCount:  bids,
			EndTime:    time.Now().Add(24 * time.Hour),
		},
	}
}

func TestEnsureProductIdempotent(t *testing.T) {
	s := openTestStore(t)

	first, err := s.EnsureProduct(testIdentity(), "garmin", "electronics")
	if err != nil {
		t.Fatalf("EnsureProduct: %v", err)
	}
	second, err := s.EnsureProduct(testIdentity(), "garmin", "electronics")
	if err != nil {
		t.Fatalf("EnsureProduct again: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("same identity resolved to two products: %d and %d", first.ID, second.ID)
	}
}

func TestAliasResolution(t *testing.T) {
	s := openTestStore(t)

	p, err := s.EnsureProduct(testIdentity(), "garmin", "electronics")
	if err != nil {
		t.Fatalf("EnsureProduct: %v", err)
	}

	// An old key from a previous normalizer version points at the same row.
	if err := s.AddAlias("garmin_fenix7_sapphire", p.VariantKey); err != nil {
		t.Fatalf("AddAlias: %v", err)
	}

	old := testIdentity()
	old.VariantKey = "garmin_fenix7_sapphire"
	resolved, err := s.EnsureProduct(old, "garmin", "electronics")
	if err != nil {
		t.Fatalf("EnsureProduct via alias: %v", err)
	}
	if resolved.ID != p.ID {
		t.Errorf("alias created a second product: %d vs %d", resolved.ID, p.ID)
	}

	// Aliases are append-only: repointing is ignored.
	if err := s.AddAlias("garmin_fenix7_sapphire", "somewhere_else"); err != nil {
		t.Fatalf("AddAlias repoint: %v", err)
	}
	key, err := s.ResolveAlias("garmin_fenix7_sapphire")
	if err != nil {
		t.Fatalf("ResolveAlias: %v", err)
	}
	if key != p.VariantKey {
		t.Errorf("alias was repointed to %q", key)
	}
}

func TestUpsertListingAndSiblings(t *testing.T) {
	s := openTestStore(t)

	runID, err := s.BeginRun([]string{"garmin fenix 7"})
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	p, _ := s.EnsureProduct(testIdentity(), "garmin", "electronics")

	for i, bid := range []float64{120, 140, 160} {
		l := testListing(runID, p.ID, "src"+string(rune('a'+i)), bid, i+1)
		if _, err := s.UpsertListing(l); err != nil {
			t.Fatalf("UpsertListing %d: %v", i, err)
		}
	}

	siblings, err := s.QueryByIdentity(p.VariantKey, runID)
	if err != nil {
		t.Fatalf("QueryByIdentity: %v", err)
	}
	if len(siblings) != 3 {
		t.Fatalf("expected 3 siblings, got %d", len(siblings))
	}
	for _, l := range siblings {
		if l.ProductID != p.ID || l.VariantKey != p.VariantKey {
			t.Errorf("sibling missing identity columns: %+v", l)
		}
		if l.EndTime.IsZero() {
			t.Errorf("end time lost in round trip")
		}
	}

	// Re-upserting the same source refreshes the auction fields, no new row.
	again := testListing(runID, p.ID, "srca", 200, 5)
	if _, err := s.UpsertListing(again); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	siblings, _ = s.QueryByIdentity(p.VariantKey, runID)
	if len(siblings) != 3 {
		t.Errorf("upsert created a duplicate, now %d rows", len(siblings))
	}
	if siblings[0].CurrentBid != 200 || siblings[0].BidsCount != 5 {
		t.Errorf("auction fields not refreshed: %+v", siblings[0])
	}
}

func TestListingVariantKey(t *testing.T) {
	s := openTestStore(t)

	runID, _ := s.BeginRun([]string{"q"})
	p, _ := s.EnsureProduct(testIdentity(), "garmin", "electronics")
	l := testListing(runID, p.ID, "srca", 120, 4)
	if _, err := s.UpsertListing(l); err != nil {
		t.Fatalf("UpsertListing: %v", err)
	}

	key, err := s.ListingVariantKey(l.Platform, "srca")
	if err != nil {
		t.Fatalf("ListingVariantKey: %v", err)
	}
	if key != p.VariantKey {
		t.Errorf("got %q, want %q", key, p.VariantKey)
	}

	if _, err := s.ListingVariantKey(l.Platform, "never-seen"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown listing: expected ErrNotFound, got %v", err)
	}
}

func TestUpsertListingRequiresIdentity(t *testing.T) {
	s := openTestStore(t)
	runID, _ := s.BeginRun([]string{"q"})

	l := testListing(runID, 0, "srcx", 10, 1)
	l.ProductID = 0
	if _, err := s.UpsertListing(l); err == nil {
		t.Error("listing without product id must be rejected")
	}
}

func TestEvaluationsImmutableAndExported(t *testing.T) {
	s := openTestStore(t)

	runID, _ := s.BeginRun([]string{"garmin fenix 7"})
	p, _ := s.EnsureProduct(testIdentity(), "garmin", "electronics")
	l := testListing(runID, p.ID, "srca", 120, 4)
	listingID, _ := s.UpsertListing(l)

	resale := 180.0
	ev := &model.Evaluation{
		RunID:          runID,
		ListingID:      listingID,
		ProductID:      p.ID,
		CostEstimate:   130,
		ResalePrice:    &resale,
		ExpectedProfit: 30,
		MarginPct:      23,
		DealScore:      6.5,
		Strategy:       model.StrategyBidNow,
		Reason:         "live auction, profit 30.00",
		Source:         model.AuctionDemandSource("medium"),
		Confidence:     0.62,
		SampleSize:     4,
	}
	if _, err := s.InsertEvaluation(ev); err != nil {
		t.Fatalf("InsertEvaluation: %v", err)
	}
	// A re-run inserts a second row rather than touching the first.
	if _, err := s.InsertEvaluation(ev); err != nil {
		t.Fatalf("second InsertEvaluation: %v", err)
	}

	rows, err := s.EvaluationsForRun(runID)
	if err != nil {
		t.Fatalf("EvaluationsForRun: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 evaluation rows, got %d", len(rows))
	}
	got := rows[0].Evaluation
	if got.Strategy != model.StrategyBidNow || got.Source != "auction_demand_medium" {
		t.Errorf("evaluation round trip wrong: %+v", got)
	}
	if got.ResalePrice == nil || *got.ResalePrice != 180 {
		t.Errorf("resale price lost")
	}
	if rows[0].Title == "" || rows[0].VariantKey == "" {
		t.Errorf("export join incomplete: %+v", rows[0])
	}
}

func TestLatestRunID(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.LatestRunID(); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty store: expected ErrNotFound, got %v", err)
	}

	_, _ = s.BeginRun([]string{"a"})
	second, _ := s.BeginRun([]string{"b"})

	got, err := s.LatestRunID()
	if err != nil {
		t.Fatalf("LatestRunID: %v", err)
	}
	if got != second {
		t.Errorf("latest run %d, want %d", got, second)
	}
}

func TestProductByVariantKeyNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.ProductByVariantKey("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSetPricesPersist(t *testing.T) {
	s := openTestStore(t)
	p, _ := s.EnsureProduct(testIdentity(), "garmin", "electronics")

	if err := s.SetReferencePrice(p.ID, 499); err != nil {
		t.Fatalf("SetReferencePrice: %v", err)
	}
	if err := s.SetResaleEstimate(p.ID, 310); err != nil {
		t.Fatalf("SetResaleEstimate: %v", err)
	}

	got, _ := s.ProductByVariantKey(p.VariantKey)
	if got.ReferencePrice == nil || *got.ReferencePrice != 499 {
		t.Errorf("reference price not persisted")
	}
	if got.ResaleEstimate == nil || *got.ResaleEstimate != 310 {
		t.Errorf("resale estimate not persisted")
	}
}
