package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/helmling/bidgap/internal/model"
)

// UpsertListing writes a listing row with its product id and variant key in
// the same statement. The identity columns are part of the insert itself, so
// a sibling query never observes a listing without them. Re-sighting the same
// (platform, source_id) refreshes the live auction fields.
func (s *Store) UpsertListing(l *model.Listing) (int64, error) {
	if l.ProductID == 0 || l.VariantKey == "" {
		return 0, fmt.Errorf("listing %s has no resolved identity", l.SourceID)
	}

	_, err := s.sql.Exec(
		`INSERT INTO listings(run_id, platform, source_id, product_id, variant_key, title,
		                      description, current_bid, bids_count, buy_now_price, end_time,
		                      url, image_url, location, seller_rating, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(platform, source_id) DO UPDATE SET
		   run_id = excluded.run_id,
		   current_bid = excluded.current_bid,
		   bids_count = excluded.bids_count,
		   buy_now_price = excluded.buy_now_price,
		   end_time = excluded.end_time,
		   seller_rating = excluded.seller_rating`,
		l.RunID, l.Platform, l.SourceID, l.ProductID, l.VariantKey, l.Title,
		l.Description, l.CurrentBid, l.BidsCount, floatOrNull(l.BuyNowPrice),
		timeOrNull(l.EndTime), l.URL, l.ImageURL, l.Location,
		floatOrNull(l.SellerRating), now())
	if err != nil {
		return 0, fmt.Errorf("upserting listing %s: %w", l.SourceID, err)
	}

	var id int64
	err = s.sql.QueryRow(`SELECT id FROM listings WHERE platform = ? AND source_id = ?`,
		l.Platform, l.SourceID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("reading back listing %s: %w", l.SourceID, err)
	}
	l.ID = id
	return id, nil
}

// ListingVariantKey returns the identity a previously sighted listing was
// bound to, ErrNotFound when the listing was never seen.
func (s *Store) ListingVariantKey(platform, sourceID string) (string, error) {
	var key string
	err := s.sql.QueryRow(`SELECT variant_key FROM listings WHERE platform = ? AND source_id = ?`,
		platform, sourceID).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("listing %s/%s: %w", platform, sourceID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("loading identity of listing %s/%s: %w", platform, sourceID, err)
	}
	return key, nil
}

// QueryByIdentity returns the sibling listings of one variant key. A non-zero
// runID restricts the snapshot to that run.
func (s *Store) QueryByIdentity(variantKey string, runID int64) ([]model.Listing, error) {
	query := `SELECT id, run_id, platform, source_id, product_id, variant_key, title,
	                 description, current_bid, bids_count, buy_now_price, end_time,
	                 url, image_url, location, seller_rating, created_at
	          FROM listings WHERE variant_key = ?`
	args := []interface{}{variantKey}
	if runID > 0 {
		query += ` AND run_id = ?`
		args = append(args, runID)
	}
	query += ` ORDER BY id`

	rows, err := s.sql.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying siblings of %q: %w", variantKey, err)
	}
	defer rows.Close()

	var listings []model.Listing
	for rows.Next() {
		var l model.Listing
		var buyNow, rating sql.NullFloat64
		var endTime sql.NullString
		var createdAt string
		if err := rows.Scan(&l.ID, &l.RunID, &l.Platform, &l.SourceID, &l.ProductID,
			&l.VariantKey, &l.Title, &l.Description, &l.CurrentBid, &l.BidsCount,
			&buyNow, &endTime, &l.URL, &l.ImageURL, &l.Location, &rating, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning listing: %w", err)
		}
		if buyNow.Valid {
			l.BuyNowPrice = &buyNow.Float64
		}
		if rating.Valid {
			l.SellerRating = &rating.Float64
		}
		if endTime.Valid {
			l.EndTime = parseTime(endTime.String)
		}
		l.CreatedAt = parseTime(createdAt)
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// InsertEvaluation appends one advice row. Evaluations are immutable; there
// is deliberately no update path.
func (s *Store) InsertEvaluation(ev *model.Evaluation) (int64, error) {
	res, err := s.sql.Exec(
		`INSERT INTO evaluations(run_id, listing_id, product_id, cost_estimate, resale_price,
		                         expected_profit, margin_pct, deal_score, strategy, reason,
		                         price_source, confidence, sample_size, soft_cap_applied, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.RunID, ev.ListingID, ev.ProductID, ev.CostEstimate, floatOrNull(ev.ResalePrice),
		ev.ExpectedProfit, ev.MarginPct, ev.DealScore, string(ev.Strategy), ev.Reason,
		string(ev.Source), ev.Confidence, ev.SampleSize, boolToInt(ev.SoftCapApplied), now())
	if err != nil {
		return 0, fmt.Errorf("inserting evaluation for listing %d: %w", ev.ListingID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	ev.ID = id
	return id, nil
}

// ExportRow is one evaluation joined with its listing and product for report
// output.
type ExportRow struct {
	Evaluation model.Evaluation
	Title      string
	URL        string
	VariantKey string
}

// EvaluationsForRun returns all advice rows of one run, joined for export,
// strongest strategy and score first.
func (s *Store) EvaluationsForRun(runID int64) ([]ExportRow, error) {
	rows, err := s.sql.Query(
		`SELECT e.id, e.run_id, e.listing_id, e.product_id, e.cost_estimate, e.resale_price,
		        e.expected_profit, e.margin_pct, e.deal_score, e.strategy, e.reason,
		        e.price_source, e.confidence, e.sample_size, e.soft_cap_applied, e.created_at,
		        l.title, l.url, l.variant_key
		 FROM evaluations e
		 JOIN listings l ON l.id = e.listing_id
		 WHERE e.run_id = ?
		 ORDER BY e.deal_score DESC, e.id`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying evaluations of run %d: %w", runID, err)
	}
	defer rows.Close()

	var out []ExportRow
	for rows.Next() {
		var r ExportRow
		ev := &r.Evaluation
		var resale sql.NullFloat64
		var strategy, source, createdAt string
		var softCap int
		if err := rows.Scan(&ev.ID, &ev.RunID, &ev.ListingID, &ev.ProductID, &ev.CostEstimate,
			&resale, &ev.ExpectedProfit, &ev.MarginPct, &ev.DealScore, &strategy, &ev.Reason,
			&source, &ev.Confidence, &ev.SampleSize, &softCap, &createdAt,
			&r.Title, &r.URL, &r.VariantKey); err != nil {
			return nil, fmt.Errorf("scanning evaluation: %w", err)
		}
		if resale.Valid {
			ev.ResalePrice = &resale.Float64
		}
		ev.Strategy = model.Strategy(strategy)
		ev.Source = model.PriceSource(source)
		ev.SoftCapApplied = softCap == 1
		ev.CreatedAt = parseTime(createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

func floatOrNull(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
