package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/helmling/bidgap/internal/model"
)

// ResolveAlias follows the alias table from any historical key to the current
// canonical variant key. Keys without an alias resolve to themselves.
func (s *Store) ResolveAlias(key string) (string, error) {
	var canonical string
	err := s.sql.QueryRow(`SELECT variant_key FROM identity_aliases WHERE alias = ?`, key).
		Scan(&canonical)
	if errors.Is(err, sql.ErrNoRows) {
		return key, nil
	}
	if err != nil {
		return "", fmt.Errorf("resolving alias %q: %w", key, err)
	}
	return canonical, nil
}

// AddAlias records that alias refers to the product under variantKey. The
// table is append-only; an existing alias is never repointed.
func (s *Store) AddAlias(alias, variantKey string) error {
	if alias == variantKey {
		return nil
	}
	_, err := s.sql.Exec(
		`INSERT OR IGNORE INTO identity_aliases(alias, variant_key, created_at) VALUES(?, ?, ?)`,
		alias, variantKey, now())
	if err != nil {
		return fmt.Errorf("adding alias %q: %w", alias, err)
	}
	return nil
}

// EnsureProduct returns the catalog row for an identity, creating it on first
// sighting. The identity's own key is first resolved through the alias table
// so renamed keys keep hitting their original row.
func (s *Store) EnsureProduct(ident model.CanonicalIdentity, brand, category string) (*model.Product, error) {
	canonical, err := s.ResolveAlias(ident.VariantKey)
	if err != nil {
		return nil, err
	}

	p, err := s.ProductByVariantKey(canonical)
	if err == nil {
		if _, uerr := s.sql.Exec(`UPDATE products SET last_seen = ? WHERE id = ?`, now(), p.ID); uerr != nil {
			return nil, fmt.Errorf("touching product %d: %w", p.ID, uerr)
		}
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	ts := now()
	res, err := s.sql.Exec(
		`INSERT INTO products(variant_key, base_product_key, display_name, brand, category, first_seen, last_seen)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		canonical, ident.BaseProductKey, ident.DisplayName, brand, category, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("inserting product %q: %w", canonical, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.Product{
		ID:             id,
		VariantKey:     canonical,
		BaseProductKey: ident.BaseProductKey,
		DisplayName:    ident.DisplayName,
		Brand:          brand,
		Category:       category,
		FirstSeen:      parseTime(ts),
		LastSeen:       parseTime(ts),
	}, nil
}

// ProductByVariantKey looks up one catalog row, ErrNotFound when absent.
func (s *Store) ProductByVariantKey(key string) (*model.Product, error) {
	row := s.sql.QueryRow(
		`SELECT id, variant_key, base_product_key, display_name, brand, category,
		        reference_price, resale_estimate, first_seen, last_seen
		 FROM products WHERE variant_key = ?`, key)

	var p model.Product
	var refPrice, resale sql.NullFloat64
	var first, last string
	err := row.Scan(&p.ID, &p.VariantKey, &p.BaseProductKey, &p.DisplayName,
		&p.Brand, &p.Category, &refPrice, &resale, &first, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading product %q: %w", key, err)
	}
	if refPrice.Valid {
		p.ReferencePrice = &refPrice.Float64
	}
	if resale.Valid {
		p.ResaleEstimate = &resale.Float64
	}
	p.FirstSeen = parseTime(first)
	p.LastSeen = parseTime(last)
	return &p, nil
}

// SetReferencePrice records the web reference price learned for a product.
func (s *Store) SetReferencePrice(productID int64, price float64) error {
	_, err := s.sql.Exec(`UPDATE products SET reference_price = ? WHERE id = ?`, price, productID)
	if err != nil {
		return fmt.Errorf("setting reference price for product %d: %w", productID, err)
	}
	return nil
}

// SetResaleEstimate stores a learned resale estimate for later runs to use as
// a prior.
func (s *Store) SetResaleEstimate(productID int64, estimate float64) error {
	_, err := s.sql.Exec(`UPDATE products SET resale_estimate = ? WHERE id = ?`, estimate, productID)
	if err != nil {
		return fmt.Errorf("setting resale estimate for product %d: %w", productID, err)
	}
	return nil
}
