package webref

import (
	"context"
	"strings"
)

// MockSearcher serves deterministic reference prices keyed by query words.
// Fixed answers can be injected per query for tests.
type MockSearcher struct {
	Fixed map[string][]PriceRef
}

func NewMockSearcher() *MockSearcher {
	return &MockSearcher{Fixed: map[string][]PriceRef{}}
}

func (m *MockSearcher) Available() bool {
	return true
}

func (m *MockSearcher) GetProviderName() string {
	return "MockWebSearch"
}

func (m *MockSearcher) Cached(string) ([]PriceRef, bool) {
	return nil, false
}

func (m *MockSearcher) SearchReferencePrice(_ context.Context, query string) ([]PriceRef, error) {
	if refs, ok := m.Fixed[query]; ok {
		return refs, nil
	}

	// Deterministic price from the query text.
	base := 50 + float64(fnv64(query)%400)
	return []PriceRef{
		{Price: base, SourceURL: "https://shop-a.invalid/" + slugify(query), Label: "shop-a.invalid"},
		{Price: base * 1.1, SourceURL: "https://shop-b.invalid/" + slugify(query), Label: "shop-b.invalid"},
	}, nil
}

func slugify(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
}

func fnv64(s string) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	var h uint64 = offset64
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}

// Empty is a searcher that always answers with no references, for exercising
// the waterfall's lower tiers.
type Empty struct{}

func (Empty) Available() bool                  { return true }
func (Empty) GetProviderName() string          { return "EmptyWebSearch" }
func (Empty) Cached(string) ([]PriceRef, bool) { return nil, false }

func (Empty) SearchReferencePrice(context.Context, string) ([]PriceRef, error) {
	return nil, nil
}
