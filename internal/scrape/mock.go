package scrape

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"time"

	"github.com/helmling/bidgap/internal/model"
)

// MockProvider serves deterministic synthetic listings so the pipeline runs
// without a configured marketplace. Same query, same listings, every time.
type MockProvider struct {
	Platform string
	BaseURL  string
	Now      func() time.Time
}

func NewMockProvider() *MockProvider {
	return &MockProvider{
		Platform: "mock",
		BaseURL:  "https://marketplace.invalid",
		Now:      time.Now,
	}
}

func (m *MockProvider) Available() bool {
	return true
}

func (m *MockProvider) GetProviderName() string {
	return "MockMarketplace"
}

// Noise suffixes cycle through price-irrelevant wording so sibling listings
// exercise the attribute filter and still share an identity.
var mockNoise = []string{
	"Top Zustand", "neuwertig", "gebraucht", "wie neu, OVP", "schwarz",
	"inkl. Zubehoer", "Blitzversand", "defekt, Bastler",
}

func (m *MockProvider) SearchListings(_ context.Context, query string, maxResults int) ([]model.RawListing, error) {
	// Deterministic pseudo-random from the query alone.
	r := rand.New(rand.NewSource(int64(fnv64(query))))
	now := m.Now()

	n := 8
	if maxResults > 0 && maxResults < n {
		n = maxResults
	}

	listings := make([]model.RawListing, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("m%08d", fnv64(fmt.Sprintf("%s|%d", query, i))%1e8)
		base := 40 + float64(r.Intn(120))
		bids := r.Intn(8)
		price := base * (0.5 + 0.1*float64(bids))

		l := model.RawListing{
			SourceID:    id,
			Platform:    m.Platform,
			Title:       fmt.Sprintf("%s %s", query, mockNoise[i%len(mockNoise)]),
			Description: fmt.Sprintf("Synthetic listing %d for %q.", i+1, query),
			CurrentBid:  float64(int(price*100)) / 100,
			BidsCount:   bids,
			EndTime:     now.Add(time.Duration(2+r.Intn(96)) * time.Hour),
			URL:         m.BaseURL + "/listings/" + url.PathEscape(id),
			Location:    "Example City",
		}
		if i%3 == 0 {
			buyNow := base * 1.6
			l.BuyNowPrice = &buyNow
		}
		if i%2 == 0 {
			rating := 70 + float64(r.Intn(30))
			l.SellerRating = &rating
		}
		listings = append(listings, l)
	}
	return listings, nil
}

// fnv64 hashes a string for deterministic mock data.
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
