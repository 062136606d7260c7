package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const searchPayload = `{
  "items": [
    {
      "id": "a1",
      "title": "Garmin Fenix 7 Sapphire Solar",
      "description": "Kaum getragen",
      "current_bid": 182.5,
      "bids_count": 6,
      "end_time": "2026-09-01T18:00:00Z",
      "url": "https://example.invalid/a1",
      "location": "Berlin",
      "seller_rating": 97
    },
    {
      "id": "a2",
      "title": "Garmin Fenix 7 Solar, Top Zustand",
      "current_bid": 150,
      "bids_count": 3,
      "buy_now_price": 320,
      "end_time": "1767225600"
    },
    {
      "id": "",
      "title": "missing id, must be dropped",
      "current_bid": 10,
      "bids_count": 1
    }
  ]
}`

func testConfig(baseURL string) Config {
	cfg := NewConfig()
	cfg.Platform = "testmarket"
	cfg.BaseURL = baseURL
	cfg.MaxRetries = 1
	cfg.RequestTimeout = 5 * time.Second
	cfg.RateLimitPerMin = 600
	return cfg
}

func TestClientSearchListings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "garmin fenix 7" {
			t.Errorf("query = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchPayload))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	listings, err := client.SearchListings(context.Background(), "garmin fenix 7", 10)
	if err != nil {
		t.Fatalf("SearchListings: %v", err)
	}

	if len(listings) != 2 {
		t.Fatalf("expected 2 valid listings, got %d", len(listings))
	}

	first := listings[0]
	if first.SourceID != "a1" || first.Platform != "testmarket" {
		t.Errorf("unexpected identity: %+v", first)
	}
	if first.CurrentBid != 182.5 || first.BidsCount != 6 {
		t.Errorf("bid fields wrong: %+v", first)
	}
	if first.SellerRating == nil || *first.SellerRating != 97 {
		t.Errorf("seller rating not parsed")
	}
	if first.EndTime.IsZero() {
		t.Errorf("RFC3339 end time not parsed")
	}

	second := listings[1]
	if !second.HasBuyNow() || *second.BuyNowPrice != 320 {
		t.Errorf("buy-now not parsed: %+v", second)
	}
	if second.EndTime.IsZero() {
		t.Errorf("unix end time not parsed")
	}
}

func TestClientRetriesThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(searchPayload))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	listings, err := client.SearchListings(context.Background(), "garmin", 10)
	if err != nil {
		t.Fatalf("SearchListings after retry: %v", err)
	}
	if len(listings) != 2 {
		t.Errorf("expected 2 listings, got %d", len(listings))
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("expected exactly 2 calls, got %d", calls)
	}
}

func TestClientRetryBudgetExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	if _, err := client.SearchListings(context.Background(), "garmin", 10); err == nil {
		t.Fatal("expected error once retries are exhausted")
	}
}

func TestClientUnavailableWithoutBaseURL(t *testing.T) {
	client := NewClient(NewConfig())
	if client.Available() {
		t.Error("client without base URL must report unavailable")
	}
	if _, err := client.SearchListings(context.Background(), "x", 1); err == nil {
		t.Error("expected error from unconfigured client")
	}
}

func TestParseEndTime(t *testing.T) {
	if parseEndTime("2026-09-01T18:00:00Z").IsZero() {
		t.Error("RFC3339 should parse")
	}
	if parseEndTime("1767225600").IsZero() {
		t.Error("unix seconds should parse")
	}
	if !parseEndTime("soon").IsZero() {
		t.Error("junk should yield zero time")
	}
}
