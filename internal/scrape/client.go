package scrape

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/tidwall/gjson"

	"github.com/helmling/bidgap/internal/model"
	"github.com/helmling/bidgap/internal/ratelimit"
)

// Client queries a JSON search endpoint and maps its items onto raw listings
// via the configured gjson paths.
type Client struct {
	config  Config
	client  *http.Client
	limiter *ratelimit.Limiter
}

func NewClient(config Config) *Client {
	rpm := config.RateLimitPerMin
	if rpm <= 0 {
		rpm = 1
	}
	return &Client{
		config:  config,
		client:  &http.Client{Timeout: config.RequestTimeout},
		limiter: ratelimit.NewLimiter(rpm, time.Minute/time.Duration(rpm)),
	}
}

func (c *Client) Available() bool {
	return c.config.BaseURL != ""
}

func (c *Client) GetProviderName() string {
	return c.config.Platform
}

// SearchListings fetches one query with bounded retry. Listings failing basic
// validation are dropped, not propagated as errors.
func (c *Client) SearchListings(ctx context.Context, query string, maxResults int) ([]model.RawListing, error) {
	if !c.Available() {
		return nil, fmt.Errorf("marketplace client has no base URL")
	}

	c.limiter.Wait()

	body, err := c.fetchWithRetry(ctx, query, maxResults)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return c.parseListings(body, maxResults), nil
}

func (c *Client) fetchWithRetry(ctx context.Context, query string, maxResults int) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff, but never past the caller's deadline.
			delay := time.Duration(attempt*attempt) * time.Second
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		body, err := c.fetch(ctx, query, maxResults)
		if err == nil {
			return body, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

func (c *Client) fetch(ctx context.Context, query string, maxResults int) (string, error) {
	searchURL := fmt.Sprintf("%s?q=%s&limit=%d",
		strings.TrimRight(c.config.BaseURL, "/"), url.QueryEscape(query), maxResults)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	c.setBrowserHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	reader, err := c.decodedReader(resp)
	if err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	return string(body), nil
}

func (c *Client) setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "de-DE,de;q=0.9,en;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("DNT", "1")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Cache-Control", "max-age=0")
}

func (c *Client) decodedReader(resp *http.Response) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}

func (c *Client) parseListings(body string, maxResults int) []model.RawListing {
	f := c.config.Fields
	items := gjson.Get(body, f.Items)
	if !items.Exists() {
		return nil
	}

	listings := make([]model.RawListing, 0, maxResults)
	items.ForEach(func(_, item gjson.Result) bool {
		l := model.RawListing{
			SourceID:    item.Get(f.ID).String(),
			Platform:    c.config.Platform,
			Title:       item.Get(f.Title).String(),
			Description: item.Get(f.Description).String(),
			CurrentBid:  item.Get(f.CurrentBid).Float(),
			BidsCount:   int(item.Get(f.BidsCount).Int()),
			URL:         item.Get(f.URL).String(),
			ImageURL:    item.Get(f.ImageURL).String(),
			Location:    item.Get(f.Location).String(),
		}
		if v := item.Get(f.BuyNowPrice); v.Exists() && v.Float() > 0 {
			price := v.Float()
			l.BuyNowPrice = &price
		}
		if v := item.Get(f.SellerRating); v.Exists() {
			rating := v.Float()
			l.SellerRating = &rating
		}
		if v := item.Get(f.EndTime); v.Exists() {
			l.EndTime = parseEndTime(v.String())
		}

		if err := l.Validate(); err == nil {
			listings = append(listings, l)
		}
		return len(listings) < maxResults
	})
	return listings
}

// parseEndTime accepts RFC3339 timestamps and unix seconds. Anything else
// yields a zero time, which the model treats as not-an-auction.
func parseEndTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0)
	}
	return time.Time{}
}
