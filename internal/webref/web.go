package webref

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"github.com/weppos/publicsuffix-go/publicsuffix"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/helmling/bidgap/internal/cache"
	"github.com/helmling/bidgap/internal/logging"
)

// WebSearcher scrapes a configurable search page for reference prices.
// Responses are cached on disk with a TTL so watch-mode reruns stay cheap.
type WebSearcher struct {
	config  Config
	client  *retryablehttp.Client
	limiter *rate.Limiter
	cache   *cache.Cache
	trusted map[string]bool
}

func NewWebSearcher(config Config, c *cache.Cache) *WebSearcher {
	client := retryablehttp.NewClient()
	client.RetryMax = config.MaxRetries
	client.HTTPClient.Timeout = config.RequestTimeout
	client.Logger = nil

	trusted := make(map[string]bool, len(config.TrustedDomains))
	for _, d := range config.TrustedDomains {
		trusted[strings.ToLower(d)] = true
	}

	rps := config.RatePerSecond
	if rps <= 0 {
		rps = 1
	}

	return &WebSearcher{
		config:  config,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		cache:   c,
		trusted: trusted,
	}
}

func (w *WebSearcher) Available() bool {
	return w.config.BaseURL != ""
}

func (w *WebSearcher) GetProviderName() string {
	return "websearch"
}

// Prices like "1.299,00 €", "299,- EUR", "EUR 49,90".
var priceRe = regexp.MustCompile(`(?:€|eur)\s*(\d{1,3}(?:\.\d{3})*(?:,\d{2})?)|(\d{1,3}(?:\.\d{3})*(?:,\d{2})?)\s*(?:,-)?\s*(?:€|eur)`)

// Cached answers from the disk cache only, never the network.
func (w *WebSearcher) Cached(query string) ([]PriceRef, bool) {
	if w.cache == nil {
		return nil, false
	}
	var cached []PriceRef
	found, err := w.cache.Get(cache.ReferenceKey(query), &cached)
	if err != nil || !found {
		return nil, false
	}
	return cached, true
}

// SearchReferencePrice fetches the search page for query and extracts priced
// results from trusted domains. An empty slice is a valid answer.
func (w *WebSearcher) SearchReferencePrice(ctx context.Context, query string) ([]PriceRef, error) {
	if !w.Available() {
		return nil, fmt.Errorf("web searcher has no base URL")
	}

	if refs, ok := w.Cached(query); ok {
		return refs, nil
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	refs, err := w.fetch(ctx, query)
	if err != nil {
		return nil, err
	}

	if w.cache != nil {
		if err := w.cache.Put(cache.ReferenceKey(query), refs, w.config.CacheTTL); err != nil {
			logging.Log.Debugf("caching reference prices: %v", err)
		}
	}
	return refs, nil
}

func (w *WebSearcher) fetch(ctx context.Context, query string) ([]PriceRef, error) {
	searchURL := fmt.Sprintf("%s?q=%s",
		strings.TrimRight(w.config.BaseURL, "/"), url.QueryEscape(query))

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", w.config.UserAgent)
	req.Header.Set("Accept-Language", "de-DE,de;q=0.9,en;q=0.8")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search %q: HTTP %d", query, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading search page: %w", err)
	}

	if title := htmlTitle(body); title != "" {
		logging.Log.Debugf("search %q landed on %q", query, title)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing search page: %w", err)
	}
	return w.parseResults(doc), nil
}

// htmlTitle extracts the <title> of a fetched page, for debug logging only.
func htmlTitle(body []byte) string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	var walk func(*html.Node) string
	walk = func(n *html.Node) string {
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			return strings.TrimSpace(n.FirstChild.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if t := walk(c); t != "" {
				return t
			}
		}
		return ""
	}
	return walk(doc)
}

func (w *WebSearcher) parseResults(doc *goquery.Document) []PriceRef {
	refs := make([]PriceRef, 0, w.config.MaxRefs)

	doc.Find(w.config.ResultSelector).EachWithBreak(func(_ int, block *goquery.Selection) bool {
		href, ok := block.Find("a[href]").First().Attr("href")
		if !ok {
			return true
		}
		label := registrableDomain(href)
		if label == "" {
			return true
		}
		if len(w.trusted) > 0 && !w.trusted[label] {
			return true
		}

		price := parsePrice(block.Text())
		if price < w.config.MinPrice {
			return true
		}

		refs = append(refs, PriceRef{Price: price, SourceURL: href, Label: label})
		return len(refs) < w.config.MaxRefs
	})
	return refs
}

// parsePrice pulls the first plausible EUR amount out of a result block.
func parsePrice(text string) float64 {
	sub := priceRe.FindStringSubmatch(strings.ToLower(text))
	if sub == nil {
		return 0
	}
	raw := sub[1]
	if raw == "" {
		raw = sub[2]
	}
	raw = strings.ReplaceAll(raw, ".", "")
	raw = strings.ReplaceAll(raw, ",", ".")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}

// registrableDomain labels a result URL by its registrable domain, e.g.
// "www.idealo.de/preisvergleich/x" -> "idealo.de".
func registrableDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	domain, err := publicsuffix.Domain(u.Hostname())
	if err != nil {
		return ""
	}
	return strings.ToLower(domain)
}
