package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/helmling/bidgap/internal/model"
)

// OpenAIConfig points the extractor at an OpenAI-compatible chat-completions
// endpoint.
type OpenAIConfig struct {
	APIKey         string
	Model          string
	BaseURL        string
	RequestTimeout time.Duration
	MaxRetries     int
}

func NewOpenAIConfig(apiKey string) OpenAIConfig {
	return OpenAIConfig{
		APIKey:         apiKey,
		Model:          "gpt-4o-mini",
		BaseURL:        "https://api.openai.com/v1",
		RequestTimeout: 60 * time.Second,
		MaxRetries:     2,
	}
}

// OpenAIExtractor asks a chat model to read listing titles and descriptions
// into structured specs. Temperature 0 and a JSON response format keep the
// oracle as deterministic as the API allows.
type OpenAIExtractor struct {
	config OpenAIConfig
	client *retryablehttp.Client
}

func NewOpenAIExtractor(config OpenAIConfig) *OpenAIExtractor {
	client := retryablehttp.NewClient()
	client.RetryMax = config.MaxRetries
	client.HTTPClient.Timeout = config.RequestTimeout
	client.Logger = nil

	return &OpenAIExtractor{config: config, client: client}
}

func (o *OpenAIExtractor) Available() bool {
	return o.config.APIKey != ""
}

func (o *OpenAIExtractor) GetProviderName() string {
	return "openai:" + o.config.Model
}

const systemPrompt = `You extract product identities from auction listings.
For every input item return one object:
{"id": "<item id>", "brand": "", "model": "", "category": "", "storage_gb": 0,
 "weight_kg": 0, "generation": 0, "color": "", "material": "",
 "is_accessory": false, "confidence": 0.0}
Rules: brand and model name the product family only, without color, condition,
size or marketing wording. category is a short noun like "electronics",
"smartphone", "fitness". confidence is your certainty in [0,1]. Answer with a
single JSON object {"items": [...]} and nothing else.`

type chatRequest struct {
	Model          string        `json:"model"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat formatSpec    `json:"response_format"`
	Messages       []chatMessage `json:"messages"`
}

type formatSpec struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type specItem struct {
	ID          string  `json:"id"`
	Brand       string  `json:"brand"`
	Model       string  `json:"model"`
	Category    string  `json:"category"`
	StorageGB   int     `json:"storage_gb"`
	WeightKG    float64 `json:"weight_kg"`
	Generation  int     `json:"generation"`
	Color       string  `json:"color"`
	Material    string  `json:"material"`
	IsAccessory bool    `json:"is_accessory"`
	Confidence  float64 `json:"confidence"`
}

// ExtractBatch sends one numbered batch and merges the response back by item
// id. A malformed response is an error; the caller decides about salvage.
func (o *OpenAIExtractor) ExtractBatch(ctx context.Context, listings []model.RawListing) (map[string]model.ProductSpec, error) {
	if !o.Available() {
		return nil, fmt.Errorf("extractor has no API key")
	}
	if len(listings) == 0 {
		return map[string]model.ProductSpec{}, nil
	}

	content, err := o.complete(ctx, buildUserPrompt(listings))
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Items []specItem `json:"items"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("parsing extractor response: %w", err)
	}

	specs := make(map[string]model.ProductSpec, len(parsed.Items))
	for _, it := range parsed.Items {
		if it.ID == "" {
			continue
		}
		spec := model.ProductSpec{
			ListingID: it.ID,
			Brand:     strings.TrimSpace(it.Brand),
			Model:     strings.TrimSpace(it.Model),
			Category:  strings.TrimSpace(it.Category),
			Attrs: model.Attributes{
				StorageGB:  it.StorageGB,
				WeightKG:   it.WeightKG,
				Generation: it.Generation,
				Color:      it.Color,
				Material:   it.Material,
			},
			Confidence: it.Confidence,
		}
		if it.IsAccessory {
			spec.Notes = "accessory"
		}
		if err := ValidateSpec(&spec); err != nil {
			continue
		}
		specs[it.ID] = spec
	}
	return specs, nil
}

func buildUserPrompt(listings []model.RawListing) string {
	var b strings.Builder
	b.WriteString("Items:\n")
	for i := range listings {
		l := &listings[i]
		desc := truncateRunes(l.Description, 300)
		fmt.Fprintf(&b, "%d. id=%s | title=%s | description=%s\n", i+1, l.SourceID, l.Title, desc)
	}
	return b.String()
}

func (o *OpenAIExtractor) complete(ctx context.Context, userPrompt string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:          o.config.Model,
		Temperature:    0,
		ResponseFormat: formatSpec{Type: "json_object"},
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	url := strings.TrimRight(o.config.BaseURL, "/") + "/chat/completions"
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.config.APIKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("oracle call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading oracle response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("oracle HTTP %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	content := gjson.GetBytes(body, "choices.0.message.content")
	if !content.Exists() || content.String() == "" {
		return "", fmt.Errorf("oracle response has no content")
	}
	return content.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// truncateRunes cuts s to at most n bytes without splitting a rune.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
