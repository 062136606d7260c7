package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/helmling/bidgap/internal/model"
)

// MockExtractor derives specs from listing titles with simple heuristics.
// Deterministic, offline, good enough to exercise the whole pipeline.
type MockExtractor struct{}

func NewMockExtractor() *MockExtractor {
	return &MockExtractor{}
}

func (m *MockExtractor) Available() bool {
	return true
}

func (m *MockExtractor) GetProviderName() string {
	return "MockExtractor"
}

var knownBrands = []string{
	"apple", "garmin", "samsung", "sony", "bose", "nintendo", "bowflex",
	"kettler", "dyson", "lego", "makita",
}

var fitnessWords = []string{"kettlebell", "hantel", "langhantel", "heimtrainer", "crosstrainer"}

var mockStorage = regexp.MustCompile(`(?i)\b(\d{2,4})\s*gb\b`)
var mockWeight = regexp.MustCompile(`(?i)\b(\d{1,3})\s*kg\b`)

func (m *MockExtractor) ExtractBatch(_ context.Context, listings []model.RawListing) (map[string]model.ProductSpec, error) {
	specs := make(map[string]model.ProductSpec, len(listings))
	for i := range listings {
		l := &listings[i]
		if spec, ok := m.readTitle(l.Title); ok {
			spec.ListingID = l.SourceID
			specs[l.SourceID] = spec
		}
	}
	return specs, nil
}

func (m *MockExtractor) readTitle(title string) (model.ProductSpec, bool) {
	lower := strings.ToLower(title)

	spec := model.ProductSpec{Category: "electronics", Confidence: 0.75}
	for _, w := range fitnessWords {
		if strings.Contains(lower, w) {
			spec.Category = "fitness"
			break
		}
	}

	for _, b := range knownBrands {
		if strings.Contains(lower, b) {
			spec.Brand = b
			break
		}
	}

	// Model: words after the brand up to the first separator, max four.
	cut := lower
	if spec.Brand != "" {
		if idx := strings.Index(lower, spec.Brand); idx >= 0 {
			cut = lower[idx+len(spec.Brand):]
		}
	}
	if idx := strings.IndexAny(cut, ",(-"); idx >= 0 {
		cut = cut[:idx]
	}
	words := strings.Fields(cut)
	if len(words) > 4 {
		words = words[:4]
	}
	spec.Model = strings.Join(words, " ")

	if sub := mockStorage.FindStringSubmatch(title); sub != nil {
		spec.Attrs.StorageGB, _ = strconv.Atoi(sub[1])
	}
	if sub := mockWeight.FindStringSubmatch(title); sub != nil {
		w, _ := strconv.ParseFloat(sub[1], 64)
		spec.Attrs.WeightKG = w
	}

	if spec.Brand == "" && spec.Model == "" {
		return model.ProductSpec{}, false
	}
	if spec.Brand == "" {
		spec.Confidence = 0.45
	}
	return spec, true
}
