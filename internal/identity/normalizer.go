package identity

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/helmling/bidgap/internal/model"
)

// Profile describes how a product category shapes identity derivation.
type Profile struct {
	Canonical      string
	VariantStorage bool // storage capacity forms the variant key
	VariantWeight  bool // weight forms the variant key
	PreserveUnits  bool // keep weight/diameter/material tokens during filtering
}

var profiles = map[string]Profile{
	"electronics": {Canonical: "electronics", VariantStorage: true},
	"fitness":     {Canonical: "fitness", VariantWeight: true, PreserveUnits: true},
	"other":       {Canonical: "other"},
}

// Ordered so substring fallback stays deterministic; first hit wins.
var categorySynonyms = []struct {
	syn string
	cat string
}{
	{"elektronik", "electronics"}, {"electronics", "electronics"},
	{"smartphone", "electronics"}, {"handy", "electronics"},
	{"wearable", "electronics"}, {"smartwatch", "electronics"},
	{"tablet", "electronics"}, {"laptop", "electronics"},
	{"computer", "electronics"}, {"konsole", "electronics"},
	{"console", "electronics"}, {"audio", "electronics"},
	{"kopfhoerer", "electronics"}, {"kamera", "electronics"},
	{"camera", "electronics"}, {"tv", "electronics"},
	{"fitness", "fitness"}, {"sport", "fitness"}, {"sportgeraet", "fitness"},
	{"hantel", "fitness"}, {"kettlebell", "fitness"}, {"fahrrad", "fitness"},
	{"bike", "fitness"}, {"heimtrainer", "fitness"},
}

// CanonicalCategory folds a free-text category into one of the known
// profiles, defaulting to "other".
func CanonicalCategory(s string) string {
	key := strings.ToLower(strings.TrimSpace(foldDiacritics(s)))
	if key == "" {
		return "other"
	}
	for _, e := range categorySynonyms {
		if key == e.syn {
			return e.cat
		}
	}
	for _, e := range categorySynonyms {
		if strings.Contains(key, e.syn) {
			return e.cat
		}
	}
	return "other"
}

// ProfileFor returns the identity profile for a canonical category.
func ProfileFor(category string) Profile {
	if p, ok := profiles[CanonicalCategory(category)]; ok {
		return p
	}
	return profiles["other"]
}

// Config tunes identity derivation.
type Config struct {
	// Extractor specs below this confidence are ignored and the raw title is
	// used instead.
	MinSpecConfidence float64
}

func NewConfig() Config {
	return Config{MinSpecConfidence: 0.40}
}

// Normalizer derives deterministic product keys from extractor specs or raw
// titles. Same input and config always yield the same keys.
type Normalizer struct {
	cfg    Config
	filter *Filter
}

func NewNormalizer(cfg Config) *Normalizer {
	return &Normalizer{cfg: cfg, filter: NewFilter()}
}

// Derive builds the canonical identity for one listing. The spec wins when
// the extractor was confident enough and produced brand and model; otherwise
// the listing title carries the identity.
func (n *Normalizer) Derive(spec *model.ProductSpec, title string) model.CanonicalIdentity {
	source := title
	if spec != nil && spec.Usable(n.cfg.MinSpecConfidence) {
		source = spec.Brand + " " + spec.Model
	}

	category := ""
	if spec != nil {
		category = spec.Category
	}
	profile := ProfileFor(category)

	filtered := n.filter.Strip(source, profile.PreserveUnits)

	normalized, gen := normalizeGenerations(filtered.Cleaned)
	if !numbersPreserved(filtered.Cleaned, normalized) {
		// a digit went missing in generation rewriting; keep the unrewritten
		// text rather than corrupt a model number
		normalized = filtered.Cleaned
		gen = 0
	}

	baseText, storageGB, weightKG := extractVariantTokens(normalized)
	if spec != nil {
		if spec.Attrs.StorageGB > 0 {
			storageGB = spec.Attrs.StorageGB
		}
		if spec.Attrs.WeightKG > 0 {
			weightKG = spec.Attrs.WeightKG
		}
		if gen == 0 && spec.Attrs.Generation > 0 {
			gen = spec.Attrs.Generation
		}
	}

	base := slug(baseText)
	if base == "" {
		base = slug(filtered.Cleaned)
	}
	if base == "" {
		base = slug(source)
	}

	variant := base
	if profile.VariantStorage && storageGB > 0 {
		variant = base + "_" + strconv.Itoa(storageGB) + "gb"
	}
	if profile.VariantWeight && weightKG > 0 {
		variant = base + "_" + strconv.FormatFloat(weightKG, 'f', -1, 64) + "kg"
	}

	return model.CanonicalIdentity{
		BaseProductKey: base,
		VariantKey:     variant,
		DisplayName:    filtered.Cleaned,
		Generation:     gen,
	}
}

var genPatterns = []*regexp.Regexp{
	// 2. Generation, 2nd gen, 2 gen
	regexp.MustCompile(`(?i)\b(\d{1,2})\s*(?:\.|st|nd|rd|th)?\s*gen(?:eration)?\b`),
	// Gen 2, Generation 2
	regexp.MustCompile(`(?i)\bgen(?:eration)?\s*\.?\s*(\d{1,2})\b`),
	// second gen, zweite Generation
	regexp.MustCompile(`(?i)\b(first|second|third|fourth|fifth|sixth|seventh|eighth|ninth|tenth|` +
		`erste[rns]?|zweite[rns]?|dritte[rns]?|vierte[rns]?|fuenfte[rns]?|` +
		`sechste[rns]?|siebte[rns]?|achte[rns]?|neunte[rns]?|zehnte[rns]?)\s+gen(?:eration)?\b`),
}

var wordNumbers = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
	"erste": 1, "zweite": 2, "dritte": 3, "vierte": 4, "fuenfte": 5,
	"sechste": 6, "siebte": 7, "achte": 8, "neunte": 9, "zehnte": 10,
}

// normalizeGenerations rewrites every generation mention to a canonical gen_N
// token and reports the first generation found (0 = none).
func normalizeGenerations(text string) (string, int) {
	gen := 0
	for _, re := range genPatterns {
		text = re.ReplaceAllStringFunc(text, func(m string) string {
			sub := re.FindStringSubmatch(m)
			if len(sub) < 2 {
				return m
			}
			n := parseGenNumber(sub[1])
			if n == 0 {
				return m
			}
			if gen == 0 {
				gen = n
			}
			return "gen_" + strconv.Itoa(n)
		})
	}
	return text, gen
}

func parseGenNumber(s string) int {
	s = strings.ToLower(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n >= 1 && n <= 99 {
			return n
		}
		return 0
	}
	for word, n := range wordNumbers {
		if strings.HasPrefix(s, word) {
			return n
		}
	}
	return 0
}

var digitRun = regexp.MustCompile(`\d+`)

// numbersPreserved checks that every standalone digit run of before still
// occurs in after at least as often. Generation rewriting re-expresses its
// digits inside gen_N, which this accepts.
func numbersPreserved(before, after string) bool {
	have := map[string]int{}
	for _, d := range digitRun.FindAllString(after, -1) {
		have[strings.TrimLeft(d, "0")]++
	}
	for _, d := range digitRun.FindAllString(before, -1) {
		key := strings.TrimLeft(d, "0")
		if have[key] == 0 {
			return false
		}
		have[key]--
	}
	return true
}

var storageToken = regexp.MustCompile(`(?i)\b(\d{1,4})\s*(gb|tb)\b`)
var weightToken = regexp.MustCompile(`(?i)\b(\d{1,3}(?:[.,]\d{1,2})?)\s*kg\b`)

// extractVariantTokens pulls storage and weight mentions out of the text so
// the base key excludes them. The extracted values seed the variant suffix
// when the extractor spec carries none.
func extractVariantTokens(text string) (string, int, float64) {
	storageGB := 0
	text = storageToken.ReplaceAllStringFunc(text, func(m string) string {
		if storageGB > 0 {
			return ""
		}
		sub := storageToken.FindStringSubmatch(m)
		n, err := strconv.Atoi(sub[1])
		if err != nil {
			return ""
		}
		if strings.EqualFold(sub[2], "tb") {
			n *= 1024
		}
		storageGB = n
		return ""
	})

	weightKG := 0.0
	text = weightToken.ReplaceAllStringFunc(text, func(m string) string {
		if weightKG > 0 {
			return ""
		}
		sub := weightToken.FindStringSubmatch(m)
		w, err := strconv.ParseFloat(strings.ReplaceAll(sub[1], ",", "."), 64)
		if err != nil {
			return ""
		}
		weightKG = w
		return ""
	})

	return text, storageGB, weightKG
}

var slugCleaner = regexp.MustCompile(`[^a-z0-9]+`)

// slug lowercases, folds diacritics and joins alphanumeric runs with single
// underscores.
func slug(s string) string {
	s = strings.ToLower(foldDiacritics(s))
	s = slugCleaner.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}
