package identity

import (
	"strings"
	"testing"

	"github.com/helmling/bidgap/internal/model"
)

func TestDeriveStableAcrossConditionWording(t *testing.T) {
	n := NewNormalizer(NewConfig())

	a := n.Derive(nil, "Garmin Fenix 7 Sapphire Solar, Top Zustand")
	b := n.Derive(nil, "Garmin Fenix 7 Sapphire Solar (neuwertig)")
	c := n.Derive(nil, "Garmin Fenix 8")

	if a.VariantKey != b.VariantKey {
		t.Errorf("same product, different keys: %q vs %q", a.VariantKey, b.VariantKey)
	}
	if a.VariantKey == c.VariantKey {
		t.Errorf("different models share key %q", a.VariantKey)
	}
	if a.VariantKey != "garmin_fenix_7_sapphire_solar" {
		t.Errorf("unexpected key %q", a.VariantKey)
	}
}

func TestDeriveGenerationForms(t *testing.T) {
	n := NewNormalizer(NewConfig())

	titles := []string{
		"Apple AirPods Pro 2. Generation",
		"Apple AirPods Pro 2nd generation",
		"Apple AirPods Pro second generation",
		"Apple AirPods Pro Gen 2",
		"Apple AirPods Pro Generation 2",
	}

	first := n.Derive(nil, titles[0])
	if first.Generation != 2 {
		t.Fatalf("generation not detected: %+v", first)
	}
	if !strings.Contains(first.VariantKey, "gen_2") {
		t.Fatalf("key missing gen token: %q", first.VariantKey)
	}
	for _, title := range titles[1:] {
		got := n.Derive(nil, title)
		if got.VariantKey != first.VariantKey {
			t.Errorf("%q -> %q, want %q", title, got.VariantKey, first.VariantKey)
		}
	}
}

func TestDeriveNumericPreservation(t *testing.T) {
	n := NewNormalizer(NewConfig())

	id := n.Derive(nil, "iPhone 12 mini")
	if !strings.Contains(id.VariantKey, "12") {
		t.Errorf("model number lost: %q", id.VariantKey)
	}
	if id.Generation != 0 {
		t.Errorf("bare model number misread as generation: %+v", id)
	}
}

func TestDeriveStorageVariants(t *testing.T) {
	n := NewNormalizer(NewConfig())

	spec64 := &model.ProductSpec{
		Brand: "Apple", Model: "iPhone 12", Category: "smartphone",
		Attrs: model.Attributes{StorageGB: 64}, Confidence: 0.9,
	}
	spec128 := &model.ProductSpec{
		Brand: "Apple", Model: "iPhone 12", Category: "smartphone",
		Attrs: model.Attributes{StorageGB: 128}, Confidence: 0.9,
	}

	a := n.Derive(spec64, "ignored title")
	b := n.Derive(spec128, "ignored title")

	if a.BaseProductKey != b.BaseProductKey {
		t.Errorf("base keys differ: %q vs %q", a.BaseProductKey, b.BaseProductKey)
	}
	if a.VariantKey == b.VariantKey {
		t.Errorf("storage variants share key %q", a.VariantKey)
	}
	if a.VariantKey != "apple_iphone_12_64gb" {
		t.Errorf("unexpected variant key %q", a.VariantKey)
	}
}

func TestDeriveStorageFromTitle(t *testing.T) {
	n := NewNormalizer(NewConfig())

	spec := &model.ProductSpec{
		Brand: "Apple", Model: "iPhone 12 64GB", Category: "smartphone",
		Confidence: 0.9,
	}
	id := n.Derive(spec, "")
	if id.BaseProductKey != "apple_iphone_12" {
		t.Errorf("storage token leaked into base key: %q", id.BaseProductKey)
	}
	if id.VariantKey != "apple_iphone_12_64gb" {
		t.Errorf("unexpected variant key %q", id.VariantKey)
	}
}

func TestDeriveWeightVariants(t *testing.T) {
	n := NewNormalizer(NewConfig())

	a := n.Derive(&model.ProductSpec{
		Brand: "Gorilla Sports", Model: "Kettlebell", Category: "fitness",
		Attrs: model.Attributes{WeightKG: 24}, Confidence: 0.8,
	}, "")
	b := n.Derive(&model.ProductSpec{
		Brand: "Gorilla Sports", Model: "Kettlebell", Category: "fitness",
		Attrs: model.Attributes{WeightKG: 16}, Confidence: 0.8,
	}, "")

	if a.BaseProductKey != b.BaseProductKey {
		t.Errorf("base keys differ: %q vs %q", a.BaseProductKey, b.BaseProductKey)
	}
	if a.VariantKey == b.VariantKey {
		t.Errorf("weight variants share key %q", a.VariantKey)
	}
	if a.VariantKey != "gorilla_sports_kettlebell_24kg" {
		t.Errorf("unexpected variant key %q", a.VariantKey)
	}
}

func TestDeriveLowConfidenceSpecFallsBackToTitle(t *testing.T) {
	n := NewNormalizer(NewConfig())

	spec := &model.ProductSpec{Brand: "Appel", Model: "iFone", Confidence: 0.2}
	id := n.Derive(spec, "Apple iPhone 12 mini gebraucht")

	if id.VariantKey != "apple_iphone_12_mini" {
		t.Errorf("low-confidence spec should be ignored, got %q", id.VariantKey)
	}
}

func TestDeriveDeterministic(t *testing.T) {
	n := NewNormalizer(NewConfig())
	title := "Bosch Professional GSB 18V-55 blau, wie neu, OVP"

	first := n.Derive(nil, title)
	for i := 0; i < 50; i++ {
		if got := n.Derive(nil, title); got != first {
			t.Fatalf("iteration %d: %+v != %+v", i, got, first)
		}
	}
}

func TestNumbersPreserved(t *testing.T) {
	cases := []struct {
		before string
		after  string
		want   bool
	}{
		{"iphone 12 mini", "iphone 12 mini", true},
		{"airpods 2nd generation", "airpods gen_2", true},
		{"ipad 9 128", "ipad gen_9", false},
		{"no digits", "still none", true},
		{"two 7 7", "one 7", false},
	}

	for _, c := range cases {
		if got := numbersPreserved(c.before, c.after); got != c.want {
			t.Errorf("numbersPreserved(%q, %q) = %v want %v", c.before, c.after, got, c.want)
		}
	}
}

func TestCanonicalCategory(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Smartphone", "electronics"},
		{"Elektronik", "electronics"},
		{"Kettlebell", "fitness"},
		{"Sportgeräte", "fitness"},
		{"Briefmarken", "other"},
		{"", "other"},
	}
	for _, c := range cases {
		if got := CanonicalCategory(c.in); got != c.want {
			t.Errorf("CanonicalCategory(%q) = %q want %q", c.in, got, c.want)
		}
	}
}
