package identity

import (
	"strings"
	"testing"
)

func TestStripConditionAndColor(t *testing.T) {
	f := NewFilter()

	cases := []struct {
		name    string
		in      string
		want    string
		removed []string
	}{
		{
			name:    "german condition phrase",
			in:      "Garmin Fenix 7 Sapphire Solar, Top Zustand",
			want:    "Garmin Fenix 7 Sapphire Solar",
			removed: []string{"top zustand"},
		},
		{
			name:    "condition word in parens",
			in:      "Garmin Fenix 7 Sapphire Solar (neuwertig)",
			want:    "Garmin Fenix 7 Sapphire Solar",
			removed: []string{"neuwertig"},
		},
		{
			name:    "color and ovp",
			in:      "Apple AirPods Pro weiß OVP",
			want:    "Apple AirPods Pro",
			removed: []string{"weiss", "ovp"},
		},
		{
			name:    "clothing size",
			in:      "Laufschuhe Gr. 42 blau",
			want:    "Laufschuhe",
			removed: []string{"blau", "gr. 42"},
		},
		{
			name:    "marketing noise",
			in:      "MEGA Angebot iPhone 13 mit Rechnung Blitzversand",
			want:    "iPhone 13",
			removed: []string{"mit rechnung", "blitzversand", "mega", "angebot"},
		},
	}

	for _, c := range cases {
		got := f.Strip(c.in, false)
		if got.Cleaned != c.want {
			t.Errorf("%s: cleaned %q want %q", c.name, got.Cleaned, c.want)
		}
		if len(got.Removed) != len(c.removed) {
			t.Errorf("%s: removed %v want %v", c.name, got.Removed, c.removed)
			continue
		}
		for i := range c.removed {
			if got.Removed[i] != c.removed[i] {
				t.Errorf("%s: removed[%d] %q want %q", c.name, i, got.Removed[i], c.removed[i])
			}
		}
	}
}

func TestStripPreservesFitnessTokens(t *testing.T) {
	f := NewFilter()

	got := f.Strip("Kettlebell Gusseisen 24 kg schwarz Top Zustand", true)
	for _, keep := range []string{"24 kg", "Gusseisen"} {
		if !strings.Contains(got.Cleaned, keep) {
			t.Errorf("token %q was stripped: %q", keep, got.Cleaned)
		}
	}
	for _, gone := range []string{"schwarz", "Top", "Zustand"} {
		if strings.Contains(got.Cleaned, gone) {
			t.Errorf("token %q survived: %q", gone, got.Cleaned)
		}
	}
}

func TestStripRemovalOrder(t *testing.T) {
	f := NewFilter()

	// colors before conditions before marketing
	got := f.Strip("blau gebraucht top", false)
	want := []string{"blau", "gebraucht", "top"}
	if len(got.Removed) != len(want) {
		t.Fatalf("removed %v", got.Removed)
	}
	for i := range want {
		if got.Removed[i] != want[i] {
			t.Errorf("removal order[%d] = %q want %q", i, got.Removed[i], want[i])
		}
	}
}

func TestStripKeepsModelLetters(t *testing.T) {
	f := NewFilter()

	// bare S/M/L must not be treated as sizes
	got := f.Strip("Samsung Galaxy S 21", false)
	if !strings.Contains(got.Cleaned, "S 21") {
		t.Errorf("model letter eaten: %q", got.Cleaned)
	}
}
