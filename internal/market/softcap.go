package market

import (
	"fmt"
	"math"

	"github.com/helmling/bidgap/internal/model"
)

// SoftConfig tunes the soft ceiling derived from live asking activity.
type SoftConfig struct {
	MinSamples    int
	IQRMinSamples int
	IQRK          float64
	SafetyFactor  float64

	// Projected drift of a current bid until auction close.
	FactorUnderHour  float64 // < 1h
	FactorUnderDay   float64 // < 24h
	FactorUnderThree float64 // < 72h
	FactorBeyond     float64

	BaseConfidence    float64
	PerSampleBonus    float64
	MaxConfidence     float64
	WeakConfidenceCap float64
}

func NewSoftConfig() SoftConfig {
	return SoftConfig{
		MinSamples:    2,
		IQRMinSamples: 4,
		IQRK:          1.5,
		SafetyFactor:  1.10,

		FactorUnderHour:  1.05,
		FactorUnderDay:   1.10,
		FactorUnderThree: 1.15,
		FactorBeyond:     1.20,

		BaseConfidence: 0.50,
		PerSampleBonus: 0.04,
		MaxConfidence:  0.70,
		// stays under the hard aggregator's weak cap so a ceiling never
		// outranks a hard read of the same samples
		WeakConfidenceCap: 0.55,
	}
}

// Ceiling is an upper bound on believable resale value. It can cap or
// downgrade downstream estimates, never raise them.
type Ceiling struct {
	Value      float64
	Confidence float64
	SampleSize int
	Reason     string
}

type SoftAggregator struct {
	cfg SoftConfig
}

func NewSoftAggregator(cfg SoftConfig) *SoftAggregator {
	return &SoftAggregator{cfg: cfg}
}

func (a *SoftAggregator) timeFactor(hours float64) float64 {
	switch {
	case hours < 1:
		return a.cfg.FactorUnderHour
	case hours < 24:
		return a.cfg.FactorUnderDay
	case hours < 72:
		return a.cfg.FactorUnderThree
	default:
		return a.cfg.FactorBeyond
	}
}

// Ceiling projects closing prices from current bids and returns a safety-
// padded median, or nil below the sample minimum.
func (a *SoftAggregator) Ceiling(samples []model.MarketSample) *Ceiling {
	if len(samples) < a.cfg.MinSamples {
		return nil
	}

	adjusted := make([]float64, 0, len(samples))
	weak := 0
	for _, s := range samples {
		adjusted = append(adjusted, s.Price*a.timeFactor(s.HoursRemaining))
		if s.BidsCount == 1 {
			weak++
		}
	}

	if len(adjusted) >= a.cfg.IQRMinSamples {
		filtered := iqrFilter(adjusted, a.cfg.IQRK)
		if len(filtered) >= a.cfg.MinSamples {
			adjusted = filtered
		}
	}

	value := median(adjusted) * a.cfg.SafetyFactor

	n := len(adjusted)
	conf := a.cfg.BaseConfidence + a.cfg.PerSampleBonus*float64(n-a.cfg.MinSamples)
	conf = math.Min(conf, a.cfg.MaxConfidence)
	if weak*2 >= len(samples) && conf > a.cfg.WeakConfidenceCap {
		conf = a.cfg.WeakConfidenceCap
	}

	return &Ceiling{
		Value:      value,
		Confidence: conf,
		SampleSize: n,
		Reason: fmt.Sprintf("soft ceiling %.2f from %d projected closes, safety factor %.2f",
			value, n, a.cfg.SafetyFactor),
	}
}
