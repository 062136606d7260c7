package pricing

import (
	"fmt"
	"math"

	"github.com/helmling/bidgap/internal/market"
	"github.com/helmling/bidgap/internal/model"
)

// Config tunes the resolution waterfall.
type Config struct {
	// Estimates above ceiling*(1+CapSlack) get capped; the slack only decides
	// whether to cap, the capped value is the ceiling itself.
	CapSlack            float64
	CapConfidenceFactor float64

	Rates RateTable

	WebBaseConfidence float64
	WebPerRefBonus    float64
	WebMaxConfidence  float64

	PriorConfidence    float64
	BaselineConfidence float64
	BaselineDiscount   float64

	BuyNowAnchorRate float64
	BuyNowConfidence float64
}

func NewConfig() Config {
	return Config{
		CapSlack:            0.10,
		CapConfidenceFactor: 0.70,

		Rates: NewRateTable(),

		WebBaseConfidence: 0.30,
		WebPerRefBonus:    0.01,
		WebMaxConfidence:  0.35,

		PriorConfidence:    0.22,
		BaselineConfidence: 0.18,
		BaselineDiscount:   0.60,

		BuyNowAnchorRate: 0.55,
		BuyNowConfidence: 0.10,
	}
}

// Inputs carries everything the waterfall may consult for one listing. Any
// pointer may be nil; the resolver walks downward until something holds.
type Inputs struct {
	Hard    *market.Estimate
	Ceiling *market.Ceiling

	ReferencePrice *float64 // median new-price from web references
	ReferenceCount int
	ReferenceLabel string // registrable domain the references came from

	PriorEstimate    *float64 // learned resale from earlier runs
	CategoryBaseline *float64 // running category average of reference prices

	BuyNow   *float64
	Category string
}

// Resolver implements the price waterfall: live market, then web reference,
// then prior estimate, then category baseline, then buy-now anchor, then
// no_price. A computable soft ceiling caps every tier.
type Resolver struct {
	cfg Config
}

func NewResolver(cfg Config) *Resolver {
	return &Resolver{cfg: cfg}
}

func (r *Resolver) Resolve(in Inputs) model.PriceResolution {
	res := r.firstTier(in)

	if in.Ceiling != nil && in.Ceiling.Value > 0 {
		res.Ceiling = in.Ceiling.Value
		if res.HasPrice() && res.Price() > in.Ceiling.Value*(1+r.cfg.CapSlack) {
			capped := in.Ceiling.Value
			res.CapReduction = (res.Price() - capped) / res.Price()
			res.ResalePrice = &capped
			res.Confidence *= r.cfg.CapConfidenceFactor
			res.SoftCapApplied = true
			res.Reason += "; soft market cap applied"
		}
	}
	return res
}

func (r *Resolver) firstTier(in Inputs) model.PriceResolution {
	if in.Hard != nil {
		price := in.Hard.Resale
		return model.PriceResolution{
			ResalePrice: &price,
			Source:      model.AuctionDemandSource(in.Hard.Tier),
			Confidence:  in.Hard.Confidence,
			SampleSize:  in.Hard.SampleSize,
			Reason:      in.Hard.Reason,
		}
	}

	if in.ReferencePrice != nil && *in.ReferencePrice > 0 {
		rate := r.cfg.Rates.For(in.Category)
		price := *in.ReferencePrice * rate
		conf := r.cfg.WebBaseConfidence
		if in.ReferenceCount > 1 {
			conf += r.cfg.WebPerRefBonus * float64(in.ReferenceCount-1)
		}
		conf = math.Min(conf, r.cfg.WebMaxConfidence)
		return model.PriceResolution{
			ResalePrice: &price,
			Source:      model.WebSource(in.ReferenceLabel),
			Confidence:  conf,
			SampleSize:  in.ReferenceCount,
			Reason: fmt.Sprintf("web reference %.2f x %s resale rate %.2f",
				*in.ReferencePrice, in.Category, rate),
		}
	}

	if in.PriorEstimate != nil && *in.PriorEstimate > 0 {
		price := *in.PriorEstimate
		return model.PriceResolution{
			ResalePrice: &price,
			Source:      model.SourcePriorEstimate,
			Confidence:  r.cfg.PriorConfidence,
			Reason:      fmt.Sprintf("prior learned estimate %.2f", price),
		}
	}

	if in.CategoryBaseline != nil && *in.CategoryBaseline > 0 {
		rate := r.cfg.Rates.For(in.Category)
		price := *in.CategoryBaseline * rate * r.cfg.BaselineDiscount
		return model.PriceResolution{
			ResalePrice: &price,
			Source:      model.SourceQueryBaseline,
			Confidence:  r.cfg.BaselineConfidence,
			Reason: fmt.Sprintf("category baseline %.2f, heavily discounted",
				*in.CategoryBaseline),
		}
	}

	if in.BuyNow != nil && *in.BuyNow > 0 {
		price := *in.BuyNow * r.cfg.BuyNowAnchorRate
		return model.PriceResolution{
			ResalePrice: &price,
			Source:      model.SourceBuyNowAnchor,
			Confidence:  r.cfg.BuyNowConfidence,
			Reason:      fmt.Sprintf("anchored to own buy-now %.2f", *in.BuyNow),
		}
	}

	return model.PriceResolution{
		Source: model.SourceNoPrice,
		Reason: "no usable price signal",
	}
}

// CheckInvariants reports violations the resolver must never produce. The
// runner logs these loudly; tests assert they cannot happen.
func CheckInvariants(res *model.PriceResolution) error {
	if (res.ResalePrice == nil) != (res.Source == model.SourceNoPrice) {
		return fmt.Errorf("nil price and source %s disagree", res.Source)
	}
	if res.SoftCapApplied && res.Ceiling > 0 && res.Price() > res.Ceiling {
		return fmt.Errorf("capped price %.2f above ceiling %.2f", res.Price(), res.Ceiling)
	}
	if res.Confidence < 0 || res.Confidence > 1 {
		return fmt.Errorf("confidence %.3f out of range", res.Confidence)
	}
	return nil
}
