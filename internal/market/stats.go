package market

import (
	"math"
	"sort"

	"github.com/helmling/bidgap/internal/model"
)

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// weightedMedian picks the price at which half the total sample weight is
// reached. Ties resolve toward the lower price, which keeps the estimate
// conservative.
func weightedMedian(samples []model.MarketSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]model.MarketSample(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Price < sorted[j].Price })

	total := 0.0
	for _, s := range sorted {
		total += s.Weight
	}
	if total <= 0 {
		return median(prices(sorted))
	}

	cum := 0.0
	for _, s := range sorted {
		cum += s.Weight
		if cum >= total/2 {
			return s.Price
		}
	}
	return sorted[len(sorted)-1].Price
}

func prices(samples []model.MarketSample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Price
	}
	return out
}

// quartiles uses the median-of-halves method; deterministic and stable for
// the small sample counts auctions produce.
func quartiles(values []float64) (q1, q3 float64) {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n < 2 {
		if n == 1 {
			return sorted[0], sorted[0]
		}
		return 0, 0
	}
	mid := n / 2
	lower := sorted[:mid]
	upper := sorted[mid:]
	if n%2 == 1 {
		upper = sorted[mid+1:]
	}
	return median(lower), median(upper)
}

// iqrFilter drops values outside [Q1 - k*IQR, Q3 + k*IQR].
func iqrFilter(values []float64, k float64) []float64 {
	q1, q3 := quartiles(values)
	iqr := q3 - q1
	lo := q1 - k*iqr
	hi := q3 + k*iqr
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v >= lo && v <= hi {
			out = append(out, v)
		}
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}
