package analyzer

import (
	"errors"
	"math"
	"sort"

	"github.com/tidelend/core/internal/types"
)

// ErrInsufficientData indicates that not enough usable observations were
// provided to measure volatility (at least 2 points for 1 return).
var ErrInsufficientData = errors.New("insufficient price history to measure volatility")

// Annualization factors for common sampling frequencies.
const (
	PeriodsPerYearHourly = 8760
	PeriodsPerYearDaily  = 365
)

// AnnualizedVolatility measures historical volatility as the population
// standard deviation of logarithmic returns, scaled by sqrt(periodsPerYear).
// The input is sorted by timestamp before returns are taken; the caller's
// slice is not modified. Observations with non-positive prices are skipped
// since they would break the log return.
func AnnualizedVolatility(prices []types.PriceData, periodsPerYear float64) (float64, error) {
	if len(prices) < 2 {
		return 0, ErrInsufficientData
	}

	sorted := make([]types.PriceData, len(prices))
	copy(sorted, prices)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	returns := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1].Price, sorted[i].Price
		if prev <= 0 || cur <= 0 {
			continue
		}
		returns = append(returns, math.Log(cur/prev))
	}
	if len(returns) == 0 {
		return 0, ErrInsufficientData
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var sumSqDiff float64
	for _, r := range returns {
		d := r - mean
		sumSqDiff += d * d
	}
	stdDev := math.Sqrt(sumSqDiff / float64(len(returns)))

	return stdDev * math.Sqrt(periodsPerYear), nil
}
