package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// tradingDaysPerYear is the B3 annualization convention.
const tradingDaysPerYear = 252

// negligibleStdev is the floor below which a ratio denominator is treated
// as zero and the ratio reported as 0 instead of exploding.
const negligibleStdev = 1e-12

// Pearson returns the Pearson correlation of two equal-length series.
// Degenerate inputs (constant series, length < 2) yield 0.
func Pearson(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// Spearman returns the Spearman rank correlation of two equal-length
// series: Pearson correlation over tie-averaged ranks.
func Spearman(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}
	return Pearson(ranks(x), ranks(y))
}

// ranks assigns 1-based ranks, averaging ties.
func ranks(x []float64) []float64 {
	n := len(x)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return x[idx[a]] < x[idx[b]] })

	out := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && x[idx[j+1]] == x[idx[i]] {
			j++
		}
		avg := float64(i+j+2) / 2 // mean of 1-based positions i+1 .. j+1
		for k := i; k <= j; k++ {
			out[idx[k]] = avg
		}
		i = j + 1
	}
	return out
}

// AnnualizedYield compounds a period yield over the given number of
// business days to a 252-day year, rounded to 4 decimal places.
func AnnualizedYield(yield float64, days int) float64 {
	if days <= 0 || yield <= -1 {
		return 0
	}
	return round4(math.Pow(1+yield, tradingDaysPerYear/float64(days)) - 1)
}

// SharpeRatio is the annualized mean excess return over its standard
// deviation. A negligible deviation reports 0.
func SharpeRatio(returns, riskFree []float64) float64 {
	excess := excessReturns(returns, riskFree)
	if len(excess) < 2 {
		return 0
	}
	sd := stat.StdDev(excess, nil)
	if sd < negligibleStdev {
		return 0
	}
	return stat.Mean(excess, nil) / sd * math.Sqrt(tradingDaysPerYear)
}

// SortinoRatio is the annualized mean excess return over the downside
// deviation (stdev of negative excess returns only).
func SortinoRatio(returns, riskFree []float64) float64 {
	excess := excessReturns(returns, riskFree)
	if len(excess) < 2 {
		return 0
	}

	var downSq float64
	for _, e := range excess {
		if e < 0 {
			downSq += e * e
		}
	}
	dd := math.Sqrt(downSq / float64(len(excess)))
	if dd < negligibleStdev {
		return 0
	}
	return stat.Mean(excess, nil) / dd * math.Sqrt(tradingDaysPerYear)
}

func excessReturns(returns, riskFree []float64) []float64 {
	n := len(returns)
	if len(riskFree) < n {
		n = len(riskFree)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = returns[i] - riskFree[i]
	}
	return out
}

// dailyReturns converts a level series to simple daily returns.
func dailyReturns(levels []float64) []float64 {
	if len(levels) < 2 {
		return nil
	}
	out := make([]float64, 0, len(levels)-1)
	for i := 1; i < len(levels); i++ {
		if levels[i-1] == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, levels[i]/levels[i-1]-1)
	}
	return out
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
