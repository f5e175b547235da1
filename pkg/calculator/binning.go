package calculator

import (
	"math"
	"sort"
)

// NumScores is the number of ordinal score levels per axis.
const NumScores = 5

// BinningStrategy assigns each value a zero-based bin in [0, n).
// Assign returns ok=false when it cannot form n distinct bins.
type BinningStrategy interface {
	Name() string
	Assign(values []float64, n int) (bins []int, ok bool)
}

// QuantileBinning cuts the value distribution at its n-quantiles so bins
// hold roughly equal populations. Bins are right-closed and the first bin
// also holds the minimum.
type QuantileBinning struct{}

func (QuantileBinning) Name() string { return "quantile" }

func (QuantileBinning) Assign(values []float64, n int) ([]int, bool) {
	if len(values) == 0 || n < 1 {
		return nil, false
	}
	edges := quantileEdges(values, n)
	for i := 1; i < len(edges); i++ {
		if !(edges[i] > edges[i-1]) {
			return nil, false
		}
	}

	upper := edges[1:]
	bins := make([]int, len(values))
	for i, v := range values {
		b := sort.Search(len(upper), func(j int) bool { return v <= upper[j] })
		if b >= n {
			b = n - 1
		}
		bins[i] = b
	}
	return bins, true
}

// quantileEdges returns the n+1 edges at quantiles 0, 1/n, ..., 1 using
// linear interpolation between closest ranks.
func quantileEdges(values []float64, n int) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	edges := make([]float64, n+1)
	last := float64(len(sorted) - 1)
	for k := 0; k <= n; k++ {
		pos := last * float64(k) / float64(n)
		lo := math.Floor(pos)
		hi := math.Ceil(pos)
		edges[k] = sorted[int(lo)] + (sorted[int(hi)]-sorted[int(lo)])*(pos-lo)
	}
	return edges
}

// RankBinning ranks values (ties keep input order) and cuts the rank range
// [1, len] into n equal-width bins. It never fails, so it backs up
// QuantileBinning on heavily tied data.
type RankBinning struct{}

func (RankBinning) Name() string { return "rank" }

func (RankBinning) Assign(values []float64, n int) ([]int, bool) {
	if len(values) == 0 || n < 1 {
		return nil, false
	}
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return values[order[a]] < values[order[b]] })

	count := len(values)
	bins := make([]int, count)
	for r, idx := range order {
		bins[idx] = rankBin(r+1, count, n)
	}
	return bins, true
}

// rankBin places rank r of count into one of n equal-width, right-closed
// bins spanning [1, count]. Rank 1 always falls in the first bin; a single
// rank sits in the middle bin.
func rankBin(r, count, n int) int {
	if count == 1 {
		return n / 2
	}
	span := count - 1
	// ceil((r-1) * n / span) - 1, clamped at 0
	k := ((r-1)*n + span - 1) / span
	if k < 1 {
		return 0
	}
	if k > n {
		return n - 1
	}
	return k - 1
}

// Scorer maps a metric column to scores 1..NumScores, trying Primary first
// and switching to Fallback when Primary cannot form distinct bins.
type Scorer struct {
	Primary  BinningStrategy
	Fallback BinningStrategy
}

// NewScorer returns the quantile scorer with rank fallback.
func NewScorer() Scorer {
	return Scorer{Primary: QuantileBinning{}, Fallback: RankBinning{}}
}

// Score labels bins 1..5 in ascending value order, or 5..1 when reverse is
// set (lower is better, as for recency). It returns the strategy used.
func (s Scorer) Score(values []float64, reverse bool) ([]int, BinningStrategy) {
	if len(values) == 0 {
		return []int{}, s.Primary
	}
	used := s.Primary
	bins, ok := s.Primary.Assign(values, NumScores)
	if !ok {
		used = s.Fallback
		bins, _ = s.Fallback.Assign(values, NumScores)
	}

	scores := make([]int, len(bins))
	for i, b := range bins {
		if reverse {
			scores[i] = NumScores - b
		} else {
			scores[i] = b + 1
		}
	}
	return scores, used
}
