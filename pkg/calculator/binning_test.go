package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestQuantileBinning_EqualPopulations(t *testing.T) {
	values := []float64{10, 1, 9, 2, 8, 3, 7, 4, 6, 5}
	bins, ok := QuantileBinning{}.Assign(values, NumScores)
	assert.True(t, ok)
	assert.Equal(t, []int{4, 0, 4, 0, 3, 1, 3, 1, 2, 2}, bins)
}

func TestQuantileBinning_TooManyTies(t *testing.T) {
	_, ok := QuantileBinning{}.Assign([]float64{1, 1, 1, 1, 1, 1, 2, 3}, NumScores)
	assert.False(t, ok)
}

func TestRankBinning_TiesKeepInputOrder(t *testing.T) {
	bins, ok := RankBinning{}.Assign([]float64{7, 7, 7, 7, 7}, NumScores)
	assert.True(t, ok)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, bins)
}

func TestRankBinning_SingleValue(t *testing.T) {
	bins, ok := RankBinning{}.Assign([]float64{42}, NumScores)
	assert.True(t, ok)
	assert.Equal(t, []int{2}, bins)
}

func TestRankBin_Edges(t *testing.T) {
	// ranks 1..2 over [1,2]: lowest rank in the first bin, highest in the last
	assert.Equal(t, 0, rankBin(1, 2, NumScores))
	assert.Equal(t, 4, rankBin(2, 2, NumScores))
	// 11 ranks, width 2: (1,3] → bin 0, (3,5] → bin 1, ...
	got := make([]int, 11)
	for r := 1; r <= 11; r++ {
		got[r-1] = rankBin(r, 11, NumScores)
	}
	assert.Equal(t, []int{0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4}, got)
}

func TestScorer_ReverseLabels(t *testing.T) {
	scores, used := NewScorer().Score([]float64{1, 10, 30}, true)
	assert.Equal(t, "quantile", used.Name())
	assert.Equal(t, []int{5, 3, 1}, scores)
}

func TestScorer_FallbackOnIdenticalValues(t *testing.T) {
	scores, used := NewScorer().Score([]float64{3, 3, 3, 3, 3, 3, 3, 3, 3, 3}, true)
	assert.Equal(t, "rank", used.Name())
	assert.Equal(t, []int{5, 5, 4, 4, 3, 3, 2, 2, 1, 1}, scores)
}

func TestScorer_Empty(t *testing.T) {
	scores, _ := NewScorer().Score(nil, false)
	assert.Empty(t, scores)
}

func TestScorer_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		values := rapid.SliceOfN(rapid.Float64Range(-1e6, 1e6), 1, 200).Draw(t, "values")
		reverse := rapid.Bool().Draw(t, "reverse")

		scores, _ := NewScorer().Score(values, reverse)
		if len(scores) != len(values) {
			t.Fatalf("got %d scores for %d values", len(scores), len(values))
		}
		for i, s := range scores {
			if s < 1 || s > NumScores {
				t.Fatalf("score %d out of range for value %v", s, values[i])
			}
		}
		for i := range values {
			for j := range values {
				if values[i] >= values[j] {
					continue
				}
				if !reverse && scores[i] > scores[j] {
					t.Fatalf("not monotonic: %v→%d, %v→%d", values[i], scores[i], values[j], scores[j])
				}
				if reverse && scores[i] < scores[j] {
					t.Fatalf("not reversed: %v→%d, %v→%d", values[i], scores[i], values[j], scores[j])
				}
			}
		}
	})
}

func TestScorer_TiedValuesProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		values := rapid.SliceOfN(rapid.IntRange(0, 3), 1, 100).Draw(t, "values")
		floats := make([]float64, len(values))
		for i, v := range values {
			floats[i] = float64(v)
		}
		scores, _ := NewScorer().Score(floats, false)
		for _, s := range scores {
			if s < 1 || s > NumScores {
				t.Fatalf("score %d out of range", s)
			}
		}
	})
}
