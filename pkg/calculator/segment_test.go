package calculator

import (
	"testing"

	"rfm-segments/pkg/models"

	"github.com/stretchr/testify/assert"
)

func TestSegmentFor_Thresholds(t *testing.T) {
	cases := map[int]models.Segment{
		15: models.SegmentVIP,
		12: models.SegmentVIP,
		11: models.SegmentLoyal,
		8:  models.SegmentLoyal,
		7:  models.SegmentRegular,
		5:  models.SegmentRegular,
		4:  models.SegmentAtRisk,
		3:  models.SegmentAtRisk,
	}
	for score, want := range cases {
		assert.Equal(t, want, SegmentFor(score), "composite %d", score)
	}
}

func TestSegmentFor_TotalOverDomain(t *testing.T) {
	for score := 3; score <= 15; score++ {
		assert.NotPanics(t, func() { SegmentFor(score) })
	}
}

func TestSegmentFor_OutOfDomainPanics(t *testing.T) {
	assert.Panics(t, func() { SegmentFor(2) })
	assert.Panics(t, func() { SegmentFor(16) })
}
