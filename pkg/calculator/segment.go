package calculator

import (
	"fmt"

	"rfm-segments/pkg/models"
)

const (
	minComposite = 3
	maxComposite = 3 * NumScores
)

// SegmentFor maps a composite RFM score to its tier. Scores outside
// [3,15] cannot come out of the scorer and panic.
func SegmentFor(composite int) models.Segment {
	if composite < minComposite || composite > maxComposite {
		panic(fmt.Sprintf("calculator: composite score %d outside [%d,%d]", composite, minComposite, maxComposite))
	}
	switch {
	case composite >= 12:
		return models.SegmentVIP
	case composite >= 8:
		return models.SegmentLoyal
	case composite >= 5:
		return models.SegmentRegular
	default:
		return models.SegmentAtRisk
	}
}
