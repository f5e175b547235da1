package report

import (
	"fmt"
	"io"
	"sort"

	"rfm-segments/pkg/models"

	"gonum.org/v1/gonum/stat"
)

// Metric selects the column a Top list is ranked on.
type Metric string

const (
	ByRecency   Metric = "recency"
	ByFrequency Metric = "frequency"
	ByMonetary  Metric = "monetary"
)

// SegmentShare is the population of one segment.
type SegmentShare struct {
	Segment   models.Segment
	Customers int
	Share     float64 // fraction of all customers
}

// BoxStats is the five-number summary of monetary values in a segment.
type BoxStats struct {
	Segment                  models.Segment
	Count                    int
	Min, Q1, Median, Q3, Max float64
}

// CorrMatrix holds Pearson correlations between the raw RFM columns.
type CorrMatrix struct {
	Columns []string
	Values  [3][3]float64 // NaN when a column is constant
}

// Summary bundles everything the CLI prints after a run.
type Summary struct {
	Customers   int
	Segments    []SegmentShare
	TopRecent   []models.SegmentedCustomer
	TopFrequent []models.SegmentedCustomer
	TopMonetary []models.SegmentedCustomer
	Pivot       [5][5]int // [r_score-1][f_score-1]
	Corr        CorrMatrix
	Monetary    []BoxStats
}

// Summarize computes all summaries with top lists of n customers.
func Summarize(customers []models.SegmentedCustomer, n int) Summary {
	return Summary{
		Customers:   len(customers),
		Segments:    SegmentCounts(customers),
		TopRecent:   Top(customers, ByRecency, n),
		TopFrequent: Top(customers, ByFrequency, n),
		TopMonetary: Top(customers, ByMonetary, n),
		Pivot:       RFPivot(customers),
		Corr:        Correlations(customers),
		Monetary:    MonetaryBySegment(customers),
	}
}

// SegmentCounts counts customers per segment, best tier first. Every
// segment is listed, empty ones with zero customers.
func SegmentCounts(customers []models.SegmentedCustomer) []SegmentShare {
	counts := make(map[models.Segment]int, len(models.Segments))
	for _, c := range customers {
		counts[c.Segment]++
	}
	out := make([]SegmentShare, 0, len(models.Segments))
	for _, seg := range models.Segments {
		share := SegmentShare{Segment: seg, Customers: counts[seg]}
		if len(customers) > 0 {
			share.Share = float64(counts[seg]) / float64(len(customers))
		}
		out = append(out, share)
	}
	return out
}

// Top returns the n best customers on one metric: smallest recency,
// largest frequency or largest monetary. Ties keep input order.
func Top(customers []models.SegmentedCustomer, by Metric, n int) []models.SegmentedCustomer {
	sorted := append([]models.SegmentedCustomer(nil), customers...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		switch by {
		case ByRecency:
			return a.RecencyDays < b.RecencyDays
		case ByFrequency:
			return a.Frequency > b.Frequency
		default:
			return a.Monetary > b.Monetary
		}
	})
	if n >= 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// RFPivot counts customers per (recency score, frequency score) pair.
func RFPivot(customers []models.SegmentedCustomer) [5][5]int {
	var pivot [5][5]int
	for _, c := range customers {
		pivot[c.RScore-1][c.FScore-1]++
	}
	return pivot
}

// Correlations computes the Pearson matrix of recency, frequency and monetary.
func Correlations(customers []models.SegmentedCustomer) CorrMatrix {
	cols := [3][]float64{}
	for i := range cols {
		cols[i] = make([]float64, len(customers))
	}
	for i, c := range customers {
		cols[0][i] = float64(c.RecencyDays)
		cols[1][i] = float64(c.Frequency)
		cols[2][i] = c.Monetary
	}

	m := CorrMatrix{Columns: []string{"recency", "frequency", "monetary"}}
	for i := range cols {
		for j := range cols {
			m.Values[i][j] = stat.Correlation(cols[i], cols[j], nil)
		}
	}
	return m
}

// MonetaryBySegment summarises monetary values per non-empty segment.
func MonetaryBySegment(customers []models.SegmentedCustomer) []BoxStats {
	values := make(map[models.Segment][]float64)
	for _, c := range customers {
		values[c.Segment] = append(values[c.Segment], c.Monetary)
	}

	var out []BoxStats
	for _, seg := range models.Segments {
		v := values[seg]
		if len(v) == 0 {
			continue
		}
		sort.Float64s(v)
		out = append(out, BoxStats{
			Segment: seg,
			Count:   len(v),
			Min:     v[0],
			Q1:      stat.Quantile(0.25, stat.Empirical, v, nil),
			Median:  stat.Quantile(0.5, stat.Empirical, v, nil),
			Q3:      stat.Quantile(0.75, stat.Empirical, v, nil),
			Max:     v[len(v)-1],
		})
	}
	return out
}

// Print writes s as plain text.
func Print(w io.Writer, s Summary) error {
	p := &printer{w: w}

	p.printf("customers ; %d\n", s.Customers)
	p.printf("\n# segments\n")
	for _, seg := range s.Segments {
		p.printf("%s ; customers=%d ; share=%.1f%%\n", seg.Segment, seg.Customers, seg.Share*100)
	}

	tops := []struct {
		title string
		list  []models.SegmentedCustomer
	}{
		{"most recent customers", s.TopRecent},
		{"most frequent buyers", s.TopFrequent},
		{"top customers by total spend", s.TopMonetary},
	}
	for _, top := range tops {
		p.printf("\n# %s\n", top.title)
		for _, c := range top.list {
			p.printf("%s ; recency=%d ; last_purchase=%s ; frequency=%d ; monetary=%.2f ; rfm=%d ; %s\n",
				c.CustomerID, c.RecencyDays, c.LastPurchase.Format("2006-01-02 15:04"),
				c.Frequency, c.Monetary, c.Composite(), c.Segment)
		}
	}

	p.printf("\n# recency score (rows) x frequency score (columns)\n")
	p.printf("R\\F ; 1 ; 2 ; 3 ; 4 ; 5\n")
	for r, row := range s.Pivot {
		p.printf("%d ; %d ; %d ; %d ; %d ; %d\n", r+1, row[0], row[1], row[2], row[3], row[4])
	}

	p.printf("\n# correlation\n")
	for i, name := range s.Corr.Columns {
		v := s.Corr.Values[i]
		p.printf("%s ; %.3f ; %.3f ; %.3f\n", name, v[0], v[1], v[2])
	}

	p.printf("\n# monetary by segment\n")
	for _, b := range s.Monetary {
		p.printf("%s ; n=%d ; min=%.2f ; q1=%.2f ; median=%.2f ; q3=%.2f ; max=%.2f\n",
			b.Segment, b.Count, b.Min, b.Q1, b.Median, b.Q3, b.Max)
	}
	return p.err
}

// printer keeps the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
