package report

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rfm-segments/pkg/models"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func customer(id string, recency, frequency int, monetary float64, r, f, m int, seg models.Segment) models.SegmentedCustomer {
	return models.SegmentedCustomer{
		ScoredCustomer: models.ScoredCustomer{
			CustomerMetrics: models.CustomerMetrics{
				CustomerID:   id,
				RecencyDays:  recency,
				Frequency:    frequency,
				Monetary:     monetary,
				LastPurchase: time.Date(2011, 12, 9, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1-recency),
			},
			RScore: r, FScore: f, MScore: m,
		},
		Segment: seg,
	}
}

func sample() []models.SegmentedCustomer {
	return []models.SegmentedCustomer{
		customer("12346", 326, 2, 0, 1, 2, 1, models.SegmentAtRisk),
		customer("12347", 2, 7, 4310, 5, 5, 5, models.SegmentVIP),
		customer("12348", 75, 4, 1797.24, 2, 4, 4, models.SegmentLoyal),
		customer("12349", 19, 1, 1757.55, 4, 1, 4, models.SegmentLoyal),
		customer("12350", 310, 1, 334.4, 1, 1, 2, models.SegmentAtRisk),
	}
}

func TestToRecord(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	rec := ToRecord(mem, sample())
	defer rec.Release()

	assert.Equal(t, int64(5), rec.NumRows())
	assert.Equal(t, int64(10), rec.NumCols())

	ids := rec.Column(0).(*array.String)
	assert.Equal(t, "12347", ids.Value(1))
	composite := rec.Column(8).(*array.Int64)
	assert.Equal(t, int64(15), composite.Value(1))
	segments := rec.Column(9).(*array.String)
	assert.Equal(t, "At Risk", segments.Value(4))
}

func TestWrite_ArrowRoundTrip(t *testing.T) {
	rec := ToRecord(nil, sample())
	defer rec.Release()

	dest := filepath.Join(t.TempDir(), "rfm.arrow")
	require.NoError(t, Write(context.Background(), rec, dest))

	f, err := os.Open(dest)
	require.NoError(t, err)
	defer f.Close()

	reader, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.NewGoAllocator()))
	require.NoError(t, err)
	defer reader.Close()

	require.Equal(t, 1, reader.NumRecords())
	got, err := reader.RecordAt(0)
	require.NoError(t, err)
	defer got.Release()
	assert.Equal(t, int64(5), got.NumRows())
	assert.True(t, got.Schema().Equal(Schema))
}

func TestWrite_Parquet(t *testing.T) {
	rec := ToRecord(nil, sample())
	defer rec.Release()

	dest := filepath.Join(t.TempDir(), "rfm.parquet")
	require.NoError(t, Write(context.Background(), rec, dest))

	pf, err := file.OpenParquetFile(dest, false)
	require.NoError(t, err)
	defer pf.Close()
	assert.Equal(t, int64(5), pf.NumRows())
}

func TestWrite_CSV(t *testing.T) {
	rec := ToRecord(nil, sample())
	defer rec.Release()

	dest := filepath.Join(t.TempDir(), "rfm.csv")
	require.NoError(t, Write(context.Background(), rec, dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[0], "customer_id,recency_days,frequency,monetary"))
	assert.True(t, strings.HasPrefix(lines[2], "12347,2,7,4310"))
}

func TestWrite_RejectsUnknownDestination(t *testing.T) {
	rec := ToRecord(nil, sample())
	defer rec.Release()

	assert.Error(t, Write(context.Background(), rec, filepath.Join(t.TempDir(), "rfm.xlsx")))
	assert.Error(t, Write(context.Background(), rec, "gs://rfm.csv"))
}

func TestParseGCS(t *testing.T) {
	bucket, object, ok := parseGCS("gs://analytics/rfm/2011-12.parquet")
	assert.True(t, ok)
	assert.Equal(t, "analytics", bucket)
	assert.Equal(t, "rfm/2011-12.parquet", object)

	_, _, ok = parseGCS("/tmp/rfm.parquet")
	assert.False(t, ok)
}

func TestSegmentCounts(t *testing.T) {
	got := SegmentCounts(sample())
	require.Len(t, got, 4)
	assert.Equal(t, SegmentShare{Segment: models.SegmentVIP, Customers: 1, Share: 0.2}, got[0])
	assert.Equal(t, 2, got[1].Customers)
	assert.Equal(t, 0, got[2].Customers)
	assert.Equal(t, models.SegmentAtRisk, got[3].Segment)
}

func TestTop(t *testing.T) {
	ids := func(cs []models.SegmentedCustomer) []string {
		out := make([]string, len(cs))
		for i, c := range cs {
			out[i] = c.CustomerID
		}
		return out
	}
	assert.Equal(t, []string{"12347", "12349"}, ids(Top(sample(), ByRecency, 2)))
	assert.Equal(t, []string{"12347", "12348", "12346"}, ids(Top(sample(), ByFrequency, 3)))
	assert.Equal(t, []string{"12347"}, ids(Top(sample(), ByMonetary, 1)))
	assert.Len(t, Top(sample(), ByMonetary, 50), 5)
}

func TestRFPivot(t *testing.T) {
	pivot := RFPivot(sample())
	assert.Equal(t, 1, pivot[4][4])
	assert.Equal(t, 1, pivot[0][1])
	assert.Equal(t, 1, pivot[0][0])
	total := 0
	for _, row := range pivot {
		for _, n := range row {
			total += n
		}
	}
	assert.Equal(t, 5, total)
}

func TestCorrelations(t *testing.T) {
	m := Correlations(sample())
	for i := range m.Columns {
		assert.InDelta(t, 1.0, m.Values[i][i], 1e-9)
	}
	assert.Less(t, m.Values[0][1], 0.0)
	assert.InDelta(t, m.Values[1][2], m.Values[2][1], 1e-12)

	constant := Correlations([]models.SegmentedCustomer{
		customer("1", 5, 1, 10, 3, 3, 3, models.SegmentLoyal),
		customer("2", 5, 2, 20, 3, 3, 3, models.SegmentLoyal),
	})
	assert.True(t, math.IsNaN(constant.Values[0][1]))
}

func TestMonetaryBySegment(t *testing.T) {
	got := MonetaryBySegment(sample())
	require.Len(t, got, 3)
	assert.Equal(t, models.SegmentVIP, got[0].Segment)
	loyal := got[1]
	assert.Equal(t, 2, loyal.Count)
	assert.Equal(t, 1757.55, loyal.Min)
	assert.Equal(t, 1797.24, loyal.Max)
	atRisk := got[2]
	assert.Equal(t, 0.0, atRisk.Min)
	assert.Equal(t, 334.4, atRisk.Max)
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Print(&buf, Summarize(sample(), 3)))
	out := buf.String()
	assert.Contains(t, out, "customers ; 5")
	assert.Contains(t, out, "VIP ; customers=1 ; share=20.0%")
	assert.Contains(t, out, "# most recent customers")
	assert.Contains(t, out, "12347 ; recency=2")
	assert.Contains(t, out, "# monetary by segment")
}
