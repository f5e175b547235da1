// Package report turns segmented customers into an Arrow table, writes it
// out and derives the summaries printed by the CLI.
package report

import (
	"rfm-segments/pkg/models"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Schema of the output table, one row per customer.
var Schema = arrow.NewSchema([]arrow.Field{
	{Name: "customer_id", Type: arrow.BinaryTypes.String},
	{Name: "recency_days", Type: arrow.PrimitiveTypes.Int64},
	{Name: "frequency", Type: arrow.PrimitiveTypes.Int64},
	{Name: "monetary", Type: arrow.PrimitiveTypes.Float64},
	{Name: "last_purchase", Type: arrow.FixedWidthTypes.Timestamp_s},
	{Name: "r_score", Type: arrow.PrimitiveTypes.Int64},
	{Name: "f_score", Type: arrow.PrimitiveTypes.Int64},
	{Name: "m_score", Type: arrow.PrimitiveTypes.Int64},
	{Name: "rfm_score", Type: arrow.PrimitiveTypes.Int64},
	{Name: "segment", Type: arrow.BinaryTypes.String},
}, nil)

// ToRecord builds an Arrow record from customers. The caller must Release it.
func ToRecord(mem memory.Allocator, customers []models.SegmentedCustomer) arrow.Record {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	builder := array.NewRecordBuilder(mem, Schema)
	defer builder.Release()

	ids := builder.Field(0).(*array.StringBuilder)
	recency := builder.Field(1).(*array.Int64Builder)
	frequency := builder.Field(2).(*array.Int64Builder)
	monetary := builder.Field(3).(*array.Float64Builder)
	lastPurchase := builder.Field(4).(*array.TimestampBuilder)
	rScores := builder.Field(5).(*array.Int64Builder)
	fScores := builder.Field(6).(*array.Int64Builder)
	mScores := builder.Field(7).(*array.Int64Builder)
	composite := builder.Field(8).(*array.Int64Builder)
	segments := builder.Field(9).(*array.StringBuilder)

	builder.Reserve(len(customers))
	for _, c := range customers {
		ids.Append(c.CustomerID)
		recency.Append(int64(c.RecencyDays))
		frequency.Append(int64(c.Frequency))
		monetary.Append(c.Monetary)
		lastPurchase.Append(arrow.Timestamp(c.LastPurchase.Unix()))
		rScores.Append(int64(c.RScore))
		fScores.Append(int64(c.FScore))
		mScores.Append(int64(c.MScore))
		composite.Append(int64(c.Composite()))
		segments.Append(string(c.Segment))
	}
	return builder.NewRecord()
}
