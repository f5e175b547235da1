package models

import (
	"math"
	"strconv"
	"strings"
	"time"
)

/*
LOAD → raw records as read from a spreadsheet, CSV file or database table.
*/

// NormalizeID trims s and turns numeric ids stored as floats ("12346.0")
// into "12346", so an id reads the same from every source.
func NormalizeID(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ".") {
		return s
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return s
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Transaction is one invoice line as read from the source.
type Transaction struct {
	CustomerID  string
	InvoiceID   string
	InvoiceDate time.Time
	UnitPrice   float64
	Quantity    int
}

// Amount is the line total; negative for returns.
func (t Transaction) Amount() float64 {
	return t.UnitPrice * float64(t.Quantity)
}

// Columns names the source columns holding each Transaction field.
type Columns struct {
	CustomerID  string `yaml:"customer_id"`
	InvoiceID   string `yaml:"invoice_id"`
	InvoiceDate string `yaml:"invoice_date"`
	UnitPrice   string `yaml:"unit_price"`
	Quantity    string `yaml:"quantity"`
}

// DefaultColumns matches the Online Retail export headers.
var DefaultColumns = Columns{
	CustomerID:  "CustomerID",
	InvoiceID:   "InvoiceNo",
	InvoiceDate: "InvoiceDate",
	UnitPrice:   "UnitPrice",
	Quantity:    "Quantity",
}

// List returns the names in Transaction field order.
func (c Columns) List() []string {
	return []string{c.CustomerID, c.InvoiceID, c.InvoiceDate, c.UnitPrice, c.Quantity}
}

/*
COMPUTE → per-customer rows produced by the pipeline
*/

// CustomerMetrics holds the raw RFM values of one customer.
type CustomerMetrics struct {
	CustomerID   string
	RecencyDays  int       // Whole days between the reference date and LastPurchase.
	Frequency    int       // Distinct invoices.
	Monetary     float64   // Net spend, may be <= 0 when returns dominate.
	LastPurchase time.Time // Most recent invoice timestamp.
}

// ScoredCustomer adds the 1..5 scores of each axis.
type ScoredCustomer struct {
	CustomerMetrics
	RScore int
	FScore int
	MScore int
}

// Composite is the RFM score, always within [3,15].
func (s ScoredCustomer) Composite() int {
	return s.RScore + s.FScore + s.MScore
}

// SegmentedCustomer is a scored customer with its tier.
type SegmentedCustomer struct {
	ScoredCustomer
	Segment Segment
}

// Segment names a customer value tier.
type Segment string

const (
	SegmentVIP     Segment = "VIP"
	SegmentLoyal   Segment = "Loyal"
	SegmentRegular Segment = "Regular"
	SegmentAtRisk  Segment = "At Risk"
)

// Segments lists the tiers from best to worst.
var Segments = []Segment{SegmentVIP, SegmentLoyal, SegmentRegular, SegmentAtRisk}

/*
CONFIG → pipeline parameters
*/

// Config holds the options passed to calculator.Run.
type Config struct {
	ReferenceDate time.Time // zero → max(InvoiceDate) + 1 day
	DropAnonymous bool      // drop records without customer id instead of failing
	Verbose       bool
}
