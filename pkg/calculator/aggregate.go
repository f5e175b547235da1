package calculator

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"rfm-segments/pkg/models"

	"github.com/schollz/progressbar/v3"
)

const day = 24 * time.Hour

// customerGroup accumulates the transactions of one customer.
type customerGroup struct {
	invoices map[string]struct{}
	monetary float64
	last     time.Time
}

// Aggregate reduces transactions to one CustomerMetrics row per customer,
// ordered by customer id. A zero reference means max(InvoiceDate) + 1 day.
func Aggregate(txs []models.Transaction, reference time.Time) ([]models.CustomerMetrics, error) {
	out, _, err := aggregate(txs, reference, nil)
	return out, err
}

// aggregate also returns the reference date it measured recency against.
func aggregate(txs []models.Transaction, reference time.Time, bar *progressbar.ProgressBar) ([]models.CustomerMetrics, time.Time, error) {
	groups := make(map[string]*customerGroup)
	var maxDate time.Time

	for i, tx := range txs {
		if tx.CustomerID == "" {
			return nil, time.Time{}, fmt.Errorf("%w: record %d has no customer id", ErrInvalidInput, i)
		}
		if tx.InvoiceDate.IsZero() {
			return nil, time.Time{}, fmt.Errorf("%w: record %d (customer %s) has no invoice timestamp", ErrInvalidInput, i, tx.CustomerID)
		}

		g, ok := groups[tx.CustomerID]
		if !ok {
			g = &customerGroup{invoices: make(map[string]struct{})}
			groups[tx.CustomerID] = g
		}
		// A blank invoice number still counts as one purchase event.
		g.invoices[tx.InvoiceID] = struct{}{}
		g.monetary += tx.Amount()
		if tx.InvoiceDate.After(g.last) {
			g.last = tx.InvoiceDate
		}
		if tx.InvoiceDate.After(maxDate) {
			maxDate = tx.InvoiceDate
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	if len(groups) == 0 {
		return []models.CustomerMetrics{}, reference, nil
	}
	if reference.IsZero() {
		reference = maxDate.Add(day)
	}

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return lessCustomerID(ids[i], ids[j]) })

	out := make([]models.CustomerMetrics, 0, len(ids))
	for _, id := range ids {
		g := groups[id]
		elapsed := reference.Sub(g.last)
		if elapsed < 0 {
			return nil, time.Time{}, fmt.Errorf("%w: reference date %s is before last purchase of customer %s (%s)",
				ErrInvalidInput, reference.Format(time.RFC3339), id, g.last.Format(time.RFC3339))
		}
		out = append(out, models.CustomerMetrics{
			CustomerID:   id,
			RecencyDays:  int(elapsed / day),
			Frequency:    len(g.invoices),
			Monetary:     g.monetary,
			LastPurchase: g.last,
		})
	}
	return out, reference, nil
}

// lessCustomerID orders numeric ids numerically, ahead of non-numeric ones.
// Ids with the same numeric value ("7", "07") fall back to string order so
// the ordering is total.
func lessCustomerID(a, b string) bool {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		if na != nb {
			return na < nb
		}
		return a < b
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}
