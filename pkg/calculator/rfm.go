package calculator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rfm-segments/pkg/models"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

// ErrInvalidInput reports a transaction record missing a required field.
var ErrInvalidInput = errors.New("invalid input")

// Axis names used in logs, metrics and Result.Strategies.
const (
	AxisRecency   = "recency"
	AxisFrequency = "frequency"
	AxisMonetary  = "monetary"
)

// Source yields the transactions of one pipeline run.
type Source interface {
	Load(ctx context.Context) ([]models.Transaction, error)
}

// Result is the output table of one run plus its bookkeeping.
type Result struct {
	Customers     []models.SegmentedCustomer
	ReferenceDate time.Time
	Transactions  int               // records aggregated
	Dropped       int               // anonymous records dropped
	Strategies    map[string]string // axis → binning strategy used
}

// Run loads transactions from src and segments every customer found.
func Run(ctx context.Context, src Source, cfg models.Config, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	txs, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	logger.Info("transactions loaded", zap.Int("records", len(txs)))
	return Segment(txs, cfg, logger)
}

// Segment runs aggregation, scoring and segmentation over txs.
func Segment(txs []models.Transaction, cfg models.Config, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	timer := time.Now()
	defer func() { pipelineDuration.Observe(time.Since(timer).Seconds()) }()

	dropped := 0
	if cfg.DropAnonymous {
		txs, dropped = dropAnonymous(txs)
		if dropped > 0 {
			transactionsDropped.Add(float64(dropped))
			logger.Warn("dropped transactions without customer id", zap.Int("dropped", dropped))
		}
	}

	var bar *progressbar.ProgressBar
	if cfg.Verbose {
		bar = progressbar.Default(int64(len(txs)), "aggregating")
	} else {
		bar = progressbar.DefaultSilent(int64(len(txs)))
	}
	metrics, reference, err := aggregate(txs, cfg.ReferenceDate, bar)
	if err != nil {
		return nil, err
	}
	_ = bar.Finish()
	transactionsAggregated.Add(float64(len(txs)))
	logger.Info("customers aggregated",
		zap.Int("customers", len(metrics)),
		zap.String("reference_date", formatDate(reference)))

	scored, strategies := score(metrics, NewScorer(), logger)

	out := make([]models.SegmentedCustomer, len(scored))
	for i, sc := range scored {
		seg := SegmentFor(sc.Composite())
		out[i] = models.SegmentedCustomer{ScoredCustomer: sc, Segment: seg}
		customersSegmented.WithLabelValues(string(seg)).Inc()
	}

	return &Result{
		Customers:     out,
		ReferenceDate: reference,
		Transactions:  len(txs),
		Dropped:       dropped,
		Strategies:    strategies,
	}, nil
}

// score assigns R (lower recency is better), F and M scores.
func score(metrics []models.CustomerMetrics, scorer Scorer, logger *zap.Logger) ([]models.ScoredCustomer, map[string]string) {
	recency := make([]float64, len(metrics))
	frequency := make([]float64, len(metrics))
	monetary := make([]float64, len(metrics))
	for i, m := range metrics {
		recency[i] = float64(m.RecencyDays)
		frequency[i] = float64(m.Frequency)
		monetary[i] = m.Monetary
	}

	strategies := make(map[string]string, 3)
	axis := func(name string, values []float64, reverse bool) []int {
		scores, used := scorer.Score(values, reverse)
		strategies[name] = used.Name()
		if used.Name() != scorer.Primary.Name() {
			binningFallbacks.WithLabelValues(name).Inc()
			logger.Debug("binning fell back", zap.String("axis", name), zap.String("strategy", used.Name()))
		}
		return scores
	}
	r := axis(AxisRecency, recency, true)
	f := axis(AxisFrequency, frequency, false)
	m := axis(AxisMonetary, monetary, false)

	out := make([]models.ScoredCustomer, len(metrics))
	for i, cm := range metrics {
		out[i] = models.ScoredCustomer{CustomerMetrics: cm, RScore: r[i], FScore: f[i], MScore: m[i]}
	}
	return out, strategies
}

func dropAnonymous(txs []models.Transaction) ([]models.Transaction, int) {
	kept := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.CustomerID != "" {
			kept = append(kept, tx)
		}
	}
	return kept, len(txs) - len(kept)
}

// ParseReferenceDate("YYYY-MM-DD") -> midnight UTC
func ParseReferenceDate(s string) (time.Time, error) {
	if len(s) != 10 {
		return time.Time{}, fmt.Errorf("expected format YYYY-MM-DD (e.g. 2011-12-10)")
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid reference date %q: %w", s, err)
	}
	return t.UTC(), nil
}

func formatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
