package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"rfm-segments/pkg/calculator"
	"rfm-segments/pkg/config"
	"rfm-segments/pkg/database"
	"rfm-segments/pkg/models"
	"rfm-segments/pkg/report"
	"rfm-segments/pkg/sheet"

	"github.com/docopt/docopt.go"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const version = "1.0.0"

const usage = `rfm-segments: RFM scoring and customer segmentation.

Usage:
  rfm-segments run [--config=<file>] [--input=<path>] [--sheet=<name>] [--dsn=<dsn>] [--table=<name>] [--out=<dest>] [--metrics=<file>] [--reference-date=<date>] [--top=<n>] [--drop-anonymous] [-v]
  rfm-segments (-h | --help)
  rfm-segments --version

Options:
  -h --help                 Show this screen.
  --version                 Show version.
  --config=<file>           YAML settings; flags override it.
  --input=<path>            Transactions file (.xlsx, .xlsm or .csv).
  --sheet=<name>            Workbook sheet (defaults to the first one).
  --dsn=<dsn>               mysql://, mariadb:// or postgres:// source (env RFM_DSN).
  --table=<name>            Transactions table for --dsn.
  --out=<dest>              Write the customer table (.arrow, .parquet, .csv or gs://bucket/object).
  --metrics=<file>          Write pipeline metrics in Prometheus text format.
  --reference-date=<date>   Measure recency from YYYY-MM-DD instead of last invoice + 1 day.
  --top=<n>                 Customers listed per top list.
  --drop-anonymous          Drop records without customer id instead of failing.
  -v --verbose              Debug logs and progress bar.
`

func main() {
	arguments, err := docopt.ParseDoc(usage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing arguments: %v\n", err)
		os.Exit(1)
	}
	if v, _ := arguments.Bool("--version"); v {
		fmt.Println("rfm-segments version " + version)
		os.Exit(0)
	}

	cfg := config.Default()
	if path, _ := arguments.String("--config"); path != "" {
		if cfg, err = config.Load(path); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	}
	if err := applyFlags(&cfg, arguments); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger = logger.With(zap.String("run_id", uuid.NewString()))

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("segmentation failed", zap.Error(err))
	}
}

func applyFlags(cfg *config.Config, arguments docopt.Opts) error {
	str := func(key string, dst *string) {
		if v, err := arguments.String(key); err == nil && v != "" {
			*dst = v
		}
	}
	str("--input", &cfg.Input)
	str("--sheet", &cfg.Sheet)
	str("--dsn", &cfg.DSN)
	str("--table", &cfg.Table)
	str("--out", &cfg.Output)
	str("--metrics", &cfg.Metrics)
	str("--reference-date", &cfg.ReferenceDate)
	if arguments["--top"] != nil {
		n, err := arguments.Int("--top")
		if err != nil {
			return fmt.Errorf("invalid --top: %w", err)
		}
		cfg.Top = n
	}
	if v, _ := arguments.Bool("--drop-anonymous"); v {
		cfg.DropAnonymous = true
	}
	if v, _ := arguments.Bool("--verbose"); v {
		cfg.Verbose = true
	}
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	pipeline := models.Config{
		DropAnonymous: cfg.DropAnonymous,
		Verbose:       cfg.Verbose,
	}
	if cfg.ReferenceDate != "" {
		ref, err := calculator.ParseReferenceDate(cfg.ReferenceDate)
		if err != nil {
			return err
		}
		pipeline.ReferenceDate = ref
	}

	var src calculator.Source
	if cfg.Input != "" {
		src = sheet.Source{
			Path:    cfg.Input,
			Options: sheet.Options{Sheet: cfg.Sheet, Columns: cfg.Columns},
			Logger:  logger,
		}
		logger.Info("reading transactions file", zap.String("path", cfg.Input))
	} else {
		db, driver, _, err := database.Open(cfg.DSN)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()
		src = database.Source{DB: db, Driver: driver, Table: cfg.Table, Columns: cfg.Columns, Logger: logger}
		logger.Info("connected", zap.String("driver", driver), zap.String("table", cfg.Table))
	}

	res, err := calculator.Run(ctx, src, pipeline, logger)
	if err != nil {
		return err
	}
	logger.Info("customers segmented",
		zap.Int("customers", len(res.Customers)),
		zap.Int("transactions", res.Transactions),
		zap.Int("dropped", res.Dropped),
		zap.Any("binning", res.Strategies))

	if err := report.Print(os.Stdout, report.Summarize(res.Customers, cfg.Top)); err != nil {
		return fmt.Errorf("print summary: %w", err)
	}

	if cfg.Output != "" {
		rec := report.ToRecord(nil, res.Customers)
		defer rec.Release()
		if err := report.Write(ctx, rec, cfg.Output); err != nil {
			return fmt.Errorf("write %s: %w", cfg.Output, err)
		}
		logger.Info("customer table written", zap.String("dest", cfg.Output), zap.Int64("rows", rec.NumRows()))
	}

	if cfg.Metrics != "" {
		if err := prometheus.WriteToTextfile(cfg.Metrics, prometheus.DefaultGatherer); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
