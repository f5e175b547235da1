package config

import (
	"fmt"
	"os"
	"time"

	"rfm-segments/pkg/models"

	"gopkg.in/yaml.v3"
)

// EnvDSN is read when neither the file nor the flags give a DSN.
const EnvDSN = "RFM_DSN"

// Config describes one segmentation run.
type Config struct {
	Input         string         `yaml:"input"` // .xlsx or .csv path
	Sheet         string         `yaml:"sheet,omitempty"`
	DSN           string         `yaml:"dsn,omitempty"`
	Table         string         `yaml:"table"`
	Columns       models.Columns `yaml:"columns"`
	Output        string         `yaml:"output,omitempty"`  // .arrow, .parquet, .csv or gs://bucket/object
	Metrics       string         `yaml:"metrics,omitempty"` // prometheus textfile
	Top           int            `yaml:"top"`
	DropAnonymous bool           `yaml:"drop_anonymous"`
	ReferenceDate string         `yaml:"reference_date,omitempty"` // YYYY-MM-DD
	Verbose       bool           `yaml:"verbose"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Table:   "OnlineRetail",
		Columns: models.DefaultColumns,
		Top:     10,
	}
}

// Load reads a YAML file over the defaults. Column names left empty in the
// file keep their default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("load config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}
	cfg.Columns = withDefaults(cfg.Columns)
	return cfg, nil
}

func withDefaults(c models.Columns) models.Columns {
	d := models.DefaultColumns
	if c.CustomerID == "" {
		c.CustomerID = d.CustomerID
	}
	if c.InvoiceID == "" {
		c.InvoiceID = d.InvoiceID
	}
	if c.InvoiceDate == "" {
		c.InvoiceDate = d.InvoiceDate
	}
	if c.UnitPrice == "" {
		c.UnitPrice = d.UnitPrice
	}
	if c.Quantity == "" {
		c.Quantity = d.Quantity
	}
	return c
}

// Validate checks that exactly one source is set and fills the DSN from
// the environment when no input file is given.
func (c *Config) Validate() error {
	if c.Input == "" && c.DSN == "" {
		c.DSN = os.Getenv(EnvDSN)
	}
	switch {
	case c.Input == "" && c.DSN == "":
		return fmt.Errorf("no source: set an input file or a dsn (or %s)", EnvDSN)
	case c.Input != "" && c.DSN != "":
		return fmt.Errorf("both input file and dsn set; choose one")
	case c.Top < 0:
		return fmt.Errorf("top must be >= 0, got %d", c.Top)
	}
	if c.ReferenceDate != "" {
		if _, err := time.Parse("2006-01-02", c.ReferenceDate); err != nil {
			return fmt.Errorf("reference_date %q: %w", c.ReferenceDate, err)
		}
	}
	return nil
}
