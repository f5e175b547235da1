package config

import (
	"os"
	"path/filepath"
	"testing"

	"rfm-segments/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rfm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
input: data/Online_Retail.xlsx
sheet: Online Retail
columns:
  customer_id: client_id
output: gs://analytics/rfm.parquet
top: 5
drop_anonymous: true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "data/Online_Retail.xlsx", cfg.Input)
	assert.Equal(t, "Online Retail", cfg.Sheet)
	assert.Equal(t, "client_id", cfg.Columns.CustomerID)
	assert.Equal(t, models.DefaultColumns.InvoiceID, cfg.Columns.InvoiceID)
	assert.Equal(t, "OnlineRetail", cfg.Table)
	assert.Equal(t, 5, cfg.Top)
	assert.True(t, cfg.DropAnonymous)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rfm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("top: [1, 2"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate_DSNFromEnv(t *testing.T) {
	t.Setenv(EnvDSN, "mysql://u:p@localhost:3306/retail")
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "mysql://u:p@localhost:3306/retail", cfg.DSN)
}

func TestValidate_Sources(t *testing.T) {
	t.Setenv(EnvDSN, "")
	cfg := Default()
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Input = "retail.csv"
	cfg.DSN = "mysql://u:p@localhost:3306/retail"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Input = "retail.csv"
	cfg.ReferenceDate = "2011-12-32"
	assert.Error(t, cfg.Validate())
}
