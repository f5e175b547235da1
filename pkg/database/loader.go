package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"rfm-segments/pkg/models"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Driver names accepted by sql.Open.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// ErrInvalidIdentifier rejects table or column names that cannot be
// interpolated into a query safely.
var ErrInvalidIdentifier = errors.New("invalid identifier")

var identifierRE = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Open DSN mariadb://, mysql://, postgres:// or a native MySQL DSN.
// It returns the pool, the driver name and the DSN handed to the driver.
func Open(dsn string) (*sql.DB, string, string, error) {
	driver, driverDSN, err := resolveDSN(dsn)
	if err != nil {
		return nil, "", "", err
	}
	db, err := sql.Open(driver, driverDSN)
	if err != nil {
		return nil, "", "", err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, driver, driverDSN, nil
}

func resolveDSN(dsn string) (string, string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return DriverPostgres, dsn, nil
	}
	mysqlDSN, err := toMySQLDSN(dsn)
	if err != nil {
		return "", "", err
	}
	return DriverMySQL, mysqlDSN, nil
}

func toMySQLDSN(dsn string) (string, error) {
	if strings.HasPrefix(dsn, "mariadb://") || strings.HasPrefix(dsn, "mysql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse dsn: %w", err)
		}
		user := ""
		pass := ""
		if u.User != nil {
			user = u.User.Username()
			pw, _ := u.User.Password()
			pass = pw
		}
		host := u.Host
		db := strings.TrimPrefix(u.Path, "/")
		if user == "" || host == "" || db == "" {
			return "", fmt.Errorf("incomplete dsn (user/host/db)")
		}
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&interpolateParams=true",
			user, pass, host, db), nil
	}
	return dsn, nil
}

// transactionsQuery builds the SELECT for the mapped columns, quoting
// identifiers for the driver's dialect.
func transactionsQuery(driver, table string, cols models.Columns) (string, error) {
	names := append([]string{table}, cols.List()...)
	for _, n := range names {
		if !identifierRE.MatchString(n) {
			return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, n)
		}
	}
	quote := func(s string) string { return "`" + s + "`" }
	if driver == DriverPostgres {
		quote = func(s string) string { return `"` + s + `"` }
	}
	selected := make([]string, 0, 5)
	for _, c := range cols.List() {
		selected = append(selected, quote(c))
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(selected, ", "), quote(table)), nil
}

// LoadTransactions reads every row of table as a Transaction.
// NULL quantity counts as 1 and NULL price as 0; NULL customer ids and
// timestamps are kept empty for the aggregator to reject.
func LoadTransactions(ctx context.Context, db *sql.DB, driver, table string, cols models.Columns, logger *zap.Logger) ([]models.Transaction, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	q, err := transactionsQuery(driver, table, cols)
	if err != nil {
		return nil, err
	}
	logger.Debug("loading transactions", zap.String("query", q))

	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out       []models.Transaction
		nullPrice int
	)
	for rows.Next() {
		var (
			customerID sql.NullString
			invoiceID  sql.NullString
			invoiceAt  sql.NullTime
			price      sql.NullFloat64
			qty        sql.NullInt64
		)
		if err := rows.Scan(&customerID, &invoiceID, &invoiceAt, &price, &qty); err != nil {
			return nil, err
		}

		tx := models.Transaction{
			CustomerID: models.NormalizeID(customerID.String),
			InvoiceID:  models.NormalizeID(invoiceID.String),
			Quantity:   1,
		}
		if invoiceAt.Valid {
			tx.InvoiceDate = invoiceAt.Time.UTC()
		}
		if price.Valid {
			tx.UnitPrice = price.Float64
		} else {
			nullPrice++
		}
		if qty.Valid {
			tx.Quantity = int(qty.Int64)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	logger.Debug("transactions read",
		zap.Int("rows", len(out)),
		zap.Int("null_price", nullPrice))
	return out, nil
}

// Source loads transactions from a table for calculator.Run.
type Source struct {
	DB      *sql.DB
	Driver  string
	Table   string
	Columns models.Columns
	Logger  *zap.Logger
}

func (s Source) Load(ctx context.Context) ([]models.Transaction, error) {
	return LoadTransactions(ctx, s.DB, s.Driver, s.Table, s.Columns, s.Logger)
}
