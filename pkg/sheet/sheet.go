// Package sheet loads transaction records from spreadsheet exports.
package sheet

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"rfm-segments/pkg/models"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ErrMissingColumn is returned when a mapped column is absent from the header.
var ErrMissingColumn = errors.New("missing column")

// Options controls how a file is read.
type Options struct {
	Sheet     string // xlsx sheet name; empty means the first sheet
	Columns   models.Columns
	Delimiter rune // csv only; 0 means ','
}

// dateLayouts are tried in order for textual timestamps.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 15:04",
	"1/2/06 15:04",
	"02/01/2006 15:04",
	"1/2/2006",
}

// Load reads every data row of path as a Transaction.
func Load(path string, opts Options) ([]models.Transaction, error) {
	var (
		rows [][]string
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		rows, err = readWorkbook(path, opts.Sheet)
	case ".csv", ".txt":
		rows, err = readCSV(path, opts.Delimiter)
	default:
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}
	if err != nil {
		return nil, err
	}
	return parseRows(rows, opts.Columns)
}

func readWorkbook(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %q: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %q has no sheets", path)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSV(path string, delim rune) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	if delim != 0 {
		r.Comma = delim
	}

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

// parseRows finds the header (first non-empty row) and converts the rest.
func parseRows(rows [][]string, cols models.Columns) ([]models.Transaction, error) {
	start := 0
	for start < len(rows) && isBlank(rows[start]) {
		start++
	}
	if start == len(rows) {
		return []models.Transaction{}, nil
	}

	header := make(map[string]int, len(rows[start]))
	for i, h := range rows[start] {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}
	idx := make([]int, 0, 5)
	for _, name := range cols.List() {
		i, ok := header[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
		idx = append(idx, i)
	}

	out := make([]models.Transaction, 0, len(rows)-start-1)
	for n, row := range rows[start+1:] {
		if isBlank(row) {
			continue
		}
		line := start + n + 2 // 1-based, header included
		tx, err := parseRecord(row, idx, line)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

func parseRecord(row []string, idx []int, line int) (models.Transaction, error) {
	cell := func(k int) string {
		if idx[k] < len(row) {
			return strings.TrimSpace(row[idx[k]])
		}
		return ""
	}

	tx := models.Transaction{
		CustomerID: models.NormalizeID(cell(0)),
		InvoiceID:  models.NormalizeID(cell(1)),
		Quantity:   1,
	}
	if s := cell(2); s != "" {
		t, err := parseTimestamp(s)
		if err != nil {
			return tx, fmt.Errorf("row %d: %w", line, err)
		}
		tx.InvoiceDate = t
	}
	if s := cell(3); s != "" {
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return tx, fmt.Errorf("row %d: unit price %q: %w", line, s, err)
		}
		tx.UnitPrice = p
	}
	if s := cell(4); s != "" {
		q, err := strconv.ParseFloat(s, 64)
		if err != nil || q != math.Trunc(q) {
			return tx, fmt.Errorf("row %d: quantity %q is not an integer", line, s)
		}
		tx.Quantity = int(q)
	}
	return tx, nil
}

// parseTimestamp accepts Excel serial dates and the layouts above, in UTC.
func parseTimestamp(s string) (time.Time, error) {
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("invoice date %q: %w", s, err)
		}
		return t.UTC(), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invoice date %q: unrecognised format", s)
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Source loads a file for calculator.Run.
type Source struct {
	Path    string
	Options Options
	Logger  *zap.Logger
}

func (s Source) Load(ctx context.Context) ([]models.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	txs, err := Load(s.Path, s.Options)
	if err != nil {
		return nil, err
	}
	logger.Debug("sheet loaded", zap.String("path", s.Path), zap.Int("rows", len(txs)))
	return txs, nil
}
