package collector

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/kyaniteli/daily-energy-strategy/internal/model"
)

// csvColumns maps export headers onto Instrument fields.
var csvColumns = map[string]string{
	"代码":     "symbol",
	"名称":     "name",
	"最新价":    "price",
	"总市值":    "cap",
	"市盈率-动态": "pe",
	"市净率":    "pb",
	"涨跌幅":    "change",
}

// CSVSnapshotFetcher reads a bulk snapshot from a CSV export.
type CSVSnapshotFetcher struct {
	Path string
}

func NewCSVSnapshotFetcher(path string) *CSVSnapshotFetcher {
	return &CSVSnapshotFetcher{Path: path}
}

func (f *CSVSnapshotFetcher) Name() string { return "csv" }

func (f *CSVSnapshotFetcher) FetchSnapshot(_ context.Context) ([]model.Instrument, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot csv: %w", err)
	}
	defer file.Close()
	return ParseSnapshotCSV(file)
}

// ParseSnapshotCSV decodes rows keyed by their Chinese headers. Unknown columns are ignored.
func ParseSnapshotCSV(r io.Reader) ([]model.Instrument, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	idx := make(map[string]int)
	for i, h := range header {
		h = strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")
		if field, ok := csvColumns[h]; ok {
			idx[field] = i
		}
	}
	if _, ok := idx["symbol"]; !ok {
		return nil, fmt.Errorf("csv header missing 代码 column")
	}

	var rows []model.Instrument
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		cell := func(field string) string {
			i, ok := idx[field]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		symbol := normalizeSymbol(cell("symbol"))
		if symbol == "" {
			continue
		}
		rows = append(rows, model.Instrument{
			Symbol:    symbol,
			Name:      cell("name"),
			Price:     parseCell(cell("price")),
			MarketCap: parseCell(cell("cap")),
			PE:        parseCell(cell("pe")),
			PB:        parseCell(cell("pb")),
			ChangePct: parseCell(cell("change")),
		})
	}
	return rows, nil
}

// normalizeSymbol restores leading zeros that spreadsheet tools drop.
func normalizeSymbol(s string) string {
	if s == "" {
		return ""
	}
	if _, err := strconv.Atoi(s); err == nil && len(s) < 6 {
		return strings.Repeat("0", 6-len(s)) + s
	}
	return s
}

func parseCell(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
