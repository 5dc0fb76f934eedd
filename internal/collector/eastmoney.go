package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kyaniteli/daily-energy-strategy/internal/model"
)

const (
	userAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	eastmoneyRefer  = "https://quote.eastmoney.com"
	snapshotFS      = "m:0+t:6,m:0+t:80,m:1+t:2,m:1+t:23,m:0+t:81+s:2048"
	snapshotFields  = "f2,f3,f9,f12,f14,f20,f23"
	klineFields1    = "f1,f2,f3,f4,f5,f6"
	klineFields2    = "f51,f52,f53,f54,f55,f56,f57"
	maxSnapshotPage = 200
)

var chinaTZ = time.FixedZone("CST", 8*3600)

// EastmoneyFetcher implements SnapshotFetcher and HistoryFetcher against the Eastmoney quote API.
type EastmoneyFetcher struct {
	SnapshotURL string
	KlineURL    string
	PageSize    int
	Client      *http.Client
}

// NewEastmoneyFetcher creates a fetcher with optional proxy support.
func NewEastmoneyFetcher(snapshotURL, klineURL string, pageSize int, timeout time.Duration, proxyURL string) *EastmoneyFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	return &EastmoneyFetcher{
		SnapshotURL: snapshotURL,
		KlineURL:    klineURL,
		PageSize:    pageSize,
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

func (f *EastmoneyFetcher) Name() string { return "eastmoney" }

// emNumber decodes Eastmoney numeric cells, which use "-" for missing values.
type emNumber float64

func (n *emNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*n = emNumber(math.NaN())
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*n = emNumber(math.NaN())
			return nil
		}
		b = []byte(strings.TrimSpace(s))
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		v = math.NaN()
	}
	*n = emNumber(v)
	return nil
}

// emQuote is one row of the clist response.
type emQuote struct {
	Price     emNumber `json:"f2"`
	ChangePct emNumber `json:"f3"`
	PE        emNumber `json:"f9"`
	Symbol    string   `json:"f12"`
	Name      string   `json:"f14"`
	MarketCap emNumber `json:"f20"`
	PB        emNumber `json:"f23"`
}

func (q emQuote) instrument() model.Instrument {
	return model.Instrument{
		Symbol:    strings.TrimSpace(q.Symbol),
		Name:      strings.TrimSpace(q.Name),
		Price:     float64(q.Price),
		MarketCap: float64(q.MarketCap),
		PE:        float64(q.PE),
		PB:        float64(q.PB),
		ChangePct: float64(q.ChangePct),
	}
}

type emSnapshotPage struct {
	Data *struct {
		Total int             `json:"total"`
		Diff  json.RawMessage `json:"diff"`
	} `json:"data"`
}

// FetchSnapshot pages through the full A-share list.
func (f *EastmoneyFetcher) FetchSnapshot(ctx context.Context) ([]model.Instrument, error) {
	var all []model.Instrument
	for page := 1; page <= maxSnapshotPage; page++ {
		rows, total, err := f.fetchSnapshotPage(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("snapshot page %d: %w", page, err)
		}
		all = append(all, rows...)
		if len(rows) == 0 || len(all) >= total {
			break
		}
	}
	return all, nil
}

func (f *EastmoneyFetcher) fetchSnapshotPage(ctx context.Context, page int) ([]model.Instrument, int, error) {
	q := url.Values{}
	q.Set("pn", strconv.Itoa(page))
	q.Set("pz", strconv.Itoa(f.PageSize))
	q.Set("po", "1")
	q.Set("np", "1")
	q.Set("fltt", "2")
	q.Set("invt", "2")
	q.Set("fid", "f12")
	q.Set("fs", snapshotFS)
	q.Set("fields", snapshotFields)

	body, err := f.get(ctx, f.SnapshotURL+"?"+q.Encode())
	if err != nil {
		return nil, 0, err
	}

	var resp emSnapshotPage
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, 0, fmt.Errorf("decode snapshot: %w", err)
	}
	if resp.Data == nil || len(resp.Data.Diff) == 0 || string(resp.Data.Diff) == "null" {
		return nil, 0, nil
	}

	quotes, err := decodeDiff(resp.Data.Diff)
	if err != nil {
		return nil, 0, err
	}
	rows := make([]model.Instrument, 0, len(quotes))
	for _, qt := range quotes {
		if qt.Symbol == "" {
			continue
		}
		rows = append(rows, qt.instrument())
	}
	return rows, resp.Data.Total, nil
}

// decodeDiff accepts the diff payload as an array or as an index-keyed object.
func decodeDiff(raw json.RawMessage) ([]emQuote, error) {
	var list []emQuote
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var byIndex map[string]emQuote
	if err := json.Unmarshal(raw, &byIndex); err != nil {
		return nil, fmt.Errorf("decode diff: %w", err)
	}
	keys := make([]int, 0, len(byIndex))
	for k := range byIndex {
		if i, err := strconv.Atoi(k); err == nil {
			keys = append(keys, i)
		}
	}
	sort.Ints(keys)
	for _, k := range keys {
		list = append(list, byIndex[strconv.Itoa(k)])
	}
	return list, nil
}

// secID maps an A-share symbol onto Eastmoney's market-prefixed id.
func secID(symbol string) string {
	if strings.HasPrefix(symbol, "6") || strings.HasPrefix(symbol, "9") {
		return "1." + symbol
	}
	return "0." + symbol
}

func fqt(adjust Adjust) string {
	switch adjust {
	case AdjustForward:
		return "1"
	case AdjustBackward:
		return "2"
	default:
		return "0"
	}
}

// FetchDailyBars returns daily bars for symbol between start and end inclusive.
// An unknown symbol yields an empty slice.
func (f *EastmoneyFetcher) FetchDailyBars(ctx context.Context, symbol string, start, end time.Time, adjust Adjust) ([]model.OHLCV, error) {
	q := url.Values{}
	q.Set("secid", secID(symbol))
	q.Set("fields1", klineFields1)
	q.Set("fields2", klineFields2)
	q.Set("klt", "101")
	q.Set("fqt", fqt(adjust))
	q.Set("beg", start.Format("20060102"))
	q.Set("end", end.Format("20060102"))

	body, err := f.get(ctx, f.KlineURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data *struct {
			Klines []string `json:"klines"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode kline: %w", err)
	}
	if resp.Data == nil {
		return nil, nil
	}

	bars := make([]model.OHLCV, 0, len(resp.Data.Klines))
	for _, line := range resp.Data.Klines {
		bar, err := parseKline(line)
		if err != nil {
			continue
		}
		bars = append(bars, bar)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// parseKline parses "date,open,close,high,low,volume,amount".
func parseKline(line string) (model.OHLCV, error) {
	parts := strings.Split(line, ",")
	if len(parts) < 6 {
		return model.OHLCV{}, fmt.Errorf("short kline %q", line)
	}
	t, err := time.ParseInLocation("2006-01-02", parts[0], chinaTZ)
	if err != nil {
		return model.OHLCV{}, fmt.Errorf("kline date: %w", err)
	}
	vals := make([]float64, 5)
	for i := range vals {
		v, err := strconv.ParseFloat(parts[i+1], 64)
		if err != nil {
			return model.OHLCV{}, fmt.Errorf("kline field %d: %w", i+1, err)
		}
		vals[i] = v
	}
	return model.OHLCV{
		Time:   t,
		Open:   vals[0],
		Close:  vals[1],
		High:   vals[2],
		Low:    vals[3],
		Volume: vals[4],
	}, nil
}

func (f *EastmoneyFetcher) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", eastmoneyRefer)

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("eastmoney request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("eastmoney read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("eastmoney: status %d, body: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n])
	}
	return string(b)
}
