package notifier

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/kyaniteli/daily-energy-strategy/internal/config"
	"github.com/kyaniteli/daily-energy-strategy/internal/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// ChartContentID is the inline image id referenced by the mail body.
const ChartContentID = "score-chart"

var funcs = map[string]any{
	"f2":  func(v float64) string { return formatFloat(v, 2) },
	"f1":  func(v float64) string { return formatFloat(v, 1) },
	"pct": func(v float64) string { return formatFloat(v*100, 1) },
	"yi":  func(v float64) string { return formatFloat(v/1e8, 1) },
	"md":  escapeMarkdown,
}

var (
	htmlTmpl = template.Must(template.New("report.html.tmpl").Funcs(funcs).
			ParseFS(templateFS, "templates/report.html.tmpl"))
	mdTmpl = texttemplate.Must(texttemplate.New("report.md.tmpl").Funcs(funcs).
		ParseFS(templateFS, "templates/report.md.tmpl"))
)

// MarketPhase is the seasonal banner shown in the report header.
type MarketPhase struct {
	Label string
	Color template.CSS
}

// MarketPhaseFor maps the calendar month onto the A-share seasonal calendar.
func MarketPhaseFor(t time.Time) MarketPhase {
	switch t.Month() {
	case time.March:
		return MarketPhase{Label: "🇨🇳 两会/安全月", Color: "#d93025"}
	case time.April:
		return MarketPhase{Label: "📊 财报体检期", Color: "#f39c12"}
	case time.January, time.February:
		return MarketPhase{Label: "🧧 消费/春运旺季", Color: "#d93025"}
	case time.June, time.July:
		return MarketPhase{Label: "💰 分红复投期", Color: "#188038"}
	default:
		return MarketPhase{Label: "📅 资产积累期", Color: "#666"}
	}
}

// PickQuote returns a random motto. A nil rng uses the global source.
func PickQuote(quotes []string, rng *rand.Rand) string {
	if len(quotes) == 0 {
		return ""
	}
	if rng == nil {
		return quotes[rand.IntN(len(quotes))]
	}
	return quotes[rng.IntN(len(quotes))]
}

// Title returns the notification title for date t.
func Title(t time.Time) string {
	return "复盘日报 " + t.Format("01-02")
}

var reasonLabels = map[model.ExclusionReason]string{
	model.ReasonHistoryUnavailable:     "无历史",
	model.ReasonInsufficientHistory:    "K线不足",
	model.ReasonInsufficientMonths:     "月数不足",
	model.ReasonDegenerateRange:        "无波动",
	model.ReasonAbovePositionThreshold: "位置偏高",
	model.ReasonMAUnavailable:          "年线不足",
	model.ReasonAboveMADeviation:       "远离年线",
	model.ReasonNumericError:           "数据异常",
}

// ReportData is everything the report templates render.
type ReportData struct {
	Date         time.Time
	Quote        string
	Phase        MarketPhase
	BondYield    float64
	Watchlist    []model.WatchlistResult
	Scan         *model.ScanReport
	Screen       config.ScreenConfig
	Threshold    float64 // position threshold fraction
	HistoryYears int
	ChartSrc     template.URL
}

// Title returns the report title.
func (d ReportData) Title() string { return Title(d.Date) }

// Ranked returns the ranked candidates, or nil when no scan ran.
func (d ReportData) Ranked() []model.CandidateResult {
	if d.Scan == nil {
		return nil
	}
	return d.Scan.Ranked
}

// RunID returns the scan run id, or "" when no scan ran.
func (d ReportData) RunID() string {
	if d.Scan == nil {
		return ""
	}
	return d.Scan.RunID
}

// FilterSummary describes the active screen, e.g. "筛选: 市值<60亿 | 单价<15 | 4年位置<20%".
func (d ReportData) FilterSummary() string {
	return fmt.Sprintf("筛选: 市值<%s亿 | 单价<%s | %d年位置<%s%%",
		trimFloat(d.Screen.MaxMarketCap/1e8), trimFloat(d.Screen.MaxPrice),
		d.HistoryYears, trimFloat(d.Threshold*100))
}

// ScanSummary describes universe size, screened count and exclusions.
func (d ReportData) ScanSummary() string {
	if d.Scan == nil {
		return ""
	}
	parts := []string{fmt.Sprintf("全市场 %d 只 → 初筛 %d 只 → 入选 %d 只",
		d.Scan.Universe, d.Scan.Screened, len(d.Scan.Ranked))}

	counts := d.Scan.ExclusionCounts()
	reasons := make([]string, 0, len(counts))
	for r := range counts {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)
	var excl []string
	for _, r := range reasons {
		label := reasonLabels[model.ExclusionReason(r)]
		if label == "" {
			label = r
		}
		excl = append(excl, fmt.Sprintf("%s %d", label, counts[model.ExclusionReason(r)]))
	}
	if len(excl) > 0 {
		parts = append(parts, "剔除: "+strings.Join(excl, " · "))
	}
	return strings.Join(parts, " | ")
}

// RenderHTML renders the PushPlus/email HTML body.
func RenderHTML(data ReportData) (string, error) {
	var buf bytes.Buffer
	if err := htmlTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}

// RenderMarkdown renders the Markdown version of the report.
func RenderMarkdown(data ReportData) (string, error) {
	var buf bytes.Buffer
	if err := mdTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// BuildMessage renders every body variant. When chart is non-empty the mail body
// references it inline.
func BuildMessage(data ReportData, chart []byte) (*Message, error) {
	data.ChartSrc = ""
	html, err := RenderHTML(data)
	if err != nil {
		return nil, err
	}
	md, err := RenderMarkdown(data)
	if err != nil {
		return nil, err
	}
	msg := &Message{Title: data.Title(), HTML: html, MailHTML: html, Markdown: md}
	if len(chart) > 0 {
		data.ChartSrc = template.URL("cid:" + ChartContentID)
		mailHTML, err := RenderHTML(data)
		if err != nil {
			return nil, err
		}
		msg.MailHTML = mailHTML
		msg.Chart = chart
	}
	return msg, nil
}

func formatFloat(v float64, prec int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return fmt.Sprintf("%.*f", prec, v)
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func escapeMarkdown(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
