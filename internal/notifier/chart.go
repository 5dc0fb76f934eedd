package notifier

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/kyaniteli/daily-energy-strategy/internal/model"
)

// RenderScoreChart renders a PNG bar chart of composite scores, one bar per ranked symbol.
// Bars are labelled by symbol code; the default chart font has no CJK glyphs.
func RenderScoreChart(results []model.CandidateResult) ([]byte, error) {
	if len(results) == 0 {
		return nil, fmt.Errorf("no ranked candidates to chart")
	}

	bars := make([]chart.Value, len(results))
	for i, r := range results {
		color := drawing.ColorFromHex("2563eb")
		if r.Momentum {
			color = drawing.ColorFromHex("d93025")
		}
		bars[i] = chart.Value{
			Label: r.Symbol,
			Value: r.Score,
			Style: chart.Style{
				FillColor:   color,
				StrokeColor: color,
				StrokeWidth: 1,
			},
		}
	}

	width := 120 + 70*len(results)
	if width < 480 {
		width = 480
	}

	graph := chart.BarChart{
		Title:      "Composite score",
		Width:      width,
		Height:     360,
		BarWidth:   40,
		BarSpacing: 30,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: 100},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}
