// Package chart renders result visualizations: a bar chart per test category
// and a zone gauge per out-of-range finding. Charts are written as PNG files
// into the job's output directory and later embedded in the PDF report.
package chart

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/usmanhx/labinsight/pkg/models"
)

var severityColors = map[string]drawing.Color{
	models.SeverityNormal:     drawing.ColorFromHex("22c55e"),
	models.SeverityBorderline: drawing.ColorFromHex("f59e0b"),
	models.SeverityCritical:   drawing.ColorFromHex("ef4444"),
}

var zoneColors = struct {
	normal, borderline, critical drawing.Color
}{
	normal:     drawing.ColorFromHex("22c55e"),
	borderline: drawing.ColorFromHex("eab308"),
	critical:   drawing.ColorFromHex("ef4444"),
}

// CategoryCharts holds the chart files rendered for one category.
type CategoryCharts struct {
	Bar    string
	Gauges []string
}

// Generate renders all charts for an analysis into dir. The returned map is
// keyed by category index. Chart failures are logged and skipped; a report
// without charts is still deliverable.
func Generate(analysis *models.StructuredAnalysis, dir string) (map[int]CategoryCharts, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create charts dir: %w", err)
	}

	out := make(map[int]CategoryCharts)
	for idx, category := range analysis.Categories {
		var cc CategoryCharts

		barPath := filepath.Join(dir, fmt.Sprintf("bar_%d.png", idx))
		if err := renderCategoryBar(category, barPath); err == nil {
			cc.Bar = barPath
		} else if !isEmptyChart(err) {
			slog.Warn("bar chart failed", "category", category.Name, "error", err)
		}

		for testIdx, finding := range category.Findings {
			if finding.Severity == models.SeverityNormal {
				continue
			}
			gaugePath := filepath.Join(dir, fmt.Sprintf("gauge_%d_%d.png", idx, testIdx))
			if err := renderGauge(finding, gaugePath); err == nil {
				cc.Gauges = append(cc.Gauges, gaugePath)
			} else if !isEmptyChart(err) {
				slog.Warn("gauge chart failed", "test", finding.TestName, "error", err)
			}
		}

		out[idx] = cc
	}
	return out, nil
}

var errNothingToChart = fmt.Errorf("no numeric values to chart")

func isEmptyChart(err error) bool { return err == errNothingToChart }

// renderCategoryBar draws one bar per numeric finding, colored by severity.
// Findings without a numeric value or parseable range are skipped.
func renderCategoryBar(category models.Category, path string) error {
	var bars []gochart.Value
	var yMax float64
	for _, finding := range category.Findings {
		if !finding.Value.IsNumeric {
			continue
		}
		_, refHigh, ok := ParseReferenceRange(finding.ReferenceRange)
		if !ok {
			continue
		}
		color, ok := severityColors[finding.Severity]
		if !ok {
			color = severityColors[models.SeverityNormal]
		}
		bars = append(bars, gochart.Value{
			Label: finding.TestName,
			Value: finding.Value.Numeric,
			Style: gochart.Style{FillColor: color, StrokeColor: color},
		})
		yMax = max(yMax, finding.Value.Numeric, refHigh)
	}
	if len(bars) == 0 {
		return errNothingToChart
	}
	if yMax <= 0 {
		yMax = 1
	}

	// An explicit range: go-chart cannot derive one from a single bar (or from
	// equal values) and fails the render.
	graph := gochart.BarChart{
		Title:    category.Name,
		Width:    max(320, 120*len(bars)),
		Height:   400,
		BarWidth: 60,
		YAxis: gochart.YAxis{
			Range: &gochart.ContinuousRange{Min: 0, Max: yMax * 1.1},
		},
		Bars: bars,
	}
	return renderToFile(path, func(f *os.File) error {
		return graph.Render(gochart.PNG, f)
	})
}

// renderGauge draws a horizontal zone strip (critical, borderline, normal,
// borderline, critical) for one out-of-range numeric finding. The measured
// value appears in the title.
func renderGauge(finding models.Finding, path string) error {
	if !finding.Value.IsNumeric {
		return errNothingToChart
	}
	refLow, refHigh, ok := ParseReferenceRange(finding.ReferenceRange)
	if !ok {
		return errNothingToChart
	}

	value := finding.Value.Numeric
	refRange := refHigh - refLow

	gaugeMin := refLow - refRange*0.5
	if gaugeMin < 0 {
		gaugeMin = 0
	}
	gaugeMax := refHigh + refRange*0.8
	if value > gaugeMax {
		gaugeMax = value * 1.2
	}
	if value < gaugeMin {
		gaugeMin = 0
		if value > 0 {
			gaugeMin = value * 0.8
		}
	}
	if gaugeMax <= gaugeMin {
		return errNothingToChart
	}

	margin := refRange * 0.15
	type zone struct {
		lo, hi float64
		color  drawing.Color
	}
	var zones []zone
	if refLow-margin > gaugeMin {
		zones = append(zones, zone{gaugeMin, refLow - margin, zoneColors.critical})
	}
	zones = append(zones,
		zone{max(gaugeMin, refLow-margin), refLow, zoneColors.borderline},
		zone{refLow, refHigh, zoneColors.normal},
		zone{refHigh, min(gaugeMax, refHigh+margin), zoneColors.borderline},
	)
	if refHigh+margin < gaugeMax {
		zones = append(zones, zone{refHigh + margin, gaugeMax, zoneColors.critical})
	}

	var segments []gochart.Value
	for _, z := range zones {
		width := z.hi - z.lo
		if width <= 0 {
			continue
		}
		segments = append(segments, gochart.Value{
			Value: width,
			Style: gochart.Style{FillColor: z.color, StrokeColor: drawing.ColorWhite, StrokeWidth: 1},
		})
	}
	if len(segments) == 0 {
		return errNothingToChart
	}

	unit := ""
	if finding.Unit != nil {
		unit = " " + *finding.Unit
	}
	graph := gochart.StackedBarChart{
		Title:        fmt.Sprintf("%s: %s%s (ref %s)", finding.TestName, finding.Value, unit, finding.ReferenceRange),
		Width:        700,
		Height:       180,
		IsHorizontal: true,
		XAxis:        gochart.Style{Hidden: true},
		YAxis:        gochart.Style{Hidden: true},
		Bars: []gochart.StackedBar{{
			Name:   finding.TestName,
			Values: segments,
		}},
	}
	return renderToFile(path, func(f *os.File) error {
		return graph.Render(gochart.PNG, f)
	})
}

func renderToFile(path string, render func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	if err := render(f); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("render chart: %w", err)
	}
	return f.Close()
}
