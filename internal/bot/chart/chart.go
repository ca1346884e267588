package chart

import (
	"bytes"
	"fmt"

	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Chart dimensions and styling constants control the visual appearance
// of the weekly activity chart.
const (
	width  = 800
	height = 400

	// barWidth sets the width of each weekday bar.
	barWidth = 60
	// barSpacing keeps the seven bars within the canvas width.
	barSpacing = 40
	// titleFontSize sets the size of the chart title text.
	titleFontSize = 12.0
	// axisFontSize sets the size of axis labels.
	axisFontSize = 10.0
	// gridLineWidth controls the thickness of grid lines.
	gridLineWidth = 1.0
	// headroom scales the y-axis above the busiest day.
	headroom = 1.1

	paddingTop    = 40
	paddingBottom = 20
	paddingLeft   = 20
	paddingRight  = 20
)

// barColor is the fill of the weekday bars.
var barColor = drawing.ColorFromHex("5865f2") //nolint:gochecknoglobals // chart palette

// WeeklyBuilder renders the changes per weekday as a bar chart.
type WeeklyBuilder struct {
	days  []types.DayActivity
	title string
}

// NewWeeklyBuilder creates a chart builder for the given weekday buckets.
func NewWeeklyBuilder(days []types.DayActivity, title string) *WeeklyBuilder {
	return &WeeklyBuilder{
		days:  days,
		title: title,
	}
}

// Build renders the chart as PNG.
func (b *WeeklyBuilder) Build() (*bytes.Buffer, error) {
	graph := chart.BarChart{
		Title:      b.title,
		TitleStyle: chart.Style{FontSize: titleFontSize},
		Background: b.getBackgroundStyle(),
		Width:      width,
		Height:     height,
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		XAxis:      chart.Style{FontSize: axisFontSize},
		YAxis:      b.getYAxis(),
		Bars:       b.prepareBars(),
	}

	buf := new(bytes.Buffer)
	if err := graph.Render(chart.PNG, buf); err != nil {
		return nil, fmt.Errorf("failed to render weekly chart: %w", err)
	}

	return buf, nil
}

// Total returns the number of changes across all days.
func (b *WeeklyBuilder) Total() int {
	total := 0
	for _, day := range b.days {
		total += day.Changes
	}
	return total
}

// prepareBars turns the weekday buckets into chart values.
func (b *WeeklyBuilder) prepareBars() []chart.Value {
	bars := make([]chart.Value, 0, len(b.days))
	for _, day := range b.days {
		bars = append(bars, chart.Value{
			Label: day.Name,
			Value: float64(day.Changes),
			Style: chart.Style{
				FillColor:   barColor,
				StrokeColor: barColor,
			},
		})
	}
	return bars
}

// getBackgroundStyle returns styling for the chart background,
// including padding around all edges.
func (b *WeeklyBuilder) getBackgroundStyle() chart.Style {
	return chart.Style{
		Padding: chart.Box{
			Top:    paddingTop,
			Left:   paddingLeft,
			Right:  paddingRight,
			Bottom: paddingBottom,
		},
	}
}

// getYAxis returns the y-axis with a fixed range so that an empty week
// still renders.
func (b *WeeklyBuilder) getYAxis() chart.YAxis {
	peak := 0
	for _, day := range b.days {
		peak = max(peak, day.Changes)
	}

	return chart.YAxis{
		Style: chart.Style{FontSize: axisFontSize},
		GridMajorStyle: chart.Style{
			StrokeColor: chart.ColorAlternateGray,
			StrokeWidth: gridLineWidth,
		},
		Range: &chart.ContinuousRange{
			Min: 0,
			Max: float64(max(peak, 1)) * headroom,
		},
		ValueFormatter: func(v any) string {
			if f, ok := v.(float64); ok {
				return fmt.Sprintf("%.0f", f)
			}
			return ""
		},
	}
}
