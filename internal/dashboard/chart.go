package dashboard

import (
	"fmt"
	"strings"

	"monitorb3/internal/domain"
)

// Chart geometry in SVG user units.
const (
	ChartWidth   = 640
	ChartHeight  = 240
	chartPadding = 24
)

// InsufficientData is shown when a series has fewer than two points.
const InsufficientData = "Dados insuficientes"

// Chart is the view model of an index line chart.
type Chart struct {
	Name         string
	Symbol       string
	Color        string
	Trend        string
	Points       string // SVG polyline points, "x,y x,y ..."
	Labels       []ChartLabel
	Min, Max     string
	Last         string
	Width        int
	Height       int
	Insufficient bool
}

// ChartLabel is a date tick under the chart.
type ChartLabel struct {
	X    float64
	Text string
}

// BuildChart lays out s in a ChartWidth x ChartHeight box. A series with
// fewer than two points yields a chart marked Insufficient.
func BuildChart(s domain.IndexSeries) Chart {
	c := Chart{
		Name:   s.Index.Name,
		Symbol: s.Index.Symbol,
		Width:  ChartWidth,
		Height: ChartHeight,
	}
	if len(s.Points) < 2 {
		c.Insufficient = true
		return c
	}
	trend := s.Trend()
	c.Trend = string(trend)
	c.Color = trend.Color()

	lo, hi := s.Points[0].Close, s.Points[0].Close
	for _, p := range s.Points[1:] {
		lo = min(lo, p.Close)
		hi = max(hi, p.Close)
	}
	c.Min = FormatIndex(lo)
	c.Max = FormatIndex(hi)
	c.Last = FormatIndex(s.Points[len(s.Points)-1].Close)

	innerW := float64(ChartWidth - 2*chartPadding)
	innerH := float64(ChartHeight - 2*chartPadding)
	step := innerW / float64(len(s.Points)-1)

	pts := make([]string, len(s.Points))
	for i, p := range s.Points {
		x := chartPadding + step*float64(i)
		y := chartPadding + innerH/2
		if hi > lo {
			y = chartPadding + innerH*(hi-p.Close)/(hi-lo)
		}
		pts[i] = fmt.Sprintf("%.1f,%.1f", x, y)
		c.Labels = append(c.Labels, ChartLabel{X: x, Text: p.Date.Format("02/01")})
	}
	c.Points = strings.Join(pts, " ")
	return c
}
