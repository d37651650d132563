// Package chart draws the ERW and Math views as a categorical scatter plot.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/stemsi/sat-explorer/internal/model"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	Width  = 1000
	Height = 800

	Title      = "ERW and Math Scores (Filtered by Score Range and Major)"
	XAxisLabel = "SAT Score"
	YAxisLabel = "Major"

	SeriesERW  = "ERW"
	SeriesMath = "Math"

	dotWidth = 5
	xTickGap = 100
)

// Format selects the encoded image type.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

var ErrUnsupportedFormat = errors.New("unsupported chart format")

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatPNG, FormatSVG:
		return Format(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

var (
	colorERW  = drawing.ColorBlue
	colorMath = drawing.ColorRed
)

// Render draws both views on shared axes. majors is the selector option list;
// every option except AllMajors becomes a row on the Y axis.
func Render(erw, math model.View, majors []string, format Format) ([]byte, error) {
	provider, err := rendererFor(format)
	if err != nil {
		return nil, err
	}

	cats := newCategories(majors)
	erwSeries := scatter(SeriesERW, colorERW, erw, func(r model.Record) int { return r.ERW }, cats)
	mathSeries := scatter(SeriesMath, colorMath, math, func(r model.Record) int { return r.Math }, cats)

	xMin, xMax := scoreExtent(erw, math)

	c := gochart.Chart{
		Title:  Title,
		Width:  Width,
		Height: Height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 60, Left: 20, Right: 30, Bottom: 20},
		},
		XAxis: gochart.XAxis{
			Name:  XAxisLabel,
			Range: &gochart.ContinuousRange{Min: float64(xMin), Max: float64(xMax)},
			Ticks: scoreTicks(xMin, xMax),
		},
		YAxis: gochart.YAxis{
			Name:  YAxisLabel,
			Range: &gochart.ContinuousRange{Min: -0.5, Max: float64(cats.len()) - 0.5},
			Ticks: cats.ticks(),
		},
		// Nothing is plotted against the secondary axis; drawn, it has no range.
		YAxisSecondary: gochart.YAxis{Style: gochart.Hidden()},
		// Math first so ERW draws on top.
		Series: []gochart.Series{mathSeries, erwSeries},
		Elements: []gochart.Renderable{dotLegend([]legendEntry{
			{label: SeriesERW, color: colorERW},
			{label: SeriesMath, color: colorMath},
		})},
	}

	var buf bytes.Buffer
	if err := c.Render(provider, &buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}

func rendererFor(format Format) (gochart.RendererProvider, error) {
	switch format {
	case FormatPNG:
		return gochart.PNG, nil
	case FormatSVG:
		return gochart.SVG, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(format))
}

// scatter builds a points-only series. go-chart rejects series without
// values, so an empty view is drawn as one transparent point.
func scatter(name string, color drawing.Color, view model.View, score func(model.Record) int, cats *categories) gochart.ContinuousSeries {
	style := gochart.Style{
		StrokeWidth: gochart.Disabled,
		StrokeColor: color,
		DotWidth:    dotWidth,
		DotColor:    color,
	}

	if len(view) == 0 {
		style.DotColor = drawing.ColorTransparent
		return gochart.ContinuousSeries{
			Name:    name,
			Style:   style,
			XValues: []float64{model.ScoreLowerBound},
			YValues: []float64{0},
		}
	}

	xs := make([]float64, len(view))
	ys := make([]float64, len(view))
	for i, r := range view {
		xs[i] = float64(score(r))
		ys[i] = float64(cats.position(r.Major))
	}
	return gochart.ContinuousSeries{Name: name, Style: style, XValues: xs, YValues: ys}
}

// scoreExtent widens the nominal slider range to any out-of-range score.
func scoreExtent(erw, math model.View) (int, int) {
	lo, hi := model.ScoreLowerBound, model.ScoreUpperBound
	for _, r := range erw {
		lo, hi = min(lo, r.ERW), max(hi, r.ERW)
	}
	for _, r := range math {
		lo, hi = min(lo, r.Math), max(hi, r.Math)
	}
	lo = floorTo(lo, xTickGap)
	hi = -floorTo(-hi, xTickGap)
	return lo, hi
}

func floorTo(v, step int) int {
	q := v / step
	if v%step != 0 && v < 0 {
		q--
	}
	return q * step
}

func scoreTicks(lo, hi int) []gochart.Tick {
	ticks := make([]gochart.Tick, 0, (hi-lo)/xTickGap+1)
	for v := lo; v <= hi; v += xTickGap {
		ticks = append(ticks, gochart.Tick{Value: float64(v), Label: strconv.Itoa(v)})
	}
	return ticks
}

// categories assigns each major a row on the Y axis.
type categories struct {
	labels []string
	index  map[string]int
}

func newCategories(majors []string) *categories {
	c := &categories{index: make(map[string]int, len(majors))}
	for _, m := range majors {
		if m == model.AllMajors {
			continue
		}
		c.add(m)
	}
	return c
}

func (c *categories) add(label string) int {
	if i, ok := c.index[label]; ok {
		return i
	}
	c.index[label] = len(c.labels)
	c.labels = append(c.labels, label)
	return c.index[label]
}

// position returns the row for label, appending unseen labels at the end.
func (c *categories) position(label string) int {
	return c.add(label)
}

func (c *categories) len() int {
	if len(c.labels) == 0 {
		return 1
	}
	return len(c.labels)
}

// ticks brackets the labelled rows with blank ticks on the range ends.
func (c *categories) ticks() []gochart.Tick {
	ticks := []gochart.Tick{{Value: -0.5, Label: ""}}
	for i, label := range c.labels {
		ticks = append(ticks, gochart.Tick{Value: float64(i), Label: label})
	}
	return append(ticks, gochart.Tick{Value: float64(c.len()) - 0.5, Label: ""})
}
