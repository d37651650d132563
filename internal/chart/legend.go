package chart

import (
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

type legendEntry struct {
	label string
	color drawing.Color
}

// dotLegend draws a boxed, untitled legend in the top-left corner of the
// canvas with one filled dot per entry. The stock go-chart legend strokes a
// line in the series stroke width, which is disabled for scatter series.
func dotLegend(entries []legendEntry) gochart.Renderable {
	return func(r gochart.Renderer, cb gochart.Box, chartDefaults gochart.Style) {
		style := chartDefaults.InheritFrom(gochart.Style{
			FillColor:   drawing.ColorWhite,
			FontColor:   gochart.DefaultTextColor,
			FontSize:    8.0,
			StrokeColor: gochart.DefaultAxisColor,
			StrokeWidth: gochart.DefaultAxisLineWidth,
		})
		const (
			padding = 5
			gap     = 6
			swatch  = 14
		)

		style.GetTextOptions().WriteToRenderer(r)
		width, height := 0, 0
		for i, e := range entries {
			tb := r.MeasureText(e.label)
			width = max(width, tb.Width())
			if i > 0 {
				height += gap
			}
			height += tb.Height()
		}

		box := gochart.Box{
			Top:    cb.Top,
			Left:   cb.Left,
			Right:  cb.Left + 2*padding + width + gap + swatch,
			Bottom: cb.Top + 2*padding + height,
		}
		gochart.Draw.Box(r, box, style)

		y := box.Top + padding
		for i, e := range entries {
			style.GetTextOptions().WriteToRenderer(r)
			tb := r.MeasureText(e.label)
			if i > 0 {
				y += gap
			}
			y += tb.Height()
			r.Text(e.label, box.Left+padding, y)

			r.SetFillColor(e.color)
			r.SetStrokeColor(e.color)
			r.SetStrokeWidth(gochart.DefaultAxisLineWidth)
			r.Circle(dotWidth, box.Left+padding+width+gap+swatch/2, y-tb.Height()/2)
			r.FillStroke()
		}
	}
}
