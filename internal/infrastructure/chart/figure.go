// Package chart builds Plotly.js figure descriptions that the dashboard page renders.
package chart

import (
	"math"
	"time"

	"github.com/damon-houk/fx-rate-dashboard/internal/domain/entity"
)

// Figure is the JSON shape accepted by Plotly.react
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// Trace is one series of a figure. Y values are pointers so gaps encode as null.
type Trace struct {
	Type string     `json:"type"`
	Mode string     `json:"mode,omitempty"`
	Name string     `json:"name,omitempty"`
	X    []string   `json:"x"`
	Y    []*float64 `json:"y"`
	Text []string   `json:"text,omitempty"`
}

// Layout holds the figure title and axis labels
type Layout struct {
	Title      Title  `json:"title"`
	XAxis      Axis   `json:"xaxis"`
	YAxis      Axis   `json:"yaxis"`
	ShowLegend bool   `json:"showlegend"`
	Template   string `json:"template,omitempty"`
}

// Title is a Plotly title object
type Title struct {
	Text string `json:"text"`
}

// Axis is a Plotly axis object
type Axis struct {
	Title Title `json:"title"`
}

func newLayout(title, xTitle, yTitle string, legend bool) Layout {
	return Layout{
		Title:      Title{Text: title},
		XAxis:      Axis{Title: Title{Text: xTitle}},
		YAxis:      Axis{Title: Title{Text: yTitle}},
		ShowLegend: legend,
		Template:   "plotly_white",
	}
}

// LineFigure plots one currency over time
func LineFigure(title, xTitle, yTitle, name string, dates []time.Time, values []float64) Figure {
	return Figure{
		Data: []Trace{
			{
				Type: "scatter",
				Mode: "lines",
				Name: name,
				X:    formatDates(dates),
				Y:    nullable(values),
			},
		},
		Layout: newLayout(title, xTitle, yTitle, false),
	}
}

// MultiLineFigure plots several series sharing the same dates, in the order given by names
func MultiLineFigure(title, xTitle, yTitle string, dates []time.Time, names []string, series map[string][]float64) Figure {
	x := formatDates(dates)

	traces := make([]Trace, 0, len(names))
	for _, name := range names {
		traces = append(traces, Trace{
			Type: "scatter",
			Mode: "lines",
			Name: name,
			X:    x,
			Y:    nullable(series[name]),
		})
	}

	return Figure{
		Data:   traces,
		Layout: newLayout(title, xTitle, yTitle, true),
	}
}

// BarFigure plots one value per category, in the order given by categories
func BarFigure(title, xTitle, yTitle string, categories []string, values map[string]float64) Figure {
	y := make([]float64, len(categories))
	for i, c := range categories {
		v, ok := values[c]
		if !ok {
			v = math.NaN()
		}
		y[i] = v
	}

	x := make([]string, len(categories))
	copy(x, categories)

	return Figure{
		Data: []Trace{
			{
				Type: "bar",
				X:    x,
				Y:    nullable(y),
			},
		},
		Layout: newLayout(title, xTitle, yTitle, false),
	}
}

func formatDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(entity.DateLayout)
	}
	return out
}

// nullable maps NaN and Inf to nil, which encoding/json cannot represent otherwise
func nullable(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i := range values {
		if math.IsNaN(values[i]) || math.IsInf(values[i], 0) {
			continue
		}
		v := values[i]
		out[i] = &v
	}
	return out
}
