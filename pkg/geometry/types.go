package geometry

import "math"

// SeriesPoint is one timestamped value of an ordered series. Gaps are allowed;
// nothing is interpolated.
type SeriesPoint struct {
	Timestamp string         `json:"timestamp" yaml:"timestamp"`
	Value     float64        `json:"value" yaml:"value"`
	Aux       map[string]any `json:"aux,omitempty" yaml:"aux,omitempty"`
}

// CategoryTotal is the count of one category. Absent categories count as zero.
type CategoryTotal struct {
	Category string  `json:"category" yaml:"category"`
	Count    float64 `json:"count" yaml:"count"`
}

// Margin insets the drawable area of a viewport.
type Margin struct {
	Top    float64 `json:"top" yaml:"top"`
	Right  float64 `json:"right" yaml:"right"`
	Bottom float64 `json:"bottom" yaml:"bottom"`
	Left   float64 `json:"left" yaml:"left"`
}

// Viewport is the chart canvas. Max pins the value mapped to the top edge;
// zero means infer it from the data.
type Viewport struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
	Margin Margin  `json:"margin" yaml:"margin"`
	Max    float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// DefaultViewport matches the trend cards used across the dashboards.
func DefaultViewport() Viewport {
	return Viewport{
		Width:  600,
		Height: 200,
		Margin: Margin{Top: 20, Right: 20, Bottom: 30, Left: 40},
	}
}

// InnerWidth is the drawable width, never negative.
func (v Viewport) InnerWidth() float64 {
	return nonNegative(finite(v.Width) - finite(v.Margin.Left) - finite(v.Margin.Right))
}

// InnerHeight is the drawable height, never negative.
func (v Viewport) InnerHeight() float64 {
	return nonNegative(finite(v.Height) - finite(v.Margin.Top) - finite(v.Margin.Bottom))
}

// Baseline is the y coordinate of a zero value.
func (v Viewport) Baseline() float64 {
	return finite(v.Margin.Top) + v.InnerHeight()
}

// Point is a projected canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Circumference returns 2πr for a non-negative radius.
func Circumference(radius float64) float64 {
	return 2 * math.Pi * nonNegative(finite(radius))
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
