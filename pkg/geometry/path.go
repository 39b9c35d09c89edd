package geometry

import (
	"strconv"
	"strings"
)

// MaxValue returns the largest finite value of the series, or zero.
func MaxValue(series []SeriesPoint) float64 {
	max := 0.0
	for _, p := range series {
		if v := finite(p.Value); v > max {
			max = v
		}
	}
	return max
}

// Project maps series values onto the viewport. Values at or below zero land on
// the baseline and values above the max are clamped to the top edge.
func Project(series []SeriesPoint, vp Viewport) []Point {
	n := len(series)
	if n == 0 {
		return nil
	}
	max := finite(vp.Max)
	if max <= 0 {
		max = MaxValue(series)
	}
	left := finite(vp.Margin.Left)
	top := finite(vp.Margin.Top)
	width := vp.InnerWidth()
	height := vp.InnerHeight()
	points := make([]Point, n)
	for i, p := range series {
		x := left
		if n > 1 {
			x = left + float64(i)/float64(n-1)*width
		}
		ratio := 0.0
		if max > 0 {
			ratio = clamp(finite(p.Value), 0, max) / max
		}
		points[i] = Point{X: x, Y: top + height - ratio*height}
	}
	return points
}

// LinePath builds an SVG path ("M x0 y0 L x1 y1 ..."). An empty series yields
// "" and a single point yields a bare move command.
func LinePath(series []SeriesPoint, vp Viewport) string {
	return pathFromPoints(Project(series, vp))
}

// AreaPath extends LinePath down to the baseline and back along x0 so the
// shape can be filled.
func AreaPath(series []SeriesPoint, vp Viewport) string {
	points := Project(series, vp)
	if len(points) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(pathFromPoints(points))
	base := vp.Baseline()
	last := points[len(points)-1]
	b.WriteString(" L ")
	b.WriteString(coord(last.X))
	b.WriteByte(' ')
	b.WriteString(coord(base))
	b.WriteString(" L ")
	b.WriteString(coord(points[0].X))
	b.WriteByte(' ')
	b.WriteString(coord(base))
	b.WriteString(" Z")
	return b.String()
}

// Sparkline returns an SVG polyline "points" attribute spanning width x height.
// The series is scaled to its own maximum.
func Sparkline(values []float64, width, height float64) string {
	series := make([]SeriesPoint, len(values))
	for i, v := range values {
		series[i] = SeriesPoint{Value: v}
	}
	points := Project(series, Viewport{Width: width, Height: height})
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = coord(p.X) + "," + coord(p.Y)
	}
	return strings.Join(parts, " ")
}

func pathFromPoints(points []Point) string {
	if len(points) == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range points {
		if i == 0 {
			b.WriteString("M ")
		} else {
			b.WriteString(" L ")
		}
		b.WriteString(coord(p.X))
		b.WriteByte(' ')
		b.WriteString(coord(p.Y))
	}
	return b.String()
}

// coord renders a coordinate with at most two decimals and no trailing zeros.
func coord(v float64) string {
	s := strconv.FormatFloat(finite(v), 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}
