package geometry

// MinBarHeight keeps zero-valued bars visible as a sliver.
const MinBarHeight = 2.0

// BarHeights scales values against max(values, 1) into [MinBarHeight, maxHeight].
func BarHeights(values []float64, maxHeight float64) []float64 {
	limit := nonNegative(finite(maxHeight))
	floor := MinBarHeight
	if floor > limit {
		floor = limit
	}
	max := 1.0
	for _, v := range values {
		if f := finite(v); f > max {
			max = f
		}
	}
	heights := make([]float64, len(values))
	for i, v := range values {
		h := nonNegative(finite(v)) / max * limit
		if h < floor {
			h = floor
		}
		heights[i] = h
	}
	return heights
}

// Bar is a positioned rectangle inside a viewport.
type Bar struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Value  float64 `json:"value"`
}

// Bars lays values out as equal-width bars separated by gap.
func Bars(values []float64, vp Viewport, gap float64) []Bar {
	n := len(values)
	if n == 0 {
		return nil
	}
	gap = nonNegative(finite(gap))
	inner := vp.InnerWidth()
	width := (inner - gap*float64(n-1)) / float64(n)
	if width <= 0 {
		gap = 0
		width = inner / float64(n)
	}
	heights := BarHeights(values, vp.InnerHeight())
	if max := finite(vp.Max); max > 0 {
		heights = scaledHeights(values, max, vp.InnerHeight())
	}
	base := vp.Baseline()
	bars := make([]Bar, n)
	for i, v := range values {
		bars[i] = Bar{
			X:      finite(vp.Margin.Left) + float64(i)*(width+gap),
			Y:      base - heights[i],
			Width:  width,
			Height: heights[i],
			Value:  v,
		}
	}
	return bars
}

func scaledHeights(values []float64, max, maxHeight float64) []float64 {
	floor := MinBarHeight
	if floor > maxHeight {
		floor = maxHeight
	}
	out := make([]float64, len(values))
	for i, v := range values {
		h := clamp(finite(v), 0, max) / max * maxHeight
		if h < floor {
			h = floor
		}
		out[i] = h
	}
	return out
}
