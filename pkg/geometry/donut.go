package geometry

import "strconv"

// DonutRotation rotates the first segment to 12 o'clock.
const DonutRotation = -90.0

// Segment is one category arc of a donut drawn with stroke-dasharray.
type Segment struct {
	Category   string  `json:"category"`
	Count      float64 `json:"count"`
	Percentage float64 `json:"percentage"`
	DashLength float64 `json:"dash_length"`
	Gap        float64 `json:"gap"`
	DashArray  string  `json:"dash_array"`
	Offset     float64 `json:"offset"`
	Rotation   float64 `json:"rotation"`
	StartAngle float64 `json:"start_angle"`
	EndAngle   float64 `json:"end_angle"`
}

type donutConfig struct {
	total    float64
	hasTotal bool
	relative bool
}

// DonutOption customizes DonutSegments.
type DonutOption func(*donutConfig)

// WithTotal sets the caller-known total that segments are proportional to.
func WithTotal(total float64) DonutOption {
	return func(c *donutConfig) {
		c.total = total
		c.hasTotal = true
	}
}

// Relative renormalizes segments to the categories present so they always
// close the ring.
func Relative() DonutOption {
	return func(c *donutConfig) {
		c.relative = true
	}
}

// DonutSegments converts category totals into contiguous arcs on a circle of the
// given radius. Without WithTotal (or with Relative) the total is the sum of the
// known counts. A zero total yields no segments. Dash lengths never overrun the
// circumference.
func DonutSegments(totals []CategoryTotal, radius float64, opts ...DonutOption) []Segment {
	cfg := donutConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	sum := 0.0
	for _, t := range totals {
		sum += nonNegative(finite(t.Count))
	}
	total := sum
	if cfg.hasTotal && !cfg.relative {
		total = nonNegative(finite(cfg.total))
	}
	circumference := Circumference(radius)
	if total == 0 || circumference == 0 {
		return []Segment{}
	}
	segments := make([]Segment, 0, len(totals))
	cumulative := 0.0
	for _, t := range totals {
		count := nonNegative(finite(t.Count))
		dash := count / total * circumference
		if remaining := circumference - cumulative; dash > remaining {
			dash = nonNegative(remaining)
		}
		seg := Segment{
			Category:   t.Category,
			Count:      count,
			Percentage: count / total * 100,
			DashLength: dash,
			Gap:        circumference - dash,
			Offset:     -cumulative,
			Rotation:   DonutRotation,
			StartAngle: cumulative / circumference * 360,
			EndAngle:   (cumulative + dash) / circumference * 360,
		}
		seg.DashArray = dashArray(seg.DashLength, seg.Gap)
		segments = append(segments, seg)
		cumulative += dash
	}
	return segments
}

func dashArray(dash, gap float64) string {
	return strconv.FormatFloat(dash, 'f', 2, 64) + " " + strconv.FormatFloat(gap, 'f', 2, 64)
}

// RingOffset is the stroke-dashoffset of a progress ring showing percentage.
// It is monotonic in percentage and stays within [0, circumference].
func RingOffset(percentage, circumference float64) float64 {
	c := nonNegative(finite(circumference))
	p := clamp(finite(percentage), 0, 100)
	return clamp(c*(1-p/100), 0, c)
}
