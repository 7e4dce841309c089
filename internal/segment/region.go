package segment

import (
	"math"

	"github.com/MeKo-Tech/eanscan/internal/utils"
)

// Region is the detected barcode area.
type Region struct {
	// Corners in order (alpha_min, beta_min), (alpha_max, beta_min),
	// (alpha_max, beta_max), (alpha_min, beta_max), where alpha runs along
	// Axis and beta along its perpendicular. For ModeBox the axes are x and y.
	Corners [4]utils.Point `json:"corners"`
	// Box is the inclusive pixel bounding box (min/max col and row).
	Box      utils.Box   `json:"box"`
	Area     int         `json:"area"`
	Centroid utils.Point `json:"centroid"`
	Axis     utils.Point `json:"axis"` // unit principal direction
	Mode     RegionMode  `json:"mode"`
}

// boxCorners builds the axis-aligned quadrilateral of a component.
func boxCorners(st compStats) [4]utils.Point {
	x0, y0 := float64(st.minX), float64(st.minY)
	x1, y1 := float64(st.maxX), float64(st.maxY)
	return [4]utils.Point{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
}

// principalAxes eigen-decomposes the symmetric covariance [[a b] [b c]] and
// returns the unit eigenvectors for the larger and smaller eigenvalue. The
// major axis is oriented with a non-negative x component.
func principalAxes(a, b, c float64) (major, minor utils.Point) {
	half := (a - c) / 2
	l1 := (a+c)/2 + math.Hypot(half, b)

	switch {
	case math.Abs(b) > 1e-12:
		major = utils.Point{X: l1 - c, Y: b}
	case a >= c:
		major = utils.Point{X: 1}
	default:
		major = utils.Point{Y: 1}
	}
	major = major.Scale(1 / major.Norm())
	if major.X < 0 || (major.X == 0 && major.Y < 0) {
		major = major.Scale(-1)
	}
	return major, utils.Point{X: -major.Y, Y: major.X}
}

// fitRegion computes the region of the component with the given stats.
func fitRegion(st compStats, labels []int, w int, mode RegionMode) Region {
	n := float64(st.count)
	centroid := utils.Point{X: st.sumX / n, Y: st.sumY / n}
	reg := Region{
		Box:      utils.NewBox(float64(st.minX), float64(st.minY), float64(st.maxX), float64(st.maxY)),
		Area:     st.count,
		Centroid: centroid,
		Axis:     utils.Point{X: 1},
		Mode:     mode,
	}
	if mode == ModeBox {
		reg.Corners = boxCorners(st)
		return reg
	}

	var sxx, sxy, syy float64
	forEachPixel(st, labels, w, func(x, y int) {
		dx, dy := float64(x)-centroid.X, float64(y)-centroid.Y
		sxx += dx * dx
		sxy += dx * dy
		syy += dy * dy
	})
	major, minor := principalAxes(sxx/n, sxy/n, syy/n)

	aMin, aMax := math.Inf(1), math.Inf(-1)
	bMin, bMax := math.Inf(1), math.Inf(-1)
	forEachPixel(st, labels, w, func(x, y int) {
		d := utils.Point{X: float64(x), Y: float64(y)}.Sub(centroid)
		a, b := d.Dot(major), d.Dot(minor)
		aMin, aMax = math.Min(aMin, a), math.Max(aMax, a)
		bMin, bMax = math.Min(bMin, b), math.Max(bMax, b)
	})

	corner := func(a, b float64) utils.Point {
		return centroid.Add(major.Scale(a)).Add(minor.Scale(b))
	}
	reg.Axis = major
	reg.Corners = [4]utils.Point{
		corner(aMin, bMin),
		corner(aMax, bMin),
		corner(aMax, bMax),
		corner(aMin, bMax),
	}
	return reg
}

// forEachPixel visits the pixels carrying the component's label inside its
// bounding box.
func forEachPixel(st compStats, labels []int, w int, fn func(x, y int)) {
	for y := st.minY; y <= st.maxY; y++ {
		row := labels[y*w:]
		for x := st.minX; x <= st.maxX; x++ {
			if row[x] == st.label {
				fn(x, y)
			}
		}
	}
}
