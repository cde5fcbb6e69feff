package relief

import "math"

// Contour is a closed polygonal loop carrying one height value.
// The loop closes implicitly from the last point back to the first;
// callers must not repeat the first point at the end.
//
// Winding direction is not significant: containment tests use the
// nonzero winding number, which is direction-agnostic and correct for
// both convex and concave loops.
type Contour struct {
	Points []Point
	Height float64
}

// NewContour creates a contour at the given height.
func NewContour(height float64, points ...Point) Contour {
	return Contour{Points: points, Height: height}
}

// Valid reports whether the contour has enough points to enclose area.
// Loops with fewer than 3 points are degenerate and rejected by Tree.Insert.
func (c Contour) Valid() bool {
	return len(c.Points) >= 3
}

// Bounds returns the axis-aligned bounding box of the loop.
// An empty contour yields the zero Rect.
func (c Contour) Bounds() Rect {
	if len(c.Points) == 0 {
		return Rect{}
	}
	b := Rect{Min: c.Points[0], Max: c.Points[0]}
	for _, p := range c.Points[1:] {
		b.Min.X = math.Min(b.Min.X, p.X)
		b.Min.Y = math.Min(b.Min.Y, p.Y)
		b.Max.X = math.Max(b.Max.X, p.X)
		b.Max.Y = math.Max(b.Max.Y, p.Y)
	}
	return b
}

// Contains reports whether p lies inside the loop.
func (c Contour) Contains(p Point) bool {
	return windingNumber(c.Points, p) != 0
}

// ContainsContour reports whether every vertex of other lies inside c.
// This is the containment predicate the tree is built on; it assumes
// loops do not cross (crossing loops are reported by Validate).
func (c Contour) ContainsContour(other Contour) bool {
	for _, p := range other.Points {
		if !c.Contains(p) {
			return false
		}
	}
	return len(other.Points) > 0
}

// DistanceToBoundary returns the minimum distance from p to the loop,
// measured over every closing segment.
func (c Contour) DistanceToBoundary(p Point) float64 {
	return boundaryDistance(c.Points, p)
}

// windingNumber accumulates the signed winding of the loop around p.
// Zero means outside; any other value means inside under the nonzero
// fill rule. Points exactly on an edge count as inside on the upward
// side, which keeps adjacent tiles from double-sampling boundaries.
func windingNumber(pts []Point, p Point) int {
	wn := 0
	n := len(pts)
	for i := 0; i < n; i++ {
		a := pts[i]
		b := pts[(i+1)%n]
		if a.Y <= p.Y {
			if b.Y > p.Y && isLeft(a, b, p) > 0 {
				wn++
			}
		} else if b.Y <= p.Y && isLeft(a, b, p) < 0 {
			wn--
		}
	}
	return wn
}

// isLeft returns a positive value when p lies left of the directed
// line a->b, negative when right, zero when collinear.
func isLeft(a, b, p Point) float64 {
	return b.Sub(a).Cross(p.Sub(a))
}

// boundaryDistance returns the minimum distance from p to the closed
// loop through pts.
func boundaryDistance(pts []Point, p Point) float64 {
	best := math.Inf(1)
	n := len(pts)
	for i := 0; i < n; i++ {
		if d := segmentDistance(pts[i], pts[(i+1)%n], p); d < best {
			best = d
		}
	}
	return best
}

// segmentDistance calculates the distance from point p to line segment a-b.
func segmentDistance(a, b, p Point) float64 {
	ab := b.Sub(a)
	ap := p.Sub(a)

	// Project p onto line ab.
	abLenSq := ab.LengthSquared()
	if abLenSq == 0 {
		// Degenerate segment - both points are the same.
		return ap.Length()
	}

	t := ap.Dot(ab) / abLenSq

	// Clamp t to [0, 1] for segment distance.
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	// Distance to the closest point on the segment.
	closest := a.Add(ab.Mul(t))
	return p.Distance(closest)
}
