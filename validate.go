package relief

import "fmt"

// DiagnosticCode classifies a geometry problem found while building or
// validating a contour set.
type DiagnosticCode int

const (
	// DiagDegenerate marks a contour dropped for having fewer than 3 points.
	DiagDegenerate DiagnosticCode = iota

	// DiagSelfIntersection marks a contour whose loop crosses itself.
	DiagSelfIntersection

	// DiagCrossingSiblings marks two sibling contours whose boundaries
	// cross. Partial overlap is undefined input: the tree keeps both
	// contours as siblings and queries inside the overlap answer
	// arbitrarily between the two.
	DiagCrossingSiblings
)

// String returns the code name for logs and error messages.
func (c DiagnosticCode) String() string {
	switch c {
	case DiagDegenerate:
		return "degenerate"
	case DiagSelfIntersection:
		return "self-intersection"
	case DiagCrossingSiblings:
		return "crossing-siblings"
	default:
		return fmt.Sprintf("diagnostic(%d)", int(c))
	}
}

// Diagnostic reports one geometry problem. Contour identifies the
// offending contour: Build reports the input slice index, Validate the
// insertion id. Other is the second contour for pairwise problems,
// -1 otherwise.
type Diagnostic struct {
	Code    DiagnosticCode
	Contour int
	Other   int
	Detail  string
}

// String formats the diagnostic for logs.
func (d Diagnostic) String() string {
	if d.Other >= 0 {
		return fmt.Sprintf("%s: contours %d and %d: %s", d.Code, d.Contour, d.Other, d.Detail)
	}
	return fmt.Sprintf("%s: contour %d: %s", d.Code, d.Contour, d.Detail)
}

// Validate inspects a built tree and reports geometry the builder
// tolerates but queries answer arbitrarily for: self-intersecting
// loops and crossing sibling boundaries. The tree is never mutated and
// never fails validation; the result is advisory, for the authoring
// path.
//
// The pass is quadratic in segment count per contour pair. That is fine
// at authoring scale; it has no place on the query path.
func Validate(t *Tree) []Diagnostic {
	if t == nil || t.root == nil {
		return nil
	}

	var diags []Diagnostic

	stack := []*treeNode{t.root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, child := range n.children {
			if selfIntersects(child.contour.Points) {
				diags = append(diags, Diagnostic{
					Code:    DiagSelfIntersection,
					Contour: child.id,
					Other:   -1,
					Detail:  "loop crosses itself",
				})
			}
			stack = append(stack, child)
		}

		// Sibling boundaries must not cross. The bounding-box test only
		// filters pairs; disjoint boxes cannot cross.
		for i := 0; i < len(n.children); i++ {
			for j := i + 1; j < len(n.children); j++ {
				a, b := n.children[i], n.children[j]
				if !a.bounds.Intersects(b.bounds) {
					continue
				}
				if loopsCross(a.contour.Points, b.contour.Points) {
					diags = append(diags, Diagnostic{
						Code:    DiagCrossingSiblings,
						Contour: a.id,
						Other:   b.id,
						Detail:  "boundaries cross; overlap region is undefined",
					})
				}
			}
		}
	}

	return diags
}

// selfIntersects reports whether any two non-adjacent segments of the
// loop properly cross. Adjacent segments share an endpoint and can
// never cross properly, so no index bookkeeping is needed.
func selfIntersects(pts []Point) bool {
	n := len(pts)
	for i := 0; i < n; i++ {
		a1, a2 := pts[i], pts[(i+1)%n]
		for j := i + 1; j < n; j++ {
			b1, b2 := pts[j], pts[(j+1)%n]
			if segmentsCross(a1, a2, b1, b2) {
				return true
			}
		}
	}
	return false
}

// loopsCross reports whether any segment of one loop properly crosses
// any segment of the other.
func loopsCross(a, b []Point) bool {
	na, nb := len(a), len(b)
	for i := 0; i < na; i++ {
		a1, a2 := a[i], a[(i+1)%na]
		for j := 0; j < nb; j++ {
			if segmentsCross(a1, a2, b[j], b[(j+1)%nb]) {
				return true
			}
		}
	}
	return false
}

// segmentsCross reports a proper crossing between segments a1-a2 and
// b1-b2. Touching at an endpoint or running collinear does not count:
// the orientation products are zero there, and shared vertices between
// adjacent loop segments must not read as crossings.
func segmentsCross(a1, a2, b1, b2 Point) bool {
	d1 := isLeft(a1, a2, b1)
	d2 := isLeft(a1, a2, b2)
	d3 := isLeft(b1, b2, a1)
	d4 := isLeft(b1, b2, a2)
	return d1*d2 < 0 && d3*d4 < 0
}
