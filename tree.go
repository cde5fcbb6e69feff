package relief

import (
	"errors"
	"fmt"
)

// ErrDegenerateContour is returned when a contour has fewer than 3 points.
// Such a loop encloses no area and can never participate in containment.
var ErrDegenerateContour = errors.New("relief: contour needs at least 3 points")

// Tree arranges contours by geometric containment: a contour is the
// child of the smallest contour that fully encloses it. A synthetic
// root above all real contours makes the forest case (several disjoint
// top-level contours) uniform.
//
// Insertion order does not matter: any permutation of the same contour
// set builds a tree with identical parent/child relationships.
//
// Tree is a build-time structure for the authoring path. Compile it
// with Flatten to get the immutable, query-friendly Field.
// Tree is not safe for concurrent use.
type Tree struct {
	root *treeNode
	size int
}

// treeNode wraps one inserted contour. The bounding box is cached so
// containment tests can reject cheaply before the winding test runs.
type treeNode struct {
	id       int
	contour  Contour
	bounds   Rect
	children []*treeNode
}

// NewTree creates an empty contour tree.
func NewTree() *Tree {
	return &Tree{root: &treeNode{id: -1}}
}

// Len returns the number of contours in the tree.
func (t *Tree) Len() int {
	return t.size
}

// Insert places c at its containment depth, reparenting any existing
// contours that c encloses. The contour is assigned an id equal to its
// insertion index among accepted contours; diagnostics refer to it.
//
// Returns ErrDegenerateContour (wrapped) when c has fewer than 3 points;
// the tree is unchanged in that case.
func (t *Tree) Insert(c Contour) error {
	if !c.Valid() {
		return fmt.Errorf("%w: got %d", ErrDegenerateContour, len(c.Points))
	}

	node := &treeNode{id: t.size, contour: c, bounds: c.Bounds()}

	// Descend while some existing child fully contains the new contour.
	cur := t.root
descend:
	for {
		for _, child := range cur.children {
			if child.encloses(node) {
				cur = child
				continue descend
			}
		}
		break
	}

	// Children of the cursor that the new contour encloses move under it.
	keep := cur.children[:0]
	for _, child := range cur.children {
		if node.encloses(child) {
			node.children = append(node.children, child)
		} else {
			keep = append(keep, child)
		}
	}
	cur.children = append(keep, node)

	t.size++
	return nil
}

// Build inserts contours in slice order, dropping degenerate ones with
// a diagnostic instead of failing the whole batch. The returned tree is
// always usable; diagnostics tell the author what was skipped.
func Build(contours []Contour) (*Tree, []Diagnostic) {
	t := NewTree()
	var diags []Diagnostic
	for i, c := range contours {
		if err := t.Insert(c); err != nil {
			diags = append(diags, Diagnostic{
				Code:    DiagDegenerate,
				Contour: i,
				Other:   -1,
				Detail:  fmt.Sprintf("dropped: %d points", len(c.Points)),
			})
		}
	}
	return t, diags
}

// encloses reports whether every vertex of m's contour lies inside n's.
// The bounding-box check is only a pre-reject; the decision is the
// geometric predicate on the loop itself.
func (n *treeNode) encloses(m *treeNode) bool {
	if !n.bounds.ContainsRect(m.bounds) {
		return false
	}
	return n.contour.ContainsContour(m.contour)
}
