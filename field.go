package relief

// Entry is one contour in the flattened field, in depth-first
// pre-order. All indices are DFS-space: they address positions in the
// flattened arrays, not insertion order.
//
// The subtree invariant ties the layout together: the descendants of
// entry i are exactly entries [i+1, i+Skip]. A scan that rejects entry
// i skips its whole subtree by jumping to i+Skip+1.
type Entry struct {
	// Height is the contour's height value.
	Height float64

	// Bounds is the loop's axis-aligned bounding box, used as an
	// early reject before the winding test.
	Bounds Rect

	// Parent is the DFS index of the enclosing entry, -1 for
	// top-level contours.
	Parent int32

	// Depth is the containment depth, 0 for top-level contours.
	Depth int32

	// ChildStart and ChildCount address this entry's direct children
	// in Field.Children; the stored values are DFS indices.
	ChildStart, ChildCount int32

	// PointStart and PointCount address the loop's vertices in
	// Field.Points.
	PointStart, PointCount int32

	// Skip is the number of descendants of this entry.
	Skip int32
}

// FieldOption configures a Field during compilation.
type FieldOption func(*fieldConfig)

// fieldConfig holds optional configuration for Flatten.
type fieldConfig struct {
	defaultHeight float64
}

// WithDefaultHeight sets the height reported for points outside every
// contour. The default is 0.
func WithDefaultHeight(h float64) FieldOption {
	return func(c *fieldConfig) {
		c.defaultHeight = h
	}
}

// Field is the flattened, immutable form of a contour tree: entries in
// DFS pre-order plus flat vertex and child-index pools. The layout is
// what tile backends upload to the GPU, and what HeightAt scans without
// recursion.
//
// A Field never changes after Flatten returns, so any number of
// goroutines may query it concurrently without synchronization. To
// change the terrain, flatten a new tree and swap the field wholesale.
type Field struct {
	entries       []Entry
	points        []Point
	children      []int32
	bounds        Rect
	defaultHeight float64
}

// Flatten compiles the tree into a Field. A nil or empty tree yields an
// empty field whose queries all report the default height.
func Flatten(t *Tree, opts ...FieldOption) *Field {
	cfg := fieldConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	f := &Field{defaultHeight: cfg.defaultHeight}
	if t == nil || t.root == nil || t.size == 0 {
		return f
	}

	f.entries = make([]Entry, 0, t.size)
	f.points = make([]Point, 0, totalPoints(t))

	// Pass 1: emit entries in pre-order with an explicit stack. A
	// child is pushed after its parent's index is known, so Parent and
	// Depth come for free; Skip is settled afterwards.
	type frame struct {
		node   *treeNode
		parent int32
		depth  int32
	}
	stack := make([]frame, 0, len(t.root.children))
	for i := len(t.root.children) - 1; i >= 0; i-- {
		stack = append(stack, frame{node: t.root.children[i], parent: -1, depth: 0})
	}
	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		idx := int32(len(f.entries))
		pts := fr.node.contour.Points
		f.entries = append(f.entries, Entry{
			Height:     fr.node.contour.Height,
			Bounds:     fr.node.bounds,
			Parent:     fr.parent,
			Depth:      fr.depth,
			PointStart: int32(len(f.points)),
			PointCount: int32(len(pts)),
		})
		f.points = append(f.points, pts...)

		for i := len(fr.node.children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: fr.node.children[i], parent: idx, depth: fr.depth + 1})
		}
	}

	// Pass 2: subtree sizes. Walking backwards, every entry's own size
	// (Skip+1) accumulates into its parent before the parent is read.
	for i := len(f.entries) - 1; i >= 0; i-- {
		if p := f.entries[i].Parent; p >= 0 {
			f.entries[p].Skip += f.entries[i].Skip + 1
		}
	}

	// Pass 3: child ranges. Direct children sit at i+1 and then hop
	// over each sibling subtree, so the pool falls out of Skip alone.
	f.children = make([]int32, 0, len(f.entries))
	for i := range f.entries {
		e := &f.entries[i]
		e.ChildStart = int32(len(f.children))
		ci := i + 1
		end := i + int(e.Skip) + 1
		for ci < end {
			f.children = append(f.children, int32(ci))
			ci += int(f.entries[ci].Skip) + 1
		}
		e.ChildCount = int32(len(f.children)) - e.ChildStart
	}

	// Field bounds are the union of the top-level contours.
	f.bounds = f.entries[0].Bounds
	for i := range f.entries {
		if f.entries[i].Parent == -1 {
			f.bounds = f.bounds.Union(f.entries[i].Bounds)
		}
	}

	return f
}

// totalPoints counts vertices across the whole tree so the point pool
// allocates once.
func totalPoints(t *Tree) int {
	total := 0
	stack := []*treeNode{t.root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		total += len(n.contour.Points)
		stack = append(stack, n.children...)
	}
	return total
}

// Len returns the number of entries in the field.
func (f *Field) Len() int {
	return len(f.entries)
}

// Entries returns the flattened entries in DFS pre-order. The slice is
// the field's backing array: callers must treat it as read-only.
func (f *Field) Entries() []Entry {
	return f.entries
}

// Points returns the flat vertex pool addressed by PointStart/PointCount.
// The slice is the field's backing array: callers must treat it as
// read-only.
func (f *Field) Points() []Point {
	return f.points
}

// Children returns the flat child-index pool addressed by
// ChildStart/ChildCount. Values are DFS-space entry indices. The slice
// is the field's backing array: callers must treat it as read-only.
func (f *Field) Children() []int32 {
	return f.children
}

// DefaultHeight returns the height reported outside every contour.
func (f *Field) DefaultHeight() float64 {
	return f.defaultHeight
}

// Bounds returns the union of the top-level contour boxes. Empty
// fields return the zero Rect.
func (f *Field) Bounds() Rect {
	return f.bounds
}
