package relief

import "math"

// distanceEpsilon caps the inverse-distance weight so a sample sitting
// exactly on a boundary keeps a finite, dominant weight instead of a
// division by zero.
const distanceEpsilon = 1e-6

// HeightAt returns the terrain height at p.
//
// The deepest contour containing p decides the answer: none means the
// default height, a childless one means its height exactly, and one
// with children blends by inverse distance to boundary over itself and
// its direct children only. Approaching a child from outside, the
// child's height wins because its distance term collapses to the
// epsilon cap.
//
// The whole query is a recursion-free scan over the flattened entries;
// the WGSL tile kernel in backend/wgpu is its line-for-line mirror.
func (f *Field) HeightAt(p Point) float64 {
	deepest := f.deepestAt(p)
	if deepest < 0 {
		return f.defaultHeight
	}

	e := &f.entries[deepest]
	if e.ChildCount == 0 {
		return e.Height
	}

	weight := 1 / math.Max(f.distanceToBoundary(deepest, p), distanceEpsilon)
	heightSum := e.Height * weight
	weightSum := weight
	for ci := e.ChildStart; ci < e.ChildStart+e.ChildCount; ci++ {
		child := f.children[ci]
		w := 1 / math.Max(f.distanceToBoundary(child, p), distanceEpsilon)
		heightSum += f.entries[child].Height * w
		weightSum += w
	}
	return heightSum / weightSum
}

// deepestAt returns the DFS index of the deepest entry containing p,
// or -1 when no contour contains it.
//
// The scan is linear with subtree pruning: a hit at entry i restricts
// the remaining scan to i's descendants [i+1, i+Skip] (siblings are
// disjoint, so nothing past the subtree can contain p), and a miss
// jumps the whole subtree to i+Skip+1. Each later hit is therefore
// strictly deeper, and the last hit is the deepest.
func (f *Field) deepestAt(p Point) int32 {
	deepest := int32(-1)
	i := 0
	end := len(f.entries)
	for i < end {
		e := &f.entries[i]
		if f.contains(int32(i), p) {
			deepest = int32(i)
			end = i + int(e.Skip) + 1
			i++
		} else {
			i += int(e.Skip) + 1
		}
	}
	return deepest
}

// contains reports whether entry i encloses p: bounding-box reject
// first, then the nonzero winding test over the entry's loop.
func (f *Field) contains(i int32, p Point) bool {
	e := &f.entries[i]
	if !e.Bounds.Contains(p) {
		return false
	}
	pts := f.points[e.PointStart : e.PointStart+e.PointCount]
	return windingNumber(pts, p) != 0
}

// distanceToBoundary returns the minimum distance from p to entry i's
// loop.
func (f *Field) distanceToBoundary(i int32, p Point) float64 {
	e := &f.entries[i]
	pts := f.points[e.PointStart : e.PointStart+e.PointCount]
	return boundaryDistance(pts, p)
}
