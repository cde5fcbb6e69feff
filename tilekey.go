package relief

import "fmt"

// TileKey addresses one tile in the virtual texture pyramid.
// X and Y are integer tile coordinates at the given level; they may be
// negative. A tile at level LOD spans baseTileSize * 2^LOD world units
// per edge, so higher levels cover more world area per tile.
type TileKey struct {
	LOD int32
	X   int32
	Y   int32
}

// Parent returns the key of the tile one level coarser containing this
// tile. Coordinates floor-halve (arithmetic shift rounds toward
// negative infinity) so tiles with negative coordinates nest correctly.
func (k TileKey) Parent() TileKey {
	return TileKey{LOD: k.LOD + 1, X: k.X >> 1, Y: k.Y >> 1}
}

// String formats the key for logs, e.g. "L2 (3,-4)".
func (k TileKey) String() string {
	return fmt.Sprintf("L%d (%d,%d)", k.LOD, k.X, k.Y)
}
