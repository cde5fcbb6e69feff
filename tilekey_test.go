package relief

import "testing"

func TestTileKey_Parent(t *testing.T) {
	tests := []struct {
		name string
		key  TileKey
		want TileKey
	}{
		{"origin", TileKey{LOD: 0, X: 0, Y: 0}, TileKey{LOD: 1, X: 0, Y: 0}},
		{"positive", TileKey{LOD: 0, X: 5, Y: 3}, TileKey{LOD: 1, X: 2, Y: 1}},
		{"negative floors", TileKey{LOD: 0, X: -3, Y: 5}, TileKey{LOD: 1, X: -2, Y: 2}},
		{"minus one stays", TileKey{LOD: 2, X: -1, Y: -1}, TileKey{LOD: 3, X: -1, Y: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.Parent(); got != tt.want {
				t.Errorf("%v.Parent() = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestTileKey_String(t *testing.T) {
	k := TileKey{LOD: 2, X: 3, Y: -4}
	if got := k.String(); got != "L2 (3,-4)" {
		t.Errorf("String() = %q, want %q", got, "L2 (3,-4)")
	}
}
