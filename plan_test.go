package rasterblock

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlanSquareExactMultiple(t *testing.T) {
	t.Parallel()

	g := Plan(10000, 10000, 5000, Square)
	require.Equal(t, 5000, g.XStep)
	require.Equal(t, 5000, g.YStep)
	// width/step+1 leaves an empty trailing column and row.
	require.Equal(t, 3, g.XBlocks)
	require.Equal(t, 3, g.YBlocks)

	tiles := g.Tiles()
	require.Len(t, tiles, 4)
	require.Equal(t, 4, g.TileCount())
	for _, tile := range tiles {
		require.Equal(t, 5000, tile.Width)
		require.Equal(t, 5000, tile.Height)
	}
}

func TestPlanClippedEdges(t *testing.T) {
	t.Parallel()

	g := Plan(12, 12, 5, Square)
	require.Equal(t, []int{5, 5, 2}, g.Columns())
	require.Equal(t, []int{5, 5, 2}, g.Rows())
	require.Equal(t, 9, g.TileCount())

	tiles := g.Tiles()
	require.Equal(t, Tile{X: 0, Y: 0, Width: 5, Height: 5}, tiles[0])
	require.Equal(t, Tile{X: 10, Y: 0, Width: 2, Height: 5}, tiles[2])
	require.Equal(t, Tile{X: 0, Y: 10, Width: 5, Height: 2}, tiles[6])
	require.Equal(t, Tile{X: 10, Y: 10, Width: 2, Height: 2}, tiles[8])
}

func TestPlanShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		shape        BlockShape
		extent       int
		wantX, wantY int
	}{
		{name: "square", shape: Square, extent: 5000, wantX: 5000, wantY: 5000},
		{name: "default-is-square", shape: ShapeDefault, extent: 100, wantX: 100, wantY: 100},
		{name: "vstrip", shape: VerticalStrip, extent: 5000, wantX: 3000, wantY: 5000},
		{name: "hstrip", shape: HorizontalStrip, extent: 5000, wantX: 5000, wantY: 3000},
		{name: "vstrip-floor", shape: VerticalStrip, extent: 1, wantX: 1, wantY: 1},
		{name: "zero-extent", shape: Square, extent: 0, wantX: 1, wantY: 1},
		{name: "negative-extent", shape: HorizontalStrip, extent: -7, wantX: 1, wantY: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			g := Plan(64, 64, tc.extent, tc.shape)
			require.Equal(t, tc.wantX, g.XStep)
			require.Equal(t, tc.wantY, g.YStep)
		})
	}
}

func TestPlanPartitionsRaster(t *testing.T) {
	t.Parallel()

	shapes := []BlockShape{Square, HorizontalStrip, VerticalStrip}
	for width := 1; width <= 23; width += 3 {
		for height := 1; height <= 19; height += 2 {
			for extent := 1; extent <= 9; extent++ {
				for _, shape := range shapes {
					g := Plan(width, height, extent, shape)
					covered := make([]int, width*height)
					for _, tile := range g.Tiles() {
						require.Positive(t, tile.Width)
						require.Positive(t, tile.Height)
						for y := tile.Y; y < tile.Y+tile.Height; y++ {
							for x := tile.X; x < tile.X+tile.Width; x++ {
								covered[y*width+x]++
							}
						}
					}
					for i, n := range covered {
						require.Equalf(t, 1, n, "%dx%d extent %d %s: pixel %d covered %d times",
							width, height, extent, shape, i, n)
					}
					require.LessOrEqual(t, g.TileCount(), g.XBlocks*g.YBlocks)
				}
			}
		}
	}
}

func TestGridBufferLen(t *testing.T) {
	t.Parallel()

	require.Equal(t, 25, Plan(12, 12, 5, Square).BufferLen())
	require.Equal(t, 12*7, Plan(12, 7, 5000, Square).BufferLen())
}

func TestParseBlockShape(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]BlockShape{
		"square":     Square,
		"HSTRIP":     HorizontalStrip,
		"vertical":   VerticalStrip,
		"":           ShapeDefault,
		" vstrip \t": VerticalStrip,
	} {
		got, err := ParseBlockShape(name)
		require.NoError(t, err)
		require.Equal(t, want, got, name)
	}

	_, err := ParseBlockShape("diagonal")
	require.ErrorIs(t, err, ErrUnknownBlockShape)
}
