package rasterblock

import (
	"fmt"
	"strings"
)

// BlockShape biases the aspect ratio of planned tiles.
type BlockShape int

const (
	// ShapeDefault resolves to the shape configured in Options.
	ShapeDefault BlockShape = iota
	// Square uses equal steps on both axes.
	Square
	// HorizontalStrip shortens the vertical step: wide, short tiles.
	HorizontalStrip
	// VerticalStrip narrows the horizontal step: tall, narrow tiles.
	VerticalStrip
)

// String implements fmt.Stringer.
func (s BlockShape) String() string {
	switch s {
	case ShapeDefault:
		return "default"
	case Square:
		return "square"
	case HorizontalStrip:
		return "hstrip"
	case VerticalStrip:
		return "vstrip"
	default:
		return fmt.Sprintf("BlockShape(%d)", int(s))
	}
}

// ParseBlockShape parses "square", "hstrip" or "vstrip" (also "horizontal"/"vertical").
func ParseBlockShape(name string) (BlockShape, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return ShapeDefault, nil
	case "square":
		return Square, nil
	case "hstrip", "hline", "horizontal":
		return HorizontalStrip, nil
	case "vstrip", "vline", "vertical":
		return VerticalStrip, nil
	default:
		return ShapeDefault, fmt.Errorf("%w: %q", ErrUnknownBlockShape, name)
	}
}

// Tile is a window of a band, clipped at the raster edge.
type Tile struct {
	X, Y          int
	Width, Height int
}

// Len returns the number of elements in the tile.
func (t Tile) Len() int {
	return t.Width * t.Height
}

// Grid is the tile layout planned for one raster.
//
// XBlocks and YBlocks follow width/xStep+1, so when a dimension is an exact
// multiple of its step the last column or row has zero extent; Tiles and
// TileCount leave such tiles out.
type Grid struct {
	Width, Height int
	XStep, YStep  int
	XBlocks       int
	YBlocks       int
}

// stripRatio narrows the step across a strip to 3/5 of the maximum extent.
const (
	stripNum = 3
	stripDen = 5
)

// Plan computes the tile grid for a width x height raster.
func Plan(width, height, maxTileExtent int, shape BlockShape) Grid {
	xStep, yStep := maxTileExtent, maxTileExtent
	switch shape {
	case VerticalStrip:
		xStep = maxTileExtent * stripNum / stripDen
	case HorizontalStrip:
		yStep = maxTileExtent * stripNum / stripDen
	}
	xStep = max(xStep, 1)
	yStep = max(yStep, 1)

	return Grid{
		Width:   width,
		Height:  height,
		XStep:   xStep,
		YStep:   yStep,
		XBlocks: width/xStep + 1,
		YBlocks: height/yStep + 1,
	}
}

// Columns returns the width of every non-empty tile column, left to right.
func (g Grid) Columns() []int {
	return axisExtents(g.Width, g.XStep, g.XBlocks)
}

// Rows returns the height of every non-empty tile row, top to bottom.
func (g Grid) Rows() []int {
	return axisExtents(g.Height, g.YStep, g.YBlocks)
}

func axisExtents(dim, step, blocks int) []int {
	out := make([]int, 0, blocks)
	for i := 0; i < blocks; i++ {
		start := i * step
		if n := min(step, dim-start); n > 0 {
			out = append(out, n)
		}
	}

	return out
}

// TileCount returns the number of non-empty tiles.
func (g Grid) TileCount() int {
	return len(g.Columns()) * len(g.Rows())
}

// BufferLen returns the element count of a buffer able to hold any tile.
func (g Grid) BufferLen() int {
	return min(g.XStep, max(g.Width, 1)) * min(g.YStep, max(g.Height, 1))
}

// Tiles returns the non-empty tiles in raster-scan order: rows top to
// bottom, tiles left to right within a row.
func (g Grid) Tiles() []Tile {
	tiles := make([]Tile, 0, g.TileCount())
	for yb := 0; yb < g.YBlocks; yb++ {
		y := yb * g.YStep
		h := min(g.YStep, g.Height-y)
		if h <= 0 {
			continue
		}
		for xb := 0; xb < g.XBlocks; xb++ {
			x := xb * g.XStep
			w := min(g.XStep, g.Width-x)
			if w <= 0 {
				continue
			}
			tiles = append(tiles, Tile{X: x, Y: y, Width: w, Height: h})
		}
	}

	return tiles
}
