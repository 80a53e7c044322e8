/*
Package rasterblock streams transformations over rasters too large to hold
in memory.

A Processor partitions every band into tiles of at most MaxTileExtent
elements per axis, reads one tile at a time, hands it to a callback and
writes the result back before moving on, so memory stays bounded by a few
tile buffers whatever the raster size.

Two callback shapes are supported:

  - TransformFunc, run by Processor.Run, maps each input band to the output
    band of the same index, optionally in place;
  - ReduceFunc, run by Processor.RunReduction, folds the tiles of all input
    bands into a single output band.

Storage is reached through the Driver and Dataset interfaces. Drivers
register themselves in a Registry; the subpackages mem, tiled, edds and
(with the gdal build tag) gdal provide implementations.

	p := rasterblock.New[float32, float32]("in.rbt", "out.rbt", nil)
	defer p.Close()
	err := p.Run(bandmath.Scale[float32](0.5), rasterblock.Square, false)

Tiles are processed sequentially in raster-scan order. The first failure
stops a run; tile buffers are released and a partially written output is
closed and removed.
*/
package rasterblock
