// Package gdal exposes GDAL raster formats as rasterblock drivers through
// godal. It needs cgo and libgdal and is only built with the gdal tag:
//
//	go build -tags gdal ./...
//
// Call RegisterAll once at startup to make GTiff, HFA and VRT available as
// output formats and to open files they recognise.
package gdal
