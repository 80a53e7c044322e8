//go:build gdal

package main

import (
	"fmt"
	"os"

	"github.com/woozymasta/rasterblock/gdal"
)

func init() {
	if err := gdal.RegisterAll(); err != nil {
		fmt.Fprintf(os.Stderr, "rasterblock: GDAL drivers unavailable: %v\n", err)
	}
}
