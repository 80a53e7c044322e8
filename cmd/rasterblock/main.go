// Command rasterblock inspects rasters and runs tiled band math over them.
//
// Usage:
//
//	rasterblock info input.rbt
//	rasterblock plan --max-tile 512 --shape hstrip input.rbt
//	rasterblock apply --op scale --value 0.5 input.rbt output.rbt
//	rasterblock apply --op offset --value -10 --in-place input.rbt
//	rasterblock reduce --op ndvi --bands 4,3 --type Float32 input.rbt ndvi.rbt
//	rasterblock history --history runs.db --limit 20
//
// Settings can be kept in a YAML file passed with --config; flags override it.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
