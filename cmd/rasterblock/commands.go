package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/woozymasta/rasterblock"
	"github.com/woozymasta/rasterblock/bandmath"
	"github.com/woozymasta/rasterblock/history"
)

var errUsage = errors.New("invalid arguments")

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info PATH",
		Short: "Print size, bands, data type and driver of a raster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, drv, err := rasterblock.Default().Open(args[0], rasterblock.ReadOnly)
			if err != nil {
				return err
			}
			defer func() { _ = ds.Close() }()

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "driver: %s\n", drv.Name())
			fmt.Fprintf(w, "size:   %dx%d\n", ds.Width(), ds.Height())
			fmt.Fprintf(w, "bands:  %d\n", ds.BandCount())
			fmt.Fprintf(w, "type:   %s\n", ds.DataType())

			return nil
		},
	}
}

func newPlanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "plan PATH",
		Short: "Print the tile grid a run would use",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, _, err := rasterblock.Default().Open(args[0], rasterblock.ReadOnly)
			if err != nil {
				return err
			}
			width, height := ds.Width(), ds.Height()
			if err := ds.Close(); err != nil {
				return err
			}

			maxTile := a.settings.maxTile
			if maxTile == 0 {
				maxTile = rasterblock.DefaultMaxTileExtent
			}
			shape := a.settings.shape
			if shape == rasterblock.ShapeDefault {
				shape = rasterblock.Square
			}
			g := rasterblock.Plan(width, height, maxTile, shape)

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "raster: %dx%d\n", g.Width, g.Height)
			fmt.Fprintf(w, "shape:  %s\n", shape)
			fmt.Fprintf(w, "step:   %dx%d\n", g.XStep, g.YStep)
			fmt.Fprintf(w, "tiles:  %d (%d columns, %d rows)\n", g.TileCount(), len(g.Columns()), len(g.Rows()))
			fmt.Fprintf(w, "widths: %s\n", joinInts(g.Columns()))
			fmt.Fprintf(w, "heights: %s\n", joinInts(g.Rows()))

			return nil
		},
	}
}

func newApplyCmd(a *app) *cobra.Command {
	var (
		op      string
		value   float64
		inPlace bool
	)

	cmd := &cobra.Command{
		Use:   "apply INPUT [OUTPUT]",
		Short: "Scale or offset every band",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			if !inPlace && len(args) != 2 {
				return fmt.Errorf("%w: OUTPUT is required unless --in-place is set", errUsage)
			}
			switch op {
			case "scale", "offset":
			default:
				return fmt.Errorf("%w: unknown op %q", errUsage, op)
			}

			opts, done, err := a.options()
			if err != nil {
				return err
			}
			defer done()

			dtype, err := inputType(args[0])
			if err != nil {
				return err
			}

			job := applyJob{input: args[0], op: op, value: value, inPlace: inPlace, opts: opts}
			if len(args) == 2 {
				job.output = args[1]
			}

			return runApply(dtype, job)
		},
	}

	cmd.Flags().StringVar(&op, "op", "scale", "operation: scale or offset")
	cmd.Flags().Float64Var(&value, "value", 1, "factor for scale, delta for offset")
	cmd.Flags().BoolVar(&inPlace, "in-place", false, "write results back to INPUT")

	return cmd
}

func newReduceCmd(a *app) *cobra.Command {
	var (
		op    string
		bands string
	)

	cmd := &cobra.Command{
		Use:   "reduce INPUT OUTPUT",
		Short: "Fold all bands into a single-band raster",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			var fn rasterblock.ReduceFunc[float64, float64]
			switch op {
			case "mean":
				fn = bandmath.Mean[float64, float64]()
			case "ndvi":
				nir, red, err := parseBandPair(bands)
				if err != nil {
					return err
				}
				fn = bandmath.NormalizedDifference[float64, float64](nir, red)
			default:
				return fmt.Errorf("%w: unknown op %q", errUsage, op)
			}

			opts, done, err := a.options()
			if err != nil {
				return err
			}
			defer done()

			if opts.OutputType == rasterblock.Unknown {
				if op == "ndvi" {
					opts.OutputType = rasterblock.Float32
				} else if opts.OutputType, err = inputType(args[0]); err != nil {
					return err
				}
			}

			p := rasterblock.New[float64, float64](args[0], args[1], opts)
			defer func() { _ = p.Close() }()

			return p.RunReduction(fn, rasterblock.ShapeDefault)
		},
	}

	cmd.Flags().StringVar(&op, "op", "mean", "operation: mean or ndvi")
	cmd.Flags().StringVar(&bands, "bands", "2,1", "NIR and red band for ndvi, 1-based")

	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.settings.history == "" {
				return fmt.Errorf("%w: --history is required", errUsage)
			}

			store, err := history.Open(a.settings.history)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			recs, err := store.List(limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tRUN\tMODE\tSTATUS\tBLOCKS\tSTARTED\tINPUT\tOUTPUT\tERROR")
			for _, r := range recs {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
					r.ID, r.RunID, r.Mode, r.Status, r.Blocks,
					r.StartedAt.Local().Format(time.DateTime), r.SourcePath, r.OutputPath, r.Error)
			}

			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to list, 0 for all")

	return cmd
}

// inputType opens path to read its stored data type.
func inputType(path string) (rasterblock.DataType, error) {
	ds, _, err := rasterblock.Default().Open(path, rasterblock.ReadOnly)
	if err != nil {
		return rasterblock.Unknown, err
	}
	dt := ds.DataType()

	return dt, ds.Close()
}

func parseBandPair(s string) (int, int, error) {
	first, second, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("%w: --bands %q is not a,b", errUsage, s)
	}
	a, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: --bands %q: %v", errUsage, s, err)
	}
	b, err := strconv.Atoi(strings.TrimSpace(second))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: --bands %q: %v", errUsage, s, err)
	}

	return a, b, nil
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}

	return strings.Join(parts, " ")
}
