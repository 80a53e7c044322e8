package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/woozymasta/rasterblock"
	"github.com/woozymasta/rasterblock/history"

	_ "github.com/woozymasta/rasterblock/edds"
	_ "github.com/woozymasta/rasterblock/tiled"
)

// app carries the resolved settings into subcommands.
type app struct {
	configPath string
	flags      config
	settings   settings
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{flags: defaultConfig()}

	root := &cobra.Command{
		Use:           "rasterblock",
		Short:         "Tiled raster block processing",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.resolve(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&a.flags.Format, "format", a.flags.Format, "output driver ("+rasterblock.DefaultOutputFormat+", EDDS, ...)")
	pf.IntVar(&a.flags.MaxTile, "max-tile", a.flags.MaxTile, "maximum tile extent in pixels")
	pf.StringVar(&a.flags.Shape, "shape", a.flags.Shape, "tile shape: square, hstrip or vstrip")
	pf.StringVar(&a.flags.Type, "type", "", "output data type, e.g. Float32 (default: input type)")
	pf.StringArrayVar(&a.flags.CreateOptions, "co", nil, "creation option KEY=VALUE, repeatable")
	pf.StringVar(&a.flags.History, "history", "", "SQLite database recording runs")
	pf.StringVar(&a.flags.LogLevel, "log-level", a.flags.LogLevel, "debug, info, warn or error")

	root.AddCommand(
		newInfoCmd(),
		newPlanCmd(a),
		newApplyCmd(a),
		newReduceCmd(a),
		newHistoryCmd(a),
	)

	return root
}

// resolve merges the config file with the flags set on the command line.
func (a *app) resolve(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.configPath)
	if err != nil {
		return err
	}

	pf := cmd.Flags()
	if pf.Changed("format") {
		cfg.Format = a.flags.Format
	}
	if pf.Changed("max-tile") {
		cfg.MaxTile = a.flags.MaxTile
	}
	if pf.Changed("shape") {
		cfg.Shape = a.flags.Shape
	}
	if pf.Changed("type") {
		cfg.Type = a.flags.Type
	}
	if pf.Changed("co") {
		cfg.CreateOptions = a.flags.CreateOptions
	}
	if pf.Changed("history") {
		cfg.History = a.flags.History
	}
	if pf.Changed("log-level") {
		cfg.LogLevel = a.flags.LogLevel
	}

	if a.settings, err = cfg.settings(); err != nil {
		return err
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: a.settings.logLevel}))

	return nil
}

// options builds processor options. The returned function closes the
// history store, if one was opened.
func (a *app) options() (*rasterblock.Options, func(), error) {
	opts := &rasterblock.Options{
		MaxTileExtent: a.settings.maxTile,
		OutputFormat:  a.settings.format,
		BlockShape:    a.settings.shape,
		OutputType:    a.settings.outType,
		CreateOptions: a.settings.createOpt,
		Logger:        a.logger,
	}
	if a.settings.history == "" {
		return opts, func() {}, nil
	}

	store, err := history.Open(a.settings.history)
	if err != nil {
		return nil, nil, err
	}
	opts.Observer = history.NewObserver(store, a.logger)

	return opts, func() {
		if err := store.Close(); err != nil {
			a.logger.Warn("close history", slog.Any("error", err))
		}
	}, nil
}
