// Package cli implements the movora command line.
package cli

import (
	"io"

	"github.com/spf13/cobra"

	"movora/internal/config"
	"movora/internal/logger"
)

const version = "0.1.0"

// app holds state shared by subcommands after the root pre-run.
type app struct {
	configPath string
	cfg        *config.Config
	logCloser  io.Closer
}

// Execute runs the root command with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:     "movora",
		Short:   "Vehicle listing pipeline and price filter",
		Version: version,
		Long: `Movora loads car listing CSV exports, normalizes and merges them into a
master table, builds a model-ready feature table, and persists every stage to
CSV files and a relational store. Listings can then be filtered by price in
Lakhs from the terminal or over HTTP.`,
		Example: `  # Write a default configuration file
  $ movora config init

  # Run the batch pipeline
  $ movora run --config movora.yaml

  # Vehicles between 5 and 10 Lakh
  $ movora filter --min 5 --max 10

  # Profile two exports before merging them
  $ movora profile Data/raw/All_cars_dataset.csv Data/raw/Indian_Cars_Data.csv

  # Serve the JSON API
  $ movora serve --addr :8080`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			closer, err := logger.Setup(cfg.Log)
			if err != nil {
				return err
			}
			a.cfg, a.logCloser = cfg, closer
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.logCloser != nil {
				return a.logCloser.Close()
			}
			return nil
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default ./movora.yaml or ./configs/movora.yaml)")

	root.AddCommand(
		newRunCmd(a),
		newFilterCmd(a),
		newServeCmd(a),
		newProfileCmd(a),
		newConfigCmd(),
	)
	return root
}
