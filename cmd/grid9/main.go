package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/1F47E/grid9/internal/config"
	"github.com/1F47E/grid9/internal/logging"
)

var version = "dev"

// app holds state shared by all subcommands, filled in by setup
type app struct {
	cfgFile string
	output  string
	verbose bool

	cfg *config.Config
	ctx context.Context
	out *printer
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "grid9",
		Short: "Encode coordinates into 9-character grid9 codes",
		Long: `grid9 packs a latitude/longitude pair into a 9-character base-32 code
with about 3 meter precision, and offers distance, neighbor, nearby and
batch utilities on top of the codec.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Config file (default ./grid9.yaml or $HOME/.grid9/grid9.yaml)")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", outputText, "Output format: text, json or yaml")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Verbose logging")

	root.AddCommand(
		a.encodeCmd(),
		a.decodeCmd(),
		a.distanceCmd(),
		a.precisionCmd(),
		a.validateCmd(),
		a.formatCmd(),
		a.neighborsCmd(),
		a.geohashCmd(),
		a.nearbyCmd(),
		a.bboxCmd(),
		a.centerCmd(),
		a.groupCmd(),
		a.indexCmd(),
		a.serveCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.Log.Level
	if a.verbose {
		level = "debug"
	}
	a.ctx, _ = logging.NewLogger(cmd.Context(), "grid9", version, level, cfg.Log.Pretty)

	a.out, err = newPrinter(cmd.OutOrStdout(), a.output)
	return err
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
