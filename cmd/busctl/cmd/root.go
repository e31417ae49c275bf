// Package cmd provides the command-line interface of busctl.
package cmd

import (
	"os"

	"github.com/sparkette/dmabus/config"
	"github.com/sparkette/dmabus/datarecording"
	"github.com/sparkette/dmabus/monitoring"
	"github.com/sparkette/dmabus/rack"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var logger = zap.NewNop()

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "busctl",
	Short: "busctl runs racks of modules that share memory over their bus.",
	Long: `busctl loads a rack layout, places its modules from left to ` +
		`right, and processes frames. Traces of topology changes and ` +
		`channel writes are recorded to SQLite, and a monitor can serve ` +
		`the running rack over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		envFiles, _ := cmd.Flags().GetStringSlice("env")
		if err := config.LoadEnv(envFiles...); err != nil {
			return err
		}

		verbose, _ := cmd.Flags().GetBool("verbose")

		return setupLogger(verbose)
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false,
		"Log topology changes and channel writes.")
	rootCmd.PersistentFlags().StringSlice("env", nil,
		"Load environment variables from these files instead of .env.")
}

func setupLogger(verbose bool) error {
	var err error

	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		logger, err = cfg.Build()
	}

	if err != nil {
		return err
	}

	rack.SetLogger(logger.Named("rack"))
	datarecording.SetLogger(logger.Named("datarecording"))
	monitoring.SetLogger(logger.Named("monitoring"))

	return nil
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
