package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/browser"
	"github.com/sparkette/dmabus/config"
	"github.com/sparkette/dmabus/simulation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a rack layout for a number of frames.",
	Long: "`run --layout rack.yaml --frames N` places the modules of the " +
		"layout and processes N frames. With --frames 0 or --duration 0 it " +
		"runs until interrupted.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		layout, err := loadLayout(cmd)
		if err != nil {
			return err
		}

		frames, _ := cmd.Flags().GetUint64("frames")
		if d, _ := cmd.Flags().GetDuration("duration"); d > 0 {
			frames = layout.Freq().Frames(d)
		}

		if monitor, _ := cmd.Flags().GetBool("monitor"); monitor {
			layout.Monitor.Enabled = true
		}

		open, _ := cmd.Flags().GetBool("open")

		return runLayout(cmd, layout, frames, open)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a running rack layout over HTTP until interrupted.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		layout, err := loadLayout(cmd)
		if err != nil {
			return err
		}

		layout.Monitor.Enabled = true
		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			layout.Monitor.Port = port
		}

		open, _ := cmd.Flags().GetBool("open")

		return runLayout(cmd, layout, 0, open)
	},
}

func init() {
	for _, c := range []*cobra.Command{runCmd, serveCmd, inspectCmd} {
		c.Flags().StringP("layout", "l", "", "The rack layout file.")
		_ = c.MarkFlagRequired("layout")
	}

	for _, c := range []*cobra.Command{runCmd, serveCmd} {
		c.Flags().Bool("open", false, "Open the monitor in a browser.")
	}

	runCmd.Flags().Uint64P("frames", "n", 0, "Number of frames to process.")
	runCmd.Flags().Duration("duration", 0,
		"Length of audio to process, overriding --frames.")
	runCmd.Flags().Bool("monitor", false, "Serve the rack while it runs.")
	serveCmd.Flags().IntP("port", "p", 0, "Port of the monitor.")

	rootCmd.AddCommand(runCmd, serveCmd)
}

func loadLayout(cmd *cobra.Command) (*config.Layout, error) {
	path, _ := cmd.Flags().GetString("layout")

	return config.Load(path)
}

func buildSimulation(layout *config.Layout) *simulation.Simulation {
	b := simulation.MakeBuilder().
		WithName(layout.Name).
		WithSampleRate(layout.Freq()).
		WithOutputFileName(layout.Trace.File).
		WithLogger(logger)

	if layout.Trace.Writes {
		b = b.WithWriteTracing()
		if layout.Trace.EndFrame > 0 {
			b = b.WithTraceFrameRange(layout.Trace.StartFrame,
				layout.Trace.EndFrame)
		}
	}

	if layout.Monitor.Enabled {
		b = b.WithMonitorPort(layout.Monitor.Port)
	} else {
		b = b.WithoutMonitoring()
	}

	return b.Build()
}

func runLayout(
	cmd *cobra.Command,
	layout *config.Layout,
	frames uint64,
	open bool,
) (err error) {
	s := buildSimulation(layout)
	defer func() {
		if termErr := s.Terminate(); err == nil {
			err = termErr
		}
	}()

	if err := layout.Populate(s.Rack(), s.Factory()); err != nil {
		return err
	}

	if layout.Monitor.Enabled {
		port, err := s.StartMonitor()
		if err != nil {
			return err
		}

		if open {
			url := fmt.Sprintf("http://localhost:%d", port)
			if err := browser.OpenURL(url); err != nil {
				logger.Warn("cannot open browser", zap.Error(err))
			}
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	start := time.Now()
	err = s.Run(ctx, frames)

	processed := s.Rack().Frame()
	fmt.Fprintf(cmd.OutOrStdout(),
		"Processed %d frames (%s of audio) in %s, trace in %s\n",
		processed,
		layout.Freq().Duration(processed),
		time.Since(start).Round(time.Millisecond),
		s.OutputFile())

	if frames == 0 && errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}
