package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dischargectl/app"
	"github.com/kilianp07/dischargectl/core/run"
	"github.com/kilianp07/dischargectl/core/schedule"
	"github.com/kilianp07/dischargectl/infra/logger"
)

var (
	runLogPath    string
	runInterval   float64
	runMinVoltage float64
	runSimulate   bool
)

var runCmd = &cobra.Command{
	Use:   "run <port> <schedule.csv>",
	Short: "Execute a discharge schedule against the load",
	Long: `Run applies each schedule entry to the electronic load at its start
offset, samples voltage, current and power at a fixed interval and appends
every sample to a CSV log. The load is disabled when a sampled voltage falls
at or below the configured cutoff, on any device error and on Ctrl+C.`,
	Args: cobra.ExactArgs(2),
	RunE: runDischarge,
}

func init() {
	runCmd.Flags().StringVar(&runLogPath, "log", "", "output CSV file for telemetry samples")
	runCmd.Flags().Float64Var(&runInterval, "interval", 0, "sampling interval in seconds")
	runCmd.Flags().Float64Var(&runMinVoltage, "min-voltage", 0, "low-voltage cutoff in volts")
	runCmd.Flags().BoolVar(&runSimulate, "simulate", false, "run against the built-in simulated load")
	rootCmd.AddCommand(runCmd)
}

func runDischarge(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Device.Port = args[0]
	if cmd.Flags().Changed("log") {
		cfg.Run.LogPath = runLogPath
	}
	if cmd.Flags().Changed("interval") {
		cfg.Run.SampleIntervalSeconds = runInterval
	}
	if cmd.Flags().Changed("min-voltage") {
		cfg.Run.MinVoltage = runMinVoltage
	}
	if err := cfg.Run.Validate(); err != nil {
		return err
	}

	sched, err := schedule.Load(args[1])
	if err != nil {
		return err
	}

	svc, err := app.New(cfg, sched, app.Options{Simulate: runSimulate})
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()

	res := svc.Run(ctx)
	switch res.Status {
	case run.StatusCompleted:
		fmt.Fprintf(cmd.OutOrStdout(), "run completed: %d samples logged to %s\n", res.Samples, cfg.Run.LogPath)
		return nil
	case run.StatusCutoff:
		return fmt.Errorf("run %s: load disabled after %d samples", res.Status, res.Samples)
	case run.StatusAborted:
		return fmt.Errorf("run %s: interrupted by operator", res.Status)
	default:
		return fmt.Errorf("run %s: %w", res.Status, res.Err)
	}
}
