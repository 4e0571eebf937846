package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dischargectl/infra/csvlog"
	"github.com/kilianp07/dischargectl/pkg/report"
)

var reportFormat string

var reportCmd = &cobra.Command{
	Use:   "report <log.csv>",
	Short: "Summarize a discharge log",
	Long: `Report reads a telemetry log written by the run command and prints
duration, voltage statistics and the delivered charge and energy.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportFormat, "format", "json", "output format: json or csv")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	samples, err := csvlog.Read(args[0])
	if err != nil {
		return err
	}
	s, err := report.Summarize(samples)
	if err != nil {
		return err
	}
	switch reportFormat {
	case "json":
		return report.WriteJSON(cmd.OutOrStdout(), s)
	case "csv":
		return report.WriteCSV(cmd.OutOrStdout(), s)
	default:
		return fmt.Errorf("unsupported format: %s", reportFormat)
	}
}
