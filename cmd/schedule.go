package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dischargectl/core/schedule"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Schedule file commands",
}

var scheduleValidateCmd = &cobra.Command{
	Use:   "validate <schedule.csv>",
	Short: "Validate a schedule file and print its steps",
	Args:  cobra.ExactArgs(1),
	RunE:  runScheduleValidate,
}

func init() {
	scheduleCmd.AddCommand(scheduleValidateCmd)
	rootCmd.AddCommand(scheduleCmd)
}

func runScheduleValidate(cmd *cobra.Command, args []string) error {
	sched, err := schedule.Load(args[0])
	if err != nil {
		return err
	}
	for i, e := range sched {
		fmt.Fprintf(cmd.OutOrStdout(), "%2d  t=%-8s %s %8.3f for %s\n",
			i, e.Start, e.Mode, e.Setpoint, e.Duration)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d entries, total %s\n", len(sched), sched.TotalDuration())
	return nil
}
