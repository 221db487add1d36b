package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"deadline-planner/internal/planner"
)

func newSimulateCmd() *cobra.Command {
	var (
		file    string
		useTree bool
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the scheduler on a YAML plan file",
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := LoadPlanFile(file)
			if err != nil {
				return err
			}
			opts := []planner.Option{
				planner.WithMaxDaySteps(sc.MaxDaySteps),
				planner.WithLogger(logger),
			}
			if useTree {
				opts = append(opts, planner.WithTreeOrdering())
			}
			scheduler, err := planner.NewScheduler(sc.Calendar, sc.Window, opts...)
			if err != nil {
				return err
			}
			result, err := scheduler.GenerateSchedule(sc.Tasks, sc.Horizon)
			if err != nil {
				return fmt.Errorf("generate schedule: %w", err)
			}
			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Plan file (YAML)")
	cmd.Flags().BoolVar(&useTree, "tree", false, "Order tasks with the ordering tree")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func printResult(w io.Writer, result *planner.ScheduleResult) {
	fmt.Fprintf(w, "%-4s  %-24s  %-8s  %-16s  %s\n", "ID", "NAME", "PRIORITY", "START", "END")
	fmt.Fprintf(w, "%-4s  %-24s  %-8s  %-16s  %s\n", "--", "----", "--------", "-----", "---")
	for _, task := range result.Scheduled {
		fmt.Fprintf(w, "%-4d  %-24s  %-8s  %-16s  %s\n",
			task.ID, task.Name, task.Priority,
			task.Interval.Start.Format("2006-01-02 15:04"), task.Interval.End.Format("2006-01-02 15:04"))
	}
	if len(result.Unscheduled) == 0 {
		return
	}
	fmt.Fprintf(w, "\nUnscheduled:\n")
	for _, task := range result.Unscheduled {
		fmt.Fprintf(w, "%-4d  %-24s  %-8s  %s\n", task.ID, task.Name, task.Priority, result.Reason(task))
	}
}
