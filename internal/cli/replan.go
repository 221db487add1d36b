package cli

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"deadline-planner/internal/config"
	"deadline-planner/internal/repository"
	"deadline-planner/internal/service"
)

func newReplanCmd() *cobra.Command {
	var (
		dbPath     string
		telegramID int64
	)
	cmd := &cobra.Command{
		Use:   "replan",
		Short: "Rebuild every user's plan in the bot database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if dbPath != "" {
				cfg.DatabaseURL = dbPath
			}

			db, err := repository.NewDB(cfg.DatabaseURL, logger)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			taskRepo := repository.NewTaskRepository(db)
			userRepo := repository.NewUserRepository(db)
			events := service.NewEventService(repository.NewEventRepository(db), logger)
			planning := service.NewPlanningService(taskRepo, userRepo, events, cfg.Planner, cfg.Location, logger)

			var plans map[uint]*service.Plan
			if telegramID != 0 {
				user, err := userRepo.FindByTelegramID(cmd.Context(), telegramID)
				if err != nil {
					return fmt.Errorf("find user %d: %w", telegramID, err)
				}
				plan, err := planning.Replan(cmd.Context(), user, time.Now())
				if err != nil {
					return fmt.Errorf("replan: %w", err)
				}
				plans = map[uint]*service.Plan{user.ID: plan}
			} else {
				plans, err = planning.ReplanAll(cmd.Context(), time.Now())
				if err != nil {
					return fmt.Errorf("replan: %w", err)
				}
			}

			ids := make([]uint, 0, len(plans))
			for id := range plans {
				ids = append(ids, id)
			}
			slices.Sort(ids)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-6s  %-10s  %-12s  %s\n", "USER", "SCHEDULED", "UNSCHEDULED", "SKIPPED")
			fmt.Fprintf(out, "%-6s  %-10s  %-12s  %s\n", "----", "---------", "-----------", "-------")
			for _, id := range ids {
				plan := plans[id]
				fmt.Fprintf(out, "%-6d  %-10d  %-12d  %d\n", id, len(plan.Result.Scheduled), len(plan.Result.Unscheduled), len(plan.Skipped))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default DATABASE_URL or daily_planner.db)")
	cmd.Flags().Int64Var(&telegramID, "user", 0, "Only replan the user with this Telegram ID")
	return cmd
}
