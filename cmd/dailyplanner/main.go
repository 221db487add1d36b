package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deadline-planner/internal/bot"
	"deadline-planner/internal/config"
	"deadline-planner/internal/logging"
	"deadline-planner/internal/repository"
	"deadline-planner/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	if cfg.TelegramToken == "" {
		log.Fatal().Msg("TELEGRAM_TOKEN is required")
	}

	db, err := repository.NewDB(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("db")
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	eventRepo := repository.NewEventRepository(db)

	taskSvc := service.NewTaskService(taskRepo, cfg.Location, log)
	eventSvc := service.NewEventService(eventRepo, log)
	planningSvc := service.NewPlanningService(taskRepo, userRepo, eventSvc, cfg.Planner, cfg.Location, log)
	reminderSvc := service.NewReminderService(taskRepo, cfg.Location)

	telegramBot, err := bot.New(cfg.TelegramToken, bot.Services{
		Users:     userRepo,
		Tasks:     taskSvc,
		Events:    eventSvc,
		Planning:  planningSvc,
		Reminders: reminderSvc,
	}, &cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("bot")
	}

	scheduler := service.NewSchedulerService(cfg.Location, log)
	replanID, err := scheduler.ScheduleDaily(cfg.ReplanAt, func() {
		jobCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		plans, err := planningSvc.ReplanAll(jobCtx, time.Now())
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("nightly replan")
			return
		}
		log.Info().Int("users", len(plans)).Msg("nightly replan done")
	})
	if err != nil {
		log.Fatal().Err(err).Str("replan_at", cfg.ReplanAt).Msg("schedule replan")
	}
	if cfg.ReportInterval > 0 {
		if _, err := scheduler.ScheduleInterval(cfg.ReportInterval, func() {
			jobCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			if err := telegramBot.SendDailyReports(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("report")
			}
		}); err != nil {
			log.Fatal().Err(err).Msg("schedule reports")
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	log.Info().
		Time("next_replan", scheduler.Next(replanID)).
		Dur("report_interval", cfg.ReportInterval).
		Msg("deadline planner bot started")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("bot stopped with error")
	}
	log.Info().Msg("shutdown complete")
}
