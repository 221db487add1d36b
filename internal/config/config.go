package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"

	"deadline-planner/internal/planner"
)

// Config keeps runtime settings for the bot and the CLI.
type Config struct {
	TelegramToken  string
	DatabaseURL    string
	ReportInterval time.Duration
	ReplanAt       string
	Location       *time.Location
	LogLevel       string
	LogFormat      string
	Planner        PlannerConfig
}

// PlannerConfig holds the scheduling settings. It can be overridden by the
// planner section of the YAML file named in PLANNER_CONFIG.
type PlannerConfig struct {
	WorkStartHour int `yaml:"work_start_hour"`
	WorkEndHour   int `yaml:"work_end_hour"`
	HorizonDays   int `yaml:"horizon_days"`
	MaxDaySteps   int `yaml:"max_day_steps"`
}

func (p PlannerConfig) Window() planner.WorkWindow {
	return planner.WorkWindow{StartHour: p.WorkStartHour, EndHour: p.WorkEndHour}
}

// Horizon returns the scheduling horizon starting at now.
func (p PlannerConfig) Horizon(now time.Time) planner.Horizon {
	y, m, d := now.Date()
	return planner.Horizon{
		Start: now,
		End:   time.Date(y, m, d+p.HorizonDays, 0, 0, 0, 0, now.Location()),
	}
}

type fileConfig struct {
	Planner *PlannerConfig `yaml:"planner"`
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		TelegramToken:  strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		ReportInterval: parseInterval(strings.TrimSpace(os.Getenv("REPORT_INTERVAL_HOURS"))),
		ReplanAt:       strings.TrimSpace(os.Getenv("REPLAN_AT")),
		LogLevel:       strings.TrimSpace(os.Getenv("LOG_LEVEL")),
		LogFormat:      strings.TrimSpace(os.Getenv("LOG_FORMAT")),
		Planner: PlannerConfig{
			WorkStartHour: parseInt(os.Getenv("WORK_START_HOUR"), 8),
			WorkEndHour:   parseInt(os.Getenv("WORK_END_HOUR"), 22),
			HorizonDays:   parseInt(os.Getenv("HORIZON_DAYS"), 14),
			MaxDaySteps:   parseInt(os.Getenv("MAX_DAY_STEPS"), planner.DefaultMaxDaySteps),
		},
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "daily_planner.db"
	}

	if cfg.ReportInterval == 0 {
		cfg.ReportInterval = 5 * time.Hour
	}

	if cfg.ReplanAt == "" {
		cfg.ReplanAt = "06:00"
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Location = time.Local
	if tz := strings.TrimSpace(os.Getenv("TIMEZONE")); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return cfg, fmt.Errorf("TIMEZONE: %w", err)
		}
		cfg.Location = loc
	}

	if path := strings.TrimSpace(os.Getenv("PLANNER_CONFIG")); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return cfg, err
		}
	}

	if err := cfg.Planner.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (p PlannerConfig) Validate() error {
	if err := p.Window().Validate(); err != nil {
		return err
	}
	if p.HorizonDays <= 0 {
		return fmt.Errorf("horizon_days must be positive, got %d", p.HorizonDays)
	}
	if p.MaxDaySteps <= 0 {
		return fmt.Errorf("max_day_steps must be positive, got %d", p.MaxDaySteps)
	}
	return nil
}

// applyFile overlays non-zero planner values from a YAML file.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read planner config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse planner config %s: %w", path, err)
	}
	if fc.Planner == nil {
		return nil
	}
	if fc.Planner.WorkStartHour != 0 || fc.Planner.WorkEndHour != 0 {
		c.Planner.WorkStartHour = fc.Planner.WorkStartHour
		c.Planner.WorkEndHour = fc.Planner.WorkEndHour
	}
	if fc.Planner.HorizonDays != 0 {
		c.Planner.HorizonDays = fc.Planner.HorizonDays
	}
	if fc.Planner.MaxDaySteps != 0 {
		c.Planner.MaxDaySteps = fc.Planner.MaxDaySteps
	}
	return nil
}

func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}

func parseInt(raw string, fallback int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
