package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"deadline-planner/internal/config"
	"deadline-planner/internal/model"
	"deadline-planner/internal/planner"
	"deadline-planner/internal/repository"
)

// Plan is the outcome of one planning run for a user.
type Plan struct {
	Horizon planner.Horizon
	Result  *planner.ScheduleResult
	// Skipped lists stored tasks that could not be turned into planner tasks.
	Skipped []uint
}

// PlanningService runs the scheduler over a user's stored tasks and writes
// the placements back.
type PlanningService struct {
	taskRepo *repository.TaskRepository
	userRepo *repository.UserRepository
	events   *EventService
	cfg      config.PlannerConfig
	loc      *time.Location
	log      zerolog.Logger

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func NewPlanningService(taskRepo *repository.TaskRepository, userRepo *repository.UserRepository, events *EventService, cfg config.PlannerConfig, loc *time.Location, log zerolog.Logger) *PlanningService {
	if loc == nil {
		loc = time.Local
	}
	return &PlanningService{
		taskRepo: taskRepo,
		userRepo: userRepo,
		events:   events,
		cfg:      cfg,
		loc:      loc,
		log:      log,
		locks:    make(map[uint]*sync.Mutex),
	}
}

// userLock serializes planning runs per user. The scheduler itself has no
// synchronization and expects a stable snapshot for the whole run.
func (s *PlanningService) userLock(userID uint) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// Replan discards the user's previous placements and schedules every open
// task again over [now, now+horizon). All task rows are committed together.
func (s *PlanningService) Replan(ctx context.Context, user *model.User, now time.Time) (*Plan, error) {
	lock := s.userLock(user.ID)
	lock.Lock()
	defer lock.Unlock()

	log := s.log.With().Uint("user", user.ID).Logger()

	records, err := s.taskRepo.ListOpen(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	cal, err := s.events.Calendar(ctx, user)
	if err != nil {
		return nil, err
	}

	plan := &Plan{Horizon: s.cfg.Horizon(now.In(s.loc))}
	entities := make([]*planner.Task, 0, len(records))
	byID := make(map[uint]*model.Task, len(records))
	for i := range records {
		entity, err := toPlannerTask(records[i], s.loc)
		if err != nil {
			log.Warn().Uint("task", records[i].ID).Err(err).Msg("skip task")
			plan.Skipped = append(plan.Skipped, records[i].ID)
			continue
		}
		entities = append(entities, entity)
		byID[entity.ID] = &records[i]
	}

	scheduler, err := planner.NewScheduler(cal, s.cfg.Window(),
		planner.WithMaxDaySteps(s.cfg.MaxDaySteps),
		planner.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	result, err := scheduler.GenerateSchedule(entities, plan.Horizon)
	if err != nil {
		return nil, fmt.Errorf("generate schedule: %w", err)
	}
	plan.Result = result

	updated := make([]model.Task, 0, len(entities))
	for _, entity := range entities {
		rec := byID[entity.ID]
		applyPlannerTask(rec, entity)
		updated = append(updated, *rec)
	}
	if err := s.taskRepo.SaveAll(ctx, updated); err != nil {
		return nil, err
	}
	if err := s.userRepo.TouchPlan(ctx, user.ID, now); err != nil {
		log.Warn().Err(err).Msg("record plan time")
	}
	return plan, nil
}

// ReplanAll plans every known user. A failure for one user is logged and
// does not stop the others.
func (s *PlanningService) ReplanAll(ctx context.Context, now time.Time) (map[uint]*Plan, error) {
	users, err := s.userRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	plans := make(map[uint]*Plan, len(users))
	for i := range users {
		select {
		case <-ctx.Done():
			return plans, ctx.Err()
		default:
		}
		plan, err := s.Replan(ctx, &users[i], now)
		if err != nil {
			s.log.Error().Uint("user", users[i].ID).Err(err).Msg("replan failed")
			continue
		}
		plans[users[i].ID] = plan
	}
	return plans, nil
}
