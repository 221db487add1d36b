package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"deadline-planner/internal/model"
	"deadline-planner/internal/planner"
	"deadline-planner/internal/repository"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title       string
	Description string
	Category    string
	Deadline    time.Time
	Duration    time.Duration
	Priority    planner.Priority
}

// TaskService wraps task-related business logic.
type TaskService struct {
	taskRepo *repository.TaskRepository
	loc      *time.Location
	log      zerolog.Logger
}

func NewTaskService(taskRepo *repository.TaskRepository, loc *time.Location, log zerolog.Logger) *TaskService {
	if loc == nil {
		loc = time.Local
	}
	return &TaskService{taskRepo: taskRepo, loc: loc, log: log}
}

func (s *TaskService) CreateTask(ctx context.Context, user *model.User, input TaskInput) (*model.Task, error) {
	title := strings.TrimSpace(input.Title)
	if input.Priority == 0 {
		input.Priority = planner.PriorityMedium
	}
	// Validate through the planner entity so stored tasks are always schedulable.
	entity, err := planner.NewTask(0, title, input.Deadline, input.Duration, input.Priority, input.Category)
	if err != nil {
		return nil, err
	}

	task := model.Task{
		UserID:          user.ID,
		Title:           entity.Name,
		Description:     strings.TrimSpace(input.Description),
		Category:        strings.TrimSpace(input.Category),
		Deadline:        entity.Deadline,
		DurationMinutes: int(entity.Duration / time.Minute),
		Priority:        entity.Priority.String(),
		Status:          string(entity.Status),
	}
	if task.DurationMinutes <= 0 {
		return nil, fmt.Errorf("%w: less than a minute", planner.ErrInvalidDuration)
	}

	if err := s.taskRepo.Create(ctx, &task); err != nil {
		return nil, err
	}
	s.log.Info().Uint("user", user.ID).Uint("task", task.ID).Str("priority", task.Priority).Msg("task created")
	return &task, nil
}

func (s *TaskService) ListActive(ctx context.Context, user *model.User) ([]model.Task, error) {
	return s.taskRepo.ListOpen(ctx, user.ID)
}

// ListCompleted returns finished tasks, used for the "done" view.
func (s *TaskService) ListCompleted(ctx context.Context, user *model.User) ([]model.Task, error) {
	return s.taskRepo.ListByStatus(ctx, user.ID, planner.StatusCompleted)
}

func (s *TaskService) GetTask(ctx context.Context, user *model.User, taskID uint) (*model.Task, error) {
	return s.taskRepo.FindByID(ctx, user.ID, taskID)
}

// CompleteTask marks a task as done. Completing a finished task is a no-op.
func (s *TaskService) CompleteTask(ctx context.Context, user *model.User, taskID uint, completedAt time.Time) (*model.Task, error) {
	return s.terminate(ctx, user, taskID, func(t *planner.Task) bool { return t.MarkComplete() }, &completedAt)
}

// CancelTask drops a task from planning for good.
func (s *TaskService) CancelTask(ctx context.Context, user *model.User, taskID uint) (*model.Task, error) {
	return s.terminate(ctx, user, taskID, func(t *planner.Task) bool { return t.MarkCancelled() }, nil)
}

func (s *TaskService) terminate(ctx context.Context, user *model.User, taskID uint, mark func(*planner.Task) bool, completedAt *time.Time) (*model.Task, error) {
	rec, entity, err := s.load(ctx, user, taskID)
	if err != nil {
		return nil, err
	}
	if !mark(entity) {
		s.log.Warn().Uint("task", rec.ID).Str("status", rec.Status).Msg("task already closed")
		return rec, nil
	}
	applyPlannerTask(rec, entity)
	rec.CompletedAt = completedAt
	if err := s.taskRepo.Save(ctx, rec); err != nil {
		return nil, err
	}
	s.log.Info().Uint("user", user.ID).Uint("task", rec.ID).Str("status", rec.Status).Msg("task closed")
	return rec, nil
}

// ExtendTask changes the duration by extra minutes. A placed task keeps its
// start and gets a later end; the plan must be rebuilt to resolve overlaps.
func (s *TaskService) ExtendTask(ctx context.Context, user *model.User, taskID uint, extra time.Duration) (*model.Task, error) {
	rec, entity, err := s.load(ctx, user, taskID)
	if err != nil {
		return nil, err
	}
	if entity.Status.Terminal() {
		return nil, fmt.Errorf("task %d is %s", rec.ID, entity.Status)
	}
	if err := entity.ExtendDuration(extra); err != nil {
		return nil, err
	}
	applyPlannerTask(rec, entity)
	if err := s.taskRepo.Save(ctx, rec); err != nil {
		return nil, err
	}
	s.log.Info().Uint("task", rec.ID).Dur("extra", extra).Int("minutes", rec.DurationMinutes).Msg("task extended")
	return rec, nil
}

// DeleteTask removes a task completely.
func (s *TaskService) DeleteTask(ctx context.Context, user *model.User, taskID uint) error {
	return s.taskRepo.Delete(ctx, user.ID, taskID)
}

func (s *TaskService) load(ctx context.Context, user *model.User, taskID uint) (*model.Task, *planner.Task, error) {
	rec, err := s.taskRepo.FindByID(ctx, user.ID, taskID)
	if err != nil {
		return nil, nil, err
	}
	entity, err := toPlannerTask(*rec, s.loc)
	if err != nil {
		return nil, nil, err
	}
	return rec, entity, nil
}
