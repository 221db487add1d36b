package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"deadline-planner/internal/model"
	"deadline-planner/internal/planner"
	"deadline-planner/internal/repository"
)

// EventInput represents data required to register a fixed event.
type EventInput struct {
	Name     string
	Category string
	Weekdays []time.Weekday
	Start    planner.TimeOfDay
	End      planner.TimeOfDay
}

// EventService manages classes, shifts and other fixed commitments.
type EventService struct {
	repo *repository.EventRepository
	log  zerolog.Logger
}

func NewEventService(repo *repository.EventRepository, log zerolog.Logger) *EventService {
	return &EventService{repo: repo, log: log}
}

func (s *EventService) AddEvent(ctx context.Context, user *model.User, input EventInput) (*model.FixedEvent, error) {
	event, err := planner.NewFixedEvent(strings.TrimSpace(input.Name), strings.TrimSpace(input.Category), input.Weekdays, input.Start, input.End)
	if err != nil {
		return nil, err
	}
	rec := model.FixedEvent{
		UserID:    user.ID,
		Name:      event.Name,
		Category:  event.Category,
		Weekdays:  FormatWeekdayList(event.Weekdays),
		StartTime: event.Start.String(),
		EndTime:   event.End.String(),
	}
	if err := s.repo.Create(ctx, &rec); err != nil {
		return nil, err
	}
	s.log.Info().Uint("user", user.ID).Uint("event", rec.ID).Str("days", rec.Weekdays).Msg("fixed event added")
	return &rec, nil
}

func (s *EventService) List(ctx context.Context, user *model.User) ([]model.FixedEvent, error) {
	return s.repo.ListByUser(ctx, user.ID)
}

func (s *EventService) GetEvent(ctx context.Context, user *model.User, eventID uint) (*model.FixedEvent, error) {
	return s.repo.GetByID(ctx, user.ID, eventID)
}

func (s *EventService) DeleteEvent(ctx context.Context, user *model.User, eventID uint) error {
	return s.repo.Delete(ctx, user.ID, eventID)
}

// Calendar loads the user's events into a planner calendar. Broken records
// are skipped with a warning so one bad row does not block planning.
func (s *EventService) Calendar(ctx context.Context, user *model.User) (*planner.FixedCalendar, error) {
	records, err := s.repo.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	cal := planner.NewFixedCalendar()
	for _, rec := range records {
		event, err := toPlannerEvent(rec)
		if err != nil {
			s.log.Warn().Uint("user", user.ID).Uint("event", rec.ID).Err(err).Msg("skip fixed event")
			continue
		}
		cal.Add(event)
	}
	return cal, nil
}
