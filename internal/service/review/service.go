// Package review applies the spaced-repetition schedule: it records review
// outcomes, computes the next due date and keeps calendar reminders aligned
// with the ledger.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gmarini/reviewdesk/internal/domain"
	"github.com/gmarini/reviewdesk/internal/service/session"
	"github.com/gmarini/reviewdesk/internal/task"
)

type calendarClient interface {
	CreateEvent(ctx context.Context, subject, description string, day time.Time) (string, error)
	DeleteEvent(ctx context.Context, eventID string) error
	ListFutureEvents(ctx context.Context, subject string) ([]domain.CalendarEvent, error)
}

type ledger interface {
	Update(ctx context.Context, name string, fn func(st *session.State) error) error
	Records(ctx context.Context) ([]domain.TopicRecord, error)
	Record(ctx context.Context, topic string) (domain.TopicRecord, error)
	History(ctx context.Context) ([]domain.ReviewLogEntry, error)
}

// Service records reviews and manages reminder events.
type Service struct {
	cal           calendarClient
	ledger        ledger
	runner        *task.Runner
	log           *slog.Logger
	subjectPrefix string
	now           func() time.Time
}

func NewService(cal calendarClient, ledger ledger, runner *task.Runner, subjectPrefix string, log *slog.Logger) *Service {
	return &Service{
		cal:           cal,
		ledger:        ledger,
		runner:        runner,
		log:           log.With("service", "review"),
		subjectPrefix: subjectPrefix,
		now:           time.Now,
	}
}

// Result is the outcome of recording a review. Reschedule resolves to the new
// calendar event id once the background rescheduling finishes.
type Result struct {
	Record     domain.TopicRecord
	Entry      domain.ReviewLogEntry
	Reschedule *task.Task[string]
}

// MarkReviewed records a review of the topic with the given difficulty,
// advances the schedule and kicks off calendar rescheduling in the
// background.
func (s *Service) MarkReviewed(ctx context.Context, topic string, difficulty domain.Difficulty, comment string) (Result, error) {
	if !difficulty.IsValid() {
		return Result{}, domain.NewValidationError("difficulty", fmt.Sprintf("unknown difficulty %q", difficulty))
	}

	today := domain.DateOf(s.now())
	var res Result
	err := s.ledger.Update(ctx, "mark reviewed", func(st *session.State) error {
		rec, ok := st.Record(topic)
		if !ok {
			return fmt.Errorf("topic %q: %w", topic, domain.ErrNotFound)
		}

		next := NextReviewDate(difficulty, rec.LastReview, today)
		rec.LastReview = &today
		rec.NextReview = &next
		// The old reminder is stale from this moment; the reschedule task
		// records the replacement id when it finishes.
		rec.CalendarEventID = ""
		st.Upsert(rec)

		entry := domain.ReviewLogEntry{
			Topic:      topic,
			ReviewDate: today,
			Difficulty: difficulty,
			Comment:    comment,
		}
		st.AppendHistory(entry)

		res.Record = rec
		res.Entry = entry
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	s.log.Info("review recorded",
		slog.String("topic", topic),
		slog.String("difficulty", difficulty.String()),
		slog.String("next_review", domain.FormatDate(*res.Record.NextReview)),
	)
	res.Reschedule = s.scheduleReminder(ctx, topic, *res.Record.NextReview)
	return res, nil
}

// SetNextReview overrides the schedule manually and reschedules the reminder.
func (s *Service) SetNextReview(ctx context.Context, topic string, day time.Time) (Result, error) {
	day = domain.DateOf(day)
	var res Result
	err := s.ledger.Update(ctx, "set next review", func(st *session.State) error {
		rec, ok := st.Record(topic)
		if !ok {
			return fmt.Errorf("topic %q: %w", topic, domain.ErrNotFound)
		}
		rec.NextReview = &day
		rec.CalendarEventID = ""
		st.Upsert(rec)
		res.Record = rec
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	res.Reschedule = s.scheduleReminder(ctx, topic, day)
	return res, nil
}

// DueTopics returns the records whose review is overdue today.
func (s *Service) DueTopics(ctx context.Context) ([]domain.TopicRecord, error) {
	records, err := s.ledger.Records(ctx)
	if err != nil {
		return nil, err
	}

	today := s.now()
	due := records[:0:0]
	for _, rec := range records {
		if rec.Expired(today) {
			due = append(due, rec)
		}
	}
	return due, nil
}

// SyncSchedules re-evaluates every record's reminder against the calendar.
// Every future next review runs the full delete-then-create pass, even when
// an event id is already recorded: the stored id may point at an event that
// was deleted externally, and only recreating converges. Overdue or
// unscheduled records have their stale event id cleared instead (the event,
// if any, lies in the past and is never recreated automatically).
func (s *Service) SyncSchedules(ctx context.Context) ([]*task.Task[string], error) {
	records, err := s.ledger.Records(ctx)
	if err != nil {
		return nil, err
	}

	today := domain.DateOf(s.now())
	var tasks []*task.Task[string]
	var stale []string
	for _, rec := range records {
		switch {
		case rec.NextReview != nil && rec.NextReview.After(today):
			tasks = append(tasks, s.scheduleReminder(ctx, rec.Topic, *rec.NextReview))
		case rec.CalendarEventID != "":
			stale = append(stale, rec.Topic)
		}
	}

	if len(stale) > 0 {
		err = s.ledger.Update(ctx, "clear stale event ids", func(st *session.State) error {
			for _, topic := range stale {
				if rec, ok := st.Record(topic); ok {
					rec.CalendarEventID = ""
					st.Upsert(rec)
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

// History returns the review log, optionally filtered to one topic.
func (s *Service) History(ctx context.Context, topic string) ([]domain.ReviewLogEntry, error) {
	entries, err := s.ledger.History(ctx)
	if err != nil {
		return nil, err
	}
	if topic == "" {
		return entries, nil
	}

	filtered := entries[:0:0]
	for _, e := range entries {
		if e.Topic == topic {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// Subject returns the reminder event subject for a topic.
func (s *Service) Subject(topic string) string {
	return s.subjectPrefix + topic
}

func (s *Service) description(topic string) string {
	return fmt.Sprintf("Scheduled review for topic '%s'", topic)
}

// scheduleReminder replaces the topic's reminder in the background: every
// future event with the topic's subject is deleted, one new event is created
// on the due date, and the new id is written back to the ledger. Deleting
// first makes a retry after a partial failure converge instead of piling up
// duplicate reminders.
func (s *Service) scheduleReminder(ctx context.Context, topic string, day time.Time) *task.Task[string] {
	name := fmt.Sprintf("reschedule %q", topic)
	return task.Submit(s.runner, ctx, name, func(taskCtx context.Context) (string, error) {
		subject := s.Subject(topic)

		stale, err := s.cal.ListFutureEvents(taskCtx, subject)
		if err != nil {
			return "", fmt.Errorf("list reminders for %q: %w", topic, err)
		}
		for _, ev := range stale {
			if err := s.cal.DeleteEvent(taskCtx, ev.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
				s.log.Warn("could not delete stale reminder",
					slog.String("topic", topic),
					slog.String("event_id", ev.ID),
					slog.String("error", err.Error()),
				)
			}
		}

		eventID, err := s.cal.CreateEvent(taskCtx, subject, s.description(topic), day)
		if err != nil {
			return "", fmt.Errorf("create reminder for %q: %w", topic, err)
		}

		err = s.ledger.Update(taskCtx, "store event id", func(st *session.State) error {
			rec, ok := st.Record(topic)
			if !ok {
				// Topic removed while we were scheduling; the caller keeps
				// the event id and may clean it up.
				return nil
			}
			rec.CalendarEventID = eventID
			st.Upsert(rec)
			return nil
		})
		if err != nil {
			return "", err
		}
		return eventID, nil
	})
}

// Dashboard aggregates schedule statistics over the whole ledger.
func (s *Service) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	records, err := s.ledger.Records(ctx)
	if err != nil {
		return domain.Dashboard{}, err
	}

	today := domain.DateOf(s.now())
	weekAhead := today.AddDate(0, 0, 7)

	d := domain.Dashboard{TotalTopics: len(records)}
	intervals := 0
	intervalSum := 0
	for _, rec := range records {
		if rec.NextReview != nil && !rec.NextReview.After(weekAhead) {
			d.DueWithinWeek++
		}
		if rec.LastReview != nil && rec.NextReview != nil && rec.NextReview.After(*rec.LastReview) {
			intervals++
			intervalSum += domain.DaysBetween(*rec.LastReview, *rec.NextReview)
		}
	}
	if intervals > 0 {
		d.AvgIntervalDays = float64(intervalSum) / float64(intervals)
	}
	return d, nil
}
