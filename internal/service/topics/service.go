// Package topics manages the topic catalog: folders in the remote store,
// their attached documents and the matching ledger rows. The remote store is
// the source of truth for existence, so destructive remote operations happen
// before the ledger row is touched.
package topics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/gmarini/reviewdesk/internal/domain"
	"github.com/gmarini/reviewdesk/internal/service/session"
	"github.com/gmarini/reviewdesk/internal/task"
)

type remoteStore interface {
	CreateTopicFolder(ctx context.Context, name string) (string, error)
	UploadFile(ctx context.Context, localPath, folderID string) (domain.FileRef, error)
	DeleteFile(ctx context.Context, fileID string) error
	DeleteFolder(ctx context.Context, folderID string) error
}

type calendarClient interface {
	DeleteEvent(ctx context.Context, eventID string) error
	ListFutureEvents(ctx context.Context, subject string) ([]domain.CalendarEvent, error)
}

type ledger interface {
	Update(ctx context.Context, name string, fn func(st *session.State) error) error
	Records(ctx context.Context) ([]domain.TopicRecord, error)
	Record(ctx context.Context, topic string) (domain.TopicRecord, error)
}

// Service implements topic and file management.
type Service struct {
	remote        remoteStore
	cal           calendarClient
	ledger        ledger
	runner        *task.Runner
	log           *slog.Logger
	subjectPrefix string
	now           func() time.Time
}

func NewService(remote remoteStore, cal calendarClient, ledger ledger, runner *task.Runner, subjectPrefix string, log *slog.Logger) *Service {
	return &Service{
		remote:        remote,
		cal:           cal,
		ledger:        ledger,
		runner:        runner,
		log:           log.With("service", "topics"),
		subjectPrefix: subjectPrefix,
		now:           time.Now,
	}
}

// List returns all topic records, optionally filtered by a case-insensitive
// substring of the topic name.
func (s *Service) List(ctx context.Context, search string) ([]domain.TopicRecord, error) {
	records, err := s.ledger.Records(ctx)
	if err != nil {
		return nil, err
	}
	if search == "" {
		return records, nil
	}

	needle := strings.ToLower(search)
	filtered := records[:0:0]
	for _, rec := range records {
		if strings.Contains(strings.ToLower(rec.Topic), needle) {
			filtered = append(filtered, rec)
		}
	}
	return filtered, nil
}

// Get returns one topic record.
func (s *Service) Get(ctx context.Context, topic string) (domain.TopicRecord, error) {
	return s.ledger.Record(ctx, topic)
}

// Add creates the topic's remote folder and its ledger row. The new topic is
// due for review immediately.
func (s *Service) Add(ctx context.Context, name string) (domain.TopicRecord, error) {
	name = strings.TrimSpace(name)
	if err := validateTopicName(name); err != nil {
		return domain.TopicRecord{}, err
	}

	if _, err := s.ledger.Record(ctx, name); err == nil {
		return domain.TopicRecord{}, fmt.Errorf("topic %q: %w", name, domain.ErrAlreadyExists)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.TopicRecord{}, err
	}

	folderID, err := s.remote.CreateTopicFolder(ctx, name)
	if err != nil {
		return domain.TopicRecord{}, fmt.Errorf("topics: create folder: %w", err)
	}

	today := domain.DateOf(s.now())
	rec := domain.TopicRecord{
		Topic:         name,
		Files:         []domain.FileRef{},
		NextReview:    &today,
		DriveFolderID: folderID,
	}
	err = s.ledger.Update(ctx, "add topic", func(st *session.State) error {
		if _, exists := st.Record(name); exists {
			return fmt.Errorf("topic %q: %w", name, domain.ErrAlreadyExists)
		}
		st.Upsert(rec)
		return nil
	})
	if err != nil {
		return domain.TopicRecord{}, err
	}

	s.log.Info("topic added", slog.String("topic", name), slog.String("folder_id", folderID))
	return rec, nil
}

// Remove deletes the topic's remote folder, its ledger row and its history.
// The folder delete runs on the pool but is waited on, a topic whose folder
// survives would come back at the next reconciliation. Reminder cleanup is
// best-effort in the background.
func (s *Service) Remove(ctx context.Context, name string) error {
	rec, err := s.ledger.Record(ctx, name)
	if err != nil {
		return err
	}

	if rec.DriveFolderID != "" {
		del := task.Submit(s.runner, ctx, fmt.Sprintf("delete folder %q", name), func(taskCtx context.Context) (struct{}, error) {
			err := s.remote.DeleteFolder(taskCtx, rec.DriveFolderID)
			if errors.Is(err, domain.ErrNotFound) {
				err = nil
			}
			return struct{}{}, err
		})
		if _, err := del.Wait(ctx); err != nil {
			return fmt.Errorf("topics: delete folder: %w", err)
		}
	}

	err = s.ledger.Update(ctx, "remove topic", func(st *session.State) error {
		st.Remove(name)
		st.RemoveHistoryFor(name)
		return nil
	})
	if err != nil {
		return err
	}

	s.cleanupReminders(ctx, name)
	s.log.Info("topic removed", slog.String("topic", name))
	return nil
}

// AddFile uploads a local file into the topic's remote folder and records it.
func (s *Service) AddFile(ctx context.Context, topic, localPath string) (domain.FileRef, error) {
	rec, err := s.ledger.Record(ctx, topic)
	if err != nil {
		return domain.FileRef{}, err
	}

	name := filepath.Base(localPath)
	if _, exists := rec.FileByName(name); exists {
		return domain.FileRef{}, fmt.Errorf("file %q in topic %q: %w", name, topic, domain.ErrAlreadyExists)
	}

	upload := task.Submit(s.runner, ctx, fmt.Sprintf("upload %q", name), func(taskCtx context.Context) (domain.FileRef, error) {
		return s.remote.UploadFile(taskCtx, localPath, rec.DriveFolderID)
	})
	ref, err := upload.Wait(ctx)
	if err != nil {
		return domain.FileRef{}, fmt.Errorf("topics: upload: %w", err)
	}

	err = s.ledger.Update(ctx, "add file", func(st *session.State) error {
		cur, ok := st.Record(topic)
		if !ok {
			return fmt.Errorf("topic %q: %w", topic, domain.ErrNotFound)
		}
		cur.Files = append(cur.Files, ref)
		st.Upsert(cur)
		return nil
	})
	if err != nil {
		return domain.FileRef{}, err
	}

	s.log.Info("file added", slog.String("topic", topic), slog.String("file", name))
	return ref, nil
}

// RemoveFile deletes a document from the remote folder and the ledger.
// A file already gone remotely still gets its ref removed.
func (s *Service) RemoveFile(ctx context.Context, topic, fileName string) error {
	rec, err := s.ledger.Record(ctx, topic)
	if err != nil {
		return err
	}
	ref, ok := rec.FileByName(fileName)
	if !ok {
		return fmt.Errorf("file %q in topic %q: %w", fileName, topic, domain.ErrNotFound)
	}

	del := task.Submit(s.runner, ctx, fmt.Sprintf("delete file %q", fileName), func(taskCtx context.Context) (struct{}, error) {
		err := s.remote.DeleteFile(taskCtx, ref.ID)
		if errors.Is(err, domain.ErrNotFound) {
			err = nil
		}
		return struct{}{}, err
	})
	if _, err := del.Wait(ctx); err != nil {
		return fmt.Errorf("topics: delete file: %w", err)
	}

	return s.ledger.Update(ctx, "remove file", func(st *session.State) error {
		cur, ok := st.Record(topic)
		if !ok {
			return fmt.Errorf("topic %q: %w", topic, domain.ErrNotFound)
		}
		kept := cur.Files[:0:0]
		for _, f := range cur.Files {
			if f.Name != fileName {
				kept = append(kept, f)
			}
		}
		cur.Files = kept
		st.Upsert(cur)
		return nil
	})
}

// cleanupReminders removes the topic's future calendar events in the
// background. A stray reminder is harmless, so failures are only logged.
func (s *Service) cleanupReminders(ctx context.Context, topic string) {
	subject := s.subjectPrefix + topic
	s.runner.Go(ctx, fmt.Sprintf("cleanup reminders %q", topic), func(taskCtx context.Context) error {
		events, err := s.cal.ListFutureEvents(taskCtx, subject)
		if err != nil {
			return err
		}
		for _, ev := range events {
			if err := s.cal.DeleteEvent(taskCtx, ev.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
				s.log.Warn("could not delete reminder",
					slog.String("topic", topic),
					slog.String("event_id", ev.ID),
					slog.String("error", err.Error()),
				)
			}
		}
		return nil
	})
}

func validateTopicName(name string) error {
	if name == "" {
		return domain.NewValidationError("topic", "must not be empty")
	}
	if strings.ContainsAny(name, `/\`) {
		return domain.NewValidationError("topic", "must not contain path separators")
	}
	return nil
}
