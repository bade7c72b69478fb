// Package app wires configuration, adapters and services into a running
// application.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gmarini/reviewdesk/internal/adapter/calendar"
	"github.com/gmarini/reviewdesk/internal/adapter/drive"
	"github.com/gmarini/reviewdesk/internal/adapter/googleauth"
	"github.com/gmarini/reviewdesk/internal/config"
	"github.com/gmarini/reviewdesk/internal/service/cache"
	"github.com/gmarini/reviewdesk/internal/service/reconcile"
	"github.com/gmarini/reviewdesk/internal/service/review"
	"github.com/gmarini/reviewdesk/internal/service/session"
	"github.com/gmarini/reviewdesk/internal/service/topics"
	"github.com/gmarini/reviewdesk/internal/task"
)

// App holds the wired application graph.
type App struct {
	Cfg *config.Config
	Log *slog.Logger

	Drive    *drive.Client
	Calendar *calendar.Client
	Session  *session.Session
	Runner   *task.Runner

	Reconcile *reconcile.Service
	Cache     *cache.Syncer
	Review    *review.Service
	Topics    *topics.Service
}

// New builds the application from configuration. It needs a cached OAuth
// token; run Authorize first on a fresh machine.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := NewLogger(cfg.Log)
	log.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
	)

	ts, err := googleauth.TokenSource(ctx, cfg.Drive.CredentialsFile, cfg.Drive.TokenFile)
	if err != nil {
		return nil, err
	}

	driveClient, err := drive.NewClient(ctx, cfg.Drive, ts, log)
	if err != nil {
		return nil, err
	}
	calClient, err := calendar.NewClient(ctx, cfg.Calendar, ts, log)
	if err != nil {
		return nil, err
	}

	sess := session.New(driveClient, log)
	runner := task.NewRunner(cfg.Tasks.MaxConcurrent, log)

	return &App{
		Cfg:       cfg,
		Log:       log,
		Drive:     driveClient,
		Calendar:  calClient,
		Session:   sess,
		Runner:    runner,
		Reconcile: reconcile.NewService(driveClient, sess, log),
		Cache:     cache.NewSyncer(driveClient, cfg.Cache.Dir, log),
		Review:    review.NewService(calClient, sess, runner, cfg.Calendar.SubjectPrefix, log),
		Topics:    topics.NewService(driveClient, calClient, sess, runner, cfg.Calendar.SubjectPrefix, log),
	}, nil
}

// Load brings the three stores in line: the ledger is reconciled against the
// remote folder tree, the local cache against the ledger, and missing
// reminders are created. Every command that touches topics calls this first.
func (a *App) Load(ctx context.Context) error {
	if err := a.Session.Load(ctx); err != nil {
		return err
	}

	report, err := a.Reconcile.Run(ctx)
	if err != nil {
		return err
	}
	if len(report.Added) > 0 || len(report.Removed) > 0 {
		a.Log.Info("ledger changed during reconciliation",
			slog.Any("added", report.Added),
			slog.Any("removed", report.Removed),
		)
	}

	records, err := a.Session.Records(ctx)
	if err != nil {
		return err
	}
	if err := a.Cache.Sync(ctx, records); err != nil {
		// A partly warm cache is usable; files are re-fetched on open.
		a.Log.Warn("cache sync incomplete", slog.String("error", err.Error()))
	}

	if _, err := a.Review.SyncSchedules(ctx); err != nil {
		return err
	}
	return nil
}

// OpenTopic makes sure every document of the topic is cached locally, drops
// refs whose remote file is gone, and returns the local directory to open.
func (a *App) OpenTopic(ctx context.Context, topic string) (string, error) {
	rec, err := a.Session.Record(ctx, topic)
	if err != nil {
		return "", err
	}

	kept, changed, err := a.Cache.VerifyFiles(ctx, rec)
	if err != nil {
		return "", err
	}
	if changed {
		err = a.Session.Update(ctx, "drop vanished files", func(st *session.State) error {
			cur, ok := st.Record(topic)
			if !ok {
				return fmt.Errorf("topic %q gone during verification", topic)
			}
			cur.Files = kept
			st.Upsert(cur)
			return nil
		})
		if err != nil {
			return "", err
		}
	}
	return a.Cache.TopicDir(topic), nil
}

// Close drains the background pool and stops the session writer.
func (a *App) Close() {
	a.Runner.Wait()
	a.Session.Close()
}
