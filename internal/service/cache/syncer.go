// Package cache mirrors the remote topic folders into a local directory so
// documents open instantly. The mirror is disposable: anything in it can be
// re-fetched from the remote store, so pruning is always safe.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gmarini/reviewdesk/internal/domain"
)

type fileFetcher interface {
	DownloadFile(ctx context.Context, fileID, destPath string) error
}

// Syncer keeps the local cache directory aligned with the ledger.
type Syncer struct {
	remote fileFetcher
	root   string
	log    *slog.Logger
}

func NewSyncer(remote fileFetcher, root string, log *slog.Logger) *Syncer {
	return &Syncer{
		remote: remote,
		root:   root,
		log:    log.With("service", "cache"),
	}
}

// TopicDir returns the local directory holding a topic's cached files.
func (s *Syncer) TopicDir(topic string) string {
	return filepath.Join(s.root, topic)
}

// Sync prunes topic directories that no longer appear in the ledger, creates
// a directory for every ledger topic and downloads files that are missing
// locally. Presence is judged by file name only; an existing local file is
// never re-downloaded. Files that have
// vanished remotely are skipped, any other download failure is collected and
// reported after the whole pass.
func (s *Syncer) Sync(ctx context.Context, records []domain.TopicRecord) error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("cache: create root: %w", err)
	}
	if err := s.prune(records); err != nil {
		return err
	}

	var errs []error
	for _, rec := range records {
		dir := s.TopicDir(rec.Topic)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cache: create dir for %s: %w", rec.Topic, err)
		}
		for _, f := range rec.Files {
			dest := filepath.Join(dir, f.Name)
			if _, err := os.Stat(dest); err == nil {
				continue
			}
			if err := s.remote.DownloadFile(ctx, f.ID, dest); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					s.log.Warn("remote file vanished, skipping",
						slog.String("topic", rec.Topic),
						slog.String("file", f.Name),
					)
					continue
				}
				errs = append(errs, fmt.Errorf("cache: fetch %s/%s: %w", rec.Topic, f.Name, err))
			}
		}
	}
	return errors.Join(errs...)
}

// prune removes local topic directories whose topic is gone from the ledger.
func (s *Syncer) prune(records []domain.TopicRecord) error {
	known := make(map[string]bool, len(records))
	for _, rec := range records {
		known[rec.Topic] = true
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("cache: read root: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() || known[e.Name()] {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.root, e.Name())); err != nil {
			return fmt.Errorf("cache: prune %s: %w", e.Name(), err)
		}
		s.log.Info("pruned stale topic cache", slog.String("topic", e.Name()))
	}
	return nil
}

// VerifyFiles ensures every file of the record is present locally, fetching
// the missing ones. Refs whose remote file is gone are dropped from the
// returned slice; the second result reports whether the list changed. Any
// other failure aborts the verification.
func (s *Syncer) VerifyFiles(ctx context.Context, rec domain.TopicRecord) ([]domain.FileRef, bool, error) {
	kept := make([]domain.FileRef, 0, len(rec.Files))
	changed := false
	for _, f := range rec.Files {
		dest := filepath.Join(s.TopicDir(rec.Topic), f.Name)
		if _, err := os.Stat(dest); err == nil {
			kept = append(kept, f)
			continue
		}
		if err := s.remote.DownloadFile(ctx, f.ID, dest); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				changed = true
				s.log.Warn("dropping vanished file ref",
					slog.String("topic", rec.Topic),
					slog.String("file", f.Name),
				)
				continue
			}
			return nil, false, fmt.Errorf("cache: verify %s/%s: %w", rec.Topic, f.Name, err)
		}
		kept = append(kept, f)
	}
	return kept, changed, nil
}
