// Package reconcile aligns the ledger with the remote folder tree. The remote
// store is the source of truth for which topics exist and which files they
// hold; the ledger is the source of truth for everything it already knows
// about those files and for the review schedule.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/gmarini/reviewdesk/internal/domain"
	"github.com/gmarini/reviewdesk/internal/service/session"
)

type remoteStore interface {
	ListTopicFolders(ctx context.Context) ([]domain.RemoteFolder, error)
	ListFilesInFolder(ctx context.Context, folderID string) ([]domain.FileRef, error)
}

type ledger interface {
	Update(ctx context.Context, name string, fn func(st *session.State) error) error
}

// Service rebuilds the ledger from the remote topic listing.
type Service struct {
	remote remoteStore
	ledger ledger
	log    *slog.Logger
	now    func() time.Time
}

func NewService(remote remoteStore, ledger ledger, log *slog.Logger) *Service {
	return &Service{
		remote: remote,
		ledger: ledger,
		log:    log.With("service", "reconcile"),
		now:    time.Now,
	}
}

// Report summarizes one reconciliation pass.
type Report struct {
	Topics  int
	Added   []string
	Removed []string
}

// Run lists the remote topic folders and their files, then replaces the
// ledger with the merged view in a single serialized mutation. Topics whose
// folder disappeared are pruned; folders with no ledger row become fresh
// records due today.
func (s *Service) Run(ctx context.Context) (Report, error) {
	folders, err := s.remote.ListTopicFolders(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("reconcile: list topics: %w", err)
	}

	filesByFolder := make(map[string][]domain.FileRef, len(folders))
	for _, f := range folders {
		files, err := s.remote.ListFilesInFolder(ctx, f.ID)
		if err != nil {
			return Report{}, fmt.Errorf("reconcile: list files of %q: %w", f.Name, err)
		}
		filesByFolder[f.ID] = files
	}

	var report Report
	err = s.ledger.Update(ctx, "reconcile ledger", func(st *session.State) error {
		merged := merge(st.Records(), folders, filesByFolder, s.now())
		report = diff(st.Records(), merged)
		st.SetRecords(merged)
		for _, topic := range report.Removed {
			st.RemoveHistoryFor(topic)
		}
		return nil
	})
	if err != nil {
		return Report{}, err
	}

	s.log.Info("ledger reconciled",
		slog.Int("topics", report.Topics),
		slog.Int("added", len(report.Added)),
		slog.Int("removed", len(report.Removed)),
	)
	return report, nil
}

// merge builds the new ledger from the remote listing. For a known topic the
// schedule fields carry over and file identity is resolved by display name:
// a remote file whose name the old record already knows keeps the old ref,
// so ids and links recorded earlier survive re-listing. Unknown topics start
// with a next review of today and no review history.
func merge(old []domain.TopicRecord, folders []domain.RemoteFolder, filesByFolder map[string][]domain.FileRef, now time.Time) []domain.TopicRecord {
	byTopic := make(map[string]domain.TopicRecord, len(old))
	for _, r := range old {
		byTopic[r.Topic] = r
	}

	today := domain.DateOf(now)
	merged := make([]domain.TopicRecord, 0, len(folders))
	for _, folder := range folders {
		remoteFiles := filesByFolder[folder.ID]

		prev, known := byTopic[folder.Name]
		if !known {
			merged = append(merged, domain.TopicRecord{
				Topic:         folder.Name,
				Files:         remoteFiles,
				NextReview:    &today,
				DriveFolderID: folder.ID,
			})
			continue
		}

		rec := prev.Clone()
		rec.DriveFolderID = folder.ID
		rec.Files = mergeFiles(prev.Files, remoteFiles)
		merged = append(merged, rec)
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].Topic < merged[j].Topic })
	return merged
}

// mergeFiles overlays the remote listing with refs the record already holds,
// matching by name.
func mergeFiles(known, remote []domain.FileRef) []domain.FileRef {
	byName := make(map[string]domain.FileRef, len(known))
	for _, f := range known {
		byName[f.Name] = f
	}

	out := make([]domain.FileRef, 0, len(remote))
	for _, f := range remote {
		if kept, ok := byName[f.Name]; ok {
			out = append(out, kept)
			continue
		}
		out = append(out, f)
	}
	return out
}

func diff(old, merged []domain.TopicRecord) Report {
	oldSet := make(map[string]bool, len(old))
	for _, r := range old {
		oldSet[r.Topic] = true
	}
	newSet := make(map[string]bool, len(merged))
	for _, r := range merged {
		newSet[r.Topic] = true
	}

	report := Report{Topics: len(merged)}
	for topic := range newSet {
		if !oldSet[topic] {
			report.Added = append(report.Added, topic)
		}
	}
	for topic := range oldSet {
		if !newSet[topic] {
			report.Removed = append(report.Removed, topic)
		}
	}
	sort.Strings(report.Added)
	sort.Strings(report.Removed)
	return report
}
