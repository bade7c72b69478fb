package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmarini/reviewdesk/internal/domain"
)

type fakeFetcher struct {
	downloads []string // file ids, in order
	errByID   map[string]error
}

func (f *fakeFetcher) DownloadFile(_ context.Context, fileID, destPath string) error {
	if err := f.errByID[fileID]; err != nil {
		return err
	}
	f.downloads = append(f.downloads, fileID)
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(destPath, []byte(fileID), 0o644)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeLocal(t *testing.T, root, topic, name string) {
	t.Helper()
	dir := filepath.Join(root, topic)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("cached"), 0o644))
}

func TestSync_FetchesMissingOnly(t *testing.T) {
	root := t.TempDir()
	writeLocal(t, root, "calculus", "present.pdf")

	fetcher := &fakeFetcher{}
	s := NewSyncer(fetcher, root, testLogger())

	records := []domain.TopicRecord{{
		Topic: "calculus",
		Files: []domain.FileRef{
			{ID: "id1", Name: "present.pdf"},
			{ID: "id2", Name: "missing.pdf"},
		},
	}}

	require.NoError(t, s.Sync(context.Background(), records))

	assert.Equal(t, []string{"id2"}, fetcher.downloads, "present file is not re-fetched")
	assert.FileExists(t, filepath.Join(root, "calculus", "missing.pdf"))
}

func TestSync_CreatesDirForTopicWithoutFiles(t *testing.T) {
	root := t.TempDir()
	s := NewSyncer(&fakeFetcher{}, root, testLogger())

	records := []domain.TopicRecord{{Topic: "empty-topic"}}
	require.NoError(t, s.Sync(context.Background(), records))

	assert.DirExists(t, s.TopicDir("empty-topic"))
}

func TestSync_PrunesStaleTopicDirs(t *testing.T) {
	root := t.TempDir()
	writeLocal(t, root, "kept", "a.pdf")
	writeLocal(t, root, "stale", "b.pdf")

	s := NewSyncer(&fakeFetcher{}, root, testLogger())
	records := []domain.TopicRecord{{Topic: "kept", Files: []domain.FileRef{{ID: "id1", Name: "a.pdf"}}}}

	require.NoError(t, s.Sync(context.Background(), records))

	assert.DirExists(t, filepath.Join(root, "kept"))
	assert.NoDirExists(t, filepath.Join(root, "stale"))
}

func TestSync_SwallowsVanishedFiles(t *testing.T) {
	root := t.TempDir()
	fetcher := &fakeFetcher{errByID: map[string]error{"gone": domain.ErrNotFound}}
	s := NewSyncer(fetcher, root, testLogger())

	records := []domain.TopicRecord{{
		Topic: "calculus",
		Files: []domain.FileRef{
			{ID: "gone", Name: "gone.pdf"},
			{ID: "ok", Name: "ok.pdf"},
		},
	}}

	require.NoError(t, s.Sync(context.Background(), records))
	assert.Equal(t, []string{"ok"}, fetcher.downloads)
}

func TestSync_ReportsOtherFailuresAfterFullPass(t *testing.T) {
	root := t.TempDir()
	fetcher := &fakeFetcher{errByID: map[string]error{"bad": errors.New("network")}}
	s := NewSyncer(fetcher, root, testLogger())

	records := []domain.TopicRecord{{
		Topic: "calculus",
		Files: []domain.FileRef{
			{ID: "bad", Name: "bad.pdf"},
			{ID: "ok", Name: "ok.pdf"},
		},
	}}

	err := s.Sync(context.Background(), records)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.pdf")
	assert.Equal(t, []string{"ok"}, fetcher.downloads, "failure does not stop the pass")
}

func TestVerifyFiles_DropsVanishedRefs(t *testing.T) {
	root := t.TempDir()
	writeLocal(t, root, "calculus", "cached.pdf")

	fetcher := &fakeFetcher{errByID: map[string]error{"gone": domain.ErrNotFound}}
	s := NewSyncer(fetcher, root, testLogger())

	rec := domain.TopicRecord{
		Topic: "calculus",
		Files: []domain.FileRef{
			{ID: "c", Name: "cached.pdf"},
			{ID: "gone", Name: "gone.pdf"},
			{ID: "fetch", Name: "fetch.pdf"},
		},
	}

	kept, changed, err := s.VerifyFiles(context.Background(), rec)
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, kept, 2)
	assert.Equal(t, "c", kept[0].ID)
	assert.Equal(t, "fetch", kept[1].ID)
	assert.FileExists(t, filepath.Join(root, "calculus", "fetch.pdf"))
}

func TestVerifyFiles_PropagatesOtherErrors(t *testing.T) {
	root := t.TempDir()
	fetcher := &fakeFetcher{errByID: map[string]error{"bad": errors.New("network")}}
	s := NewSyncer(fetcher, root, testLogger())

	rec := domain.TopicRecord{
		Topic: "calculus",
		Files: []domain.FileRef{{ID: "bad", Name: "bad.pdf"}},
	}

	_, _, err := s.VerifyFiles(context.Background(), rec)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestVerifyFiles_NoChangeWhenAllPresent(t *testing.T) {
	root := t.TempDir()
	writeLocal(t, root, "calculus", "a.pdf")

	s := NewSyncer(&fakeFetcher{}, root, testLogger())
	rec := domain.TopicRecord{Topic: "calculus", Files: []domain.FileRef{{ID: "a", Name: "a.pdf"}}}

	kept, changed, err := s.VerifyFiles(context.Background(), rec)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, rec.Files, kept)
}
