package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmarini/reviewdesk/internal/domain"
)

type fakeStore struct {
	mu sync.Mutex

	ledger  []domain.TopicRecord
	history []domain.ReviewLogEntry

	ledgerWrites  int
	historyWrites int

	writeLedgerErr error
}

func (f *fakeStore) ReadLedger(context.Context) ([]domain.TopicRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.TopicRecord(nil), f.ledger...), nil
}

func (f *fakeStore) WriteLedger(_ context.Context, records []domain.TopicRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeLedgerErr != nil {
		return f.writeLedgerErr
	}
	f.ledger = append([]domain.TopicRecord(nil), records...)
	f.ledgerWrites++
	return nil
}

func (f *fakeStore) ReadHistory(context.Context) ([]domain.ReviewLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ReviewLogEntry(nil), f.history...), nil
}

func (f *fakeStore) WriteHistory(_ context.Context, entries []domain.ReviewLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append([]domain.ReviewLogEntry(nil), entries...)
	f.historyWrites++
	return nil
}

func newTestSession(t *testing.T, store *fakeStore) *Session {
	t.Helper()
	s := New(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, s.Load(context.Background()))
	t.Cleanup(s.Close)
	return s
}

func TestSession_LoadAndRead(t *testing.T) {
	store := &fakeStore{
		ledger: []domain.TopicRecord{
			{Topic: "zeta", DriveFolderID: "f2"},
			{Topic: "alpha", DriveFolderID: "f1"},
		},
		history: []domain.ReviewLogEntry{{Topic: "alpha", Difficulty: domain.DifficultyEasy}},
	}
	s := newTestSession(t, store)

	records, err := s.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "alpha", records[0].Topic, "records are sorted by topic")
	assert.Equal(t, "zeta", records[1].Topic)

	history, err := s.History(context.Background())
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestSession_RecordsReturnsCopy(t *testing.T) {
	store := &fakeStore{
		ledger: []domain.TopicRecord{{Topic: "alpha", Files: []domain.FileRef{{ID: "a", Name: "a.pdf"}}}},
	}
	s := newTestSession(t, store)

	records, err := s.Records(context.Background())
	require.NoError(t, err)
	records[0].Topic = "mutated"
	records[0].Files[0].Name = "mutated.pdf"

	again, err := s.Records(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alpha", again[0].Topic)
	assert.Equal(t, "a.pdf", again[0].Files[0].Name)
}

func TestSession_UpdatePersistsLedger(t *testing.T) {
	store := &fakeStore{}
	s := newTestSession(t, store)

	err := s.Update(context.Background(), "add topic", func(st *State) error {
		st.Upsert(domain.TopicRecord{Topic: "calculus", DriveFolderID: "f1"})
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 1, store.ledgerWrites)
	assert.Equal(t, 0, store.historyWrites)
	require.Len(t, store.ledger, 1)
	assert.Equal(t, "calculus", store.ledger[0].Topic)
}

func TestSession_FailedUpdateLeavesStateUntouched(t *testing.T) {
	store := &fakeStore{ledger: []domain.TopicRecord{{Topic: "alpha"}}}
	s := newTestSession(t, store)

	boom := errors.New("boom")
	err := s.Update(context.Background(), "bad update", func(st *State) error {
		st.Remove("alpha")
		st.Upsert(domain.TopicRecord{Topic: "beta"})
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.ledgerWrites)

	records, err := s.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "alpha", records[0].Topic)
}

func TestSession_PersistErrorRollsBack(t *testing.T) {
	store := &fakeStore{writeLedgerErr: errors.New("remote down")}
	s := newTestSession(t, store)

	err := s.Update(context.Background(), "add topic", func(st *State) error {
		st.Upsert(domain.TopicRecord{Topic: "calculus"})
		return nil
	})
	require.Error(t, err)

	records, err := s.Records(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSession_HistoryAppendPersistsHistoryOnly(t *testing.T) {
	store := &fakeStore{}
	s := newTestSession(t, store)

	err := s.Update(context.Background(), "log review", func(st *State) error {
		st.AppendHistory(domain.ReviewLogEntry{Topic: "alpha", Difficulty: domain.DifficultyMedium})
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 0, store.ledgerWrites)
	assert.Equal(t, 1, store.historyWrites)
	require.Len(t, store.history, 1)
}

func TestSession_ConcurrentUpdatesSerialize(t *testing.T) {
	store := &fakeStore{}
	s := newTestSession(t, store)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Update(context.Background(), "log review", func(st *State) error {
				// Read-modify-write: lost updates would shorten the history.
				st.AppendHistory(domain.ReviewLogEntry{Topic: "alpha"})
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	history, err := s.History(context.Background())
	require.NoError(t, err)
	assert.Len(t, history, n)
}

func TestSession_UpdateRespectsContext(t *testing.T) {
	store := &fakeStore{}
	s := newTestSession(t, store)

	// Jam the writer with a slow op, then try an update with an expired ctx.
	release := make(chan struct{})
	go s.Update(context.Background(), "slow", func(st *State) error {
		<-release
		return nil
	})
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Update(ctx, "blocked", func(st *State) error { return nil })
	close(release)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSession_RecordNotFound(t *testing.T) {
	s := newTestSession(t, &fakeStore{})
	_, err := s.Record(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestState_RemoveHistoryFor(t *testing.T) {
	st := &State{history: []domain.ReviewLogEntry{
		{Topic: "a"}, {Topic: "b"}, {Topic: "a"},
	}}
	st.RemoveHistoryFor("a")
	require.Len(t, st.history, 1)
	assert.Equal(t, "b", st.history[0].Topic)
	assert.True(t, st.historyDirty)

	st.historyDirty = false
	st.RemoveHistoryFor("missing")
	assert.False(t, st.historyDirty)
}
