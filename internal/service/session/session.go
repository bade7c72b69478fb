// Package session owns the in-memory copy of the ledger and the review
// history. Every read and write goes through a single goroutine, so two
// operations can never interleave their read-modify-write cycles: a mutation
// sees the state left by the previous one, persists, and only then is the next
// mutation admitted.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/gmarini/reviewdesk/internal/domain"
)

type recordStore interface {
	ReadLedger(ctx context.Context) ([]domain.TopicRecord, error)
	WriteLedger(ctx context.Context, records []domain.TopicRecord) error
	ReadHistory(ctx context.Context) ([]domain.ReviewLogEntry, error)
	WriteHistory(ctx context.Context, entries []domain.ReviewLogEntry) error
}

// Session serializes all ledger and history access. Mutations are applied to
// a draft copy of the state and persisted remotely before the draft replaces
// the current state, so a failed mutation leaves no trace.
type Session struct {
	store recordStore
	log   *slog.Logger

	ops chan op
	wg  sync.WaitGroup

	// st is owned by the writer goroutine once Load has returned.
	st *State
}

type op struct {
	ctx  context.Context
	name string
	fn   func(st *State) error
	done chan error
}

// New creates a Session. Load must be called before any other method.
func New(store recordStore, log *slog.Logger) *Session {
	return &Session{
		store: store,
		log:   log.With("service", "session"),
		ops:   make(chan op),
	}
}

// Load reads the ledger and history from the remote store and starts the
// writer goroutine.
func (s *Session) Load(ctx context.Context) error {
	records, err := s.store.ReadLedger(ctx)
	if err != nil {
		return fmt.Errorf("session: load ledger: %w", err)
	}
	history, err := s.store.ReadHistory(ctx)
	if err != nil {
		return fmt.Errorf("session: load history: %w", err)
	}

	s.st = &State{records: records, history: history}
	sortRecords(s.st.records)

	s.wg.Add(1)
	go s.run()

	s.log.Info("session loaded",
		slog.Int("topics", len(records)),
		slog.Int("history_entries", len(history)),
	)
	return nil
}

// Close stops the writer goroutine. Pending operations are drained first.
func (s *Session) Close() {
	close(s.ops)
	s.wg.Wait()
}

// Update runs fn against a draft of the state. If fn succeeds, any part of the
// state it marked dirty is persisted; only after a successful persist does the
// draft become the current state. Cancelling ctx after the operation has been
// admitted does not undo it.
func (s *Session) Update(ctx context.Context, name string, fn func(st *State) error) error {
	o := op{ctx: ctx, name: name, fn: fn, done: make(chan error, 1)}
	select {
	case s.ops <- o:
	case <-ctx.Done():
		return fmt.Errorf("session: %s: %w", name, ctx.Err())
	}
	select {
	case err := <-o.done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("session: %s: %w", name, ctx.Err())
	}
}

// View runs fn against the current state without persisting. fn must not
// mutate the state or retain references past its return.
func (s *Session) View(ctx context.Context, name string, fn func(st *State)) error {
	return s.Update(ctx, name, func(st *State) error {
		fn(st)
		st.ledgerDirty = false
		st.historyDirty = false
		return nil
	})
}

// Records returns a deep copy of all topic records, sorted by topic name.
func (s *Session) Records(ctx context.Context) ([]domain.TopicRecord, error) {
	var out []domain.TopicRecord
	err := s.View(ctx, "read records", func(st *State) {
		out = st.RecordsCopy()
	})
	return out, err
}

// Record returns a deep copy of a single topic record.
func (s *Session) Record(ctx context.Context, topic string) (domain.TopicRecord, error) {
	var (
		out   domain.TopicRecord
		found bool
	)
	err := s.View(ctx, "read record", func(st *State) {
		out, found = st.Record(topic)
	})
	if err != nil {
		return domain.TopicRecord{}, err
	}
	if !found {
		return domain.TopicRecord{}, fmt.Errorf("session: topic %q: %w", topic, domain.ErrNotFound)
	}
	return out, nil
}

// History returns a copy of the full review history.
func (s *Session) History(ctx context.Context) ([]domain.ReviewLogEntry, error) {
	var out []domain.ReviewLogEntry
	err := s.View(ctx, "read history", func(st *State) {
		out = st.HistoryCopy()
	})
	return out, err
}

func (s *Session) run() {
	defer s.wg.Done()
	for o := range s.ops {
		o.done <- s.apply(o)
	}
}

func (s *Session) apply(o op) error {
	draft := s.st.clone()

	if err := o.fn(draft); err != nil {
		return fmt.Errorf("session: %s: %w", o.name, err)
	}

	if draft.ledgerDirty {
		sortRecords(draft.records)
		if err := s.store.WriteLedger(o.ctx, draft.records); err != nil {
			return fmt.Errorf("session: %s: persist ledger: %w", o.name, err)
		}
	}
	if draft.historyDirty {
		if err := s.store.WriteHistory(o.ctx, draft.history); err != nil {
			return fmt.Errorf("session: %s: persist history: %w", o.name, err)
		}
	}

	draft.ledgerDirty = false
	draft.historyDirty = false
	s.st = draft
	return nil
}

// ---------------------------------------------------------------------------
// State
// ---------------------------------------------------------------------------

// State is the mutable view handed to Update and View callbacks. Mutating
// methods mark the affected part dirty so the session knows what to persist.
type State struct {
	records []domain.TopicRecord
	history []domain.ReviewLogEntry

	ledgerDirty  bool
	historyDirty bool
}

// Records returns the live record slice, valid only inside the callback.
func (st *State) Records() []domain.TopicRecord { return st.records }

// RecordsCopy returns a deep copy of all records.
func (st *State) RecordsCopy() []domain.TopicRecord {
	out := make([]domain.TopicRecord, len(st.records))
	for i, r := range st.records {
		out[i] = r.Clone()
	}
	return out
}

// Record returns a deep copy of the record for the given topic.
func (st *State) Record(topic string) (domain.TopicRecord, bool) {
	for _, r := range st.records {
		if r.Topic == topic {
			return r.Clone(), true
		}
	}
	return domain.TopicRecord{}, false
}

// SetRecords replaces the whole ledger.
func (st *State) SetRecords(records []domain.TopicRecord) {
	st.records = records
	st.ledgerDirty = true
}

// Upsert replaces the record with the same topic name, or adds it.
func (st *State) Upsert(rec domain.TopicRecord) {
	for i, r := range st.records {
		if r.Topic == rec.Topic {
			st.records[i] = rec
			st.ledgerDirty = true
			return
		}
	}
	st.records = append(st.records, rec)
	st.ledgerDirty = true
}

// Remove deletes the record with the given topic name.
func (st *State) Remove(topic string) bool {
	for i, r := range st.records {
		if r.Topic == topic {
			st.records = append(st.records[:i], st.records[i+1:]...)
			st.ledgerDirty = true
			return true
		}
	}
	return false
}

// History returns the live history slice, valid only inside the callback.
func (st *State) History() []domain.ReviewLogEntry { return st.history }

// HistoryCopy returns a copy of the history.
func (st *State) HistoryCopy() []domain.ReviewLogEntry {
	return append([]domain.ReviewLogEntry(nil), st.history...)
}

// AppendHistory adds one entry to the review history.
func (st *State) AppendHistory(e domain.ReviewLogEntry) {
	st.history = append(st.history, e)
	st.historyDirty = true
}

// RemoveHistoryFor drops every history entry of the given topic.
func (st *State) RemoveHistoryFor(topic string) {
	kept := st.history[:0]
	for _, e := range st.history {
		if e.Topic != topic {
			kept = append(kept, e)
		}
	}
	if len(kept) != len(st.history) {
		st.history = kept
		st.historyDirty = true
	}
}

func (st *State) clone() *State {
	out := &State{
		records: make([]domain.TopicRecord, len(st.records)),
		history: append([]domain.ReviewLogEntry(nil), st.history...),
	}
	for i, r := range st.records {
		out.records[i] = r.Clone()
	}
	return out
}

func sortRecords(records []domain.TopicRecord) {
	sort.Slice(records, func(i, j int) bool { return records[i].Topic < records[j].Topic })
}
