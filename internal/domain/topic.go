package domain

import "time"

// FileRef identifies a document stored inside a topic's remote folder.
type FileRef struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DownloadLink string `json:"link"`
}

// RemoteFolder is one entry of the remote store's topic-folder listing.
type RemoteFolder struct {
	ID   string
	Name string
}

// CalendarEvent is a reminder event as seen by the reminder service.
type CalendarEvent struct {
	ID      string
	Subject string
}

// TopicRecord is one row of the ledger: a named unit of study material with
// its remote folder, attached documents and review schedule. The remote store
// is the source of truth for topic existence; DriveFolderID is immutable for
// the life of the record.
type TopicRecord struct {
	Topic           string
	Files           []FileRef
	LastReview      *time.Time
	NextReview      *time.Time
	CalendarEventID string
	DriveFolderID   string
}

// FileByName returns the attached file with the given display name.
func (r *TopicRecord) FileByName(name string) (FileRef, bool) {
	for _, f := range r.Files {
		if f.Name == name {
			return f, true
		}
	}
	return FileRef{}, false
}

// Expired reports whether the record's review is overdue: the next review date
// is on or before today AND at least one review has been recorded. A record
// that was never reviewed is not expired regardless of its next review date.
func (r *TopicRecord) Expired(today time.Time) bool {
	if r.LastReview == nil || r.NextReview == nil {
		return false
	}
	return !r.NextReview.After(DateOf(today))
}

// Clone returns a deep copy of the record.
func (r TopicRecord) Clone() TopicRecord {
	out := r
	if r.Files != nil {
		out.Files = append([]FileRef(nil), r.Files...)
	}
	if r.LastReview != nil {
		t := *r.LastReview
		out.LastReview = &t
	}
	if r.NextReview != nil {
		t := *r.NextReview
		out.NextReview = &t
	}
	return out
}

// ReviewLogEntry is one row of the append-only review history.
type ReviewLogEntry struct {
	Topic      string
	ReviewDate time.Time
	Difficulty Difficulty
	Comment    string
}

// Dashboard holds aggregated review statistics across all topics.
type Dashboard struct {
	TotalTopics     int
	DueWithinWeek   int
	AvgIntervalDays float64
}
