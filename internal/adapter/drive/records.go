package drive

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	gdrive "google.golang.org/api/drive/v3"

	"github.com/gmarini/reviewdesk/internal/domain"
)

// Column layouts of the two on-Drive CSV record files. These are part of the
// stored data format and must not be reordered.
var (
	ledgerHeader  = []string{"topic", "files", "last_review", "next_review", "calendar_event_id", "drive_folder_id"}
	historyHeader = []string{"topic", "review_date", "difficulty", "comment"}
)

func bytesReader(b []byte) *bytes.Reader { return bytes.NewReader(b) }

// ReadLedger downloads and decodes the full ledger.
func (c *Client) ReadLedger(ctx context.Context) ([]domain.TopicRecord, error) {
	data, err := c.readRecordFile(ctx, c.ledgerID)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	records, err := decodeLedger(data)
	if err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	return records, nil
}

// WriteLedger encodes and overwrites the full ledger.
func (c *Client) WriteLedger(ctx context.Context, records []domain.TopicRecord) error {
	data, err := encodeLedger(records)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := c.writeRecordFile(ctx, c.ledgerID, data); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}

// ReadHistory downloads and decodes the full review history.
func (c *Client) ReadHistory(ctx context.Context) ([]domain.ReviewLogEntry, error) {
	data, err := c.readRecordFile(ctx, c.historyID)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	entries, err := decodeHistory(data)
	if err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return entries, nil
}

// WriteHistory encodes and overwrites the full review history.
func (c *Client) WriteHistory(ctx context.Context, entries []domain.ReviewLogEntry) error {
	data, err := encodeHistory(entries)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := c.writeRecordFile(ctx, c.historyID, data); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}

// AppendHistory appends one entry to the review history. The history file is
// small and append is rare, so a read-modify-write of the whole file keeps
// the remote format a plain CSV.
func (c *Client) AppendHistory(ctx context.Context, entry domain.ReviewLogEntry) error {
	entries, err := c.ReadHistory(ctx)
	if err != nil {
		return err
	}
	return c.WriteHistory(ctx, append(entries, entry))
}

func (c *Client) readRecordFile(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := c.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, mapError(err, "download record", fileID)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (c *Client) writeRecordFile(ctx context.Context, fileID string, data []byte) error {
	_, err := c.svc.Files.Update(fileID, &gdrive.File{}).Media(bytesReader(data)).Context(ctx).Do()
	if err != nil {
		return mapError(err, "upload record", fileID)
	}
	return nil
}

// ---------------------------------------------------------------------------
// CSV codec (pure, no network)
// ---------------------------------------------------------------------------

func encodeLedger(records []domain.TopicRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(ledgerHeader); err != nil {
		return nil, err
	}
	for _, r := range records {
		files := r.Files
		if files == nil {
			files = []domain.FileRef{}
		}
		filesJSON, err := json.Marshal(files)
		if err != nil {
			return nil, fmt.Errorf("topic %s: marshal files: %w", r.Topic, err)
		}
		row := []string{
			r.Topic,
			string(filesJSON),
			formatOptionalDate(r.LastReview),
			formatOptionalDate(r.NextReview),
			r.CalendarEventID,
			r.DriveFolderID,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func decodeLedger(data []byte) ([]domain.TopicRecord, error) {
	rows, idx, err := readCSV(data, ledgerHeader)
	if err != nil {
		return nil, err
	}

	records := make([]domain.TopicRecord, 0, len(rows))
	for _, row := range rows {
		rec := domain.TopicRecord{
			Topic:           row[idx["topic"]],
			LastReview:      parseOptionalDate(row[idx["last_review"]]),
			NextReview:      parseOptionalDate(row[idx["next_review"]]),
			CalendarEventID: row[idx["calendar_event_id"]],
			DriveFolderID:   row[idx["drive_folder_id"]],
		}
		if raw := row[idx["files"]]; raw != "" {
			if err := json.Unmarshal([]byte(raw), &rec.Files); err != nil {
				return nil, fmt.Errorf("topic %s: unmarshal files: %w", rec.Topic, err)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func encodeHistory(entries []domain.ReviewLogEntry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(historyHeader); err != nil {
		return nil, err
	}
	for _, e := range entries {
		row := []string{
			e.Topic,
			domain.FormatDate(e.ReviewDate),
			e.Difficulty.String(),
			e.Comment,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func decodeHistory(data []byte) ([]domain.ReviewLogEntry, error) {
	rows, idx, err := readCSV(data, historyHeader)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.ReviewLogEntry, 0, len(rows))
	for _, row := range rows {
		entry := domain.ReviewLogEntry{
			Topic:      row[idx["topic"]],
			Difficulty: domain.Difficulty(row[idx["difficulty"]]),
			Comment:    row[idx["comment"]],
		}
		if d := parseOptionalDate(row[idx["review_date"]]); d != nil {
			entry.ReviewDate = *d
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// readCSV parses the file and resolves the expected columns by header name,
// so extra or reordered columns written by other tools do not break loading.
func readCSV(data []byte, expected []string) ([][]string, map[string]int, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("missing header row")
	}

	idx := make(map[string]int, len(all[0]))
	for i, name := range all[0] {
		idx[name] = i
	}
	for _, name := range expected {
		if _, ok := idx[name]; !ok {
			return nil, nil, fmt.Errorf("missing column %q", name)
		}
	}

	var rows [][]string
	for _, row := range all[1:] {
		if len(row) < len(all[0]) {
			continue
		}
		rows = append(rows, row)
	}
	return rows, idx, nil
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return domain.FormatDate(*t)
}

// parseOptionalDate returns nil for empty or unparsable values; a bad date in
// one row must not abort loading the whole ledger.
func parseOptionalDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := domain.ParseDate(s)
	if err != nil {
		return nil
	}
	return &t
}
