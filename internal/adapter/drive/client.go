// Package drive implements the remote store on Google Drive: one folder per
// topic under a shared root, plus a reserved records folder holding the
// ledger and history CSV files.
package drive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/gmarini/reviewdesk/internal/config"
	"github.com/gmarini/reviewdesk/internal/domain"
)

const folderMimeType = "application/vnd.google-apps.folder"

// Client is the Drive-backed remote store.
type Client struct {
	svc *gdrive.Service
	cfg config.DriveConfig
	log *slog.Logger

	recordsID string
	ledgerID  string
	historyID string
}

// NewClient builds the Drive client and ensures the records folder and both
// record files exist. On first run the ledger is prepopulated from the topic
// folders already present under the root.
func NewClient(ctx context.Context, cfg config.DriveConfig, ts oauth2.TokenSource, log *slog.Logger) (*Client, error) {
	svc, err := gdrive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("drive: new service: %w", err)
	}

	c := &Client{
		svc: svc,
		cfg: cfg,
		log: log.With("adapter", "drive"),
	}
	if err := c.ensureLayout(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) ensureLayout(ctx context.Context) error {
	recordsID, err := c.getOrCreateFolder(ctx, c.cfg.RecordsFolderName, c.cfg.RootFolderID)
	if err != nil {
		return fmt.Errorf("drive: records folder: %w", err)
	}
	c.recordsID = recordsID

	c.ledgerID, err = c.getOrCreateRecordFile(ctx, c.cfg.LedgerFileName, true)
	if err != nil {
		return fmt.Errorf("drive: ledger file: %w", err)
	}
	c.historyID, err = c.getOrCreateRecordFile(ctx, c.cfg.HistoryFileName, false)
	if err != nil {
		return fmt.Errorf("drive: history file: %w", err)
	}
	return nil
}

func (c *Client) getOrCreateFolder(ctx context.Context, name, parentID string) (string, error) {
	q := fmt.Sprintf("'%s' in parents and name='%s' and mimeType='%s' and trashed=false",
		parentID, name, folderMimeType)
	list, err := c.svc.Files.List().Q(q).Fields("files(id)").Context(ctx).Do()
	if err != nil {
		return "", mapError(err, "list folder", name)
	}
	if len(list.Files) > 0 {
		return list.Files[0].Id, nil
	}

	created, err := c.svc.Files.Create(&gdrive.File{
		Name:     name,
		MimeType: folderMimeType,
		Parents:  []string{parentID},
	}).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", mapError(err, "create folder", name)
	}
	c.log.Info("created remote folder", slog.String("name", name), slog.String("id", created.Id))
	return created.Id, nil
}

// getOrCreateRecordFile finds the named CSV in the records folder or creates
// it with a header row. A prepopulated ledger gets one row per existing topic
// folder so a fresh install picks up material that is already on Drive.
func (c *Client) getOrCreateRecordFile(ctx context.Context, name string, prepopulate bool) (string, error) {
	q := fmt.Sprintf("'%s' in parents and name='%s' and trashed=false", c.recordsID, name)
	list, err := c.svc.Files.List().Q(q).Fields("files(id)").Context(ctx).Do()
	if err != nil {
		return "", mapError(err, "list record file", name)
	}
	if len(list.Files) > 0 {
		return list.Files[0].Id, nil
	}

	var body []byte
	if prepopulate {
		records, err := c.initialLedger(ctx)
		if err != nil {
			return "", err
		}
		body, err = encodeLedger(records)
		if err != nil {
			return "", fmt.Errorf("encode initial ledger: %w", err)
		}
	} else {
		body, err = encodeHistory(nil)
		if err != nil {
			return "", fmt.Errorf("encode empty history: %w", err)
		}
	}

	created, err := c.svc.Files.Create(&gdrive.File{
		Name:     name,
		MimeType: "text/csv",
		Parents:  []string{c.recordsID},
	}).Media(bytesReader(body)).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", mapError(err, "create record file", name)
	}
	c.log.Info("created record file", slog.String("name", name), slog.String("id", created.Id))
	return created.Id, nil
}

func (c *Client) initialLedger(ctx context.Context) ([]domain.TopicRecord, error) {
	folders, err := c.ListTopicFolders(ctx)
	if err != nil {
		return nil, err
	}
	today := domain.DateOf(time.Now())

	records := make([]domain.TopicRecord, 0, len(folders))
	for _, f := range folders {
		files, err := c.ListFilesInFolder(ctx, f.ID)
		if err != nil {
			return nil, err
		}
		records = append(records, domain.TopicRecord{
			Topic:         f.Name,
			Files:         files,
			NextReview:    &today,
			DriveFolderID: f.ID,
		})
	}
	return records, nil
}

// ListTopicFolders returns every topic folder under the root, excluding the
// reserved records folder.
func (c *Client) ListTopicFolders(ctx context.Context) ([]domain.RemoteFolder, error) {
	q := fmt.Sprintf("'%s' in parents and mimeType='%s' and name!='%s' and trashed=false",
		c.cfg.RootFolderID, folderMimeType, c.cfg.RecordsFolderName)

	var folders []domain.RemoteFolder
	pageToken := ""
	for {
		call := c.svc.Files.List().Q(q).Fields("nextPageToken", "files(id, name)").Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		list, err := call.Do()
		if err != nil {
			return nil, mapError(err, "list topic folders", c.cfg.RootFolderID)
		}
		for _, f := range list.Files {
			folders = append(folders, domain.RemoteFolder{ID: f.Id, Name: f.Name})
		}
		pageToken = list.NextPageToken
		if pageToken == "" {
			return folders, nil
		}
	}
}

// ListFilesInFolder returns the current (non-trashed) contents of a topic folder.
func (c *Client) ListFilesInFolder(ctx context.Context, folderID string) ([]domain.FileRef, error) {
	q := fmt.Sprintf("'%s' in parents and trashed=false", folderID)

	var files []domain.FileRef
	pageToken := ""
	for {
		call := c.svc.Files.List().Q(q).Fields("nextPageToken", "files(id, name)").Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		list, err := call.Do()
		if err != nil {
			return nil, mapError(err, "list files", folderID)
		}
		for _, f := range list.Files {
			files = append(files, domain.FileRef{ID: f.Id, Name: f.Name, DownloadLink: downloadLink(f.Id)})
		}
		pageToken = list.NextPageToken
		if pageToken == "" {
			return files, nil
		}
	}
}

// CreateTopicFolder creates (or finds) a topic folder under the root.
func (c *Client) CreateTopicFolder(ctx context.Context, name string) (string, error) {
	return c.getOrCreateFolder(ctx, name, c.cfg.RootFolderID)
}

// UploadFile uploads a local file into the given topic folder.
func (c *Client) UploadFile(ctx context.Context, localPath, folderID string) (domain.FileRef, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return domain.FileRef{}, fmt.Errorf("drive: open %s: %w", localPath, err)
	}
	defer f.Close()

	created, err := c.svc.Files.Create(&gdrive.File{
		Name:    filepath.Base(localPath),
		Parents: []string{folderID},
	}).Media(f).Fields("id, name").Context(ctx).Do()
	if err != nil {
		return domain.FileRef{}, mapError(err, "upload file", localPath)
	}

	ref := domain.FileRef{ID: created.Id, Name: created.Name, DownloadLink: downloadLink(created.Id)}
	c.log.Info("uploaded file", slog.String("name", ref.Name), slog.String("folder_id", folderID))
	return ref, nil
}

// DownloadFile fetches a remote file's content into destPath, creating parent
// directories as needed. Returns domain.ErrNotFound when the remote id no
// longer resolves.
func (c *Client) DownloadFile(ctx context.Context, fileID, destPath string) error {
	resp, err := c.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return mapError(err, "download file", fileID)
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("drive: mkdir for %s: %w", destPath, err)
	}
	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("drive: create %s: %w", destPath, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("drive: write %s: %w", destPath, err)
	}
	return nil
}

// DeleteFile permanently deletes a remote file.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	if err := c.svc.Files.Delete(fileID).Context(ctx).Do(); err != nil {
		return mapError(err, "delete file", fileID)
	}
	return nil
}

// DeleteFolder permanently deletes a topic folder and its contents.
func (c *Client) DeleteFolder(ctx context.Context, folderID string) error {
	if err := c.svc.Files.Delete(folderID).Context(ctx).Do(); err != nil {
		return mapError(err, "delete folder", folderID)
	}
	return nil
}

// downloadLink builds the direct-download URL recorded alongside each file.
func downloadLink(fileID string) string {
	return "https://drive.google.com/uc?export=download&id=" + fileID
}
