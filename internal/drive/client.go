// Package drive implements the Google Docs / Drive backend: plain-text
// extraction, batch request submission, full-body replacement, and folder
// listing for document discovery.
package drive

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/api/docs/v1"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"git.home.luguber.info/inful/archivist/internal/errors"
	"git.home.luguber.info/inful/archivist/internal/gdocs"
	"git.home.luguber.info/inful/archivist/internal/observability"
)

const docMimeType = "application/vnd.google-apps.document"

// File is a Drive file reference returned by listing and search calls.
type File struct {
	ID   string
	Name string
}

// Client wraps the Docs and Drive services.
type Client struct {
	docs  *docs.Service
	drive *drive.Service
}

// NewClient builds a client authenticated with a service-account credentials
// file.
func NewClient(ctx context.Context, credentialsPath string) (*Client, error) {
	docsSvc, err := docs.NewService(ctx,
		option.WithCredentialsFile(credentialsPath),
		option.WithScopes(docs.DocumentsScope))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "creating docs service")
	}
	driveSvc, err := drive.NewService(ctx,
		option.WithCredentialsFile(credentialsPath),
		option.WithScopes(drive.DriveScope))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "creating drive service")
	}
	return &Client{docs: docsSvc, drive: driveSvc}, nil
}

// DocumentText fetches the document and returns its body as plain text. The
// trailing newline the Docs body always carries is stripped so the result
// compares cleanly against converter output.
func (c *Client) DocumentText(ctx context.Context, docID string) (string, error) {
	doc, err := c.docs.Documents.Get(docID).Context(ctx).Do()
	if err != nil {
		return "", errors.RemoteError(err, fmt.Sprintf("fetching document %s", docID))
	}
	return PlainText(doc), nil
}

// Submit transmits the plan's batches in order. The first failed batch aborts
// the remaining ones; the caller retries the whole cycle, not individual
// batches.
func (c *Client) Submit(ctx context.Context, docID string, plan *gdocs.Plan) error {
	if plan.UsedFallback {
		return c.ReplaceAll(ctx, docID, plan.Replacement)
	}
	for i, batch := range plan.Batches {
		observability.DebugContext(ctx, "submitting batch",
			slog.Int("batch", i+1), slog.Int("of", len(plan.Batches)), slog.Int("requests", len(batch)))
		_, err := c.docs.Documents.BatchUpdate(docID, &docs.BatchUpdateDocumentRequest{
			Requests: batch,
		}).Context(ctx).Do()
		if err != nil {
			return errors.RemoteError(err, fmt.Sprintf("batch %d/%d failed", i+1, len(plan.Batches)))
		}
	}
	return nil
}

// ReplaceAll clears the document body and inserts text in a single
// batchUpdate, so readers never observe an empty document.
func (c *Client) ReplaceAll(ctx context.Context, docID, text string) error {
	doc, err := c.docs.Documents.Get(docID).Context(ctx).Do()
	if err != nil {
		return errors.RemoteError(err, fmt.Sprintf("fetching document %s", docID))
	}

	var reqs []*docs.Request
	if r := deleteBodyRequest(doc); r != nil {
		reqs = append(reqs, r)
	}
	if text != "" {
		reqs = append(reqs, &docs.Request{
			InsertText: &docs.InsertTextRequest{
				Text:     text,
				Location: &docs.Location{Index: 1},
			},
		})
	}
	if len(reqs) == 0 {
		return nil
	}

	_, err = c.docs.Documents.BatchUpdate(docID, &docs.BatchUpdateDocumentRequest{
		Requests: reqs,
	}).Context(ctx).Do()
	if err != nil {
		return errors.RemoteError(err, "full replacement failed")
	}
	return nil
}

// Create makes a new empty Google Doc, optionally inside a parent folder, and
// returns its ID.
func (c *Client) Create(ctx context.Context, title, parentFolderID string) (string, error) {
	f := &drive.File{
		Name:     title,
		MimeType: docMimeType,
	}
	if parentFolderID != "" {
		f.Parents = []string{parentFolderID}
	}
	created, err := c.drive.Files.Create(f).
		SupportsAllDrives(true).
		Fields("id, name").
		Context(ctx).
		Do()
	if err != nil {
		return "", errors.RemoteError(err, fmt.Sprintf("creating document %q", title))
	}
	return created.Id, nil
}

// ListFolder returns the Google Docs directly inside a Drive folder.
func (c *Client) ListFolder(ctx context.Context, folderID string) ([]File, error) {
	query := fmt.Sprintf("'%s' in parents and mimeType = '%s' and trashed = false", folderID, docMimeType)

	var files []File
	pageToken := ""
	for {
		call := c.drive.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name)").
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			PageSize(100).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		res, err := call.Do()
		if err != nil {
			return nil, errors.RemoteError(err, fmt.Sprintf("listing folder %s", folderID))
		}
		for _, f := range res.Files {
			files = append(files, File{ID: f.Id, Name: f.Name})
		}
		if res.NextPageToken == "" {
			return files, nil
		}
		pageToken = res.NextPageToken
	}
}

// SearchByName finds Google Docs whose name contains name, optionally scoped
// to a folder.
func (c *Client) SearchByName(ctx context.Context, name, folderID string) ([]File, error) {
	query := fmt.Sprintf("name contains '%s' and mimeType = '%s' and trashed = false",
		escapeQuery(name), docMimeType)
	if folderID != "" {
		query += fmt.Sprintf(" and '%s' in parents", folderID)
	}

	res, err := c.drive.Files.List().
		Q(query).
		Fields("files(id, name)").
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		PageSize(50).
		Context(ctx).
		Do()
	if err != nil {
		return nil, errors.RemoteError(err, fmt.Sprintf("searching for %q", name))
	}
	files := make([]File, 0, len(res.Files))
	for _, f := range res.Files {
		files = append(files, File{ID: f.Id, Name: f.Name})
	}
	return files, nil
}

// escapeQuery escapes backslashes and single quotes for Drive query strings.
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
