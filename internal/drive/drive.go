// Package drive uploads report photos into a two-level folder hierarchy
// (user, then activity timestamp) on Google Drive. It talks to the Drive v3
// REST API directly to avoid pulling in the full Google API client library.
package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/singleflight"
)

const (
	defaultBaseURL = "https://www.googleapis.com"
	folderMimeType = "application/vnd.google-apps.folder"
)

// File is the subset of Drive file metadata the service records.
type File struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	WebViewLink string `json:"webViewLink"`
}

// Client places files under a configured root folder. Folder lookups for the
// same parent/name pair are collapsed through singleflight, so concurrent
// uploads from this process cannot race a find-or-create into duplicates.
type Client struct {
	http    *resty.Client
	rootID  string
	folders singleflight.Group
}

// NewClient wraps an authenticated HTTP client (see NewHTTPClient). All
// folder hierarchies are created under rootFolderID.
func NewClient(httpClient *http.Client, rootFolderID string) *Client {
	return &Client{
		http:   resty.NewWithClient(httpClient).SetBaseURL(defaultBaseURL),
		rootID: rootFolderID,
	}
}

// SetBaseURL overrides the Drive API endpoint. Used by tests.
func (c *Client) SetBaseURL(u string) {
	c.http.SetBaseURL(u)
}

// UploadReportPhoto ensures root/userID/stamp exists and uploads the file
// into it. The stamp is sanitized before use as a folder name.
func (c *Client) UploadReportPhoto(ctx context.Context, userID, stamp, filename, mimeType string, data []byte) (*File, error) {
	userFolder, err := c.EnsureFolder(ctx, userID, c.rootID)
	if err != nil {
		return nil, fmt.Errorf("ensure user folder: %w", err)
	}
	stampFolder, err := c.EnsureFolder(ctx, SanitizeStamp(stamp), userFolder)
	if err != nil {
		return nil, fmt.Errorf("ensure timestamp folder: %w", err)
	}
	return c.uploadFile(ctx, stampFolder, filename, mimeType, data)
}

// EnsureFolder returns the ID of the folder with the given name under
// parentID, creating it when absent. The first existing match wins.
func (c *Client) EnsureFolder(ctx context.Context, name, parentID string) (string, error) {
	id, err, _ := c.folders.Do(parentID+"/"+name, func() (interface{}, error) {
		return c.findOrCreateFolder(ctx, name, parentID)
	})
	if err != nil {
		return "", err
	}
	return id.(string), nil
}

func (c *Client) findOrCreateFolder(ctx context.Context, name, parentID string) (string, error) {
	var list struct {
		Files []File `json:"files"`
	}
	query := fmt.Sprintf("name = '%s' and '%s' in parents and mimeType = '%s' and trashed = false",
		escapeQueryTerm(name), escapeQueryTerm(parentID), folderMimeType)

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("q", query).
		SetQueryParam("fields", "files(id,name)").
		SetResult(&list).
		Get("/drive/v3/files")
	if err != nil {
		return "", fmt.Errorf("list folders: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("list folders: drive API returned %d: %s", resp.StatusCode(), resp.Body())
	}
	if len(list.Files) > 0 {
		return list.Files[0].ID, nil
	}

	var created File
	resp, err = c.http.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"name":     name,
			"mimeType": folderMimeType,
			"parents":  []string{parentID},
		}).
		SetResult(&created).
		Post("/drive/v3/files")
	if err != nil {
		return "", fmt.Errorf("create folder %q: %w", name, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("create folder %q: drive API returned %d: %s", name, resp.StatusCode(), resp.Body())
	}
	return created.ID, nil
}

// uploadFile performs a multipart/related upload: a JSON metadata part naming
// the parent folder, followed by the media bytes.
func (c *Client) uploadFile(ctx context.Context, parentID, filename, mimeType string, data []byte) (*File, error) {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	metaPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"application/json; charset=UTF-8"},
	})
	if err != nil {
		return nil, fmt.Errorf("create metadata part: %w", err)
	}
	meta := map[string]interface{}{
		"name":    filename,
		"parents": []string{parentID},
	}
	if err := json.NewEncoder(metaPart).Encode(meta); err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}

	mediaPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {mimeType},
	})
	if err != nil {
		return nil, fmt.Errorf("create media part: %w", err)
	}
	if _, err := mediaPart.Write(data); err != nil {
		return nil, fmt.Errorf("write media part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart body: %w", err)
	}

	var uploaded File
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("uploadType", "multipart").
		SetQueryParam("fields", "id,name,webViewLink").
		SetHeader("Content-Type", "multipart/related; boundary="+mw.Boundary()).
		SetBody(body.Bytes()).
		SetResult(&uploaded).
		Post("/upload/drive/v3/files")
	if err != nil {
		return nil, fmt.Errorf("upload %q: %w", filename, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("upload %q: drive API returned %d: %s", filename, resp.StatusCode(), resp.Body())
	}
	return &uploaded, nil
}

// stampReplacer strips characters that are illegal or awkward in folder
// names; colons appear in every RFC 3339 timestamp.
var stampReplacer = strings.NewReplacer(
	":", "-",
	"/", "-",
	"\\", "-",
	"*", "",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeStamp makes a report timestamp usable as a Drive folder name.
func SanitizeStamp(stamp string) string {
	return stampReplacer.Replace(stamp)
}

// escapeQueryTerm escapes a value for interpolation into a Drive search
// query, which uses single-quoted strings with backslash escapes.
func escapeQueryTerm(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
