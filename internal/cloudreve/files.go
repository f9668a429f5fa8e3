package cloudreve

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/text/unicode/norm"
)

const (
	filesPath      = "/file"
	fileSourcePath = "/file/source"
)

// DefaultPageSize is the page size sent when the caller passes zero.
const DefaultPageSize = 50

var errNoFilesArray = errors.New("payload is neither a files object nor an array")

// ListFilesRequest is one page request of GET /file.
type ListFilesRequest struct {
	URI           string
	Page          int
	PageSize      int
	NextPageToken string
}

// fileResponse mirrors a backend file object.
type fileResponse struct {
	Type      EntryType `json:"type"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	UpdatedAt string    `json:"updated_at"`
}

// paginationResponse carries the continuation token. Backends disagree on
// the field name; next_token wins over next_page_token.
type paginationResponse struct {
	NextToken     string `json:"next_token"`
	NextPageToken string `json:"next_page_token"`
}

func (p *paginationResponse) token() string {
	if p == nil {
		return ""
	}

	if p.NextToken != "" {
		return p.NextToken
	}

	return p.NextPageToken
}

// listFilesResponse is the object form of the listing payload. Files is a
// pointer so an absent key is distinguishable from an empty array.
type listFilesResponse struct {
	Files      *[]fileResponse     `json:"files"`
	Pagination *paginationResponse `json:"pagination"`
}

type fileSourceRequest struct {
	URIs []string `json:"uris"`
}

type fileSourceResponse struct {
	URL     string `json:"url"`
	Expires string `json:"expires"`
}

// toEntry normalizes a backend file object. Names and paths are NFC so
// entries compare equal regardless of the uploader's platform.
func (f *fileResponse) toEntry() FileEntry {
	entry := FileEntry{
		Name: norm.NFC.String(f.Name),
		Type: f.Type,
		Path: norm.NFC.String(f.Path),
		Size: f.Size,
	}

	if entry.Path == "" {
		entry.Path = entry.Name
	}

	if f.UpdatedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, f.UpdatedAt); err == nil {
			entry.UpdatedAt = t
		}
	}

	return entry
}

// ListFiles fetches a single page of a directory listing. The payload is
// read from data.files, or from data itself when it is a bare array.
func (c *Client) ListFiles(ctx context.Context, req ListFilesRequest) (*FileListing, error) {
	pageSize := req.PageSize
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}

	query := url.Values{}
	query.Set("uri", req.URI)
	query.Set("page", strconv.Itoa(req.Page))
	query.Set("page_size", strconv.Itoa(pageSize))
	query.Set("next_page_token", req.NextPageToken)

	env, err := c.Do(ctx, http.MethodGet, filesPath, query, nil)
	if err != nil {
		return nil, err
	}

	listing, err := decodeListing(env)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("fetched listing page",
		slog.String("uri", req.URI),
		slog.Int("page", req.Page),
		slog.Int("count", len(listing.Entries)),
		slog.Bool("has_token", listing.NextToken != ""),
	)

	return listing, nil
}

// decodeListing applies the schema precedence: object with a files array,
// then bare array. Anything else is a *ProtocolError.
func decodeListing(env *Envelope) (*FileListing, error) {
	raw := bytes.TrimSpace(env.Data)
	if len(raw) == 0 {
		return nil, &ProtocolError{Body: string(env.Data), Err: errNoFilesArray}
	}

	var files []fileResponse

	var next string

	switch raw[0] {
	case '{':
		var obj listFilesResponse
		if err := decodeData(env, &obj); err != nil {
			return nil, err
		}

		if obj.Files == nil {
			return nil, &ProtocolError{Body: string(raw), Err: errNoFilesArray}
		}

		files = *obj.Files
		next = obj.Pagination.token()
	case '[':
		if err := decodeData(env, &files); err != nil {
			return nil, err
		}
	default:
		return nil, &ProtocolError{Body: string(raw), Err: errNoFilesArray}
	}

	entries := make([]FileEntry, 0, len(files))
	for i := range files {
		entries = append(entries, files[i].toEntry())
	}

	return &FileListing{Entries: entries, NextToken: next}, nil
}

// FileSource resolves a file URI to a time-limited direct download URL.
func (c *Client) FileSource(ctx context.Context, uri string) (*FileSource, error) {
	c.logger.Info("resolving file source", slog.String("uri", uri))

	env, err := c.Do(ctx, http.MethodPut, fileSourcePath, nil, fileSourceRequest{URIs: []string{uri}})
	if err != nil {
		return nil, err
	}

	if !hasData(env) {
		return nil, ErrNoSource
	}

	var sources []fileSourceResponse
	if err := decodeData(env, &sources); err != nil {
		return nil, err
	}

	if len(sources) == 0 || sources[0].URL == "" {
		return nil, ErrNoSource
	}

	src := &FileSource{URL: sources[0].URL}
	if sources[0].Expires != "" {
		if t, err := time.Parse(time.RFC3339Nano, sources[0].Expires); err == nil {
			src.Expires = t
		}
	}

	return src, nil
}

// String returns a redacted form for logging.
func (s *FileSource) String() string {
	return fmt.Sprintf("FileSource{expires=%s}", s.Expires.Format(time.RFC3339))
}
