// Package browse pages through remote directory listings, remembering the
// continuation token each page hands out for the one after it.
package browse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tonimelisma/cloudreve-go/internal/cloudreve"
)

// DefaultRoot is listed when the caller passes an empty path.
const DefaultRoot = "cloudreve://my"

// Sentinel errors returned by List.
var (
	ErrNotFound    = errors.New("browse: path not found")
	ErrMalformed   = errors.New("browse: malformed listing")
	ErrInvalidPage = errors.New("browse: invalid page request")
)

// FileLister is the slice of the API client the Lister needs.
type FileLister interface {
	ListFiles(ctx context.Context, req cloudreve.ListFilesRequest) (*cloudreve.FileListing, error)
}

// Page is one page of a directory.
type Page struct {
	Entries []cloudreve.FileEntry
	HasMore bool
}

// Lister fetches directory pages and threads continuation tokens between
// them through a PageCache.
type Lister struct {
	client FileLister
	cache  *PageCache
	root   string
	logger *slog.Logger
}

// NewLister creates a Lister. A nil cache gets a fresh one; an empty root
// defaults to DefaultRoot.
func NewLister(client FileLister, cache *PageCache, root string, logger *slog.Logger) *Lister {
	if cache == nil {
		cache = NewPageCache()
	}

	if root == "" {
		root = DefaultRoot
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Lister{client: client, cache: cache, root: root, logger: logger}
}

// Root returns the path listed for an empty path argument.
func (l *Lister) Root() string {
	return l.root
}

// List fetches page of path. Page 0 never consults the cache. A missing
// token for a later page is not an error: the request goes out without one
// and the backend decides what to return.
func (l *Lister) List(ctx context.Context, path string, page, pageSize int) (*Page, error) {
	if page < 0 || pageSize < 0 {
		return nil, fmt.Errorf("%w: page=%d page_size=%d", ErrInvalidPage, page, pageSize)
	}

	if path == "" {
		path = l.root
	}

	if pageSize == 0 {
		pageSize = cloudreve.DefaultPageSize
	}

	var token string

	if page > 0 {
		tok, ok := l.cache.Get(path, page)
		if !ok {
			l.logger.Warn("no continuation token cached, listing without one",
				slog.String("path", path),
				slog.Int("page", page),
			)
		}

		token = tok
	}

	listing, err := l.client.ListFiles(ctx, cloudreve.ListFilesRequest{
		URI:           path,
		Page:          page,
		PageSize:      pageSize,
		NextPageToken: token,
	})
	if err != nil {
		return nil, classify(path, err)
	}

	l.cache.Put(path, page+1, listing.NextToken)

	return &Page{
		Entries: listing.Entries,
		HasMore: listing.NextToken != "" || len(listing.Entries) == pageSize,
	}, nil
}

// All walks every page of path until the backend reports no more, calling
// fn with each page's entries.
func (l *Lister) All(ctx context.Context, path string, pageSize int, fn func([]cloudreve.FileEntry) error) error {
	for page := 0; ; page++ {
		p, err := l.List(ctx, path, page, pageSize)
		if err != nil {
			return err
		}

		if err := fn(p.Entries); err != nil {
			return err
		}

		if !p.HasMore || len(p.Entries) == 0 {
			return nil
		}
	}
}

func classify(path string, err error) error {
	var protoErr *cloudreve.ProtocolError

	switch {
	case errors.Is(err, cloudreve.ErrNotFound):
		return fmt.Errorf("%w: %s: %w", ErrNotFound, path, err)
	case errors.As(err, &protoErr):
		return fmt.Errorf("%w: %s: %w", ErrMalformed, path, err)
	default:
		return fmt.Errorf("browse: listing %s: %w", path, err)
	}
}
