package browse

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/cloudreve-go/internal/cloudreve"
)

// fakeFiles serves canned listings keyed by page and records every request.
type fakeFiles struct {
	mu       sync.Mutex
	pages    map[int]*cloudreve.FileListing
	err      error
	requests []cloudreve.ListFilesRequest
}

func (f *fakeFiles) ListFiles(_ context.Context, req cloudreve.ListFilesRequest) (*cloudreve.FileListing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)

	if f.err != nil {
		return nil, f.err
	}

	if l, ok := f.pages[req.Page]; ok {
		return l, nil
	}

	return &cloudreve.FileListing{}, nil
}

func entries(n int) []cloudreve.FileEntry {
	out := make([]cloudreve.FileEntry, n)
	for i := range out {
		out[i] = cloudreve.FileEntry{Name: fmt.Sprintf("f%d", i)}
	}

	return out
}

func TestList_EmptyPathUsesRoot(t *testing.T) {
	fake := &fakeFiles{}
	l := NewLister(fake, nil, "", nil)

	_, err := l.List(context.Background(), "", 0, 0)
	require.NoError(t, err)
	require.Len(t, fake.requests, 1)
	assert.Equal(t, DefaultRoot, fake.requests[0].URI)
	assert.Equal(t, cloudreve.DefaultPageSize, fake.requests[0].PageSize)
}

func TestList_CustomRoot(t *testing.T) {
	fake := &fakeFiles{}
	l := NewLister(fake, nil, "cloudreve://my/media", nil)

	_, err := l.List(context.Background(), "", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, "cloudreve://my/media", fake.requests[0].URI)
	assert.Equal(t, "cloudreve://my/media", l.Root())
}

func TestList_TokenThreadedToNextPage(t *testing.T) {
	fake := &fakeFiles{pages: map[int]*cloudreve.FileListing{
		0: {Entries: entries(2), NextToken: "T1"},
		1: {Entries: entries(1)},
	}}
	cache := NewPageCache()
	l := NewLister(fake, cache, "", nil)

	p0, err := l.List(context.Background(), "cloudreve://my", 0, 2)
	require.NoError(t, err)
	assert.True(t, p0.HasMore)

	tok, ok := cache.Get("cloudreve://my", 1)
	require.True(t, ok)
	assert.Equal(t, "T1", tok)

	p1, err := l.List(context.Background(), "cloudreve://my", 1, 2)
	require.NoError(t, err)
	assert.False(t, p1.HasMore)

	require.Len(t, fake.requests, 2)
	assert.Equal(t, "", fake.requests[0].NextPageToken)
	assert.Equal(t, "T1", fake.requests[1].NextPageToken)
}

func TestList_PageZeroIgnoresCache(t *testing.T) {
	fake := &fakeFiles{}
	cache := NewPageCache()
	cache.Put("cloudreve://my", 0, "stale")
	l := NewLister(fake, cache, "", nil)

	_, err := l.List(context.Background(), "cloudreve://my", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, "", fake.requests[0].NextPageToken)
}

func TestList_MissingTokenIsBestEffort(t *testing.T) {
	fake := &fakeFiles{pages: map[int]*cloudreve.FileListing{
		3: {Entries: entries(1)},
	}}
	l := NewLister(fake, nil, "", nil)

	p, err := l.List(context.Background(), "cloudreve://my", 3, 10)
	require.NoError(t, err)
	assert.Len(t, p.Entries, 1)
	assert.Equal(t, "", fake.requests[0].NextPageToken)
	assert.Equal(t, 3, fake.requests[0].Page)
}

func TestList_HasMore(t *testing.T) {
	tests := []struct {
		name    string
		listing *cloudreve.FileListing
		want    bool
	}{
		{"token present", &cloudreve.FileListing{Entries: entries(1), NextToken: "t"}, true},
		{"full page without token", &cloudreve.FileListing{Entries: entries(10)}, true},
		{"short page without token", &cloudreve.FileListing{Entries: entries(3)}, false},
		{"empty", &cloudreve.FileListing{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeFiles{pages: map[int]*cloudreve.FileListing{0: tt.listing}}
			l := NewLister(fake, nil, "", nil)

			p, err := l.List(context.Background(), "cloudreve://my", 0, 10)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.HasMore)
		})
	}
}

func TestList_EmptyDirectory(t *testing.T) {
	cache := NewPageCache()
	l := NewLister(&fakeFiles{}, cache, "", nil)

	p, err := l.List(context.Background(), "cloudreve://my/empty", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, p.Entries)
	assert.False(t, p.HasMore)
	assert.Equal(t, 0, cache.Len())
}

func TestList_InvalidPage(t *testing.T) {
	fake := &fakeFiles{}
	l := NewLister(fake, nil, "", nil)

	_, err := l.List(context.Background(), "cloudreve://my", -1, 10)
	assert.ErrorIs(t, err, ErrInvalidPage)

	_, err = l.List(context.Background(), "cloudreve://my", 0, -5)
	assert.ErrorIs(t, err, ErrInvalidPage)

	assert.Empty(t, fake.requests)
}

func TestList_ErrorClassification(t *testing.T) {
	notFound := &cloudreve.APIError{Code: 40016, Msg: "Parent folder not exist", Err: cloudreve.ErrNotFound}
	malformed := &cloudreve.ProtocolError{Body: "[", Err: errors.New("bad")}
	other := &cloudreve.TransportError{StatusCode: 502}

	l := NewLister(&fakeFiles{err: notFound}, nil, "", nil)
	_, err := l.List(context.Background(), "cloudreve://my/x", 0, 10)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, cloudreve.ErrNotFound)

	l = NewLister(&fakeFiles{err: malformed}, nil, "", nil)
	_, err = l.List(context.Background(), "cloudreve://my/x", 0, 10)
	assert.ErrorIs(t, err, ErrMalformed)

	var protoErr *cloudreve.ProtocolError
	assert.ErrorAs(t, err, &protoErr)

	l = NewLister(&fakeFiles{err: other}, nil, "", nil)
	_, err = l.List(context.Background(), "cloudreve://my/x", 0, 10)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrMalformed)

	var transportErr *cloudreve.TransportError
	assert.ErrorAs(t, err, &transportErr)
}

func TestAll_WalksEveryPage(t *testing.T) {
	fake := &fakeFiles{pages: map[int]*cloudreve.FileListing{
		0: {Entries: entries(2), NextToken: "T1"},
		1: {Entries: entries(2), NextToken: "T2"},
		2: {Entries: entries(1)},
	}}
	l := NewLister(fake, nil, "", nil)

	var total int

	err := l.All(context.Background(), "cloudreve://my", 2, func(e []cloudreve.FileEntry) error {
		total += len(e)

		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, fake.requests, 3)
	assert.Equal(t, "T2", fake.requests[2].NextPageToken)
}

func TestAll_StopsOnCallbackError(t *testing.T) {
	fake := &fakeFiles{pages: map[int]*cloudreve.FileListing{
		0: {Entries: entries(2), NextToken: "T1"},
	}}
	l := NewLister(fake, nil, "", nil)
	stop := errors.New("stop")

	err := l.All(context.Background(), "cloudreve://my", 2, func([]cloudreve.FileEntry) error { return stop })
	assert.ErrorIs(t, err, stop)
	assert.Len(t, fake.requests, 1)
}
