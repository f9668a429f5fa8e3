package linkresolve

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, resolvePath, r.URL.Path)
		assert.Equal(t, "https://t.me/chan/42", r.URL.Query().Get("url"))
		_, _ = w.Write([]byte(`{"ok":true,"stream_link":"https://stream.example.com/42"}`))
	}))
	defer srv.Close()

	r := New(srv.URL+"/", nil, 0, nil)
	link, err := r.Resolve(context.Background(), "https://t.me/chan/42")
	require.NoError(t, err)
	assert.Equal(t, "https://stream.example.com/42", link)
}

func TestResolve_Unresolved(t *testing.T) {
	for _, body := range []string{
		`{"ok":false}`,
		`{"ok":true}`,
		`{"ok":false,"stream_link":"https://x"}`,
	} {
		t.Run(body, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := New(srv.URL, nil, 0, nil).Resolve(context.Background(), "https://t.me/chan/1")
			assert.ErrorIs(t, err, ErrUnresolved)
		})
	}
}

func TestResolve_UndecodableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`bad gateway`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil, 0, nil).Resolve(context.Background(), "https://t.me/chan/1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnresolved)
	assert.Contains(t, err.Error(), "HTTP 502")
}

func TestResolve_NotConfigured(t *testing.T) {
	_, err := New("", nil, 0, nil).Resolve(context.Background(), "https://t.me/chan/1")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
