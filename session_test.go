package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/cloudreve-go/internal/config"
)

func testAppConfig(apiURL string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.APIURL = apiURL
	cfg.Username = "me@example.com"
	cfg.Password = "pw"
	cfg.DownloadDir = "cloudreve://my/downloads"
	cfg.RetryMax = 0

	return cfg
}

func TestAppSession_LoginSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/session/token", r.URL.Path)
		_, _ = w.Write([]byte(`{"code":0,"data":{"token":{"access_token":"a1","refresh_token":"r1"}}}`))
	}))
	defer srv.Close()

	app := NewAppSession(testAppConfig(srv.URL), slog.Default())
	require.True(t, app.Login(context.Background()))

	bearer, ok := app.Session.Bearer()
	assert.True(t, ok)
	assert.Equal(t, "a1", bearer)
	assert.Equal(t, "cloudreve://my", app.Lister.Root())
}

func TestAppSession_LoginFailureIsNotFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code":40020,"msg":"Wrong password or email address"}`))
	}))
	defer srv.Close()

	app := NewAppSession(testAppConfig(srv.URL), slog.Default())
	assert.False(t, app.Login(context.Background()))

	_, ok := app.Session.Bearer()
	assert.False(t, ok)
}

func TestAppSession_RunReturnsCallbackError(t *testing.T) {
	app := NewAppSession(testAppConfig("https://cloud.example.com"), slog.Default())

	boom := errors.New("boom")
	err := app.Run(context.Background(), func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestAppSession_RunStopsRefresherWhenCallbackReturns(t *testing.T) {
	app := NewAppSession(testAppConfig("https://cloud.example.com"), slog.Default())

	var inner context.Context

	err := app.Run(context.Background(), func(ctx context.Context) error {
		inner = ctx

		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, inner)
	assert.Error(t, inner.Err())
}
