package cloudreve

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDownload_RequestBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, workflowDownloadPath, r.URL.Path)

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "cloudreve://my/downloads", body["dst"])
		assert.Equal(t, []any{"magnet:?xt=urn:btih:abc"}, body["src"])

		writeEnvelope(t, w, 0, "", nil)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, staticBearer("tok"))
	err := client.CreateDownload(context.Background(), "cloudreve://my/downloads", []string{"magnet:?xt=urn:btih:abc"})
	require.NoError(t, err)
}

func TestCreateDownload_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(t, w, 403, "no permission", nil)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, staticBearer("tok"))
	err := client.CreateDownload(context.Background(), "cloudreve://my", []string{"http://x"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestListTasks_Decode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, workflowPath, r.URL.Path)
		assert.Equal(t, "downloading", r.URL.Query().Get("category"))
		assert.Equal(t, "100", r.URL.Query().Get("page_size"))

		_, _ = w.Write([]byte(`{"code":0,"data":{"tasks":[
			{
				"status":"processing",
				"summary":{"phase":"monitor","props":{
					"src_str":"http://example.com/a.iso",
					"download":{
						"name":"a.iso","size":2097152,"downloaded":1048576,"download_speed":512,
						"files":[{"name":"a.iso","size":2097152,"progress":0.5}]
					}
				}}
			},
			{"status":"queued","summary":{"props":{"src_str":"http://example.com/b.iso"}}},
			{"status":"error","error":"tracker unreachable"}
		]}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, staticBearer("tok"))
	tasks, err := client.ListTasks(context.Background(), "downloading")
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	first := tasks[0]
	assert.Equal(t, "processing", first.Status)
	assert.Equal(t, "http://example.com/a.iso", first.Source)
	require.NotNil(t, first.Download)
	assert.Equal(t, "a.iso", first.Download.Name)
	assert.Equal(t, int64(2097152), first.Download.TotalSize)
	assert.Equal(t, int64(1048576), first.Download.Downloaded)
	assert.Equal(t, int64(512), first.Download.Speed)
	require.Len(t, first.Download.Files, 1)
	assert.InDelta(t, 0.5, first.Download.Files[0].Progress, 1e-9)

	second := tasks[1]
	assert.Equal(t, "http://example.com/b.iso", second.Source)
	assert.Nil(t, second.Download)

	third := tasks[2]
	assert.Equal(t, TaskStatusError, third.Status)
	assert.Equal(t, "tracker unreachable", third.Error)
	assert.Empty(t, third.Source)
	assert.Nil(t, third.Download)
}

func TestListTasks_TotalSizeFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code":0,"data":{"tasks":[
			{"summary":{"props":{"src_str":"u","download":{"name":"n","total_size":4096}}}}
		]}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, staticBearer("tok"))
	tasks, err := client.ListTasks(context.Background(), "downloading")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.NotNil(t, tasks[0].Download)
	assert.Equal(t, int64(4096), tasks[0].Download.TotalSize)
	assert.Empty(t, tasks[0].Download.Files)
}

func TestListTasks_NullData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code":0,"data":null}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, staticBearer("tok"))
	tasks, err := client.ListTasks(context.Background(), "downloading")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestListTasks_MalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code":0,"data":{"tasks":"soon"}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, staticBearer("tok"))
	_, err := client.ListTasks(context.Background(), "downloading")

	var protoErr *ProtocolError
	assert.ErrorAs(t, err, &protoErr)
}
