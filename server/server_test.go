package server

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/golang/snappy"
	"github.com/prometheus/prometheus/prompb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/goactivity/server/handlers"
)

func newTestServer(t *testing.T, configPath string) (*Server, *httptest.Server, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	srv, err := New(configPath, WithLogOutput(&logs))
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts, &logs
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func request(t *testing.T, method, url, body string) (*http.Response, string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func TestNew_Defaults(t *testing.T) {
	srv, err := New("", WithLogOutput(io.Discard))
	require.NoError(t, err)

	assert.Equal(t, ":8080", srv.addr)
	assert.Equal(t, "INFO", srv.LogLevel())
	assert.Nil(t, srv.NextPush())
	assert.Equal(t, 0, srv.Store().Len())
}

func TestNew_MissingConfig(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing.yaml"), WithLogOutput(io.Discard))
	assert.Error(t, err)
}

func TestNew_ListenAddrOverride(t *testing.T) {
	path := writeConfig(t, "listener:\n  addr: \":9000\"\n")
	srv, err := New(path, WithListenAddr("127.0.0.1:0"), WithLogOutput(io.Discard))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:0", srv.addr)
}

func TestServer_Routes(t *testing.T) {
	_, ts, _ := newTestServer(t, "")

	resp, body := request(t, http.MethodGet, ts.URL+"/", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Hello world!", body)

	resp, body = request(t, http.MethodGet, ts.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body)

	resp, _ = request(t, http.MethodGet, ts.URL+"/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = request(t, http.MethodGet, ts.URL+"/config", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "8080")
}

func TestServer_ActivityLifecycle(t *testing.T) {
	srv, ts, _ := newTestServer(t, "")
	url := ts.URL + "/activities"

	resp, body := request(t, http.MethodPost, url, `{"title":"A","description":"B","category":1}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"message":"activity created","id":0}`, body)

	resp, _ = request(t, http.MethodPost, url, `{"title":"C","description":"D","category":1}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = request(t, http.MethodPost, url, `{"title":"E","description":"F","category":2}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = request(t, http.MethodPatch, url+"?id=2", `{"category":3}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = request(t, http.MethodDelete, url+"?category=1", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = request(t, http.MethodGet, url, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message":"all activities","activities":[{"id":2,"title":"E","description":"F","category":3}]}`, body)

	resp, body = request(t, http.MethodPost, url, `{"title":"G","description":"H","category":9}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, `"kind":"invalid_category"`)

	stats := srv.Stats()
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 3, stats.NextID)
}

func TestServer_Metrics(t *testing.T) {
	_, ts, _ := newTestServer(t, "")

	request(t, http.MethodPost, ts.URL+"/activities", `{"title":"A","description":"B","category":2}`)
	request(t, http.MethodGet, ts.URL+"/activities?id=7", "")
	request(t, http.MethodPost, ts.URL+"/activities", `{"title":"C","description":"D","category":1}`)
	request(t, http.MethodDelete, ts.URL+"/activities?id=1", "")

	resp, body := request(t, http.MethodGet, ts.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `activity_operations_total{operation="create",result="ok"} 2`)
	assert.Contains(t, body, `activity_operations_total{operation="read",result="id_not_found"} 1`)
	assert.Contains(t, body, `activities{category="in_progress"} 1`)
	assert.Contains(t, body, `activities{category="done"} 0`)
	assert.Contains(t, body, `activity_next_id 2`)
	assert.Contains(t, body, "activities_deleted_total 1")
}

func TestServer_APIStatus(t *testing.T) {
	_, ts, _ := newTestServer(t, "")
	request(t, http.MethodPost, ts.URL+"/activities", `{"title":"A","description":"B","category":3}`)

	resp, body := request(t, http.MethodGet, ts.URL+"/api/status", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status handlers.APIStatusResponse
	require.NoError(t, json.Unmarshal([]byte(body), &status))
	assert.Equal(t, 1, status.Activities.Total)
	assert.Equal(t, 1, status.Activities.ByCategory["done"])
	assert.Equal(t, 1, status.Activities.NextID)
	assert.False(t, status.Metrics.Scheduled)
	assert.NotEmpty(t, status.Server.Hostname)
}

func TestServer_Reload(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: info\n")
	srv, ts, _ := newTestServer(t, path)
	assert.Equal(t, "INFO", srv.LogLevel())

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o600))

	resp, body := request(t, http.MethodPost, ts.URL+"/reload", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"log_level":"DEBUG"}`, body)
	assert.Equal(t, "debug", srv.Config().Logging.Level)

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0o600))

	resp, _ = request(t, http.MethodPost, ts.URL+"/reload", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "DEBUG", srv.LogLevel(), "failed reload keeps the previous level")
	assert.Equal(t, "debug", srv.Config().Logging.Level)
}

func TestServer_StoreSurvivesReload(t *testing.T) {
	path := writeConfig(t, "")
	srv, ts, _ := newTestServer(t, path)

	request(t, http.MethodPost, ts.URL+"/activities", `{"title":"A","description":"B","category":1}`)
	require.NoError(t, srv.Reload())

	assert.Equal(t, 1, srv.Store().Len())
}

func TestServer_RequestLogging(t *testing.T) {
	_, ts, logs := newTestServer(t, "")

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/activities", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "abc-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "abc-123", resp.Header.Get(RequestIDHeader))
	assert.Contains(t, logs.String(), `"request_id":"abc-123"`)
	assert.Contains(t, logs.String(), `"path":"/activities"`)
}

func TestServer_ServeShutdown(t *testing.T) {
	srv, err := New("", WithLogOutput(io.Discard))
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServer_PushOnShutdown(t *testing.T) {
	received := make(chan []prompb.TimeSeries, 4)
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if !assert.NoError(t, err) {
			return
		}
		decoded, err := snappy.Decode(nil, body)
		if !assert.NoError(t, err) {
			return
		}
		var writeReq prompb.WriteRequest
		if !assert.NoError(t, proto.Unmarshal(decoded, &writeReq)) {
			return
		}
		received <- writeReq.Timeseries
		w.WriteHeader(http.StatusNoContent)
	}))
	defer remote.Close()

	path := writeConfig(t, "monitoring:\n  push_url: "+remote.URL+"\n  push_schedule: \"0 0 1 1 *\"\n")
	srv, err := New(path, WithLogOutput(io.Discard))
	require.NoError(t, err)
	require.NotNil(t, srv.NextPush())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx, ln) }()

	cancel()
	require.NoError(t, <-errCh)

	select {
	case series := <-received:
		var names []string
		for _, ts := range series {
			for _, l := range ts.Labels {
				if l.Name == "__name__" {
					names = append(names, l.Value)
				}
			}
		}
		assert.Contains(t, names, "activityd_activities")
		assert.Contains(t, names, "activityd_activity_next_id")
	case <-time.After(2 * time.Second):
		t.Fatal("no metrics pushed on shutdown")
	}
}

func TestServer_ServeTLS(t *testing.T) {
	certFile, keyFile := writeCertPair(t, t.TempDir(), "localhost")
	path := writeConfig(t, "listener:\n  tls:\n    cert_file: "+certFile+"\n    key_file: "+keyFile+"\n")
	srv, err := New(path, WithLogOutput(io.Discard))
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx, ln)

	client := &http.Client{Transport: &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}}
	url := "https://" + ln.Addr().String() + "/health"
	require.Eventually(t, func() bool {
		resp, err := client.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK && resp.TLS != nil
	}, 2*time.Second, 10*time.Millisecond)
}
