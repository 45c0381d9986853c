package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repoassess/internal/assess"
	"repoassess/internal/jobs"
	"repoassess/internal/scan"
	"repoassess/internal/store"
	"repoassess/internal/types"
)

func quiet() jobs.Option { return jobs.WithLogger(log.New(io.Discard, "", 0)) }

func result(path string) *types.RepoAssessmentResult {
	return &types.RepoAssessmentResult{
		Graph: &types.RepositoryGraph{Metadata: types.GraphMetadata{RootPath: path, RepositoryHash: "abc123"}},
	}
}

func newAPI(t *testing.T, run jobs.RunFunc, st store.Store) (*jobs.Store, *httptest.Server) {
	t.Helper()
	js := jobs.NewStore(run, quiet(), jobs.WithErrorKind(assess.Kind))
	srv := httptest.NewServer(NewAPI(js, st).Routes())
	t.Cleanup(func() {
		srv.Close()
		js.Close()
	})
	return js, srv
}

func post(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func okRun(_ context.Context, req jobs.Request, progress func(string)) (*types.RepoAssessmentResult, error) {
	progress("scanning")
	return result(req.Path), nil
}

func TestHealthz(t *testing.T) {
	_, srv := newAPI(t, okRun, nil)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	_, srv := newAPI(t, okRun, nil)
	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/v1/assessments", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCreateAssessment_Async(t *testing.T) {
	js, srv := newAPI(t, okRun, nil)
	resp, body := post(t, srv.URL+"/v1/assessments", `{"path":"/repo"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	id, _ := body["jobId"].(string)
	require.NotEmpty(t, id)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := js.Wait(ctx, id)
	require.NoError(t, err)

	got, err := http.Get(srv.URL + "/v1/assessments/" + id)
	require.NoError(t, err)
	defer got.Body.Close()
	var view jobs.View
	require.NoError(t, json.NewDecoder(got.Body).Decode(&view))
	assert.Equal(t, jobs.StatusSucceeded, view.Status)
	require.NotNil(t, view.Result)
	assert.Equal(t, "/repo", view.Result.Graph.Metadata.RootPath)
}

func TestCreateAssessment_Wait(t *testing.T) {
	_, srv := newAPI(t, okRun, nil)
	resp, body := post(t, srv.URL+"/v1/assessments", `{"path":"/repo","wait":true}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "graph")
}

func TestCreateAssessment_Errors(t *testing.T) {
	failing := func(context.Context, jobs.Request, func(string)) (*types.RepoAssessmentResult, error) {
		return nil, scan.ErrNotFound
	}
	_, srv := newAPI(t, failing, nil)

	tests := []struct {
		name string
		body string
		code int
		kind string
	}{
		{"malformed", `{`, http.StatusBadRequest, assess.KindInvalidArgument},
		{"neither", `{}`, http.StatusBadRequest, assess.KindInvalidArgument},
		{"both", `{"path":"/a","url":"https://h/r"}`, http.StatusBadRequest, assess.KindInvalidArgument},
		{"failed job", `{"path":"/missing","wait":true}`, http.StatusNotFound, assess.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := post(t, srv.URL+"/v1/assessments", tt.body)
			assert.Equal(t, tt.code, resp.StatusCode)
			errBody, _ := body["error"].(map[string]any)
			require.NotNil(t, errBody)
			assert.Equal(t, tt.kind, errBody["kind"])
		})
	}
}

func TestUnknownAssessment(t *testing.T) {
	_, srv := newAPI(t, okRun, nil)
	resp, err := http.Get(srv.URL + "/v1/assessments/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/v1/assessments/nope", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCancelAssessment(t *testing.T) {
	blocking := func(ctx context.Context, _ jobs.Request, _ func(string)) (*types.RepoAssessmentResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	js, srv := newAPI(t, blocking, nil)
	_, body := post(t, srv.URL+"/v1/assessments", `{"path":"/repo"}`)
	id := body["jobId"].(string)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/v1/assessments/"+id, nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	view, err := js.Wait(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCanceled, view.Status)
	require.NotNil(t, view.Error)
	assert.Equal(t, assess.KindCanceled, view.Error.Kind)
}

func TestWatchAssessment(t *testing.T) {
	release := make(chan struct{})
	run := func(ctx context.Context, req jobs.Request, progress func(string)) (*types.RepoAssessmentResult, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		progress("scanning")
		return result(req.Path), nil
	}
	_, srv := newAPI(t, run, nil)
	_, body := post(t, srv.URL+"/v1/assessments", `{"path":"/repo"}`)
	id := body["jobId"].(string)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/assessments/" + id + "/watch"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	close(release)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var statuses []jobs.Status
	for {
		var ev jobs.Event
		if err := conn.ReadJSON(&ev); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "%v", err)
			break
		}
		assert.Equal(t, id, ev.JobID)
		statuses = append(statuses, ev.Status)
	}
	require.NotEmpty(t, statuses)
	assert.Equal(t, jobs.StatusSucceeded, statuses[len(statuses)-1])
}

func TestWatchUnknownJob(t *testing.T) {
	_, srv := newAPI(t, okRun, nil)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/assessments/nope/watch"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGraphs(t *testing.T) {
	st := store.NewMemoryStore()
	require.NoError(t, st.Put(context.Background(), "abc123", []byte(`{"nodes":[]}`)))
	_, srv := newAPI(t, okRun, st)

	resp, err := http.Get(srv.URL + "/v1/graphs")
	require.NoError(t, err)
	var keys []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&keys))
	resp.Body.Close()
	assert.Equal(t, []string{"abc123"}, keys)

	resp, err = http.Get(srv.URL + "/v1/graphs/ABC123")
	require.NoError(t, err)
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, bytes.Equal([]byte(`{"nodes":[]}`), data))

	resp, err = http.Get(srv.URL + "/v1/graphs/ffff")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/v1/graphs/not-hex")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGraphsWithoutStore(t *testing.T) {
	_, srv := newAPI(t, okRun, nil)
	resp, err := http.Get(srv.URL + "/v1/graphs/abc")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadGateway, statusFor(assess.KindOperation))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(assess.KindUnavailable))
	assert.Equal(t, http.StatusInternalServerError, statusFor("weird"))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assess.Kind(errors.New("x"))))
}

func TestServerShutdown(t *testing.T) {
	s := New("127.0.0.1:0", http.NotFoundHandler())
	errc := make(chan error, 1)
	go func() { errc <- s.Start() }()
	time.Sleep(50 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.NoError(t, <-errc)
}
