package retry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// dropFirst closes the connection of the first n requests without answering.
func dropFirst(t *testing.T, n int32, next http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= n {
			conn, _, err := w.(http.Hijacker).Hijack()
			require.NoError(t, err)
			_ = conn.Close()
			return
		}
		next(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestClient_RetriesTransportErrors(t *testing.T) {
	logger, logs := observed()
	srv, hits := dropFirst(t, 2, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"ok":true}`)
	})

	c := NewClient(time.Second, Options{MaxRetries: 3, Logger: logger})
	resp, err := c.Get(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, 2, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	srv, hits := dropFirst(t, 10, nil)

	c := NewClient(time.Second, Options{MaxRetries: 1})
	_, err := c.Delete(context.Background(), srv.URL)

	require.Error(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestClient_DoesNotRetryStatusCodes(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(time.Second, Options{MaxRetries: 3})
	resp, err := c.Get(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_ResendsBodyOnRetry(t *testing.T) {
	type payload struct {
		Handle string `json:"handle"`
	}
	var received []payload
	var methods []string
	srv, _ := dropFirst(t, 1, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "token", r.Header.Get("X-Api-Key"))
		var p payload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		received = append(received, p)
		methods = append(methods, r.Method)
		w.WriteHeader(http.StatusCreated)
	})

	c := NewClient(time.Second, Options{MaxRetries: 2})
	c.SetHeader("X-Api-Key", "token")

	resp, err := c.Post(context.Background(), srv.URL, payload{Handle: "ann"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	_, err = c.Put(context.Background(), srv.URL, payload{Handle: "bob"})
	require.NoError(t, err)
	_, err = c.Patch(context.Background(), srv.URL, payload{Handle: "cy"})
	require.NoError(t, err)

	assert.Equal(t, []payload{{"ann"}, {"bob"}, {"cy"}}, received)
	assert.Equal(t, []string{http.MethodPost, http.MethodPut, http.MethodPatch}, methods)
}

func TestClient_InvalidRequestIsNotRetried(t *testing.T) {
	c := NewClient(time.Second, Options{MaxRetries: 5, Delay: time.Second})

	start := time.Now()
	_, err := c.Do(context.Background(), Request{Method: "BAD METHOD", URL: "http://localhost"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating HTTP request")
	assert.Less(t, time.Since(start), time.Second)
}

func TestClient_UnencodableBody(t *testing.T) {
	c := NewClient(time.Second, Options{})
	_, err := c.Post(context.Background(), "http://localhost", map[string]any{"fn": func() {}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "marshaling request body")
}
