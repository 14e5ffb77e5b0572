package client

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"servermon/internal/monitor"
	"servermon/internal/server"
	"servermon/internal/shared"
	"servermon/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func sampleReport(ip, status string) shared.AgentReport {
	return shared.AgentReport{
		ServerName:    ptr("web1"),
		ServerIP:      ptr(ip),
		NetworkStatus: ptr(status),
		CPUUsage:      ptr(12.5),
		MemoryUsage:   ptr(40.0),
		DiskUsage:     ptr(70.0),
	}
}

func newTestClient(url string, retries int) *Client {
	c := New(&shared.ClientConfig{ServerURL: url + "/", TimeoutSeconds: 5, Retries: retries})
	c.RetryInterval = time.Millisecond
	return c
}

func TestClientAgainstServer(t *testing.T) {
	api := &server.API{
		Service: monitor.NewService(memory.New()),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	srv := httptest.NewServer(server.NewRouter(api, server.RouterOptions{}))
	defer srv.Close()

	c := newTestClient(srv.URL, 0)
	ctx := context.Background()

	require.NoError(t, c.Report(ctx, sampleReport("10.0.0.1", "up")))
	require.NoError(t, c.Report(ctx, sampleReport("10.0.0.1", "down")))
	require.NoError(t, c.Report(ctx, sampleReport("10.0.0.2", "up")))

	list, err := c.Servers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "10.0.0.2", list[0].ServerIP)
	assert.Equal(t, "down", list[1].NetworkStatus)

	rec, err := c.Get(ctx, list[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", rec.ServerIP)

	_, err = c.Get(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)

	err = c.Report(ctx, shared.AgentReport{ServerIP: ptr("10.0.0.3")})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Contains(t, se.Message, "is required")
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(shared.ErrorResponse{Error: "Internal Server Error"})
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(shared.MessageResponse{Message: "Data received"})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 3)
	require.NoError(t, c.Report(context.Background(), sampleReport("10.0.0.1", "up")))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 2)
	_, err := c.Servers(context.Background())
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusGatewayTimeout, se.Code)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid report: server_ip must not be empty"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 5)
	err := c.Report(context.Background(), sampleReport("", "up"))
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "invalid report: server_ip must not be empty", se.Message)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientStopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 1000)
	c.RetryInterval = 50 * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Servers(ctx)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
