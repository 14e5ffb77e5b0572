// Package client talks to a running servermon over HTTP. It is what
// servermon-ctl uses; agents may embed it as well.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"servermon/internal/shared"

	"github.com/cenkalti/backoff/v4"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("not found")

// StatusError is a non-2xx reply.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
	// Retries is how many times a failed call is repeated after 5xx replies
	// or transport errors. 4xx replies are never retried.
	Retries int
	// RetryInterval is the first backoff delay.
	RetryInterval time.Duration
}

func New(cfg *shared.ClientConfig) *Client {
	return &Client{
		BaseURL:       strings.TrimRight(cfg.ServerURL, "/"),
		HTTP:          &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		Retries:       cfg.Retries,
		RetryInterval: 200 * time.Millisecond,
	}
}

// Report posts one health report.
func (c *Client) Report(ctx context.Context, rep shared.AgentReport) error {
	body, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/agent", body, http.StatusCreated, nil)
}

// Get fetches one record by id.
func (c *Client) Get(ctx context.Context, id int64) (*shared.AgentRecord, error) {
	var rec shared.AgentRecord
	err := c.do(ctx, http.MethodGet, "/agent/"+strconv.FormatInt(id, 10), nil, http.StatusOK, &rec)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Servers fetches the deduplicated server list.
func (c *Client) Servers(ctx context.Context) ([]shared.ServerEntry, error) {
	var out []shared.ServerEntry
	if err := c.do(ctx, http.MethodGet, "/servers", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, want int, out any) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.RetryInterval
	b.MaxElapsedTime = 0

	var policy backoff.BackOff = backoff.WithContext(b, ctx)
	if c.Retries >= 0 {
		policy = backoff.WithMaxRetries(policy, uint64(c.Retries))
	}

	op := func() error {
		err := c.once(ctx, method, path, body, want, out)
		var se *StatusError
		if errors.As(err, &se) && se.Code < 500 {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.Retry(op, policy)
}

func (c *Client) once(ctx context.Context, method, path string, body []byte, want int, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return backoff.Permanent(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var er shared.ErrorResponse
		msg := strings.TrimSpace(string(b))
		if json.Unmarshal(b, &er) == nil && er.Error != "" {
			msg = er.Error
		}
		return &StatusError{Code: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
