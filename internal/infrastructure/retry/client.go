package retry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Request is an outbound HTTP request. Body, when set, is encoded as JSON.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    any
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
}

// Client sends HTTP requests, retrying transport errors and timeouts.
// Responses with any status code are returned as they are.
type Client struct {
	httpClient *http.Client
	opts       Options
	headers    map[string]string
}

// NewClient creates a client whose every attempt is bounded by timeout.
func NewClient(timeout time.Duration, opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	opts.Logger = opts.Logger.Named("http.retry")
	extra := opts.Retryable
	opts.Retryable = func(err error) bool {
		return isTransportError(err) && (extra == nil || extra(err))
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		opts:       opts,
		headers: map[string]string{
			"Accept": "application/json",
		},
	}
}

// SetHeader sets a header sent with every request.
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// Do executes req with retries.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	var payload []byte
	if req.Body != nil {
		var err error
		if payload, err = json.Marshal(req.Body); err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
	}

	return DoValue(ctx, func(ctx context.Context) (*Response, error) {
		return c.once(ctx, req, payload)
	}, c.opts)
}

func (c *Client) once(ctx context.Context, req Request, payload []byte) (*Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, errors.Join(errNotRetryable, fmt.Errorf("creating HTTP request: %w", err))
	}
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
		Duration:   time.Since(start),
	}, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, URL: url})
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, url string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, URL: url, Body: body})
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, url string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPut, URL: url, Body: body})
}

// Patch performs a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, url string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPatch, URL: url, Body: body})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, url string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodDelete, URL: url})
}

var errNotRetryable = errors.New("not retryable")

// isTransportError accepts network failures, timeouts and truncated
// bodies. Caller cancellation is never retried.
func isTransportError(err error) bool {
	if errors.Is(err, errNotRetryable) || errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
