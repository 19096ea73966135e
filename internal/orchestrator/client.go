package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const userAgent = "BrandTruth-Agent/0.1.0"

// Client talks to the pipeline orchestrator over its HTTP contract.
type Client struct {
	base *url.URL
	// http carries the caller-side timeout for health probes, submissions,
	// and snapshot fetches. stream has no timeout: the push channel blocks
	// until the server closes it or the caller cancels.
	http   *http.Client
	stream *http.Client
}

// NewClient constructs a client for the orchestrator at baseURL.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("orchestrator base URL required")
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse orchestrator base URL: %w", err)
	}
	base.Path = strings.TrimRight(base.Path, "/")
	base.RawQuery = ""
	base.Fragment = ""

	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		base:   base,
		http:   &http.Client{Timeout: timeout},
		stream: &http.Client{},
	}, nil
}

// Health probes GET /health. Any transport failure or non-2xx response is an
// availability error; a 2xx response yields the parsed availability flag.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	resp, err := c.get(ctx, c.endpoint("/health"), "application/json")
	if err != nil {
		return HealthStatus{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return HealthStatus{}, fmt.Errorf("%w: health returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var status HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return HealthStatus{}, fmt.Errorf("%w: decode health response: %w", ErrUnavailable, err)
	}
	return status, nil
}

// StartJob submits a job via POST /start. 4xx responses surface as
// rejections; transport failures and 5xx responses as availability errors.
func (c *Client) StartJob(ctx context.Context, req StartRequest) (StartResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return StartResponse{}, fmt.Errorf("encode start request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/start"), bytes.NewReader(body))
	if err != nil {
		return StartResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return StartResponse{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return StartResponse{}, classifyStatus(resp.StatusCode, readErrorMessage(resp.Body))
	}

	var started StartResponse
	if err := json.NewDecoder(resp.Body).Decode(&started); err != nil {
		return StartResponse{}, fmt.Errorf("decode start response: %w", err)
	}
	if strings.TrimSpace(started.JobID) == "" {
		return StartResponse{}, fmt.Errorf("start response missing job id")
	}
	return started, nil
}

// Progress fetches the point-in-time snapshot for a job. A 404 means the
// orchestrator does not know the job yet; that is reported as a nil snapshot,
// not an error.
func (c *Client) Progress(ctx context.Context, jobID string) (*Snapshot, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, fmt.Errorf("job id required")
	}
	resp, err := c.get(ctx, c.endpoint("/progress/"+url.PathEscape(jobID)), "application/json")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyStatus(resp.StatusCode, readErrorMessage(resp.Body))
	}

	var snapshot Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("decode progress snapshot: %w", err)
	}
	return &snapshot, nil
}

// Result fetches the full terminal result for a completed job.
func (c *Client) Result(ctx context.Context, jobID string) (Result, error) {
	if strings.TrimSpace(jobID) == "" {
		return Result{}, fmt.Errorf("job id required")
	}
	resp, err := c.get(ctx, c.endpoint("/result/"+url.PathEscape(jobID)), "application/json")
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, classifyStatus(resp.StatusCode, readErrorMessage(resp.Body))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, fmt.Errorf("decode result: %w", err)
	}
	return result, nil
}

func (c *Client) endpoint(path string) string {
	ref := *c.base
	ref.Path = c.base.Path + path
	return ref.String()
}

func (c *Client) get(ctx context.Context, endpoint, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", userAgent)
	return c.http.Do(req)
}

func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return ""
	}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(data))
}
