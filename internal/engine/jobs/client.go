package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rendis/kectap/internal/model"
)

const (
	createPath      = "/api/gmaps/kecamatan/scrape"
	defaultTimeout  = 30 * time.Second
	maxResponseSize = 32 << 20
)

// Client talks to the scrape backend. It is the only component that
// performs network I/O for a job.
type Client struct {
	http   *http.Client
	logger *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient builds a client whose calls time out after timeout
// (30s when zero).
func NewClient(timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	c := &Client{
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				DialContext:         dialer.DialContext,
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Submit creates a job and returns its handle.
func (c *Client) Submit(ctx context.Context, baseURL string, req model.JobRequest) (model.JobHandle, error) {
	body, err := EncodeRequest(req)
	if err != nil {
		return model.JobHandle{}, &SubmissionError{Reason: "encoding request", Err: err}
	}

	status, data, err := c.do(ctx, http.MethodPost, endpoint(baseURL, createPath), body)
	if err != nil {
		return model.JobHandle{}, &SubmissionError{Err: err}
	}
	if status/100 != 2 {
		return model.JobHandle{}, &SubmissionError{StatusCode: status, Reason: "check the backend URL"}
	}

	id, err := decodeJobID(data)
	if err != nil {
		return model.JobHandle{}, &SubmissionError{StatusCode: status, Reason: "response does not contain a jobId", Err: err}
	}

	c.logger.Info("jobs.submit.created", "job_id", id, "kecamatan", len(req.Kecamatan), "columns", len(req.Columns))
	return model.JobHandle{ID: id, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func decodeJobID(data []byte) (string, error) {
	var resp struct {
		JobID any `json:"jobId"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&resp); err != nil {
		return "", fmt.Errorf("decoding body: %w", err)
	}
	switch v := resp.JobID.(type) {
	case string:
		if v != "" {
			return v, nil
		}
	case json.Number:
		return v.String(), nil
	}
	return "", errors.New("missing jobId")
}

// Status fetches the current status snapshot of h.
func (c *Client) Status(ctx context.Context, h model.JobHandle) (model.JobStatus, error) {
	status, data, err := c.do(ctx, http.MethodGet, jobURL(h, "status"), nil)
	if err != nil {
		return nil, &TransportError{Op: "status", Err: err}
	}
	if status/100 != 2 {
		return nil, &TransportError{Op: "status", StatusCode: status}
	}
	st, err := model.DecodeJobStatus(data)
	if err != nil {
		return nil, &TransportError{Op: "status", Err: err}
	}
	return st, nil
}

// Preview fetches at most limit result rows of a finished job.
func (c *Client) Preview(ctx context.Context, h model.JobHandle, limit int) (*model.Preview, error) {
	u := jobURL(h, "preview") + "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	status, data, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &TransportError{Op: "preview", Err: err}
	}
	if status/100 != 2 {
		return nil, &TransportError{Op: "preview", StatusCode: status}
	}
	var p model.Preview
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, &TransportError{Op: "preview", Err: fmt.Errorf("decoding body: %w", err)}
	}
	return &p, nil
}

// DownloadURL is where the XLSX export of h can be fetched. No I/O.
func (c *Client) DownloadURL(h model.JobHandle) string {
	return DownloadURL(h)
}

// DownloadURL builds the export URL of h.
func DownloadURL(h model.JobHandle) string {
	return jobURL(h, "download") + "?format=xlsx"
}

func endpoint(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + path
}

func jobURL(h model.JobHandle, action string) string {
	return endpoint(h.BaseURL, "/api/jobs/"+url.PathEscape(h.ID)+"/"+action)
}

func (c *Client) do(ctx context.Context, method, reqURL string, body []byte) (int, []byte, error) {
	reqID := uuid.New().String()
	start := time.Now()

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, rd)
	if err != nil {
		return 0, nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-Id", reqID)

	c.logger.Debug("jobs.http.request", "req_id", reqID, "method", method, "url", reqURL, "content_length", len(body))

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("jobs.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return 0, nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		c.logger.Warn("jobs.http.response", "req_id", reqID, "status", resp.StatusCode, "elapsed_ms", time.Since(start).Milliseconds())
		return resp.StatusCode, nil, nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading body: %w", err)
	}
	c.logger.Debug("jobs.http.response", "req_id", reqID, "status", resp.StatusCode, "bytes", len(data), "elapsed_ms", time.Since(start).Milliseconds())
	return resp.StatusCode, data, nil
}
