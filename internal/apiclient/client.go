// Package apiclient is the single point of HTTP access to the SEO backend's
// versioned REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultBasePath = "/api/v1"
	RequestIDHeader = "X-Request-ID"
)

type Config struct {
	BaseURL  string
	BasePath string
	Timeout  time.Duration
	Headers  map[string]string
}

type Client struct {
	baseURL  string
	basePath string
	headers  map[string]string
	http     *http.Client
	logger   *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func New(cfg Config, opts ...Option) *Client {
	if cfg.BasePath == "" {
		cfg.BasePath = DefaultBasePath
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	headers := map[string]string{
		"Accept":       "application/json",
		"Content-Type": "application/json",
	}
	for k, v := range cfg.Headers {
		headers[k] = v
	}

	c := &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		basePath: "/" + strings.Trim(cfg.BasePath, "/"),
		headers:  headers,
		http:     &http.Client{Timeout: cfg.Timeout},
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type requestOptions struct {
	headers map[string]string
	query   url.Values
}

// RequestOption customises a single call.
type RequestOption func(*requestOptions)

func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		if o.headers == nil {
			o.headers = make(map[string]string)
		}
		o.headers[key] = value
	}
}

func WithQuery(q url.Values) RequestOption {
	return func(o *requestOptions) {
		o.query = q
	}
}

// URL resolves an endpoint. Absolute URLs pass through unchanged; anything
// else is placed under the configured base URL and API base path.
func (c *Client) URL(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return c.baseURL + c.basePath + "/" + strings.TrimLeft(endpoint, "/")
}

// Request issues one HTTP call. body is JSON-encoded for mutating methods and
// ignored otherwise. Non-2xx statuses come back as *HTTPError; nothing is retried.
func (c *Client) Request(ctx context.Context, method, endpoint string, body any, opts ...RequestOption) (*Response, error) {
	var ro requestOptions
	for _, opt := range opts {
		opt(&ro)
	}

	target := c.URL(endpoint)
	if len(ro.query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + ro.query.Encode()
	}

	var reader io.Reader
	if body != nil && hasBody(method) {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range ro.headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get(RequestIDHeader) == "" {
		req.Header.Set(RequestIDHeader, uuid.NewString())
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("backend request failed",
			"method", method,
			"url", target,
			"error", err)
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	c.logger.Debug("backend request",
		"method", method,
		"url", target,
		"status", resp.StatusCode,
		"request_id", req.Header.Get(RequestIDHeader),
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Method:     method,
			URL:        target,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	return newResponse(resp, data), nil
}

func hasBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

type ResponseKind int

const (
	KindEmpty ResponseKind = iota
	KindJSON
	KindBlob
	KindText
)

// Response is a successful backend reply, classified by its content type.
type Response struct {
	StatusCode  int
	ContentType string
	Kind        ResponseKind
	JSON        json.RawMessage
	Blob        []byte
	Filename    string
	Text        string
}

func newResponse(resp *http.Response, data []byte) *Response {
	r := &Response{StatusCode: resp.StatusCode}

	if len(data) == 0 || resp.StatusCode == http.StatusNoContent {
		r.Kind = KindEmpty
		return r
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	r.ContentType = mediaType

	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		r.Kind = KindJSON
		r.JSON = json.RawMessage(data)
	case mediaType == "application/pdf" || mediaType == "application/octet-stream":
		r.Kind = KindBlob
		r.Blob = data
		if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
			r.Filename = params["filename"]
		}
	default:
		r.Kind = KindText
		r.Text = string(data)
	}

	return r
}

// Decode parses a JSON payload into v. Payloads that are not JSON or do not
// fit v fail with a *DecodeError naming the resource.
func (r *Response) Decode(resource string, v any) error {
	switch r.Kind {
	case KindEmpty:
		return &DecodeError{Resource: resource, Err: ErrNoContent}
	case KindJSON:
	default:
		return &DecodeError{Resource: resource, Err: fmt.Errorf("unexpected content type %q", r.ContentType)}
	}

	if err := json.Unmarshal(r.JSON, v); err != nil {
		return &DecodeError{Resource: resource, Err: err}
	}
	return nil
}
