// Package backend is a client for the CDN configuration server API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ErrNotFound is returned when the backend answers 404 for a named entity.
var ErrNotFound = errors.New("not found")

// StatusError is returned for any non-2xx backend response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend %s %s returned %d: %s", e.Method, e.Path, e.Code, strings.TrimSpace(e.Body))
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}

var (
	backendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cdndash_backend_requests_total",
			Help: "Total number of requests sent to the configuration server.",
		},
		[]string{"op", "code"},
	)
	backendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cdndash_backend_request_duration_seconds",
			Help:    "Configuration server request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(backendRequestsTotal)
	prometheus.MustRegister(backendRequestDuration)
}

// ParseBase parses the configured API base URL. The result always ends in a
// slash so relative endpoint paths resolve beneath it.
func ParseBase(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, errors.New("backend url is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("backend url %q: missing host", raw)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithRequestID propagates a request id taken from the call's context as
// X-Request-ID.
func WithRequestID(fn func(context.Context) string) Option {
	return func(c *Client) { c.requestID = fn }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// Client wraps the configuration server REST API.
type Client struct {
	httpClient *http.Client
	base       *url.URL
	token      string
	requestID  func(context.Context) string
}

// NewClient creates a client rooted at base (see ParseBase).
func NewClient(base *url.URL, timeout time.Duration, opts ...Option) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		base:       base,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the absolute URL of a path relative to the API base.
func (c *Client) URL(path string) string {
	return c.base.ResolveReference(&url.URL{Path: path}).String()
}

// ListDeliveryServices fetches the delivery service names.
func (c *Client) ListDeliveryServices(ctx context.Context) (*ServiceList, error) {
	var raw struct {
		Version int       `json:"version"`
		Names   *[]string `json:"serviceList"`
	}
	if err := c.getJSON(ctx, "list_ds", "ds", &raw); err != nil {
		return nil, fmt.Errorf("list delivery services: %w", err)
	}
	if raw.Names == nil {
		return nil, errors.New(`list delivery services: response has no "serviceList"`)
	}
	return &ServiceList{Version: raw.Version, Names: *raw.Names}, nil
}

// ListConfigNodes fetches the config node names.
func (c *Client) ListConfigNodes(ctx context.Context) (*NodeList, error) {
	var raw struct {
		Version int       `json:"version"`
		Names   *[]string `json:"NodeList"`
	}
	if err := c.getJSON(ctx, "list_cn", "cn", &raw); err != nil {
		return nil, fmt.Errorf("list config nodes: %w", err)
	}
	if raw.Names == nil {
		return nil, errors.New(`list config nodes: response has no "NodeList"`)
	}
	return &NodeList{Version: raw.Version, Names: *raw.Names}, nil
}

// Invalidate asks the backend to evict cache entries matching pattern. The
// pattern is sent as a single escaped path segment.
func (c *Client) Invalidate(ctx context.Context, pattern string) (*InvalidateResult, error) {
	resp, err := c.do(ctx, "invalidate", http.MethodGet, "invalidate/"+url.PathEscape(pattern), nil)
	if err != nil {
		return nil, err
	}
	res := &InvalidateResult{Message: string(resp.body)}
	if loc := resp.header.Get("Location"); loc != "" {
		res.StatusID = statusIDFromLocation(loc)
	}
	return res, nil
}

// InvalidationStatus returns the backend's status text for an invalidation id.
func (c *Client) InvalidationStatus(ctx context.Context, id string) (string, error) {
	resp, err := c.do(ctx, "invalidate_status", http.MethodGet, "invalidateStatus/"+url.PathEscape(id), nil)
	if err != nil {
		return "", fmt.Errorf("invalidation status %s: %w", id, err)
	}
	return string(resp.body), nil
}

// GetDeliveryService fetches one delivery service by name.
func (c *Client) GetDeliveryService(ctx context.Context, name string) (*DeliveryService, error) {
	var ds DeliveryService
	if err := c.getJSON(ctx, "get_ds", "ds/"+url.PathEscape(name), &ds); err != nil {
		return nil, fmt.Errorf("get delivery service %q: %w", name, err)
	}
	return &ds, nil
}

// CreateDeliveryService adds a delivery service and returns the backend message.
func (c *Client) CreateDeliveryService(ctx context.Context, ds DeliveryService) (string, error) {
	msg, err := c.send(ctx, "create_ds", http.MethodPost, "ds", ds)
	if err != nil {
		return "", fmt.Errorf("create delivery service %q: %w", ds.Name, err)
	}
	return msg, nil
}

// UpdateDeliveryService replaces a delivery service and returns the backend message.
func (c *Client) UpdateDeliveryService(ctx context.Context, ds DeliveryService) (string, error) {
	msg, err := c.send(ctx, "update_ds", http.MethodPut, "ds/"+url.PathEscape(ds.Name), ds)
	if err != nil {
		return "", fmt.Errorf("update delivery service %q: %w", ds.Name, err)
	}
	return msg, nil
}

// DeleteDeliveryService removes a delivery service and returns the backend message.
func (c *Client) DeleteDeliveryService(ctx context.Context, name string) (string, error) {
	msg, err := c.send(ctx, "delete_ds", http.MethodDelete, "ds/"+url.PathEscape(name), nil)
	if err != nil {
		return "", fmt.Errorf("delete delivery service %q: %w", name, err)
	}
	return msg, nil
}

// GetConfigNode fetches one config node by name.
func (c *Client) GetConfigNode(ctx context.Context, name string) (*CacheNode, error) {
	var cn CacheNode
	if err := c.getJSON(ctx, "get_cn", "cn/"+url.PathEscape(name), &cn); err != nil {
		return nil, fmt.Errorf("get config node %q: %w", name, err)
	}
	return &cn, nil
}

// CreateConfigNode adds a config node and returns the backend message.
func (c *Client) CreateConfigNode(ctx context.Context, cn CacheNode) (string, error) {
	msg, err := c.send(ctx, "create_cn", http.MethodPost, "cn", cn)
	if err != nil {
		return "", fmt.Errorf("create config node %q: %w", cn.Name, err)
	}
	return msg, nil
}

// UpdateConfigNode replaces a config node and returns the backend message.
func (c *Client) UpdateConfigNode(ctx context.Context, cn CacheNode) (string, error) {
	msg, err := c.send(ctx, "update_cn", http.MethodPut, "cn/"+url.PathEscape(cn.Name), cn)
	if err != nil {
		return "", fmt.Errorf("update config node %q: %w", cn.Name, err)
	}
	return msg, nil
}

// DeleteConfigNode removes a config node and returns the backend message.
func (c *Client) DeleteConfigNode(ctx context.Context, name string) (string, error) {
	msg, err := c.send(ctx, "delete_cn", http.MethodDelete, "cn/"+url.PathEscape(name), nil)
	if err != nil {
		return "", fmt.Errorf("delete config node %q: %w", name, err)
	}
	return msg, nil
}

// Ping checks that the list endpoint answers. Used for readiness.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, "ping", http.MethodGet, "ds", nil)
	return err
}

type response struct {
	header http.Header
	body   []byte
}

func (c *Client) getJSON(ctx context.Context, op, path string, result any) error {
	resp, err := c.do(ctx, op, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, op, method, path string, body any) (string, error) {
	resp, err := c.do(ctx, op, method, path, body)
	if err != nil {
		return "", err
	}
	return string(resp.body), nil
}

// do performs one request. path is relative to the API base and must already
// be escaped.
func (c *Client) do(ctx context.Context, op, method, path string, body any) (*response, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parse path %q: %w", path, err)
	}
	target := c.base.ResolveReference(ref).String()

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/plain")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.requestID != nil {
		if id := c.requestID(ctx); id != "" {
			req.Header.Set("X-Request-ID", id)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	backendRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		backendRequestsTotal.WithLabelValues(op, "error").Inc()
		return nil, fmt.Errorf("http %s %s: %w", method, target, err)
	}
	defer resp.Body.Close()
	backendRequestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Method: method,
			Path:   path,
			Code:   resp.StatusCode,
			Body:   string(respBody),
		}
	}

	return &response{header: resp.Header, body: respBody}, nil
}

// statusIDFromLocation extracts {id} from ".../invalidateStatus/{id}".
func statusIDFromLocation(loc string) string {
	u, err := url.Parse(loc)
	if err != nil {
		return ""
	}
	const marker = "invalidateStatus/"
	p := u.Path
	i := strings.LastIndex(p, marker)
	if i < 0 {
		return ""
	}
	return strings.Trim(p[i+len(marker):], "/")
}
