package resolver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	errs "github.com/c360studio/semstreams/pkg/errs"
	"github.com/c360studio/semstreams/pkg/retry"
)

// maxResponseSize limits the resolver response body.
const maxResponseSize = 64 * 1024

// HTTPClient resolves entities against the resolver service:
//
//	GET {base}/{type}?name=value&...   200 → URI in body, 404 → not found
type HTTPClient struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	timeout     time.Duration
	retryConfig retry.Config
	logger      *slog.Logger
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithAPIKey sets the X-Api-Key header value.
func WithAPIKey(key string) HTTPOption {
	return func(c *HTTPClient) {
		c.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) {
		c.httpClient = hc
	}
}

// WithTimeout bounds each request. A client passed to WithHTTPClient is
// copied rather than modified.
func WithTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		c.timeout = d
	}
}

// WithRetryConfig sets the retry policy for transient failures.
func WithRetryConfig(cfg retry.Config) HTTPOption {
	return func(c *HTTPClient) {
		c.retryConfig = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) HTTPOption {
	return func(c *HTTPClient) {
		c.logger = logger
	}
}

// NewHTTPClient creates a resolver client for the service at baseURL.
func NewHTTPClient(baseURL string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		retryConfig: retry.DefaultConfig(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 && c.httpClient.Timeout != c.timeout {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

// Resolve implements Resolver.
func (c *HTTPClient) Resolve(ctx context.Context, entityType string, attrs map[string]string) (string, bool, error) {
	target, err := c.buildURL(entityType, attrs)
	if err != nil {
		return "", false, errs.WrapInvalid(err, "resolver", "Resolve", "build request URL")
	}

	var (
		uri   string
		found bool
	)
	err = retry.Do(ctx, c.retryConfig, func() error {
		var reqErr error
		uri, found, reqErr = c.doRequest(ctx, target)
		if reqErr != nil && !errs.IsTransient(reqErr) {
			return retry.NonRetryable(reqErr)
		}
		return reqErr
	})
	if err != nil {
		c.logger.Error("Entity resolution failed",
			"entity_type", entityType,
			"url", target,
			"error", err)
		return "", false, err
	}

	c.logger.Debug("Entity resolution",
		"entity_type", entityType,
		"found", found,
		"uri", uri)
	return uri, found, nil
}

func (c *HTTPClient) buildURL(entityType string, attrs map[string]string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	u = u.JoinPath(entityType)
	q := url.Values{}
	for k, v := range attrs {
		if v != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *HTTPClient) doRequest(ctx context.Context, target string) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", false, errs.WrapFatal(err, "resolver", "Resolve", "create request")
	}
	req.Header.Set("Accept", "text/plain")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", false, errs.WrapTransient(err, "resolver", "Resolve", "GET "+target)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", false, errs.WrapTransient(err, "resolver", "Resolve", "read response")
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", false, nil
	case resp.StatusCode == http.StatusOK:
		uri := strings.TrimSpace(string(body))
		if uri == "" {
			return "", false, nil
		}
		return uri, true, nil
	}

	respErr := &ResponseError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body)), URL: target}
	if retryableStatus(resp.StatusCode) {
		return "", false, errs.WrapTransient(respErr, "resolver", "Resolve", fmt.Sprintf("GET %s", target))
	}
	return "", false, errs.WrapFatal(respErr, "resolver", "Resolve", fmt.Sprintf("GET %s", target))
}
