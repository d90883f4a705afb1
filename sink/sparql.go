package sink

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	errs "github.com/c360studio/semstreams/pkg/errs"
	"github.com/c360studio/semstreams/pkg/retry"
)

// ContentTypeSPARQLUpdate is the media type of a SPARQL Update request body.
const ContentTypeSPARQLUpdate = "application/sparql-update"

// maxErrorBody bounds the response body kept in a ResponseError.
const maxErrorBody = 4096

// SPARQL posts each batch as one SPARQL Update request.
type SPARQL struct {
	endpoint    string
	httpClient  *http.Client
	timeout     time.Duration
	retryConfig retry.Config
	headers     map[string]string
	logger      *slog.Logger
}

// SPARQLOption configures a SPARQL sink.
type SPARQLOption func(*SPARQL)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) SPARQLOption {
	return func(s *SPARQL) {
		s.httpClient = hc
	}
}

// WithTimeout bounds each request. A client passed to WithHTTPClient is
// copied rather than modified.
func WithTimeout(d time.Duration) SPARQLOption {
	return func(s *SPARQL) {
		s.timeout = d
	}
}

// WithRetryConfig sets the retry policy for transient failures.
func WithRetryConfig(cfg retry.Config) SPARQLOption {
	return func(s *SPARQL) {
		s.retryConfig = cfg
	}
}

// WithHeader adds a request header, e.g. for an API gateway key.
func WithHeader(name, value string) SPARQLOption {
	return func(s *SPARQL) {
		s.headers[name] = value
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SPARQLOption {
	return func(s *SPARQL) {
		s.logger = logger
	}
}

// NewSPARQL returns a sink posting to endpoint.
func NewSPARQL(endpoint string, opts ...SPARQLOption) *SPARQL {
	s := &SPARQL{
		endpoint:    endpoint,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		retryConfig: retry.DefaultConfig(),
		headers:     make(map[string]string),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.timeout > 0 && s.httpClient.Timeout != s.timeout {
		hc := *s.httpClient
		hc.Timeout = s.timeout
		s.httpClient = &hc
	}
	return s
}

// Send implements Sink.
func (s *SPARQL) Send(ctx context.Context, batch []string) error {
	if len(batch) == 0 {
		return nil
	}
	body := strings.Join(batch, "\n")

	err := retry.Do(ctx, s.retryConfig, func() error {
		err := s.post(ctx, body)
		if err != nil && !errs.IsTransient(err) {
			return retry.NonRetryable(err)
		}
		return err
	})
	if err != nil {
		s.logger.Error("SPARQL update failed",
			"endpoint", s.endpoint,
			"groups", len(batch),
			"error", err)
		return err
	}

	s.logger.Debug("SPARQL update applied",
		"endpoint", s.endpoint,
		"groups", len(batch),
		"bytes", len(body))
	return nil
}

func (s *SPARQL) post(ctx context.Context, body string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(body))
	if err != nil {
		return errs.WrapFatal(err, "sink", "Send", "create request")
	}
	req.Header.Set("Content-Type", ContentTypeSPARQLUpdate)
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errs.WrapTransient(err, "sink", "Send", "POST "+s.endpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	respErr := &ResponseError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	if retryableStatus(resp.StatusCode) {
		return errs.WrapTransient(respErr, "sink", "Send", "POST "+s.endpoint)
	}
	return errs.WrapFatal(respErr, "sink", "Send", "POST "+s.endpoint)
}
