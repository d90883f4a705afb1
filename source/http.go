package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/c360studio/semharvest/extract"
	errs "github.com/c360studio/semstreams/pkg/errs"
	"github.com/c360studio/semstreams/pkg/retry"
	"golang.org/x/time/rate"
)

// maxPageSize bounds one response body.
const maxPageSize = 64 * 1024 * 1024

// ResponseError is a non-success response from a source API.
type ResponseError struct {
	Status int
	Body   string
	URL    string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("source returned %d %s for %s: %s", e.Status, http.StatusText(e.Status), e.URL, e.Body)
}

// HTTP extracts records from a paged JSON API.
//
// Records are selected from each page by the items path. Paging follows the
// next path when set (an absolute or relative URL in the response body);
// otherwise the page parameter is incremented until a page comes back with
// fewer records than the page size.
type HTTP struct {
	url         string
	header      http.Header
	items       *extract.Path
	next        *extract.Path
	pageParam   string
	sizeParam   string
	pageSize    int
	firstPage   int
	maxPages    int
	limiter     *rate.Limiter
	httpClient  *http.Client
	retryConfig retry.Config
	logger      *slog.Logger
}

// HTTPOption configures an HTTP extractor.
type HTTPOption func(*HTTP)

// WithHeader adds a request header, e.g. an API key.
func WithHeader(key, value string) HTTPOption {
	return func(h *HTTP) {
		h.header.Set(key, value)
	}
}

// WithNext follows the URL found at p in each page.
func WithNext(p *extract.Path) HTTPOption {
	return func(h *HTTP) {
		h.next = p
	}
}

// WithPaging sets the page and page-size query parameters.
func WithPaging(pageParam, sizeParam string, pageSize, firstPage int) HTTPOption {
	return func(h *HTTP) {
		h.pageParam = pageParam
		h.sizeParam = sizeParam
		h.pageSize = pageSize
		h.firstPage = firstPage
	}
}

// WithMaxPages stops after n pages. Zero means no limit.
func WithMaxPages(n int) HTTPOption {
	return func(h *HTTP) {
		h.maxPages = n
	}
}

// WithRateLimit caps requests per second with the given burst.
func WithRateLimit(rps float64, burst int) HTTPOption {
	return func(h *HTTP) {
		h.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(h *HTTP) {
		h.httpClient = hc
	}
}

// WithRetryConfig sets the retry policy for transient failures.
func WithRetryConfig(cfg retry.Config) HTTPOption {
	return func(h *HTTP) {
		h.retryConfig = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) HTTPOption {
	return func(h *HTTP) {
		h.logger = logger
	}
}

// NewHTTP returns an extractor for the API at rawURL. items selects the
// records in each page, e.g. "$.values[*]".
func NewHTTP(rawURL string, items *extract.Path, opts ...HTTPOption) *HTTP {
	h := &HTTP{
		url:         rawURL,
		header:      http.Header{},
		items:       items,
		pageParam:   "page",
		sizeParam:   "limit",
		pageSize:    100,
		firstPage:   1,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		retryConfig: retry.DefaultConfig(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Extract implements Extractor.
func (h *HTTP) Extract(ctx context.Context, emit EmitFunc) error {
	target, err := h.pageURL(h.url, h.firstPage)
	if err != nil {
		return errs.WrapInvalid(err, "source", "Extract", "build page URL")
	}

	page := h.firstPage
	for n := 1; target != ""; n++ {
		doc, err := h.fetch(ctx, target)
		if err != nil {
			return err
		}

		items := h.items.Values(doc)
		h.logger.Debug("Fetched page", "url", target, "records", len(items))
		for i, v := range items {
			rec, ok := v.(map[string]any)
			if !ok {
				h.logger.Warn("Skipping non-object item", "url", target, "index", i)
				continue
			}
			if err := emit(rec); err != nil {
				return err
			}
		}

		if h.maxPages > 0 && n >= h.maxPages {
			return nil
		}
		target, err = h.nextURL(doc, target, page, len(items))
		if err != nil {
			return errs.WrapInvalid(err, "source", "Extract", "build next page URL")
		}
		page++
	}
	return nil
}

func (h *HTTP) nextURL(doc any, current string, page, count int) (string, error) {
	if h.next != nil {
		next, _ := h.next.First(doc).(string)
		if next == "" {
			return "", nil
		}
		base, err := url.Parse(current)
		if err != nil {
			return "", err
		}
		ref, err := url.Parse(next)
		if err != nil {
			return "", err
		}
		return base.ResolveReference(ref).String(), nil
	}
	if h.pageParam == "" || count == 0 || count < h.pageSize {
		return "", nil
	}
	return h.pageURL(h.url, page+1)
}

func (h *HTTP) pageURL(raw string, page int) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if h.next != nil || h.pageParam == "" {
		return u.String(), nil
	}
	q := u.Query()
	q.Set(h.pageParam, strconv.Itoa(page))
	if h.sizeParam != "" {
		q.Set(h.sizeParam, strconv.Itoa(h.pageSize))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (h *HTTP) fetch(ctx context.Context, target string) (any, error) {
	doc, err := retry.DoWithResult(ctx, h.retryConfig, func() (any, error) {
		doc, reqErr := h.doRequest(ctx, target)
		if reqErr != nil && !errs.IsTransient(reqErr) {
			return nil, retry.NonRetryable(reqErr)
		}
		return doc, reqErr
	})
	if err != nil {
		h.logger.Error("Source request failed", "url", target, "error", err)
		return nil, err
	}
	return doc, nil
}

func (h *HTTP) doRequest(ctx context.Context, target string) (any, error) {
	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return nil, errs.WrapFatal(err, "source", "Extract", "wait for rate limit")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errs.WrapFatal(err, "source", "Extract", "create request")
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range h.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, errs.WrapTransient(err, "source", "Extract", "GET "+target)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, errs.WrapTransient(err, "source", "Extract", "read response")
	}

	if resp.StatusCode != http.StatusOK {
		respErr := &ResponseError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body)), URL: target}
		switch resp.StatusCode {
		case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return nil, errs.WrapTransient(respErr, "source", "Extract", "GET "+target)
		}
		return nil, errs.WrapFatal(respErr, "source", "Extract", "GET "+target)
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, errs.WrapInvalid(err, "source", "Extract", "decode page")
	}
	return doc, nil
}
