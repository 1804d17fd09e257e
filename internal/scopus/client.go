// Package scopus implements a rate-limited client for the Elsevier Scopus
// API: publication search, the citations overview endpoint, and author
// retrieval. Raw response entries are returned undecoded so callers can
// cache them verbatim; tolerant decoders turn them into record types.
package scopus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/martinsbruveris/scopuscite/internal/record"
)

const (
	// BaseURL is the Elsevier API base URL.
	BaseURL = "https://api.elsevier.com"

	searchPath   = "/content/search/scopus"
	citationPath = "/content/abstract/citations"
	authorPath   = "/content/author"

	// RequestsPerSecond is the client-side pacing limit.
	RequestsPerSecond = 9.0

	// SearchPageSize is the page size for search queries.
	SearchPageSize = 200

	// DetailPageSize is the entry count per detail request.
	DetailPageSize = 25

	// AuthorSearchChunkSize is the maximum number of AU-ID clauses per
	// search query, a limit set by the Scopus API.
	AuthorSearchChunkSize = 10

	// DetailChunkSize is the maximum number of ids per citation or author
	// detail request, a limit set by the Scopus API.
	DetailChunkSize = 25

	// searchFields restricts search responses to the fields the fetcher
	// consumes.
	searchFields = "eid,author"
)

// Client is a rate-limited HTTP client for the Scopus API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	apiKey     string
	instToken  string
	baseURL    string
	retry      RetryPolicy
	lastRate   RateLimit
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the API key sent with every request.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithInstToken sets the institutional token header.
func WithInstToken(token string) ClientOption {
	return func(c *Client) {
		c.instToken = token
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p RetryPolicy) ClientOption {
	return func(c *Client) {
		c.retry = p
	}
}

// NewClient creates a new Scopus API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(RequestsPerSecond), 1),
		baseURL:    BaseURL,
		retry:      DefaultRetryPolicy(),
	}

	if key := os.Getenv("SCOPUS_API_KEY"); key != "" {
		c.apiKey = key
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// LastRateLimit returns the quota headers from the most recent response.
func (c *Client) LastRateLimit() RateLimit {
	return c.lastRate
}

// get issues one API request, retrying while the response status is
// transient per the retry policy. It returns the response body for any
// non-transient status; the caller interprets the payload.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, int, error) {
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}

	requestURL := c.baseURL + path + "?" + params.Encode()

	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, 0, fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if c.instToken != "" {
			req.Header.Set("X-ELS-Insttoken", c.instToken)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrNetworkError, err)
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		c.lastRate = RateLimit{
			Limit:     resp.Header.Get("X-RateLimit-Limit"),
			Remaining: resp.Header.Get("X-RateLimit-Remaining"),
		}

		if c.retry.Retryable(resp.StatusCode) {
			continue
		}

		if readErr != nil {
			return nil, resp.StatusCode, fmt.Errorf("reading response: %w", readErr)
		}
		return body, resp.StatusCode, nil
	}

	return nil, 0, fmt.Errorf("%w (%d attempts)", ErrRetriesExhausted, c.retry.MaxAttempts)
}

// SearchPage requests one page of search results for a query. The start
// offset advances pagination; count is the requested page size.
func (c *Client) SearchPage(ctx context.Context, query string, start, count int) (*SearchPage, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("field", searchFields)
	params.Set("count", fmt.Sprint(count))
	params.Set("start", fmt.Sprint(start))

	body, status, err := c.get(ctx, searchPath, params)
	if err != nil {
		return nil, err
	}
	if err := checkServiceError(body, status); err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &APIError{StatusCode: status, Message: "search request failed"}
	}

	var envelope searchEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: parsing search results: %v", ErrInvalidResponse, err)
	}

	return &SearchPage{
		Total:     int(envelope.Results.TotalResults),
		Entries:   envelope.Results.Entries,
		RateLimit: c.lastRate,
	}, nil
}

// PublicationDetail fetches raw citation-overview entries for up to
// DetailChunkSize publication ids. The year range bounds the per-year
// citation window; the cite mode selects the citation-exclusion variant.
// Returns ErrNotFound when the remote knows none of the ids.
func (c *Client) PublicationDetail(ctx context.Context, ids []string, years record.YearRange, mode record.CiteMode) ([]json.RawMessage, error) {
	params := url.Values{}
	params.Set("scopus_id", strings.Join(ids, ","))
	params.Set("date", years.DateParam())
	params.Set("count", fmt.Sprint(DetailPageSize))
	params.Set("view", "STANDARD")
	// All citations is the default; only the exclusion modes need a parameter.
	if mode == record.CitesExcludeSelf || mode == record.CitesExcludeBooks {
		params.Set("citation", string(mode))
	}

	body, status, err := c.get(ctx, citationPath, params)
	if err != nil {
		return nil, err
	}
	if err := checkServiceError(body, status); err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &APIError{StatusCode: status, Message: "citation request failed"}
	}

	var envelope citationEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: parsing citation overview: %v", ErrInvalidResponse, err)
	}

	return envelope.Response.Matrix.XML.CitationMatrix.CiteInfo, nil
}

// AuthorDetail fetches raw author-retrieval entries for up to
// DetailChunkSize author ids.
func (c *Client) AuthorDetail(ctx context.Context, ids []string) ([]json.RawMessage, error) {
	params := url.Values{}
	params.Set("author_id", strings.Join(ids, ","))
	params.Set("view", "ENHANCED")

	body, status, err := c.get(ctx, authorPath, params)
	if err != nil {
		return nil, err
	}
	if err := checkServiceError(body, status); err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &APIError{StatusCode: status, Message: "author request failed"}
	}

	var envelope authorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: parsing author retrieval: %v", ErrInvalidResponse, err)
	}

	return envelope.List.Responses, nil
}
