// Package ftc fetches HSR early-termination notices from the FTC API.
package ftc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"hsr-monitor/internal/apperr"
	"hsr-monitor/internal/notice"
)

// Page-size bounds accepted by the upstream API.
const (
	MinLimit = 10
	MaxLimit = 200
)

// dateLayout is the exact-date filter format.
const dateLayout = "2006-01-02"

// Query bounds and filters one fetch.
type Query struct {
	Keyword string    // title "contains" filter, ignored when blank
	Date    time.Time // exact-date filter, ignored when zero
	Limit   int
}

// Fetcher retrieves notices, newest first.
type Fetcher interface {
	Fetch(ctx context.Context, q Query) ([]notice.Notice, error)
}

// Client is a thin HTTP client for the notices endpoint. Requests are paced
// by a token bucket so polling never hammers the API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a client for baseURL authenticated with apiKey.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(1), 2),
	}
}

type response struct {
	Data []record `json:"data"`
}

type record struct {
	ID         string     `json:"id"`
	Attributes attributes `json:"attributes"`
}

type attributes struct {
	TransactionNumber string `json:"transaction-number"`
	Date              string `json:"date"`
	Title             string `json:"title"`
	AcquiringParty    string `json:"acquiring-party"`
	AcquiredParty     string `json:"acquired-party"`
	Created           string `json:"created"`
	Updated           string `json:"updated"`
}

// Fetch implements Fetcher. Non-2xx statuses, transport failures and
// malformed bodies are returned as *apperr.UpstreamError.
func (c *Client) Fetch(ctx context.Context, q Query) ([]notice.Notice, error) {
	if q.Limit < MinLimit || q.Limit > MaxLimit {
		return nil, fmt.Errorf("limit must be between %d and %d, got %d", MinLimit, MaxLimit, q.Limit)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &apperr.UpstreamError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+buildParams(c.apiKey, q).Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &apperr.UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apperr.UpstreamError{StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &apperr.UpstreamError{StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", snippet(body))}
	}

	var decoded response
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &apperr.UpstreamError{StatusCode: resp.StatusCode, Err: fmt.Errorf("malformed response body: %w", err)}
	}

	notices := make([]notice.Notice, 0, len(decoded.Data))
	for _, r := range decoded.Data {
		notices = append(notices, r.toNotice())
	}
	return notices, nil
}

func (r record) toNotice() notice.Notice {
	a := r.Attributes
	return notice.Notice{
		ID:                r.ID,
		TransactionNumber: a.TransactionNumber,
		Date:              a.Date,
		Title:             a.Title,
		Acquirer:          a.AcquiringParty,
		Target:            a.AcquiredParty,
		Created:           a.Created,
		Updated:           a.Updated,
		Link:              notice.BuildLink(a.TransactionNumber),
	}
}

func buildParams(apiKey string, q Query) url.Values {
	params := url.Values{}
	params.Set("api_key", apiKey)
	params.Set("sort[created][path]", "created")
	params.Set("sort[created][direction]", "DESC")
	params.Set("page[limit]", strconv.Itoa(q.Limit))

	if kw := strings.TrimSpace(q.Keyword); kw != "" {
		params.Set("filter[title][operator]", "CONTAINS")
		params.Set("filter[title][value]", kw)
	}

	if !q.Date.IsZero() {
		params.Set("filter[date][condition][path]", "date")
		params.Set("filter[date][condition][value]", q.Date.Format(dateLayout))
		// The API rejects "==".
		params.Set("filter[date][condition][operator]", "=")
	}
	return params
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	if s == "" {
		return "empty body"
	}
	return s
}

// ParseDate parses a YYYY-MM-DD filter value. A blank string yields the zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD, got %q", s)
	}
	return t, nil
}

var _ Fetcher = (*Client)(nil)
