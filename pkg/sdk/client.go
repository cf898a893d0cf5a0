package prodsearch

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
)

// maxErrorBody bounds how much of a failed response is read.
const maxErrorBody = 64 << 10

// Client is the prodsearch SDK entry point. It is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	obs     *observer
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{timeout: defaultTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}

	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("prodsearch: invalid base URL %q", baseURL)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		apiKey:  cfg.apiKey,
		http:    hc,
		obs:     obs,
	}, nil
}

// Search runs a semantic product search.
func (c *Client) Search(ctx context.Context, req SearchRequest) (res SearchResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	hdr, err := c.do(ctx, http.MethodPost, "/search", req, &res)
	if err != nil {
		return SearchResult{}, err
	}
	res.CacheHit = hdr.Get("X-Cache") == "hit"
	return res, nil
}

// Ask returns a generated answer grounded in the top matching products.
func (c *Client) Ask(ctx context.Context, query string) (ans Answer, err error) {
	start := time.Now()
	defer func() { c.obs.observe("ask", start, err) }()

	_, err = c.do(ctx, http.MethodPost, "/ask", map[string]string{"query": query}, &ans)
	return ans, err
}

// Chat routes a message by intent. userID may be empty.
func (c *Client) Chat(ctx context.Context, query, userID string) (reply ChatReply, err error) {
	start := time.Now()
	defer func() { c.obs.observe("chat", start, err) }()

	body := struct {
		Query  string `json:"query"`
		UserID string `json:"user_id,omitempty"`
	}{query, userID}
	_, err = c.do(ctx, http.MethodPost, "/chat", body, &reply)
	return reply, err
}

// Product fetches one catalog product by id.
func (c *Client) Product(ctx context.Context, id string) (p Product, err error) {
	start := time.Now()
	defer func() { c.obs.observe("product", start, err) }()

	_, err = c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, &p)
	return p, err
}

// Recommendations returns personalized products for a user. k <= 0 uses
// the server default.
func (c *Client) Recommendations(ctx context.Context, userID string, k int) (products []Product, err error) {
	start := time.Now()
	defer func() { c.obs.observe("recommendations", start, err) }()

	path := "/users/" + url.PathEscape(userID) + "/recommendations"
	if k > 0 {
		path += "?k=" + strconv.Itoa(k)
	}
	var res SearchResult
	if _, err = c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return res.Products, nil
}

// Reindex rebuilds the server's vector index from the catalog.
func (c *Client) Reindex(ctx context.Context) (stats ReindexStats, err error) {
	start := time.Now()
	defer func() { c.obs.observe("reindex", start, err) }()

	_, err = c.do(ctx, http.MethodPost, "/admin/reindex", nil, &stats)
	return stats, err
}

// do sends in as JSON and decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, method, path string, in, out any) (http.Header, error) {
	status, hdr, body, err := c.roundTrip(ctx, method, path, in)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return hdr, decodeAPIError(status, body)
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return hdr, fmt.Errorf("prodsearch: decode %s %s: %w", method, path, err)
		}
	}
	return hdr, nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, in any) (int, http.Header, []byte, error) {
	var reqBody io.Reader = http.NoBody
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, nil, nil, fmt.Errorf("prodsearch: encode request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("prodsearch: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("prodsearch: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var r io.Reader = resp.Body
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		r = io.LimitReader(resp.Body, maxErrorBody)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("prodsearch: read response: %w", err)
	}
	return resp.StatusCode, resp.Header, body, nil
}

func decodeAPIError(status int, body []byte) error {
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = "http_" + strconv.Itoa(status)
		apiErr.Message = strings.TrimSpace(string(body))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(status)
		}
	}
	return apiErr
}

// IsNotFound reports whether err is a missing product or profile.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) || errors.Is(err, ErrProfileNotFound)
}
