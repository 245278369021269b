// Package yelp provides a client for the Yelp Fusion business API.
package yelp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.yelp.com/v3"

// Client performs Yelp Fusion lookups.
type Client interface {
	// Search returns businesses matching a term near a location.
	Search(ctx context.Context, term, location string, limit int) (*SearchResponse, error)
	// Business returns full details, including photos, for one business.
	Business(ctx context.Context, id string) (*Business, error)
}

// SearchResponse is the response from /businesses/search.
type SearchResponse struct {
	Total      int        `json:"total"`
	Businesses []Business `json:"businesses"`
}

// Business is a Yelp business record.
type Business struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	URL         string     `json:"url"`
	ImageURL    string     `json:"image_url"`
	Photos      []string   `json:"photos"`
	Rating      float64    `json:"rating"`
	ReviewCount int        `json:"review_count"`
	Price       string     `json:"price"`
	Categories  []Category `json:"categories"`
}

// Category is a Yelp category label.
type Category struct {
	Alias string `json:"alias"`
	Title string `json:"title"`
}

// CategoryTitles returns the display titles of the business categories.
func (b Business) CategoryTitles() []string {
	out := make([]string, 0, len(b.Categories))
	for _, c := range b.Categories {
		out = append(out, c.Title)
	}
	return out
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.http.Timeout = d
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Yelp Fusion client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, term, location string, limit int) (*SearchResponse, error) {
	q := url.Values{}
	q.Set("term", term)
	q.Set("location", location)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var result SearchResponse
	if err := c.get(ctx, "/businesses/search?"+q.Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) Business(ctx context.Context, id string) (*Business, error) {
	if id == "" {
		return nil, eris.New("yelp: business id is required")
	}

	var result Business
	if err := c.get(ctx, "/businesses/"+url.PathEscape(id), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "yelp: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "yelp: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "yelp: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("yelp: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "yelp: unmarshal response")
	}
	return nil
}
