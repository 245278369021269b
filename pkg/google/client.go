package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://places.googleapis.com/v1"

// Field masks for the lookups the pipeline performs.
const (
	SearchFieldMask  = "places.id,places.displayName,places.formattedAddress,places.types,places.rating,places.userRatingCount"
	ContactFieldMask = "id,displayName,nationalPhoneNumber,websiteUri,types"
	PhotoFieldMask   = "id,displayName,photos"
)

// Client performs Google Places API operations.
type Client interface {
	TextSearch(ctx context.Context, query string) (*TextSearchResponse, error)
	PlaceDetails(ctx context.Context, placeID, fieldMask string) (*Place, error)
	PhotoURL(photoName string, maxWidth int) string
}

// TextSearchResponse is the response from Places Text Search.
type TextSearchResponse struct {
	Places []Place `json:"places"`
}

// Place represents a place returned by the API.
type Place struct {
	ID                  string      `json:"id"`
	DisplayName         DisplayName `json:"displayName"`
	FormattedAddress    string      `json:"formattedAddress"`
	Types               []string    `json:"types"`
	Rating              float64     `json:"rating"`
	UserRatingCount     int         `json:"userRatingCount"`
	NationalPhoneNumber string      `json:"nationalPhoneNumber"`
	WebsiteURI          string      `json:"websiteUri"`
	Photos              []Photo     `json:"photos"`
}

// DisplayName holds the place's display name.
type DisplayName struct {
	Text string `json:"text"`
}

// Photo is a photo resource attached to a place.
type Photo struct {
	Name               string              `json:"name"`
	WidthPx            int                 `json:"widthPx"`
	HeightPx           int                 `json:"heightPx"`
	AuthorAttributions []AuthorAttribution `json:"authorAttributions"`
}

// AuthorAttribution credits the uploader of a photo.
type AuthorAttribution struct {
	DisplayName string `json:"displayName"`
	URI         string `json:"uri"`
}

// UploadedByOwner reports whether the first attribution names the place itself.
func (p Photo) UploadedByOwner(placeName string) bool {
	if len(p.AuthorAttributions) == 0 || placeName == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(p.AuthorAttributions[0].DisplayName), strings.TrimSpace(placeName))
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

// NewClient creates a Google Places API client.
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

type textSearchRequest struct {
	TextQuery string `json:"textQuery"`
}

func (c *httpClient) TextSearch(ctx context.Context, query string) (*TextSearchResponse, error) {
	body, err := json.Marshal(textSearchRequest{TextQuery: query})
	if err != nil {
		return nil, eris.Wrap(err, "google: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/places:searchText", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "google: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	var result TextSearchResponse
	if err := c.do(req, SearchFieldMask, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) PlaceDetails(ctx context.Context, placeID, fieldMask string) (*Place, error) {
	if placeID == "" {
		return nil, eris.New("google: place id is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/places/"+url.PathEscape(placeID), nil)
	if err != nil {
		return nil, eris.Wrap(err, "google: create request")
	}

	var place Place
	if err := c.do(req, fieldMask, &place); err != nil {
		return nil, err
	}
	return &place, nil
}

// PhotoURL builds a fetchable media URL for a photo resource name.
func (c *httpClient) PhotoURL(photoName string, maxWidth int) string {
	return fmt.Sprintf("%s/%s/media?maxWidthPx=%d&key=%s", c.baseURL, photoName, maxWidth, url.QueryEscape(c.apiKey))
}

func (c *httpClient) do(req *http.Request, fieldMask string, out any) error {
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "google: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "google: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("google: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "google: unmarshal response")
	}
	return nil
}
