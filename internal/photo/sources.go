package photo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/suplook/internal/metrics"
	"github.com/sells-group/suplook/internal/model"
	"github.com/sells-group/suplook/pkg/google"
	"github.com/sells-group/suplook/pkg/jina"
	"github.com/sells-group/suplook/pkg/yelp"
)

// Per-source limits.
const (
	directoryGalleryLimit = 5
	socialPostLimit       = 5
	mapPhotoLimit         = 5
	imageSearchLimit      = 3
	mapPhotoWidth         = 800
)

// BrowserHeaders are sent on direct page and image fetches.
var BrowserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.5",
}

// DirectorySource finds photos and business metadata in a business directory.
type DirectorySource interface {
	Lookup(ctx context.Context, name, city string) ([]model.Photo, *model.DirectoryInfo)
}

// SocialSource finds recent post images for a social handle.
type SocialSource interface {
	Photos(ctx context.Context, handle string) []model.Photo
}

// MapSource finds photos attached to a map-provider place.
type MapSource interface {
	Photos(ctx context.Context, placeID string) []model.Photo
}

// ImageSearchSource finds generic web images for a restaurant.
type ImageSearchSource interface {
	Photos(ctx context.Context, name, city string) []model.Photo
}

// DeliveryChecker reports delivery platform listings.
type DeliveryChecker interface {
	Check(ctx context.Context, name, city string) model.DeliveryPresence
}

// sourceFailed logs a degraded lookup and counts it.
func sourceFailed(m *metrics.Pipeline, source string, err error, fields ...zap.Field) {
	m.IncSourceFailure(source)
	zap.L().Warn("photo: source lookup failed",
		append([]zap.Field{zap.String("source", source), zap.Error(err)}, fields...)...)
}

// --- Business directory (Yelp Fusion) ---

// YelpSource looks a restaurant up in the Yelp Fusion API.
type YelpSource struct {
	client   yelp.Client
	throttle *Throttle
	metrics  *metrics.Pipeline
}

// NewYelpSource creates a directory source over client.
func NewYelpSource(client yelp.Client, throttle *Throttle, m *metrics.Pipeline) *YelpSource {
	return &YelpSource{client: client, throttle: throttle, metrics: m}
}

// Lookup searches for the best match, then reads its details. The main image
// is upgraded to the large rendition; up to five gallery photos follow it.
func (s *YelpSource) Lookup(ctx context.Context, name, city string) ([]model.Photo, *model.DirectoryInfo) {
	if err := s.throttle.Wait(ctx); err != nil {
		return nil, nil
	}
	found, err := s.client.Search(ctx, name, city, 1)
	if err != nil {
		sourceFailed(s.metrics, string(model.SourceDirectory), err, zap.String("restaurant", name))
		return nil, nil
	}
	if len(found.Businesses) == 0 {
		return nil, nil
	}

	if err := s.throttle.Wait(ctx); err != nil {
		return nil, nil
	}
	biz, err := s.client.Business(ctx, found.Businesses[0].ID)
	if err != nil {
		sourceFailed(s.metrics, string(model.SourceDirectory), err, zap.String("restaurant", name))
		return nil, nil
	}

	info := &model.DirectoryInfo{
		ID:          biz.ID,
		URL:         biz.URL,
		Rating:      biz.Rating,
		ReviewCount: biz.ReviewCount,
		Price:       biz.Price,
		Categories:  biz.CategoryTitles(),
	}

	var photos []model.Photo
	if biz.ImageURL != "" {
		photos = append(photos, model.Photo{
			URL:    strings.Replace(biz.ImageURL, "/o.jpg", "/l.jpg", 1),
			Source: model.SourceDirectory,
			Role:   model.RoleMain,
		})
	}
	gallery := biz.Photos
	if len(gallery) > directoryGalleryLimit {
		gallery = gallery[:directoryGalleryLimit]
	}
	for _, u := range gallery {
		if containsURL(photos, u) {
			continue
		}
		photos = append(photos, model.Photo{URL: u, Source: model.SourceDirectory, Role: model.RoleGallery})
	}
	return photos, info
}

// --- Social profile (Instagram) ---

var socialImagePattern = regexp.MustCompile(`https://[^"]*\.jpg[^"]*`)

// InstagramSource scrapes image URLs from a public profile page.
type InstagramSource struct {
	http     *http.Client
	baseURL  string
	throttle *Throttle
	metrics  *metrics.Pipeline
}

// NewInstagramSource creates a social source. hc carries the request timeout.
func NewInstagramSource(hc *http.Client, throttle *Throttle, m *metrics.Pipeline) *InstagramSource {
	return &InstagramSource{http: hc, baseURL: "https://www.instagram.com", throttle: throttle, metrics: m}
}

// Photos returns post images from the first five image URLs on the profile
// page, skipping profile pictures and non-Instagram hosts.
func (s *InstagramSource) Photos(ctx context.Context, handle string) []model.Photo {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" {
		return nil
	}
	if err := s.throttle.Wait(ctx); err != nil {
		return nil
	}

	body, err := getPage(ctx, s.http, fmt.Sprintf("%s/%s/", s.baseURL, url.PathEscape(handle)))
	if err != nil {
		sourceFailed(s.metrics, string(model.SourceSocial), err, zap.String("handle", handle))
		return nil
	}

	matches := socialImagePattern.FindAllString(body, socialPostLimit)
	var photos []model.Photo
	for _, u := range matches {
		if strings.Contains(u, "instagram") && !strings.Contains(u, "profile") {
			photos = append(photos, model.Photo{URL: u, Source: model.SourceSocial, Role: model.RolePost})
		}
	}
	return photos
}

// --- Map provider (Google Places) ---

// PlacesSource reads photos attached to a Google place.
type PlacesSource struct {
	client   google.Client
	throttle *Throttle
	metrics  *metrics.Pipeline
}

// NewPlacesSource creates a map source over client.
func NewPlacesSource(client google.Client, throttle *Throttle, m *metrics.Pipeline) *PlacesSource {
	return &PlacesSource{client: client, throttle: throttle, metrics: m}
}

// Photos returns up to five place photos, tagged owner when the uploader is
// the place itself.
func (s *PlacesSource) Photos(ctx context.Context, placeID string) []model.Photo {
	if placeID == "" {
		return nil
	}
	if err := s.throttle.Wait(ctx); err != nil {
		return nil
	}

	place, err := s.client.PlaceDetails(ctx, placeID, google.PhotoFieldMask)
	if err != nil {
		sourceFailed(s.metrics, string(model.SourceMap), err, zap.String("place_id", placeID))
		return nil
	}

	refs := place.Photos
	if len(refs) > mapPhotoLimit {
		refs = refs[:mapPhotoLimit]
	}
	photos := make([]model.Photo, 0, len(refs))
	for _, ref := range refs {
		if ref.Name == "" {
			continue
		}
		role := model.RoleUser
		if ref.UploadedByOwner(place.DisplayName.Text) {
			role = model.RoleOwner
		}
		photos = append(photos, model.Photo{
			URL:    s.client.PhotoURL(ref.Name, mapPhotoWidth),
			Source: model.SourceMap,
			Role:   role,
		})
	}
	return photos
}

// --- Generic image search (Jina Search) ---

// ImageSearch finds takeout and food images through web search.
type ImageSearch struct {
	client   jina.Client
	throttle *Throttle
	metrics  *metrics.Pipeline
}

// NewImageSearch creates an image search source over client.
func NewImageSearch(client jina.Client, throttle *Throttle, m *metrics.Pipeline) *ImageSearch {
	return &ImageSearch{client: client, throttle: throttle, metrics: m}
}

var imageURLPattern = regexp.MustCompile(`(?i)^https://.*\.(jpg|jpeg|png)`)

// Photos returns at most three image results, skipping search-engine
// thumbnails.
func (s *ImageSearch) Photos(ctx context.Context, name, city string) []model.Photo {
	if err := s.throttle.Wait(ctx); err != nil {
		return nil
	}
	query := fmt.Sprintf("%s %s takeout delivery food", name, city)
	resp, err := s.client.Search(ctx, query, jina.WithImages(), jina.WithoutContent())
	if err != nil {
		sourceFailed(s.metrics, string(model.SourceImageSearch), err, zap.String("restaurant", name))
		return nil
	}

	var candidates []string
	for _, r := range resp.Data {
		alts := make([]string, 0, len(r.Images))
		for alt := range r.Images {
			alts = append(alts, alt)
		}
		sort.Strings(alts)
		for _, alt := range alts {
			u := r.Images[alt]
			if imageURLPattern.MatchString(u) && !slices.Contains(candidates, u) {
				candidates = append(candidates, u)
			}
		}
	}
	if len(candidates) > imageSearchLimit {
		candidates = candidates[:imageSearchLimit]
	}

	var photos []model.Photo
	for _, u := range candidates {
		if strings.Contains(u, "google.com/images") || strings.Contains(u, "gstatic") {
			continue
		}
		photos = append(photos, model.Photo{URL: u, Source: model.SourceImageSearch, Role: model.RoleSearch})
	}
	return photos
}

// --- Delivery presence (Jina Search, site-filtered) ---

// DeliverySearch checks delivery platforms with site-filtered web search.
type DeliverySearch struct {
	client   jina.Client
	throttle *Throttle
	metrics  *metrics.Pipeline
}

// NewDeliverySearch creates a delivery checker over client.
func NewDeliverySearch(client jina.Client, throttle *Throttle, m *metrics.Pipeline) *DeliverySearch {
	return &DeliverySearch{client: client, throttle: throttle, metrics: m}
}

// Check searches each platform independently; a failed search counts as
// not listed.
func (d *DeliverySearch) Check(ctx context.Context, name, city string) model.DeliveryPresence {
	query := strings.TrimSpace(name + " " + city)
	return model.DeliveryPresence{
		DoorDash: d.listed(ctx, query, "doordash.com", "doordash.com/store"),
		UberEats: d.listed(ctx, query, "ubereats.com", "ubereats.com"),
	}
}

func (d *DeliverySearch) listed(ctx context.Context, query, site, marker string) bool {
	if err := d.throttle.Wait(ctx); err != nil {
		return false
	}
	resp, err := d.client.Search(ctx, query, jina.WithSiteFilter(site), jina.WithoutContent())
	if err != nil {
		sourceFailed(d.metrics, "delivery", err, zap.String("site", site))
		return false
	}
	for _, r := range resp.Data {
		if strings.Contains(r.URL, marker) {
			return true
		}
	}
	return false
}

// getPage fetches a page with browser headers and returns its body.
func getPage(ctx context.Context, hc *http.Client, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "photo: create request")
	}
	for k, v := range BrowserHeaders {
		req.Header.Set(k, v)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "photo: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("photo: unexpected status %d from %s", resp.StatusCode, pageURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return "", eris.Wrap(err, "photo: read body")
	}
	return string(body), nil
}

func containsURL(photos []model.Photo, u string) bool {
	return slices.ContainsFunc(photos, func(p model.Photo) bool { return p.URL == u })
}

// NewHTTPClient returns a client with the fixed per-request timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
