// Package discovery turns zip codes and a cuisine into restaurant stubs using
// map-provider text search, place details, and a scrape of each website.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/suplook/internal/metrics"
	"github.com/sells-group/suplook/internal/model"
	"github.com/sells-group/suplook/internal/photo"
	"github.com/sells-group/suplook/pkg/google"
	"github.com/sells-group/suplook/pkg/jina"
)

// Query errors.
var (
	ErrNoRegions           = errors.New("no zip codes provided")
	ErrMapProviderDisabled = errors.New("map provider not configured")
)

const (
	defaultBatchSize = 10
	defaultCuisine   = "restaurant"
	sitePageTimeout  = 5 * time.Second
)

// Query selects the regions and cuisine to search.
type Query struct {
	ZipCodes  []string `json:"zipCodes"`
	Cuisine   string   `json:"cuisine"`
	BatchSize int      `json:"batchSize" validate:"gte=0"`
	Shuffle   bool     `json:"shuffle"`
}

// Config paces map-provider calls.
type Config struct {
	ZipDelay     time.Duration
	DetailsDelay time.Duration
}

// Finder discovers restaurant stubs.
type Finder struct {
	places  google.Client
	reader  jina.Client
	hc      *http.Client
	metrics *metrics.Pipeline

	zipThrottle     *photo.Throttle
	detailsThrottle *photo.Throttle
	shuffle         func(n int, swap func(i, j int))
}

// Option configures a Finder.
type Option func(*Finder)

// WithReader scrapes websites through the reader service instead of a
// direct request.
func WithReader(r jina.Client) Option {
	return func(f *Finder) { f.reader = r }
}

// WithHTTPClient overrides the client used for direct website fetches.
func WithHTTPClient(hc *http.Client) Option {
	return func(f *Finder) { f.hc = hc }
}

// WithMetrics counts failed lookups.
func WithMetrics(m *metrics.Pipeline) Option {
	return func(f *Finder) { f.metrics = m }
}

// WithShuffle replaces the shuffle used when Query.Shuffle is set.
func WithShuffle(fn func(n int, swap func(i, j int))) Option {
	return func(f *Finder) { f.shuffle = fn }
}

// NewFinder creates a Finder. A nil places client makes every Find fail with
// ErrMapProviderDisabled.
func NewFinder(places google.Client, cfg Config, opts ...Option) *Finder {
	f := &Finder{
		places:          places,
		hc:              &http.Client{Timeout: sitePageTimeout},
		zipThrottle:     photo.NewThrottle(cfg.ZipDelay),
		detailsThrottle: photo.NewThrottle(cfg.DetailsDelay),
		shuffle:         rand.Shuffle,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Enabled reports whether the map provider is configured.
func (f *Finder) Enabled() bool {
	return f != nil && f.places != nil
}

// Find searches each zip code, de-duplicates by place id, optionally
// shuffles, caps the list at BatchSize, and fills contact details for the
// survivors. A failing zip or detail lookup is skipped, not fatal.
func (f *Finder) Find(ctx context.Context, q Query) ([]model.Restaurant, error) {
	if !f.Enabled() {
		return nil, eris.Wrap(ErrMapProviderDisabled, "discovery: find")
	}
	zips := make([]string, 0, len(q.ZipCodes))
	for _, z := range q.ZipCodes {
		if z = strings.TrimSpace(z); z != "" {
			zips = append(zips, z)
		}
	}
	if len(zips) == 0 {
		return nil, eris.Wrap(ErrNoRegions, "discovery: find")
	}

	cuisine := strings.TrimSpace(q.Cuisine)
	if cuisine == "" {
		cuisine = defaultCuisine
	}
	limit := q.BatchSize
	if limit <= 0 {
		limit = defaultBatchSize
	}

	log := zap.L().With(zap.String("cuisine", cuisine))
	log.Info("discovery: searching", zap.Int("zip_codes", len(zips)), zap.Int("batch_size", limit))

	stubs, err := f.search(ctx, zips, cuisine)
	if err != nil {
		return nil, err
	}
	log.Info("discovery: unique restaurants found", zap.Int("count", len(stubs)))

	if q.Shuffle {
		f.shuffle(len(stubs), func(i, j int) { stubs[i], stubs[j] = stubs[j], stubs[i] })
	}
	if len(stubs) > limit {
		stubs = stubs[:limit]
	}

	for i := range stubs {
		if err := f.detailsThrottle.Wait(ctx); err != nil {
			return stubs[:i], eris.Wrap(err, "discovery: details interrupted")
		}
		f.fillContact(ctx, &stubs[i])
	}

	log.Info("discovery: contact info collected", zap.Int("count", len(stubs)))
	return stubs, nil
}

func (f *Finder) search(ctx context.Context, zips []string, cuisine string) ([]model.Restaurant, error) {
	var stubs []model.Restaurant
	seen := map[string]bool{}

	for i, zip := range zips {
		if err := f.zipThrottle.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "discovery: search interrupted")
		}

		resp, err := f.places.TextSearch(ctx, fmt.Sprintf("%s in %s", cuisine, zip))
		if err != nil {
			f.metrics.IncSourceFailure("discovery_search")
			zap.L().Warn("discovery: zip search failed", zap.String("zip", zip), zap.Error(err))
			continue
		}

		added := 0
		for _, p := range resp.Places {
			if p.ID == "" || seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			stubs = append(stubs, stubFromPlace(p))
			added++
		}
		zap.L().Debug("discovery: zip searched",
			zap.Int("zip_index", i+1),
			zap.String("zip", zip),
			zap.Int("found", len(resp.Places)),
			zap.Int("new", added),
		)
	}
	return stubs, nil
}

func stubFromPlace(p google.Place) model.Restaurant {
	return model.Restaurant{
		Name:        p.DisplayName.Text,
		Address:     p.FormattedAddress,
		PlaceID:     p.ID,
		Types:       p.Types,
		Rating:      p.Rating,
		ReviewCount: p.UserRatingCount,
	}
}

// fillContact adds phone, website, and types from place details, then email
// and social handle from the website. Failures leave the stub as it was.
func (f *Finder) fillContact(ctx context.Context, r *model.Restaurant) {
	details, err := f.places.PlaceDetails(ctx, r.PlaceID, google.ContactFieldMask)
	if err != nil {
		f.metrics.IncSourceFailure("discovery_details")
		zap.L().Warn("discovery: place details failed", zap.String("restaurant", r.Name), zap.Error(err))
		return
	}
	r.Phone = details.NationalPhoneNumber
	r.Website = details.WebsiteURI
	if len(details.Types) > 0 {
		r.Types = details.Types
	}
	if r.Website == "" {
		return
	}

	page, err := f.fetchSite(ctx, r.Website)
	if err != nil {
		zap.L().Debug("discovery: website fetch failed", zap.String("website", r.Website), zap.Error(err))
		return
	}
	r.Email = ExtractEmail(page)
	r.Instagram = ExtractInstagram(page)
}
