// Package photo discovers candidate photos for a restaurant across several
// sources and ranks them into a confidence tier.
package photo

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/sells-group/suplook/internal/model"
)

// Config tunes the hunt.
type Config struct {
	MaxPhotos            int
	MinPhotosBeforeTopUp int
	DefaultCity          string
	CacheTTL             time.Duration
}

// Hunter runs the photo sources for one restaurant in a fixed order. Any
// source may be nil, which skips it.
type Hunter struct {
	directory DirectorySource
	social    SocialSource
	maps      MapSource
	images    ImageSearchSource
	delivery  DeliveryChecker

	cfg   Config
	cache *cache.Cache
}

// Option configures a Hunter.
type Option func(*Hunter)

// WithDirectory enables the business-directory source.
func WithDirectory(s DirectorySource) Option { return func(h *Hunter) { h.directory = s } }

// WithSocial enables the social-profile source.
func WithSocial(s SocialSource) Option { return func(h *Hunter) { h.social = s } }

// WithMaps enables the map-provider source.
func WithMaps(s MapSource) Option { return func(h *Hunter) { h.maps = s } }

// WithImageSearch enables the image-search top-up source.
func WithImageSearch(s ImageSearchSource) Option { return func(h *Hunter) { h.images = s } }

// WithDelivery enables the delivery presence check.
func WithDelivery(d DeliveryChecker) Option { return func(h *Hunter) { h.delivery = d } }

// NewHunter creates a Hunter. Zero config values take the defaults.
func NewHunter(cfg Config, opts ...Option) *Hunter {
	if cfg.MaxPhotos <= 0 {
		cfg.MaxPhotos = DefaultMaxPhotos
	}
	if cfg.MinPhotosBeforeTopUp <= 0 {
		cfg.MinPhotosBeforeTopUp = 3
	}
	if cfg.DefaultCity == "" {
		cfg.DefaultCity = "Philadelphia"
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}

	h := &Hunter{cfg: cfg, cache: cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)}
	for _, o := range opts {
		o(h)
	}
	return h
}

type directoryHit struct {
	photos []model.Photo
	info   *model.DirectoryInfo
}

// Hunt queries the directory, social, and map sources in that order, checks
// delivery listings, and tops up with image search when fewer than
// MinPhotosBeforeTopUp photos were found. Source failures only shrink the
// result.
func (h *Hunter) Hunt(ctx context.Context, r model.Restaurant) model.HuntResult {
	city := ResolveCity(r, h.cfg.DefaultCity)
	log := zap.L().With(zap.String("restaurant", r.Name), zap.String("city", city))

	var (
		candidates []model.Photo
		directory  *model.DirectoryInfo
	)

	if h.directory != nil {
		key := cacheKey("directory", r.Name, city)
		if v, ok := h.cache.Get(key); ok {
			hit := v.(directoryHit)
			candidates = append(candidates, hit.photos...)
			directory = hit.info
		} else {
			photos, info := h.directory.Lookup(ctx, r.Name, city)
			if ctx.Err() == nil {
				h.cache.SetDefault(key, directoryHit{photos: photos, info: info})
			}
			candidates = append(candidates, photos...)
			directory = info
		}
	}

	if h.social != nil && r.Instagram != "" {
		candidates = append(candidates, h.social.Photos(ctx, r.Instagram)...)
	}

	if h.maps != nil && r.PlaceID != "" {
		candidates = append(candidates, h.maps.Photos(ctx, r.PlaceID)...)
	}

	var delivery model.DeliveryPresence
	if h.delivery != nil {
		key := cacheKey("delivery", r.Name, city)
		if v, ok := h.cache.Get(key); ok {
			delivery = v.(model.DeliveryPresence)
		} else {
			delivery = h.delivery.Check(ctx, r.Name, city)
			if ctx.Err() == nil {
				h.cache.SetDefault(key, delivery)
			}
		}
	}

	if h.images != nil && len(candidates) < h.cfg.MinPhotosBeforeTopUp {
		candidates = append(candidates, h.images.Photos(ctx, r.Name, city)...)
	}

	photos, tier := Aggregate(candidates, delivery, h.cfg.MaxPhotos)
	log.Info("photo: hunt complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("photos", len(photos)),
		zap.Int("tier", int(tier)),
		zap.Bool("doordash", delivery.DoorDash),
		zap.Bool("ubereats", delivery.UberEats),
	)

	return model.HuntResult{
		Photos:    photos,
		Tier:      tier,
		Delivery:  delivery,
		Directory: directory,
	}
}

// ResolveCity returns the restaurant's city, else the second-to-last
// comma-separated part of its address, else def.
func ResolveCity(r model.Restaurant, def string) string {
	if c := strings.TrimSpace(r.City); c != "" {
		return c
	}
	parts := strings.Split(r.Address, ",")
	if len(parts) >= 2 {
		if c := strings.TrimSpace(parts[len(parts)-2]); c != "" {
			return c
		}
	}
	return def
}

func cacheKey(kind, name, city string) string {
	return kind + "|" + strings.ToLower(strings.TrimSpace(name)) + "|" + strings.ToLower(city)
}
