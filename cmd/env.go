package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/suplook/internal/api"
	"github.com/sells-group/suplook/internal/catalog"
	"github.com/sells-group/suplook/internal/correction"
	"github.com/sells-group/suplook/internal/crm"
	"github.com/sells-group/suplook/internal/discovery"
	"github.com/sells-group/suplook/internal/lead"
	"github.com/sells-group/suplook/internal/metrics"
	"github.com/sells-group/suplook/internal/photo"
	"github.com/sells-group/suplook/internal/pipeline"
	"github.com/sells-group/suplook/internal/store"
	"github.com/sells-group/suplook/internal/vision"
	anthropicpkg "github.com/sells-group/suplook/pkg/anthropic"
	"github.com/sells-group/suplook/pkg/google"
	"github.com/sells-group/suplook/pkg/jina"
	"github.com/sells-group/suplook/pkg/yelp"
)

// appEnv holds the store, clients, and services shared by every command.
type appEnv struct {
	Store       store.Store
	Catalog     *catalog.Catalog
	Metrics     *metrics.Pipeline
	Corrections *correction.Service
	Leads       *lead.Service
	Runner      *pipeline.Runner
	Finder      *discovery.Finder
	Pusher      *crm.Pusher
	Google      google.Client // may be nil
	Status      api.Status
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// APIDeps returns the HTTP server dependencies.
func (e *appEnv) APIDeps() api.Deps {
	deps := api.Deps{
		AuthKey:     cfg.Server.AuthKey,
		AdminKey:    cfg.Server.AdminKey,
		Status:      e.Status,
		Catalog:     e.Catalog,
		Corrections: e.Corrections,
		Leads:       e.Leads,
		Runner:      e.Runner,
		Pusher:      e.Pusher,
		Metrics:     e.Metrics,
	}
	if e.Google != nil {
		deps.Finder = e.Finder
		deps.PhotoURL = e.Google.PhotoURL
	}
	return deps
}

// initEnv validates config, opens the store, and builds every service.
// Vendor clients are created only when their credentials are present; a
// missing key disables the dependent source. Callers should defer env.Close().
func initEnv(ctx context.Context) (*appEnv, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	env, err := buildEnv(ctx, st)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return env, nil
}

func buildEnv(ctx context.Context, st store.Store) (*appEnv, error) {
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, eris.Wrap(err, "load catalog")
	}
	zap.L().Info("catalog loaded",
		zap.String("source", string(cat.Source())),
		zap.Int("products", cat.ProductCount()),
	)

	m, err := metrics.New(nil)
	if err != nil {
		return nil, eris.Wrap(err, "init metrics")
	}

	pc := cfg.Photo
	requestTimeout := time.Duration(pc.RequestTimeoutSecs) * time.Second
	sourceDelay := time.Duration(pc.SourceDelayMs) * time.Millisecond
	status := api.Status{
		AnthropicConfigured: cfg.Anthropic.Key != "",
		GoogleConfigured:    cfg.Google.Key != "",
		YelpConfigured:      cfg.Yelp.Key != "",
		JinaConfigured:      cfg.Jina.Key != "",
		GoogleKey:           cfg.Google.Key,
	}

	hc := photo.NewHTTPClient(requestTimeout)
	hunterOpts := []photo.Option{
		photo.WithSocial(photo.NewInstagramSource(hc, photo.NewThrottle(sourceDelay), m)),
	}

	var yelpClient yelp.Client
	if status.YelpConfigured {
		yelpClient = yelp.NewClient(cfg.Yelp.Key, yelp.WithBaseURL(cfg.Yelp.BaseURL), yelp.WithTimeout(requestTimeout))
		hunterOpts = append(hunterOpts, photo.WithDirectory(photo.NewYelpSource(yelpClient, photo.NewThrottle(sourceDelay), m)))
	} else {
		zap.L().Info("yelp key not set, business-directory photos disabled")
	}

	var googleClient google.Client
	if status.GoogleConfigured {
		googleClient = google.NewClient(cfg.Google.Key, google.WithTimeout(requestTimeout))
		placesDelay := time.Duration(pc.PlacesDelayMs) * time.Millisecond
		hunterOpts = append(hunterOpts, photo.WithMaps(photo.NewPlacesSource(googleClient, photo.NewThrottle(placesDelay), m)))
	} else {
		zap.L().Info("google key not set, map photos and discovery disabled")
	}

	var jinaClient jina.Client
	if status.JinaConfigured {
		jinaClient = jina.NewClient(cfg.Jina.Key,
			jina.WithBaseURL(cfg.Jina.BaseURL),
			jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL),
			jina.WithTimeout(requestTimeout),
		)
		hunterOpts = append(hunterOpts,
			photo.WithImageSearch(photo.NewImageSearch(jinaClient, photo.NewThrottle(sourceDelay), m)),
			photo.WithDelivery(photo.NewDeliverySearch(jinaClient, photo.NewThrottle(sourceDelay), m)),
		)
	} else {
		zap.L().Info("jina key not set, image search and delivery check disabled")
	}

	hunter := photo.NewHunter(photo.Config{
		MaxPhotos:            pc.MaxPhotos,
		MinPhotosBeforeTopUp: pc.MinPhotosBeforeTopUp,
		DefaultCity:          pc.DefaultCity,
		CacheTTL:             time.Duration(pc.CacheTTLMins) * time.Minute,
	}, hunterOpts...)

	corrections, err := correction.NewService(ctx, st, correction.WithMetrics(m))
	if err != nil {
		return nil, eris.Wrap(err, "load corrections")
	}
	leads := lead.NewService(st, corrections, cat)

	imageTimeout := time.Duration(pc.ImageTimeoutSecs) * time.Second
	runnerOpts := []pipeline.Option{
		pipeline.WithCorrections(corrections),
		pipeline.WithMetrics(m),
	}
	if status.AnthropicConfigured {
		classifier := vision.NewClassifier(anthropicpkg.NewClient(cfg.Anthropic.Key), cat,
			vision.WithModel(cfg.Anthropic.VisionModel),
			vision.WithMaxTokens(cfg.Anthropic.MaxTokens),
			vision.WithMetrics(m),
		)
		runnerOpts = append(runnerOpts, pipeline.WithClassifier(classifier, photo.NewFetcher(imageTimeout)))
	} else {
		zap.L().Warn("anthropic key not set, all leads use rule-based products")
	}

	runner := pipeline.New(pipeline.Config{
		LeadDelay:        time.Duration(cfg.Pipeline.LeadDelayMs) * time.Millisecond,
		ImageTimeout:     imageTimeout,
		DefaultBatchSize: cfg.Pipeline.DefaultBatchSize,
		MaxBatchSize:     cfg.Pipeline.MaxBatchSize,
	}, hunter, st, runnerOpts...)

	var finder *discovery.Finder
	if googleClient != nil {
		finderOpts := []discovery.Option{discovery.WithMetrics(m), discovery.WithHTTPClient(hc)}
		if jinaClient != nil {
			finderOpts = append(finderOpts, discovery.WithReader(jinaClient))
		}
		finder = discovery.NewFinder(googleClient, discovery.Config{
			ZipDelay:     time.Duration(cfg.Discovery.ZipDelayMs) * time.Millisecond,
			DetailsDelay: time.Duration(cfg.Discovery.DetailsDelayMs) * time.Millisecond,
		}, finderOpts...)
	}

	sfClient, err := initSalesforce()
	if err != nil {
		zap.L().Warn("salesforce init failed, push disabled", zap.Error(err))
	}
	pusher := crm.NewPusher(nil, leads)
	if sfClient != nil {
		pusher = crm.NewPusher(sfClient, leads)
		status.SalesforceConfigured = true
	}

	return &appEnv{
		Store:       st,
		Catalog:     cat,
		Metrics:     m,
		Corrections: corrections,
		Leads:       leads,
		Runner:      runner,
		Finder:      finder,
		Pusher:      pusher,
		Google:      googleClient,
		Status:      status,
	}, nil
}

// sqlitePath is the default database file inside the data directory.
func sqlitePath() string {
	return filepath.Join(cfg.Store.DataDir, "suplook.db")
}
