// Package pipeline enriches restaurant stubs into leads: photo hunt, vision
// classification or rule fallback, then stored corrections.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/suplook/internal/fallback"
	"github.com/sells-group/suplook/internal/metrics"
	"github.com/sells-group/suplook/internal/model"
	"github.com/sells-group/suplook/internal/photo"
	"github.com/sells-group/suplook/internal/store"
	"github.com/sells-group/suplook/internal/vision"
)

// Batch input errors.
var (
	ErrEmptyBatch   = errors.New("empty batch")
	ErrInvalidBatch = errors.New("invalid batch")
)

// Hunter finds and ranks candidate photos for one restaurant.
type Hunter interface {
	Hunt(ctx context.Context, r model.Restaurant) model.HuntResult
}

// Classifier labels one photo.
type Classifier interface {
	Enabled() bool
	Classify(ctx context.Context, img vision.Image, restaurantName string) vision.Result
}

// ImageFetcher downloads a photo for classification.
type ImageFetcher interface {
	Fetch(ctx context.Context, imageURL string) (vision.Image, error)
}

// Corrector replays stored corrections onto a result.
type Corrector interface {
	Apply(analysis *model.VisionAnalysis, restaurantName string)
}

// LeadStore is the subset of the lead repository the runner writes through.
type LeadStore interface {
	GetLead(ctx context.Context, id string) (*model.Lead, error)
	UpsertLead(ctx context.Context, lead model.Lead) error
}

// Config tunes batch pacing and limits.
type Config struct {
	LeadDelay        time.Duration
	ImageTimeout     time.Duration
	DefaultBatchSize int
	MaxBatchSize     int
}

// Runner enriches restaurants one at a time.
type Runner struct {
	hunter      Hunter
	classifier  Classifier
	fetcher     ImageFetcher
	matcher     *fallback.Matcher
	corrections Corrector
	leads       LeadStore
	metrics     *metrics.Pipeline
	validate    *validator.Validate

	cfg Config
	now func() time.Time

	// batchMu keeps batches sequential so per-source pacing holds and no
	// lead id is enriched twice at once.
	batchMu sync.Mutex
}

// Option configures a Runner.
type Option func(*Runner)

// WithClassifier enables vision classification.
func WithClassifier(c Classifier, f ImageFetcher) Option {
	return func(r *Runner) {
		r.classifier = c
		r.fetcher = f
	}
}

// WithCorrections applies stored corrections to every result.
func WithCorrections(c Corrector) Option {
	return func(r *Runner) { r.corrections = c }
}

// WithMatcher overrides the fallback rule table.
func WithMatcher(m *fallback.Matcher) Option {
	return func(r *Runner) { r.matcher = m }
}

// WithMetrics reports enrichment counts and durations to m.
func WithMetrics(m *metrics.Pipeline) Option {
	return func(r *Runner) { r.metrics = m }
}

// New creates a Runner that persists batch results to leads.
func New(cfg Config, hunter Hunter, leads LeadStore, opts ...Option) *Runner {
	if cfg.DefaultBatchSize <= 0 {
		cfg.DefaultBatchSize = 10
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 100
	}
	if cfg.ImageTimeout <= 0 {
		cfg.ImageTimeout = photo.DefaultImageTimeout
	}

	r := &Runner{
		hunter:   hunter,
		leads:    leads,
		matcher:  fallback.Default(),
		validate: validator.New(),
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Enrich runs the photo hunt, classifies the best photo when a classifier
// is configured, falls back to the rule table otherwise, and applies stored
// corrections. The lead is not persisted.
func (r *Runner) Enrich(ctx context.Context, rest model.Restaurant, batchID string) model.Lead {
	start := time.Now()
	log := zap.L().With(zap.String("restaurant", rest.Name))
	log.Info("pipeline: enriching")

	hunt := r.hunter.Hunt(ctx, rest)
	lead := baseLead(rest, batchID)
	lead.Photos = hunt.Photos
	lead.Tier = hunt.Tier
	lead.Delivery = hunt.Delivery
	lead.Directory = hunt.Directory
	lead.EnrichedAt = r.now()
	if hunt.Directory != nil && lead.Rating == 0 {
		lead.Rating = hunt.Directory.Rating
		lead.ReviewCount = hunt.Directory.ReviewCount
	}

	var analysis *model.VisionAnalysis
	if len(hunt.Photos) > 0 && r.classifier != nil && r.fetcher != nil && r.classifier.Enabled() {
		best := hunt.Photos[0]
		lead.PhotoAnalyzed = best.URL
		analysis = r.classify(ctx, best.URL, rest.Name)
	}
	if analysis == nil {
		analysis = r.fallbackAnalysis(rest)
		log.Info("pipeline: using rule-based products", zap.String("cuisine", analysis.CuisineType))
	}

	if r.corrections != nil {
		r.corrections.Apply(analysis, rest.Name)
	}

	lead.Vision = analysis
	lead.Products = slices.Clone(analysis.Products)
	lead.ProductsOriginal = slices.Clone(analysis.Products)
	lead.Cuisine = analysis.CuisineType
	if lead.Cuisine == "" {
		lead.Cuisine = fallback.GeneralCuisine
	}
	lead.Confidence = analysis.Confidence
	if lead.Confidence == "" {
		lead.Confidence = model.ConfidenceLow
	}

	r.metrics.ObserveEnriched(lead.Tier, time.Since(start).Seconds())
	log.Info("pipeline: enriched",
		zap.Int("tier", int(lead.Tier)),
		zap.Int("photos", len(lead.Photos)),
		zap.Int("products", len(lead.Products)),
		zap.Bool("fallback", analysis.Fallback),
	)
	return lead
}

// classify fetches imageURL and returns a successful analysis, or nil when
// the fetch or classification failed.
func (r *Runner) classify(ctx context.Context, imageURL, name string) *model.VisionAnalysis {
	fetchCtx, cancel := context.WithTimeout(ctx, r.cfg.ImageTimeout)
	img, err := r.fetcher.Fetch(fetchCtx, imageURL)
	cancel()
	if err != nil {
		zap.L().Warn("pipeline: image fetch failed",
			zap.String("restaurant", name),
			zap.String("url", imageURL),
			zap.Error(err),
		)
		return nil
	}

	res := r.classifier.Classify(ctx, img, name)
	if !res.OK() {
		return nil
	}
	return res.Analysis
}

func (r *Runner) fallbackAnalysis(rest model.Restaurant) *model.VisionAnalysis {
	m := r.matcher.Match(rest.Name, rest.Types)
	return &model.VisionAnalysis{
		CuisineType: m.Cuisine,
		Confidence:  model.ConfidenceLow,
		Products:    m.Products,
		Fallback:    true,
	}
}

// degraded is the record kept for a restaurant whose enrichment failed.
func (r *Runner) degraded(rest model.Restaurant, batchID string, cause error) model.Lead {
	m := r.matcher.Match(rest.Name, rest.Types)
	lead := baseLead(rest, batchID)
	lead.Photos = []model.Photo{}
	lead.Tier = model.TierRuleOnly
	lead.Products = m.Products
	lead.ProductsOriginal = slices.Clone(m.Products)
	lead.Cuisine = m.Cuisine
	lead.Confidence = model.ConfidenceLow
	lead.Error = cause.Error()
	lead.EnrichedAt = r.now()
	return lead
}

// safeEnrich converts a panic inside one enrichment into a degraded record.
func (r *Runner) safeEnrich(ctx context.Context, rest model.Restaurant, batchID string) (lead model.Lead) {
	defer func() {
		if p := recover(); p != nil {
			err := eris.Errorf("pipeline: enrichment panicked: %v", p)
			zap.L().Error("pipeline: enrichment failed", zap.String("restaurant", rest.Name), zap.Error(err))
			lead = r.degraded(rest, batchID, err)
		}
	}()
	return r.Enrich(ctx, rest, batchID)
}

// BatchRequest is a list of restaurant stubs to enrich.
type BatchRequest struct {
	Restaurants []model.Restaurant `json:"restaurants" validate:"dive"`
	BatchID     string             `json:"batchId"`
	BatchSize   int                `json:"batchSize" validate:"gte=0"`
}

// BatchResult is the per-lead output and tier counts of one batch.
type BatchResult struct {
	BatchID string       `json:"batch_id"`
	Total   int          `json:"total"`
	Tier1   int          `json:"tier1"`
	Tier2   int          `json:"tier2"`
	Tier3   int          `json:"tier3"`
	Leads   []model.Lead `json:"leads"`
}

func (b *BatchResult) add(l model.Lead) {
	b.Leads = append(b.Leads, l)
	b.Total++
	switch l.Tier {
	case model.TierDirectory:
		b.Tier1++
	case model.TierSecondary:
		b.Tier2++
	default:
		b.Tier3++
	}
}

// RunBatch enriches up to BatchSize restaurants in input order (the
// configured default when BatchSize is unset, never more than MaxBatchSize),
// persisting
// each lead as soon as it is done. A failing restaurant yields a degraded
// record instead of stopping the batch. Cancelling ctx stops before the next
// restaurant; leads already stored stay stored.
func (r *Runner) RunBatch(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	if len(req.Restaurants) == 0 {
		return nil, eris.Wrap(ErrEmptyBatch, "pipeline: run batch")
	}
	if err := r.validate.Struct(req); err != nil {
		return nil, eris.Wrapf(ErrInvalidBatch, "pipeline: %v", err)
	}

	size := req.BatchSize
	if size <= 0 {
		size = r.cfg.DefaultBatchSize
	}
	size = min(size, r.cfg.MaxBatchSize, len(req.Restaurants))
	restaurants := req.Restaurants[:size]

	batchID := req.BatchID
	if batchID == "" {
		batchID = fmt.Sprintf("batch_%s", uuid.NewString())
	}

	r.batchMu.Lock()
	defer r.batchMu.Unlock()

	log := zap.L().With(zap.String("batch_id", batchID))
	log.Info("pipeline: batch started", zap.Int("restaurants", len(restaurants)))

	res := &BatchResult{BatchID: batchID, Leads: make([]model.Lead, 0, len(restaurants))}
	for i, rest := range restaurants {
		if i > 0 {
			if err := sleep(ctx, r.cfg.LeadDelay); err != nil {
				return res, eris.Wrap(err, "pipeline: batch interrupted")
			}
		}
		if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "pipeline: batch interrupted")
		}

		lead := r.safeEnrich(ctx, rest, batchID)
		if err := r.persist(ctx, &lead); err != nil {
			return res, err
		}
		res.add(lead)
		log.Info("pipeline: batch progress",
			zap.Int("done", i+1),
			zap.Int("of", len(restaurants)),
			zap.Int("tier", int(lead.Tier)),
		)
	}

	log.Info("pipeline: batch complete",
		zap.Int("total", res.Total),
		zap.Int("tier1", res.Tier1),
		zap.Int("tier2", res.Tier2),
		zap.Int("tier3", res.Tier3),
	)
	return res, nil
}

// persist upserts lead, keeping the original snapshot and review state of a
// lead that was enriched before.
func (r *Runner) persist(ctx context.Context, lead *model.Lead) error {
	existing, err := r.leads.GetLead(ctx, lead.ID)
	switch {
	case err == nil:
		lead.ProductsOriginal = existing.ProductsOriginal
		lead.Graduated = existing.Graduated
		lead.GraduatedAt = existing.GraduatedAt
		lead.AICorrected = existing.AICorrected
		lead.Outcome = existing.Outcome
		lead.OutcomeNotes = existing.OutcomeNotes
		lead.OutcomeAt = existing.OutcomeAt
		lead.ContactedAt = existing.ContactedAt
		lead.ActualProductsNeeded = existing.ActualProductsNeeded
		lead.SalesforceID = existing.SalesforceID
	case errors.Is(err, store.ErrNotFound):
	default:
		return eris.Wrapf(err, "pipeline: load lead %s", lead.ID)
	}

	if err := r.leads.UpsertLead(ctx, *lead); err != nil {
		return eris.Wrapf(err, "pipeline: save lead %s", lead.ID)
	}
	return nil
}

func baseLead(rest model.Restaurant, batchID string) model.Lead {
	id := rest.ID
	if id == "" {
		id = "lead_" + uuid.NewString()
	}
	return model.Lead{
		ID:          id,
		BatchID:     batchID,
		Name:        rest.Name,
		Address:     rest.Address,
		Phone:       rest.Phone,
		Email:       rest.Email,
		Website:     rest.Website,
		Instagram:   rest.Instagram,
		PlaceID:     rest.PlaceID,
		Types:       slices.Clone(rest.Types),
		Rating:      rest.Rating,
		ReviewCount: rest.ReviewCount,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
