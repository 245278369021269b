// Package correction stores operator corrections and replays them onto new
// classification results.
package correction

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/sells-group/suplook/internal/metrics"
	"github.com/sells-group/suplook/internal/model"
	"github.com/sells-group/suplook/internal/store"
)

// Reasons attached to products injected by stored corrections.
const (
	ReasonLearned = "Added from your corrections"
	reasonAlways  = "Always included for "
)

// DefaultVocabulary lists the name keywords that receive name-pattern
// corrections. It is maintained separately from the fallback rule table.
var DefaultVocabulary = []string{
	"pizza", "taco", "burger", "sushi", "thai", "indian",
	"deli", "cafe", "coffee", "bakery", "bar", "grill",
}

// Feedback is one operator edit of a product list.
type Feedback struct {
	RestaurantName string
	Cuisine        string
	Original       []model.ProductPick
	Corrected      []model.ProductPick
}

// FeedbackResult summarizes a recorded feedback event.
type FeedbackResult struct {
	Added            int `json:"added"`
	Removed          int `json:"removed"`
	TotalCorrections int `json:"totalCorrections"`
}

// FieldOutcome is a field result appended to the training-signal log.
type FieldOutcome struct {
	Cuisine      string
	Restaurant   string
	AISuggested  []string
	ActualNeeded []string
	Outcome      model.Outcome
	RecordedAt   time.Time
}

// Service owns the in-memory correction indices. Every mutation is written
// to the repository before the in-memory copy changes.
type Service struct {
	repo       store.CorrectionRepository
	metrics    *metrics.Pipeline
	vocabulary []string

	mu  sync.RWMutex
	set model.CorrectionSet
}

// Option configures a Service.
type Option func(*Service)

// WithVocabulary overrides the name keywords used by RecordFeedback.
func WithVocabulary(words []string) Option {
	return func(s *Service) { s.vocabulary = words }
}

// WithMetrics reports recorded corrections to m.
func WithMetrics(m *metrics.Pipeline) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService loads the stored corrections from repo.
func NewService(ctx context.Context, repo store.CorrectionRepository, opts ...Option) (*Service, error) {
	set, err := repo.LoadCorrections(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "correction: load")
	}
	set.Normalize()

	s := &Service{repo: repo, vocabulary: DefaultVocabulary, set: set}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Apply rewrites analysis.Products in place. Name-pattern corrections run
// first, then the correction for analysis.CuisineType, so a cuisine
// never-include always wins over a name-pattern add. Applying twice yields
// the same products as applying once.
func (s *Service) Apply(analysis *model.VisionAnalysis, restaurantName string) {
	if analysis == nil {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	fold := cases.Fold()
	name := fold.String(restaurantName)
	products := slices.Clone(analysis.Products)

	patterns := make([]string, 0, len(s.set.ByName))
	for p := range s.set.ByName {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)

	for _, pattern := range patterns {
		if pattern == "" || !strings.Contains(name, fold.String(pattern)) {
			continue
		}
		c := s.set.ByName[pattern]
		for _, add := range c.Add {
			if containsPick(products, add) {
				continue
			}
			add.Reason = ReasonLearned
			products = append(products, add)
		}
		products = without(products, c.Remove)
	}

	if c, ok := s.set.ByCuisine[analysis.CuisineType]; ok && analysis.CuisineType != "" {
		for _, sku := range c.AlwaysInclude {
			if indexOf(products, sku) >= 0 {
				continue
			}
			products = append(products, model.ProductPick{
				SKU:    sku,
				Name:   sku,
				Reason: reasonAlways + analysis.CuisineType,
			})
		}
		products = without(products, c.NeverInclude)
	}

	analysis.Products = products
}

// RecordFeedback diffs the original and corrected lists by SKU or name and
// stores the delta under the cuisine bucket and every vocabulary keyword in
// the restaurant name. A feedback with no delta changes nothing.
func (s *Service) RecordFeedback(ctx context.Context, fb Feedback) (FeedbackResult, error) {
	added, removed := Diff(fb.Original, fb.Corrected)

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(added) == 0 && len(removed) == 0 {
		return FeedbackResult{TotalCorrections: s.set.Count()}, nil
	}

	next := s.set.Clone()
	addedKeys := keys(added)

	if fb.Cuisine != "" {
		c := next.ByCuisine[fb.Cuisine]
		c.AlwaysInclude = appendUnique(c.AlwaysInclude, addedKeys...)
		c.NeverInclude = appendUnique(c.NeverInclude, removed...)
		next.ByCuisine[fb.Cuisine] = c
	}

	name := cases.Fold().String(fb.RestaurantName)
	for _, word := range s.vocabulary {
		if !strings.Contains(name, word) {
			continue
		}
		c := next.ByName[word]
		for _, p := range added {
			if !containsPick(c.Add, p) {
				c.Add = append(c.Add, p)
			}
		}
		c.Remove = appendUnique(c.Remove, removed...)
		next.ByName[word] = c
	}

	if err := s.repo.SaveCorrections(ctx, next); err != nil {
		return FeedbackResult{}, eris.Wrap(err, "correction: save feedback")
	}
	s.set = next
	s.metrics.IncCorrected()

	zap.L().Info("correction: feedback recorded",
		zap.String("restaurant", fb.RestaurantName),
		zap.String("cuisine", fb.Cuisine),
		zap.Int("added", len(added)),
		zap.Int("removed", len(removed)),
	)

	return FeedbackResult{
		Added:            len(added),
		Removed:          len(removed),
		TotalCorrections: next.Count(),
	}, nil
}

// RecordFieldOutcome appends a field result to the by-field log under its
// cuisine, or "general" when the cuisine is unknown.
func (s *Service) RecordFieldOutcome(ctx context.Context, fo FieldOutcome) error {
	cuisine := fo.Cuisine
	if cuisine == "" {
		cuisine = "general"
	}
	recordedAt := fo.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.set.Clone()
	next.ByField[cuisine] = append(next.ByField[cuisine], model.FieldFeedback{
		Restaurant:   fo.Restaurant,
		AISuggested:  slices.Clone(fo.AISuggested),
		ActualNeeded: slices.Clone(fo.ActualNeeded),
		Outcome:      fo.Outcome,
		RecordedAt:   recordedAt,
	})

	if err := s.repo.SaveCorrections(ctx, next); err != nil {
		return eris.Wrap(err, "correction: save field outcome")
	}
	s.set = next
	return nil
}

// Clear removes every stored correction.
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	empty := model.NewCorrectionSet()
	if err := s.repo.SaveCorrections(ctx, empty); err != nil {
		return eris.Wrap(err, "correction: clear")
	}
	s.set = empty
	return nil
}

// Snapshot returns a copy of all three indices.
func (s *Service) Snapshot() model.CorrectionSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set.Clone()
}

// Count is the number of name-pattern and cuisine buckets.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set.Count()
}

// Diff returns the picks in corrected that match no original pick, and the
// keys of original picks that match no corrected pick. Picks match by SKU or
// by name.
func Diff(original, corrected []model.ProductPick) (added []model.ProductPick, removed []string) {
	for _, p := range corrected {
		if !containsPick(original, p) {
			added = append(added, p)
		}
	}
	for _, p := range original {
		if !containsPick(corrected, p) {
			removed = appendUnique(removed, p.Key())
		}
	}
	return added, removed
}

// indexOf finds the first pick named by key, by SKU or by name.
func indexOf(picks []model.ProductPick, key string) int {
	return slices.IndexFunc(picks, func(p model.ProductPick) bool { return p.Matches(key) })
}

func containsPick(picks []model.ProductPick, want model.ProductPick) bool {
	return slices.ContainsFunc(picks, want.Same)
}

func without(picks []model.ProductPick, remove []string) []model.ProductPick {
	if len(remove) == 0 {
		return picks
	}
	return slices.DeleteFunc(picks, func(p model.ProductPick) bool {
		return slices.ContainsFunc(remove, p.Matches)
	})
}

func keys(picks []model.ProductPick) []string {
	out := make([]string, len(picks))
	for i, p := range picks {
		out[i] = p.Key()
	}
	return out
}

func appendUnique(dst []string, vals ...string) []string {
	for _, v := range vals {
		if !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}
