// Package lead manages enriched leads through review, graduation, and field
// outcomes, and reports how predictions held up.
package lead

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/suplook/internal/catalog"
	"github.com/sells-group/suplook/internal/correction"
	"github.com/sells-group/suplook/internal/model"
	"github.com/sells-group/suplook/internal/store"
)

// ErrInvalidOutcome is returned for an outcome label outside
// no_reply, replied, sold, and lost.
var ErrInvalidOutcome = errors.New("invalid outcome")

// Service owns lead state transitions. Read-modify-write sequences are
// serialized so two requests never interleave on the same lead.
type Service struct {
	repo        store.LeadRepository
	corrections *correction.Service
	catalog     *catalog.Catalog
	now         func() time.Time

	mu sync.Mutex
}

// NewService creates a lead service. cat resolves free-text product names
// reported from the field; nil uses the built-in catalog.
func NewService(repo store.LeadRepository, corrections *correction.Service, cat *catalog.Catalog) *Service {
	if cat == nil {
		cat = catalog.Builtin()
	}
	return &Service{
		repo:        repo,
		corrections: corrections,
		catalog:     cat,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ListResult is a filtered lead list with totals over the whole collection.
type ListResult struct {
	Total     int          `json:"total"`
	Pending   int          `json:"pending"`
	Graduated int          `json:"graduated"`
	Leads     []model.Lead `json:"leads"`
}

// List returns leads matching filter in insertion order.
func (s *Service) List(ctx context.Context, filter store.LeadFilter) (*ListResult, error) {
	all, err := s.repo.ListLeads(ctx, store.LeadFilter{})
	if err != nil {
		return nil, eris.Wrap(err, "lead: list")
	}

	res := &ListResult{Total: len(all), Leads: make([]model.Lead, 0, len(all))}
	for _, l := range all {
		if l.Graduated {
			res.Graduated++
		} else {
			res.Pending++
		}
		if filter.Matches(l) {
			res.Leads = append(res.Leads, l)
		}
	}
	return res, nil
}

// Get returns one lead or an error wrapping store.ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*model.Lead, error) {
	l, err := s.repo.GetLead(ctx, id)
	if err != nil {
		return nil, eris.Wrap(err, "lead: get")
	}
	return l, nil
}

// CreateResult reports a batch insert.
type CreateResult struct {
	Added   int `json:"added"`
	Total   int `json:"total"`
	Pending int `json:"pending"`
}

// CreateBatch inserts leads whose ids are not yet stored. New leads start
// pending; a missing products_original is snapshotted from products.
func (s *Service) CreateBatch(ctx context.Context, leads []model.Lead) (*CreateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prepared := make([]model.Lead, 0, len(leads))
	for _, l := range leads {
		l = l.Clone()
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		if l.ProductsOriginal == nil {
			l.ProductsOriginal = slices.Clone(l.Products)
		}
		if l.EnrichedAt.IsZero() {
			l.EnrichedAt = s.now()
		}
		l.Graduated = false
		l.GraduatedAt = nil
		prepared = append(prepared, l)
	}

	added, err := s.repo.InsertLeads(ctx, prepared)
	if err != nil {
		return nil, eris.Wrap(err, "lead: create batch")
	}

	sum, err := s.summary(ctx)
	if err != nil {
		return nil, err
	}
	return &CreateResult{Added: added, Total: sum.Total, Pending: sum.Pending}, nil
}

// Patch holds operator-editable fields. Nil fields are left unchanged.
type Patch struct {
	Name            *string              `json:"name,omitempty"`
	Address         *string              `json:"address,omitempty"`
	Phone           *string              `json:"phone,omitempty"`
	Email           *string              `json:"email,omitempty"`
	Website         *string              `json:"website,omitempty"`
	Instagram       *string              `json:"instagram,omitempty"`
	Cuisine         *string              `json:"detected_cuisine,omitempty"`
	Products        *[]model.ProductPick `json:"products,omitempty"`
	CorrectionNotes *string              `json:"correction_notes,omitempty"`
	SalesforceID    *string              `json:"salesforce_id,omitempty"`
}

// Update applies p to the lead. products_original is never touched.
func (s *Service) Update(ctx context.Context, id string, p Patch) (*model.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.repo.GetLead(ctx, id)
	if err != nil {
		return nil, eris.Wrap(err, "lead: update")
	}

	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&l.Name, p.Name)
	set(&l.Address, p.Address)
	set(&l.Phone, p.Phone)
	set(&l.Email, p.Email)
	set(&l.Website, p.Website)
	set(&l.Instagram, p.Instagram)
	set(&l.Cuisine, p.Cuisine)
	set(&l.CorrectionNotes, p.CorrectionNotes)
	set(&l.SalesforceID, p.SalesforceID)
	if p.Products != nil {
		l.Products = slices.Clone(*p.Products)
	}

	if err := s.repo.UpsertLead(ctx, *l); err != nil {
		return nil, eris.Wrap(err, "lead: update")
	}
	return l, nil
}

// GraduateRequest is an operator's approval of a lead.
type GraduateRequest struct {
	// Products replaces the current list when non-nil.
	Products []model.ProductPick `json:"products"`
	// Corrected marks the lead as edited regardless of the list comparison.
	Corrected bool   `json:"corrected"`
	Notes     string `json:"notes,omitempty"`
}

// GraduateResult is the graduated lead and the remaining pending count.
type GraduateResult struct {
	Lead     *model.Lead                `json:"lead"`
	Pending  int                        `json:"pending"`
	Feedback *correction.FeedbackResult `json:"feedback,omitempty"`
}

// Graduate approves a lead. When the final product names differ from the
// original snapshot the lead is marked ai_corrected and the difference is
// recorded as correction feedback.
func (s *Service) Graduate(ctx context.Context, id string, req GraduateRequest) (*GraduateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.repo.GetLead(ctx, id)
	if err != nil {
		return nil, eris.Wrap(err, "lead: graduate")
	}

	if req.Products != nil {
		l.Products = slices.Clone(req.Products)
	}
	changed := !sameNames(l.ProductsOriginal, l.Products)
	l.AICorrected = req.Corrected || changed
	if req.Notes != "" {
		l.CorrectionNotes = req.Notes
	}
	now := s.now()
	l.Graduated = true
	l.GraduatedAt = &now

	// Feedback is saved before the lead so a failed save leaves the lead
	// pending. Re-recording the same diff on a retry is a no-op.
	res := &GraduateResult{Lead: l}
	if changed && s.corrections != nil {
		fb, err := s.corrections.RecordFeedback(ctx, correction.Feedback{
			RestaurantName: l.Name,
			Cuisine:        l.Cuisine,
			Original:       l.ProductsOriginal,
			Corrected:      l.Products,
		})
		if err != nil {
			return nil, eris.Wrap(err, "lead: graduate feedback")
		}
		res.Feedback = &fb
	}

	if err := s.repo.UpsertLead(ctx, *l); err != nil {
		return nil, eris.Wrap(err, "lead: graduate")
	}

	sum, err := s.summary(ctx)
	if err != nil {
		return nil, err
	}
	res.Pending = sum.Pending

	zap.L().Info("lead: graduated",
		zap.String("lead_id", l.ID),
		zap.String("restaurant", l.Name),
		zap.Bool("ai_corrected", l.AICorrected),
	)
	return res, nil
}

// GraduateAllResult reports a bulk graduation.
type GraduateAllResult struct {
	Graduated int `json:"graduated"`
	Total     int `json:"total"`
	Pending   int `json:"pending"`
}

// GraduateAll graduates every pending lead without changing products.
func (s *Service) GraduateAll(ctx context.Context) (*GraduateAllResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	notGraduated := false
	pending, err := s.repo.ListLeads(ctx, store.LeadFilter{Graduated: &notGraduated})
	if err != nil {
		return nil, eris.Wrap(err, "lead: graduate all")
	}

	now := s.now()
	for _, l := range pending {
		l.Graduated = true
		l.GraduatedAt = &now
		if err := s.repo.UpsertLead(ctx, l); err != nil {
			return nil, eris.Wrapf(err, "lead: graduate all %s", l.ID)
		}
	}

	sum, err := s.summary(ctx)
	if err != nil {
		return nil, err
	}
	return &GraduateAllResult{Graduated: len(pending), Total: sum.Total, Pending: sum.Pending}, nil
}

// OutcomeRequest is a field result for one lead.
type OutcomeRequest struct {
	Outcome        model.Outcome `json:"outcome"`
	Notes          string        `json:"notes,omitempty"`
	ActualProducts []string      `json:"actual_products,omitempty"`
}

// RecordOutcome stores a field result. A non-empty ActualProducts list is
// appended to the field-feedback log and diffed against products_original
// as correction feedback.
func (s *Service) RecordOutcome(ctx context.Context, id string, req OutcomeRequest) (*model.Lead, error) {
	if !req.Outcome.Valid() {
		return nil, eris.Wrapf(ErrInvalidOutcome, "lead: outcome %q", req.Outcome)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.repo.GetLead(ctx, id)
	if err != nil {
		return nil, eris.Wrap(err, "lead: record outcome")
	}
	if !l.Graduated {
		zap.L().Warn("lead: outcome recorded on a lead that was never graduated", zap.String("lead_id", id))
	}

	now := s.now()
	l.Outcome = req.Outcome
	l.OutcomeNotes = req.Notes
	l.OutcomeAt = &now
	if req.Outcome.Contacted() && l.ContactedAt == nil {
		l.ContactedAt = &now
	}

	actual := compact(req.ActualProducts)
	if len(actual) > 0 {
		l.ActualProductsNeeded = actual
	}

	// Corrections are saved before the lead, idempotent feedback first, so
	// a failed save leaves the stored outcome untouched.
	if len(actual) > 0 && s.corrections != nil {
		original := l.ProductsOriginal
		if original == nil {
			original = l.Products
		}
		if _, err := s.corrections.RecordFeedback(ctx, correction.Feedback{
			RestaurantName: l.Name,
			Cuisine:        l.Cuisine,
			Original:       original,
			Corrected:      s.resolveProducts(original, actual),
		}); err != nil {
			return nil, eris.Wrap(err, "lead: record outcome feedback")
		}
		if err := s.corrections.RecordFieldOutcome(ctx, correction.FieldOutcome{
			Cuisine:      l.Cuisine,
			Restaurant:   l.Name,
			AISuggested:  model.ProductNames(original),
			ActualNeeded: actual,
			Outcome:      req.Outcome,
			RecordedAt:   now,
		}); err != nil {
			return nil, eris.Wrap(err, "lead: record field outcome")
		}
		zap.L().Info("lead: field feedback saved",
			zap.String("restaurant", l.Name),
			zap.String("outcome", string(req.Outcome)),
			zap.Strings("actual_needed", actual),
		)
	}

	if err := s.repo.UpsertLead(ctx, *l); err != nil {
		return nil, eris.Wrap(err, "lead: record outcome")
	}
	return l, nil
}

// Delete hard-removes a lead and returns how many remain.
func (s *Service) Delete(ctx context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.DeleteLead(ctx, id); err != nil {
		return 0, eris.Wrap(err, "lead: delete")
	}
	sum, err := s.summary(ctx)
	if err != nil {
		return 0, err
	}
	return sum.Total, nil
}

// DeleteAll hard-removes every lead and returns how many were deleted.
func (s *Service) DeleteAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.repo.DeleteAllLeads(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "lead: delete all")
	}
	return n, nil
}

// Summary returns lead totals.
func (s *Service) Summary(ctx context.Context) (model.LeadSummary, error) {
	return s.summary(ctx)
}

func (s *Service) summary(ctx context.Context) (model.LeadSummary, error) {
	all, err := s.repo.ListLeads(ctx, store.LeadFilter{})
	if err != nil {
		return model.LeadSummary{}, eris.Wrap(err, "lead: summary")
	}
	sum := model.LeadSummary{Total: len(all)}
	for _, l := range all {
		if l.Graduated {
			sum.Graduated++
		} else {
			sum.Pending++
		}
		if l.AICorrected {
			sum.Corrected++
		}
	}
	return sum, nil
}

// OutcomeStats counts outcomes over all leads. Rates are taken over
// contacted leads (replied, sold, lost) and read "0%" when there are none.
func (s *Service) OutcomeStats(ctx context.Context) (model.OutcomeStats, error) {
	all, err := s.repo.ListLeads(ctx, store.LeadFilter{})
	if err != nil {
		return model.OutcomeStats{}, eris.Wrap(err, "lead: outcome stats")
	}

	st := model.OutcomeStats{
		Total: len(all),
		ByTier: map[string]model.TierOutcome{
			"tier1": {}, "tier2": {}, "tier3": {},
		},
	}
	for _, l := range all {
		switch l.Outcome {
		case model.OutcomeUnset:
			st.NoOutcome++
		case model.OutcomeNoReply:
			st.NoReply++
		case model.OutcomeReplied:
			st.Replied++
		case model.OutcomeSold:
			st.Sold++
		case model.OutcomeLost:
			st.Lost++
		}
		if l.Tier.Valid() {
			key := fmt.Sprintf("tier%d", l.Tier)
			t := st.ByTier[key]
			t.Total++
			if l.Outcome == model.OutcomeSold {
				t.Sold++
			}
			st.ByTier[key] = t
		}
	}

	contacted := st.Replied + st.Sold + st.Lost
	st.ReplyRate = percent(st.Replied, contacted, "0%")
	st.ConversionRate = percent(st.Sold, contacted, "0%")
	return st, nil
}

// AccuracyStats compares each original prediction against the products the
// field reported as actually needed. A prediction is correct when its SKU or
// name appears in that list, ignoring case.
func (s *Service) AccuracyStats(ctx context.Context) (model.AccuracyStats, error) {
	all, err := s.repo.ListLeads(ctx, store.LeadFilter{})
	if err != nil {
		return model.AccuracyStats{}, eris.Wrap(err, "lead: accuracy stats")
	}

	var st model.AccuracyStats
	for _, l := range all {
		if l.Outcome == model.OutcomeUnset || len(l.ActualProductsNeeded) == 0 {
			continue
		}
		st.LeadsWithFeedback++

		predicted := l.ProductsOriginal
		if predicted == nil {
			predicted = l.Products
		}
		seen := map[string]bool{}
		for _, p := range predicted {
			k := strings.ToLower(p.Key())
			if seen[k] {
				continue
			}
			seen[k] = true
			st.TotalPredictions++
			if containsFold(l.ActualProductsNeeded, p.SKU) || containsFold(l.ActualProductsNeeded, p.Name) {
				st.CorrectPredictions++
			}
		}
	}
	st.Accuracy = percent(st.CorrectPredictions, st.TotalPredictions, "N/A")

	if s.corrections != nil {
		set := s.corrections.Snapshot()
		st.CorrectionsCount = set.Count()
		st.FieldFeedbackCount = set.FieldCount()
	}
	return st, nil
}

// resolveProducts turns field-reported product strings into picks, matching
// the original predictions first and the catalog second.
func (s *Service) resolveProducts(original []model.ProductPick, actual []string) []model.ProductPick {
	out := make([]model.ProductPick, 0, len(actual))
	for _, a := range actual {
		if i := slices.IndexFunc(original, func(p model.ProductPick) bool {
			return strings.EqualFold(p.Key(), a) || strings.EqualFold(p.Name, a)
		}); i >= 0 {
			out = append(out, original[i])
			continue
		}
		if cp, ok := s.catalog.Lookup(a); ok {
			out = append(out, model.ProductPick{SKU: cp.SKU, Name: cp.Name})
			continue
		}
		out = append(out, model.ProductPick{Name: a})
	}
	return out
}

// sameNames compares sorted product names for exact equality.
func sameNames(a, b []model.ProductPick) bool {
	x, y := model.ProductNames(a), model.ProductNames(b)
	sort.Strings(x)
	sort.Strings(y)
	return slices.Equal(x, y)
}

func compact(vals []string) []string {
	var out []string
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func containsFold(list []string, s string) bool {
	if s == "" {
		return false
	}
	return slices.ContainsFunc(list, func(v string) bool { return strings.EqualFold(v, s) })
}

func percent(n, d int, empty string) string {
	if d == 0 {
		return empty
	}
	return fmt.Sprintf("%.1f%%", float64(n)/float64(d)*100)
}
