package lead

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/suplook/internal/catalog"
	"github.com/sells-group/suplook/internal/correction"
	"github.com/sells-group/suplook/internal/fallback"
	"github.com/sells-group/suplook/internal/model"
	"github.com/sells-group/suplook/internal/store"
)

type testEnv struct {
	svc         *Service
	repo        *store.JSONStore
	corrections *correction.Service
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	ctx := context.Background()
	repo := store.NewJSON(t.TempDir())
	require.NoError(t, repo.Migrate(ctx))
	corr, err := correction.NewService(ctx, repo)
	require.NoError(t, err)

	svc := NewService(repo, corr, catalog.Builtin())
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return testEnv{svc: svc, repo: repo, corrections: corr}
}

// joesPizza is a tier-3 lead enriched by the fallback matcher.
func joesPizza() model.Lead {
	m := fallback.Default().Match("Joe's Pizza", []string{"restaurant"})
	return model.Lead{
		ID:       "joes",
		BatchID:  "batch-1",
		Name:     "Joe's Pizza",
		Tier:     model.TierRuleOnly,
		Cuisine:  m.Cuisine,
		Products: m.Products,
	}
}

// failingCorrections loads from the wrapped repository but refuses to save.
type failingCorrections struct {
	store.CorrectionRepository
}

func (failingCorrections) SaveCorrections(context.Context, model.CorrectionSet) error {
	return errors.New("disk full")
}

// withFailingCorrections swaps env's correction service for one whose saves fail.
func withFailingCorrections(t *testing.T, env testEnv) testEnv {
	t.Helper()
	corr, err := correction.NewService(context.Background(), failingCorrections{env.repo})
	require.NoError(t, err)
	env.corrections = corr
	env.svc.corrections = corr
	return env
}

func seed(t *testing.T, env testEnv, leads ...model.Lead) {
	t.Helper()
	_, err := env.svc.CreateBatch(context.Background(), leads)
	require.NoError(t, err)
}

func TestCreateBatch_SnapshotsOriginalAndStartsPending(t *testing.T) {
	env := newTestEnv(t)
	l := joesPizza()
	l.Graduated = true

	res, err := env.svc.CreateBatch(context.Background(), []model.Lead{l, {Name: "No Id Diner"}})
	require.NoError(t, err)
	assert.Equal(t, &CreateResult{Added: 2, Total: 2, Pending: 2}, res)

	got, err := env.svc.Get(context.Background(), "joes")
	require.NoError(t, err)
	assert.False(t, got.Graduated)
	assert.Equal(t, got.Products, got.ProductsOriginal)
	assert.False(t, got.EnrichedAt.IsZero())

	list, err := env.svc.List(context.Background(), store.LeadFilter{})
	require.NoError(t, err)
	assert.NotEmpty(t, list.Leads[1].ID)
}

func TestCreateBatch_IdempotentByID(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env, joesPizza())

	dup := joesPizza()
	dup.Name = "Renamed"
	res, err := env.svc.CreateBatch(context.Background(), []model.Lead{dup})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Added)
	assert.Equal(t, 1, res.Total)

	got, err := env.svc.Get(context.Background(), "joes")
	require.NoError(t, err)
	assert.Equal(t, "Joe's Pizza", got.Name)
}

func TestList_FilterKeepsTotals(t *testing.T) {
	env := newTestEnv(t)
	a, b := joesPizza(), joesPizza()
	b.ID = "other"
	seed(t, env, a, b)
	_, err := env.svc.Graduate(context.Background(), "other", GraduateRequest{})
	require.NoError(t, err)

	graduated := true
	res, err := env.svc.List(context.Background(), store.LeadFilter{Graduated: &graduated})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Pending)
	assert.Equal(t, 1, res.Graduated)
	require.Len(t, res.Leads, 1)
	assert.Equal(t, "other", res.Leads[0].ID)
}

func TestGet_NotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestUpdate_NeverTouchesOriginal(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env, joesPizza())

	phone := "215-555-0100"
	products := []model.ProductPick{{Name: "Only This"}}
	got, err := env.svc.Update(context.Background(), "joes", Patch{Phone: &phone, Products: &products})
	require.NoError(t, err)
	assert.Equal(t, phone, got.Phone)
	assert.Equal(t, "Joe's Pizza", got.Name)
	assert.Equal(t, products, got.Products)
	assert.Equal(t, joesPizza().Products, got.ProductsOriginal)
}

func TestUpdate_NotFound(t *testing.T) {
	env := newTestEnv(t)
	name := "x"
	_, err := env.svc.Update(context.Background(), "missing", Patch{Name: &name})
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestGraduate_UnmodifiedIsNotCorrected(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env, joesPizza())

	res, err := env.svc.Graduate(context.Background(), "joes", GraduateRequest{Products: joesPizza().Products})
	require.NoError(t, err)
	assert.True(t, res.Lead.Graduated)
	assert.False(t, res.Lead.AICorrected)
	assert.NotNil(t, res.Lead.GraduatedAt)
	assert.Nil(t, res.Feedback)
	assert.Equal(t, 0, res.Pending)
	assert.Zero(t, env.corrections.Count())
}

func TestGraduate_RemovedProductRecordsCorrection(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env, joesPizza())

	edited := joesPizza().Products[:2] // drops "Pizza Saver 100ct"
	res, err := env.svc.Graduate(context.Background(), "joes", GraduateRequest{Products: edited})
	require.NoError(t, err)
	assert.True(t, res.Lead.AICorrected)
	require.NotNil(t, res.Feedback)
	assert.Equal(t, 1, res.Feedback.Removed)

	set := env.corrections.Snapshot()
	assert.Equal(t, []string{"Pizza Saver 100ct"}, set.ByCuisine["pizza"].NeverInclude)
	assert.Equal(t, []string{"Pizza Saver 100ct"}, set.ByName["pizza"].Remove)
}

func TestGraduate_CorrectedFlagWins(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env, joesPizza())

	res, err := env.svc.Graduate(context.Background(), "joes", GraduateRequest{Corrected: true})
	require.NoError(t, err)
	assert.True(t, res.Lead.AICorrected)
	assert.Nil(t, res.Feedback)
}

func TestGraduate_OriginalIsImmutable(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env, joesPizza())
	original := joesPizza().Products

	for _, products := range [][]model.ProductPick{
		{{Name: "A"}},
		{{Name: "B"}, {Name: "C"}},
		original,
	} {
		_, err := env.svc.Graduate(context.Background(), "joes", GraduateRequest{Products: products})
		require.NoError(t, err)
		got, err := env.svc.Get(context.Background(), "joes")
		require.NoError(t, err)
		assert.Equal(t, original, got.ProductsOriginal)
	}
}

func TestGraduate_NotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Graduate(context.Background(), "missing", GraduateRequest{})
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestGraduate_FeedbackErrorLeavesLeadPending(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env, joesPizza())
	env = withFailingCorrections(t, env)

	_, err := env.svc.Graduate(context.Background(), "joes", GraduateRequest{Products: joesPizza().Products[:2]})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	got, err := env.svc.Get(context.Background(), "joes")
	require.NoError(t, err)
	assert.False(t, got.Graduated)
	assert.False(t, got.AICorrected)
	assert.Nil(t, got.GraduatedAt)
	assert.Equal(t, joesPizza().Products, got.Products)
}

func TestGraduate_RetryAfterFeedbackErrorRecordsOnce(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env, joesPizza())
	healthy := env.svc.corrections
	edited := joesPizza().Products[:2]

	failing := withFailingCorrections(t, env)
	_, err := failing.svc.Graduate(context.Background(), "joes", GraduateRequest{Products: edited})
	require.Error(t, err)

	env.svc.corrections = healthy
	res, err := env.svc.Graduate(context.Background(), "joes", GraduateRequest{Products: edited})
	require.NoError(t, err)
	assert.True(t, res.Lead.Graduated)
	require.NotNil(t, res.Feedback)
	assert.Equal(t, []string{"Pizza Saver 100ct"}, healthy.Snapshot().ByCuisine["pizza"].NeverInclude)
}

func TestGraduateAll(t *testing.T) {
	env := newTestEnv(t)
	a, b, c := joesPizza(), joesPizza(), joesPizza()
	b.ID, c.ID = "b", "c"
	seed(t, env, a, b, c)
	_, err := env.svc.Graduate(context.Background(), "b", GraduateRequest{})
	require.NoError(t, err)

	res, err := env.svc.GraduateAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &GraduateAllResult{Graduated: 2, Total: 3, Pending: 0}, res)

	got, err := env.svc.Get(context.Background(), "c")
	require.NoError(t, err)
	assert.True(t, got.Graduated)
	assert.False(t, got.AICorrected)
	assert.Equal(t, joesPizza().Products, got.Products)
}

func TestRecordOutcome_Invalid(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env, joesPizza())

	_, err := env.svc.RecordOutcome(context.Background(), "joes", OutcomeRequest{Outcome: "ghosted"})
	assert.True(t, errors.Is(err, ErrInvalidOutcome))
}

func TestRecordOutcome_NotFoundMutatesNothing(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.RecordOutcome(context.Background(), "missing", OutcomeRequest{
		Outcome:        model.OutcomeSold,
		ActualProducts: []string{"Pizza Saver 100ct"},
	})
	assert.True(t, errors.Is(err, store.ErrNotFound))
	assert.Zero(t, env.corrections.Snapshot().FieldCount())
}

func TestRecordOutcome_Overwritable(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env, joesPizza())
	_, err := env.svc.Graduate(context.Background(), "joes", GraduateRequest{})
	require.NoError(t, err)

	_, err = env.svc.RecordOutcome(context.Background(), "joes", OutcomeRequest{Outcome: model.OutcomeNoReply})
	require.NoError(t, err)
	got, err := env.svc.RecordOutcome(context.Background(), "joes", OutcomeRequest{Outcome: model.OutcomeReplied, Notes: "call back"})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeReplied, got.Outcome)
	assert.Equal(t, "call back", got.OutcomeNotes)
	assert.NotNil(t, got.ContactedAt)
	assert.Zero(t, env.corrections.Snapshot().FieldCount())
}

func TestRecordOutcome_ActualProductsBecomeFeedback(t *testing.T) {
	env := newTestEnv(t)
	l := joesPizza()
	l.Products = l.Products[:2]
	l.ProductsOriginal = l.Products // original omitted the pizza saver
	seed(t, env, l)
	_, err := env.svc.Graduate(context.Background(), "joes", GraduateRequest{})
	require.NoError(t, err)

	got, err := env.svc.RecordOutcome(context.Background(), "joes", OutcomeRequest{
		Outcome:        model.OutcomeSold,
		ActualProducts: []string{"Pizza Saver 100ct", " "},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Pizza Saver 100ct"}, got.ActualProductsNeeded)

	set := env.corrections.Snapshot()
	require.Len(t, set.ByField["pizza"], 1)
	entry := set.ByField["pizza"][0]
	assert.Equal(t, "Joe's Pizza", entry.Restaurant)
	assert.Equal(t, model.ProductNames(l.Products), entry.AISuggested)
	assert.Equal(t, model.OutcomeSold, entry.Outcome)

	// Both original picks are missing from the field list, and the saver was added.
	assert.Contains(t, set.ByCuisine["pizza"].AlwaysInclude, "Pizza Saver 100ct")
	assert.ElementsMatch(t, model.ProductNames(l.Products), set.ByCuisine["pizza"].NeverInclude)

	acc, err := env.svc.AccuracyStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, acc.LeadsWithFeedback)
	assert.Equal(t, 2, acc.TotalPredictions)
	assert.Equal(t, 0, acc.CorrectPredictions)
	assert.Equal(t, "0.0%", acc.Accuracy)
	assert.Equal(t, 1, acc.FieldFeedbackCount)
	assert.Equal(t, 2, acc.CorrectionsCount)
}

func TestRecordOutcome_ResolvesCatalogProducts(t *testing.T) {
	env := newTestEnv(t)
	l := joesPizza()
	l.Products = []model.ProductPick{{SKU: "PB16", Name: `Pizza Box 16"`}}
	seed(t, env, l)

	_, err := env.svc.RecordOutcome(context.Background(), "joes", OutcomeRequest{
		Outcome:        model.OutcomeSold,
		ActualProducts: []string{"pb16", "pizza saver"},
	})
	require.NoError(t, err)

	// pb16 matched the original; "pizza saver" resolved to its catalog SKU.
	set := env.corrections.Snapshot()
	assert.Equal(t, []string{"PS100"}, set.ByCuisine["pizza"].AlwaysInclude)
	assert.Empty(t, set.ByCuisine["pizza"].NeverInclude)
}

func TestRecordOutcome_CorrectionErrorLeavesLeadUnchanged(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env, joesPizza())
	_, err := env.svc.Graduate(context.Background(), "joes", GraduateRequest{})
	require.NoError(t, err)
	env = withFailingCorrections(t, env)

	_, err = env.svc.RecordOutcome(context.Background(), "joes", OutcomeRequest{
		Outcome:        model.OutcomeSold,
		ActualProducts: []string{"Pizza Saver 100ct"},
	})
	require.Error(t, err)

	got, err := env.svc.Get(context.Background(), "joes")
	require.NoError(t, err)
	assert.Empty(t, got.Outcome)
	assert.Nil(t, got.OutcomeAt)
	assert.Empty(t, got.ActualProductsNeeded)
	assert.Zero(t, env.corrections.Snapshot().FieldCount())
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t)
	a, b := joesPizza(), joesPizza()
	b.ID = "b"
	seed(t, env, a, b)

	remaining, err := env.svc.Delete(context.Background(), "joes")
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)

	_, err = env.svc.Delete(context.Background(), "joes")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestDeleteAll(t *testing.T) {
	env := newTestEnv(t)
	a, b := joesPizza(), joesPizza()
	b.ID = "b"
	seed(t, env, a, b)

	n, err := env.svc.DeleteAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	sum, err := env.svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sum.Total)
}

func TestOutcomeStats_ZeroContacted(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env, joesPizza())
	_, err := env.svc.RecordOutcome(context.Background(), "joes", OutcomeRequest{Outcome: model.OutcomeNoReply})
	require.NoError(t, err)

	st, err := env.svc.OutcomeStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, st.NoReply)
	assert.Equal(t, "0%", st.ReplyRate)
	assert.Equal(t, "0%", st.ConversionRate)
}

func TestOutcomeStats_RatesAndTiers(t *testing.T) {
	env := newTestEnv(t)
	specs := []struct {
		id      string
		tier    model.Tier
		outcome model.Outcome
	}{
		{"a", model.TierDirectory, model.OutcomeSold},
		{"b", model.TierDirectory, model.OutcomeReplied},
		{"c", model.TierSecondary, model.OutcomeLost},
		{"d", model.TierRuleOnly, model.OutcomeNoReply},
		{"e", model.TierRuleOnly, model.OutcomeUnset},
	}
	var leads []model.Lead
	for _, s := range specs {
		l := joesPizza()
		l.ID, l.Tier = s.id, s.tier
		leads = append(leads, l)
	}
	seed(t, env, leads...)
	for _, s := range specs {
		if s.outcome == model.OutcomeUnset {
			continue
		}
		_, err := env.svc.RecordOutcome(context.Background(), s.id, OutcomeRequest{Outcome: s.outcome})
		require.NoError(t, err)
	}

	st, err := env.svc.OutcomeStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, st.Total)
	assert.Equal(t, 1, st.NoOutcome)
	assert.Equal(t, 1, st.Sold)
	assert.Equal(t, "33.3%", st.ReplyRate)
	assert.Equal(t, "33.3%", st.ConversionRate)
	assert.Equal(t, model.TierOutcome{Total: 2, Sold: 1}, st.ByTier["tier1"])
	assert.Equal(t, model.TierOutcome{Total: 1}, st.ByTier["tier2"])
	assert.Equal(t, model.TierOutcome{Total: 2}, st.ByTier["tier3"])
}

func TestAccuracyStats_NoFeedback(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env, joesPizza())

	st, err := env.svc.AccuracyStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "N/A", st.Accuracy)
	assert.Zero(t, st.LeadsWithFeedback)
}

func TestAccuracyStats_CountsMatches(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env, joesPizza())

	_, err := env.svc.RecordOutcome(context.Background(), "joes", OutcomeRequest{
		Outcome:        model.OutcomeSold,
		ActualProducts: []string{`pizza box 16"`, "Pizza Saver 100ct"},
	})
	require.NoError(t, err)

	st, err := env.svc.AccuracyStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalPredictions)
	assert.Equal(t, 2, st.CorrectPredictions)
	assert.Equal(t, "66.7%", st.Accuracy)
}

func TestSummary(t *testing.T) {
	env := newTestEnv(t)
	a, b := joesPizza(), joesPizza()
	b.ID = "b"
	seed(t, env, a, b)
	_, err := env.svc.Graduate(context.Background(), "b", GraduateRequest{Corrected: true})
	require.NoError(t, err)

	sum, err := env.svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.LeadSummary{Total: 2, Pending: 1, Graduated: 1, Corrected: 1}, sum)
}

func TestSameNames(t *testing.T) {
	a := []model.ProductPick{{Name: "X"}, {Name: "Y"}}
	assert.True(t, sameNames(a, []model.ProductPick{{Name: "Y"}, {Name: "X"}}))
	assert.False(t, sameNames(a, []model.ProductPick{{Name: "x"}, {Name: "Y"}}))
	assert.False(t, sameNames(a, a[:1]))
	assert.True(t, sameNames(nil, []model.ProductPick{}))
}
