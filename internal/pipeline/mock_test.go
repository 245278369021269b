package pipeline

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/suplook/internal/model"
	"github.com/sells-group/suplook/internal/vision"
)

// --- Classifier Mock ---

type mockClassifier struct {
	mock.Mock
	enabled bool
}

func (m *mockClassifier) Enabled() bool { return m.enabled }

func (m *mockClassifier) Classify(ctx context.Context, img vision.Image, restaurantName string) vision.Result {
	args := m.Called(ctx, img, restaurantName)
	return args.Get(0).(vision.Result)
}

// --- Fetcher Mock ---

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, imageURL string) (vision.Image, error) {
	args := m.Called(ctx, imageURL)
	return args.Get(0).(vision.Image), args.Error(1)
}

// --- Hunter fake ---

// fakeHunter returns canned results by restaurant name and panics for names
// listed in panics.
type fakeHunter struct {
	mu      sync.Mutex
	results map[string]model.HuntResult
	panics  map[string]bool
	order   []string
}

func (f *fakeHunter) Hunt(_ context.Context, r model.Restaurant) model.HuntResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.order = append(f.order, r.Name)
	if f.panics[r.Name] {
		panic("hunter exploded")
	}
	if res, ok := f.results[r.Name]; ok {
		return res
	}
	return model.HuntResult{Photos: []model.Photo{}, Tier: model.TierRuleOnly}
}

// --- Corrector fake ---

// appendCorrector adds one learned product to every result.
type appendCorrector struct {
	calls int
}

func (c *appendCorrector) Apply(analysis *model.VisionAnalysis, _ string) {
	c.calls++
	for _, p := range analysis.Products {
		if p.Name == "Learned Lid" {
			return
		}
	}
	analysis.Products = append(analysis.Products, model.ProductPick{Name: "Learned Lid", Reason: "Added from your corrections"})
}
