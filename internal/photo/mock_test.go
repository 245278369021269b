package photo

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/suplook/internal/model"
	"github.com/sells-group/suplook/pkg/jina"
	"github.com/sells-group/suplook/pkg/yelp"
)

// --- Yelp Mock ---

type mockYelpClient struct {
	mock.Mock
}

func (m *mockYelpClient) Search(ctx context.Context, term, location string, limit int) (*yelp.SearchResponse, error) {
	args := m.Called(ctx, term, location, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*yelp.SearchResponse), args.Error(1)
}

func (m *mockYelpClient) Business(ctx context.Context, id string) (*yelp.Business, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*yelp.Business), args.Error(1)
}

// --- Jina Mock ---

type mockJinaClient struct {
	mock.Mock
}

func (m *mockJinaClient) Read(ctx context.Context, targetURL string) (*jina.ReadResponse, error) {
	args := m.Called(ctx, targetURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jina.ReadResponse), args.Error(1)
}

// Search records only the query; options are functional and not comparable.
func (m *mockJinaClient) Search(ctx context.Context, query string, opts ...jina.SearchOption) (*jina.SearchResponse, error) {
	args := m.Called(ctx, query, len(opts))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jina.SearchResponse), args.Error(1)
}

// --- Source fakes for Hunter tests ---

type fakeDirectory struct {
	photos []model.Photo
	info   *model.DirectoryInfo
	calls  int
}

func (f *fakeDirectory) Lookup(_ context.Context, _, _ string) ([]model.Photo, *model.DirectoryInfo) {
	f.calls++
	return f.photos, f.info
}

type fakeSocial struct {
	photos  []model.Photo
	handles []string
}

func (f *fakeSocial) Photos(_ context.Context, handle string) []model.Photo {
	f.handles = append(f.handles, handle)
	return f.photos
}

type fakeMaps struct {
	photos []model.Photo
	ids    []string
}

func (f *fakeMaps) Photos(_ context.Context, placeID string) []model.Photo {
	f.ids = append(f.ids, placeID)
	return f.photos
}

type fakeImages struct {
	photos []model.Photo
	calls  int
}

func (f *fakeImages) Photos(_ context.Context, _, _ string) []model.Photo {
	f.calls++
	return f.photos
}

type fakeDelivery struct {
	presence model.DeliveryPresence
	cities   []string
}

func (f *fakeDelivery) Check(_ context.Context, _, city string) model.DeliveryPresence {
	f.cities = append(f.cities, city)
	return f.presence
}
