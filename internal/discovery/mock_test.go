package discovery

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/suplook/pkg/jina"
)

// --- Jina Mock ---

type mockReader struct {
	mock.Mock
}

func (m *mockReader) Read(ctx context.Context, targetURL string) (*jina.ReadResponse, error) {
	args := m.Called(ctx, targetURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jina.ReadResponse), args.Error(1)
}

func (m *mockReader) Search(ctx context.Context, query string, opts ...jina.SearchOption) (*jina.SearchResponse, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jina.SearchResponse), args.Error(1)
}

var _ jina.Client = (*mockReader)(nil)
