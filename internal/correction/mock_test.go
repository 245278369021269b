package correction

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/suplook/internal/model"
)

// --- Correction Repository Mock ---

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) LoadCorrections(ctx context.Context) (model.CorrectionSet, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.CorrectionSet), args.Error(1)
}

func (m *mockRepo) SaveCorrections(ctx context.Context, set model.CorrectionSet) error {
	args := m.Called(ctx, set)
	return args.Error(0)
}
