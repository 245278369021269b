package crm

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/suplook/pkg/salesforce"
)

// --- Salesforce Mock ---

type mockSalesforceClient struct {
	mock.Mock
}

func (m *mockSalesforceClient) FindLeadByPhone(ctx context.Context, phone string) (*salesforce.Lead, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*salesforce.Lead), args.Error(1)
}

func (m *mockSalesforceClient) InsertLeads(ctx context.Context, leads []salesforce.Lead) ([]salesforce.InsertResult, error) {
	args := m.Called(ctx, leads)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]salesforce.InsertResult), args.Error(1)
}

func (m *mockSalesforceClient) UpdateLead(ctx context.Context, id string, u salesforce.LeadUpdate) error {
	args := m.Called(ctx, id, u)
	return args.Error(0)
}

var _ salesforce.Client = (*mockSalesforceClient)(nil)
