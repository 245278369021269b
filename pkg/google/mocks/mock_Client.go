// Package mocks provides test doubles for the google client.
package mocks

import (
	"context"

	google "github.com/sells-group/suplook/pkg/google"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// TextSearch provides a mock function with given fields: ctx, query
func (_m *MockClient) TextSearch(ctx context.Context, query string) (*google.TextSearchResponse, error) {
	ret := _m.Called(ctx, query)

	if len(ret) == 0 {
		panic("no return value specified for TextSearch")
	}

	var r0 *google.TextSearchResponse
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*google.TextSearchResponse)
	}
	return r0, ret.Error(1)
}

// PlaceDetails provides a mock function with given fields: ctx, placeID, fieldMask
func (_m *MockClient) PlaceDetails(ctx context.Context, placeID, fieldMask string) (*google.Place, error) {
	ret := _m.Called(ctx, placeID, fieldMask)

	if len(ret) == 0 {
		panic("no return value specified for PlaceDetails")
	}

	var r0 *google.Place
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*google.Place)
	}
	return r0, ret.Error(1)
}

// PhotoURL provides a mock function with given fields: photoName, maxWidth
func (_m *MockClient) PhotoURL(photoName string, maxWidth int) string {
	ret := _m.Called(photoName, maxWidth)

	if len(ret) == 0 {
		panic("no return value specified for PhotoURL")
	}

	return ret.String(0)
}

// NewMockClient creates a new instance of MockClient. It also registers a
// testing interface on the mock and a cleanup function to assert the mocks
// expectations.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
