// Package mocks provides test doubles for the fetcher package.
package mocks

import (
	"context"
	"net/http"

	mock "github.com/stretchr/testify/mock"

	fetcher "github.com/vinylscout/vinylscout-api/internal/fetcher"
)

// MockFetcher is a mock type for the Fetcher interface.
type MockFetcher struct {
	mock.Mock
}

// Fetch provides a mock function with given fields: ctx, rawURL, header
func (_m *MockFetcher) Fetch(ctx context.Context, rawURL string, header http.Header) (*fetcher.Resource, error) {
	ret := _m.Called(ctx, rawURL, header)

	if len(ret) == 0 {
		panic("no return value specified for Fetch")
	}

	var r0 *fetcher.Resource
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, http.Header) (*fetcher.Resource, error)); ok {
		return rf(ctx, rawURL, header)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, http.Header) *fetcher.Resource); ok {
		r0 = rf(ctx, rawURL, header)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*fetcher.Resource)
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, http.Header) error); ok {
		r1 = rf(ctx, rawURL, header)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockFetcher creates a new instance of MockFetcher.
func NewMockFetcher(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockFetcher {
	mock := &MockFetcher{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
