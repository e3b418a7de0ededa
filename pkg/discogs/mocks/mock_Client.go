// Package mocks provides test doubles for the discogs client.
package mocks

import (
	"context"
	"encoding/json"
	"net/http"

	mock "github.com/stretchr/testify/mock"

	discogs "github.com/vinylscout/vinylscout-api/pkg/discogs"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Search provides a mock function with given fields: ctx, params
func (_m *MockClient) Search(ctx context.Context, params discogs.SearchParams) (json.RawMessage, error) {
	ret := _m.Called(ctx, params)

	if len(ret) == 0 {
		panic("no return value specified for Search")
	}

	var r0 json.RawMessage
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, discogs.SearchParams) (json.RawMessage, error)); ok {
		return rf(ctx, params)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(json.RawMessage)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// AuthHeader provides a mock function with no fields
func (_m *MockClient) AuthHeader() http.Header {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for AuthHeader")
	}

	var r0 http.Header
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(http.Header)
	}

	return r0
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	mock := &MockClient{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
