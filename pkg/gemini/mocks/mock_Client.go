// Package mocks provides test doubles for the gemini client.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	gemini "github.com/vinylscout/vinylscout-api/pkg/gemini"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// GenerateContent provides a mock function with given fields: ctx, model, req
func (_m *MockClient) GenerateContent(ctx context.Context, model string, req *gemini.GenerateRequest) ([]byte, error) {
	ret := _m.Called(ctx, model, req)

	if len(ret) == 0 {
		panic("no return value specified for GenerateContent")
	}

	var r0 []byte
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, *gemini.GenerateRequest) ([]byte, error)); ok {
		return rf(ctx, model, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, *gemini.GenerateRequest) []byte); ok {
		r0 = rf(ctx, model, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]byte)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, *gemini.GenerateRequest) error); ok {
		r1 = rf(ctx, model, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
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
