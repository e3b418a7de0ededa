// Package mocks provides test doubles for the acquire package.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	acquire "github.com/vinylscout/vinylscout-api/internal/acquire"
)

// MockInvoker is a mock type for the Invoker interface.
type MockInvoker struct {
	mock.Mock
}

// Invoke provides a mock function with given fields: ctx, c, req
func (_m *MockInvoker) Invoke(ctx context.Context, c acquire.Candidate, req acquire.Request) (acquire.Envelope, error) {
	ret := _m.Called(ctx, c, req)

	if len(ret) == 0 {
		panic("no return value specified for Invoke")
	}

	var r0 acquire.Envelope
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, acquire.Candidate, acquire.Request) (acquire.Envelope, error)); ok {
		return rf(ctx, c, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, acquire.Candidate, acquire.Request) acquire.Envelope); ok {
		r0 = rf(ctx, c, req)
	} else {
		r0 = ret.Get(0).(acquire.Envelope)
	}

	if rf, ok := ret.Get(1).(func(context.Context, acquire.Candidate, acquire.Request) error); ok {
		r1 = rf(ctx, c, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockInvoker creates a new instance of MockInvoker.
func NewMockInvoker(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockInvoker {
	mock := &MockInvoker{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
