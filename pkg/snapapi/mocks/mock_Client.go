// Package mocks provides test doubles for the snapapi client.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	snapapi "github.com/sells-group/snapapi-go/pkg/snapapi"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Screenshot provides a mock function with given fields: ctx, opts
func (_m *MockClient) Screenshot(ctx context.Context, opts snapapi.ScreenshotOptions) (*snapapi.Capture[snapapi.ScreenshotResult], error) {
	ret := _m.Called(ctx, opts)

	if len(ret) == 0 {
		panic("no return value specified for Screenshot")
	}

	var r0 *snapapi.Capture[snapapi.ScreenshotResult]
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, snapapi.ScreenshotOptions) (*snapapi.Capture[snapapi.ScreenshotResult], error)); ok {
		return rf(ctx, opts)
	}
	if rf, ok := ret.Get(0).(func(context.Context, snapapi.ScreenshotOptions) *snapapi.Capture[snapapi.ScreenshotResult]); ok {
		r0 = rf(ctx, opts)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*snapapi.Capture[snapapi.ScreenshotResult])
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, snapapi.ScreenshotOptions) error); ok {
		r1 = rf(ctx, opts)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Video provides a mock function with given fields: ctx, opts
func (_m *MockClient) Video(ctx context.Context, opts snapapi.VideoOptions) (*snapapi.Capture[snapapi.VideoResult], error) {
	ret := _m.Called(ctx, opts)

	if len(ret) == 0 {
		panic("no return value specified for Video")
	}

	var r0 *snapapi.Capture[snapapi.VideoResult]
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, snapapi.VideoOptions) (*snapapi.Capture[snapapi.VideoResult], error)); ok {
		return rf(ctx, opts)
	}
	if rf, ok := ret.Get(0).(func(context.Context, snapapi.VideoOptions) *snapapi.Capture[snapapi.VideoResult]); ok {
		r0 = rf(ctx, opts)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*snapapi.Capture[snapapi.VideoResult])
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, snapapi.VideoOptions) error); ok {
		r1 = rf(ctx, opts)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Batch provides a mock function with given fields: ctx, opts
func (_m *MockClient) Batch(ctx context.Context, opts snapapi.BatchOptions) (*snapapi.BatchResult, error) {
	ret := _m.Called(ctx, opts)

	if len(ret) == 0 {
		panic("no return value specified for Batch")
	}

	var r0 *snapapi.BatchResult
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, snapapi.BatchOptions) (*snapapi.BatchResult, error)); ok {
		return rf(ctx, opts)
	}
	if rf, ok := ret.Get(0).(func(context.Context, snapapi.BatchOptions) *snapapi.BatchResult); ok {
		r0 = rf(ctx, opts)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*snapapi.BatchResult)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, snapapi.BatchOptions) error); ok {
		r1 = rf(ctx, opts)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// GetBatchStatus provides a mock function with given fields: ctx, jobID
func (_m *MockClient) GetBatchStatus(ctx context.Context, jobID string) (*snapapi.BatchResult, error) {
	ret := _m.Called(ctx, jobID)

	if len(ret) == 0 {
		panic("no return value specified for GetBatchStatus")
	}

	var r0 *snapapi.BatchResult
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*snapapi.BatchResult, error)); ok {
		return rf(ctx, jobID)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *snapapi.BatchResult); ok {
		r0 = rf(ctx, jobID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*snapapi.BatchResult)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, jobID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// ScreenshotAsync provides a mock function with given fields: ctx, opts
func (_m *MockClient) ScreenshotAsync(ctx context.Context, opts snapapi.ScreenshotOptions) (*snapapi.AsyncJob, error) {
	ret := _m.Called(ctx, opts)

	if len(ret) == 0 {
		panic("no return value specified for ScreenshotAsync")
	}

	var r0 *snapapi.AsyncJob
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, snapapi.ScreenshotOptions) (*snapapi.AsyncJob, error)); ok {
		return rf(ctx, opts)
	}
	if rf, ok := ret.Get(0).(func(context.Context, snapapi.ScreenshotOptions) *snapapi.AsyncJob); ok {
		r0 = rf(ctx, opts)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*snapapi.AsyncJob)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, snapapi.ScreenshotOptions) error); ok {
		r1 = rf(ctx, opts)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// GetAsyncStatus provides a mock function with given fields: ctx, jobID
func (_m *MockClient) GetAsyncStatus(ctx context.Context, jobID string) (*snapapi.AsyncStatus, error) {
	ret := _m.Called(ctx, jobID)

	if len(ret) == 0 {
		panic("no return value specified for GetAsyncStatus")
	}

	var r0 *snapapi.AsyncStatus
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*snapapi.AsyncStatus, error)); ok {
		return rf(ctx, jobID)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *snapapi.AsyncStatus); ok {
		r0 = rf(ctx, jobID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*snapapi.AsyncStatus)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, jobID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Extract provides a mock function with given fields: ctx, opts
func (_m *MockClient) Extract(ctx context.Context, opts snapapi.ExtractOptions) (*snapapi.ExtractResult, error) {
	ret := _m.Called(ctx, opts)

	if len(ret) == 0 {
		panic("no return value specified for Extract")
	}

	var r0 *snapapi.ExtractResult
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, snapapi.ExtractOptions) (*snapapi.ExtractResult, error)); ok {
		return rf(ctx, opts)
	}
	if rf, ok := ret.Get(0).(func(context.Context, snapapi.ExtractOptions) *snapapi.ExtractResult); ok {
		r0 = rf(ctx, opts)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*snapapi.ExtractResult)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, snapapi.ExtractOptions) error); ok {
		r1 = rf(ctx, opts)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Analyze provides a mock function with given fields: ctx, opts
func (_m *MockClient) Analyze(ctx context.Context, opts snapapi.AnalyzeOptions) (*snapapi.AnalyzeResult, error) {
	ret := _m.Called(ctx, opts)

	if len(ret) == 0 {
		panic("no return value specified for Analyze")
	}

	var r0 *snapapi.AnalyzeResult
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, snapapi.AnalyzeOptions) (*snapapi.AnalyzeResult, error)); ok {
		return rf(ctx, opts)
	}
	if rf, ok := ret.Get(0).(func(context.Context, snapapi.AnalyzeOptions) *snapapi.AnalyzeResult); ok {
		r0 = rf(ctx, opts)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*snapapi.AnalyzeResult)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, snapapi.AnalyzeOptions) error); ok {
		r1 = rf(ctx, opts)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Usage provides a mock function with given fields: ctx
func (_m *MockClient) Usage(ctx context.Context) (*snapapi.UsageResult, error) {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Usage")
	}

	var r0 *snapapi.UsageResult
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context) (*snapapi.UsageResult, error)); ok {
		return rf(ctx)
	}
	if rf, ok := ret.Get(0).(func(context.Context) *snapapi.UsageResult); ok {
		r0 = rf(ctx)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*snapapi.UsageResult)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context) error); ok {
		r1 = rf(ctx)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Ping provides a mock function with given fields: ctx
func (_m *MockClient) Ping(ctx context.Context) (*snapapi.PingResult, error) {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Ping")
	}

	var r0 *snapapi.PingResult
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context) (*snapapi.PingResult, error)); ok {
		return rf(ctx)
	}
	if rf, ok := ret.Get(0).(func(context.Context) *snapapi.PingResult); ok {
		r0 = rf(ctx)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*snapapi.PingResult)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context) error); ok {
		r1 = rf(ctx)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Devices provides a mock function with given fields: ctx
func (_m *MockClient) Devices(ctx context.Context) (*snapapi.DevicesResult, error) {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Devices")
	}

	var r0 *snapapi.DevicesResult
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context) (*snapapi.DevicesResult, error)); ok {
		return rf(ctx)
	}
	if rf, ok := ret.Get(0).(func(context.Context) *snapapi.DevicesResult); ok {
		r0 = rf(ctx)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*snapapi.DevicesResult)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context) error); ok {
		r1 = rf(ctx)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Capabilities provides a mock function with given fields: ctx
func (_m *MockClient) Capabilities(ctx context.Context) (*snapapi.CapabilitiesResult, error) {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Capabilities")
	}

	var r0 *snapapi.CapabilitiesResult
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context) (*snapapi.CapabilitiesResult, error)); ok {
		return rf(ctx)
	}
	if rf, ok := ret.Get(0).(func(context.Context) *snapapi.CapabilitiesResult); ok {
		r0 = rf(ctx)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*snapapi.CapabilitiesResult)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context) error); ok {
		r1 = rf(ctx)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
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
