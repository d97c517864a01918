package mocks

import (
	"context"

	"github.com/bitrise-io/go-fileupload/upload/network"
	"github.com/stretchr/testify/mock"
)

type Transport struct {
	mock.Mock
}

func (_m *Transport) UploadWhole(ctx context.Context, part network.Part) error {
	ret := _m.Called(ctx, part)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, network.Part) error); ok {
		r0 = rf(ctx, part)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

func (_m *Transport) UploadSegment(ctx context.Context, part network.Part, index int, total int) error {
	ret := _m.Called(ctx, part, index, total)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, network.Part, int, int) error); ok {
		r0 = rf(ctx, part, index, total)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}
