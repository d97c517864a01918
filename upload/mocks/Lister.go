package mocks

import (
	"context"

	"github.com/bitrise-io/go-fileupload/upload/network"
	"github.com/stretchr/testify/mock"
)

type Lister struct {
	mock.Mock
}

func (_m *Lister) ListFiles(ctx context.Context) ([]network.RemoteFile, error) {
	ret := _m.Called(ctx)

	var r0 []network.RemoteFile
	if rf, ok := ret.Get(0).(func(context.Context) []network.RemoteFile); ok {
		r0 = rf(ctx)
	} else {
		r0, _ = ret.Get(0).([]network.RemoteFile)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context) error); ok {
		r1 = rf(ctx)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}
